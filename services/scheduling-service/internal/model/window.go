package model

import "time"

// WorkingWindow is a recurring weekly interval [StartTime, EndTime) in which a practitioner
// takes appointments of SlotDurationMinutes each.
type WorkingWindow struct {
	ID                  string       `json:"id,omitempty"`
	PractitionerID      string       `json:"practitioner_id"`
	DayOfWeek           time.Weekday `json:"day_of_week"`
	StartTime           TimeOfDay    `json:"start_time"`
	EndTime             TimeOfDay    `json:"end_time"`
	SlotDurationMinutes int          `json:"slot_duration_minutes"`
	Active              bool         `json:"active"`
}

func (w WorkingWindow) Validate() error {
	if w.PractitionerID == "" {
		return Invalid("practitioner_id", "is required")
	}
	if w.DayOfWeek < time.Sunday || w.DayOfWeek > time.Saturday {
		return Invalid("day_of_week", "must be between 0 (Sunday) and 6 (Saturday)")
	}
	if w.StartTime >= w.EndTime {
		return Invalid("end_time", "must be after start_time")
	}
	if w.SlotDurationMinutes <= 0 {
		return Invalid("slot_duration_minutes", "must be positive")
	}
	return nil
}

// SlotSeconds is the slot length in seconds.
func (w WorkingWindow) SlotSeconds() int { return w.SlotDurationMinutes * 60 }

// Offers reports whether t is the start of a whole slot inside the window.
func (w WorkingWindow) Offers(t TimeOfDay) bool {
	step := w.SlotSeconds()
	if step <= 0 || t < w.StartTime {
		return false
	}
	if (t.Seconds()-w.StartTime.Seconds())%step != 0 {
		return false
	}
	return t.Seconds()+step <= w.EndTime.Seconds()
}
