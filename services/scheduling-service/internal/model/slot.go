package model

import "time"

const (
	BlockedOccupied = "occupied"
	BlockedPast     = "past"
)

// Slot is a candidate start time computed for one availability query.
type Slot struct {
	Time           TimeOfDay `json:"time"`
	EndTime        TimeOfDay `json:"end_time"`
	Available      bool      `json:"available"`
	BlockingReason string    `json:"blocking_reason,omitempty"`
	AppointmentID  string    `json:"appointment_id,omitempty"`
}

type OccupiedAppointment struct {
	AppointmentID string    `json:"appointment_id"`
	Time          TimeOfDay `json:"time"`
	SubjectName   string    `json:"subject_name"`
	ServiceName   string    `json:"service_name"`
	Status        Status    `json:"status"`
}

type Availability struct {
	PractitionerID       string                `json:"practitioner_id"`
	Date                 Date                  `json:"date"`
	DayOfWeek            time.Weekday          `json:"day_of_week"`
	HasSchedule          bool                  `json:"has_schedule"`
	Windows              []WorkingWindow       `json:"windows"`
	Slots                []Slot                `json:"slots"`
	OccupiedAppointments []OccupiedAppointment `json:"occupied_appointments"`
}

// SlotAt returns the slot starting at t.
func (a Availability) SlotAt(t TimeOfDay) (Slot, bool) {
	for _, s := range a.Slots {
		if s.Time == t {
			return s, true
		}
	}
	return Slot{}, false
}
