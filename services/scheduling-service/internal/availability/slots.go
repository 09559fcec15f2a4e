package availability

import (
	"sort"

	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

// Interval is a busy span [Start, End) on one date, owned by an appointment.
type Interval struct {
	Start         model.TimeOfDay
	End           model.TimeOfDay
	AppointmentID string
}

// BusyIntervals converts non-cancelled appointments into busy intervals.
func BusyIntervals(appts []model.Appointment) []Interval {
	busy := make([]Interval, 0, len(appts))
	for _, a := range appts {
		if a.Status == model.StatusCancelled {
			continue
		}
		busy = append(busy, Interval{Start: a.Time, End: a.EndTime(), AppointmentID: a.ID})
	}
	return busy
}

// WindowStarts returns every slot start in w such that the whole slot fits before w.EndTime.
func WindowStarts(w model.WorkingWindow) []model.TimeOfDay {
	step := w.SlotDurationMinutes
	if step <= 0 || w.StartTime >= w.EndTime {
		return nil
	}

	var starts []model.TimeOfDay
	for t := w.StartTime; t.AddMinutes(step) <= w.EndTime; t = t.AddMinutes(step) {
		starts = append(starts, t)
	}
	return starts
}

// BuildSlots expands windows into chronologically ordered slots. A start time produced by more
// than one window is emitted once, from the first window listing it. Slots overlapping a busy
// interval are marked occupied; when pastBefore is non-nil, slots starting before it are
// marked past.
func BuildSlots(windows []model.WorkingWindow, busy []Interval, pastBefore *model.TimeOfDay) []model.Slot {
	seen := map[model.TimeOfDay]struct{}{}
	slots := []model.Slot{}

	for _, w := range windows {
		for _, start := range WindowStarts(w) {
			if _, dup := seen[start]; dup {
				continue
			}
			seen[start] = struct{}{}

			end := start.AddMinutes(w.SlotDurationMinutes)
			slot := model.Slot{Time: start, EndTime: end, Available: true}
			if b, ok := firstOverlap(start, end, busy); ok {
				slot.Available = false
				slot.BlockingReason = model.BlockedOccupied
				slot.AppointmentID = b.AppointmentID
			} else if pastBefore != nil && start < *pastBefore {
				slot.Available = false
				slot.BlockingReason = model.BlockedPast
			}
			slots = append(slots, slot)
		}
	}

	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Time < slots[j].Time })
	return slots
}

func firstOverlap(start, end model.TimeOfDay, busy []Interval) (Interval, bool) {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if start < b.End && b.Start < end {
			return b, true
		}
	}
	return Interval{}, false
}
