package availability

import (
	"testing"
	"time"

	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

func window(start, end model.TimeOfDay, minutes int) model.WorkingWindow {
	return model.WorkingWindow{
		PractitionerID:      "vet-1",
		DayOfWeek:           time.Monday,
		StartTime:           start,
		EndTime:             end,
		SlotDurationMinutes: minutes,
		Active:              true,
	}
}

func TestWindowStarts_NoPartialTrailingSlot(t *testing.T) {
	starts := WindowStarts(window(model.Clock(9, 0), model.Clock(10, 40), 30))
	if len(starts) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(starts))
	}
	if starts[2] != model.Clock(10, 0) {
		t.Fatalf("expected last slot 10:00, got %s", starts[2])
	}
}

func TestBuildSlots_MarksOccupied(t *testing.T) {
	busy := []Interval{{Start: model.Clock(9, 15), End: model.Clock(9, 45), AppointmentID: "appt-1"}}

	slots := BuildSlots([]model.WorkingWindow{window(model.Clock(9, 0), model.Clock(10, 0), 15)}, busy, nil)
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(slots))
	}
	want := []bool{true, false, false, true}
	for i, s := range slots {
		if s.Available != want[i] {
			t.Fatalf("slot %s: expected available=%v", s.Time, want[i])
		}
	}
	if slots[1].BlockingReason != model.BlockedOccupied || slots[1].AppointmentID != "appt-1" {
		t.Fatalf("expected 09:15 blocked by appt-1, got %+v", slots[1])
	}
}

func TestBuildSlots_SkipsPast(t *testing.T) {
	now := model.Clock(9, 31)
	slots := BuildSlots([]model.WorkingWindow{window(model.Clock(9, 0), model.Clock(10, 0), 15)}, nil, &now)
	// 09:00, 09:15, 09:30 start before now. 09:45 is future.
	for _, s := range slots[:3] {
		if s.Available || s.BlockingReason != model.BlockedPast {
			t.Fatalf("expected %s to be past, got %+v", s.Time, s)
		}
	}
	if !slots[3].Available {
		t.Fatalf("expected 09:45 available")
	}
}

func TestBuildSlots_OverlappingWindowsDeduplicated(t *testing.T) {
	slots := BuildSlots([]model.WorkingWindow{
		window(model.Clock(8, 0), model.Clock(10, 0), 30),
		window(model.Clock(9, 0), model.Clock(11, 0), 30),
	}, nil, nil)

	seen := map[model.TimeOfDay]bool{}
	for i, s := range slots {
		if seen[s.Time] {
			t.Fatalf("duplicate start %s", s.Time)
		}
		seen[s.Time] = true
		if i > 0 && slots[i-1].Time >= s.Time {
			t.Fatalf("slots out of order at %s", s.Time)
		}
	}
	if len(slots) != 6 {
		t.Fatalf("expected 6 slots (08:00..10:30), got %d", len(slots))
	}
}

func TestBuildSlots_FirstWindowWinsOnDuration(t *testing.T) {
	slots := BuildSlots([]model.WorkingWindow{
		window(model.Clock(9, 0), model.Clock(10, 0), 60),
		window(model.Clock(9, 0), model.Clock(10, 0), 20),
	}, nil, nil)

	if slots[0].Time != model.Clock(9, 0) || slots[0].EndTime != model.Clock(10, 0) {
		t.Fatalf("expected 09:00 from the first window to last an hour, got %+v", slots[0])
	}
	if len(slots) != 3 {
		t.Fatalf("expected 09:00, 09:20, 09:40, got %d slots", len(slots))
	}
}

func TestBuildSlots_NeverSpillPastWindow(t *testing.T) {
	for _, minutes := range []int{7, 15, 25, 45, 50} {
		w := window(model.Clock(8, 0), model.Clock(12, 10), minutes)
		for _, s := range BuildSlots([]model.WorkingWindow{w}, nil, nil) {
			if s.EndTime > w.EndTime {
				t.Fatalf("slot %s-%s spills past %s", s.Time, s.EndTime, w.EndTime)
			}
		}
	}
}
