package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

type Step string

const (
	StepSubject Step = "subject"
	StepService Step = "service"
	StepSlot    Step = "slot"
	StepConfirm Step = "confirm"
	StepDone    Step = "done"
)

// DisplayInterval is how long a finished booking stays on screen before Tick resets it.
const DisplayInterval = 5 * time.Second

type Selections struct {
	SubjectID      string
	ServiceID      string
	PractitionerID string
	Date           model.Date
	Time           *model.TimeOfDay
	Reason         string
	IsEmergency    bool
}

// State is the whole wizard. It is a value; every operation returns a new one.
type State struct {
	Step        Step
	Selections  Selections
	Slots       []model.Slot
	Err         error
	Appointment *model.Appointment
	CompletedAt time.Time
	// IdempotencyKey is minted on the first submit and reused by retries of the same selection.
	// Changing any selection clears it.
	IdempotencyKey string
}

func New() State {
	return State{Step: StepSubject}
}

type Input interface {
	step() Step
}

type SubjectInput struct{ SubjectID string }

type ServiceInput struct{ ServiceID string }

// SlotInput picks practitioner, date and time. Time may be nil to change practitioner or date
// only, a string ("HH:mm" or "HH:mm:ss"), a {hour, minute, second} map or a model.TimeOfDay.
type SlotInput struct {
	PractitionerID string
	Date           model.Date
	Time           any
}

type ConfirmInput struct {
	Reason      string
	IsEmergency bool
}

func (SubjectInput) step() Step { return StepSubject }
func (ServiceInput) step() Step { return StepService }
func (SlotInput) step() Step    { return StepSlot }
func (ConfirmInput) step() Step { return StepConfirm }

// Advance validates input against the current step and returns the next state. The input
// state is never modified. On error the returned state equals s with Err set.
func Advance(s State, in Input) (State, error) {
	if s.Step == "" {
		s.Step = StepSubject
	}
	if in == nil || in.step() != s.Step {
		return fail(s, &model.ValidationError{Field: "step", Message: fmt.Sprintf("input does not belong to step %s", s.Step)})
	}
	s.Err = nil

	switch in := in.(type) {
	case SubjectInput:
		id := strings.TrimSpace(in.SubjectID)
		if id == "" {
			return fail(s, model.Invalid("subject_id", "select a pet"))
		}
		if id != s.Selections.SubjectID {
			s.IdempotencyKey = ""
		}
		s.Selections.SubjectID = id
		s.Step = StepService

	case ServiceInput:
		id := strings.TrimSpace(in.ServiceID)
		if id == "" {
			return fail(s, model.Invalid("service_id", "select a service"))
		}
		if id != s.Selections.ServiceID {
			s.IdempotencyKey = ""
		}
		s.Selections.ServiceID = id
		s.Step = StepSlot

	case SlotInput:
		return advanceSlot(s, in)

	case ConfirmInput:
		if model.ReasonLength(in.Reason) < model.MinReasonLength {
			return fail(s, model.Invalid("reason", "must be at least %d characters", model.MinReasonLength))
		}
		reason := strings.TrimSpace(in.Reason)
		if reason != s.Selections.Reason || in.IsEmergency != s.Selections.IsEmergency {
			s.IdempotencyKey = ""
		}
		s.Selections.Reason = reason
		s.Selections.IsEmergency = in.IsEmergency
	}
	return s, nil
}

func advanceSlot(s State, in SlotInput) (State, error) {
	pid := strings.TrimSpace(in.PractitionerID)
	if pid == "" {
		pid = s.Selections.PractitionerID
	}
	date := in.Date
	if date.IsZero() {
		date = s.Selections.Date
	}
	if pid != s.Selections.PractitionerID || date != s.Selections.Date {
		s.Selections.PractitionerID = pid
		s.Selections.Date = date
		s.Selections.Time = nil
		s.Slots = nil
		s.IdempotencyKey = ""
	}
	if in.Time == nil {
		return s, nil
	}

	if s.Selections.PractitionerID == "" {
		return fail(s, model.Invalid("practitioner_id", "select a veterinarian"))
	}
	if s.Selections.Date.IsZero() {
		return fail(s, model.Invalid("date", "select a date"))
	}
	t, err := model.TimeOfDayFromValue(in.Time)
	if err != nil {
		return fail(s, model.Invalid("time", "%v", err))
	}
	if s.Slots != nil {
		slot, ok := findSlot(s.Slots, t)
		if !ok {
			return fail(s, model.Invalid("time", "%s is not offered on %s", t, s.Selections.Date))
		}
		if !slot.Available {
			return fail(s, model.Invalid("time", "%s is %s", t, slot.BlockingReason))
		}
	}
	if s.Selections.Time == nil || *s.Selections.Time != t {
		s.IdempotencyKey = ""
	}
	s.Selections.Time = &t
	s.Step = StepConfirm
	return s, nil
}

func findSlot(slots []model.Slot, t model.TimeOfDay) (model.Slot, bool) {
	for _, slot := range slots {
		if slot.Time == t {
			return slot, true
		}
	}
	return model.Slot{}, false
}

func fail(s State, err error) (State, error) {
	s.Err = err
	return s, err
}

// Back moves one step towards the start, keeping every selection.
func Back(s State) State {
	s.Err = nil
	switch s.Step {
	case StepService:
		s.Step = StepSubject
	case StepSlot:
		s.Step = StepService
	case StepConfirm:
		s.Step = StepSlot
	}
	return s
}

// IsSelected reports whether t, in any accepted time shape, is the chosen slot.
func IsSelected(s State, t any) bool {
	if s.Selections.Time == nil {
		return false
	}
	v, err := model.TimeOfDayFromValue(t)
	return err == nil && v == *s.Selections.Time
}

// Tick resets a finished wizard once DisplayInterval has passed since completion.
func Tick(s State, now time.Time) State {
	if s.Step == StepDone && !s.CompletedAt.IsZero() && !now.Before(s.CompletedAt.Add(DisplayInterval)) {
		return New()
	}
	return s
}

// Dismiss resets a finished wizard immediately.
func Dismiss(s State) State {
	if s.Step == StepDone {
		return New()
	}
	return s
}
