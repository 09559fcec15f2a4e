package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/lifecycle"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

type Resolver interface {
	Resolve(ctx context.Context, practitionerID string, date model.Date) (model.Availability, error)
}

type Requester interface {
	Request(ctx context.Context, actor model.Actor, in lifecycle.RequestInput) (model.Appointment, error)
}

// Workflow performs the wizard's I/O: loading slots and submitting the request.
type Workflow struct {
	resolver  Resolver
	requester Requester
	now       func() time.Time
}

func NewWorkflow(resolver Resolver, requester Requester, now func() time.Time) *Workflow {
	if now == nil {
		now = time.Now
	}
	return &Workflow{resolver: resolver, requester: requester, now: now}
}

// LoadSlots fetches availability for the selected practitioner and date.
func (w *Workflow) LoadSlots(ctx context.Context, s State) (State, error) {
	if s.Step != StepSlot && s.Step != StepConfirm {
		return fail(s, &model.ValidationError{Field: "step", Message: "slots are loaded on the slot step"})
	}
	if s.Selections.PractitionerID == "" {
		return fail(s, model.Invalid("practitioner_id", "select a veterinarian"))
	}
	if s.Selections.Date.IsZero() {
		return fail(s, model.Invalid("date", "select a date"))
	}
	av, err := w.resolver.Resolve(ctx, s.Selections.PractitionerID, s.Selections.Date)
	if err != nil {
		return fail(s, err)
	}
	s.Slots = av.Slots
	s.Err = nil
	return s, nil
}

// Submit sends the request. A conflict sends the wizard back to the slot step with fresh slots;
// any other failure keeps it on confirm so the user can retry.
func (w *Workflow) Submit(ctx context.Context, s State, actor model.Actor) (State, error) {
	if s.Step != StepConfirm {
		return fail(s, &model.ValidationError{Field: "step", Message: "nothing to submit before the confirm step"})
	}
	sel := s.Selections
	if sel.Time == nil {
		return fail(s, model.Invalid("time", "select a time"))
	}
	if model.ReasonLength(sel.Reason) < model.MinReasonLength {
		return fail(s, model.Invalid("reason", "must be at least %d characters", model.MinReasonLength))
	}
	if s.IdempotencyKey == "" {
		s.IdempotencyKey = uuid.NewString()
	}

	appt, err := w.requester.Request(ctx, actor, lifecycle.RequestInput{
		SubjectID:      sel.SubjectID,
		PractitionerID: sel.PractitionerID,
		ServiceID:      sel.ServiceID,
		Date:           sel.Date,
		Time:           *sel.Time,
		Reason:         sel.Reason,
		IsEmergency:    sel.IsEmergency,
		IdempotencyKey: s.IdempotencyKey,
	})
	if err != nil {
		if model.IsConflict(err) {
			s.Step = StepSlot
			s.Selections.Time = nil
			s.IdempotencyKey = ""
			if reloaded, loadErr := w.LoadSlots(ctx, s); loadErr == nil {
				s = reloaded
			}
		}
		return fail(s, err)
	}

	s.Step = StepDone
	s.Appointment = &appt
	s.CompletedAt = w.now()
	s.Err = nil
	return s, nil
}
