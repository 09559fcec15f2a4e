package lifecycle

import (
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

type permission func(actor model.Actor, appt model.Appointment) bool

type transition struct {
	from    []model.Status
	to      model.Status
	allowed permission
	who     string
}

func assignedVet(actor model.Actor, appt model.Appointment) bool {
	return actor.IsPractitioner(appt.PractitionerID)
}

func frontDesk(actor model.Actor) bool {
	return actor.Role == model.RoleReceptionist || actor.Role == model.RoleAdmin
}

func requestingOwner(actor model.Actor, appt model.Appointment) bool {
	return actor.Role == model.RoleOwner && actor.UserID != "" &&
		(actor.UserID == appt.RequestedBy || actor.UserID == appt.OwnerID)
}

var transitions = map[model.Event]transition{
	model.EventConfirm: {
		from: []model.Status{model.StatusRequested},
		to:   model.StatusConfirmed,
		allowed: func(a model.Actor, appt model.Appointment) bool {
			return assignedVet(a, appt) || frontDesk(a)
		},
		who: "only the assigned veterinarian, a receptionist or an admin",
	},
	model.EventCancel: {
		from: []model.Status{model.StatusRequested, model.StatusConfirmed},
		to:   model.StatusCancelled,
		allowed: func(a model.Actor, appt model.Appointment) bool {
			return requestingOwner(a, appt) || assignedVet(a, appt) || frontDesk(a)
		},
		who: "only the requesting owner, the assigned veterinarian, a receptionist or an admin",
	},
	model.EventStartAttendance: {
		from:    []model.Status{model.StatusConfirmed},
		to:      model.StatusInProgress,
		allowed: assignedVet,
		who:     "only the assigned veterinarian",
	},
	model.EventComplete: {
		from:    []model.Status{model.StatusInProgress},
		to:      model.StatusCompleted,
		allowed: assignedVet,
		who:     "only the assigned veterinarian",
	},
	model.EventMarkNoShow: {
		from: []model.Status{model.StatusConfirmed},
		to:   model.StatusNoShow,
		allowed: func(a model.Actor, appt model.Appointment) bool {
			return assignedVet(a, appt) || frontDesk(a)
		},
		who: "only the assigned veterinarian, a receptionist or an admin",
	},
}

// eventOrder fixes the order AllowedEvents reports in.
var eventOrder = []model.Event{
	model.EventConfirm,
	model.EventStartAttendance,
	model.EventComplete,
	model.EventMarkNoShow,
	model.EventCancel,
}

// Next returns the status an appointment in from moves to on ev.
func Next(from model.Status, ev model.Event) (model.Status, error) {
	if ev == model.EventRequest {
		if from == "" {
			return model.StatusRequested, nil
		}
		return "", &model.ValidationError{Field: "event", Message: "appointment already exists"}
	}
	t, ok := transitions[ev]
	if !ok {
		return "", &model.ValidationError{Field: "event", Message: fmt.Sprintf("unknown event %q", ev)}
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", &model.ValidationError{
		Field:   "event",
		Message: fmt.Sprintf("cannot %s an appointment that is %s", strings.ReplaceAll(string(ev), "_", " "), from),
	}
}

// Authorize checks the actor against the event's role rule. It does not look at the status.
func Authorize(actor model.Actor, appt model.Appointment, ev model.Event) error {
	t, ok := transitions[ev]
	if !ok {
		return nil
	}
	if t.allowed(actor, appt) {
		return nil
	}
	return &model.AuthorizationError{Action: string(ev), Role: actor.Role, Reason: t.who}
}

// AllowedEvents lists the events the actor could fire on appt right now, ignoring time guards.
func AllowedEvents(actor model.Actor, appt model.Appointment) []model.Event {
	out := []model.Event{}
	for _, ev := range eventOrder {
		if _, err := Next(appt.Status, ev); err != nil {
			continue
		}
		if Authorize(actor, appt, ev) == nil {
			out = append(out, ev)
		}
	}
	return out
}

// canRequest is the role rule for creating appointments. Owners are further limited to their
// own pets by the caller.
func canRequest(role model.Role) bool {
	switch role {
	case model.RoleOwner, model.RoleVeterinarian, model.RoleReceptionist, model.RoleAdmin:
		return true
	}
	return false
}

func isStaff(role model.Role) bool {
	return role != model.RoleOwner && role.Valid()
}
