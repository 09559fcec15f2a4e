package lifecycle

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

var allEvents = []model.Event{
	model.EventRequest,
	model.EventConfirm,
	model.EventCancel,
	model.EventStartAttendance,
	model.EventComplete,
	model.EventMarkNoShow,
}

var allowedEdges = map[model.Status][]model.Status{
	"":                     {model.StatusRequested},
	model.StatusRequested:  {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed:  {model.StatusInProgress, model.StatusCancelled, model.StatusNoShow},
	model.StatusInProgress: {model.StatusCompleted},
}

func TestNext_RandomWalksStayOnTable(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for walk := 0; walk < 500; walk++ {
		status := model.Status("")
		for step := 0; step < 10; step++ {
			ev := allEvents[rng.Intn(len(allEvents))]
			next, err := Next(status, ev)
			if err != nil {
				assert.True(t, model.IsValidation(err), "event %s from %q: %v", ev, status, err)
				continue
			}
			assert.Contains(t, allowedEdges[status], next, "edge %q -> %q", status, next)
			status = next
		}
	}
}

func TestNext_TerminalStatesHaveNoExits(t *testing.T) {
	for _, s := range []model.Status{model.StatusCompleted, model.StatusCancelled, model.StatusNoShow} {
		for _, ev := range allEvents {
			_, err := Next(s, ev)
			assert.Error(t, err, "event %s from %s", ev, s)
		}
	}
}

func TestNext_Message(t *testing.T) {
	_, err := Next(model.StatusCompleted, model.EventMarkNoShow)
	require.Error(t, err)
	assert.Equal(t, "event: cannot mark no show an appointment that is completed", err.Error())
}

func TestAuthorize(t *testing.T) {
	appt := model.Appointment{PractitionerID: "vet-1", RequestedBy: "owner-1", OwnerID: "owner-1"}
	owner := model.Actor{UserID: "owner-1", Role: model.RoleOwner}
	otherOwner := model.Actor{UserID: "owner-2", Role: model.RoleOwner}
	vet := model.Actor{UserID: "u-vet", Role: model.RoleVeterinarian, PractitionerID: "vet-1"}
	otherVet := model.Actor{UserID: "u-vet2", Role: model.RoleVeterinarian, PractitionerID: "vet-2"}
	desk := model.Actor{UserID: "u-desk", Role: model.RoleReceptionist}
	aux := model.Actor{UserID: "u-aux", Role: model.RoleAuxiliary}
	admin := model.Actor{UserID: "u-admin", Role: model.RoleAdmin}

	tests := []struct {
		actor model.Actor
		event model.Event
		ok    bool
	}{
		{owner, model.EventConfirm, false},
		{vet, model.EventConfirm, true},
		{otherVet, model.EventConfirm, false},
		{desk, model.EventConfirm, true},
		{aux, model.EventConfirm, false},
		{owner, model.EventCancel, true},
		{otherOwner, model.EventCancel, false},
		{admin, model.EventCancel, true},
		{desk, model.EventStartAttendance, false},
		{vet, model.EventStartAttendance, true},
		{vet, model.EventComplete, true},
		{admin, model.EventComplete, false},
		{desk, model.EventMarkNoShow, true},
		{owner, model.EventMarkNoShow, false},
	}
	for _, tt := range tests {
		err := Authorize(tt.actor, appt, tt.event)
		if tt.ok {
			assert.NoError(t, err, "%s by %s", tt.event, tt.actor.UserID)
		} else {
			assert.True(t, model.IsAuthorization(err), "%s by %s: %v", tt.event, tt.actor.UserID, err)
		}
	}
}

func TestAllowedEvents(t *testing.T) {
	appt := model.Appointment{PractitionerID: "vet-1", Status: model.StatusConfirmed}
	vet := model.Actor{UserID: "u-vet", Role: model.RoleVeterinarian, PractitionerID: "vet-1"}

	assert.Equal(t,
		[]model.Event{model.EventStartAttendance, model.EventMarkNoShow, model.EventCancel},
		AllowedEvents(vet, appt))

	appt.Status = model.StatusCompleted
	assert.Empty(t, AllowedEvents(vet, appt))
}
