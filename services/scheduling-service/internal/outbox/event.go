package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

var statusEventTypes = map[model.Status]string{
	model.StatusRequested:  "scheduling.appointment.requested.v1",
	model.StatusConfirmed:  "scheduling.appointment.confirmed.v1",
	model.StatusInProgress: "scheduling.appointment.started.v1",
	model.StatusCompleted:  "scheduling.appointment.completed.v1",
	model.StatusCancelled:  "scheduling.appointment.cancelled.v1",
	model.StatusNoShow:     "scheduling.appointment.no_show.v1",
}

// EventTypeFor returns the topic announcing that an appointment entered status s.
func EventTypeFor(s model.Status) string {
	return statusEventTypes[s]
}

type appointmentPayload struct {
	AppointmentID      string `json:"appointment_id"`
	SubjectID          string `json:"subject_id"`
	PractitionerID     string `json:"practitioner_id"`
	ServiceID          string `json:"service_id"`
	Date               string `json:"date"`
	Time               string `json:"time"`
	StartAt            string `json:"start_at"`
	DurationMinutes    int    `json:"duration_minutes"`
	Status             string `json:"status"`
	IsEmergency        bool   `json:"is_emergency"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
	OccurredAt         string `json:"occurred_at"`
}

// AppointmentEvent builds the event announcing appt's current status.
func AppointmentEvent(appt model.Appointment, loc *time.Location) (Event, error) {
	payload, err := json.Marshal(appointmentPayload{
		AppointmentID:      appt.ID,
		SubjectID:          appt.SubjectID,
		PractitionerID:     appt.PractitionerID,
		ServiceID:          appt.ServiceID,
		Date:               appt.Date.String(),
		Time:               appt.Time.String(),
		StartAt:            appt.StartsAt(loc).Format(time.RFC3339),
		DurationMinutes:    appt.DurationMinutes,
		Status:             string(appt.Status),
		IsEmergency:        appt.IsEmergency,
		CancellationReason: appt.CancellationReason,
		OccurredAt:         appt.UpdatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     EventTypeFor(appt.Status),
		Payload:       payload,
	}, nil
}
