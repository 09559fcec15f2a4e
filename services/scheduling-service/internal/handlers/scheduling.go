package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/vetclinic/libs/httpx"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/lifecycle"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

type Resolver interface {
	Resolve(ctx context.Context, practitionerID string, date model.Date) (model.Availability, error)
}

type Lifecycle interface {
	Request(ctx context.Context, actor model.Actor, in lifecycle.RequestInput) (model.Appointment, error)
	Transition(ctx context.Context, actor model.Actor, appointmentID string, ev model.Event, cancellationReason string) (model.Appointment, error)
	Get(ctx context.Context, actor model.Actor, appointmentID string) (model.Appointment, error)
	DaySheet(ctx context.Context, actor model.Actor, practitionerID string, date model.Date) ([]model.Appointment, error)
}

type SchedulingHandler struct {
	resolver  Resolver
	lifecycle Lifecycle
	auth      Authenticator
	logger    *slog.Logger
}

func NewSchedulingHandler(resolver Resolver, lc Lifecycle, authn Authenticator, logger *slog.Logger) *SchedulingHandler {
	return &SchedulingHandler{resolver: resolver, lifecycle: lc, auth: authn, logger: logger}
}

func (h *SchedulingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/practitioners/{practitionerId}/availability", h.Availability)
	mux.HandleFunc("GET /api/v1/practitioners/{practitionerId}/appointments", h.DaySheet)
	mux.HandleFunc("POST /api/v1/appointments", h.RequestAppointment)
	mux.HandleFunc("GET /api/v1/appointments/{appointmentId}", h.GetAppointment)
	mux.HandleFunc("POST /api/v1/appointments/{appointmentId}/transitions", h.TransitionAppointment)
}

type requestAppointmentBody struct {
	SubjectID      string `json:"subject_id" validate:"required"`
	PractitionerID string `json:"practitioner_id" validate:"required"`
	ServiceID      string `json:"service_id" validate:"required"`
	Date           string `json:"date" validate:"required,datetime=2006-01-02"`
	Time           any    `json:"time" validate:"required"`
	Reason         string `json:"reason" validate:"required,max=2000"`
	IsEmergency    bool   `json:"is_emergency"`
}

type transitionBody struct {
	Event              string `json:"event" validate:"required"`
	CancellationReason string `json:"cancellation_reason" validate:"max=2000"`
}

type appointmentResponse struct {
	model.Appointment
	AllowedEvents []model.Event `json:"allowed_events"`
}

type daySheetResponse struct {
	PractitionerID string              `json:"practitioner_id"`
	Date           model.Date          `json:"date"`
	Appointments   []model.Appointment `json:"appointments"`
}

func (h *SchedulingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.Actor(r); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	date, err := dateParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	av, err := h.resolver.Resolve(r.Context(), r.PathValue("practitionerId"), date)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, av)
}

func (h *SchedulingHandler) DaySheet(w http.ResponseWriter, r *http.Request) {
	actor, err := h.auth.Actor(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	date, err := dateParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	practitionerID := r.PathValue("practitionerId")
	appts, err := h.lifecycle.DaySheet(r.Context(), actor, practitionerID, date)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, daySheetResponse{PractitionerID: practitionerID, Date: date, Appointments: appts})
}

func (h *SchedulingHandler) RequestAppointment(w http.ResponseWriter, r *http.Request) {
	actor, err := h.auth.Actor(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var body requestAppointmentBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		writeError(w, r, h.logger, &model.ValidationError{Message: "invalid json body"})
		return
	}
	if err := validateBody(body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	date, err := model.ParseDate(body.Date)
	if err != nil {
		writeError(w, r, h.logger, model.Invalid("date", "%v", err))
		return
	}
	at, err := model.TimeOfDayFromValue(body.Time)
	if err != nil {
		writeError(w, r, h.logger, model.Invalid("time", "%v", err))
		return
	}

	appt, err := h.lifecycle.Request(r.Context(), actor, lifecycle.RequestInput{
		SubjectID:      strings.TrimSpace(body.SubjectID),
		PractitionerID: strings.TrimSpace(body.PractitionerID),
		ServiceID:      strings.TrimSpace(body.ServiceID),
		Date:           date,
		Time:           at,
		Reason:         body.Reason,
		IsEmergency:    body.IsEmergency,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, h.present(actor, appt))
}

func (h *SchedulingHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	actor, err := h.auth.Actor(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	appt, err := h.lifecycle.Get(r.Context(), actor, r.PathValue("appointmentId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.present(actor, appt))
}

func (h *SchedulingHandler) TransitionAppointment(w http.ResponseWriter, r *http.Request) {
	actor, err := h.auth.Actor(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var body transitionBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		writeError(w, r, h.logger, &model.ValidationError{Message: "invalid json body"})
		return
	}
	if err := validateBody(body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ev, err := model.ParseEvent(body.Event)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	appt, err := h.lifecycle.Transition(r.Context(), actor, r.PathValue("appointmentId"), ev, body.CancellationReason)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.present(actor, appt))
}

func (h *SchedulingHandler) present(actor model.Actor, appt model.Appointment) appointmentResponse {
	return appointmentResponse{Appointment: appt, AllowedEvents: lifecycle.AllowedEvents(actor, appt)}
}

func dateParam(r *http.Request) (model.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return model.Date{}, model.Invalid("date", "is required")
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return model.Date{}, model.Invalid("date", "%v", err)
	}
	return d, nil
}

// idempotencyKey accepts the gateway's X-Idempotency-Key spelling as well.
func idempotencyKey(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get("Idempotency-Key")); k != "" {
		return k
	}
	return strings.TrimSpace(r.Header.Get("X-Idempotency-Key"))
}
