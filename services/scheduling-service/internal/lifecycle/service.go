package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

type Ledger interface {
	Insert(ctx context.Context, appt model.Appointment) error
	Get(ctx context.Context, id string) (model.Appointment, error)
	FindByIdempotencyKey(ctx context.Context, requestedBy, key string) (model.Appointment, bool, error)
	Transition(ctx context.Context, next model.Appointment, from model.Status) error
	ListByPractitionerDate(ctx context.Context, practitionerID string, date model.Date) ([]model.Appointment, error)
}

type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// Invalidator drops cached availability after a ledger write.
type Invalidator interface {
	Invalidate(ctx context.Context, practitionerID string, date model.Date) error
}

type Config struct {
	Location *time.Location
	Now      func() time.Time
	// Channels receive one notification each per notifying transition.
	Channels      []string
	NotifyTimeout time.Duration
	Invalidator   Invalidator
	Logger        *slog.Logger
	NewID         func() string
}

// Service applies lifecycle transitions to the ledger and announces them to the notifier.
type Service struct {
	ledger    Ledger
	schedules availability.ScheduleStore
	directory availability.Directory
	notifier  Notifier
	cfg       Config
}

func NewService(ledger Ledger, schedules availability.ScheduleStore, directory availability.Directory, notifier Notifier, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if len(cfg.Channels) == 0 {
		cfg.Channels = []string{"email"}
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Service{ledger: ledger, schedules: schedules, directory: directory, notifier: notifier, cfg: cfg}
}

type RequestInput struct {
	SubjectID      string
	PractitionerID string
	ServiceID      string
	Date           model.Date
	Time           model.TimeOfDay
	Reason         string
	IsEmergency    bool
	IdempotencyKey string
}

// validate trims the identifiers in place and checks the required fields.
func (in *RequestInput) validate() error {
	in.SubjectID = strings.TrimSpace(in.SubjectID)
	in.PractitionerID = strings.TrimSpace(in.PractitionerID)
	in.ServiceID = strings.TrimSpace(in.ServiceID)
	in.Reason = strings.TrimSpace(in.Reason)
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	switch {
	case in.SubjectID == "":
		return model.Invalid("subject_id", "is required")
	case in.PractitionerID == "":
		return model.Invalid("practitioner_id", "is required")
	case in.ServiceID == "":
		return model.Invalid("service_id", "is required")
	case in.Date.IsZero():
		return model.Invalid("date", "is required")
	case model.ReasonLength(in.Reason) < model.MinReasonLength:
		return model.Invalid("reason", "must be at least %d characters", model.MinReasonLength)
	}
	return nil
}

// Request creates an appointment in status requested. Replaying an idempotency key already used
// by the same actor returns the appointment created the first time.
func (s *Service) Request(ctx context.Context, actor model.Actor, in RequestInput) (model.Appointment, error) {
	if !canRequest(actor.Role) {
		return model.Appointment{}, &model.AuthorizationError{Action: string(model.EventRequest), Role: actor.Role}
	}
	if err := in.validate(); err != nil {
		return model.Appointment{}, err
	}

	if existing, ok, err := s.ledger.FindByIdempotencyKey(ctx, actor.UserID, in.IdempotencyKey); err != nil {
		return model.Appointment{}, fmt.Errorf("lookup idempotency key: %w", err)
	} else if ok {
		return existing, nil
	}

	now := s.cfg.Now().In(s.cfg.Location)
	today := model.DateOf(now)
	if in.Date.Before(today) {
		return model.Appointment{}, model.Invalid("date", "must not be in the past")
	}
	if in.Date == today && in.Time < model.TimeOfDayOf(now) {
		return model.Appointment{}, model.Invalid("time", "has already passed")
	}

	practitioner, err := s.directory.Practitioner(ctx, in.PractitionerID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !practitioner.Active {
		return model.Appointment{}, model.Invalid("practitioner_id", "is not taking appointments")
	}
	subject, err := s.directory.Subject(ctx, in.SubjectID)
	if err != nil {
		return model.Appointment{}, err
	}
	if actor.Role == model.RoleOwner && subject.OwnerID != actor.UserID {
		return model.Appointment{}, &model.AuthorizationError{
			Action: string(model.EventRequest), Role: actor.Role, Reason: "owners may only book for their own pets",
		}
	}
	if _, err := s.directory.Service(ctx, in.ServiceID); err != nil {
		return model.Appointment{}, err
	}

	windows, err := availability.ActiveWindows(ctx, s.schedules, in.PractitionerID, in.Date.Weekday())
	if err != nil {
		return model.Appointment{}, err
	}
	duration := 0
	for _, w := range windows {
		if w.Offers(in.Time) {
			duration = w.SlotDurationMinutes
			break
		}
	}
	if duration == 0 {
		return model.Appointment{}, model.Invalid("time", "%s is not a bookable slot on %s", in.Time, in.Date)
	}

	appt := model.Appointment{
		ID:              s.cfg.NewID(),
		SubjectID:       in.SubjectID,
		PractitionerID:  in.PractitionerID,
		ServiceID:       in.ServiceID,
		OwnerID:         subject.OwnerID,
		Date:            in.Date,
		Time:            in.Time,
		DurationMinutes: duration,
		Status:          model.StatusRequested,
		Reason:          in.Reason,
		IsEmergency:     in.IsEmergency,
		RequestedBy:     actor.UserID,
		IdempotencyKey:  in.IdempotencyKey,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.ledger.Insert(ctx, appt); err != nil {
		if errors.Is(err, model.ErrSlotTaken) || errors.Is(err, model.ErrDuplicateRequest) {
			// A concurrent retry with the same key may have won the race.
			if existing, ok, lookupErr := s.ledger.FindByIdempotencyKey(ctx, actor.UserID, appt.IdempotencyKey); lookupErr == nil && ok {
				return existing, nil
			}
		}
		if errors.Is(err, model.ErrSlotTaken) {
			return model.Appointment{}, &model.ConflictError{
				Message: fmt.Sprintf("slot %s on %s is no longer available", in.Time, in.Date),
			}
		}
		if errors.Is(err, model.ErrDuplicateRequest) {
			return model.Appointment{}, &model.ConflictError{Message: "idempotency key already used"}
		}
		return model.Appointment{}, fmt.Errorf("insert appointment: %w", err)
	}

	s.cfg.Logger.Info("appointment requested",
		"appointment_id", appt.ID,
		"practitioner_id", appt.PractitionerID,
		"date", appt.Date.String(),
		"time", appt.Time.String(),
	)
	s.afterWrite(ctx, appt)
	return appt, nil
}

// Transition fires ev on the appointment. The write is conditional on the status read here, so
// a concurrent transition makes this one fail with ConflictError.
func (s *Service) Transition(ctx context.Context, actor model.Actor, appointmentID string, ev model.Event, cancellationReason string) (model.Appointment, error) {
	if strings.TrimSpace(appointmentID) == "" {
		return model.Appointment{}, model.Invalid("appointment_id", "is required")
	}
	if ev == model.EventRequest {
		return model.Appointment{}, model.Invalid("event", "request creates a new appointment")
	}
	appt, err := s.ledger.Get(ctx, appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := Authorize(actor, appt, ev); err != nil {
		return model.Appointment{}, err
	}
	next, err := Next(appt.Status, ev)
	if err != nil {
		return model.Appointment{}, err
	}

	now := s.cfg.Now().In(s.cfg.Location)
	updated := appt
	updated.Status = next
	updated.UpdatedAt = now

	switch ev {
	case model.EventCancel:
		if model.ReasonLength(cancellationReason) < model.MinReasonLength {
			return model.Appointment{}, model.Invalid("cancellation_reason", "must be at least %d characters", model.MinReasonLength)
		}
		updated.CancellationReason = strings.TrimSpace(cancellationReason)
	case model.EventMarkNoShow:
		if now.Before(appt.StartsAt(s.cfg.Location)) {
			return model.Appointment{}, model.Invalid("event", "appointment has not started yet")
		}
	}

	if err := s.ledger.Transition(ctx, updated, appt.Status); err != nil {
		if errors.Is(err, model.ErrStaleStatus) {
			return model.Appointment{}, &model.ConflictError{Message: "appointment was modified concurrently"}
		}
		return model.Appointment{}, err
	}

	s.cfg.Logger.Info("appointment transitioned",
		"appointment_id", appt.ID,
		"event", string(ev),
		"from", string(appt.Status),
		"to", string(next),
	)
	s.afterWrite(ctx, updated)
	return updated, nil
}

// Get returns one appointment. Owners only see their own.
func (s *Service) Get(ctx context.Context, actor model.Actor, appointmentID string) (model.Appointment, error) {
	appt, err := s.ledger.Get(ctx, appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}
	if actor.Role == model.RoleOwner && !requestingOwner(actor, appt) {
		return model.Appointment{}, &model.NotFoundError{Kind: "appointment", ID: appointmentID}
	}
	if !actor.Role.Valid() {
		return model.Appointment{}, &model.AuthorizationError{Action: "view appointment", Role: actor.Role}
	}
	return appt, nil
}

// DaySheet lists the practitioner's non-cancelled appointments on date. Staff only.
func (s *Service) DaySheet(ctx context.Context, actor model.Actor, practitionerID string, date model.Date) ([]model.Appointment, error) {
	if !isStaff(actor.Role) {
		return nil, &model.AuthorizationError{Action: "view day sheet", Role: actor.Role}
	}
	if date.IsZero() {
		return nil, model.Invalid("date", "is required")
	}
	if _, err := s.directory.Practitioner(ctx, practitionerID); err != nil {
		return nil, err
	}
	return s.ledger.ListByPractitionerDate(ctx, practitionerID, date)
}

var notifyTemplates = map[model.Status]string{
	model.StatusRequested: "appointment.requested",
	model.StatusConfirmed: "appointment.confirmed",
	model.StatusCancelled: "appointment.cancelled",
}

// afterWrite runs the side effects of a committed write. Failures are logged only.
func (s *Service) afterWrite(ctx context.Context, appt model.Appointment) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.NotifyTimeout)
	defer cancel()

	if s.cfg.Invalidator != nil {
		if err := s.cfg.Invalidator.Invalidate(ctx, appt.PractitionerID, appt.Date); err != nil {
			s.cfg.Logger.Warn("availability cache invalidation failed", "err", err, "practitioner_id", appt.PractitionerID)
		}
	}

	template, ok := notifyTemplates[appt.Status]
	if !ok || s.notifier == nil {
		return
	}
	for _, n := range s.notifications(appt, template) {
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.cfg.Logger.Error("notification failed",
				"err", err,
				"appointment_id", appt.ID,
				"channel", n.Channel,
				"template_id", n.TemplateID,
			)
		}
	}
}

func (s *Service) notifications(appt model.Appointment, template string) []model.Notification {
	priority := "normal"
	if appt.IsEmergency {
		priority = "high"
	}
	payload := map[string]any{
		"appointment_id":  appt.ID,
		"practitioner_id": appt.PractitionerID,
		"service_id":      appt.ServiceID,
		"owner_id":        appt.OwnerID,
		"date":            appt.Date.String(),
		"time":            appt.Time.String(),
		"status":          string(appt.Status),
		"is_emergency":    appt.IsEmergency,
	}
	if appt.CancellationReason != "" {
		payload["cancellation_reason"] = appt.CancellationReason
	}

	out := make([]model.Notification, 0, len(s.cfg.Channels))
	for _, ch := range s.cfg.Channels {
		out = append(out, model.Notification{
			SubjectID:  appt.SubjectID,
			Channel:    ch,
			TemplateID: template,
			Priority:   priority,
			Payload:    payload,
		})
	}
	return out
}
