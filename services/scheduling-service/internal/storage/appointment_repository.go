package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/vetclinic/libs/db"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/outbox"
)

// AppointmentRepository is the Postgres ledger. Overlap protection is the
// appointments_no_overlap exclusion constraint; every write also enqueues an outbox event in
// the same transaction.
type AppointmentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
	loc    *time.Location
}

func NewAppointmentRepository(pool *db.Pool, outboxRepo *outbox.Repository, loc *time.Location) *AppointmentRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &AppointmentRepository{pool: pool, outbox: outboxRepo, loc: loc}
}

const appointmentColumns = `
	id::text, subject_id, practitioner_id, service_id, owner_id, appointment_date, start_second, duration_minutes,
	status, reason, cancellation_reason, is_emergency, requested_by, COALESCE(idempotency_key, ''), created_at, updated_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var date time.Time
	var start int
	var status string
	if err := row.Scan(&a.ID, &a.SubjectID, &a.PractitionerID, &a.ServiceID, &a.OwnerID, &date, &start,
		&a.DurationMinutes, &status, &a.Reason, &a.CancellationReason, &a.IsEmergency, &a.RequestedBy,
		&a.IdempotencyKey, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return model.Appointment{}, err
	}
	a.Date = model.DateOf(date)
	a.Time = model.TimeOfDay(start)
	a.Status = model.Status(status)
	return a, nil
}

func (r *AppointmentRepository) Insert(ctx context.Context, appt model.Appointment) error {
	err := r.pool.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO appointments
				(id, subject_id, practitioner_id, service_id, owner_id, appointment_date, start_second, duration_minutes,
				 start_at, end_at, status, reason, cancellation_reason, is_emergency, requested_by, idempotency_key,
				 created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NULLIF($16, ''), $17, $18)
		`, appt.ID, appt.SubjectID, appt.PractitionerID, appt.ServiceID, appt.OwnerID, pgDate(appt.Date),
			appt.Time.Seconds(), appt.DurationMinutes, appt.StartsAt(r.loc), appt.EndsAt(r.loc), string(appt.Status),
			appt.Reason, appt.CancellationReason, appt.IsEmergency, appt.RequestedBy, appt.IdempotencyKey,
			appt.CreatedAt, appt.UpdatedAt)
		if err != nil {
			return err
		}
		return r.enqueue(ctx, tx, appt)
	})
	switch {
	case err == nil:
		return nil
	case IsConflict(err):
		return model.ErrSlotTaken
	case db.HasCode(err, db.CodeUniqueViolation) && db.ConstraintName(err) == "appointments_idempotency_key":
		return model.ErrDuplicateRequest
	default:
		return fmt.Errorf("insert appointment: %w", err)
	}
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := scanAppointment(r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id::text = $1`, id))
	if IsNotFound(err) {
		return model.Appointment{}, &model.NotFoundError{Kind: "appointment", ID: id}
	}
	return appt, err
}

func (r *AppointmentRepository) FindByIdempotencyKey(ctx context.Context, requestedBy, key string) (model.Appointment, bool, error) {
	if key == "" {
		return model.Appointment{}, false, nil
	}
	appt, err := scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE requested_by = $1 AND idempotency_key = $2
	`, requestedBy, key))
	if IsNotFound(err) {
		return model.Appointment{}, false, nil
	}
	if err != nil {
		return model.Appointment{}, false, err
	}
	return appt, true, nil
}

// Transition moves the appointment to next.Status only if it is still in status from.
func (r *AppointmentRepository) Transition(ctx context.Context, next model.Appointment, from model.Status) error {
	return r.pool.WithTx(ctx, func(tx pgx.Tx) error {
		updated, err := scanAppointment(tx.QueryRow(ctx, `
			UPDATE appointments
			SET status = $3, cancellation_reason = $4, updated_at = $5
			WHERE id::text = $1 AND status = $2
			RETURNING `+appointmentColumns,
			next.ID, string(from), string(next.Status), next.CancellationReason, next.UpdatedAt))
		if IsNotFound(err) {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id::text = $1)`, next.ID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return &model.NotFoundError{Kind: "appointment", ID: next.ID}
			}
			return model.ErrStaleStatus
		}
		if err != nil {
			return fmt.Errorf("update appointment status: %w", err)
		}
		return r.enqueue(ctx, tx, updated)
	})
}

func (r *AppointmentRepository) ListByPractitionerDate(ctx context.Context, practitionerID string, date model.Date) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE practitioner_id = $1
			AND appointment_date = $2
			AND status <> 'cancelled'
		ORDER BY start_second ASC, id ASC
	`, practitionerID, pgDate(date))
	if err != nil {
		return nil, err
	}
	appts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Appointment, error) {
		return scanAppointment(row)
	})
	if err != nil {
		return nil, err
	}
	if appts == nil {
		appts = []model.Appointment{}
	}
	return appts, nil
}

func (r *AppointmentRepository) enqueue(ctx context.Context, tx pgx.Tx, appt model.Appointment) error {
	if r.outbox == nil {
		return nil
	}
	evt, err := outbox.AppointmentEvent(appt, r.loc)
	if err != nil {
		return err
	}
	return r.outbox.Insert(ctx, tx, evt)
}

// pgDate passes a civil date as UTC midnight so the DATE column never shifts.
func pgDate(d model.Date) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func IsConflict(err error) bool {
	return db.HasCode(err, db.CodeExclusionViolation)
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
