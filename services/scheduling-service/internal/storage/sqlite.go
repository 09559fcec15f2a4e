package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
	_ "modernc.org/sqlite"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// SQLiteStore is the single-node backend. All writes go through one connection, which makes
// the overlap check and the insert in Insert atomic with respect to other writers.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) PutPractitioner(ctx context.Context, p model.Practitioner) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO practitioners (id, name, user_id, is_active) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, user_id = excluded.user_id, is_active = excluded.is_active
	`, p.ID, p.Name, p.UserID, p.Active)
	return err
}

func (s *SQLiteStore) PutSubject(ctx context.Context, sub model.Subject) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subjects (id, name, owner_id) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, owner_id = excluded.owner_id
	`, sub.ID, sub.Name, sub.OwnerID)
	return err
}

func (s *SQLiteStore) PutService(ctx context.Context, svc model.Service) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO services (id, name, duration_minutes) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, duration_minutes = excluded.duration_minutes
	`, svc.ID, svc.Name, svc.DurationMinutes)
	return err
}

func (s *SQLiteStore) PutWindow(ctx context.Context, w model.WorkingWindow) (model.WorkingWindow, error) {
	if err := w.Validate(); err != nil {
		return model.WorkingWindow{}, err
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO working_windows (id, practitioner_id, weekday, start_second, end_second, slot_duration_minutes, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, w.ID, w.PractitionerID, int(w.DayOfWeek), w.StartTime.Seconds(), w.EndTime.Seconds(), w.SlotDurationMinutes, w.Active)
	if err != nil {
		return model.WorkingWindow{}, err
	}
	return w, nil
}

func (s *SQLiteStore) GetWindows(ctx context.Context, practitionerID string, day time.Weekday) ([]model.WorkingWindow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, practitioner_id, weekday, start_second, end_second, slot_duration_minutes, is_active
		FROM working_windows
		WHERE practitioner_id = ? AND weekday = ?
		ORDER BY start_second, rowid
	`, practitionerID, int(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WorkingWindow
	for rows.Next() {
		var w model.WorkingWindow
		var weekday, start, end int
		if err := rows.Scan(&w.ID, &w.PractitionerID, &weekday, &start, &end, &w.SlotDurationMinutes, &w.Active); err != nil {
			return nil, err
		}
		w.DayOfWeek = time.Weekday(weekday)
		w.StartTime = model.TimeOfDay(start)
		w.EndTime = model.TimeOfDay(end)
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Practitioner(ctx context.Context, id string) (model.Practitioner, error) {
	var p model.Practitioner
	var userID sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT id, name, user_id, is_active FROM practitioners WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &userID, &p.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Practitioner{}, &model.NotFoundError{Kind: "practitioner", ID: id}
	}
	p.UserID = userID.String
	return p, err
}

func (s *SQLiteStore) Subject(ctx context.Context, id string) (model.Subject, error) {
	var sub model.Subject
	err := s.db.QueryRowContext(ctx, `SELECT id, name, owner_id FROM subjects WHERE id = ?`, id).
		Scan(&sub.ID, &sub.Name, &sub.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Subject{}, &model.NotFoundError{Kind: "subject", ID: id}
	}
	return sub, err
}

func (s *SQLiteStore) Service(ctx context.Context, id string) (model.Service, error) {
	var svc model.Service
	err := s.db.QueryRowContext(ctx, `SELECT id, name, duration_minutes FROM services WHERE id = ?`, id).
		Scan(&svc.ID, &svc.Name, &svc.DurationMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Service{}, &model.NotFoundError{Kind: "service", ID: id}
	}
	return svc, err
}

func (s *SQLiteStore) Insert(ctx context.Context, appt model.Appointment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var overlapping int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM appointments
		WHERE practitioner_id = ?
			AND appointment_date = ?
			AND status <> 'cancelled'
			AND start_second < ?
			AND end_second > ?
	`, appt.PractitionerID, appt.Date.String(), appt.EndTime().Seconds(), appt.Time.Seconds()).Scan(&overlapping)
	if err != nil {
		return err
	}
	if overlapping > 0 {
		return model.ErrSlotTaken
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO appointments
			(id, subject_id, practitioner_id, service_id, owner_id, appointment_date, start_second, end_second,
			 duration_minutes, status, reason, cancellation_reason, is_emergency, requested_by, idempotency_key,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, appt.ID, appt.SubjectID, appt.PractitionerID, appt.ServiceID, appt.OwnerID, appt.Date.String(),
		appt.Time.Seconds(), appt.EndTime().Seconds(), appt.DurationMinutes, string(appt.Status), appt.Reason,
		appt.CancellationReason, appt.IsEmergency, appt.RequestedBy, nullIfEmpty(appt.IdempotencyKey),
		formatTimestamp(appt.CreatedAt), formatTimestamp(appt.UpdatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: appointments.requested_by") {
			return model.ErrDuplicateRequest
		}
		return err
	}
	return tx.Commit()
}

const sqliteAppointmentColumns = `
	id, subject_id, practitioner_id, service_id, owner_id, appointment_date, start_second, duration_minutes,
	status, reason, cancellation_reason, is_emergency, requested_by, COALESCE(idempotency_key, ''), created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteAppointment(row rowScanner) (model.Appointment, error) {
	var a model.Appointment
	var date, status, createdAt, updatedAt string
	var start int
	if err := row.Scan(&a.ID, &a.SubjectID, &a.PractitionerID, &a.ServiceID, &a.OwnerID, &date, &start,
		&a.DurationMinutes, &status, &a.Reason, &a.CancellationReason, &a.IsEmergency, &a.RequestedBy,
		&a.IdempotencyKey, &createdAt, &updatedAt); err != nil {
		return model.Appointment{}, err
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return model.Appointment{}, err
	}
	a.Date = d
	a.Time = model.TimeOfDay(start)
	a.Status = model.Status(status)
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return a, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := scanSQLiteAppointment(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteAppointmentColumns+` FROM appointments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Appointment{}, &model.NotFoundError{Kind: "appointment", ID: id}
	}
	return appt, err
}

func (s *SQLiteStore) FindByIdempotencyKey(ctx context.Context, requestedBy, key string) (model.Appointment, bool, error) {
	if key == "" {
		return model.Appointment{}, false, nil
	}
	appt, err := scanSQLiteAppointment(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteAppointmentColumns+` FROM appointments WHERE requested_by = ? AND idempotency_key = ?`, requestedBy, key))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Appointment{}, false, nil
	}
	if err != nil {
		return model.Appointment{}, false, err
	}
	return appt, true, nil
}

func (s *SQLiteStore) Transition(ctx context.Context, next model.Appointment, from model.Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE appointments
		SET status = ?, cancellation_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(next.Status), next.CancellationReason, formatTimestamp(next.UpdatedAt), next.ID, string(from))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.Get(ctx, next.ID); err != nil {
			return err
		}
		return model.ErrStaleStatus
	}
	return nil
}

func (s *SQLiteStore) ListByPractitionerDate(ctx context.Context, practitionerID string, date model.Date) ([]model.Appointment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteAppointmentColumns+`
		FROM appointments
		WHERE practitioner_id = ? AND appointment_date = ? AND status <> 'cancelled'
		ORDER BY start_second, id
	`, practitionerID, date.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Appointment{}
	for rows.Next() {
		appt, err := scanSQLiteAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
