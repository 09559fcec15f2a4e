package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/vetclinic/libs/db"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

// ScheduleRepository reads the working windows maintained by clinic staff tooling.
type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

func (r *ScheduleRepository) GetWindows(ctx context.Context, practitionerID string, day time.Weekday) ([]model.WorkingWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, practitioner_id, weekday, start_second, end_second, slot_duration_minutes, is_active
		FROM working_windows
		WHERE practitioner_id = $1 AND weekday = $2
		ORDER BY start_second ASC, id ASC
	`, practitionerID, int(day))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.WorkingWindow, error) {
		var w model.WorkingWindow
		var weekday int16
		var start, end int
		err := row.Scan(&w.ID, &w.PractitionerID, &weekday, &start, &end, &w.SlotDurationMinutes, &w.Active)
		w.DayOfWeek = time.Weekday(weekday)
		w.StartTime = model.TimeOfDay(start)
		w.EndTime = model.TimeOfDay(end)
		return w, err
	})
}

// UpsertWindow backs fixture seeding. Request handling never writes windows.
func (r *ScheduleRepository) UpsertWindow(ctx context.Context, w model.WorkingWindow) (model.WorkingWindow, error) {
	if err := w.Validate(); err != nil {
		return model.WorkingWindow{}, err
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO working_windows (id, practitioner_id, weekday, start_second, end_second, slot_duration_minutes, is_active)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET weekday = EXCLUDED.weekday,
			start_second = EXCLUDED.start_second,
			end_second = EXCLUDED.end_second,
			slot_duration_minutes = EXCLUDED.slot_duration_minutes,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING id::text
	`, w.ID, w.PractitionerID, int(w.DayOfWeek), w.StartTime.Seconds(), w.EndTime.Seconds(), w.SlotDurationMinutes, w.Active).Scan(&w.ID)
	return w, err
}

func (r *ScheduleRepository) CountWindows(ctx context.Context, practitionerID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM working_windows WHERE practitioner_id = $1`, practitionerID).Scan(&n)
	return n, err
}
