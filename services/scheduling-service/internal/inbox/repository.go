package inbox

import (
	"context"

	"github.com/md-rashed-zaman/vetclinic/libs/db"
)

// Repository records consumed event ids so redelivered events are processed once.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Seen reports whether the event was already recorded.
func (r *Repository) Seen(ctx context.Context, eventID string) (bool, error) {
	var seen bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM inbox_events WHERE event_id = $1)`, eventID).Scan(&seen)
	return seen, err
}

// Record reports false when the event was already recorded.
func (r *Repository) Record(ctx context.Context, eventID, eventType string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, eventType)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
