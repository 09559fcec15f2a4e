package storage

import (
	"context"

	"github.com/md-rashed-zaman/vetclinic/libs/db"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

// DirectoryRepository resolves practitioners, subjects and services by id.
type DirectoryRepository struct {
	pool *db.Pool
}

func NewDirectoryRepository(pool *db.Pool) *DirectoryRepository {
	return &DirectoryRepository{pool: pool}
}

func (r *DirectoryRepository) Practitioner(ctx context.Context, id string) (model.Practitioner, error) {
	var p model.Practitioner
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(user_id, ''), is_active FROM practitioners WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.UserID, &p.Active)
	if IsNotFound(err) {
		return model.Practitioner{}, &model.NotFoundError{Kind: "practitioner", ID: id}
	}
	return p, err
}

func (r *DirectoryRepository) Subject(ctx context.Context, id string) (model.Subject, error) {
	var s model.Subject
	err := r.pool.QueryRow(ctx, `SELECT id, name, owner_id FROM subjects WHERE id = $1`, id).Scan(&s.ID, &s.Name, &s.OwnerID)
	if IsNotFound(err) {
		return model.Subject{}, &model.NotFoundError{Kind: "subject", ID: id}
	}
	return s, err
}

func (r *DirectoryRepository) Service(ctx context.Context, id string) (model.Service, error) {
	var s model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, duration_minutes FROM clinic_services WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.DurationMinutes)
	if IsNotFound(err) {
		return model.Service{}, &model.NotFoundError{Kind: "service", ID: id}
	}
	return s, err
}

func (r *DirectoryRepository) PutPractitioner(ctx context.Context, p model.Practitioner) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO practitioners (id, name, user_id, is_active)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, user_id = EXCLUDED.user_id, is_active = EXCLUDED.is_active
	`, p.ID, p.Name, p.UserID, p.Active)
	return err
}

func (r *DirectoryRepository) PutSubject(ctx context.Context, s model.Subject) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO subjects (id, name, owner_id) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, owner_id = EXCLUDED.owner_id
	`, s.ID, s.Name, s.OwnerID)
	return err
}

func (r *DirectoryRepository) PutService(ctx context.Context, s model.Service) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO clinic_services (id, name, duration_minutes) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, duration_minutes = EXCLUDED.duration_minutes
	`, s.ID, s.Name, s.DurationMinutes)
	return err
}
