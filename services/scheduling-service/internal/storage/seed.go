package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

// Fixture is reference data loaded into the configured backend at startup.
type Fixture struct {
	Practitioners []model.Practitioner  `json:"practitioners"`
	Subjects      []model.Subject       `json:"subjects"`
	Services      []model.Service       `json:"services"`
	Windows       []model.WorkingWindow `json:"windows"`
}

func LoadFixture(path string) (Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, err
	}
	var f Fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return f, nil
}

func (f Fixture) ApplyMemory(s *MemoryStore) error {
	for _, p := range f.Practitioners {
		s.PutPractitioner(p)
	}
	for _, sub := range f.Subjects {
		s.PutSubject(sub)
	}
	for _, svc := range f.Services {
		s.PutService(svc)
	}
	for _, w := range f.Windows {
		if _, err := s.PutWindow(w); err != nil {
			return fmt.Errorf("window for %s: %w", w.PractitionerID, err)
		}
	}
	return nil
}

// seedTarget is a durable backend that reference data can be upserted into.
type seedTarget interface {
	PutPractitioner(ctx context.Context, p model.Practitioner) error
	PutSubject(ctx context.Context, sub model.Subject) error
	PutService(ctx context.Context, svc model.Service) error
	CountWindows(ctx context.Context, practitionerID string) (int, error)
	PutWindow(ctx context.Context, w model.WorkingWindow) (model.WorkingWindow, error)
}

// ApplySQLite upserts directory rows. Windows are inserted only when the practitioner has
// none yet, so restarting against the same file does not duplicate them.
func (f Fixture) ApplySQLite(ctx context.Context, s *SQLiteStore) error {
	return f.apply(ctx, s)
}

// ApplyPostgres seeds the Postgres directory and schedule tables with the same rules as
// ApplySQLite. Window ids that are not UUIDs are replaced by generated ones.
func (f Fixture) ApplyPostgres(ctx context.Context, dir *DirectoryRepository, schedules *ScheduleRepository) error {
	return f.apply(ctx, postgresSeed{dir: dir, schedules: schedules})
}

func (f Fixture) apply(ctx context.Context, t seedTarget) error {
	for _, p := range f.Practitioners {
		if err := t.PutPractitioner(ctx, p); err != nil {
			return fmt.Errorf("practitioner %s: %w", p.ID, err)
		}
	}
	for _, sub := range f.Subjects {
		if err := t.PutSubject(ctx, sub); err != nil {
			return fmt.Errorf("subject %s: %w", sub.ID, err)
		}
	}
	for _, svc := range f.Services {
		if err := t.PutService(ctx, svc); err != nil {
			return fmt.Errorf("service %s: %w", svc.ID, err)
		}
	}
	seeded := map[string]bool{}
	for _, w := range f.Windows {
		has, ok := seeded[w.PractitionerID]
		if !ok {
			n, err := t.CountWindows(ctx, w.PractitionerID)
			if err != nil {
				return err
			}
			has = n > 0
			seeded[w.PractitionerID] = has
		}
		if has {
			continue
		}
		if _, err := t.PutWindow(ctx, w); err != nil {
			return fmt.Errorf("window for %s: %w", w.PractitionerID, err)
		}
	}
	return nil
}

type postgresSeed struct {
	dir       *DirectoryRepository
	schedules *ScheduleRepository
}

func (p postgresSeed) PutPractitioner(ctx context.Context, v model.Practitioner) error {
	return p.dir.PutPractitioner(ctx, v)
}

func (p postgresSeed) PutSubject(ctx context.Context, v model.Subject) error {
	return p.dir.PutSubject(ctx, v)
}

func (p postgresSeed) PutService(ctx context.Context, v model.Service) error {
	return p.dir.PutService(ctx, v)
}

func (p postgresSeed) CountWindows(ctx context.Context, practitionerID string) (int, error) {
	return p.schedules.CountWindows(ctx, practitionerID)
}

func (p postgresSeed) PutWindow(ctx context.Context, w model.WorkingWindow) (model.WorkingWindow, error) {
	w.ID = postgresWindowID(w.ID)
	return p.schedules.UpsertWindow(ctx, w)
}

// postgresWindowID keeps UUID ids and blanks anything else so the table generates one.
func postgresWindowID(id string) string {
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return id
}

func (s *SQLiteStore) CountWindows(ctx context.Context, practitionerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM working_windows WHERE practitioner_id = ?`, practitionerID).Scan(&n)
	return n, err
}
