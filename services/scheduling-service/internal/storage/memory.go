package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

// MemoryStore keeps schedules, directory entries and the appointment ledger in process.
// It backs local development and tests. Check-and-write happens under one mutex.
type MemoryStore struct {
	mu            sync.RWMutex
	practitioners map[string]model.Practitioner
	subjects      map[string]model.Subject
	services      map[string]model.Service
	windows       map[string][]model.WorkingWindow
	appointments  map[string]model.Appointment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		practitioners: map[string]model.Practitioner{},
		subjects:      map[string]model.Subject{},
		services:      map[string]model.Service{},
		windows:       map[string][]model.WorkingWindow{},
		appointments:  map[string]model.Appointment{},
	}
}

func (s *MemoryStore) PutPractitioner(p model.Practitioner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.practitioners[p.ID] = p
}

func (s *MemoryStore) PutSubject(sub model.Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[sub.ID] = sub
}

func (s *MemoryStore) PutService(svc model.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[svc.ID] = svc
}

// PutWindow adds a working window, assigning an id when missing.
func (s *MemoryStore) PutWindow(w model.WorkingWindow) (model.WorkingWindow, error) {
	if err := w.Validate(); err != nil {
		return model.WorkingWindow{}, err
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[w.PractitionerID] = append(s.windows[w.PractitionerID], w)
	return w, nil
}

func (s *MemoryStore) GetWindows(_ context.Context, practitionerID string, day time.Weekday) ([]model.WorkingWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.WorkingWindow
	for _, w := range s.windows[practitionerID] {
		if w.DayOfWeek == day {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (s *MemoryStore) Practitioner(_ context.Context, id string) (model.Practitioner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.practitioners[id]
	if !ok {
		return model.Practitioner{}, &model.NotFoundError{Kind: "practitioner", ID: id}
	}
	return p, nil
}

func (s *MemoryStore) Subject(_ context.Context, id string) (model.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subjects[id]
	if !ok {
		return model.Subject{}, &model.NotFoundError{Kind: "subject", ID: id}
	}
	return sub, nil
}

func (s *MemoryStore) Service(_ context.Context, id string) (model.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[id]
	if !ok {
		return model.Service{}, &model.NotFoundError{Kind: "service", ID: id}
	}
	return svc, nil
}

func (s *MemoryStore) Insert(_ context.Context, appt model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.appointments[appt.ID]; exists {
		return fmt.Errorf("appointment %s already exists", appt.ID)
	}
	for _, other := range s.appointments {
		if appt.IdempotencyKey != "" && other.RequestedBy == appt.RequestedBy && other.IdempotencyKey == appt.IdempotencyKey {
			return model.ErrDuplicateRequest
		}
	}
	for _, other := range s.appointments {
		if other.PractitionerID != appt.PractitionerID || other.Date != appt.Date || other.Status == model.StatusCancelled {
			continue
		}
		if other.Overlaps(appt.Time, appt.EndTime()) {
			return model.ErrSlotTaken
		}
	}
	s.appointments[appt.ID] = appt
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appt, ok := s.appointments[id]
	if !ok {
		return model.Appointment{}, &model.NotFoundError{Kind: "appointment", ID: id}
	}
	return appt, nil
}

func (s *MemoryStore) FindByIdempotencyKey(_ context.Context, requestedBy, key string) (model.Appointment, bool, error) {
	if key == "" {
		return model.Appointment{}, false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, appt := range s.appointments {
		if appt.RequestedBy == requestedBy && appt.IdempotencyKey == key {
			return appt, true, nil
		}
	}
	return model.Appointment{}, false, nil
}

func (s *MemoryStore) Transition(_ context.Context, next model.Appointment, from model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.appointments[next.ID]
	if !ok {
		return &model.NotFoundError{Kind: "appointment", ID: next.ID}
	}
	if cur.Status != from {
		return model.ErrStaleStatus
	}
	cur.Status = next.Status
	cur.CancellationReason = next.CancellationReason
	cur.UpdatedAt = next.UpdatedAt
	s.appointments[next.ID] = cur
	return nil
}

func (s *MemoryStore) ListByPractitionerDate(_ context.Context, practitionerID string, date model.Date) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.Appointment{}
	for _, appt := range s.appointments {
		if appt.PractitionerID == practitionerID && appt.Date == date && appt.Status != model.StatusCancelled {
			out = append(out, appt)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
