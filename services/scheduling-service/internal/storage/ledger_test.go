package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

type ledger interface {
	Insert(ctx context.Context, appt model.Appointment) error
	Get(ctx context.Context, id string) (model.Appointment, error)
	FindByIdempotencyKey(ctx context.Context, requestedBy, key string) (model.Appointment, bool, error)
	Transition(ctx context.Context, next model.Appointment, from model.Status) error
	ListByPractitionerDate(ctx context.Context, practitionerID string, date model.Date) ([]model.Appointment, error)
}

var monday = model.Date{Year: 2026, Month: time.March, Day: 2}

func newAppointment(practitioner string, at model.TimeOfDay, minutes int) model.Appointment {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return model.Appointment{
		ID:              uuid.NewString(),
		SubjectID:       "rex",
		PractitionerID:  practitioner,
		ServiceID:       "consult",
		OwnerID:         "owner-1",
		Date:            monday,
		Time:            at,
		DurationMinutes: minutes,
		Status:          model.StatusRequested,
		Reason:          "limping on the left leg",
		RequestedBy:     "owner-1",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func backends(t *testing.T) map[string]ledger {
	t.Helper()
	sqlite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	require.NoError(t, sqlite.PutPractitioner(context.Background(), model.Practitioner{ID: "vet-1", Name: "Dr. Silva", Active: true}))

	mem := NewMemoryStore()
	mem.PutPractitioner(model.Practitioner{ID: "vet-1", Name: "Dr. Silva", Active: true})

	return map[string]ledger{"memory": mem, "sqlite": sqlite}
}

func TestLedger_RejectsOverlap(t *testing.T) {
	ctx := context.Background()
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, l.Insert(ctx, newAppointment("vet-1", model.Clock(9, 0), 30)))

			err := l.Insert(ctx, newAppointment("vet-1", model.Clock(9, 15), 30))
			assert.ErrorIs(t, err, model.ErrSlotTaken)

			// Touching intervals do not overlap.
			assert.NoError(t, l.Insert(ctx, newAppointment("vet-1", model.Clock(9, 30), 30)))
			assert.NoError(t, l.Insert(ctx, newAppointment("vet-1", model.Clock(8, 30), 30)))
		})
	}
}

func TestLedger_CancelledFreesSlot(t *testing.T) {
	ctx := context.Background()
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first := newAppointment("vet-1", model.Clock(10, 0), 30)
			require.NoError(t, l.Insert(ctx, first))

			cancelled := first
			cancelled.Status = model.StatusCancelled
			cancelled.CancellationReason = "owner travelling"
			require.NoError(t, l.Transition(ctx, cancelled, model.StatusRequested))

			assert.NoError(t, l.Insert(ctx, newAppointment("vet-1", model.Clock(10, 0), 30)))

			listed, err := l.ListByPractitionerDate(ctx, "vet-1", monday)
			require.NoError(t, err)
			require.Len(t, listed, 1)
			assert.Equal(t, model.StatusRequested, listed[0].Status)
		})
	}
}

func TestLedger_ConcurrentInsertsOneWinner(t *testing.T) {
	ctx := context.Background()
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			const n = 8
			var wg sync.WaitGroup
			errs := make([]error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs[i] = l.Insert(ctx, newAppointment("vet-1", model.Clock(11, 0), 30))
				}(i)
			}
			wg.Wait()

			won, taken := 0, 0
			for _, err := range errs {
				switch {
				case err == nil:
					won++
				case errors.Is(err, model.ErrSlotTaken):
					taken++
				default:
					t.Fatalf("unexpected error: %v", err)
				}
			}
			assert.Equal(t, 1, won)
			assert.Equal(t, n-1, taken)
		})
	}
}

func TestLedger_TransitionIsConditional(t *testing.T) {
	ctx := context.Background()
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			appt := newAppointment("vet-1", model.Clock(14, 0), 30)
			require.NoError(t, l.Insert(ctx, appt))

			confirmed := appt
			confirmed.Status = model.StatusConfirmed
			require.NoError(t, l.Transition(ctx, confirmed, model.StatusRequested))

			// A second writer still holding the old status loses.
			err := l.Transition(ctx, confirmed, model.StatusRequested)
			assert.ErrorIs(t, err, model.ErrStaleStatus)

			got, err := l.Get(ctx, appt.ID)
			require.NoError(t, err)
			assert.Equal(t, model.StatusConfirmed, got.Status)
			assert.Equal(t, model.Clock(14, 0), got.Time)
			assert.Equal(t, monday, got.Date)

			missing := appt
			missing.ID = uuid.NewString()
			err = l.Transition(ctx, missing, model.StatusRequested)
			assert.True(t, model.IsNotFound(err), "got %v", err)
		})
	}
}

func TestLedger_IdempotencyKey(t *testing.T) {
	ctx := context.Background()
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			appt := newAppointment("vet-1", model.Clock(15, 0), 30)
			appt.IdempotencyKey = "req-42"
			require.NoError(t, l.Insert(ctx, appt))

			found, ok, err := l.FindByIdempotencyKey(ctx, "owner-1", "req-42")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, appt.ID, found.ID)

			_, ok, err = l.FindByIdempotencyKey(ctx, "someone-else", "req-42")
			require.NoError(t, err)
			assert.False(t, ok)

			retry := newAppointment("vet-1", model.Clock(16, 0), 30)
			retry.IdempotencyKey = "req-42"
			assert.ErrorIs(t, l.Insert(ctx, retry), model.ErrDuplicateRequest)
		})
	}
}

func TestLedger_GetMissing(t *testing.T) {
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := l.Get(context.Background(), "nope")
			var nf *model.NotFoundError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, "appointment", nf.Kind)
		})
	}
}

func TestSchedules_GetWindows(t *testing.T) {
	ctx := context.Background()
	sqlite, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "schedule.db"))
	require.NoError(t, err)
	defer sqlite.Close()
	require.NoError(t, sqlite.PutPractitioner(ctx, model.Practitioner{ID: "vet-1", Name: "Dr. Silva", Active: true}))

	mem := NewMemoryStore()
	for _, w := range []model.WorkingWindow{
		{PractitionerID: "vet-1", DayOfWeek: time.Monday, StartTime: model.Clock(14, 0), EndTime: model.Clock(18, 0), SlotDurationMinutes: 30, Active: true},
		{PractitionerID: "vet-1", DayOfWeek: time.Monday, StartTime: model.Clock(8, 0), EndTime: model.Clock(12, 0), SlotDurationMinutes: 30, Active: true},
		{PractitionerID: "vet-1", DayOfWeek: time.Tuesday, StartTime: model.Clock(8, 0), EndTime: model.Clock(12, 0), SlotDurationMinutes: 30, Active: true},
	} {
		_, err := mem.PutWindow(w)
		require.NoError(t, err)
		_, err = sqlite.PutWindow(ctx, w)
		require.NoError(t, err)
	}

	for name, store := range map[string]interface {
		GetWindows(context.Context, string, time.Weekday) ([]model.WorkingWindow, error)
	}{"memory": mem, "sqlite": sqlite} {
		t.Run(name, func(t *testing.T) {
			windows, err := store.GetWindows(ctx, "vet-1", time.Monday)
			require.NoError(t, err)
			require.Len(t, windows, 2)
			assert.Equal(t, model.Clock(8, 0), windows[0].StartTime)
			assert.Equal(t, model.Clock(14, 0), windows[1].StartTime)
			assert.NotEmpty(t, windows[0].ID)
		})
	}
}

func TestMemoryStore_PutWindowRejectsInvalid(t *testing.T) {
	_, err := NewMemoryStore().PutWindow(model.WorkingWindow{
		PractitionerID: "vet-1", DayOfWeek: time.Monday,
		StartTime: model.Clock(12, 0), EndTime: model.Clock(8, 0), SlotDurationMinutes: 30,
	})
	assert.True(t, model.IsValidation(err))
}
