package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/handlers"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/lifecycle"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/storage"
)

var clinic = time.FixedZone("BRT", -3*3600)

func startServer(t *testing.T) (*httptest.Server, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	store.PutPractitioner(model.Practitioner{ID: "vet-1", Name: "Dr. Silva", Active: true})
	store.PutSubject(model.Subject{ID: "rex", Name: "Rex", OwnerID: "owner-1"})
	store.PutService(model.Service{ID: "consult", Name: "Consultation", DurationMinutes: 30})
	_, err := store.PutWindow(model.WorkingWindow{
		PractitionerID: "vet-1", DayOfWeek: time.Monday,
		StartTime: model.Clock(9, 0), EndTime: model.Clock(11, 0), SlotDurationMinutes: 30, Active: true,
	})
	require.NoError(t, err)

	now := func() time.Time { return time.Date(2026, 2, 27, 10, 0, 0, 0, clinic) }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := availability.NewResolver(store, store, store, availability.Options{Location: clinic, Now: now})
	svc := lifecycle.NewService(store, store, store, nil, lifecycle.Config{Location: clinic, Now: now, Logger: logger})

	mux := http.NewServeMux()
	handlers.NewSchedulingHandler(resolver, svc, handlers.Authenticator{}, logger).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--server", srv.URL}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBookThenConfirm(t *testing.T) {
	srv, store := startServer(t)

	out, err := run(t, srv, "book", "--user", "owner-1", "--role", "owner",
		"--subject", "rex", "--service", "consult", "--practitioner", "vet-1",
		"--date", "2026-03-02", "--time", "09:30", "--reason", "limping since Sunday")
	require.NoError(t, err)
	assert.Contains(t, out, "Booked")
	assert.Contains(t, out, "09:30:00")

	appts, err := store.ListByPractitionerDate(context.Background(), "vet-1", model.Date{Year: 2026, Month: 3, Day: 2})
	require.NoError(t, err)
	require.Len(t, appts, 1)

	out, err = run(t, srv, "transition", appts[0].ID, "confirm", "--user", "u-vet", "--role", "veterinarian", "--practitioner-id", "vet-1")
	require.NoError(t, err)
	assert.Contains(t, out, "confirmed")
	assert.Contains(t, out, "start_attendance")
}

func TestBookWithoutTimeListsSlots(t *testing.T) {
	srv, _ := startServer(t)

	out, err := run(t, srv, "book", "--user", "u-rec", "--role", "receptionist",
		"--subject", "rex", "--service", "consult", "--practitioner", "vet-1", "--date", "2026-03-02")
	require.NoError(t, err)
	assert.Contains(t, out, "09:00:00")
	assert.Contains(t, out, "10:30:00")
	assert.NotContains(t, out, "Booked")
}

func TestBookTakenSlotFailsBeforeSubmit(t *testing.T) {
	srv, _ := startServer(t)
	args := []string{"book", "--user", "u-rec", "--role", "receptionist",
		"--subject", "rex", "--service", "consult", "--practitioner", "vet-1",
		"--date", "2026-03-02", "--time", "10:00", "--reason", "vaccination booster"}

	_, err := run(t, srv, args...)
	require.NoError(t, err)

	_, err = run(t, srv, args...)
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
}

func TestAvailabilityAndGet(t *testing.T) {
	srv, store := startServer(t)
	_, err := run(t, srv, "book", "--user", "u-rec", "--role", "receptionist",
		"--subject", "rex", "--service", "consult", "--practitioner", "vet-1",
		"--date", "2026-03-02", "--time", "09:00", "--reason", "skin rash check")
	require.NoError(t, err)

	out, err := run(t, srv, "availability", "vet-1", "--date", "2026-03-02", "--user", "u-rec", "--role", "receptionist")
	require.NoError(t, err)
	assert.Contains(t, out, "occupied")
	assert.Contains(t, out, "Rex")

	appts, err := store.ListByPractitionerDate(context.Background(), "vet-1", model.Date{Year: 2026, Month: 3, Day: 2})
	require.NoError(t, err)
	require.Len(t, appts, 1)

	out, err = run(t, srv, "get", appts[0].ID, "--user", "u-rec", "--role", "receptionist")
	require.NoError(t, err)
	assert.Contains(t, out, appts[0].ID)
	assert.Contains(t, out, "requested")
}

func TestMissingIdentity(t *testing.T) {
	srv, _ := startServer(t)
	_, err := run(t, srv, "get", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--token")
}
