package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/vetclinic/libs/auth"
	"github.com/md-rashed-zaman/vetclinic/libs/httpx"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/lifecycle"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/storage"
)

var clinic = time.FixedZone("BRT", -3*3600)

func newServer(t *testing.T, authn Authenticator) http.Handler {
	t.Helper()
	store := storage.NewMemoryStore()
	store.PutPractitioner(model.Practitioner{ID: "vet-1", Name: "Dr. Silva", Active: true})
	store.PutSubject(model.Subject{ID: "rex", Name: "Rex", OwnerID: "owner-1"})
	store.PutService(model.Service{ID: "consult", Name: "Consultation", DurationMinutes: 30})
	_, err := store.PutWindow(model.WorkingWindow{
		PractitionerID: "vet-1", DayOfWeek: time.Monday,
		StartTime: model.Clock(8, 0), EndTime: model.Clock(12, 0), SlotDurationMinutes: 30, Active: true,
	})
	require.NoError(t, err)

	now := func() time.Time { return time.Date(2026, 2, 27, 10, 0, 0, 0, clinic) }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := availability.NewResolver(store, store, store, availability.Options{Location: clinic, Now: now})
	svc := lifecycle.NewService(store, store, store, nil, lifecycle.Config{Location: clinic, Now: now, Logger: logger})

	mux := http.NewServeMux()
	NewSchedulingHandler(resolver, svc, authn, logger).Register(mux)
	return httpx.Chain(mux, httpx.WithRequestID)
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func as(userID string, role model.Role, practitionerID string) map[string]string {
	return map[string]string{HeaderUserID: userID, HeaderRole: string(role), HeaderPractitionerID: practitionerID}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

const bookBody = `{"subject_id":"rex","practitioner_id":"vet-1","service_id":"consult","date":"2026-03-02","time":{"hour":9,"minute":0},"reason":"limping since Sunday"}`

func TestAvailabilityEndpoint(t *testing.T) {
	h := newServer(t, Authenticator{})
	owner := as("owner-1", model.RoleOwner, "")

	rec := do(t, h, http.MethodGet, "/api/v1/practitioners/vet-1/availability?date=2026-03-02", "", owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	av := decode[model.Availability](t, rec)
	assert.True(t, av.HasSchedule)
	assert.Len(t, av.Slots, 8)
	assert.Contains(t, rec.Body.String(), `"time":"08:00:00"`)

	rec = do(t, h, http.MethodGet, "/api/v1/practitioners/vet-1/availability?date=03/02/2026", "", owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decode[httpx.ErrorBody](t, rec)
	assert.Equal(t, "validation", errBody.Kind)
	assert.Equal(t, "date", errBody.Field)
	assert.NotEmpty(t, errBody.RequestID)

	rec = do(t, h, http.MethodGet, "/api/v1/practitioners/vet-9/availability?date=2026-03-02", "", owner)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/practitioners/vet-1/availability?date=2026-03-02", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestAndTransitionEndpoints(t *testing.T) {
	h := newServer(t, Authenticator{})
	owner := as("owner-1", model.RoleOwner, "")
	vet := as("u-vet", model.RoleVeterinarian, "vet-1")

	rec := do(t, h, http.MethodPost, "/api/v1/appointments", bookBody, owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[appointmentResponse](t, rec)
	assert.Equal(t, model.StatusRequested, created.Status)
	assert.Equal(t, model.Clock(9, 0), created.Time)
	assert.Equal(t, []model.Event{model.EventCancel}, created.AllowedEvents)

	rec = do(t, h, http.MethodPost, "/api/v1/appointments", bookBody, as("desk", model.RoleReceptionist, ""))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decode[httpx.ErrorBody](t, rec).Kind)

	path := "/api/v1/appointments/" + created.ID + "/transitions"
	rec = do(t, h, http.MethodPost, path, `{"event":"Confirm"}`, owner)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPost, path, `{"event":"confirm"}`, vet)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.StatusConfirmed, decode[appointmentResponse](t, rec).Status)

	rec = do(t, h, http.MethodPost, path, `{"event":"teleport"}`, vet)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/appointments/"+created.ID, "", owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusConfirmed, decode[appointmentResponse](t, rec).Status)

	rec = do(t, h, http.MethodGet, "/api/v1/practitioners/vet-1/appointments?date=2026-03-02", "", vet)
	require.Equal(t, http.StatusOK, rec.Code)
	sheet := decode[daySheetResponse](t, rec)
	assert.Len(t, sheet.Appointments, 1)
}

func TestRequestValidation(t *testing.T) {
	h := newServer(t, Authenticator{})
	owner := as("owner-1", model.RoleOwner, "")

	rec := do(t, h, http.MethodPost, "/api/v1/appointments", `{"subject_id":"rex"}`, owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "practitioner_id", decode[httpx.ErrorBody](t, rec).Field)

	short := strings.Replace(bookBody, "limping since Sunday", "hi", 1)
	rec = do(t, h, http.MethodPost, "/api/v1/appointments", short, owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[httpx.ErrorBody](t, rec)
	assert.Equal(t, "reason", body.Field)
	assert.Contains(t, body.Error, "5")

	rec = do(t, h, http.MethodPost, "/api/v1/appointments", `{"nope":1}`, owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdempotencyKeyReplays(t *testing.T) {
	h := newServer(t, Authenticator{})
	headers := as("owner-1", model.RoleOwner, "")
	headers["Idempotency-Key"] = "abc"

	first := do(t, h, http.MethodPost, "/api/v1/appointments", bookBody, headers)
	require.Equal(t, http.StatusCreated, first.Code)
	second := do(t, h, http.MethodPost, "/api/v1/appointments", bookBody, headers)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, decode[appointmentResponse](t, first).ID, decode[appointmentResponse](t, second).ID)
}

func TestBearerTokenAuthentication(t *testing.T) {
	h := newServer(t, Authenticator{Verifier: &auth.Verifier{Secret: "s3cret"}})

	token, err := auth.SignHS256(auth.NewClaims("u-vet", "veterinarian", "vet-1", time.Hour), "s3cret")
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/api/v1/practitioners/vet-1/appointments?date=2026-03-02", "",
		map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Gateway headers are ignored once tokens are verified.
	rec = do(t, h, http.MethodGet, "/api/v1/practitioners/vet-1/appointments?date=2026-03-02", "",
		as("u-vet", model.RoleVeterinarian, "vet-1"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
