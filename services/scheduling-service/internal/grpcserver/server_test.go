package grpcserver

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/md-rashed-zaman/vetclinic/libs/auth"
	"github.com/md-rashed-zaman/vetclinic/libs/grpcx"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/lifecycle"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/storage"
)

func startServer(t *testing.T) *grpc.ClientConn {
	t.Helper()
	return startServerWith(t, nil)
}

func startServerWith(t *testing.T, verifier *auth.Verifier) *grpc.ClientConn {
	t.Helper()
	clinic := time.FixedZone("BRT", -3*3600)
	now := func() time.Time { return time.Date(2026, 2, 27, 10, 0, 0, 0, clinic) }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := storage.NewMemoryStore()
	store.PutPractitioner(model.Practitioner{ID: "vet-1", Name: "Dr. Silva", Active: true})
	store.PutSubject(model.Subject{ID: "rex", Name: "Rex", OwnerID: "owner-1"})
	store.PutService(model.Service{ID: "consult", Name: "Consultation"})
	_, err := store.PutWindow(model.WorkingWindow{
		PractitionerID: "vet-1", DayOfWeek: time.Monday,
		StartTime: model.Clock(8, 0), EndTime: model.Clock(12, 0), SlotDurationMinutes: 30, Active: true,
	})
	require.NoError(t, err)

	resolver := availability.NewResolver(store, store, store, availability.Options{Location: clinic, Now: now})
	svc := lifecycle.NewService(store, store, store, nil, lifecycle.Config{Location: clinic, Now: now, Logger: logger})

	lis := bufconn.Listen(1 << 20)
	srv := grpcx.NewServer(logger)
	Register(srv, resolver, svc, verifier)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpcx.Dial(context.Background(), "passthrough:///bufnet", grpcx.DialOptions{},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func withActor(userID string, role model.Role, practitionerID string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(),
		"x-user-id", userID, "x-role", string(role), "x-practitioner-id", practitionerID)
}

func TestSchedulingOverGRPC(t *testing.T) {
	client := NewClient(startServer(t))
	owner := withActor("owner-1", model.RoleOwner, "")

	av, err := client.GetAvailability(owner, &GetAvailabilityRequest{PractitionerID: "vet-1", Date: "2026-03-02"})
	require.NoError(t, err)
	assert.Len(t, av.Slots, 8)

	appt, err := client.RequestAppointment(owner, &RequestAppointmentRequest{
		SubjectID: "rex", PractitionerID: "vet-1", ServiceID: "consult",
		Date: "2026-03-02", Time: "09:00", Reason: "skin rash on the belly",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusRequested, appt.Status)

	_, err = client.RequestAppointment(withActor("desk", model.RoleReceptionist, ""), &RequestAppointmentRequest{
		SubjectID: "rex", PractitionerID: "vet-1", ServiceID: "consult",
		Date: "2026-03-02", Time: map[string]any{"hour": 9, "minute": 15}, Reason: "follow-up visit",
	})
	assert.True(t, model.IsValidation(err), "got %v", err)

	_, err = client.RequestAppointment(withActor("desk", model.RoleReceptionist, ""), &RequestAppointmentRequest{
		SubjectID: "rex", PractitionerID: "vet-1", ServiceID: "consult",
		Date: "2026-03-02", Time: "09:00:00", Reason: "follow-up visit",
	})
	assert.True(t, model.IsConflict(err), "got %v", err)

	_, err = client.TransitionAppointment(owner, &TransitionAppointmentRequest{AppointmentID: appt.ID, Event: "confirm"})
	assert.True(t, model.IsAuthorization(err), "got %v", err)

	confirmed, err := client.TransitionAppointment(withActor("u-vet", model.RoleVeterinarian, "vet-1"),
		&TransitionAppointmentRequest{AppointmentID: appt.ID, Event: "Confirm"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, confirmed.Status)

	_, err = client.GetAvailability(owner, &GetAvailabilityRequest{PractitionerID: "vet-404", Date: "2026-03-02"})
	assert.True(t, model.IsNotFound(err), "got %v", err)
}

func TestUnauthenticatedCallRejected(t *testing.T) {
	client := NewClient(startServer(t))
	_, err := client.GetAvailability(context.Background(), &GetAvailabilityRequest{PractitionerID: "vet-1", Date: "2026-03-02"})
	require.Error(t, err)
	assert.Empty(t, model.ErrorKind(err))
}

func TestTokenRoleMustBeKnown(t *testing.T) {
	client := NewClient(startServerWith(t, &auth.Verifier{Secret: "s3cret"}))
	call := func(role string) error {
		token, err := auth.SignHS256(auth.NewClaims("u-1", role, "", time.Hour), "s3cret")
		require.NoError(t, err)
		ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
		_, err = client.GetAvailability(ctx, &GetAvailabilityRequest{PractitionerID: "vet-1", Date: "2026-03-02"})
		return err
	}

	assert.NoError(t, call("Receptionist"))
	err := call("superuser")
	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestHealthService(t *testing.T) {
	resp, err := healthpb.NewHealthClient(startServer(t)).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
