package grpcserver

import (
	"context"
	"errors"
	"strings"

	"github.com/md-rashed-zaman/vetclinic/libs/auth"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/lifecycle"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const ServiceName = "vetclinic.scheduling.v1.Scheduling"

type GetAvailabilityRequest struct {
	PractitionerID string `json:"practitioner_id"`
	Date           string `json:"date"`
}

type RequestAppointmentRequest struct {
	SubjectID      string `json:"subject_id"`
	PractitionerID string `json:"practitioner_id"`
	ServiceID      string `json:"service_id"`
	Date           string `json:"date"`
	Time           any    `json:"time"`
	Reason         string `json:"reason"`
	IsEmergency    bool   `json:"is_emergency"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type TransitionAppointmentRequest struct {
	AppointmentID      string `json:"appointment_id"`
	Event              string `json:"event"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
}

type Resolver interface {
	Resolve(ctx context.Context, practitionerID string, date model.Date) (model.Availability, error)
}

type Lifecycle interface {
	Request(ctx context.Context, actor model.Actor, in lifecycle.RequestInput) (model.Appointment, error)
	Transition(ctx context.Context, actor model.Actor, appointmentID string, ev model.Event, cancellationReason string) (model.Appointment, error)
}

// SchedulingServer is the handler type of the hand-declared service descriptor.
type SchedulingServer interface {
	GetAvailability(ctx context.Context, req *GetAvailabilityRequest) (*model.Availability, error)
	RequestAppointment(ctx context.Context, req *RequestAppointmentRequest) (*model.Appointment, error)
	TransitionAppointment(ctx context.Context, req *TransitionAppointmentRequest) (*model.Appointment, error)
}

type server struct {
	resolver  Resolver
	lifecycle Lifecycle
	verifier  *auth.Verifier
}

// Register installs the scheduling service and the standard health service on srv.
func Register(srv *grpc.Server, resolver Resolver, lc Lifecycle, verifier *auth.Verifier) *health.Server {
	srv.RegisterService(&serviceDesc, &server{resolver: resolver, lifecycle: lc, verifier: verifier})
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return hs
}

func (s *server) GetAvailability(ctx context.Context, req *GetAvailabilityRequest) (*model.Availability, error) {
	if _, err := s.actor(ctx); err != nil {
		return nil, err
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return nil, toStatus(model.Invalid("date", "%v", err))
	}
	av, err := s.resolver.Resolve(ctx, req.PractitionerID, date)
	if err != nil {
		return nil, toStatus(err)
	}
	return &av, nil
}

func (s *server) RequestAppointment(ctx context.Context, req *RequestAppointmentRequest) (*model.Appointment, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return nil, toStatus(model.Invalid("date", "%v", err))
	}
	at, err := model.TimeOfDayFromValue(req.Time)
	if err != nil {
		return nil, toStatus(model.Invalid("time", "%v", err))
	}
	appt, err := s.lifecycle.Request(ctx, actor, lifecycle.RequestInput{
		SubjectID:      req.SubjectID,
		PractitionerID: req.PractitionerID,
		ServiceID:      req.ServiceID,
		Date:           date,
		Time:           at,
		Reason:         req.Reason,
		IsEmergency:    req.IsEmergency,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &appt, nil
}

func (s *server) TransitionAppointment(ctx context.Context, req *TransitionAppointmentRequest) (*model.Appointment, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	ev, err := model.ParseEvent(req.Event)
	if err != nil {
		return nil, toStatus(err)
	}
	appt, err := s.lifecycle.Transition(ctx, actor, req.AppointmentID, ev, req.CancellationReason)
	if err != nil {
		return nil, toStatus(err)
	}
	return &appt, nil
}

// actor reads the caller from the authorization metadata, or from the x-user-id / x-role /
// x-practitioner-id pairs when no verifier is configured.
func (s *server) actor(ctx context.Context) (model.Actor, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	first := func(key string) string {
		if vals := md.Get(key); len(vals) > 0 {
			return strings.TrimSpace(vals[0])
		}
		return ""
	}
	unauthenticated := status.Error(codes.Unauthenticated, "missing or invalid credentials")

	if s.verifier != nil {
		token, ok := auth.BearerToken(first("authorization"))
		if !ok {
			return model.Actor{}, unauthenticated
		}
		claims, err := s.verifier.Verify(ctx, token)
		if err != nil {
			return model.Actor{}, unauthenticated
		}
		actor, ok := model.NewActor(claims.Subject, claims.Role, claims.PractitionerID)
		if !ok {
			return model.Actor{}, unauthenticated
		}
		return actor, nil
	}

	actor, ok := model.NewActor(first("x-user-id"), first("x-role"), first("x-practitioner-id"))
	if !ok {
		return model.Actor{}, unauthenticated
	}
	return actor, nil
}

func toStatus(err error) error {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Error())
	case model.IsConflict(err):
		return status.Error(codes.Aborted, err.Error())
	case model.IsAuthorization(err):
		return status.Error(codes.PermissionDenied, err.Error())
	case model.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// FromStatus converts a status returned by this service back into a domain error.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return &model.ValidationError{Message: st.Message()}
	case codes.Aborted:
		return &model.ConflictError{Message: st.Message()}
	case codes.PermissionDenied:
		return &model.AuthorizationError{Action: "call", Reason: st.Message()}
	case codes.NotFound:
		return &model.NotFoundError{Kind: "resource", ID: st.Message()}
	default:
		return err
	}
}

func getAvailabilityHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetAvailabilityRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SchedulingServer).GetAvailability(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetAvailability"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(SchedulingServer).GetAvailability(ctx, req.(*GetAvailabilityRequest))
	})
}

func requestAppointmentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RequestAppointmentRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SchedulingServer).RequestAppointment(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/RequestAppointment"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(SchedulingServer).RequestAppointment(ctx, req.(*RequestAppointmentRequest))
	})
}

func transitionAppointmentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(TransitionAppointmentRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SchedulingServer).TransitionAppointment(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/TransitionAppointment"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(SchedulingServer).TransitionAppointment(ctx, req.(*TransitionAppointmentRequest))
	})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SchedulingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAvailability", Handler: getAvailabilityHandler},
		{MethodName: "RequestAppointment", Handler: requestAppointmentHandler},
		{MethodName: "TransitionAppointment", Handler: transitionAppointmentHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vetclinic/scheduling/v1/scheduling.json",
}
