package grpcserver

import (
	"context"

	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
	"google.golang.org/grpc"
)

// Client calls the scheduling service over gRPC with the JSON codec.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, grpc.CallContentSubtype(CodecName))
	if err != nil {
		return FromStatus(err)
	}
	return nil
}

func (c *Client) GetAvailability(ctx context.Context, req *GetAvailabilityRequest) (*model.Availability, error) {
	out := new(model.Availability)
	if err := c.invoke(ctx, "GetAvailability", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RequestAppointment(ctx context.Context, req *RequestAppointmentRequest) (*model.Appointment, error) {
	out := new(model.Appointment)
	if err := c.invoke(ctx, "RequestAppointment", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) TransitionAppointment(ctx context.Context, req *TransitionAppointmentRequest) (*model.Appointment, error) {
	out := new(model.Appointment)
	if err := c.invoke(ctx, "TransitionAppointment", req, out); err != nil {
		return nil, err
	}
	return out, nil
}
