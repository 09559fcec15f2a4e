// Package client calls the scheduling HTTP API. It satisfies the booking workflow's
// Resolver and Requester so the wizard can run against a remote service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/vetclinic/libs/httpx"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/lifecycle"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

var ErrUnauthenticated = errors.New("missing or invalid credentials")

// APIError is a non-2xx response. It unwraps to the matching model error so callers can
// use model.IsConflict and friends.
type APIError struct {
	Status    int
	Kind      string
	Field     string
	Message   string
	RequestID string
	cause     error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("scheduling api returned %d", e.Status)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.cause }

type Config struct {
	BaseURL string
	// Token is sent as a bearer token. Without it the actor travels in gateway headers.
	Token   string
	Actor   model.Actor
	Timeout time.Duration
}

type Client struct {
	base  string
	token string
	actor model.Actor
	http  *http.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		base:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token: strings.TrimSpace(cfg.Token),
		actor: cfg.Actor,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type AppointmentView struct {
	model.Appointment
	AllowedEvents []model.Event `json:"allowed_events"`
}

type DaySheet struct {
	PractitionerID string              `json:"practitioner_id"`
	Date           model.Date          `json:"date"`
	Appointments   []model.Appointment `json:"appointments"`
}

func (c *Client) Resolve(ctx context.Context, practitionerID string, date model.Date) (model.Availability, error) {
	var av model.Availability
	path := "/api/v1/practitioners/" + url.PathEscape(practitionerID) + "/availability?date=" + date.String()
	err := c.do(ctx, c.actor, http.MethodGet, path, "", nil, &av)
	return av, err
}

func (c *Client) DaySheet(ctx context.Context, practitionerID string, date model.Date) (DaySheet, error) {
	var sheet DaySheet
	path := "/api/v1/practitioners/" + url.PathEscape(practitionerID) + "/appointments?date=" + date.String()
	err := c.do(ctx, c.actor, http.MethodGet, path, "", nil, &sheet)
	return sheet, err
}

func (c *Client) Request(ctx context.Context, actor model.Actor, in lifecycle.RequestInput) (model.Appointment, error) {
	body := map[string]any{
		"subject_id":      in.SubjectID,
		"practitioner_id": in.PractitionerID,
		"service_id":      in.ServiceID,
		"date":            in.Date.String(),
		"time":            in.Time.String(),
		"reason":          in.Reason,
		"is_emergency":    in.IsEmergency,
	}
	var view AppointmentView
	if err := c.do(ctx, actor, http.MethodPost, "/api/v1/appointments", in.IdempotencyKey, body, &view); err != nil {
		return model.Appointment{}, err
	}
	return view.Appointment, nil
}

func (c *Client) Get(ctx context.Context, appointmentID string) (AppointmentView, error) {
	var view AppointmentView
	err := c.do(ctx, c.actor, http.MethodGet, "/api/v1/appointments/"+url.PathEscape(appointmentID), "", nil, &view)
	return view, err
}

func (c *Client) Transition(ctx context.Context, appointmentID string, ev model.Event, cancellationReason string) (AppointmentView, error) {
	body := map[string]string{"event": string(ev)}
	if cancellationReason != "" {
		body["cancellation_reason"] = cancellationReason
	}
	var view AppointmentView
	path := "/api/v1/appointments/" + url.PathEscape(appointmentID) + "/transitions"
	err := c.do(ctx, c.actor, http.MethodPost, path, "", body, &view)
	return view, err
}

func (c *Client) do(ctx context.Context, actor model.Actor, method, path, idempotencyKey string, in, out any) error {
	var reader io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else {
		req.Header.Set("X-User-Id", actor.UserID)
		req.Header.Set("X-Role", string(actor.Role))
		if actor.PractitionerID != "" {
			req.Header.Set("X-Practitioner-Id", actor.PractitionerID)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp, actor)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response, actor model.Actor) error {
	var body httpx.ErrorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(raw, &body)

	apiErr := &APIError{
		Status:    resp.StatusCode,
		Kind:      body.Kind,
		Field:     body.Field,
		Message:   body.Error,
		RequestID: body.RequestID,
	}
	switch body.Kind {
	case "validation":
		apiErr.cause = &model.ValidationError{Field: body.Field, Message: strings.TrimPrefix(body.Error, body.Field+": ")}
	case "conflict":
		apiErr.cause = &model.ConflictError{Message: body.Error}
	case "authorization":
		apiErr.cause = &model.AuthorizationError{Role: actor.Role, Reason: body.Error}
	case "not_found":
		apiErr.cause = &model.NotFoundError{Kind: "resource", ID: resp.Request.URL.Path}
	case "unauthenticated":
		apiErr.cause = ErrUnauthenticated
	}
	return apiErr
}
