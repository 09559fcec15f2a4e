package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/vetclinic/libs/kafkax"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func sample() model.Notification {
	return model.Notification{
		SubjectID:  "rex",
		Channel:    "sms",
		TemplateID: "appointment.confirmed",
		Priority:   "high",
		Payload:    map[string]any{"appointment_id": "appt-1"},
	}
}

type captureWriter struct {
	msgs []kafka.Message
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaNotifier(t *testing.T) {
	w := &captureWriter{}
	require.NoError(t, NewKafkaNotifier(w, "").Notify(context.Background(), sample()))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, Topic, msg.Topic)
	assert.Equal(t, "rex", string(msg.Key))
	assert.Equal(t, Topic, kafkax.HeaderValue(msg.Headers, "event_type"))
	assert.NotEmpty(t, kafkax.HeaderValue(msg.Headers, "event_id"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "appointment.confirmed", body["template_id"])
	assert.Equal(t, kafkax.HeaderValue(msg.Headers, "event_id"), body["notification_id"])
}

type capturePublisher struct {
	exchange, key string
	msg           amqp.Publishing
}

func (p *capturePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	p.exchange, p.key, p.msg = exchange, key, msg
	return nil
}

func TestAMQPNotifier(t *testing.T) {
	p := &capturePublisher{}
	require.NoError(t, NewAMQPNotifier(p, "").Notify(context.Background(), sample()))

	assert.Equal(t, Exchange, p.exchange)
	assert.Equal(t, "notification.requested.v1.sms", p.key)
	assert.Equal(t, uint8(9), p.msg.Priority)
	assert.Equal(t, amqp.Persistent, p.msg.DeliveryMode)
	assert.Equal(t, "appointment.confirmed", p.msg.Type)
	assert.NotEmpty(t, p.msg.MessageId)
}

func TestWebhookNotifier(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	require.NoError(t, NewWebhookNotifier(srv.URL, "secret").Notify(context.Background(), sample()))
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "rex", got["subject_id"])

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()
	assert.Error(t, NewWebhookNotifier(failing.URL, "").Notify(context.Background(), sample()))
	assert.Error(t, NewWebhookNotifier("", "").Notify(context.Background(), sample()))
}

type flakyNotifier struct {
	calls int
	err   error
}

func (n *flakyNotifier) Notify(context.Context, model.Notification) error {
	n.calls++
	return n.err
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	next := &flakyNotifier{err: errors.New("broker down")}
	b := NewBreaker(next, discard, BreakerConfig{FailureThreshold: 3, OpenFor: time.Minute})

	for i := 0; i < 3; i++ {
		assert.Error(t, b.Notify(context.Background(), sample()))
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	err := b.Notify(context.Background(), sample())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, next.calls)
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, NewLogNotifier(discard).Notify(context.Background(), sample()))
}
