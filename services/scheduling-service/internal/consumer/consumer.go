package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/vetclinic/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Handler func(ctx context.Context, msg kafka.Message) error

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Inbox deduplicates deliveries by event id. An event is recorded only after its handler
// succeeded, so a failed delivery is handled again when redelivered. A nil Inbox processes
// every delivery.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Record(ctx context.Context, eventID, eventType string) (bool, error)
}

type Consumer struct {
	reader  MessageReader
	logger  *slog.Logger
	inbox   Inbox
	handler Handler
	backoff time.Duration
}

type Config struct {
	Brokers []string
	GroupID string
	Topic   string
}

func NewReader(cfg Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

func New(reader MessageReader, logger *slog.Logger, inbox Inbox, handler Handler) *Consumer {
	return &Consumer{reader: reader, logger: logger, inbox: inbox, handler: handler, backoff: time.Second}
}

// Run consumes until ctx is cancelled. A message is committed once handled or found to be a
// duplicate; handler failures leave it uncommitted for redelivery after a restart.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			if !sleep(ctx, c.backoff) {
				return
			}
			continue
		}
		if c.process(ctx, msg) {
			if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				c.logger.Error("kafka commit failed", "err", err, "topic", msg.Topic, "offset", msg.Offset)
			}
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctx, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	if c.inbox != nil {
		seen, err := c.inbox.Seen(ctx, meta.EventID)
		if err != nil {
			c.logger.Error("inbox lookup failed", "err", err, "event_id", meta.EventID)
			span.RecordError(err)
			span.SetStatus(codes.Error, "inbox")
			return false
		}
		if seen {
			c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
			return true
		}
	}

	if err := c.handler(ctx, msg); err != nil {
		c.logger.Error("handler error", "err", err, "event_id", meta.EventID, "event_type", meta.EventType)
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler")
		return false
	}

	if c.inbox != nil {
		if _, err := c.inbox.Record(ctx, meta.EventID, meta.EventType); err != nil {
			c.logger.Error("inbox record failed", "err", err, "event_id", meta.EventID)
			span.RecordError(err)
			span.SetStatus(codes.Error, "inbox")
			return false
		}
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
