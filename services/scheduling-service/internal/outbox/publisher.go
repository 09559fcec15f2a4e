package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/vetclinic/libs/db"
	"github.com/md-rashed-zaman/vetclinic/libs/kafkax"
	otelx "github.com/md-rashed-zaman/vetclinic/libs/otel"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher relays committed outbox rows to Kafka and marks them published.
type Publisher struct {
	pool      *db.Pool
	repo      *Repository
	writer    MessageWriter
	logger    *slog.Logger
	pollEvery time.Duration
	batchSize int
	retention time.Duration
}

type PublisherConfig struct {
	PollEvery time.Duration
	BatchSize int
	// Retention is how long published rows are kept; zero keeps them forever.
	Retention time.Duration
}

func NewPublisher(pool *db.Pool, repo *Repository, writer MessageWriter, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Publisher{
		pool:      pool,
		repo:      repo,
		writer:    writer,
		logger:    logger,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
		retention: cfg.Retention,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	if p.writer == nil {
		p.logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()
	purge := time.NewTicker(time.Hour)
	defer purge.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-purge.C:
			if p.retention <= 0 {
				continue
			}
			n, err := p.repo.PurgePublished(ctx, time.Now().Add(-p.retention))
			if err != nil {
				p.logger.Error("outbox purge failed", "err", err)
				continue
			}
			p.logger.Info("outbox purged", "deleted", n)
		case <-ticker.C:
			n, err := p.publishBatch(ctx)
			if err != nil {
				p.logger.Error("outbox publish failed", "err", err)
				continue
			}
			if n > 0 {
				p.logger.Debug("outbox batch published", "count", n)
			}
		}
	}
}

func (p *Publisher) publishBatch(ctx context.Context) (int, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	records, err := p.repo.FetchUnpublished(ctx, tx, p.batchSize)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, tx.Commit(ctx)
	}

	msgs := make([]kafka.Message, 0, len(records))
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, Message(ctx, r))
		ids = append(ids, r.ID)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, err
	}
	if err := p.repo.MarkPublished(ctx, tx, ids); err != nil {
		return 0, err
	}
	return len(records), tx.Commit(ctx)
}

// Message converts an outbox record into a Kafka message carrying the trace context that was
// active when the row was written.
func Message(ctx context.Context, r Record) kafka.Message {
	msgCtx := otelx.TraceContext{Parent: r.Traceparent, State: r.Tracestate}.Into(ctx)
	msg := kafka.Message{
		Topic:   r.EventType,
		Key:     []byte(r.AggregateID),
		Value:   r.Payload,
		Headers: kafkax.Headers(r.EventID, r.EventType),
	}
	msg.Headers = kafkax.InjectTraceHeaders(msgCtx, msg.Headers)
	return msg
}
