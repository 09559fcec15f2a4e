package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/vetclinic/libs/db"
	"github.com/md-rashed-zaman/vetclinic/libs/kafkax"
	"github.com/md-rashed-zaman/vetclinic/libs/runtime"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/lifecycle"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/storage"
)

type ledger interface {
	lifecycle.Ledger
	availability.Ledger
}

// backend is the storage selected by STORAGE_DRIVER.
type backend struct {
	ledger    ledger
	schedules availability.ScheduleStore
	directory availability.Directory
	checks    []runtime.ReadyCheck
	// pool and outbox are set only for postgres.
	pool   *db.Pool
	outbox *outbox.Repository
	close  func()
}

func openBackend(ctx context.Context, cfg serviceConfig, logger *slog.Logger) (*backend, error) {
	var fixture *storage.Fixture
	if cfg.SeedFile != "" {
		f, err := storage.LoadFixture(cfg.SeedFile)
		if err != nil {
			return nil, err
		}
		fixture = &f
	}

	switch cfg.StorageDriver {
	case "postgres":
		pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{})
		if err != nil {
			return nil, fmt.Errorf("db connection failed: %w", err)
		}
		schedules := storage.NewScheduleRepository(pool)
		directory := storage.NewDirectoryRepository(pool)
		if fixture != nil {
			if err := fixture.ApplyPostgres(ctx, directory, schedules); err != nil {
				pool.Close()
				return nil, fmt.Errorf("seed postgres: %w", err)
			}
			logger.Info("reference data seeded", "file", cfg.SeedFile)
		}
		outboxRepo := outbox.NewRepository(pool)
		return &backend{
			ledger:    storage.NewAppointmentRepository(pool, outboxRepo, cfg.Location),
			schedules: schedules,
			directory: directory,
			checks:    []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}},
			pool:      pool,
			outbox:    outboxRepo,
			close:     pool.Close,
		}, nil

	case "sqlite":
		store, err := storage.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if fixture != nil {
			if err := fixture.ApplySQLite(ctx, store); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("seed sqlite: %w", err)
			}
		}
		return &backend{
			ledger:    store,
			schedules: store,
			directory: store,
			checks:    []runtime.ReadyCheck{{Name: "sqlite", Check: store.Ping}},
			close:     func() { _ = store.Close() },
		}, nil

	case "memory":
		store := storage.NewMemoryStore()
		if fixture != nil {
			if err := fixture.ApplyMemory(store); err != nil {
				return nil, fmt.Errorf("seed memory store: %w", err)
			}
		}
		return &backend{ledger: store, schedules: store, directory: store, close: func() {}}, nil

	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q (want postgres, sqlite or memory)", cfg.StorageDriver)
	}
}

// startOutbox relays appointment events to Kafka. Without brokers the rows accumulate until
// a publisher with brokers runs.
func startOutbox(ctx context.Context, b *backend, cfg serviceConfig, logger *slog.Logger) {
	if b.pool == nil {
		return
	}
	var writer outbox.MessageWriter
	if len(cfg.KafkaBrokers) > 0 {
		w := kafkax.NewWriter(cfg.KafkaBrokers)
		go func() {
			<-ctx.Done()
			_ = w.Close()
		}()
		writer = w
		b.checks = append(b.checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
	}
	publisher := outbox.NewPublisher(b.pool, b.outbox, writer, logger, outbox.PublisherConfig{
		PollEvery: 2 * time.Second,
		BatchSize: 50,
		Retention: cfg.OutboxRetention,
	})
	go publisher.Run(ctx)
}
