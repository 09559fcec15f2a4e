package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
	"github.com/sony/gobreaker/v2"
)

type Notifier interface {
	Notify(ctx context.Context, msg model.Notification) error
}

type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	// OpenFor is how long the breaker rejects calls before letting one through.
	OpenFor     time.Duration
	MaxRequests uint32
}

// Breaker stops calling a failing notifier for a while so a broker outage does not add its
// timeout to every lifecycle transition.
type Breaker struct {
	next Notifier
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func NewBreaker(next Notifier, logger *slog.Logger, cfg BreakerConfig) *Breaker {
	if cfg.Name == "" {
		cfg.Name = "notifier"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("notifier circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker[struct{}](settings)}
}

func (b *Breaker) Notify(ctx context.Context, msg model.Notification) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Notify(ctx, msg)
	})
	return err
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
