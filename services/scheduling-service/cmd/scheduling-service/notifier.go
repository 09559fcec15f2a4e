package main

import (
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/vetclinic/libs/kafkax"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/notify"
)

// openNotifier builds the driver named by NOTIFY_DRIVER behind a circuit breaker.
func openNotifier(cfg serviceConfig, logger *slog.Logger) (*notify.Breaker, func(), error) {
	var (
		next    notify.Notifier
		cleanup = func() {}
	)
	switch cfg.NotifyDriver {
	case "log":
		next = notify.NewLogNotifier(logger)
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, nil, fmt.Errorf("NOTIFY_DRIVER=kafka requires KAFKA_BROKERS")
		}
		w := kafkax.NewWriter(cfg.KafkaBrokers)
		next = notify.NewKafkaNotifier(w, cfg.NotifyTopic)
		cleanup = func() { _ = w.Close() }
	case "amqp":
		conn, ch, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, nil, fmt.Errorf("amqp: %w", err)
		}
		next = notify.NewAMQPNotifier(ch, cfg.AMQPExchange)
		cleanup = func() {
			_ = ch.Close()
			_ = conn.Close()
		}
	case "webhook":
		if cfg.WebhookURL == "" {
			return nil, nil, fmt.Errorf("NOTIFY_DRIVER=webhook requires NOTIFY_WEBHOOK_URL")
		}
		next = notify.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookToken)
	default:
		return nil, nil, fmt.Errorf("unknown NOTIFY_DRIVER %q (want log, kafka, amqp or webhook)", cfg.NotifyDriver)
	}

	breaker := notify.NewBreaker(next, logger, notify.BreakerConfig{
		Name:             "notify-" + cfg.NotifyDriver,
		FailureThreshold: uint32(cfg.BreakerThreshold),
		OpenFor:          cfg.BreakerOpenFor,
	})
	return breaker, cleanup, nil
}
