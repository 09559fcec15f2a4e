package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

// Topic is the Kafka topic and AMQP routing key notifications are published under.
const Topic = "notification.requested.v1"

type envelope struct {
	NotificationID string `json:"notification_id"`
	RequestedAt    string `json:"requested_at"`
	model.Notification
}

func encode(n model.Notification, now time.Time) (string, []byte, error) {
	id := uuid.NewString()
	raw, err := json.Marshal(envelope{
		NotificationID: id,
		RequestedAt:    now.UTC().Format(time.RFC3339),
		Notification:   n,
	})
	return id, raw, err
}

// LogNotifier writes notifications to the log. It is the default when no broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg model.Notification) error {
	n.logger.InfoContext(ctx, "notification",
		"subject_id", msg.SubjectID,
		"channel", msg.Channel,
		"template_id", msg.TemplateID,
		"priority", msg.Priority,
		"appointment_id", msg.Payload["appointment_id"],
	)
	return nil
}
