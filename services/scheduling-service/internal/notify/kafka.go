package notify

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/vetclinic/libs/kafkax"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
	"github.com/segmentio/kafka-go"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaNotifier hands notifications to the notification service over Kafka, keyed by subject so
// a pet's notifications stay ordered.
type KafkaNotifier struct {
	writer MessageWriter
	topic  string
	now    func() time.Time
}

func NewKafkaNotifier(writer MessageWriter, topic string) *KafkaNotifier {
	if topic == "" {
		topic = Topic
	}
	return &KafkaNotifier{writer: writer, topic: topic, now: time.Now}
}

func (n *KafkaNotifier) Notify(ctx context.Context, msg model.Notification) error {
	id, raw, err := encode(msg, n.now())
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, kafka.Message{
		Topic:   n.topic,
		Key:     []byte(msg.SubjectID),
		Value:   raw,
		Headers: kafkax.InjectTraceHeaders(ctx, kafkax.Headers(id, n.topic)),
	})
}
