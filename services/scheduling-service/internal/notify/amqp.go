package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange is the topic exchange notifications are published to.
const Exchange = "vetclinic.notifications"

// Publisher is the subset of *amqp.Channel the notifier uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type AMQPNotifier struct {
	pub      Publisher
	exchange string
	now      func() time.Time
}

func NewAMQPNotifier(pub Publisher, exchange string) *AMQPNotifier {
	if exchange == "" {
		exchange = Exchange
	}
	return &AMQPNotifier{pub: pub, exchange: exchange, now: time.Now}
}

// DialAMQP connects and declares the durable topic exchange.
func DialAMQP(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	if exchange == "" {
		exchange = Exchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return conn, ch, nil
}

// Notify routes by "<topic>.<channel>" so consumers can bind per channel.
func (n *AMQPNotifier) Notify(ctx context.Context, msg model.Notification) error {
	now := n.now()
	id, raw, err := encode(msg, now)
	if err != nil {
		return err
	}
	var priority uint8
	if msg.Priority == "high" {
		priority = 9
	}
	return n.pub.PublishWithContext(ctx, n.exchange, Topic+"."+msg.Channel, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Timestamp:    now,
		Priority:     priority,
		Type:         msg.TemplateID,
		Body:         raw,
	})
}
