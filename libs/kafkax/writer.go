package kafkax

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter returns a topic-less writer; every message names its own topic.
// Messages sharing a key land on the same partition.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
}

// Headers builds the standard event headers.
func Headers(eventID, eventType string) []kafka.Header {
	return []kafka.Header{
		{Key: HeaderEventID, Value: []byte(eventID)},
		{Key: HeaderEventType, Value: []byte(eventType)},
	}
}
