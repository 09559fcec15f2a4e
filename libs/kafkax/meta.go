package kafkax

import (
	"strings"

	"github.com/segmentio/kafka-go"
)

// Header keys shared by every producer and consumer.
const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
)

// EventMeta identifies a message for inbox deduplication and logging.
type EventMeta struct {
	EventID   string
	EventType string
}

// ExtractEventMeta reads the event headers. Messages from producers that omit them fall back
// to the message key and topic.
func ExtractEventMeta(msg kafka.Message) EventMeta {
	meta := EventMeta{
		EventID:   HeaderValue(msg.Headers, HeaderEventID),
		EventType: HeaderValue(msg.Headers, HeaderEventType),
	}
	if meta.EventID == "" {
		meta.EventID = string(msg.Key)
	}
	if meta.EventType == "" {
		meta.EventType = msg.Topic
	}
	return meta
}

// HeaderValue returns the last value of key; later headers override earlier ones.
func HeaderValue(headers []kafka.Header, key string) string {
	for i := len(headers) - 1; i >= 0; i-- {
		if headers[i].Key == key {
			return string(headers[i].Value)
		}
	}
	return ""
}

// SplitBrokers parses a comma separated broker list, dropping blanks and duplicates.
func SplitBrokers(raw string) []string {
	var brokers []string
	seen := map[string]bool{}
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		brokers = append(brokers, b)
	}
	return brokers
}
