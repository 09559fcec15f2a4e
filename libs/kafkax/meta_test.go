package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestExtractEventMetaFallsBackToKeyAndTopic(t *testing.T) {
	meta := ExtractEventMeta(kafka.Message{Topic: "scheduling.schedule.changed.v1", Key: []byte("vet-1")})
	assert.Equal(t, EventMeta{EventID: "vet-1", EventType: "scheduling.schedule.changed.v1"}, meta)

	meta = ExtractEventMeta(kafka.Message{Topic: "t", Headers: Headers("evt-9", "custom")})
	assert.Equal(t, EventMeta{EventID: "evt-9", EventType: "custom"}, meta)
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, SplitBrokers(" k1:9092, ,k2:9092,k1:9092"))
	assert.Empty(t, SplitBrokers(""))
}

func TestReadyCheckWithoutBrokers(t *testing.T) {
	assert.Error(t, ReadyCheck(nil)(context.Background()))
}

func TestTraceHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	headers := InjectTraceHeaders(ctx, Headers("evt-1", "x"))
	assert.NotEmpty(t, HeaderValue(headers, "traceparent"))

	out := ExtractTraceContext(context.Background(), kafka.Message{Headers: headers})
	assert.Equal(t, traceID, trace.SpanContextFromContext(out).TraceID())
}
