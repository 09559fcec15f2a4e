package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TraceContext is the W3C trace context in the string form stored next to outbox rows.
type TraceContext struct {
	Parent string
	State  string
}

// CurrentTraceContext captures the span context active in ctx. Both fields are empty when
// there is no span.
func CurrentTraceContext(ctx context.Context) TraceContext {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return TraceContext{Parent: carrier.Get("traceparent"), State: carrier.Get("tracestate")}
}

// Into returns ctx with tc as the remote parent span.
func (tc TraceContext) Into(ctx context.Context) context.Context {
	if tc.Parent == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{"traceparent": tc.Parent}
	if tc.State != "" {
		carrier["tracestate"] = tc.State
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
