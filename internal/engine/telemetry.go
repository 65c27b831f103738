package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ChamsBouzaiene/planloop/internal/engine"

func defaultTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// TelemetryHook records run counters on an OpenTelemetry meter. It uses the
// global MeterProvider unless one is given, so it is a no-op until a provider
// is installed.
type TelemetryHook struct {
	NopHook

	steps     metric.Int64Counter
	failures  metric.Int64Counter
	toolCalls metric.Int64Counter
	decisions metric.Int64Counter
	runs      metric.Int64Counter
	compress  metric.Int64Counter
}

// NewTelemetryHook creates the run counters. A nil provider means the global one.
func NewTelemetryHook(provider metric.MeterProvider) (*TelemetryHook, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(instrumentationName)

	h := &TelemetryHook{}
	var err error
	if h.steps, err = meter.Int64Counter("planloop.steps", metric.WithDescription("Executed plan steps")); err != nil {
		return nil, err
	}
	if h.failures, err = meter.Int64Counter("planloop.step_failures", metric.WithDescription("Steps that produced a failed result")); err != nil {
		return nil, err
	}
	if h.toolCalls, err = meter.Int64Counter("planloop.tool_calls", metric.WithDescription("Tool invocations")); err != nil {
		return nil, err
	}
	if h.decisions, err = meter.Int64Counter("planloop.decisions", metric.WithDescription("Reflection decisions by kind")); err != nil {
		return nil, err
	}
	if h.runs, err = meter.Int64Counter("planloop.runs", metric.WithDescription("Finished runs by status")); err != nil {
		return nil, err
	}
	if h.compress, err = meter.Int64Counter("planloop.compressions", metric.WithDescription("History compressions")); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *TelemetryHook) OnStepResult(ctx context.Context, _ *RunState, res StepResult) {
	h.steps.Add(ctx, 1)
	if res.Failed {
		h.failures.Add(ctx, 1)
	}
}

func (h *TelemetryHook) OnToolResult(ctx context.Context, _ *RunState, tool string, _ string, err error) {
	h.toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.Bool("error", err != nil),
	))
}

func (h *TelemetryHook) OnCompress(ctx context.Context, _ *RunState, entries int) {
	h.compress.Add(ctx, 1, metric.WithAttributes(attribute.Int("entries", entries)))
}

func (h *TelemetryHook) OnDecision(ctx context.Context, _ *RunState, d Decision) {
	h.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", DecisionName(d))))
}

func (h *TelemetryHook) OnDone(ctx context.Context, st *RunState) {
	h.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(st.Status))))
}
