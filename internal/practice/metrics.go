package practice

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/thebtf/dilse/internal/practice"

// engineMetrics holds the engine's counters. With no meter provider
// installed the global provider is a no-op.
type engineMetrics struct {
	added    metric.Int64Counter
	failures metric.Int64Counter
	reloads  metric.Int64Counter
	minutes  metric.Int64Counter
}

func newEngineMetrics(mp metric.MeterProvider) *engineMetrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	// Instrument creation only fails on invalid names; fall back to no-ops.
	m := &engineMetrics{}
	m.added, _ = meter.Int64Counter("dilse.practice.sessions_added",
		metric.WithDescription("Practice sessions recorded"),
		metric.WithUnit("{session}"))
	m.failures, _ = meter.Int64Counter("dilse.practice.add_failures",
		metric.WithDescription("Practice sessions the ledger failed to persist"),
		metric.WithUnit("{session}"))
	m.reloads, _ = meter.Int64Counter("dilse.practice.reloads",
		metric.WithDescription("Practice cache reloads, by outcome"))
	m.minutes, _ = meter.Int64Counter("dilse.practice.minutes",
		metric.WithDescription("Minutes of practice recorded"),
		metric.WithUnit("min"))
	return m
}

func (m *engineMetrics) sessionAdded(ctx context.Context, tool string, minutes int, persisted bool) {
	attrs := metric.WithAttributes(attribute.String("tool", tool))
	if m.added != nil {
		m.added.Add(ctx, 1, attrs)
	}
	if m.minutes != nil {
		m.minutes.Add(ctx, int64(minutes), attrs)
	}
	if !persisted && m.failures != nil {
		m.failures.Add(ctx, 1, attrs)
	}
}

func (m *engineMetrics) reloaded(ctx context.Context, ok bool) {
	if m.reloads == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.reloads.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
