package diablo

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// engineMetrics holds the OpenTelemetry metric instruments for the engine.
// These are created once during New and reused for all operations.
type engineMetrics struct {
	// retrievalHistogram records the number of findings each retrieval
	// returned
	retrievalHistogram metric.Int64Histogram

	// generationHistogram records generation duration in milliseconds
	generationHistogram metric.Float64Histogram

	// verifyCounter increments per verification outcome
	verifyCounter metric.Int64Counter
}

// initMetrics creates all metric instruments. Returns nil when no meter is
// configured.
func initMetrics(meter metric.Meter) (*engineMetrics, error) {
	if meter == nil {
		return nil, nil
	}

	m := &engineMetrics{}
	var err error

	m.retrievalHistogram, err = meter.Int64Histogram(
		"diablo.retrieval.results",
		metric.WithDescription("Findings returned per retrieval"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create retrieval histogram: %w", err)
	}

	m.generationHistogram, err = meter.Float64Histogram(
		"diablo.generation.duration",
		metric.WithDescription("External generation call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create generation histogram: %w", err)
	}

	m.verifyCounter, err = meter.Int64Counter(
		"diablo.verify.outcomes",
		metric.WithDescription("Verification outcomes by status"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create verify counter: %w", err)
	}

	return m, nil
}

// recordRetrieval records the size of a retrieval result. Safe to call with
// metrics disabled.
func (e *Engine) recordRetrieval(ctx context.Context, op string, count int) {
	if e.metrics == nil || e.metrics.retrievalHistogram == nil {
		return
	}
	e.metrics.retrievalHistogram.Record(ctx, int64(count),
		metric.WithAttributes(attribute.String("operation", op)))
}

// recordGeneration records one generation call's duration and outcome.
func (e *Engine) recordGeneration(ctx context.Context, op string, d time.Duration, err error) {
	if e.metrics == nil || e.metrics.generationHistogram == nil {
		return
	}
	e.metrics.generationHistogram.Record(ctx, float64(d.Milliseconds()),
		metric.WithAttributes(
			attribute.String("operation", op),
			attribute.Bool("error", err != nil),
		))
}

// recordVerify records one verification outcome.
func (e *Engine) recordVerify(ctx context.Context, op, status string) {
	if e.metrics == nil || e.metrics.verifyCounter == nil {
		return
	}
	e.metrics.verifyCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("status", status),
		))
}

// startSpan starts a span when a tracer is configured, otherwise returns
// the context unchanged with a nil span.
func (e *Engine) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, nil
	}
	return e.tracer.Start(ctx, name)
}

// endSpan ends the span if one was started.
func endSpan(span trace.Span) {
	if span != nil {
		span.End()
	}
}
