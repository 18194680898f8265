// Package observe provides OpenTelemetry metric instruments for the capture
// pipeline and the Prometheus exporter used by the HTTP API.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/verte-zerg/signdrill"

// Metrics holds the application's metric instruments.
type Metrics struct {
	// Captures counts capture chains by result ("scored", "detect_failed").
	Captures metric.Int64Counter

	// Attempts counts scored attempts by correctness.
	Attempts metric.Int64Counter

	// Verifications counts AI verification calls by status
	// ("used", "failed", "skipped").
	Verifications metric.Int64Counter

	// PersistFailures counts attempt writes that did not reach the store.
	PersistFailures metric.Int64Counter

	// PipelineDuration tracks capture chain latency in seconds.
	PipelineDuration metric.Float64Histogram
}

// NewMetrics creates instruments from the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var (
		out Metrics
		err error
	)
	if out.Captures, err = m.Int64Counter("signdrill.captures",
		metric.WithDescription("Capture chains run, by result.")); err != nil {
		return nil, err
	}
	if out.Attempts, err = m.Int64Counter("signdrill.attempts",
		metric.WithDescription("Scored attempts, by correctness.")); err != nil {
		return nil, err
	}
	if out.Verifications, err = m.Int64Counter("signdrill.verifications",
		metric.WithDescription("AI verification calls, by status.")); err != nil {
		return nil, err
	}
	if out.PersistFailures, err = m.Int64Counter("signdrill.persist.failures",
		metric.WithDescription("Attempt writes that failed.")); err != nil {
		return nil, err
	}
	if out.PipelineDuration, err = m.Float64Histogram("signdrill.pipeline.duration",
		metric.WithDescription("Capture chain latency."),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return &out, nil
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// DefaultMetrics returns instruments bound to the global meter provider.
// Without an installed provider the instruments are no-ops.
func DefaultMetrics() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: create default metrics: " + err.Error())
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordCapture records one finished capture chain.
func (m *Metrics) RecordCapture(ctx context.Context, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("result", result))
	m.Captures.Add(ctx, 1, attrs)
	m.PipelineDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordAttempt records a scored attempt.
func (m *Metrics) RecordAttempt(ctx context.Context, correct bool) {
	if m == nil {
		return
	}
	m.Attempts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("correct", correct)))
}

// RecordVerification records the AI verification status for a capture.
func (m *Metrics) RecordVerification(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.Verifications.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordPersistFailure records a failed attempt write.
func (m *Metrics) RecordPersistFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.PersistFailures.Add(ctx, 1)
}
