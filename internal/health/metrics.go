package health

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/govmigrate/govmigrate/internal/health"

// CheckMetrics holds the OpenTelemetry instruments for backend health checks
// and the status snapshot cache.
type CheckMetrics struct {
	checkDuration metric.Float64Histogram
	checkTotal    metric.Int64Counter
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
}

// NewCheckMetrics creates metrics for backend health checks.
func NewCheckMetrics() (*CheckMetrics, error) {
	meter := otel.Meter(meterName)

	checkDuration, err := meter.Float64Histogram(
		"healthcheck.duration",
		metric.WithDescription("Duration of backend health checks in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	checkTotal, err := meter.Int64Counter(
		"healthcheck.total",
		metric.WithDescription("Total number of backend health checks"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(
		"healthcheck.snapshot.cache.hit",
		metric.WithDescription("Status reads served from the snapshot cache"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	cacheMisses, err := meter.Int64Counter(
		"healthcheck.snapshot.cache.miss",
		metric.WithDescription("Status reads that forced a fresh check round"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	return &CheckMetrics{
		checkDuration: checkDuration,
		checkTotal:    checkTotal,
		cacheHits:     cacheHits,
		cacheMisses:   cacheMisses,
	}, nil
}

// RecordCheck records the outcome of one service health check.
func (m *CheckMetrics) RecordCheck(service string, duration time.Duration, healthy bool) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("service.key", service),
		attribute.Bool("healthy", healthy),
	}

	// Use background context for metrics to avoid context cancellation issues
	ctx := context.Background()
	m.checkDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.checkTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCacheHit records a status read served from the cached snapshot.
func (m *CheckMetrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Add(context.Background(), 1)
}

// RecordCacheMiss records a status read that triggered a fresh check round.
func (m *CheckMetrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Add(context.Background(), 1)
}
