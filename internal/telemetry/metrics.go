package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/tradejournal"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	LoginsTotal        metric.Int64Counter
	LogoutsTotal       metric.Int64Counter
	TOTPSetupsTotal    metric.Int64Counter
	AuditWritesTotal   metric.Int64Counter
	AuditWriteFailures metric.Int64Counter
	SessionRejections  metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary.
// Instruments bind to the global meter provider at first use, so InitTelemetry
// must run before the first call for metrics to be exported.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = NewMetrics(otel.GetMeterProvider().Meter(meterName))
	})
	return metrics
}

// NewMetrics creates all instruments from the given meter.
func NewMetrics(meter metric.Meter) *Metrics {
	m := &Metrics{}

	m.LoginsTotal, _ = meter.Int64Counter(
		"tradejournal.auth.logins.total",
		metric.WithDescription("Superadmin login attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)

	m.LogoutsTotal, _ = meter.Int64Counter(
		"tradejournal.auth.logouts.total",
		metric.WithDescription("Superadmin logouts"),
		metric.WithUnit("{logout}"),
	)

	m.TOTPSetupsTotal, _ = meter.Int64Counter(
		"tradejournal.auth.totp_setups.total",
		metric.WithDescription("TOTP enrollment requests by outcome"),
		metric.WithUnit("{request}"),
	)

	m.AuditWritesTotal, _ = meter.Int64Counter(
		"tradejournal.audit.writes.total",
		metric.WithDescription("Audit entries written"),
		metric.WithUnit("{entry}"),
	)

	m.AuditWriteFailures, _ = meter.Int64Counter(
		"tradejournal.audit.write_failures.total",
		metric.WithDescription("Audit entries that could not be written after retries"),
		metric.WithUnit("{entry}"),
	)

	m.SessionRejections, _ = meter.Int64Counter(
		"tradejournal.auth.session_rejections.total",
		metric.WithDescription("Requests rejected by session validation by reason"),
		metric.WithUnit("{request}"),
	)

	return m
}

// RecordOutcome increments counter with a success attribute.
func RecordOutcome(ctx context.Context, counter metric.Int64Counter, success bool) {
	counter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordReason increments counter with a reason attribute.
func RecordReason(ctx context.Context, counter metric.Int64Counter, reason string) {
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
