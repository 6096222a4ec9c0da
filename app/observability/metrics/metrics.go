package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	LoginAttemptsTotal      metric.Int64Counter
	LoginFailuresTotal      metric.Int64Counter
	RegisterRequestsTotal   metric.Int64Counter
	RegisterDurationSeconds metric.Float64Histogram
	TokenRefreshTotal       metric.Int64Counter
	StoreErrorsTotal        metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments once, using the
// globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("careconnect-portal")
		var err error
		m := &AppMetrics{}

		m.LoginAttemptsTotal, err = meter.Int64Counter(
			"login_attempts_total",
			metric.WithDescription("Total number of login attempts"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create login_attempts_total: %v", err)
		}

		m.LoginFailuresTotal, err = meter.Int64Counter(
			"login_failures_total",
			metric.WithDescription("Total number of rejected login attempts"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create login_failures_total: %v", err)
		}

		m.RegisterRequestsTotal, err = meter.Int64Counter(
			"register_requests_total",
			metric.WithDescription("Total number of register requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create register_requests_total: %v", err)
		}

		m.RegisterDurationSeconds, err = meter.Float64Histogram(
			"register_duration_seconds",
			metric.WithDescription("Duration of register requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create register_duration_seconds: %v", err)
		}

		m.TokenRefreshTotal, err = meter.Int64Counter(
			"token_refresh_total",
			metric.WithDescription("Total number of token refresh operations"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create token_refresh_total: %v", err)
		}

		m.StoreErrorsTotal, err = meter.Int64Counter(
			"store_errors_total",
			metric.WithDescription("Total number of credential store errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create store_errors_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance, or nil when
// InitAppMetrics has not run (tests). Callers treat a nil receiver as a
// no-op sink.
func Get() *AppMetrics {
	return appMetrics
}
