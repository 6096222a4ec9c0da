package tracer

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitMetrics wires the otel meter provider to a prometheus exporter and
// serves /metrics on its own port, off the request path.
func InitMetrics(port string, logger *slog.Logger) error {
	exporter, err := prometheus.New()
	if err != nil {
		return err
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("careconnect-portal"),
		)),
	)
	otel.SetMeterProvider(mp)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			logger.Error("Metrics endpoint stopped", slog.Any("error", err))
		}
	}()
	logger.Info("Prometheus metrics endpoint started", slog.String("port", port))
	return nil
}
