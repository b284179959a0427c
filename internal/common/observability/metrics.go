package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"restaurant-site/internal/common/logger"
)

// Observability records resolve telemetry through an OpenTelemetry meter that is
// exported on the default prometheus registry.
type Observability struct {
	meterProvider   *metric.MeterProvider
	meter           otelmetric.Meter
	resolveCounter  otelmetric.Int64Counter
	resolveDuration otelmetric.Float64Histogram
}

func New(serviceName string, log logger.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter", map[string]interface{}{"error": err})
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	resolveCounter, _ := meter.Int64Counter(
		"content.resolves",
		otelmetric.WithDescription("Number of resource resolves"),
	)

	resolveDuration, _ := meter.Float64Histogram(
		"content.resolve.duration",
		otelmetric.WithDescription("Resource resolve duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:   provider,
		meter:           meter,
		resolveCounter:  resolveCounter,
		resolveDuration: resolveDuration,
	}
}

// RecordResolve counts one resolve of resource and how long it took. source is the
// winning source name, or empty when every source failed.
func (o *Observability) RecordResolve(ctx context.Context, resource, source string, fromCache bool, duration time.Duration, err error) {
	if o == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "exhausted"
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("source", source),
		attribute.Bool("from_cache", fromCache),
		attribute.String("status", status),
	)
	if o.resolveCounter != nil {
		o.resolveCounter.Add(ctx, 1, attrs)
	}
	if o.resolveDuration != nil {
		o.resolveDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.meterProvider.Shutdown(ctx)
	}
}
