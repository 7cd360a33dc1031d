package observe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/spmukhedkar/user-role-system-server"

// Metrics records request and gate outcomes. A nil *Metrics records nothing.
type Metrics struct {
	requests  metric.Int64Counter
	duration  metric.Float64Histogram
	decisions metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requests, err := meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("Total number of HTTP requests served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"http.server.duration_ms",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	decisions, err := meter.Int64Counter(
		"auth.gate.decisions",
		metric.WithDescription("Authorization gate decisions by stage and outcome"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{requests: requests, duration: duration, decisions: decisions}, nil
}

// RecordRequest records one served request.
func (m *Metrics) RecordRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	opt := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	m.requests.Add(ctx, 1, opt)
	m.duration.Record(ctx, float64(elapsed.Microseconds())/1000, opt)
}

// RecordGateDecision records whether a gate stage let a request through.
func (m *Metrics) RecordGateDecision(ctx context.Context, stage, outcome string) {
	if m == nil {
		return
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("auth.stage", stage),
		attribute.String("auth.outcome", outcome),
	))
}

// Provider owns the meter provider and the registry the /metrics handler reads.
type Provider struct {
	Metrics  *Metrics
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry
}

// NewPrometheusProvider exports the metrics through a private Prometheus registry.
func NewPrometheusProvider() (*Provider, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	m, err := NewMetrics(mp.Meter(meterName))
	if err != nil {
		_ = mp.Shutdown(context.Background())
		return nil, fmt.Errorf("create instruments: %w", err)
	}

	return &Provider{Metrics: m, provider: mp, registry: registry}, nil
}

// Handler serves the registry in the Prometheus text format.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}
