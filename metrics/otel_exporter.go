package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelExporter provides OpenTelemetry metrics export in Prometheus format.
// It also implements Recorder.
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	registry      *prom.Registry
	collector     Collector

	meter              metric.Meter
	registeredGauge    metric.Int64ObservableGauge
	queueDepthGauge    metric.Int64ObservableGauge
	queueCapacityGauge metric.Int64ObservableGauge
	registrations      metric.Int64Counter
	relays             metric.Int64Counter
	rateLimited        metric.Int64Counter
	limiterErrors      metric.Int64Counter
	forwards           metric.Int64Counter
	forwardDuration    metric.Float64Histogram
}

// NewOTelExporter creates a new OpenTelemetry metrics exporter backed by its own Prometheus registry
func NewOTelExporter(collector Collector) (*OTelExporter, error) {
	registry := prom.NewRegistry()

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(
		"webhook-relay",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	oe := &OTelExporter{
		meterProvider: meterProvider,
		registry:      registry,
		collector:     collector,
		meter:         meter,
	}

	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

func (oe *OTelExporter) registerInstruments() error {
	var err error

	oe.registeredGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.registered",
		metric.WithDescription("Number of relay mappings in the registry"),
		metric.WithUnit("{webhooks}"),
		metric.WithInt64Callback(oe.observeRegistered),
	)
	if err != nil {
		return fmt.Errorf("creating registered gauge: %w", err)
	}

	oe.queueDepthGauge, err = oe.meter.Int64ObservableGauge(
		"relay.queue.depth",
		metric.WithDescription("Forwards waiting for a worker"),
		metric.WithUnit("{jobs}"),
		metric.WithInt64Callback(oe.observeQueueDepth),
	)
	if err != nil {
		return fmt.Errorf("creating queue depth gauge: %w", err)
	}

	oe.queueCapacityGauge, err = oe.meter.Int64ObservableGauge(
		"relay.queue.capacity",
		metric.WithDescription("Size of the forward queue"),
		metric.WithUnit("{jobs}"),
		metric.WithInt64Callback(oe.observeQueueCapacity),
	)
	if err != nil {
		return fmt.Errorf("creating queue capacity gauge: %w", err)
	}

	oe.registrations, err = oe.meter.Int64Counter(
		"webhook.registrations",
		metric.WithDescription("Registration attempts by outcome"),
	)
	if err != nil {
		return fmt.Errorf("creating registrations counter: %w", err)
	}

	oe.relays, err = oe.meter.Int64Counter(
		"relay.requests",
		metric.WithDescription("Relay requests by outcome"),
	)
	if err != nil {
		return fmt.Errorf("creating relay counter: %w", err)
	}

	oe.rateLimited, err = oe.meter.Int64Counter(
		"ratelimit.rejections",
		metric.WithDescription("Requests rejected with 429 by scope"),
	)
	if err != nil {
		return fmt.Errorf("creating rate limit counter: %w", err)
	}

	oe.limiterErrors, err = oe.meter.Int64Counter(
		"ratelimit.errors",
		metric.WithDescription("Rate limit store failures (request allowed)"),
	)
	if err != nil {
		return fmt.Errorf("creating limiter error counter: %w", err)
	}

	oe.forwards, err = oe.meter.Int64Counter(
		"relay.forwards",
		metric.WithDescription("Forward attempts by outcome"),
	)
	if err != nil {
		return fmt.Errorf("creating forwards counter: %w", err)
	}

	oe.forwardDuration, err = oe.meter.Float64Histogram(
		"relay.forward.duration",
		metric.WithDescription("Time spent posting to the destination"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("creating forward duration histogram: %w", err)
	}

	return nil
}

func (oe *OTelExporter) observeRegistered(ctx context.Context, observer metric.Int64Observer) error {
	n, err := oe.collector.GetRegisteredCount(ctx)
	if err != nil {
		return err
	}
	observer.Observe(n)
	return nil
}

func (oe *OTelExporter) observeQueueDepth(ctx context.Context, observer metric.Int64Observer) error {
	depth, _, err := oe.collector.GetQueueStats(ctx)
	if err != nil {
		return err
	}
	observer.Observe(depth)
	return nil
}

func (oe *OTelExporter) observeQueueCapacity(ctx context.Context, observer metric.Int64Observer) error {
	_, capacity, err := oe.collector.GetQueueStats(ctx)
	if err != nil {
		return err
	}
	observer.Observe(capacity)
	return nil
}

func (oe *OTelExporter) RecordRegistration(ctx context.Context, outcome string) {
	oe.registrations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (oe *OTelExporter) RecordRelay(ctx context.Context, outcome string) {
	oe.relays.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (oe *OTelExporter) RecordRateLimited(ctx context.Context, scope string) {
	oe.rateLimited.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", scope)))
}

func (oe *OTelExporter) RecordLimiterError(ctx context.Context) {
	oe.limiterErrors.Add(ctx, 1)
}

func (oe *OTelExporter) RecordForward(ctx context.Context, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	oe.forwards.Add(ctx, 1, attrs)
	if outcome != ForwardDropped {
		oe.forwardDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

// ServeHTTP serves Prometheus-formatted metrics
func (oe *OTelExporter) ServeHTTP() http.Handler {
	return promhttp.HandlerFor(oe.registry, promhttp.HandlerOpts{})
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
