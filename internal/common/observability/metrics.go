package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Observability owns the otel meter and tracer used around event handling.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	eventCounter   otelmetric.Int64Counter
	eventDuration  otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(tracerProvider)

	o := &Observability{
		tracerProvider: tracerProvider,
		tracer:         tracerProvider.Tracer(serviceName),
	}

	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		o.meter = noop.NewMeterProvider().Meter(serviceName)
		return o
	}

	o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(o.meterProvider)
	o.meter = o.meterProvider.Meter(serviceName)

	o.eventCounter, _ = o.meter.Int64Counter(
		"events.processed",
		otelmetric.WithDescription("Number of platform events processed"),
	)

	o.eventDuration, _ = o.meter.Float64Histogram(
		"events.duration",
		otelmetric.WithDescription("Event processing duration"),
		otelmetric.WithUnit("ms"),
	)

	return o
}

// NewNoop returns an Observability that records nothing.
func NewNoop() *Observability {
	return &Observability{
		meter:  noop.NewMeterProvider().Meter("noop"),
		tracer: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

// StartSpan opens a span for one event. The returned func ends it and
// marks it failed when err is non-nil.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	tracer := o.tracer
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer("noop")
	}
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (o *Observability) RecordEventProcessed(ctx context.Context, kind, status string) {
	if o.eventCounter != nil {
		o.eventCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordEventDuration(ctx context.Context, kind string, duration time.Duration, status string) {
	if o.eventDuration != nil {
		o.eventDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		o.tracerProvider.Shutdown(ctx)
	}
}
