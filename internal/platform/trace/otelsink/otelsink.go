// Package otelsink adapts the platform trace seam onto OpenTelemetry spans
package otelsink

import (
	"context"
	"strings"

	ptrace "hostbridge/internal/platform/trace"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

type sink struct {
	tracer trace.Tracer
}

// New returns a trace sink that opens one span per scope and one
// zero-length span per marker, using the global tracer provider
func New(instrumentation string) ptrace.Sink {
	return &sink{tracer: otel.Tracer(instrumentation)}
}

func (s *sink) Begin(name string) func() {
	_, span := s.tracer.Start(context.Background(), name)
	return func() { span.End() }
}

func (s *sink) Marker(name string) {
	_, span := s.tracer.Start(context.Background(), name)
	span.End()
}

// Setup initialises the global OTLP trace provider for the given service.
//
// Exporting is opt-in: with an empty endpoint or enabled=false, Setup
// registers nothing and returns a no-op shutdown. The returned shutdown
// flushes pending spans and should be deferred by the caller
func Setup(ctx context.Context, serviceName, endpoint string, enabled bool) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	if !enabled || strings.TrimSpace(endpoint) == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpointURL(endpoint)),
	)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// endpointURL widens a bare host:port into the full OTLP HTTP URL that
// WithEndpointURL expects; full URLs pass through untouched
func endpointURL(endpoint string) string {
	e := strings.TrimSpace(endpoint)
	if !strings.Contains(e, "://") {
		e = "http://" + e
	}
	if !strings.HasSuffix(e, "/v1/traces") {
		e = strings.TrimRight(e, "/") + "/v1/traces"
	}
	return e
}
