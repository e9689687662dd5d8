// Package otelhelper provides distributed tracing for workflow executions.
package otelhelper

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Common attribute keys.
	WorkflowIDKey      = "flowforge.workflow.id"
	WorkflowNameKey    = "flowforge.workflow.name"
	UserIDKey          = "flowforge.user.id"
	NodeIDKey          = "flowforge.node.id"
	NodeKindKey        = "flowforge.node.kind"
	NodeStatusKey      = "flowforge.node.status"
	ExecutionIDKey     = "flowforge.execution.id"
	ExecutionSourceKey = "flowforge.execution.source"
	ScheduleKindKey    = "flowforge.schedule.kind"
)

// ShutdownTimeout bounds how long closing the provider may spend flushing buffered spans.
const ShutdownTimeout = 5 * time.Second

// Tracer returns a tracer from the globally registered provider. Without a call to
// NewTracerProvider the spans are no-ops.
//
// nolint:ireturn // OpenTelemetry tracers are interfaces
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// NewTracer installs an exporting provider and returns its tracer with a shutdown function that
// flushes pending spans, waiting at most ShutdownTimeout.
//
// nolint:ireturn // OpenTelemetry tracers are interfaces
func NewTracer(ctx context.Context, serviceName string) (trace.Tracer, func(context.Context) error, error) {
	provider, err := NewTracerProvider(ctx, serviceName)
	if err != nil {
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()

		return provider.Shutdown(ctx)
	}

	return provider.Tracer(serviceName), shutdown, nil
}

// nolint:ireturn,spancheck // the caller ends the span
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// NewTracerProvider exports spans over OTLP/HTTP, configured by the standard OTEL_EXPORTER_OTLP_*
// variables, and installs the provider and a trace-context plus baggage propagator globally.
// Runs started from an incoming traced request follow the caller's sampling decision.
func NewTracerProvider(ctx context.Context, serviceName string) (*sdktrace.TracerProvider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build trace resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return provider, nil
}
