package otelhelper

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const ErrorTypeKey = "flowforge.error.type"

// SetError records err on the span and marks it failed. A nil error leaves the span alone.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}

	attrs = append(attrs, attribute.String(ErrorTypeKey, fmt.Sprintf("%T", err)))

	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
}

// RecordNodeStatus tags a node span with the recorded node status. Failed nodes mark the span
// failed with their error text, since node failures are kept in the results instead of returned.
func RecordNodeStatus(span trace.Span, status, errText string) {
	span.SetAttributes(attribute.String(NodeStatusKey, status))

	if status == "failed" {
		if errText == "" {
			errText = "node failed"
		}

		span.SetStatus(codes.Error, errText)
	}
}
