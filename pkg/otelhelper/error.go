package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError records err on span and marks it failed.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(
		attrs...,
	))
}

// SetFailure marks span failed for an outcome that is reported as data rather than an error.
func SetFailure(span trace.Span, description string, attrs ...attribute.KeyValue) {
	span.SetStatus(codes.Error, description)
	span.SetAttributes(attrs...)
}
