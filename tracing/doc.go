// Package tracing integrates OpenTelemetry with the governance engine. Every
// commit unit runs inside a span; applications that do not initialise a
// provider get no-op spans.
package tracing
