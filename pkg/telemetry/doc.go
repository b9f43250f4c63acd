// Package telemetry provides the observability layer for the hostforge
// backend: structured logging via zerolog, Prometheus metrics for pass and
// entity outcomes, and OpenTelemetry tracing around reconciliation passes.
//
// All three are constructed once at startup from the telemetry configuration
// and handed to the processor; nothing in this package is a process-wide
// singleton except the otel global provider registration.
package telemetry
