// Package telemetry provides logging, tracing, and metrics for the loom
// toolchain. Logging is structured (zerolog) with helpers for the fields
// that recur across the pipeline: stack, logical ID, family. Tracing uses
// OpenTelemetry with stdout and OTLP exporters; metrics are Prometheus
// counters and histograms over document loads, validations, syntheses, and
// guard evaluations.
//
// The engine packages themselves stay silent; telemetry is wired at the
// command layer, where loading, synthesis, and guard evaluation actually
// happen.
package telemetry
