package commands

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/loomworks/loom/pkg/telemetry"
)

// Command-layer instruments. The engine packages stay silent; spans and
// metrics are recorded here, around the pipeline calls. Both are always
// constructed: disabled tracing yields no-op spans and disabled metrics
// yield no-op recorders, so the pipeline never checks.
var (
	tracer  *telemetry.Tracer
	metrics *telemetry.Metrics
)

// setupTelemetry builds the logger, tracer and metrics from the root
// flags. It runs as the root PersistentPreRunE, after flag parsing.
func setupTelemetry(version string) error {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = version

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if traceExporter != "" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Exporter = traceExporter
		cfg.Tracing.Endpoint = otlpEndpoint
	}
	if metricsListen != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddress = metricsListen
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := telemetry.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	log.Logger = logger.Zerolog()

	t, err := telemetry.NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return err
	}
	tracer = t

	m, err := telemetry.NewMetrics(cfg.Metrics)
	if err != nil {
		return err
	}
	metrics = m

	return m.StartMetricsServer()
}

// shutdownTelemetry flushes pending spans.
func shutdownTelemetry(ctx context.Context) {
	if tracer != nil {
		_ = tracer.Shutdown(ctx)
	}
}
