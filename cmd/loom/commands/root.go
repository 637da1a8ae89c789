package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	jsonOutput    bool
	environment   string
	verbose       bool
	traceExporter string
	otlpEndpoint  string
	metricsListen string
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	err := rootCmd.ExecuteContext(ctx)
	// Flush spans on a fresh context: the command context may already be
	// cancelled when the run failed or was interrupted.
	shutdownTelemetry(context.Background())
	return err
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "loom",
		Short: "Loom - Declarative Resource Synthesis Engine",
		Long: `Loom turns declarative resource stack documents into deployable
resource graphs.

Features:
  - Typed stack documents via CUE and YAML
  - Light procedural scripting via Starlark
  - Batch validation with every violation reported at once
  - Deterministic graph synthesis with dependent-resource wiring
  - Capability-based key policy composition
  - Guard policies via OPA/rego
  - Synthesis snapshot history`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupTelemetry(version)
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&environment, "environment", "", "override environment detection (prod or nonprod)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&traceExporter, "trace", "", "enable tracing with the given exporter (otlp, stdout, none)")
	rootCmd.PersistentFlags().StringVar(&otlpEndpoint, "otlp-endpoint", "localhost:4317", "OTLP gRPC endpoint for --trace=otlp")
	rootCmd.PersistentFlags().StringVar(&metricsListen, "metrics-listen", "", "expose Prometheus metrics on the given address (e.g. :9090)")

	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newSynthCommand())
	rootCmd.AddCommand(newGraphCommand())
	rootCmd.AddCommand(newPoliciesCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}
