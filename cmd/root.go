package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/episim/episim/sim/observability"
	"github.com/episim/episim/sim/trace"
)

var (
	// CLI flags shared by both models
	logLevel     string  // Log verbosity level
	scenarioPath string  // Path to a scenario YAML file
	horizon      float64 // Simulation horizon, overrides the scenario's when set
	resultsPath  string  // File to write the results JSON to
	traceLevel   string  // Event trace verbosity
	metrics      bool    // Collect OTel metrics in-process and print their totals

	// CLI flags for the compartmental model
	adaptiveBirthRate bool // Replace disease deaths with births every step

	// CLI flags for the agent model
	seed int64 // Seed for the agent model's random streams
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "episim",
	Short: "Discrete-event simulator for epidemic models",
}

// setupLogging applies the --log level. An invalid level is fatal.
func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// newTrace validates --trace-level and returns the trace to record into.
func newTrace(runID string) *trace.SimulationTrace {
	if !trace.IsValidTraceLevel(traceLevel) {
		logrus.Fatalf("Invalid trace level: %s (valid: none, events)", traceLevel)
	}
	if traceLevel == "" {
		return trace.NewSimulationTrace(runID, trace.TraceLevelNone)
	}
	return trace.NewSimulationTrace(runID, trace.TraceLevel(traceLevel))
}

// newRecorder returns the metrics recorder for a run. With --metrics it is backed by a
// local SDK provider, returned so the caller can report it; otherwise it is a no-op.
func newRecorder() (observability.MetricsRecorder, *observability.LocalMetrics) {
	if !metrics {
		return observability.NoopMetrics{}, nil
	}
	local := observability.NewLocalMetrics()
	rec, err := local.Recorder()
	if err != nil {
		logrus.Warnf("metrics disabled: %v", err)
		return observability.NoopMetrics{}, nil
	}
	return rec, local
}

// reportMetrics prints the totals of a local provider and shuts it down. nil is a no-op.
func reportMetrics(ctx context.Context, local *observability.LocalMetrics) {
	if local == nil {
		return
	}
	defer func() {
		if err := local.Shutdown(ctx); err != nil {
			logrus.Warnf("shutting down metrics: %v", err)
		}
	}()
	totals, err := local.Totals(ctx)
	if err != nil {
		logrus.Warnf("collecting metrics: %v", err)
		return
	}
	fmt.Println("=== Metrics ===")
	for _, t := range totals {
		fmt.Printf("%-36s: %g\n", t.Name, t.Value)
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	for _, c := range []*cobra.Command{sirxdCmd, agentsCmd} {
		c.Flags().Float64Var(&horizon, "horizon", 0, "Simulation horizon (overrides the scenario file)")
		c.Flags().StringVar(&resultsPath, "results-path", "", "Write the results JSON to this file")
		c.Flags().StringVar(&traceLevel, "trace-level", "none", "Event trace level (none, events)")
		c.Flags().BoolVar(&metrics, "metrics", false, "Collect OpenTelemetry metrics in-process and print their totals")
	}

	sirxdCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Compartmental scenario YAML file (required)")
	sirxdCmd.Flags().BoolVar(&adaptiveBirthRate, "adaptive-birth-rate", false, "Births replace natural and disease deaths (overrides the scenario file)")

	agentsCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Agent scenario YAML file (defaults are used when omitted)")
	agentsCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the agent model (overrides the scenario file)")

	rootCmd.AddCommand(sirxdCmd)
	rootCmd.AddCommand(agentsCmd)
}
