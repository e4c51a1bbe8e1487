package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/episim/episim/sim/agents"
	"github.com/episim/episim/sim/observability"
	"github.com/episim/episim/sim/scenario"
	"github.com/episim/episim/sim/trace"
)

// AgentsOutput holds the results of an agent run.
type AgentsOutput struct {
	RunID   string              `json:"run_id"`
	Model   string              `json:"model"`
	Seed    int64               `json:"seed"`
	Horizon float64             `json:"horizon"`
	Summary agents.Summary      `json:"summary"`
	Samples []agents.Sample     `json:"samples"`
	Stats   []agents.Stats      `json:"stats"`
	Trace   *trace.TraceSummary `json:"trace,omitempty"`
}

// runAgents runs the agent model with cfg.
func runAgents(ctx context.Context, cfg agents.Config, runID string, st *trace.SimulationTrace, recorder observability.MetricsRecorder) (*AgentsOutput, error) {
	logrus.Infof("Starting agent run %s with %d agents, seed=%d, horizon=%g", runID, cfg.NumAgents, cfg.Seed, cfg.Horizon)
	res, err := agents.Run(ctx, cfg, agents.WithRecorder(recorder), agents.WithTrace(st))
	if err != nil {
		return nil, err
	}
	out := &AgentsOutput{
		RunID:   runID,
		Model:   "agents",
		Seed:    cfg.Seed,
		Horizon: cfg.Horizon,
		Summary: res.Summary,
		Samples: res.Samples,
		Stats:   res.Stats,
	}
	if st != nil && st.Level == trace.TraceLevelEvents {
		out.Trace = trace.Summarize(st)
	}
	return out, nil
}

// Print writes a human-readable summary to stdout.
func (o *AgentsOutput) Print() {
	s := o.Summary
	fmt.Println("=== Agent Simulation Summary ===")
	fmt.Printf("Run ID               : %s\n", o.RunID)
	fmt.Printf("Seed                 : %d\n", o.Seed)
	fmt.Printf("Stopped at           : t=%g (horizon %g)\n", s.EndTime, o.Horizon)
	fmt.Printf("Peak infectious      : %d at t=%g\n", s.PeakInfectious, s.PeakTime)
	fmt.Printf("Final S/I/R          : %d / %d / %d\n", s.Final.S, s.Final.I, s.Final.R)
	fmt.Printf("Infections           : %d\n", s.Infections)
	fmt.Printf("Rebirths             : %d\n", s.Rebirths)
	fmt.Printf("Mean R0 / Reff       : %.3f / %.3f\n", s.MeanR0, s.MeanReff)
}

// agentsCmd runs the stochastic agent model
var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Run the stochastic spatial agent model",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		cfg := agents.DefaultConfig()
		if scenarioPath != "" {
			var err error
			cfg, err = scenario.LoadAgents(scenarioPath)
			if err != nil {
				logrus.Fatalf("Failed to load scenario: %v", err)
			}
		}
		if cmd.Flags().Changed("seed") {
			cfg.Seed = seed
		}
		if cmd.Flags().Changed("horizon") {
			cfg.Horizon = horizon
		}

		runID := uuid.NewString()
		recorder, local := newRecorder()
		out, err := runAgents(cmd.Context(), cfg, runID, newTrace(runID), recorder)
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		out.Print()
		reportMetrics(cmd.Context(), local)
		if resultsPath != "" {
			if err := SaveResults(out, resultsPath); err != nil {
				logrus.Fatalf("Failed to save results: %v", err)
			}
		}
		logrus.Info("Simulation complete.")
	},
}
