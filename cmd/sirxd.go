package cmd

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/episim/episim/sim/epidemic"
	"github.com/episim/episim/sim/observability"
	"github.com/episim/episim/sim/scenario"
	"github.com/episim/episim/sim/trace"
)

// PopulationOutput is the per-population part of a compartmental run's results.
type PopulationOutput struct {
	Name    string                 `json:"name"`
	Extinct bool                   `json:"extinct"`
	Rates   epidemic.RateVector    `json:"rates"`
	Summary epidemic.SeriesSummary `json:"summary"`
	Series  epidemic.Series        `json:"series"`
}

// SIRXDOutput holds the results of a compartmental run.
type SIRXDOutput struct {
	RunID       string              `json:"run_id"`
	Model       string              `json:"model"`
	Horizon     int                 `json:"horizon"`
	EndTime     float64             `json:"end_time"`
	Populations []PopulationOutput  `json:"populations"`
	Trace       *trace.TraceSummary `json:"trace,omitempty"`
}

// runSIRXD builds and runs a compartmental scenario.
func runSIRXD(ctx context.Context, sc *scenario.Compartmental, runID string, st *trace.SimulationTrace, recorder observability.MetricsRecorder) (*SIRXDOutput, error) {
	pops, err := sc.Build(scenario.Options{Recorder: recorder, Trace: st})
	if err != nil {
		return nil, err
	}

	logrus.Infof("Starting compartmental run %s with %d populations, horizon=%d ticks", runID, len(pops), sc.Horizon)
	start := time.Now()
	end, err := scenario.RunPopulations(ctx, sc.Horizon, pops)
	if err != nil {
		return nil, err
	}
	recorder.RecordRun(ctx, "sirxd", time.Since(start))

	out := &SIRXDOutput{
		RunID:       runID,
		Model:       "sirxd",
		Horizon:     sc.Horizon,
		EndTime:     end,
		Populations: make([]PopulationOutput, 0, len(pops)),
	}
	for _, p := range pops {
		series := p.Series()
		out.Populations = append(out.Populations, PopulationOutput{
			Name:    p.Name(),
			Extinct: p.Extinct(),
			Rates:   p.Rates(),
			Summary: epidemic.Summarize(series),
			Series:  series,
		})
	}
	if st != nil && st.Level == trace.TraceLevelEvents {
		out.Trace = trace.Summarize(st)
	}
	return out, nil
}

// Print writes a human-readable summary to stdout.
func (o *SIRXDOutput) Print() {
	fmt.Println("=== Compartmental Simulation Summary ===")
	fmt.Printf("Run ID               : %s\n", o.RunID)
	fmt.Printf("Stopped at           : t=%g (horizon %d ticks)\n", o.EndTime, o.Horizon)
	for _, p := range o.Populations {
		fmt.Printf("--- %s ---\n", p.Name)
		fmt.Printf("Ticks                : %d\n", p.Summary.Ticks)
		fmt.Printf("Peak infectious      : %.2f at tick %d\n", p.Summary.PeakInfectious, p.Summary.PeakTick)
		fmt.Printf("Mean infectious      : %.2f\n", p.Summary.MeanInfectious)
		f := p.Summary.Final
		fmt.Printf("Final S/I/R          : %.2f / %.2f / %.2f\n", f.S, f.I, f.R)
		fmt.Printf("Final Xs/Xi          : %.2f / %.2f\n", f.Xs, f.Xi)
		fmt.Printf("Final Dn/Di          : %.2f / %.2f\n", f.Dn, f.Di)
		if p.Extinct {
			fmt.Println("Susceptible pool exhausted")
		}
	}
	if o.Trace != nil {
		fmt.Printf("Rule firings         : %d (%d unique rules)\n", o.Trace.TotalFirings, o.Trace.UniqueRules)
		fmt.Printf("Condition errors     : %d\n", o.Trace.ConditionErrors)
	}
}

// sirxdCmd runs a compartmental scenario
var sirxdCmd = &cobra.Command{
	Use:   "sirxd",
	Short: "Run the compartmental SIRXD model from a scenario file",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		if scenarioPath == "" {
			logrus.Fatalf("--scenario is required")
		}
		sc, err := scenario.LoadCompartmental(scenarioPath)
		if err != nil {
			logrus.Fatalf("Failed to load scenario: %v", err)
		}
		if cmd.Flags().Changed("horizon") {
			if horizon != math.Trunc(horizon) {
				logrus.Fatalf("--horizon must be a whole number of ticks, got %g", horizon)
			}
			sc.Horizon = int(horizon)
		}
		if cmd.Flags().Changed("adaptive-birth-rate") {
			sc.AdaptiveBirthRate = adaptiveBirthRate
		}

		runID := uuid.NewString()
		recorder, local := newRecorder()
		out, err := runSIRXD(cmd.Context(), sc, runID, newTrace(runID), recorder)
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
