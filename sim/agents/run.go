package agents

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/episim/episim/sim"
)

// Summary condenses one agent run.
type Summary struct {
	EndTime        float64 `json:"end_time"`
	PeakInfectious int     `json:"peak_infectious"`
	PeakTime       float64 `json:"peak_time"`
	Final          Sample  `json:"final"`
	MeanR0         float64 `json:"mean_r0"`
	MeanReff       float64 `json:"mean_reff"`
	Infections     int     `json:"infections"`
	Rebirths       int     `json:"rebirths"`
}

// Result holds everything an agent run produced.
type Result struct {
	Samples []Sample `json:"samples"`
	Stats   []Stats  `json:"stats"`
	Summary Summary  `json:"summary"`
}

// Run builds a world from cfg, seeds it and runs until cfg.Horizon or until no infectious
// agent remains. The aggregator is registered before the agents so each sample sees the
// state left by the previous instant.
func Run(ctx context.Context, cfg Config, opts ...Option) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent configuration: %w", err)
	}
	start := time.Now()
	s := sim.NewScheduler()
	w := NewWorld(s, cfg, opts...)
	agg := NewAggregator(w, cfg.GroupSampleInterval, cfg.StatsWindow)
	agg.Start(s)
	w.Start()
	w.Seed(cfg.InitialInfectious)

	if err := s.Run(ctx, cfg.Horizon); err != nil {
		return nil, fmt.Errorf("agent run interrupted at t=%g: %w", s.Now(), err)
	}
	w.recorder.RecordRun(ctx, "agents", time.Since(start))

	res := &Result{Samples: agg.Samples(), Stats: agg.Stats()}
	res.Summary = Summarize(res.Samples, res.Stats)
	res.Summary.EndTime = s.Now()
	res.Summary.Infections = w.Infections()
	res.Summary.Rebirths = w.Rebirths()
	return res, nil
}

// Summarize finds the infection peak and averages R0 and Reff over the derived stats.
func Summarize(samples []Sample, stats []Stats) Summary {
	var sum Summary
	if len(samples) > 0 {
		inf := make([]float64, len(samples))
		for i, smp := range samples {
			inf[i] = float64(smp.I)
		}
		peak := floats.MaxIdx(inf)
		sum.PeakInfectious = samples[peak].I
		sum.PeakTime = samples[peak].T
		sum.Final = samples[len(samples)-1]
		sum.EndTime = sum.Final.T
	}
	if len(stats) > 0 {
		r0 := make([]float64, len(stats))
		reff := make([]float64, len(stats))
		for i, st := range stats {
			r0[i], reff[i] = st.R0, st.Reff
		}
		sum.MeanR0 = stat.Mean(r0, nil)
		sum.MeanReff = stat.Mean(reff, nil)
	}
	return sum
}
