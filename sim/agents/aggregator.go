package agents

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/episim/episim/sim"
	"github.com/episim/episim/sim/trace"
)

// Sample is one group count taken by the Aggregator.
type Sample struct {
	T float64 `json:"t"`
	S int     `json:"s"`
	I int     `json:"i"`
	R int     `json:"r"`
}

// N returns the number of agents counted in the sample.
func (s Sample) N() int { return s.S + s.I + s.R }

// Stats are epidemic parameters estimated over one stats window. T is the time of the
// newer of the two samples.
type Stats struct {
	T      float64 `json:"t"`
	Lambda float64 `json:"lambda"`
	Beta   float64 `json:"beta"`
	Gamma  float64 `json:"gamma"`
	R0     float64 `json:"r0"`
	Reff   float64 `json:"reff"`
}

// DeriveStats estimates the epidemic parameters from two samples one window apart.
// Every ratio with a zero denominator is reported as 0.
//
//	λ = -ΔS / S    β = λ·N / I    γ = ΔR / I    R0 = β / γ    Reff = R0·S / N
func DeriveStats(prev, cur Sample, n int) Stats {
	dS := float64(cur.S - prev.S)
	dR := float64(cur.R - prev.R)
	cS, cI, fn := float64(cur.S), float64(cur.I), float64(n)

	st := Stats{T: cur.T}
	if cS != 0 {
		st.Lambda = -dS / cS
	}
	if cI != 0 {
		st.Beta = st.Lambda * fn / cI
		st.Gamma = dR / cI
	}
	if st.Gamma != 0 {
		st.R0 = st.Beta / st.Gamma
	}
	if fn != 0 {
		st.Reff = st.R0 * cS / fn
	}
	return st
}

// Aggregator samples the world's health counts at a fixed interval and derives Stats over
// a sliding window. When no infectious agent remains it stops every life process.
type Aggregator struct {
	world    *World
	interval float64
	window   float64
	lag      int

	samples []Sample
	stats   []Stats
	trace   *trace.SimulationTrace
}

// NewAggregator returns an Aggregator for w. The stats lag is window/interval samples,
// rounded to the nearest integer and at least 1.
func NewAggregator(w *World, interval, window float64) *Aggregator {
	lag := 1
	if interval > 0 {
		lag = max(int(math.Round(window/interval)), 1)
	}
	return &Aggregator{
		world:    w,
		interval: interval,
		window:   window,
		lag:      lag,
		trace:    w.trace,
	}
}

// Start registers the group counter and the stats process.
func (g *Aggregator) Start(s *sim.Scheduler) (groups, stats *sim.Handle) {
	groups = s.Start("aggregator/groups", sim.ProcessFunc(g.countGroups))
	stats = s.StartAfter("aggregator/stats", sim.ProcessFunc(g.deriveStats), g.window)
	return groups, stats
}

// Samples returns a copy of the samples taken so far.
func (g *Aggregator) Samples() []Sample {
	return append([]Sample(nil), g.samples...)
}

// Stats returns a copy of the stats derived so far.
func (g *Aggregator) Stats() []Stats {
	return append([]Stats(nil), g.stats...)
}

func (g *Aggregator) countGroups(s *sim.Scheduler, intr *sim.Interrupt) sim.Wait {
	if intr != nil {
		return sim.Exit()
	}
	cs, ci, cr := g.world.Count()
	g.samples = append(g.samples, Sample{T: s.Now(), S: cs, I: ci, R: cr})
	if ci == 0 {
		logrus.Infof("[t=%g] no infectious agents left; stopping %d agents", s.Now(), g.world.Size())
		g.trace.RecordTermination(trace.TerminationRecord{Entity: "aggregator", Clock: s.Now(), Reason: "no infectious agents"})
		g.world.StopAll("no infectious agents")
		return sim.Exit()
	}
	return sim.Timeout(g.interval)
}

func (g *Aggregator) deriveStats(s *sim.Scheduler, intr *sim.Interrupt) sim.Wait {
	if intr != nil {
		return sim.Exit()
	}
	if n := len(g.samples); n <= g.lag {
		if n > 0 && g.samples[n-1].I == 0 {
			return sim.Exit()
		}
		return sim.Timeout(g.window)
	}
	cur := g.samples[len(g.samples)-1]
	prev := g.samples[len(g.samples)-1-g.lag]
	st := DeriveStats(prev, cur, g.world.Size())
	g.stats = append(g.stats, st)
	logrus.Debugf("[t=%g] stats: λ=%.4f β=%.4f γ=%.4f R0=%.3f Reff=%.3f", s.Now(), st.Lambda, st.Beta, st.Gamma, st.R0, st.Reff)
	if cur.I == 0 {
		return sim.Exit()
	}
	return sim.Timeout(g.window)
}
