package epidemic

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/episim/episim/sim"
	"github.com/episim/episim/sim/observability"
	"github.com/episim/episim/sim/trace"
)

// PopulationConfig groups the construction arguments of a Population.
type PopulationConfig struct {
	Name string
	// Total, when supplied, derives S as Total − I − R − Xs − Xi and ignores Initial.S.
	Total   OptFloat
	Initial Compartments
	Rates   RateVector
	Rules   []*EventRule
	// Step is the fixed dt of every tick (defaults to 1).
	Step float64
	// Horizon caps the number of ticks; 0 leaves the length to the scheduler run.
	Horizon           int
	AdaptiveBirthRate bool
	Recorder          observability.MetricsRecorder
	Trace             *trace.SimulationTrace
}

// Population is a compartmental SIRXD entity. Its process applies due event rules,
// performs one Euler step and records the result every tick until S reaches 0.
// Tick k runs at start + k*dt, so the series index is the tick number.
type Population struct {
	name     string
	rates    RateVector
	rules    []*EventRule
	current  Compartments
	series   Series
	dt       float64
	horizon  int
	ticks    int
	origin   float64
	adaptive bool
	extinct  bool
	recorder observability.MetricsRecorder
	trace    *trace.SimulationTrace
}

// NewPopulation creates a Population. Invalid arguments are logged as warnings and
// construction proceeds.
func NewPopulation(cfg PopulationConfig) *Population {
	initial := cfg.Initial
	if cfg.Total.Set {
		initial.S = cfg.Total.Value - (initial.I + initial.R + initial.Xs + initial.Xi)
	}
	warnInvalid(cfg.Name, cfg.Total, initial, cfg.Rates)

	dt := cfg.Step
	if dt <= 0 {
		if cfg.Step < 0 {
			logrus.Warnf("population %q: step %g must be positive, using 1", cfg.Name, cfg.Step)
		}
		dt = 1
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = observability.NoopMetrics{}
	}

	p := &Population{
		name:     cfg.Name,
		rates:    cfg.Rates,
		rules:    make([]*EventRule, 0, len(cfg.Rules)),
		current:  initial,
		series:   NewSeries(0),
		dt:       dt,
		horizon:  cfg.Horizon,
		adaptive: cfg.AdaptiveBirthRate,
		recorder: recorder,
		trace:    cfg.Trace,
	}
	p.series.Append(initial)
	p.Subscribe(cfg.Rules...)
	return p
}

func warnInvalid(name string, total OptFloat, c Compartments, rates RateVector) {
	if c.I < 1 {
		logrus.Warnf("population %q: infectious seed is too small: %g", name, c.I)
	}
	if total.Set && total.Value < 0 {
		logrus.Warnf("population %q: total must not be negative: %g", name, total.Value)
	}
	if c.S < 0 || c.R < 0 || c.Xs < 0 || c.Xi < 0 || c.Dn < 0 || c.Di < 0 {
		logrus.Warnf("population %q: compartment sizes must not be negative: %+v", name, c)
	}
	if err := rates.Validate(); err != nil {
		logrus.Warnf("population %q: %v", name, err)
	}
}

// Name returns the population name.
func (p *Population) Name() string { return p.name }

// Compartments returns the current compartment sizes.
func (p *Population) Compartments() Compartments { return p.current }

// N returns the current living total.
func (p *Population) N() float64 { return p.current.Living() }

// Rates returns a copy of the current rate vector.
func (p *Population) Rates() RateVector { return p.rates }

// StepSize returns the fixed tick size.
func (p *Population) StepSize() float64 { return p.dt }

// Ticks returns the number of Euler steps taken so far.
func (p *Population) Ticks() int { return p.ticks }

// Extinct reports whether S reached 0 and the process stopped.
func (p *Population) Extinct() bool { return p.extinct }

// Series returns a copy of the recorded history.
func (p *Population) Series() Series { return p.series.clone() }

// Rules returns the currently subscribed rules, dead ones included until the next purge.
func (p *Population) Rules() []*EventRule {
	return append([]*EventRule(nil), p.rules...)
}

// SetParameters merges overrides into the population's rates.
func (p *Population) SetParameters(o RateOverrides) {
	p.rates.SetParameters(o)
}

// Subscribe appends rules to the population's rule list. Nil rules are logged and skipped.
func (p *Population) Subscribe(rules ...*EventRule) {
	for _, r := range rules {
		if r == nil {
			logrus.Warnf("population %q: nil event rule could not be subscribed", p.name)
			continue
		}
		p.rules = append(p.rules, r)
	}
}

// Snapshot returns the read-only view that conditions are evaluated against.
func (p *Population) Snapshot(now float64) Snapshot {
	return Snapshot{
		Now:          now,
		Population:   p.name,
		Compartments: p.current,
		N:            p.current.Living(),
		Rates:        p.rates,
	}
}

// Start registers the population's process with s.
func (p *Population) Start(s *sim.Scheduler) *sim.Handle {
	return s.Start("population/"+p.name, p)
}

// Step implements sim.Process: one tick of the population.
func (p *Population) Step(s *sim.Scheduler, intr *sim.Interrupt) sim.Wait {
	if intr != nil {
		logrus.Infof("[t=%g] population %q stopped: %s", s.Now(), p.name, intr.Cause)
		return sim.Exit()
	}
	if p.extinct {
		return sim.Exit()
	}
	ctx := s.Context()
	now := s.Now()
	if p.horizon > 0 && p.ticks >= p.horizon {
		logrus.Debugf("[t=%g] population %q reached its horizon of %d ticks", now, p.name, p.horizon)
		return sim.Exit()
	}
	if p.ticks == 0 {
		p.origin = now
	}

	p.executeRules(ctx, now)

	rates := StepRatesFrom(p.rates)
	if p.adaptive {
		rates = AdaptiveBirthRate(p.current, rates, p.dt)
	}
	p.current = EulerStep(p.current, rates, p.dt)
	p.series.Append(p.current)
	p.ticks++
	p.recorder.RecordTick(ctx, p.name)
	logrus.Debugf("[t=%g] population %q: %+v N=%g", now, p.name, p.current, p.current.Living())

	if p.current.S <= 0 {
		p.extinct = true
		logrus.Infof("[t=%g] population %q has no susceptible individuals left", now, p.name)
		p.trace.RecordTermination(trace.TerminationRecord{Entity: p.name, Clock: now, Reason: "extinct"})
		return sim.Exit()
	}
	return sim.Until(p.origin + float64(p.ticks)*p.dt)
}

// executeRules purges dead rules, evaluates every remaining condition against one
// snapshot, then executes the due rules in registration order.
func (p *Population) executeRules(ctx context.Context, now float64) {
	alive := make([]*EventRule, 0, len(p.rules))
	for _, r := range p.rules {
		if r.Alive() {
			alive = append(alive, r)
		}
	}
	p.rules = alive

	snap := p.Snapshot(now)
	due := make([]*EventRule, 0)
	for _, r := range p.rules {
		ok, err := r.Check(snap)
		if err != nil {
			logrus.Warnf("[t=%g] population %q: condition of rule %q could not be evaluated: %v", now, p.name, r.Name, err)
			p.recorder.RecordConditionError(ctx, p.name, r.Name)
			p.trace.RecordConditionError(trace.ConditionErrorRecord{Population: p.name, Rule: r.Name, Clock: now, Err: err.Error()})
			continue
		}
		if ok {
			due = append(due, r)
		}
	}
	for _, r := range due {
		p.execute(ctx, r, now)
	}
}

func (p *Population) execute(ctx context.Context, r *EventRule, now float64) {
	logrus.Infof("[t=%g] event rule %q is executing on population %q", now, r.Name, p.name)
	p.rates.SetParametersFromRule(r)
	r.fired++
	r.lastFired = now
	before := len(p.rules)
	if r.Callback != nil {
		r.Callback(r, p)
	}
	r.dead = !r.KeepAlive

	p.recorder.RecordRuleFired(ctx, p.name, r.Name)
	p.trace.RecordRule(trace.RuleRecord{
		Population: p.name,
		Rule:       r.Name,
		Clock:      now,
		Overrides:  r.Overrides.Fields(),
		Chained:    len(p.rules) - before,
	})
}

// String implements fmt.Stringer.
func (p *Population) String() string {
	return fmt.Sprintf("Population(%s, S=%g I=%g R=%g Xs=%g Xi=%g Dn=%g Di=%g)",
		p.name, p.current.S, p.current.I, p.current.R, p.current.Xs, p.current.Xi, p.current.Dn, p.current.Di)
}
