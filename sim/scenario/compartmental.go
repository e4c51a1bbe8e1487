// Package scenario loads YAML scenario files for both epidemic models and turns them
// into ready-to-run model objects.
package scenario

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/episim/episim/sim"
	"github.com/episim/episim/sim/epidemic"
	"github.com/episim/episim/sim/observability"
	"github.com/episim/episim/sim/trace"
)

// Compartmental is a scenario for one or more SIRXD populations.
type Compartmental struct {
	Horizon           int              `yaml:"horizon"`
	Step              float64          `yaml:"step,omitempty"`
	AdaptiveBirthRate bool             `yaml:"adaptive_birth_rate,omitempty"`
	Populations       []PopulationSpec `yaml:"populations"`
}

// PopulationSpec describes one population. When Total is set, Susceptible is derived
// from it and must be omitted.
type PopulationSpec struct {
	Name                   string              `yaml:"name"`
	Total                  epidemic.OptFloat   `yaml:"total"`
	Susceptible            float64             `yaml:"susceptible,omitempty"`
	Infectious             float64             `yaml:"infectious,omitempty"`
	Recovered              float64             `yaml:"recovered,omitempty"`
	QuarantinedSusceptible float64             `yaml:"quarantined_susceptible,omitempty"`
	QuarantinedInfectious  float64             `yaml:"quarantined_infectious,omitempty"`
	DeadNatural            float64             `yaml:"dead_natural,omitempty"`
	DeadInfection          float64             `yaml:"dead_infection,omitempty"`
	Rates                  epidemic.RateVector `yaml:"rates"`
	Events                 []EventSpec         `yaml:"events,omitempty"`
}

// EventSpec describes an event rule. Top-level events need a When condition.
// Follow-up events listed under Then are subscribed each time their parent fires and
// become due After time units later, once When (if any) also holds.
type EventSpec struct {
	Name      string                 `yaml:"name"`
	When      string                 `yaml:"when,omitempty"`
	KeepAlive bool                   `yaml:"keep_alive,omitempty"`
	Rates     epidemic.RateOverrides `yaml:"rates"`
	After     float64                `yaml:"after,omitempty"`
	Then      []EventSpec            `yaml:"then,omitempty"`
}

// LoadCompartmental reads and strictly decodes a compartmental scenario file.
// Unknown keys are an error.
func LoadCompartmental(path string) (*Compartmental, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading compartmental scenario: %w", err)
	}
	return ParseCompartmental(data)
}

// ParseCompartmental strictly decodes a compartmental scenario.
func ParseCompartmental(data []byte) (*Compartmental, error) {
	var sc Compartmental
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing compartmental scenario: %w", err)
	}
	return &sc, nil
}

// Validate checks the scenario, every population and every event.
func (c *Compartmental) Validate() error {
	if c.Horizon <= 0 {
		return fmt.Errorf("horizon must be a positive number of ticks, got %d", c.Horizon)
	}
	if c.Step < 0 {
		return fmt.Errorf("step must be positive when set, got %g", c.Step)
	}
	if len(c.Populations) == 0 {
		return fmt.Errorf("at least one population required")
	}
	seen := make(map[string]bool, len(c.Populations))
	for i := range c.Populations {
		p := &c.Populations[i]
		if err := validatePopulation(p, i); err != nil {
			return err
		}
		if seen[p.Name] {
			return fmt.Errorf("population[%d]: duplicate name %q", i, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

func validatePopulation(p *PopulationSpec, idx int) error {
	prefix := fmt.Sprintf("population[%d]", idx)
	if p.Name == "" {
		return fmt.Errorf("%s: name required", prefix)
	}
	prefix = fmt.Sprintf("population %q", p.Name)
	c := p.initial()
	for name, v := range map[string]float64{
		"susceptible":             p.Susceptible,
		"infectious":              c.I,
		"recovered":               c.R,
		"quarantined_susceptible": c.Xs,
		"quarantined_infectious":  c.Xi,
		"dead_natural":            c.Dn,
		"dead_infection":          c.Di,
	} {
		if v < 0 {
			return fmt.Errorf("%s: %s must be >= 0, got %g", prefix, name, v)
		}
	}
	if total, ok := p.Total.Get(); ok {
		if p.Susceptible != 0 {
			return fmt.Errorf("%s: total and susceptible are mutually exclusive", prefix)
		}
		if rest := c.I + c.R + c.Xs + c.Xi; total < rest {
			return fmt.Errorf("%s: total %g is smaller than the non-susceptible living compartments (%g)", prefix, total, rest)
		}
	}
	if err := p.Rates.Validate(); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	for i := range p.Events {
		if err := validateEvent(&p.Events[i], prefix+fmt.Sprintf(".events[%d]", i), true); err != nil {
			return err
		}
	}
	return nil
}

func validateEvent(e *EventSpec, prefix string, topLevel bool) error {
	if e.Name == "" {
		return fmt.Errorf("%s: name required", prefix)
	}
	prefix = fmt.Sprintf("%s (%s)", prefix, e.Name)
	if topLevel {
		if e.When == "" {
			return fmt.Errorf("%s: when required", prefix)
		}
		if e.After != 0 {
			return fmt.Errorf("%s: after only applies to follow-up events", prefix)
		}
	}
	if e.After < 0 {
		return fmt.Errorf("%s: after must be >= 0, got %g", prefix, e.After)
	}
	if e.When != "" {
		if _, err := epidemic.ParseCondition(e.When); err != nil {
			return fmt.Errorf("%s: %w", prefix, err)
		}
	}
	for i := range e.Then {
		if err := validateEvent(&e.Then[i], prefix+fmt.Sprintf(".then[%d]", i), false); err != nil {
			return err
		}
	}
	return nil
}

func (p *PopulationSpec) initial() epidemic.Compartments {
	return epidemic.Compartments{
		S:  p.Susceptible,
		I:  p.Infectious,
		R:  p.Recovered,
		Xs: p.QuarantinedSusceptible,
		Xi: p.QuarantinedInfectious,
		Dn: p.DeadNatural,
		Di: p.DeadInfection,
	}
}

// Options are the run-wide collaborators handed to every constructed population.
type Options struct {
	Recorder observability.MetricsRecorder
	Trace    *trace.SimulationTrace
}

// Build validates the scenario and constructs its populations with their event rules.
func (c *Compartmental) Build(opts Options) ([]*epidemic.Population, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid compartmental scenario: %w", err)
	}
	pops := make([]*epidemic.Population, 0, len(c.Populations))
	for i := range c.Populations {
		spec := &c.Populations[i]
		rules := make([]*epidemic.EventRule, 0, len(spec.Events))
		for j := range spec.Events {
			r, err := buildRule(&spec.Events[j], nil)
			if err != nil {
				return nil, fmt.Errorf("population %q: %w", spec.Name, err)
			}
			rules = append(rules, r)
		}
		pops = append(pops, epidemic.NewPopulation(epidemic.PopulationConfig{
			Name:              spec.Name,
			Total:             spec.Total,
			Initial:           spec.initial(),
			Rates:             spec.Rates,
			Rules:             rules,
			Step:              c.Step,
			Horizon:           c.Horizon,
			AdaptiveBirthRate: c.AdaptiveBirthRate,
			Recorder:          opts.Recorder,
			Trace:             opts.Trace,
		}))
	}
	return pops, nil
}

// buildRule turns e into an EventRule. For follow-up events, parent is the rule that
// just fired and the time condition is anchored at its firing time.
func buildRule(e *EventSpec, parent *epidemic.EventRule) (*epidemic.EventRule, error) {
	var conds epidemic.And
	if parent != nil {
		due := parent.LastFired() + e.After
		conds = append(conds, epidemic.Cmp(epidemic.Var("now"), epidemic.OpGE, epidemic.Const(due)))
	}
	if e.When != "" {
		cond, err := epidemic.ParseCondition(e.When)
		if err != nil {
			return nil, fmt.Errorf("event %q: %w", e.Name, err)
		}
		conds = append(conds, cond)
	}

	var cond epidemic.Condition = conds
	if len(conds) == 1 {
		cond = conds[0]
	}
	var opts []epidemic.RuleOption
	if e.KeepAlive {
		opts = append(opts, epidemic.WithKeepAlive())
	}
	if len(e.Then) > 0 {
		opts = append(opts, epidemic.WithCallback(subscribeFollowUps(e.Then)))
	}
	return epidemic.NewEventRule(e.Name, cond, e.Rates, opts...), nil
}

func subscribeFollowUps(specs []EventSpec) epidemic.Callback {
	return func(rule *epidemic.EventRule, p *epidemic.Population) {
		for i := range specs {
			r, err := buildRule(&specs[i], rule)
			if err != nil {
				// validated at Build time
				logrus.Warnf("population %q: follow-up of %q: %v", p.Name(), rule.Name, err)
				continue
			}
			p.Subscribe(r)
		}
	}
}

// RunPopulations starts every population on a fresh scheduler and runs it for horizon
// ticks, that is until horizon*dt of the population with the largest step.
// It returns the simulation time the run stopped at.
func RunPopulations(ctx context.Context, horizon int, pops []*epidemic.Population) (float64, error) {
	s := sim.NewScheduler()
	var until float64
	for _, p := range pops {
		p.Start(s)
		until = math.Max(until, float64(horizon)*p.StepSize())
	}
	if err := s.Run(ctx, until); err != nil {
		return s.Now(), fmt.Errorf("compartmental run interrupted at t=%g: %w", s.Now(), err)
	}
	return s.Now(), nil
}
