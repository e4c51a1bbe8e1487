package agents

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/episim/episim/sim"
	"github.com/episim/episim/sim/observability"
	"github.com/episim/episim/sim/trace"
)

// World owns the agent slots and their life processes. The number of slots is fixed
// for the whole run; rebirth replaces the agent in a slot with a new one.
type World struct {
	cfg      Config
	sched    *sim.Scheduler
	rng      *sim.PartitionedRNG
	agents   []*Agent
	lives    []*sim.Handle
	nextID   int64
	recorder observability.MetricsRecorder
	trace    *trace.SimulationTrace

	infections int
	rebirths   int
}

// Option configures a World.
type Option func(*World)

// WithRecorder sets the metrics recorder. The default records nothing.
func WithRecorder(r observability.MetricsRecorder) Option {
	return func(w *World) {
		if r != nil {
			w.recorder = r
		}
	}
}

// WithTrace sets the event trace. A nil trace records nothing.
func WithTrace(st *trace.SimulationTrace) Option {
	return func(w *World) { w.trace = st }
}

// NewWorld spawns cfg.NumAgents agents at the scheduler's current time. No process is
// started until Start is called.
func NewWorld(s *sim.Scheduler, cfg Config, opts ...Option) *World {
	if err := cfg.Validate(); err != nil {
		logrus.Warnf("agent model configuration is invalid: %v", err)
	}
	w := &World{
		cfg:      cfg,
		sched:    s,
		rng:      sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)),
		recorder: observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(w)
	}
	n := max(cfg.NumAgents, 0)
	w.agents = make([]*Agent, n)
	for i := range w.agents {
		w.agents[i] = w.spawn()
	}
	return w
}

// Config returns the configuration the world was built with.
func (w *World) Config() Config { return w.cfg }

// Size returns the number of agent slots.
func (w *World) Size() int { return len(w.agents) }

// Agent returns the agent currently occupying slot i.
func (w *World) Agent(i int) *Agent { return w.agents[i] }

// Infections returns the number of infections that happened after seeding.
func (w *World) Infections() int { return w.infections }

// Rebirths returns the number of agents replaced after reaching their lifespan.
func (w *World) Rebirths() int { return w.rebirths }

// Count returns the number of susceptible, infectious and recovered agents.
func (w *World) Count() (s, i, r int) {
	for _, a := range w.agents {
		switch a.Health {
		case Susceptible:
			s++
		case Infectious:
			i++
		case Recovered:
			r++
		}
	}
	return s, i, r
}

// Seed infects k distinct agents chosen uniformly at random.
func (w *World) Seed(k int) {
	if k > len(w.agents) {
		logrus.Warnf("cannot seed %d infectious agents in a world of %d; seeding all", k, len(w.agents))
		k = len(w.agents)
	}
	now := w.sched.Now()
	perm := w.rng.ForSubsystem(sim.SubsystemSeeding).Perm(len(w.agents))
	for _, slot := range perm[:max(k, 0)] {
		w.agents[slot].infect(now)
		logrus.Debugf("[t=%g] seeded agent %d as infectious", now, w.agents[slot].ID)
	}
}

// Start registers one life process per slot.
func (w *World) Start() {
	w.lives = make([]*sim.Handle, len(w.agents))
	for i := range w.agents {
		l := &life{w: w, slot: i, rng: w.rng.ForSubsystem(sim.SubsystemAgent(i))}
		w.lives[i] = w.sched.Start(fmt.Sprintf("agent/%d", i), l)
	}
}

// StopAll interrupts every life process that is still running.
func (w *World) StopAll(cause string) {
	for _, h := range w.lives {
		if !h.IsAlive() {
			continue
		}
		if err := w.sched.Interrupt(h, cause); err != nil {
			logrus.Debugf("interrupting %s: %v", h.Name(), err)
		}
	}
}

func (w *World) spawn() *Agent {
	w.nextID++
	return Spawn(w.nextID, w.sched.Now(), w.cfg, w.rng.ForSubsystem(sim.SubsystemSpawn))
}

func (w *World) rebirth(slot int) {
	old := w.agents[slot]
	w.agents[slot] = w.spawn()
	w.rebirths++
	w.recorder.RecordRebirth(w.sched.Context())
	logrus.Debugf("[t=%g] agent %d died at age %.1f; slot %d reborn as agent %d",
		w.sched.Now(), old.ID, old.Age(w.sched.Now()), slot, w.agents[slot].ID)
}

func (w *World) infect(a *Agent) {
	if !a.infect(w.sched.Now()) {
		return
	}
	w.infections++
	w.recorder.RecordInfection(w.sched.Context())
	logrus.Debugf("[t=%g] agent %d infected at %+v", w.sched.Now(), a.ID, a.Location)
}

// goOutside moves the agent in slot to loc and runs the exposure scan against every
// other agent that is outside within the exposure radius.
func (w *World) goOutside(slot int, loc Location) {
	a := w.agents[slot]
	a.Location = loc
	a.Outside = true

	rng := w.rng.ForSubsystem(sim.SubsystemExposure)
	switch a.Health {
	case Susceptible:
		if w.infectiousNearby(a) && rng.Float64() < w.cfg.InfectionProbability {
			w.infect(a)
		}
	case Infectious:
		for _, other := range w.agents {
			if other == a || !other.Outside || other.Health != Susceptible || !w.inRange(a, other) {
				continue
			}
			if rng.Float64() < w.cfg.InfectionProbability {
				w.infect(other)
			}
		}
	}
}

func (w *World) infectiousNearby(a *Agent) bool {
	for _, other := range w.agents {
		if other != a && other.Outside && other.Health == Infectious && w.inRange(a, other) {
			return true
		}
	}
	return false
}

func (w *World) inRange(a, b *Agent) bool {
	return float64(DistanceSquared(a.Location, b.Location)) <= w.cfg.ExposureRadiusSquared
}

// === Life process ===

type lifePhase int

const (
	phaseDawn     lifePhase = iota // drawing the day's routine
	phaseAwake                     // sleep is over
	phaseBackHome                  // returning from outside
)

// life is the daily routine of one slot: sleep, then either a day outside
// (with an exposure scan) or a day at home. Rebirth happens at dawn.
type life struct {
	w     *World
	slot  int
	rng   *rand.Rand
	phase lifePhase

	dayLength    float64
	goingOutside bool
}

func (l *life) Step(s *sim.Scheduler, intr *sim.Interrupt) sim.Wait {
	if intr != nil {
		logrus.Debugf("[t=%g] agent slot %d stopped: %s", s.Now(), l.slot, intr.Cause)
		return sim.Exit()
	}
	now := s.Now()
	a := l.w.agents[l.slot]

	switch l.phase {
	case phaseAwake:
		if a.recoverIfDue(now) {
			logrus.Debugf("[t=%g] agent %d recovered", now, a.ID)
		}
		if l.goingOutside {
			l.w.goOutside(l.slot, randomLocation(l.w.cfg.Area, l.rng))
			l.phase = phaseBackHome
		} else {
			l.phase = phaseDawn
		}
		return sim.Timeout(l.dayLength)
	case phaseBackHome:
		a.Outside = false
		a.Location = a.Home
	}

	sleep := float64(randIntInclusive(l.rng, l.w.cfg.SleepMin, l.w.cfg.SleepMax))
	l.dayLength = float64(randIntInclusive(l.rng, l.w.cfg.DayMin, l.w.cfg.DayMax))
	l.goingOutside = l.rng.Float64() < l.w.cfg.OutsideProbability
	if a.Age(now) >= a.Lifespan {
		l.w.rebirth(l.slot)
	}
	l.phase = phaseAwake
	return sim.Timeout(sleep)
}
