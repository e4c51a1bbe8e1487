package agents

import (
	"math"
	"math/rand"
)

// Health is an agent's infection state. Transitions are monotone:
// Susceptible → Infectious → Recovered.
type Health int

const (
	Susceptible Health = iota
	Infectious
	Recovered
)

func (h Health) String() string {
	switch h {
	case Susceptible:
		return "susceptible"
	case Infectious:
		return "infectious"
	case Recovered:
		return "recovered"
	}
	return "unknown"
}

// Location is a point on the integer grid.
type Location struct {
	X, Y int
}

// DistanceSquared returns the squared Euclidean distance between a and b.
func DistanceSquared(a, b Location) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

// Agent is one individual of the stochastic model.
type Agent struct {
	ID               int64
	Home             Location
	Location         Location
	Outside          bool
	Health           Health
	BornAt           float64
	Lifespan         float64
	InfectedAt       float64
	RecoveryDuration float64
}

// Age returns the agent's age at now.
func (a *Agent) Age(now float64) float64 {
	return now - a.BornAt
}

// Spawn returns a freshly initialized, susceptible agent at home.
// The same rng state and arguments always produce the same agent.
func Spawn(id int64, now float64, cfg Config, rng *rand.Rand) *Agent {
	home := randomLocation(cfg.Area, rng)
	return &Agent{
		ID:               id,
		Home:             home,
		Location:         home,
		Health:           Susceptible,
		BornAt:           now,
		Lifespan:         rng.NormFloat64()*cfg.LifespanStdDev + cfg.LifespanMean,
		RecoveryDuration: math.Max(rng.NormFloat64()*cfg.RecoveryStdDev+cfg.RecoveryMean, cfg.RecoveryMin),
	}
}

// infect makes a susceptible agent infectious. It reports whether the state changed.
func (a *Agent) infect(now float64) bool {
	if a.Health != Susceptible {
		return false
	}
	a.Health = Infectious
	a.InfectedAt = now
	return true
}

// recoverIfDue moves an infectious agent to Recovered once its drawn recovery duration has
// elapsed. It reports whether the state changed.
func (a *Agent) recoverIfDue(now float64) bool {
	if a.Health != Infectious || now-a.InfectedAt < a.RecoveryDuration {
		return false
	}
	a.Health = Recovered
	return true
}

func randomLocation(area Area, rng *rand.Rand) Location {
	return Location{
		X: randIntInclusive(rng, area.XMin, area.XMax),
		Y: randIntInclusive(rng, area.YMin, area.YMax),
	}
}

func randIntInclusive(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}
