package agents

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawn_SameRNGState_SameAgent(t *testing.T) {
	cfg := DefaultConfig()
	a := Spawn(7, 12, cfg, rand.New(rand.NewSource(3)))
	b := Spawn(7, 12, cfg, rand.New(rand.NewSource(3)))
	assert.Equal(t, a, b)
}

func TestSpawn_FreshAgentIsSusceptibleAtHome(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		a := Spawn(int64(i), 5, cfg, rng)
		require.Equal(t, Susceptible, a.Health)
		require.Equal(t, a.Home, a.Location)
		require.False(t, a.Outside)
		require.Equal(t, 5.0, a.BornAt)
		require.GreaterOrEqual(t, a.RecoveryDuration, cfg.RecoveryMin)
		require.True(t, a.Home.X >= cfg.Area.XMin && a.Home.X <= cfg.Area.XMax, "home %+v outside area", a.Home)
		require.True(t, a.Home.Y >= cfg.Area.YMin && a.Home.Y <= cfg.Area.YMax, "home %+v outside area", a.Home)
	}
}

func TestAgent_HealthTransitionsAreMonotone(t *testing.T) {
	a := &Agent{Health: Susceptible, RecoveryDuration: 10}

	// recovery does nothing to a susceptible agent
	assert.False(t, a.recoverIfDue(100))
	assert.Equal(t, Susceptible, a.Health)

	require.True(t, a.infect(3))
	assert.Equal(t, Infectious, a.Health)
	assert.Equal(t, 3.0, a.InfectedAt)

	// a second infection neither changes state nor resets the clock
	assert.False(t, a.infect(8))
	assert.Equal(t, 3.0, a.InfectedAt)

	assert.False(t, a.recoverIfDue(12.9), "recovery before the drawn duration elapsed")
	assert.True(t, a.recoverIfDue(13))
	assert.Equal(t, Recovered, a.Health)

	// recovered agents are never reinfected
	assert.False(t, a.infect(20))
	assert.Equal(t, Recovered, a.Health)
}

func TestDistanceSquared(t *testing.T) {
	assert.Equal(t, 0, DistanceSquared(Location{3, 4}, Location{3, 4}))
	assert.Equal(t, 25, DistanceSquared(Location{0, 0}, Location{3, 4}))
	assert.Equal(t, 25, DistanceSquared(Location{3, 4}, Location{0, 0}))
}

func TestHealth_String(t *testing.T) {
	assert.Equal(t, "susceptible", Susceptible.String())
	assert.Equal(t, "infectious", Infectious.String())
	assert.Equal(t, "recovered", Recovered.String())
	assert.Equal(t, "unknown", Health(9).String())
}

func TestConfig_DefaultIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfig_Validate_ReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumAgents = 2
	cfg.InitialInfectious = 3
	cfg.InfectionProbability = 1.5
	cfg.GroupSampleInterval = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds num_agents")
	assert.Contains(t, err.Error(), "infection_probability")
	assert.Contains(t, err.Error(), "group_sample_interval")
}
