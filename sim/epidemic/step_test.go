package epidemic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEulerStep_InfectionOnly_MovesSusceptibleToInfectious(t *testing.T) {
	// GIVEN S=999, I=1 and β=0.5 with every other rate 0
	c := Compartments{S: 999, I: 1}
	r := StepRates{Beta: 0.5}

	// WHEN one step of size 1 is taken
	next := EulerStep(c, r, 1)

	// THEN dI = 0.5·999·1/1000 = 0.4995
	assert.InDelta(t, 1.4995, next.I, 1e-12)
	assert.InDelta(t, 998.5005, next.S, 1e-12)
	assert.Zero(t, next.R)
	assert.Zero(t, next.Xs)
	assert.Zero(t, next.Xi)
	assert.Zero(t, next.Dn)
	assert.Zero(t, next.Di)
}

func TestEulerStep_WithRecovery_SubtractsGammaI(t *testing.T) {
	// GIVEN the same state with γ=0.1
	c := Compartments{S: 999, I: 1}
	r := StepRates{Beta: 0.5, Gamma: 0.1}

	next := EulerStep(c, r, 1)

	// THEN γ·I leaves I and enters R
	assert.InDelta(t, 998.5005, next.S, 1e-12)
	assert.InDelta(t, 1.3995, next.I, 1e-12)
	assert.InDelta(t, 0.1, next.R, 1e-12)
	assert.Zero(t, next.Xs)
	assert.Zero(t, next.Dn)
}

func TestEulerStep_IsPure(t *testing.T) {
	c := Compartments{S: 500, I: 20, R: 5, Xs: 3, Xi: 2, Dn: 1, Di: 1}
	r := StepRates{Beta: 0.4, Gamma: 0.05, Delta: 0.01, KappaS: 0.01, KappaI: 0.1, KappaE: 0.1, V: 0.002, Mu: 0.001}
	assert.Equal(t, EulerStep(c, r, 0.5), EulerStep(c, r, 0.5))
}

func TestEulerStep_TotalAccounting(t *testing.T) {
	// GIVEN a state with every flux active and no clamping
	c := Compartments{S: 800, I: 120, R: 50, Xs: 20, Xi: 10, Dn: 3, Di: 2}
	r := StepRates{Beta: 0.3, Gamma: 0.05, Delta: 0.01, KappaS: 0.01, KappaI: 0.1, KappaE: 0.07, V: 0.004, Mu: 0.002}
	dt := 0.5
	n := c.Living()

	// WHEN stepped
	next := EulerStep(c, r, dt)

	// THEN N changes only by births minus natural and disease deaths
	want := n + (r.V*n-r.Mu*n-r.Delta*(c.I+c.Xi))*dt
	assert.InEpsilon(t, want, next.Living(), 1e-9)

	// AND the death compartments absorb exactly the deaths
	assert.InEpsilon(t, c.Dn+r.Mu*n*dt, next.Dn, 1e-9)
	assert.InEpsilon(t, c.Di+r.Delta*(c.I+c.Xi)*dt, next.Di, 1e-9)
}

func TestEulerStep_Overshoot_ClampsToZero(t *testing.T) {
	// GIVEN rates large enough to drive S and I negative
	c := Compartments{S: 10, I: 10}
	r := StepRates{Beta: 50, Gamma: 30}

	next := EulerStep(c, r, 1)

	assert.Zero(t, next.S)
	assert.Zero(t, next.I)
	assert.GreaterOrEqual(t, next.R, 0.0)
}

func TestEulerStep_EmptyPopulation_NoNaN(t *testing.T) {
	next := EulerStep(Compartments{}, StepRates{Beta: 1, V: 1}, 1)
	assert.Equal(t, Compartments{}, next)
	assert.False(t, math.IsNaN(next.S))
}

func TestAdaptiveBirthRate_MatchesDiseaseDeaths(t *testing.T) {
	// GIVEN an infected population with disease deaths
	c := Compartments{S: 900, I: 80, Xi: 20}
	r := StepRates{Beta: 0.3, Gamma: 0.05, Delta: 0.02, Mu: 0.001}

	// WHEN the birth rate is adapted
	got := AdaptiveBirthRate(c, r, 1)

	// THEN v = μ + δ·(I+Xi)·dt/N and other rates are untouched
	assert.InDelta(t, 0.001+0.02*100/1000, got.V, 1e-15)
	assert.Equal(t, r.Beta, got.Beta)

	// AND the adapted step keeps N constant
	next := EulerStep(c, got, 1)
	assert.InEpsilon(t, c.Living(), next.Living(), 1e-9)
}

func TestAdaptiveBirthRate_EmptyPopulation_Unchanged(t *testing.T) {
	r := StepRates{V: 0.5, Mu: 0.1}
	assert.Equal(t, r, AdaptiveBirthRate(Compartments{}, r, 1))
}

func TestSimulate_RecordsStepsPlusOneAndNeverNegative(t *testing.T) {
	// GIVEN the rates of the original standalone example
	initial := Compartments{S: 997, I: 3}
	r := StepRates{Beta: 0.5, Gamma: 0.03, Delta: 0.01, KappaS: 0.01, KappaI: 0.1, KappaE: 0.1, Mu: 0.005}

	// WHEN simulated for 300 steps with adaptive birth rate
	series := Simulate(initial, r, 300, 1, true)

	// THEN 301 ticks are recorded and every value is nonnegative
	assert.Equal(t, 301, series.Len())
	assert.Equal(t, initial, series.At(0))
	for i := 0; i < series.Len(); i++ {
		c := series.At(i)
		for _, v := range []float64{c.S, c.I, c.R, c.Xs, c.Xi, c.Dn, c.Di} {
			assert.GreaterOrEqual(t, v, 0.0, "tick %d", i)
		}
	}
}
