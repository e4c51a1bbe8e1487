package epidemic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSetParameters_ZeroOverride_IsApplied(t *testing.T) {
	// GIVEN nonzero rates
	r := RateVector{Gamma: 0.1, OmegaS: 0.01, Beta: Some(0.5)}

	// WHEN overriding with explicit zeros
	r.SetParameters(RateOverrides{OmegaS: Some(0), Beta: Some(0)})

	// THEN the zeros are stored and untouched fields keep their values
	assert.Zero(t, r.OmegaS)
	assert.True(t, r.Beta.Set)
	assert.Zero(t, r.EffectiveBeta())
	assert.Equal(t, 0.1, r.Gamma)
}

func TestSetParameters_UnsetFields_AreKept(t *testing.T) {
	r := RateVector{V: 0.01, Mu: 0.005, Gamma: 0.03, Kappa: 2, Q: 0.1, Delta: 0.01}
	before := r
	r.SetParameters(RateOverrides{})
	assert.Equal(t, before, r)
}

func TestSetParametersFromRule_UsesRuleOverrides(t *testing.T) {
	r := RateVector{Gamma: 0.1}
	rule := NewEventRule("quarantine", Bool(true), RateOverrides{OmegaI: Some(0.1), OmegaE: Some(1.0 / 14)})
	r.SetParametersFromRule(rule)
	assert.Equal(t, 0.1, r.OmegaI)
	assert.InDelta(t, 1.0/14, r.OmegaE, 1e-15)
}

func TestEffectiveBeta_DerivedFromContactsWhenUnset(t *testing.T) {
	r := RateVector{Kappa: 4, Q: 0.05}
	assert.InDelta(t, 0.2, r.EffectiveBeta(), 1e-15)

	r.Beta = Some(0.7)
	assert.Equal(t, 0.7, r.EffectiveBeta())
}

func TestForceOfInfection(t *testing.T) {
	r := RateVector{Beta: Some(0.5)}
	assert.InDelta(t, 0.5*10/1000, r.ForceOfInfection(10, 1000), 1e-15)
	assert.Zero(t, r.ForceOfInfection(10, 0))

	r.Lambda = Some(0.3)
	assert.Equal(t, 0.3, r.ForceOfInfection(10, 1000))
}

func TestRateVector_Validate(t *testing.T) {
	assert.NoError(t, RateVector{Gamma: 0.1, Beta: Some(0)}.Validate())

	err := RateVector{Gamma: -0.1, Beta: Some(-1)}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gamma=-0.1")
	assert.Contains(t, err.Error(), "beta=-1")
}

func TestOptFloat_YAML_PresentZeroIsSet(t *testing.T) {
	// GIVEN YAML with an explicit zero, an explicit value and a null
	var o RateOverrides
	require.NoError(t, yaml.Unmarshal([]byte("omega_s: 0\nbeta: 0.25\ngamma: ~\n"), &o))

	// THEN present keys are set, including the zero; null and absent keys are unset
	assert.Equal(t, Some(0), o.OmegaS)
	assert.Equal(t, Some(0.25), o.Beta)
	assert.False(t, o.Gamma.Set)
	assert.False(t, o.Mu.Set)
	assert.Equal(t, map[string]float64{"omega_s": 0, "beta": 0.25}, o.Fields())
}

func TestOptFloat_YAML_RejectsNonNumbers(t *testing.T) {
	var o RateOverrides
	assert.Error(t, yaml.Unmarshal([]byte("beta: fast\n"), &o))
}

func TestRateOverrides_Fields_EmptyIsNil(t *testing.T) {
	assert.Nil(t, RateOverrides{}.Fields())
}

func TestRateHelpers(t *testing.T) {
	assert.InDelta(t, 0.1, GrowthRate(121, 100, 2), 1e-12)
	assert.Zero(t, GrowthRate(5, 0, 3))
	assert.InDelta(t, 0.1/96*4, RelativeRate(0.1, 4), 1e-15)
	assert.InDelta(t, 0.25, BetaFromR0(2.5, 0.1), 1e-15)
}

func TestOptFloat_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		A OptFloat `json:"a"`
		B OptFloat `json:"b"`
	}{A: Some(0.25)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 0.25, "b": null}`, string(data))
}
