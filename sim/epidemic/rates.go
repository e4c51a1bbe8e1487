// Package epidemic implements the compartmental SIRXD model: rate vectors with
// explicit unset values, condition-triggered event rules, the explicit Euler step,
// and the Population process that ties them together on a sim.Scheduler.
package epidemic

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// OptFloat is a float64 that distinguishes "not supplied" from a supplied zero.
type OptFloat struct {
	Value float64
	Set   bool
}

// Some returns a supplied OptFloat holding v.
func Some(v float64) OptFloat {
	return OptFloat{Value: v, Set: true}
}

// Get returns the value and whether it was supplied.
func (o OptFloat) Get() (float64, bool) {
	return o.Value, o.Set
}

// Or returns the value if supplied, otherwise fallback.
func (o OptFloat) Or(fallback float64) float64 {
	if o.Set {
		return o.Value
	}
	return fallback
}

// UnmarshalYAML marks the field as supplied whenever the key is present with a non-null value.
// An absent key never reaches this method, so the field stays unset.
func (o *OptFloat) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		*o = OptFloat{}
		return nil
	}
	var v float64
	if err := node.Decode(&v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// MarshalYAML writes unset values as null.
func (o OptFloat) MarshalYAML() (any, error) {
	if !o.Set {
		return nil, nil
	}
	return o.Value, nil
}

// MarshalJSON writes unset values as null.
func (o OptFloat) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// RateVector holds the transition-rate coefficients of the SIRXD model.
// Beta and Lambda are derived when not supplied: β = κ·q and λ = β·I/N.
type RateVector struct {
	V      float64  `yaml:"v" json:"v"`             // (natural) birth rate
	Mu     float64  `yaml:"mu" json:"mu"`           // (natural) death rate
	Gamma  float64  `yaml:"gamma" json:"gamma"`     // recovery rate
	Kappa  float64  `yaml:"kappa" json:"kappa"`     // rate of potentially infectious contacts
	OmegaS float64  `yaml:"omega_s" json:"omega_s"` // quarantine rate for susceptible individuals
	OmegaI float64  `yaml:"omega_i" json:"omega_i"` // quarantine rate for infectious individuals
	OmegaE float64  `yaml:"omega_e" json:"omega_e"` // quarantine-end rate for susceptible individuals
	Q      float64  `yaml:"q" json:"q"`             // risk of infection per contact
	Delta  float64  `yaml:"delta" json:"delta"`     // disease death rate
	Beta   OptFloat `yaml:"beta" json:"beta"`       // infection rate
	Lambda OptFloat `yaml:"lambda" json:"lambda"`   // force of infection
}

// RateOverrides is a partial RateVector: only supplied fields are written by SetParameters.
type RateOverrides struct {
	V      OptFloat `yaml:"v" json:"v"`
	Mu     OptFloat `yaml:"mu" json:"mu"`
	Gamma  OptFloat `yaml:"gamma" json:"gamma"`
	Kappa  OptFloat `yaml:"kappa" json:"kappa"`
	OmegaS OptFloat `yaml:"omega_s" json:"omega_s"`
	OmegaI OptFloat `yaml:"omega_i" json:"omega_i"`
	OmegaE OptFloat `yaml:"omega_e" json:"omega_e"`
	Q      OptFloat `yaml:"q" json:"q"`
	Delta  OptFloat `yaml:"delta" json:"delta"`
	Beta   OptFloat `yaml:"beta" json:"beta"`
	Lambda OptFloat `yaml:"lambda" json:"lambda"`
}

// SetParameters merges o into r field by field. Supplied fields overwrite, including zeros.
func (r *RateVector) SetParameters(o RateOverrides) {
	setIf(&r.V, o.V)
	setIf(&r.Mu, o.Mu)
	setIf(&r.Gamma, o.Gamma)
	setIf(&r.Kappa, o.Kappa)
	setIf(&r.OmegaS, o.OmegaS)
	setIf(&r.OmegaI, o.OmegaI)
	setIf(&r.OmegaE, o.OmegaE)
	setIf(&r.Q, o.Q)
	setIf(&r.Delta, o.Delta)
	if o.Beta.Set {
		r.Beta = o.Beta
	}
	if o.Lambda.Set {
		r.Lambda = o.Lambda
	}
}

// SetParametersFromRule merges the overrides carried by rule.
func (r *RateVector) SetParametersFromRule(rule *EventRule) {
	r.SetParameters(rule.Overrides)
}

func setIf(dst *float64, o OptFloat) {
	if o.Set {
		*dst = o.Value
	}
}

// EffectiveBeta returns the supplied β, or κ·q when β was never supplied.
func (r RateVector) EffectiveBeta() float64 {
	return r.Beta.Or(r.Kappa * r.Q)
}

// ForceOfInfection returns the supplied λ, or β·I/N (0 when n is 0).
func (r RateVector) ForceOfInfection(infectious, n float64) float64 {
	if r.Lambda.Set {
		return r.Lambda.Value
	}
	if n == 0 {
		return 0
	}
	return r.EffectiveBeta() * infectious / n
}

// Validate reports every negative or non-finite rate.
func (r RateVector) Validate() error {
	var bad []string
	check := func(name string, v float64) {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			bad = append(bad, fmt.Sprintf("%s=%g", name, v))
		}
	}
	check("v", r.V)
	check("mu", r.Mu)
	check("gamma", r.Gamma)
	check("kappa", r.Kappa)
	check("omega_s", r.OmegaS)
	check("omega_i", r.OmegaI)
	check("omega_e", r.OmegaE)
	check("q", r.Q)
	check("delta", r.Delta)
	if r.Beta.Set {
		check("beta", r.Beta.Value)
	}
	if r.Lambda.Set {
		check("lambda", r.Lambda.Value)
	}
	if len(bad) > 0 {
		return fmt.Errorf("rates must be finite and >= 0: %s", strings.Join(bad, ", "))
	}
	return nil
}

// Fields returns the supplied overrides keyed by their YAML names.
// Returns nil when nothing is supplied.
func (o RateOverrides) Fields() map[string]float64 {
	out := make(map[string]float64)
	add := func(name string, v OptFloat) {
		if v.Set {
			out[name] = v.Value
		}
	}
	add("v", o.V)
	add("mu", o.Mu)
	add("gamma", o.Gamma)
	add("kappa", o.Kappa)
	add("omega_s", o.OmegaS)
	add("omega_i", o.OmegaI)
	add("omega_e", o.OmegaE)
	add("q", o.Q)
	add("delta", o.Delta)
	add("beta", o.Beta)
	add("lambda", o.Lambda)
	if len(out) == 0 {
		return nil
	}
	return out
}

// GrowthRate converts an absolute change x0 → x1 over periods into a per-period rate:
// (x1/x0)^(1/periods) − 1.
func GrowthRate(x1, x0, periods float64) float64 {
	if x0 == 0 || periods == 0 {
		return 0
	}
	return math.Pow(x1/x0, 1/periods) - 1
}

// RelativeRate returns a rate that takes pct percent of the period when a takes the
// remaining 100 − pct percent. For a = 0.1 and pct = 4 it returns 0.1 / 96 · 4.
func RelativeRate(a, pct float64) float64 {
	if pct >= 100 {
		return 0
	}
	return a / (100 - pct) * pct
}

// BetaFromR0 returns the infection rate that yields r0 for recovery rate gamma.
func BetaFromR0(r0, gamma float64) float64 {
	return r0 * gamma
}
