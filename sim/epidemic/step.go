package epidemic

// Compartments holds the sizes of the seven SIRXD compartments.
type Compartments struct {
	S  float64 // susceptible
	I  float64 // infectious
	R  float64 // recovered
	Xs float64 // susceptible in quarantine
	Xi float64 // infectious in quarantine
	Dn float64 // naturally deceased
	Di float64 // deceased from the disease
}

// Living returns N = S + I + R + Xs + Xi. Death compartments are excluded.
func (c Compartments) Living() float64 {
	return c.S + c.I + c.R + c.Xs + c.Xi
}

// StepRates are the coefficients consumed by EulerStep.
type StepRates struct {
	Beta   float64 // infection rate
	Gamma  float64 // recovery rate
	Delta  float64 // disease death rate
	KappaS float64 // quarantine-in rate, susceptible
	KappaI float64 // quarantine-in rate, infectious
	KappaE float64 // quarantine-out rate, susceptible
	V      float64 // birth rate
	Mu     float64 // natural death rate
}

// StepRatesFrom maps a RateVector onto the step coefficients.
func StepRatesFrom(r RateVector) StepRates {
	return StepRates{
		Beta:   r.EffectiveBeta(),
		Gamma:  r.Gamma,
		Delta:  r.Delta,
		KappaS: r.OmegaS,
		KappaI: r.OmegaI,
		KappaE: r.OmegaE,
		V:      r.V,
		Mu:     r.Mu,
	}
}

// EulerStep advances c by one explicit Euler step of size dt.
// Every compartment is clamped to a minimum of 0 afterwards. When N is 0 the
// infection term β·S·I/N is taken as 0.
func EulerStep(c Compartments, r StepRates, dt float64) Compartments {
	n := c.Living()
	infection := 0.0
	if n > 0 {
		infection = r.Beta * c.S * c.I / n
	}

	dS := (r.V*n + r.KappaE*c.Xs - infection - r.KappaS*c.S - r.Mu*c.S) * dt
	dI := (infection - r.Gamma*c.I - r.KappaS*c.I - r.KappaI*c.I - r.Delta*c.I - r.Mu*c.I) * dt
	dR := (r.Gamma*c.I + r.Gamma*c.Xi - r.Mu*c.R) * dt
	dXs := (r.KappaS*c.S - r.KappaE*c.Xs - r.Mu*c.Xs) * dt
	dXi := (r.KappaS*c.I + r.KappaI*c.I - r.Gamma*c.Xi - r.Delta*c.Xi - r.Mu*c.Xi) * dt
	dDn := (r.Mu*c.S + r.Mu*c.Xs + r.Mu*c.I + r.Mu*c.Xi + r.Mu*c.R) * dt
	dDi := (r.Delta*c.I + r.Delta*c.Xi) * dt

	return Compartments{
		S:  max(c.S+dS, 0),
		I:  max(c.I+dI, 0),
		R:  max(c.R+dR, 0),
		Xs: max(c.Xs+dXs, 0),
		Xi: max(c.Xi+dXi, 0),
		Dn: max(c.Dn+dDn, 0),
		Di: max(c.Di+dDi, 0),
	}
}

// AdaptiveBirthRate returns r with V replaced by μ + δ·(I+Xi)·dt/N, so births
// also replace the disease deaths of the coming step. r is returned unchanged when N is 0.
func AdaptiveBirthRate(c Compartments, r StepRates, dt float64) StepRates {
	n := c.Living()
	if n == 0 {
		return r
	}
	r.V = r.Mu + r.Delta*(c.I+c.Xi)*dt/n
	return r
}

// Simulate runs steps Euler steps with constant rates and no scheduler.
// The returned series has steps+1 entries; entry 0 is initial.
func Simulate(initial Compartments, r StepRates, steps int, dt float64, adaptiveBirthRate bool) Series {
	series := NewSeries(steps + 1)
	series.Append(initial)
	c := initial
	for i := 0; i < steps; i++ {
		rates := r
		if adaptiveBirthRate {
			rates = AdaptiveBirthRate(c, r, dt)
		}
		c = EulerStep(c, rates, dt)
		series.Append(c)
	}
	return series
}
