package epidemic

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Series holds one ordered sequence per compartment plus N, indexed by tick.
type Series struct {
	S  []float64 `json:"S"`
	I  []float64 `json:"I"`
	R  []float64 `json:"R"`
	Xs []float64 `json:"Xs"`
	Xi []float64 `json:"Xi"`
	Dn []float64 `json:"Dn"`
	Di []float64 `json:"Di"`
	N  []float64 `json:"N"`
}

// NewSeries returns an empty Series with room for capacity ticks.
func NewSeries(capacity int) Series {
	return Series{
		S:  make([]float64, 0, capacity),
		I:  make([]float64, 0, capacity),
		R:  make([]float64, 0, capacity),
		Xs: make([]float64, 0, capacity),
		Xi: make([]float64, 0, capacity),
		Dn: make([]float64, 0, capacity),
		Di: make([]float64, 0, capacity),
		N:  make([]float64, 0, capacity),
	}
}

// Append records c as the next tick.
func (s *Series) Append(c Compartments) {
	s.S = append(s.S, c.S)
	s.I = append(s.I, c.I)
	s.R = append(s.R, c.R)
	s.Xs = append(s.Xs, c.Xs)
	s.Xi = append(s.Xi, c.Xi)
	s.Dn = append(s.Dn, c.Dn)
	s.Di = append(s.Di, c.Di)
	s.N = append(s.N, c.Living())
}

// Len returns the number of recorded ticks.
func (s Series) Len() int {
	return len(s.S)
}

// At returns the compartments recorded at tick i.
func (s Series) At(i int) Compartments {
	return Compartments{S: s.S[i], I: s.I[i], R: s.R[i], Xs: s.Xs[i], Xi: s.Xi[i], Dn: s.Dn[i], Di: s.Di[i]}
}

// clone copies every slice so callers cannot mutate the owner's history.
func (s Series) clone() Series {
	cp := func(v []float64) []float64 { return append([]float64(nil), v...) }
	return Series{S: cp(s.S), I: cp(s.I), R: cp(s.R), Xs: cp(s.Xs), Xi: cp(s.Xi), Dn: cp(s.Dn), Di: cp(s.Di), N: cp(s.N)}
}

// SeriesSummary condenses a Series into a few scalars.
type SeriesSummary struct {
	Ticks          int          `json:"ticks"`
	PeakInfectious float64      `json:"peak_infectious"`
	PeakTick       int          `json:"peak_tick"`
	MeanInfectious float64      `json:"mean_infectious"`
	Final          Compartments `json:"final"`
}

// Summarize computes the peak and mean infectious load and the final state.
// Safe for an empty series (returns zero values).
func Summarize(s Series) SeriesSummary {
	summary := SeriesSummary{Ticks: s.Len()}
	if s.Len() == 0 {
		return summary
	}
	summary.PeakTick = floats.MaxIdx(s.I)
	summary.PeakInfectious = s.I[summary.PeakTick]
	summary.MeanInfectious = stat.Mean(s.I, nil)
	summary.Final = s.At(s.Len() - 1)
	return summary
}
