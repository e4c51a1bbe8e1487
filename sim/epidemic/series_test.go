package epidemic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_EmptySeries_ZeroValues(t *testing.T) {
	summary := Summarize(NewSeries(0))
	assert.Equal(t, SeriesSummary{}, summary)
}

func TestSummarize_FindsPeakAndMean(t *testing.T) {
	s := NewSeries(4)
	s.Append(Compartments{S: 97, I: 3})
	s.Append(Compartments{S: 90, I: 9, R: 1})
	s.Append(Compartments{S: 80, I: 12, R: 8})
	s.Append(Compartments{S: 78, I: 4, R: 17, Di: 1})

	summary := Summarize(s)

	assert.Equal(t, 4, summary.Ticks)
	assert.Equal(t, 2, summary.PeakTick)
	assert.Equal(t, 12.0, summary.PeakInfectious)
	assert.InDelta(t, 7.0, summary.MeanInfectious, 1e-12)
	assert.Equal(t, Compartments{S: 78, I: 4, R: 17, Di: 1}, summary.Final)
	assert.Equal(t, []float64{100, 100, 100, 99}, s.N)
}
