package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{2, 3, 3})
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 8.0, s.Sum)
	assert.InDelta(t, 8.0/3, s.Mean, 1e-9)
	assert.Equal(t, 3.0, s.Median)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 3.0, s.Max)
	assert.InDelta(t, math.Sqrt(2.0/9), s.StdDev, 1e-9)

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestPercentile(t *testing.T) {
	values := []float64{40, 10, 30, 20}
	assert.Equal(t, 25.0, Median(values))
	assert.Equal(t, 17.5, Percentile(values, 0.25))
	assert.Equal(t, 32.5, Percentile(values, 0.75))
	assert.Equal(t, 10.0, Percentile(values, 0))
	assert.Equal(t, 40.0, Percentile(values, 1))
	assert.Equal(t, 0.0, Percentile(nil, 0.5))
}

func TestWeightedMean(t *testing.T) {
	assert.InDelta(t, 0.3, WeightedMean([]float64{0.2, 0.4}, []float64{1, 1}), 1e-9)
	assert.InDelta(t, 0.35, WeightedMean([]float64{0.2, 0.4}, []float64{1, 3}), 1e-9)
	assert.InDelta(t, 0.3, WeightedMean([]float64{0.2, 0.4}, []float64{0, 0}), 1e-9)
}

func TestRobustZScores(t *testing.T) {
	z := RobustZScores([]float64{10, 10, 10, 100})
	assert.Greater(t, z[3], 2.0)
	assert.Equal(t, 0.0, z[0])

	z = RobustZScores([]float64{10, 10.2, 10.1})
	for _, v := range z {
		assert.Less(t, math.Abs(v), 2.0)
	}

	assert.Equal(t, []float64{0, 0, 0}, RobustZScores([]float64{5, 5, 5}))
}
