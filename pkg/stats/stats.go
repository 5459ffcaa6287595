// Package stats wraps gonum's descriptive statistics with the few estimators
// gonum does not provide directly (interpolated percentiles, robust z-scores).
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a sample.
type Summary struct {
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

// Summarize returns the summary of values. An empty sample yields zeros.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	return Summary{
		Count:  len(values),
		Sum:    floats.Sum(values),
		Mean:   mean,
		Median: Median(values),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		StdDev: std,
	}
}

// Mean returns the arithmetic mean, or 0 for an empty sample.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// WeightedMean returns the weighted mean. When the weights sum to zero the
// plain mean is returned.
func WeightedMean(values, weights []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(weights) != len(values) || floats.Sum(weights) <= 0 {
		return stat.Mean(values, nil)
	}
	return stat.Mean(values, weights)
}

// PopStdDev returns the population standard deviation.
func PopStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	_, std := stat.PopMeanStdDev(values, nil)
	return std
}

func sorted(values []float64) []float64 {
	out := append([]float64(nil), values...)
	sort.Float64s(out)
	return out
}

// Median returns the middle value, averaging the two middle values of an
// even-sized sample.
func Median(values []float64) float64 {
	return Percentile(values, 0.5)
}

// Percentile returns the p-th quantile (0 ≤ p ≤ 1) by linear interpolation
// between closest ranks.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	s := sorted(values)
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[n-1]
	}
	rank := p * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	return s[lo] + (rank-float64(lo))*(s[hi]-s[lo])
}

// RobustZScores returns the modified z-score of every value: the distance
// from the median scaled by the median absolute deviation. When more than
// half the values coincide the MAD is zero and the mean absolute deviation
// around the median is used instead.
func RobustZScores(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) < 2 {
		return out
	}
	med := Median(values)
	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - med)
	}
	if mad := Median(deviations); mad > 0 {
		for i, v := range values {
			out[i] = 0.6745 * (v - med) / mad
		}
		return out
	}
	meanAbs := stat.Mean(deviations, nil)
	if meanAbs == 0 {
		return out
	}
	for i, v := range values {
		out[i] = (v - med) / (1.253314 * meanAbs)
	}
	return out
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
