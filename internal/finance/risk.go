package finance

import (
	"math"
	"sort"
)

// DefaultPercentile is the tail probability, in percent, used for VaR.
const DefaultPercentile = 5.0

// Analyze derives the risk metrics from the terminal values of a simulation.
// MaxLoss is exactly initialCapital - VaRThreshold and is negative when the
// percentile outcome still ends above the starting capital.
func Analyze(result *SimulationResult, initialCapital, percentile float64) (RiskMetrics, error) {
	if percentile < 0 || percentile > 100 || math.IsNaN(percentile) {
		return RiskMetrics{}, invalidParam("percentile must be within [0, 100], got %f", percentile)
	}
	if result == nil || result.NumSims < 1 {
		return RiskMetrics{}, invalidParam("simulation result is empty")
	}

	finals := result.FinalValues()
	sort.Float64s(finals)

	threshold := percentileSorted(finals, percentile)
	return RiskMetrics{
		InitialCapital:   initialCapital,
		MedianFinalValue: percentileSorted(finals, 50),
		VaRThreshold:     threshold,
		MaxLoss:          initialCapital - threshold,
		Percentile:       percentile,
	}, nil
}

// Percentile returns the p-th percentile (0..100) of values using linear
// interpolation between order statistics. values is not modified.
func Percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(vals []float64, p float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return vals[0]
	}
	if p >= 100 {
		return vals[len(vals)-1]
	}
	pos := p / 100 * float64(len(vals)-1)
	lo := int(pos)
	hi := lo + 1
	frac := pos - float64(lo)
	if hi >= len(vals) || frac == 0 {
		return vals[lo]
	}
	// Clamp against round-off.
	v := vals[lo] + (vals[hi]-vals[lo])*frac
	return math.Min(math.Max(v, vals[lo]), vals[hi])
}

// DayMedians returns the median across simulations for every day, day 0
// (the initial capital) included.
func DayMedians(result *SimulationResult) []float64 {
	out := make([]float64, result.FutureDays+1)
	for d := range out {
		out[d] = Percentile(result.Day(d), 50)
	}
	return out
}

// ExpectedShortfall is the mean terminal value across outcomes at or below
// the VaR threshold.
func ExpectedShortfall(finalValues []float64, threshold float64) float64 {
	sum, n := 0.0, 0
	for _, v := range finalValues {
		if v <= threshold {
			sum += v
			n++
		}
	}
	if n == 0 {
		return threshold
	}
	return sum / float64(n)
}
