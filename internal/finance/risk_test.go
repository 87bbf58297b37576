package finance

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	values := []float64{5, 1, 4, 2, 3}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{10, 1.4},
		{25, 2},
		{50, 3},
		{90, 4.6},
		{100, 5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Percentile(values, tt.p), 1e-12, "p=%v", tt.p)
	}
	assert.Equal(t, []float64{5, 1, 4, 2, 3}, values, "input must not be reordered")
	assert.Equal(t, 7.0, Percentile([]float64{7}, 5))
	assert.Equal(t, 2.5, Percentile([]float64{2.5, 2.5, 2.5}, 37))
}

func TestAnalyze_Ordering(t *testing.T) {
	result, err := Simulate(defaultParams(), NewSource(11))
	require.NoError(t, err)

	metrics, err := Analyze(result, result.InitialCapital, DefaultPercentile)
	require.NoError(t, err)

	finals := result.FinalValues()
	sort.Float64s(finals)
	assert.LessOrEqual(t, finals[0], metrics.VaRThreshold)
	assert.LessOrEqual(t, metrics.VaRThreshold, metrics.MedianFinalValue)
	assert.LessOrEqual(t, metrics.MedianFinalValue, finals[len(finals)-1])
	assert.Equal(t, metrics.InitialCapital-metrics.VaRThreshold, metrics.MaxLoss)
	assert.Equal(t, DefaultPercentile, metrics.Percentile)
}

func TestAnalyze_SingleSimulation(t *testing.T) {
	params := defaultParams()
	params.NumSims = 1
	result, err := Simulate(params, NewSource(5))
	require.NoError(t, err)

	metrics, err := Analyze(result, params.InitialCapital, DefaultPercentile)
	require.NoError(t, err)

	only := result.Values[params.FutureDays-1][0]
	assert.Equal(t, only, metrics.VaRThreshold)
	assert.Equal(t, only, metrics.MedianFinalValue)
}

func TestAnalyze_ZeroDays(t *testing.T) {
	params := defaultParams()
	params.FutureDays = 0
	result, err := Simulate(params, NewSource(5))
	require.NoError(t, err)

	metrics, err := Analyze(result, params.InitialCapital, DefaultPercentile)
	require.NoError(t, err)
	assert.Equal(t, 0.0, metrics.MaxLoss)
	assert.Equal(t, params.InitialCapital, metrics.MedianFinalValue)
}

func TestAnalyze_NegativeMaxLoss(t *testing.T) {
	params := defaultParams()
	params.Volatility = 0
	params.MeanReturn = 0.01
	result, err := Simulate(params, NewSource(5))
	require.NoError(t, err)

	metrics, err := Analyze(result, params.InitialCapital, DefaultPercentile)
	require.NoError(t, err)
	assert.Less(t, metrics.MaxLoss, 0.0)
}

func TestAnalyze_InvalidPercentile(t *testing.T) {
	result, err := Simulate(defaultParams(), NewSource(5))
	require.NoError(t, err)

	for _, p := range []float64{-1, 100.5} {
		_, err := Analyze(result, 100000, p)
		assert.ErrorIs(t, err, ErrInvalidParameter)
	}
	_, err = Analyze(nil, 100000, 5)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestDayMedians(t *testing.T) {
	result := &SimulationResult{
		InitialCapital: 100,
		FutureDays:     2,
		NumSims:        3,
		Values: [][]float64{
			{90, 110, 100},
			{80, 130, 95},
		},
	}
	assert.Equal(t, []float64{100, 100, 95}, DayMedians(result))
}

func TestExpectedShortfall(t *testing.T) {
	finals := []float64{50, 70, 90, 110, 130}
	assert.InDelta(t, 60.0, ExpectedShortfall(finals, 70), 1e-12)
	assert.Equal(t, 40.0, ExpectedShortfall(finals, 40))
}
