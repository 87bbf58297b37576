package finance

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stageRecorder struct {
	stages  []string
	outcome *Outcome
}

func (r *stageRecorder) ObserveStage(stage string, _ time.Duration) {
	r.stages = append(r.stages, stage)
}

func (r *stageRecorder) RecordOutcome(o *Outcome) { r.outcome = o }

func staticSource(t *testing.T) Source {
	series := makeSeries(t, []string{"Tech_Growth", "Blue_Chip", "Gold_Safe"}, [][]float64{
		{100, 100, 100},
		{102, 100.5, 100.1},
		{99, 101, 100.3},
		{103, 100.7, 99.9},
		{105, 101.2, 100.2},
		{104, 101.9, 100.4},
	})
	return SourceFunc(func(context.Context) (*PriceSeries, error) { return series, nil })
}

func runParams() RunParams {
	return RunParams{
		Weights:        PortfolioWeights{0.5, 0.3, 0.2},
		InitialCapital: 100000,
		FutureDays:     20,
		NumSims:        100,
		Percentile:     DefaultPercentile,
		Seed:           7,
	}
}

func TestPipeline_Run(t *testing.T) {
	rec := &stageRecorder{}
	p := &Pipeline{Source: staticSource(t), Params: runParams(), Recorder: rec}

	outcome, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{StageLoad, StageReturns, StageStats, StageSimulate, StageAnalyze}, rec.stages)
	assert.Same(t, outcome, rec.outcome)

	assert.Equal(t, 5, outcome.Observations)
	assert.Equal(t, uint64(7), outcome.Seed)
	assert.Len(t, outcome.DayMedians, 21)
	assert.Equal(t, 100000.0, outcome.DayMedians[0])
	assert.Equal(t, outcome.Metrics.InitialCapital-outcome.Metrics.VaRThreshold, outcome.Metrics.MaxLoss)
	assert.LessOrEqual(t, outcome.ExpectedShortfall, outcome.Metrics.VaRThreshold)
	assert.Equal(t, baseDate, outcome.Start)
	assert.Equal(t, baseDate.AddDate(0, 0, 5), outcome.End)
}

func TestPipeline_Deterministic(t *testing.T) {
	first, err := (&Pipeline{Source: staticSource(t), Params: runParams()}).Run(context.Background())
	require.NoError(t, err)
	second, err := (&Pipeline{Source: staticSource(t), Params: runParams()}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Result.Values, second.Result.Values)
	assert.Equal(t, first.Metrics, second.Metrics)
}

func TestPipeline_FreshSeed(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	params := runParams()
	params.Seed = 0

	outcome, err := (&Pipeline{Source: staticSource(t), Params: params, Logger: zap.New(core)}).Run(context.Background())
	require.NoError(t, err)
	assert.NotZero(t, outcome.Seed)
	assert.Equal(t, 1, logs.FilterMessage("pipeline: drew fresh seed").Len())
}

func TestPipeline_WeightSumWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	params := runParams()
	params.Weights = PortfolioWeights{0.5, 0.5, 0.5}

	_, err := (&Pipeline{Source: staticSource(t), Params: params, Logger: zap.New(core)}).Run(context.Background())
	require.NoError(t, err)

	entries := logs.FilterMessage("pipeline: weights do not sum to 1").All()
	require.Len(t, entries, 1)
	assert.InDelta(t, 1.5, entries[0].ContextMap()["sum"], 1e-12)
}

func TestPipeline_Allocation(t *testing.T) {
	params := runParams()
	params.Weights = nil
	params.Allocation = Allocation{{"Gold_Safe", 0.2}, {"Blue_Chip", 0.3}, {"Tech_Growth", 0.5}}

	outcome, err := (&Pipeline{Source: staticSource(t), Params: params}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PortfolioWeights{0.5, 0.3, 0.2}, outcome.Weights)

	params.Allocation = nil
	outcome, err = (&Pipeline{Source: staticSource(t), Params: params}).Run(context.Background())
	require.NoError(t, err)
	for _, w := range outcome.Weights {
		assert.InDelta(t, 1.0/3, w, 1e-15)
	}
}

func TestPipeline_Errors(t *testing.T) {
	t.Run("source failure", func(t *testing.T) {
		src := SourceFunc(func(context.Context) (*PriceSeries, error) {
			return nil, &DataNotFoundError{Source: "prices.csv"}
		})
		_, err := (&Pipeline{Source: src, Params: runParams()}).Run(context.Background())
		assert.ErrorIs(t, err, ErrDataNotFound)
	})

	t.Run("invalid price", func(t *testing.T) {
		series := makeSeries(t, []string{"A"}, [][]float64{{1}, {0}, {2}})
		src := SourceFunc(func(context.Context) (*PriceSeries, error) { return series, nil })
		params := runParams()
		params.Weights = PortfolioWeights{1}
		_, err := (&Pipeline{Source: src, Params: params}).Run(context.Background())
		assert.ErrorIs(t, err, ErrInvalidPrice)
	})

	t.Run("weights mismatch", func(t *testing.T) {
		params := runParams()
		params.Weights = PortfolioWeights{1}
		_, err := (&Pipeline{Source: staticSource(t), Params: params}).Run(context.Background())
		var dimErr *DimensionMismatchError
		assert.True(t, errors.As(err, &dimErr))
	})

	t.Run("invalid simulation", func(t *testing.T) {
		params := runParams()
		params.NumSims = 0
		_, err := (&Pipeline{Source: staticSource(t), Params: params}).Run(context.Background())
		assert.ErrorIs(t, err, ErrInvalidParameter)
	})

	t.Run("invalid percentile", func(t *testing.T) {
		params := runParams()
		params.Percentile = math.Inf(1)
		_, err := (&Pipeline{Source: staticSource(t), Params: params}).Run(context.Background())
		assert.ErrorIs(t, err, ErrInvalidParameter)
	})

	malformed := []struct {
		name   string
		series *PriceSeries
	}{
		{"nil series", nil},
		{"no days", &PriceSeries{Assets: []string{"A"}}},
		{"short row", &PriceSeries{Assets: []string{"A", "B"}, Days: []TradingDay{
			{Date: baseDate, Prices: []float64{100, 100}},
			{Date: baseDate.AddDate(0, 0, 1), Prices: []float64{101}},
			{Date: baseDate.AddDate(0, 0, 2), Prices: []float64{102, 99}},
		}}},
	}
	for _, tc := range malformed {
		t.Run(tc.name, func(t *testing.T) {
			src := SourceFunc(func(context.Context) (*PriceSeries, error) { return tc.series, nil })
			params := runParams()
			params.Weights = nil
			_, err := (&Pipeline{Source: src, Params: params}).Run(context.Background())
			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.ErrorIs(t, err, ErrSchema)
		})
	}

	t.Run("no source", func(t *testing.T) {
		_, err := (&Pipeline{Params: runParams()}).Run(context.Background())
		assert.ErrorIs(t, err, ErrInvalidParameter)
	})
}
