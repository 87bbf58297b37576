package finance

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Stage names reported to a Recorder.
const (
	StageLoad     = "load"
	StageReturns  = "returns"
	StageStats    = "statistics"
	StageSimulate = "simulate"
	StageAnalyze  = "analyze"
)

const weightSumTolerance = 1e-9

// Recorder receives stage timings and the final outcome of a run.
type Recorder interface {
	ObserveStage(stage string, elapsed time.Duration)
	RecordOutcome(outcome *Outcome)
}

// RunParams is the explicit configuration of one stress test.
type RunParams struct {
	// Weights in price column order. When nil, Allocation is resolved
	// against the loaded columns; when both are nil the assets are equally
	// weighted.
	Weights    PortfolioWeights
	Allocation Allocation

	InitialCapital float64
	FutureDays     int
	NumSims        int
	Percentile     float64
	Seed           uint64 // 0 draws a fresh seed
}

// Outcome is everything a renderer needs from one run.
type Outcome struct {
	Assets       []string
	Start        time.Time
	End          time.Time
	Observations int // return rows

	Weights           PortfolioWeights
	Stats             *PortfolioStats
	Result            *SimulationResult
	Metrics           RiskMetrics
	DayMedians        []float64
	ExpectedShortfall float64
	MedianDrawdown    float64
	Seed              uint64
}

// Pipeline threads load → returns → statistics → simulation → analysis.
// Each stage only sees the previous stage's output.
type Pipeline struct {
	Source   Source
	Params   RunParams
	Logger   *zap.Logger
	Recorder Recorder
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *Pipeline) observe(stage string, started time.Time) {
	if p.Recorder != nil {
		p.Recorder.ObserveStage(stage, time.Since(started))
	}
}

// Run executes the stress test once. Any stage error aborts the run.
func (p *Pipeline) Run(ctx context.Context) (*Outcome, error) {
	log := p.logger()
	if p.Source == nil {
		return nil, invalidParam("price source is required")
	}

	started := time.Now()
	series, err := p.Source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load price data: %w", err)
	}
	if err := checkSeries(p.Source, series); err != nil {
		return nil, fmt.Errorf("failed to load price data: %w", err)
	}
	p.observe(StageLoad, started)
	log.Info("pipeline: price data loaded",
		zap.Strings("assets", series.Assets),
		zap.Int("days", series.Len()),
		zap.Time("start", series.Days[0].Date),
		zap.Time("end", series.Days[series.Len()-1].Date))

	started = time.Now()
	returns, err := ComputeLogReturns(series)
	if err != nil {
		return nil, fmt.Errorf("failed to compute returns: %w", err)
	}
	p.observe(StageReturns, started)
	log.Debug("pipeline: log returns computed", zap.Int("observations", returns.Len()))

	weights, err := p.resolveWeights(series.Assets)
	if err != nil {
		return nil, err
	}
	if sum := weights.Sum(); math.Abs(sum-1) > weightSumTolerance {
		log.Warn("pipeline: weights do not sum to 1", zap.Float64("sum", sum))
	}

	started = time.Now()
	stats, err := ComputeStatistics(returns, weights)
	if err != nil {
		return nil, fmt.Errorf("failed to compute portfolio statistics: %w", err)
	}
	p.observe(StageStats, started)
	log.Info("pipeline: portfolio statistics",
		zap.Float64("daily_mean", stats.MeanReturn),
		zap.Float64("daily_volatility", stats.Volatility))

	seed := p.Params.Seed
	if seed == 0 {
		seed = rand.Uint64()
		log.Info("pipeline: drew fresh seed", zap.Uint64("seed", seed))
	}

	started = time.Now()
	result, err := Simulate(SimulationParams{
		MeanReturn:     stats.MeanReturn,
		Volatility:     stats.Volatility,
		FutureDays:     p.Params.FutureDays,
		NumSims:        p.Params.NumSims,
		InitialCapital: p.Params.InitialCapital,
	}, NewSource(seed))
	if err != nil {
		return nil, fmt.Errorf("failed to simulate: %w", err)
	}
	p.observe(StageSimulate, started)
	log.Info("pipeline: simulation complete",
		zap.Int("future_days", result.FutureDays),
		zap.Int("num_sims", result.NumSims),
		zap.Uint64("seed", seed))

	started = time.Now()
	metrics, err := Analyze(result, p.Params.InitialCapital, p.Params.Percentile)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze risk: %w", err)
	}
	medians := DayMedians(result)
	outcome := &Outcome{
		Assets:            series.Assets,
		Start:             series.Days[0].Date,
		End:               series.Days[series.Len()-1].Date,
		Observations:      returns.Len(),
		Weights:           weights,
		Stats:             stats,
		Result:            result,
		Metrics:           metrics,
		DayMedians:        medians,
		ExpectedShortfall: ExpectedShortfall(result.FinalValues(), metrics.VaRThreshold),
		MedianDrawdown:    MaxDrawdown(medians),
		Seed:              seed,
	}
	p.observe(StageAnalyze, started)
	log.Info("pipeline: risk analysis complete",
		zap.Float64("median_final", metrics.MedianFinalValue),
		zap.Float64("var_threshold", metrics.VaRThreshold),
		zap.Float64("max_loss", metrics.MaxLoss))

	if p.Recorder != nil {
		p.Recorder.RecordOutcome(outcome)
	}
	return outcome, nil
}

// checkSeries re-applies the NewPriceSeries shape rules to whatever the
// source returned.
func checkSeries(src Source, series *PriceSeries) error {
	name := fmt.Sprintf("%T", src)
	if series == nil {
		return &SchemaError{Source: name, Reason: "source returned no price series"}
	}
	_, err := NewPriceSeries(name, series.Assets, series.Days)
	return err
}

func (p *Pipeline) resolveWeights(assets []string) (PortfolioWeights, error) {
	switch {
	case p.Params.Weights != nil:
		if len(p.Params.Weights) != len(assets) {
			return nil, &DimensionMismatchError{Weights: len(p.Params.Weights), Assets: len(assets)}
		}
		return p.Params.Weights, nil
	case p.Params.Allocation != nil:
		return p.Params.Allocation.WeightsFor(assets)
	default:
		return EqualWeights(len(assets)), nil
	}
}
