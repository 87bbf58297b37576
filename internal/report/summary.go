package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"portfolioStress/internal/finance"
)

// Summary is the renderer-facing view of one run.
type Summary struct {
	RunID        string
	GeneratedAt  time.Time
	Assets       []string
	Weights      []float64
	Start        time.Time
	End          time.Time
	Observations int
	Seed         uint64
	FutureDays   int
	NumSims      int

	DailyMean       float64
	DailyVolatility float64
	Annualised      finance.AnnualisedStats

	Metrics           finance.RiskMetrics
	ExpectedShortfall float64
	MedianDrawdown    float64
}

// NewSummary flattens a pipeline outcome.
func NewSummary(runID string, o *finance.Outcome, now time.Time) Summary {
	return Summary{
		RunID:             runID,
		GeneratedAt:       now,
		Assets:            o.Assets,
		Weights:           o.Weights,
		Start:             o.Start,
		End:               o.End,
		Observations:      o.Observations,
		Seed:              o.Seed,
		FutureDays:        o.Result.FutureDays,
		NumSims:           o.Result.NumSims,
		DailyMean:         o.Stats.MeanReturn,
		DailyVolatility:   o.Stats.Volatility,
		Annualised:        finance.Annualise(o.Stats),
		Metrics:           o.Metrics,
		ExpectedShortfall: o.ExpectedShortfall,
		MedianDrawdown:    o.MedianDrawdown,
	}
}

// cents rounds a money amount half away from zero.
func cents(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

type jsonAllocation struct {
	Asset  string  `json:"asset"`
	Weight float64 `json:"weight"`
}

type jsonSummary struct {
	RunID        string           `json:"run_id"`
	GeneratedAt  time.Time        `json:"generated_at"`
	Allocation   []jsonAllocation `json:"allocation"`
	HistoryStart string           `json:"history_start"`
	HistoryEnd   string           `json:"history_end"`
	Observations int              `json:"observations"`
	Seed         uint64           `json:"seed"`
	FutureDays   int              `json:"future_days"`
	NumSims      int              `json:"num_sims"`

	DailyMeanReturn     float64 `json:"daily_mean_return"`
	DailyVolatility     float64 `json:"daily_volatility"`
	AnnualReturnPct     float64 `json:"annual_return_pct"`
	AnnualVolatilityPct float64 `json:"annual_volatility_pct"`
	SharpeRatio         float64 `json:"sharpe_ratio"`

	Percentile        float64         `json:"percentile"`
	InitialCapital    decimal.Decimal `json:"initial_capital"`
	MedianFinalValue  decimal.Decimal `json:"median_final_value"`
	VaRThreshold      decimal.Decimal `json:"var_threshold"`
	MaxLoss           decimal.Decimal `json:"max_loss"`
	ExpectedShortfall decimal.Decimal `json:"expected_shortfall"`
	MedianDrawdownPct float64         `json:"median_drawdown_pct"`
}

// MarshalJSON renders money fields as decimal strings rounded to cents.
func (s Summary) MarshalJSON() ([]byte, error) {
	for _, v := range []float64{s.Metrics.InitialCapital, s.Metrics.MedianFinalValue,
		s.Metrics.VaRThreshold, s.Metrics.MaxLoss, s.ExpectedShortfall} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("summary has non-finite money value %v", v)
		}
	}
	alloc := make([]jsonAllocation, len(s.Assets))
	for i, a := range s.Assets {
		alloc[i] = jsonAllocation{Asset: a}
		if i < len(s.Weights) {
			alloc[i].Weight = s.Weights[i]
		}
	}
	return json.Marshal(jsonSummary{
		RunID:               s.RunID,
		GeneratedAt:         s.GeneratedAt.UTC(),
		Allocation:          alloc,
		HistoryStart:        s.Start.Format("2006-01-02"),
		HistoryEnd:          s.End.Format("2006-01-02"),
		Observations:        s.Observations,
		Seed:                s.Seed,
		FutureDays:          s.FutureDays,
		NumSims:             s.NumSims,
		DailyMeanReturn:     s.DailyMean,
		DailyVolatility:     s.DailyVolatility,
		AnnualReturnPct:     s.Annualised.Return,
		AnnualVolatilityPct: s.Annualised.Volatility,
		SharpeRatio:         s.Annualised.SharpeRatio,
		Percentile:          s.Metrics.Percentile,
		InitialCapital:      cents(s.Metrics.InitialCapital),
		MedianFinalValue:    cents(s.Metrics.MedianFinalValue),
		VaRThreshold:        cents(s.Metrics.VaRThreshold),
		MaxLoss:             cents(s.Metrics.MaxLoss),
		ExpectedShortfall:   cents(s.ExpectedShortfall),
		MedianDrawdownPct:   s.MedianDrawdown * 100,
	})
}

// WriteJSON writes the summary as indented JSON.
func WriteJSON(path string, s Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
