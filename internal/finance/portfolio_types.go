package finance

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

// TradingDay is one row of the historical price table.
type TradingDay struct {
	Date   time.Time
	Prices []float64 // ordered as PriceSeries.Assets
}

// PriceSeries is the validated historical price table. Build it with
// NewPriceSeries; it is never mutated afterwards.
type PriceSeries struct {
	Assets []string
	Days   []TradingDay
}

// Len returns the number of trading days.
func (s *PriceSeries) Len() int { return len(s.Days) }

// Column returns the price history of the asset at index i.
func (s *PriceSeries) Column(i int) []float64 {
	out := make([]float64, len(s.Days))
	for d, day := range s.Days {
		out[d] = day.Prices[i]
	}
	return out
}

// ReturnMatrix holds daily log-returns for days 2..N of a PriceSeries.
type ReturnMatrix struct {
	Assets []string
	Dates  []time.Time
	Rows   [][]float64 // Rows[day][asset]
}

// Len returns the number of return observations.
func (r *ReturnMatrix) Len() int { return len(r.Rows) }

// Column returns the return history of the asset at index i.
func (r *ReturnMatrix) Column(i int) []float64 {
	out := make([]float64, len(r.Rows))
	for d, row := range r.Rows {
		out[d] = row[i]
	}
	return out
}

// Dense copies the returns into a days x assets gonum matrix.
func (r *ReturnMatrix) Dense() *mat.Dense {
	m := mat.NewDense(len(r.Rows), len(r.Assets), nil)
	for d, row := range r.Rows {
		m.SetRow(d, row)
	}
	return m
}

// PortfolioWeights are allocation fractions, one per asset in column order.
type PortfolioWeights []float64

// Sum returns the total allocation.
func (w PortfolioWeights) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

// PortfolioStats is the scalar view of the portfolio used to drive the simulation.
type PortfolioStats struct {
	MeanReturn float64       // daily mean log-return of the weighted portfolio
	Volatility float64       // daily standard deviation, sqrt(w' Σ w)
	AssetMeans []float64     // per-asset mean log-return
	Covariance *mat.SymDense // sample covariance of the return columns
}

// SimulationParams configures one Monte Carlo run.
type SimulationParams struct {
	MeanReturn     float64
	Volatility     float64
	FutureDays     int
	NumSims        int
	InitialCapital float64
}

// SimulationResult is the futureDays x numSims grid of projected portfolio values.
// Day 0 is implicit and equals InitialCapital for every simulation.
type SimulationResult struct {
	InitialCapital float64
	FutureDays     int
	NumSims        int
	Values         [][]float64 // Values[day-1][sim]
}

// Path returns the value trajectory of one simulation, day 0 included.
func (r *SimulationResult) Path(sim int) []float64 {
	out := make([]float64, r.FutureDays+1)
	out[0] = r.InitialCapital
	for d := 0; d < r.FutureDays; d++ {
		out[d+1] = r.Values[d][sim]
	}
	return out
}

// Day returns the values of all simulations at the given day, day 0 included.
func (r *SimulationResult) Day(day int) []float64 {
	if day == 0 {
		out := make([]float64, r.NumSims)
		for i := range out {
			out[i] = r.InitialCapital
		}
		return out
	}
	out := make([]float64, r.NumSims)
	copy(out, r.Values[day-1])
	return out
}

// FinalValues returns the terminal value of every simulation.
func (r *SimulationResult) FinalValues() []float64 {
	return r.Day(r.FutureDays)
}

// RiskMetrics summarises the terminal value distribution.
type RiskMetrics struct {
	InitialCapital   float64
	MedianFinalValue float64
	VaRThreshold     float64 // value at Percentile of the final values
	MaxLoss          float64 // InitialCapital - VaRThreshold, negative when the tail still gains
	Percentile       float64
}
