package finance

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualisation convention.
const TradingDaysPerYear = 252.0

// minObservations is the smallest sample for which the (n-1) covariance is defined.
const minObservations = 2

// ComputeStatistics reduces per-asset returns and allocation weights to the
// scalar mean and volatility of the portfolio.
//
//	mean       = Σ w_i · mean(r_i)
//	volatility = sqrt(wᵀ Σ w), Σ the sample covariance of the return columns
func ComputeStatistics(returns *ReturnMatrix, weights PortfolioWeights) (*PortfolioStats, error) {
	numAssets := len(returns.Assets)
	if len(weights) != numAssets {
		return nil, &DimensionMismatchError{Weights: len(weights), Assets: numAssets}
	}
	if returns.Len() < minObservations {
		return nil, &InsufficientDataError{Observations: returns.Len(), Required: minObservations}
	}
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, invalidParam("weight %d for %s is not finite", i, returns.Assets[i])
		}
	}

	means := make([]float64, numAssets)
	for i := range means {
		means[i] = stat.Mean(returns.Column(i), nil)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, returns.Dense(), nil)

	w := mat.NewVecDense(numAssets, append([]float64(nil), weights...))
	variance := mat.Inner(w, &cov, w)
	if variance < 0 {
		// Round-off on a near-singular covariance; a variance cannot be negative.
		variance = 0
	}

	stats := &PortfolioStats{
		MeanReturn: floats.Dot(means, weights),
		Volatility: math.Sqrt(variance),
		AssetMeans: means,
		Covariance: &cov,
	}
	if math.IsNaN(stats.MeanReturn) || math.IsInf(stats.MeanReturn, 0) {
		return nil, invalidParam("portfolio mean return is not finite: %f", stats.MeanReturn)
	}
	if math.IsNaN(stats.Volatility) || math.IsInf(stats.Volatility, 0) {
		return nil, invalidParam("portfolio volatility is not finite: %f", stats.Volatility)
	}
	return stats, nil
}

// AnnualisedStats scales the daily log-return statistics to a trading year.
type AnnualisedStats struct {
	Return      float64 // percent
	Volatility  float64 // percent
	SharpeRatio float64 // risk-free rate assumed to be 0
}

// Annualise applies the square-root-of-time convention to daily statistics.
func Annualise(stats *PortfolioStats) AnnualisedStats {
	annualReturn := stats.MeanReturn * TradingDaysPerYear
	annualVol := stats.Volatility * math.Sqrt(TradingDaysPerYear)
	var sharpe float64
	if annualVol > 0 {
		sharpe = annualReturn / annualVol
	}
	return AnnualisedStats{
		Return:      annualReturn * 100,
		Volatility:  annualVol * 100,
		SharpeRatio: sharpe,
	}
}

// MaxDrawdown returns the largest peak-to-trough decline of a positive value
// path as a fraction of the running peak.
func MaxDrawdown(values []float64) float64 {
	maxDrawdown, peak := 0.0, 0.0
	for _, value := range values {
		if value > peak {
			peak = value
			continue
		}
		if drawdown := (peak - value) / peak; drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}
