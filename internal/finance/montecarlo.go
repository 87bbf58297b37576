package finance

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// pcgStream is the fixed PCG stream selector; the seed alone picks the sequence.
const pcgStream = 0x9e3779b97f4a7c15

// NewSource returns the random source for one simulation run. The same seed
// always yields the same sequence.
func NewSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, pcgStream)
}

// Simulate projects NumSims portfolio value paths FutureDays into the future.
//
// The portfolio is modelled as one scalar process: every daily log-return is
// an independent draw from N(MeanReturn, Volatility). Cross-asset correlation
// enters only through the scalar volatility (wᵀΣw); per-asset correlated
// sampling is not performed.
//
// Each path accumulates its own log-return and the value at day d is
// InitialCapital · exp(Σ_{k≤d} r_k). Draws are taken day by day across all
// simulations, so a given src and params always produce the same grid.
func Simulate(params SimulationParams, src rand.Source) (*SimulationResult, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, invalidParam("random source is required")
	}

	normal := distuv.Normal{Mu: params.MeanReturn, Sigma: params.Volatility, Src: src}

	values := make([][]float64, params.FutureDays)
	cum := make([]float64, params.NumSims)
	for d := range values {
		row := make([]float64, params.NumSims)
		for s := range row {
			cum[s] += normal.Rand()
			row[s] = params.InitialCapital * math.Exp(cum[s])
		}
		values[d] = row
	}

	return &SimulationResult{
		InitialCapital: params.InitialCapital,
		FutureDays:     params.FutureDays,
		NumSims:        params.NumSims,
		Values:         values,
	}, nil
}

func validateParams(p SimulationParams) error {
	switch {
	case p.FutureDays < 0:
		return invalidParam("future days must be >= 0, got %d", p.FutureDays)
	case p.NumSims < 1:
		return invalidParam("number of simulations must be >= 1, got %d", p.NumSims)
	case math.IsNaN(p.MeanReturn) || math.IsInf(p.MeanReturn, 0):
		return invalidParam("mean return must be finite, got %f", p.MeanReturn)
	case math.IsNaN(p.Volatility) || math.IsInf(p.Volatility, 0) || p.Volatility < 0:
		return invalidParam("volatility must be finite and >= 0, got %f", p.Volatility)
	case math.IsNaN(p.InitialCapital) || math.IsInf(p.InitialCapital, 0) || p.InitialCapital <= 0:
		return invalidParam("initial capital must be positive, got %f", p.InitialCapital)
	}
	return nil
}
