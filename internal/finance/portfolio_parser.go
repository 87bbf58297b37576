package finance

import (
	"fmt"
	"strconv"
	"strings"
)

// WeightedAsset is one asset name paired with its allocation fraction.
type WeightedAsset struct {
	Asset  string
	Weight float64
}

// Allocation is a named weighting as written by the user, in input order.
type Allocation []WeightedAsset

// ParseAllocation parses an allocation string
// Format: Tech_Growth 0.5 Blue_Chip 0.3 Gold_Safe 0.2
// Commas and '=' are accepted as separators: "Tech_Growth=0.5, Blue_Chip=0.3".
func ParseAllocation(input string) (Allocation, error) {
	input = strings.NewReplacer(",", " ", "=", " ").Replace(strings.TrimSpace(input))

	parts := strings.Fields(input)
	if len(parts) < 2 {
		return nil, fmt.Errorf("insufficient arguments: need at least asset weight")
	}

	// Remaining parts should be pairs of asset weight
	if len(parts)%2 != 0 {
		return nil, fmt.Errorf("invalid format: each asset must have a weight")
	}

	var alloc Allocation
	seen := make(map[string]bool)

	for i := 0; i < len(parts); i += 2 {
		asset := parts[i]
		weightStr := parts[i+1]

		weight, err := strconv.ParseFloat(weightStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight '%s' for asset %s: %w", weightStr, asset, err)
		}

		// Allow negative weights for short positions
		if weight > 1 {
			return nil, fmt.Errorf("long weight %f for asset %s exceeds 1.0", weight, asset)
		}
		if weight < -1 {
			return nil, fmt.Errorf("short weight %f for asset %s exceeds -1.0 (max 100%% short)", weight, asset)
		}

		if seen[asset] {
			return nil, fmt.Errorf("duplicate asset: %s", asset)
		}
		seen[asset] = true

		alloc = append(alloc, WeightedAsset{Asset: asset, Weight: weight})
	}

	// Total gross exposure should be reasonable (max 3x leverage)
	gross := 0.0
	for _, a := range alloc {
		if a.Weight > 0 {
			gross += a.Weight
		} else {
			gross -= a.Weight
		}
	}
	if gross > 3.0 {
		return nil, fmt.Errorf("total gross exposure %.3f exceeds 3.0 (300%% leverage limit)", gross)
	}

	return alloc, nil
}

// WeightsFor orders the allocation to match the column order of a price
// series. Every asset must be covered exactly once.
func (a Allocation) WeightsFor(assets []string) (PortfolioWeights, error) {
	byName := make(map[string]float64, len(a))
	for _, wa := range a {
		byName[wa.Asset] = wa.Weight
	}

	weights := make(PortfolioWeights, len(assets))
	for i, name := range assets {
		w, ok := byName[name]
		if !ok {
			return nil, &DimensionMismatchError{Weights: len(a), Assets: len(assets),
				Detail: fmt.Sprintf("no weight for asset %s", name)}
		}
		weights[i] = w
		delete(byName, name)
	}
	for name := range byName {
		return nil, &DimensionMismatchError{Weights: len(a), Assets: len(assets),
			Detail: fmt.Sprintf("asset %s not in price data", name)}
	}
	return weights, nil
}

// Assets returns the asset names in input order.
func (a Allocation) Assets() []string {
	out := make([]string, len(a))
	for i, wa := range a {
		out[i] = wa.Asset
	}
	return out
}

// EqualWeights spreads the allocation evenly over n assets.
func EqualWeights(n int) PortfolioWeights {
	if n == 0 {
		return PortfolioWeights{}
	}
	w := make(PortfolioWeights, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}
