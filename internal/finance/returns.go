package finance

import (
	"math"
	"time"
)

// ComputeLogReturns converts prices into daily log-returns ln(p_t / p_{t-1}).
// The first day has no predecessor and is dropped, so the result has one row
// fewer than the series.
func ComputeLogReturns(series *PriceSeries) (*ReturnMatrix, error) {
	for _, day := range series.Days {
		for a, p := range day.Prices {
			if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
				return nil, &InvalidPriceError{Asset: series.Assets[a], Date: day.Date, Price: p}
			}
		}
	}

	n := series.Len()
	out := &ReturnMatrix{
		Assets: series.Assets,
		Dates:  make([]time.Time, 0, max(n-1, 0)),
		Rows:   make([][]float64, 0, max(n-1, 0)),
	}
	for d := 1; d < n; d++ {
		prev, cur := series.Days[d-1].Prices, series.Days[d].Prices
		row := make([]float64, len(cur))
		for a := range cur {
			row[a] = math.Log(cur[a] / prev[a])
		}
		out.Dates = append(out.Dates, series.Days[d].Date)
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
