package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var baseDate = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// makeSeries builds a series with one day per row of prices, starting at baseDate.
func makeSeries(t *testing.T, assets []string, prices [][]float64) *PriceSeries {
	t.Helper()
	days := make([]TradingDay, len(prices))
	for i, row := range prices {
		days[i] = TradingDay{Date: baseDate.AddDate(0, 0, i), Prices: row}
	}
	series, err := NewPriceSeries("test", assets, days)
	require.NoError(t, err)
	return series
}
