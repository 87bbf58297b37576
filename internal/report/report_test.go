package report

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"portfolioStress/internal/finance"
)

func sampleSummary() Summary {
	return Summary{
		RunID:        "5f1d7a4e-0000-4000-8000-000000000000",
		GeneratedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Assets:       []string{"Tech_Growth", "Blue_Chip", "Gold_Safe"},
		Weights:      []float64{0.5, 0.3, 0.2},
		Start:        time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		End:          time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
		Observations: 730,
		Seed:         42,
		FutureDays:   252,
		NumSims:      1000,
		Annualised:   finance.AnnualisedStats{Return: 12.3, Volatility: 15.1, SharpeRatio: 0.81},
		Metrics: finance.RiskMetrics{
			InitialCapital:   100000,
			MedianFinalValue: 112345.678,
			VaRThreshold:     84321.004,
			MaxLoss:          15678.996,
			Percentile:       5,
		},
		ExpectedShortfall: 80000.5,
		MedianDrawdown:    0.0425,
	}
}

func sampleResult(t *testing.T) (*finance.SimulationResult, []float64) {
	t.Helper()
	result, err := finance.Simulate(finance.SimulationParams{
		MeanReturn: 0.0004, Volatility: 0.012, FutureDays: 20, NumSims: 30, InitialCapital: 100000,
	}, finance.NewSource(1))
	require.NoError(t, err)
	return result, finance.DayMedians(result)
}

func TestMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{1234.5, "$1,234.50"},
		{100000, "$100,000.00"},
		{112345.678, "$112,345.68"},
		{0.005, "$0.01"},
		{-15678.996, "-$15,679.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Money(tt.in), "Money(%v)", tt.in)
	}
	assert.Equal(t, "NaN", Money(math.NaN()))
}

func TestFormatText(t *testing.T) {
	text := FormatText(sampleSummary())

	assert.Contains(t, text, "PORTFOLIO RISK ASSESSMENT REPORT")
	assert.Contains(t, text, "Initial Investment:  $100,000.00")
	assert.Contains(t, text, "Median Prediction:   $112,345.68")
	assert.Contains(t, text, "5% Risk Threshold:   $84,321.00")
	assert.Contains(t, text, "Potential Max Loss:  $15,679.00")
	assert.Contains(t, text, "Tech_Growth 50.0%, Blue_Chip 30.0%, Gold_Safe 20.0%")
	assert.Contains(t, text, "1,000 paths x 252 days (seed 42)")
	assert.Contains(t, text, "Expected Shortfall:  $80,000.50")
}

func TestFormatText_NegativeLoss(t *testing.T) {
	s := sampleSummary()
	s.Metrics.VaRThreshold = 101000
	s.Metrics.MaxLoss = -1000
	s.Metrics.Percentile = 2.5
	s.Weights = []float64{1, -0.5, 0.5}

	text := FormatText(s)
	assert.Contains(t, text, "2.5% Risk Threshold:")
	assert.Contains(t, text, "Potential Max Loss:  -$1,000.00")
	assert.Contains(t, text, "Blue_Chip 50.0% SHORT")
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, WriteJSON(path, sampleSummary()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "5f1d7a4e-0000-4000-8000-000000000000", got["run_id"])
	assert.Equal(t, "100000", got["initial_capital"])
	assert.Equal(t, "112345.68", got["median_final_value"])
	assert.Equal(t, "84321", got["var_threshold"])
	assert.Equal(t, "15679", got["max_loss"])
	assert.Equal(t, "80000.5", got["expected_shortfall"])
	assert.Equal(t, "2023-06-01", got["history_start"])
	assert.Equal(t, 42.0, got["seed"])
	require.Len(t, got["allocation"], 3)
}

func TestWriteJSON_NonFinite(t *testing.T) {
	s := sampleSummary()
	s.Metrics.VaRThreshold = math.Inf(1)
	assert.Error(t, WriteJSON(filepath.Join(t.TempDir(), "summary.json"), s))
}

func TestWriteWorkbook(t *testing.T) {
	result, medians := sampleResult(t)
	path := filepath.Join(t.TempDir(), "stress.xlsx")
	require.NoError(t, WriteWorkbook(path, sampleSummary(), result, medians))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Paths"}, f.GetSheetList())

	label, err := f.GetCellValue("Summary", "A5")
	require.NoError(t, err)
	assert.Equal(t, "5% Risk Threshold", label)

	rows, err := f.GetRows("Paths")
	require.NoError(t, err)
	require.Len(t, rows, 22) // header + day 0..20
	assert.Equal(t, "Day", rows[0][0])
	assert.Equal(t, "Sim 30", rows[0][31])
	assert.Equal(t, "100000", rows[1][2])
	assert.Equal(t, "20", rows[21][0])
}

func TestMakeFanChart(t *testing.T) {
	result, medians := sampleResult(t)

	png, err := MakeFanChart(FanChartInput{
		Result:       result,
		Medians:      medians,
		VaRThreshold: finance.Percentile(result.FinalValues(), 5),
		Percentile:   5,
		MaxPaths:     10,
		Width:        600,
		Height:       400,
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestMakeFanChart_Errors(t *testing.T) {
	result, medians := sampleResult(t)

	_, err := MakeFanChart(FanChartInput{Result: result, Medians: medians[:3]})
	assert.Error(t, err)

	_, err = MakeFanChart(FanChartInput{})
	assert.Error(t, err)

	empty := &finance.SimulationResult{InitialCapital: 1, NumSims: 3}
	_, err = MakeFanChart(FanChartInput{Result: empty, Medians: []float64{1}})
	assert.True(t, err != nil && strings.Contains(err.Error(), "not enough data points"))
}

func TestSamplePaths(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, samplePaths(3, 10))
	assert.Equal(t, []int{0, 25, 50, 75}, samplePaths(100, 4))
	assert.Len(t, samplePaths(1000, 0), DefaultChartPaths)
}

func TestFanSeries_MarkersPaintedLast(t *testing.T) {
	markers := [][]float64{{100, 100}, {100, 104}, {90, 90}}
	paths := [][]float64{{100, 110}, {100, 95}}
	names := []string{"Initial Capital", "Median Trend", "5% VaR (Risk Level)"}

	series := fanSeries(markers, paths, names)
	require.Len(t, series, 8)

	for i, name := range names {
		assert.Equal(t, name, series[i].Name)
		assert.Empty(t, series[5+i].Name)
		assert.Equal(t, markers[i][1], series[5+i].Data[1].Value)
	}
	assert.Empty(t, series[3].Name)
	assert.Equal(t, 95.0, series[4].Data[1].Value)
	assert.Equal(t, markerDash, series[0].Style.StrokeDashArray)
	assert.Empty(t, series[1].Style.StrokeDashArray)
	assert.Equal(t, markerDash, series[7].Style.StrokeDashArray)
	assert.Empty(t, series[3].Style.StrokeDashArray)
}

func TestFanPalette(t *testing.T) {
	palette := fanPalette(2)
	require.Len(t, palette, 8)

	assert.Equal(t, markerColors, palette[:3])
	assert.Equal(t, markerColors, palette[5:])
	for _, c := range palette[3:5] {
		assert.Less(t, c.A, markerColors[0].A)
	}

	assert.Equal(t, "stress-fan-2", fanTheme(2))
	assert.Equal(t, "stress-fan-2", fanTheme(2))
}

func TestNewSummary(t *testing.T) {
	result, medians := sampleResult(t)
	stats := &finance.PortfolioStats{MeanReturn: 0.0004, Volatility: 0.012}
	outcome := &finance.Outcome{
		Assets:     []string{"A"},
		Weights:    finance.PortfolioWeights{1},
		Stats:      stats,
		Result:     result,
		DayMedians: medians,
		Seed:       1,
	}
	s := NewSummary("run", outcome, time.Now())
	assert.Equal(t, 30, s.NumSims)
	assert.Equal(t, 20, s.FutureDays)
	assert.Equal(t, finance.Annualise(stats), s.Annualised)
}
