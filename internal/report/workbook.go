package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"portfolioStress/internal/finance"
)

const (
	summarySheet = "Summary"
	pathsSheet   = "Paths"

	// Day and Median take two columns.
	maxWorkbookSims = excelize.MaxColumns - 2
)

// WriteWorkbook exports the summary and the full day-by-simulation grid.
// Simulations beyond the sheet column limit are left out of the paths sheet.
func WriteWorkbook(path string, s Summary, result *finance.SimulationResult, medians []float64) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if err := writeSummarySheet(f, s); err != nil {
		return err
	}

	if _, err := f.NewSheet(pathsSheet); err != nil {
		return fmt.Errorf("failed to create paths sheet: %w", err)
	}
	if err := writePathsSheet(f, result, medians); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, s Summary) error {
	m := s.Metrics
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Run ID", s.RunID},
		{"Initial Investment", m.InitialCapital},
		{"Median Prediction", m.MedianFinalValue},
		{fmt.Sprintf("%g%% Risk Threshold", m.Percentile), m.VaRThreshold},
		{"Potential Max Loss", m.MaxLoss},
		{"Expected Shortfall", s.ExpectedShortfall},
		{"Simulations", s.NumSims},
		{"Future Days", s.FutureDays},
		{"Seed", fmt.Sprintf("%d", s.Seed)},
		{"Daily Mean Return", s.DailyMean},
		{"Daily Volatility", s.DailyVolatility},
		{"Annual Return %", s.Annualised.Return},
		{"Annual Volatility %", s.Annualised.Volatility},
		{"Sharpe Ratio", s.Annualised.SharpeRatio},
	}
	for i, a := range s.Assets {
		w := 0.0
		if i < len(s.Weights) {
			w = s.Weights[i]
		}
		rows = append(rows, []interface{}{"Weight " + a, w})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	if err := f.SetCellStyle(summarySheet, "B3", "B7", money); err != nil {
		return fmt.Errorf("failed to style summary: %w", err)
	}
	return f.SetColWidth(summarySheet, "A", "A", 24)
}

func writePathsSheet(f *excelize.File, result *finance.SimulationResult, medians []float64) error {
	sims := result.NumSims
	if sims > maxWorkbookSims {
		sims = maxWorkbookSims
	}

	sw, err := f.NewStreamWriter(pathsSheet)
	if err != nil {
		return fmt.Errorf("failed to open paths sheet: %w", err)
	}

	header := make([]interface{}, sims+2)
	header[0], header[1] = "Day", "Median"
	for s := 0; s < sims; s++ {
		header[s+2] = fmt.Sprintf("Sim %d", s+1)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write paths header: %w", err)
	}

	for d := 0; d <= result.FutureDays; d++ {
		day := result.Day(d)
		row := make([]interface{}, sims+2)
		row[0] = d
		if d < len(medians) {
			row[1] = medians[d]
		}
		for s := 0; s < sims; s++ {
			row[s+2] = day[s]
		}
		cell, err := excelize.CoordinatesToCellName(1, d+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write day %d: %w", d, err)
		}
	}
	return sw.Flush()
}
