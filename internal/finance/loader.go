package finance

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Source produces the historical price table. It is the only stage that reads
// raw input; everything downstream works on the returned PriceSeries.
type Source interface {
	Load(ctx context.Context) (*PriceSeries, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context) (*PriceSeries, error)

func (f SourceFunc) Load(ctx context.Context) (*PriceSeries, error) { return f(ctx) }

// dateLayouts covers ISO dates plus the timestamp form pandas writes for
// datetime columns.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
}

// ParseDate accepts any of the supported date layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// NewPriceSeries validates the table shape and returns the series. Prices are
// not range-checked here; ComputeLogReturns rejects non-positive values.
func NewPriceSeries(source string, assets []string, days []TradingDay) (*PriceSeries, error) {
	if len(assets) == 0 {
		return nil, &SchemaError{Source: source, Reason: "no asset price columns"}
	}
	seen := make(map[string]bool, len(assets))
	for _, a := range assets {
		if a == "" {
			return nil, &SchemaError{Source: source, Reason: "empty asset column name"}
		}
		if seen[a] {
			return nil, &SchemaError{Source: source, Reason: fmt.Sprintf("duplicate asset column %q", a)}
		}
		seen[a] = true
	}
	if len(days) == 0 {
		return nil, &SchemaError{Source: source, Reason: "no trading days"}
	}
	for i, day := range days {
		if len(day.Prices) != len(assets) {
			return nil, &SchemaError{Source: source,
				Reason: fmt.Sprintf("row %d has %d prices, expected %d", i+1, len(day.Prices), len(assets))}
		}
		if i > 0 && !day.Date.After(days[i-1].Date) {
			return nil, &SchemaError{Source: source,
				Reason: fmt.Sprintf("dates not strictly ascending at row %d (%s)", i+1, day.Date.Format("2006-01-02"))}
		}
	}
	return &PriceSeries{Assets: assets, Days: days}, nil
}

// parseTable turns a header plus string rows into a PriceSeries. The date
// column is located by name; every other column is an asset.
func parseTable(source string, header []string, rows [][]string) (*PriceSeries, error) {
	dateIdx := -1
	var assets []string
	var assetIdx []int
	for i, col := range header {
		name := strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if dateIdx < 0 && strings.EqualFold(name, "date") {
			dateIdx = i
			continue
		}
		assets = append(assets, name)
		assetIdx = append(assetIdx, i)
	}
	if dateIdx < 0 {
		return nil, &SchemaError{Source: source, Reason: "missing date column"}
	}
	if len(assets) == 0 {
		return nil, &SchemaError{Source: source, Reason: "no asset price columns"}
	}

	days := make([]TradingDay, 0, len(rows))
	for r, row := range rows {
		line := r + 2 // header is line 1
		if dateIdx >= len(row) || strings.TrimSpace(row[dateIdx]) == "" {
			return nil, &SchemaError{Source: source, Reason: fmt.Sprintf("line %d: missing date", line)}
		}
		date, err := ParseDate(row[dateIdx])
		if err != nil {
			return nil, &SchemaError{Source: source, Reason: fmt.Sprintf("line %d: %v", line, err)}
		}
		prices := make([]float64, len(assets))
		for a, idx := range assetIdx {
			if idx >= len(row) || strings.TrimSpace(row[idx]) == "" {
				return nil, &SchemaError{Source: source,
					Reason: fmt.Sprintf("line %d: missing price for %s", line, assets[a])}
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
			if err != nil {
				return nil, &SchemaError{Source: source,
					Reason: fmt.Sprintf("line %d: non-numeric price %q for %s", line, row[idx], assets[a])}
			}
			prices[a] = v
		}
		days = append(days, TradingDay{Date: date, Prices: prices})
	}
	return NewPriceSeries(source, assets, days)
}

func statSource(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &DataNotFoundError{Source: path}
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return nil
}

// CSVSource reads a comma-separated price table with a header row.
type CSVSource struct {
	Path string
}

func (s CSVSource) Load(ctx context.Context) (*PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := statSource(s.Path); err != nil {
		return nil, err
	}
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.Path, err)
	}
	defer file.Close()
	return readCSV(s.Path, file)
}

func readCSV(source string, r io.Reader) (*PriceSeries, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err == io.EOF {
		return nil, &SchemaError{Source: source, Reason: "missing header row"}
	}
	if err != nil {
		return nil, &SchemaError{Source: source, Reason: err.Error()}
	}
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &SchemaError{Source: source, Reason: err.Error()}
	}
	return parseTable(source, header, rows)
}

// XLSXSource reads the price table from a worksheet. An empty Sheet selects
// the first sheet of the workbook.
type XLSXSource struct {
	Path  string
	Sheet string
}

func (s XLSXSource) Load(ctx context.Context) (*PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := statSource(s.Path); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", s.Path, err)
	}
	defer f.Close()

	sheet := s.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &DataNotFoundError{Source: s.Path, Cause: errors.New("workbook has no sheets")}
		}
		sheet = sheets[0]
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, &DataNotFoundError{Source: s.Path + "#" + sheet, Cause: errors.New("sheet not found")}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	source := s.Path + "#" + sheet
	if len(rows) == 0 {
		return nil, &SchemaError{Source: source, Reason: "missing header row"}
	}
	return parseTable(source, rows[0], rows[1:])
}
