// Package marketgen creates synthetic daily price histories for stress testing.
package marketgen

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat/distuv"

	"portfolioStress/internal/finance"
)

// BasePrice is the level every synthetic asset starts from.
const BasePrice = 100.0

// DefaultDays is a two-year window.
const DefaultDays = 730

// AssetProfile is the daily log-return distribution of one synthetic asset.
type AssetProfile struct {
	Name  string
	Mu    float64 // mean daily log-return
	Sigma float64 // daily volatility
}

// DefaultProfiles returns an aggressive, a stable and a defensive asset.
func DefaultProfiles() []AssetProfile {
	return []AssetProfile{
		{Name: "Tech_Growth", Mu: 0.0008, Sigma: 0.025},
		{Name: "Blue_Chip", Mu: 0.0004, Sigma: 0.012},
		{Name: "Gold_Safe", Mu: 0.0001, Sigma: 0.009},
	}
}

type Config struct {
	Profiles []AssetProfile
	Days     int       // calendar days back from End; Days+1 rows are produced
	End      time.Time // truncated to the day
}

// Generate draws a geometric random walk per profile:
// price_t = BasePrice · exp(Σ_{k≤t} r_k), r_k ~ N(Mu, Sigma), rounded to cents.
func Generate(cfg Config, src rand.Source) (*finance.PriceSeries, error) {
	if len(cfg.Profiles) == 0 {
		return nil, errors.New("no asset profiles")
	}
	if cfg.Days < 1 {
		return nil, fmt.Errorf("days must be >= 1, got %d", cfg.Days)
	}
	if src == nil {
		return nil, errors.New("random source is required")
	}

	end := time.Date(cfg.End.Year(), cfg.End.Month(), cfg.End.Day(), 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -cfg.Days)
	n := cfg.Days + 1

	days := make([]finance.TradingDay, n)
	for d := range days {
		days[d] = finance.TradingDay{
			Date:   start.AddDate(0, 0, d),
			Prices: make([]float64, len(cfg.Profiles)),
		}
	}

	assets := make([]string, len(cfg.Profiles))
	for a, p := range cfg.Profiles {
		if p.Sigma < 0 || math.IsNaN(p.Sigma) || math.IsNaN(p.Mu) {
			return nil, fmt.Errorf("invalid profile %s: mu=%v sigma=%v", p.Name, p.Mu, p.Sigma)
		}
		assets[a] = p.Name

		normal := distuv.Normal{Mu: p.Mu, Sigma: p.Sigma, Src: src}
		cum := 0.0
		for d := range days {
			cum += normal.Rand()
			price, _ := decimal.NewFromFloat(BasePrice * math.Exp(cum)).Round(2).Float64()
			days[d].Prices[a] = price
		}
	}

	return finance.NewPriceSeries("marketgen", assets, days)
}

// WriteCSV writes the series with a Date column followed by one column per asset.
func WriteCSV(w io.Writer, series *finance.PriceSeries) error {
	cw := csv.NewWriter(w)
	header := append([]string{"Date"}, series.Assets...)
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(series.Assets)+1)
	for _, day := range series.Days {
		record[0] = day.Date.Format("2006-01-02")
		for a, p := range day.Prices {
			record[a+1] = strconv.FormatFloat(p, 'f', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile creates or truncates path and writes the series to it.
func WriteCSVFile(path string, series *finance.PriceSeries) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, series); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
