package report

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/vicanso/go-charts/v2"

	"portfolioStress/internal/finance"
)

// DefaultChartPaths is how many simulated paths are drawn behind the markers.
const DefaultChartPaths = 100

// FanChartInput is everything the fan chart draws.
type FanChartInput struct {
	Result       *finance.SimulationResult
	Medians      []float64 // day 0..FutureDays
	VaRThreshold float64
	Percentile   float64
	MaxPaths     int // 0 selects DefaultChartPaths
	Width        int
	Height       int
}

// MakeFanChart renders the simulated paths with the initial capital line, the
// day-wise median trend and the VaR line as a PNG.
func MakeFanChart(in FanChartInput) ([]byte, error) {
	r := in.Result
	if r == nil || r.NumSims == 0 {
		return nil, errors.New("no simulation to plot")
	}
	if r.FutureDays < 1 {
		return nil, errors.New("not enough data points")
	}
	if len(in.Medians) != r.FutureDays+1 {
		return nil, fmt.Errorf("median trend has %d points, expected %d", len(in.Medians), r.FutureDays+1)
	}

	points := r.FutureDays + 1
	xLabels := make([]string, points)
	for d := range xLabels {
		xLabels[d] = strconv.Itoa(d)
	}

	capitalLine := constant(points, r.InitialCapital)
	varLine := constant(points, in.VaRThreshold)
	varName := humanize.Ftoa(in.Percentile) + "% VaR (Risk Level)"
	names := []string{"Initial Capital", "Median Trend", varName}

	markers := [][]float64{capitalLine, in.Medians, varLine}
	sims := samplePaths(r.NumSims, in.MaxPaths)
	paths := make([][]float64, len(sims))
	for i, sim := range sims {
		paths[i] = r.Path(sim)
	}
	values := append(append([][]float64{}, markers...), paths...)

	// y-range with padding
	yMin, yMax := values[0][0], values[0][0]
	for _, series := range values {
		for _, v := range series {
			if v < yMin {
				yMin = v
			}
			if v > yMax {
				yMax = v
			}
		}
	}
	pad := (yMax - yMin) * 0.05
	if pad < yMax*0.002 {
		pad = yMax * 0.002
	}
	yMin -= pad
	if yMin < 0 {
		yMin = 0
	}
	yMax += pad

	splitNum := 6
	if points <= 30 {
		splitNum = points / 3
		if splitNum < 3 {
			splitNum = 3
		}
	}

	seriesList := fanSeries(markers, paths, names)

	width, height := in.Width, in.Height
	if width == 0 {
		width = 1200
	}
	if height == 0 {
		height = 700
	}

	title := fmt.Sprintf("Monte Carlo Stress Test: %s Future Scenarios", humanize.Comma(int64(r.NumSims)))
	subtitle := fmt.Sprintf("Days into future: %d | Portfolio value ($) | Median %s | VaR %s",
		r.FutureDays, Money(in.Medians[r.FutureDays]), Money(in.VaRThreshold))

	painter, err := charts.Render(charts.ChartOption{
		SeriesList:      seriesList,
		SymbolShow:      charts.FalseFlag(),
		LineStrokeWidth: 1.5,
	},
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels, BoundaryGap: charts.FalseFlag(), SplitNumber: splitNum}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names, Top: charts.PositionTop}),
		charts.ThemeOptionFunc(fanTheme(len(paths))),
		charts.WidthOptionFunc(width),
		charts.HeightOptionFunc(height),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	buf, err := painter.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

var (
	// Initial capital, median trend, VaR.
	markerColors = []charts.Color{
		{R: 238, G: 238, B: 238, A: 255},
		{R: 255, G: 193, B: 7, A: 255},
		{R: 239, G: 83, B: 80, A: 255},
	}
	pathColor  = charts.Color{R: 100, G: 181, B: 246, A: 40}
	markerDash = []float64{8, 4}
)

// fanSeries lays out the markers, the sampled paths, then the markers again
// unnamed so they are painted over the paths. Only the first three series
// are named and therefore listed in the legend.
func fanSeries(markers, paths [][]float64, names []string) charts.SeriesList {
	values := make([][]float64, 0, len(paths)+2*len(markers))
	values = append(values, markers...)
	values = append(values, paths...)
	values = append(values, markers...)

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range names {
		seriesList[i].Name = names[i]
	}
	last := len(seriesList) - len(markers)
	for _, i := range []int{0, 2, last, last + 2} {
		seriesList[i].Style.StrokeDashArray = markerDash
	}
	return seriesList
}

// fanPalette colours series by index: bright markers, translucent paths,
// then the markers again.
func fanPalette(paths int) []charts.Color {
	out := make([]charts.Color, 0, paths+2*len(markerColors))
	out = append(out, markerColors...)
	for i := 0; i < paths; i++ {
		out = append(out, pathColor)
	}
	return append(out, markerColors...)
}

var fanThemes struct {
	sync.Mutex
	registered map[string]bool
}

// fanTheme registers, once per path count, a dark theme whose palette
// matches the fanSeries layout.
func fanTheme(paths int) string {
	name := fmt.Sprintf("stress-fan-%d", paths)

	fanThemes.Lock()
	defer fanThemes.Unlock()
	if fanThemes.registered[name] {
		return name
	}
	charts.AddTheme(name, charts.ThemeOption{
		IsDarkMode:         true,
		AxisStrokeColor:    charts.Color{R: 185, G: 184, B: 206, A: 255},
		AxisSplitLineColor: charts.Color{R: 72, G: 71, B: 83, A: 255},
		BackgroundColor:    charts.Color{R: 16, G: 12, B: 42, A: 255},
		TextColor:          charts.Color{R: 238, G: 238, B: 238, A: 255},
		SeriesColors:       fanPalette(paths),
	})
	if fanThemes.registered == nil {
		fanThemes.registered = make(map[string]bool)
	}
	fanThemes.registered[name] = true
	return name
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// samplePaths picks up to limit simulation indices spread evenly over [0, numSims).
func samplePaths(numSims, limit int) []int {
	if limit <= 0 {
		limit = DefaultChartPaths
	}
	if limit > numSims {
		limit = numSims
	}
	out := make([]int, limit)
	for i := range out {
		out[i] = i * numSims / limit
	}
	return out
}
