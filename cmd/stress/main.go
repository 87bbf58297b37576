package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portfolioStress/internal/config"
	"portfolioStress/internal/finance"
	"portfolioStress/internal/logging"
	"portfolioStress/internal/metrics"
	"portfolioStress/internal/report"
	"portfolioStress/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(2)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("stress test failed", zap.Error(err))
		if errors.Is(err, finance.ErrDataNotFound) {
			fmt.Fprintf(os.Stderr, "price data not found at %s; run marketgen first\n", cfg.Data.Path)
		}
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	runID := uuid.NewString()
	logger = logging.WithRun(logger, runID)

	source, err := sourceFor(cfg.Data)
	if err != nil {
		return err
	}
	params, err := cfg.Simulation.RunParams()
	if err != nil {
		return err
	}

	recorder := metrics.NewRun(runID)
	pipeline := &finance.Pipeline{
		Source:   source,
		Params:   params,
		Logger:   logger,
		Recorder: recorder,
	}
	logger.Info("stress: loading historical prices",
		zap.String("source", cfg.Data.Source), zap.String("path", cfg.Data.Path))

	outcome, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	summary := report.NewSummary(runID, outcome, time.Now())
	fmt.Print(report.FormatText(summary))

	return writeOutputs(cfg.Output, summary, outcome, recorder, logger)
}

// sourceFor selects the price source named in the config.
func sourceFor(data config.DataConfig) (finance.Source, error) {
	switch data.Source {
	case "csv":
		return finance.CSVSource{Path: data.Path}, nil
	case "xlsx":
		return finance.XLSXSource{Path: data.Path, Sheet: data.Sheet}, nil
	case "sqlite":
		return storage.Source{Path: data.Path}, nil
	default:
		return nil, fmt.Errorf("unknown data source %q", data.Source)
	}
}

func outputPath(dir, name string) string {
	if name == "" || filepath.IsAbs(name) || dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

func writeOutputs(out config.OutputConfig, summary report.Summary, outcome *finance.Outcome, recorder *metrics.Run, logger *zap.Logger) error {
	if out.Dir != "" {
		if err := os.MkdirAll(out.Dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}

	if path := outputPath(out.Dir, out.Chart); path != "" {
		png, err := report.MakeFanChart(report.FanChartInput{
			Result:       outcome.Result,
			Medians:      outcome.DayMedians,
			VaRThreshold: outcome.Metrics.VaRThreshold,
			Percentile:   outcome.Metrics.Percentile,
			MaxPaths:     out.ChartPaths,
		})
		if err != nil {
			// A zero-day horizon has nothing to draw; the report still stands.
			logger.Warn("chart: skipped", zap.Error(err))
		} else {
			if err := os.WriteFile(path, png, 0o644); err != nil {
				return fmt.Errorf("failed to write chart: %w", err)
			}
			logger.Info("chart: fan chart written", zap.String("path", path))
		}
	}

	if path := outputPath(out.Dir, out.Workbook); path != "" {
		if err := report.WriteWorkbook(path, summary, outcome.Result, outcome.DayMedians); err != nil {
			return err
		}
		logger.Info("workbook: written", zap.String("path", path))
	}

	if path := outputPath(out.Dir, out.JSON); path != "" {
		if err := report.WriteJSON(path, summary); err != nil {
			return err
		}
		logger.Info("json: summary written", zap.String("path", path))
	}

	if path := outputPath(out.Dir, out.MetricsFile); path != "" {
		if err := recorder.WriteTextfile(path); err != nil {
			return err
		}
		logger.Info("metrics: textfile written", zap.String("path", path))
	}
	return nil
}
