package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"go.uber.org/zap"

	"portfolioStress/internal/config"
	"portfolioStress/internal/finance"
	"portfolioStress/internal/logging"
	"portfolioStress/internal/marketgen"
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

	if err := generate(context.Background(), cfg.Generator, time.Now(), logger); err != nil {
		logger.Error("marketgen: failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func generate(ctx context.Context, gen config.GeneratorConfig, now time.Time, logger *zap.Logger) error {
	seed := gen.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	logger.Info("marketgen: initiating synthetic market generation",
		zap.Int("days", gen.Days), zap.Uint64("seed", seed))

	series, err := marketgen.Generate(marketgen.Config{
		Profiles: marketgen.DefaultProfiles(),
		Days:     gen.Days,
		End:      now,
	}, finance.NewSource(seed))
	if err != nil {
		return err
	}

	switch gen.Format {
	case "sqlite":
		err = storage.Save(ctx, gen.Output, series)
	default:
		err = marketgen.WriteCSVFile(gen.Output, series)
	}
	if err != nil {
		return err
	}
	logger.Info("marketgen: baseline established",
		zap.String("path", gen.Output), zap.String("format", gen.Format), zap.Int("days", series.Len()))
	return nil
}
