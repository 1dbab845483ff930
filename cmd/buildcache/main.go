package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"

	"github.com/bdougie/handpose/internal/config"
	"github.com/bdougie/handpose/internal/extractor"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv(config.Defaults(), os.LookupEnv)

	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      cfg.LogLevel,
			TimeFormat: "15:04:05",
		}),
	)
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	n, err := extractor.ExtractAnnotations(ctx, cfg.ListDir, cfg.CacheDir, logger)
	if err != nil {
		logger.Error("cache build failed", "err", err)
		os.Exit(1)
	}
	if n > 0 {
		logger.Info("cache ready", "samples", n, "dir", cfg.CacheDir)
	}
}
