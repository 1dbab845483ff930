package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"

	"github.com/bdougie/handpose/internal/analyzer"
	"github.com/bdougie/handpose/internal/annotations"
	"github.com/bdougie/handpose/internal/config"
	"github.com/bdougie/handpose/internal/dataset"
	"github.com/bdougie/handpose/internal/pipeline"
	"github.com/bdougie/handpose/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv(config.Defaults(), os.LookupEnv)
	if err == nil {
		err = cfg.Validate()
	}

	// Configure logger
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

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("handviz failed", "err", err)
		os.Exit(1)
	}
	fmt.Println("Rendering completed successfully!")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if err := resetOutputDir(cfg.OutputDir); err != nil {
		return err
	}

	store, err := annotations.Load(cfg.AnnotationPaths())
	if err != nil {
		return err
	}
	train, eval, err := dataset.Split(store, cfg.TrainCount)
	if err != nil {
		return err
	}
	logger.Info("annotations loaded", "samples", store.Len(), "train", len(train), "eval", len(eval))

	transformer := pipeline.Transformer{Sigma: cfg.Sigma}
	stream, err := dataset.NewStream(eval, transformer.Transform, dataset.Options{
		BatchSize:     cfg.BatchSize,
		ShuffleBuffer: cfg.ShuffleBuffer,
		Workers:       cfg.Workers,
		Seed:          cfg.Seed,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	results, closeResults, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeResults()

	processor := analyzer.NewProcessor(stream, results, cfg.OutputDir, logger).WithWorkers(cfg.Workers)
	_, err = processor.ProcessEval(ctx, len(eval))
	return err
}

// resetOutputDir leaves dir existing and empty
func resetOutputDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear output directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// openStorage returns the JSON index, fanned out to Postgres when configured
func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Storage, func(), error) {
	files := storage.NewFileStorage(cfg.OutputDir)
	if cfg.Postgres == nil {
		return files, func() {}, nil
	}

	if err := storage.InitSchema(ctx, *cfg.Postgres); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	pg, err := storage.NewPostgresStorage(ctx, *cfg.Postgres, "eval")
	if err != nil {
		return nil, nil, err
	}
	logger.Info("pose index enabled", "host", cfg.Postgres.Host, "db", cfg.Postgres.DBName)
	return storage.Multi{files, pg}, pg.Close, nil
}
