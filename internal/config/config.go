package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bdougie/handpose/internal/dataset"
	"github.com/bdougie/handpose/internal/heatmap"
	"github.com/bdougie/handpose/internal/storage"
)

// Cache file names inside CacheDir
const (
	PathsFile       = "GAN_color_path.txt"
	Keypoints2DFile = "joint2D.txt"
	Keypoints3DFile = "joint_pos.txt"
)

// Config is read once at startup and not changed afterwards
type Config struct {
	CacheDir      string
	ListDir       string
	OutputDir     string
	TrainCount    int
	BatchSize     int
	ShuffleBuffer int
	Workers       int
	Sigma         float64
	Seed          uint64
	LogLevel      slog.Level

	// Postgres is nil unless HANDPOSE_PG_HOST is set
	Postgres *storage.PostgresConfig
}

// Defaults returns the configuration used when no environment is set
func Defaults() Config {
	return Config{
		CacheDir:      "cache",
		ListDir:       "cache/listings",
		OutputDir:     "/tmp/image",
		TrainCount:    dataset.DefaultTrainCount,
		BatchSize:     dataset.DefaultBatchSize,
		ShuffleBuffer: dataset.DefaultShuffleBuffer,
		Workers:       dataset.DefaultWorkers,
		Sigma:         heatmap.DefaultSigma,
		LogLevel:      slog.LevelInfo,
	}
}

// FromEnv overrides base with HANDPOSE_* variables found by lookup
// (normally os.LookupEnv).
func FromEnv(base Config, lookup func(string) (string, bool)) (Config, error) {
	cfg := base
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("HANDPOSE_CACHE_DIR", &cfg.CacheDir)
	str("HANDPOSE_LIST_DIR", &cfg.ListDir)
	str("HANDPOSE_OUTPUT_DIR", &cfg.OutputDir)
	num("HANDPOSE_TRAIN_COUNT", &cfg.TrainCount)
	num("HANDPOSE_BATCH_SIZE", &cfg.BatchSize)
	num("HANDPOSE_SHUFFLE_BUFFER", &cfg.ShuffleBuffer)
	num("HANDPOSE_WORKERS", &cfg.Workers)

	if v, ok := lookup("HANDPOSE_SIGMA"); ok && strings.TrimSpace(v) != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("HANDPOSE_SIGMA: %w", err))
		} else {
			cfg.Sigma = f
		}
	}
	if v, ok := lookup("HANDPOSE_SEED"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("HANDPOSE_SEED: %w", err))
		} else {
			cfg.Seed = n
		}
	}
	if v, ok := lookup("HANDPOSE_LOG_LEVEL"); ok && strings.TrimSpace(v) != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
			errs = append(errs, fmt.Errorf("HANDPOSE_LOG_LEVEL: %w", err))
		}
	}

	if host, ok := lookup("HANDPOSE_PG_HOST"); ok && strings.TrimSpace(host) != "" {
		pg := storage.PostgresConfig{Host: strings.TrimSpace(host), Port: "5432", User: "postgres", DBName: "handpose"}
		str("HANDPOSE_PG_PORT", &pg.Port)
		str("HANDPOSE_PG_USER", &pg.User)
		str("HANDPOSE_PG_DB", &pg.DBName)
		if v, ok := lookup("HANDPOSE_PG_PASSWORD"); ok {
			pg.Password = v
		}
		cfg.Postgres = &pg
	}

	if len(errs) > 0 {
		return base, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with
func (c Config) Validate() error {
	var errs []error
	if c.CacheDir == "" {
		errs = append(errs, errors.New("cache dir is empty"))
	}
	if c.OutputDir == "" || filepath.Clean(c.OutputDir) == "/" {
		errs = append(errs, fmt.Errorf("output dir %q is not usable", c.OutputDir))
	}
	if c.TrainCount <= 0 {
		errs = append(errs, fmt.Errorf("train count must be positive, got %d", c.TrainCount))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", c.BatchSize))
	}
	if c.ShuffleBuffer <= 0 {
		errs = append(errs, fmt.Errorf("shuffle buffer must be positive, got %d", c.ShuffleBuffer))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.Sigma <= 0 {
		errs = append(errs, fmt.Errorf("sigma must be positive, got %v", c.Sigma))
	}
	return errors.Join(errs...)
}

// AnnotationPaths returns the three cache files in load order
func (c Config) AnnotationPaths() (paths, kp2d, kp3d string) {
	return filepath.Join(c.CacheDir, PathsFile),
		filepath.Join(c.CacheDir, Keypoints2DFile),
		filepath.Join(c.CacheDir, Keypoints3DFile)
}
