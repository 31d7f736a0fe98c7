// Package batch discovers page photographs on disk and runs them through the
// rectification pipeline in parallel.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/pagescan/internal/pipeline"
)

// ErrNoImages is returned when discovery finds nothing to process.
var ErrNoImages = errors.New("no image files found")

// ProcessBatch discovers images under paths and processes them with config.
// Per-file failures are recorded in the result; only discovery, setup and
// cancellation abort the batch.
func ProcessBatch(ctx context.Context, paths []string, config *Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch config: %w", err)
	}
	files, err := discoverImageFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoImages
	}

	pl, err := buildPipeline(config)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer func() {
		if err := pl.Close(); err != nil {
			slog.Warn("Error closing pipeline", "error", err)
		}
	}()

	slog.Info("Batch processing", "files", len(files), "workers", config.Workers)
	start := time.Now()
	results, err := pl.ProcessFilesParallel(ctx, files, pipeline.ParallelConfig{
		MaxWorkers:       config.Workers,
		ProgressCallback: progressFor(config),
	})
	duration := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("batch processing interrupted: %w", err)
	}

	if config.OutputDir != "" {
		if err := saveRectified(config.OutputDir, results); err != nil {
			return nil, err
		}
	}

	return &Result{
		Files:       results,
		Duration:    duration,
		WorkerCount: config.Workers,
	}, nil
}

// buildPipeline creates a pipeline from the batch configuration.
func buildPipeline(config *Config) (*pipeline.Pipeline, error) {
	return pipeline.NewBuilder().
		WithConfig(config.Pipeline).
		WithOCRPool(config.OCRPool).
		WithParallelWorkers(config.Workers).
		Build()
}

func progressFor(config *Config) pipeline.ProgressCallback {
	if config.Quiet || !config.ShowProgress {
		return nil
	}
	return pipeline.NewConsoleProgressCallback(config.stdout(), "Processing: ").
		WithUpdateInterval(config.ProgressInterval)
}
