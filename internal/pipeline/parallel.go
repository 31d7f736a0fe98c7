package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"
)

// ParallelConfig holds configuration for parallel processing.
type ParallelConfig struct {
	MaxWorkers       int              // Number of parallel workers (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback // Optional progress reporting
}

// DefaultParallelConfig returns sensible defaults for parallel processing.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

type job struct {
	index int
	run   func(context.Context) (*PageResult, error)
}

type jobResult struct {
	index  int
	result *PageResult
	err    error
}

// runParallel executes jobs over a worker pool and returns results in job
// order. Jobs not started before ctx is cancelled are reported with ctx.Err().
func (p *Pipeline) runParallel(ctx context.Context, jobs []job, config ParallelConfig) ([]*PageResult, []error) {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}
	workers := min(config.MaxWorkers, len(jobs))

	cb := config.ProgressCallback
	if cb != nil {
		cb.OnStart(len(jobs))
		defer cb.OnComplete()
	}

	queue := make(chan job)
	results := make(chan jobResult, len(jobs))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range queue {
				res, err := j.run(ctx)
				results <- jobResult{index: j.index, result: res, err: err}
			}
		}()
	}

	go func() {
		defer close(queue)
		for _, j := range jobs {
			select {
			case queue <- j:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*PageResult, len(jobs))
	errs := make([]error, len(jobs))
	seen := make([]bool, len(jobs))
	done := 0
	for r := range results {
		ordered[r.index], errs[r.index] = r.result, r.err
		seen[r.index] = true
		done++
		if cb != nil {
			if r.err != nil {
				cb.OnError(done, r.err)
			}
			cb.OnProgress(done, len(jobs))
		}
	}
	for i := range seen {
		if !seen[i] {
			errs[i] = ctx.Err()
		}
	}
	return ordered, errs
}

// ProcessImagesParallel processes images over a worker pool. Results keep
// the input order; the first failure is returned alongside the partial results.
func (p *Pipeline) ProcessImagesParallel(ctx context.Context, images []image.Image, config ParallelConfig) ([]*PageResult, error) {
	if len(images) == 0 {
		return nil, errors.New("no images provided")
	}
	if err := p.ready(); err != nil {
		return nil, err
	}
	jobs := make([]job, len(images))
	for i, img := range images {
		jobs[i] = job{index: i, run: func(ctx context.Context) (*PageResult, error) {
			return p.ProcessImage(ctx, img)
		}}
	}
	results, errs := p.runParallel(ctx, jobs, config)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, err := range errs {
		if err != nil {
			return results, fmt.Errorf("image %d: %w", i, err)
		}
	}
	return results, nil
}

// ProcessFilesParallel loads and processes paths over a worker pool. Every
// file gets a FileResult in input order; per-file failures do not stop the batch.
func (p *Pipeline) ProcessFilesParallel(ctx context.Context, paths []string, config ParallelConfig) ([]FileResult, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	jobs := make([]job, len(paths))
	for i, path := range paths {
		jobs[i] = job{index: i, run: func(ctx context.Context) (*PageResult, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return p.ProcessFile(ctx, path)
		}}
	}
	results, errs := p.runParallel(ctx, jobs, config)
	out := make([]FileResult, len(paths))
	for i, path := range paths {
		out[i] = FileResult{Path: path, Result: results[i], Err: errs[i]}
		if errs[i] != nil {
			out[i].Error = errs[i].Error()
		}
	}
	return out, ctx.Err()
}

// ParallelStats holds statistics about parallel processing performance.
type ParallelStats struct {
	TotalImages      int           `json:"total_images"`
	ProcessedImages  int           `json:"processed_images"`
	FoundPages       int           `json:"found_pages"`
	FailedImages     int           `json:"failed_images"`
	WorkerCount      int           `json:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
	AveragePerImage  time.Duration `json:"average_per_image_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
}

// CalculateParallelStats summarizes a batch run.
func CalculateParallelStats(results []FileResult, duration time.Duration, workerCount int) ParallelStats {
	s := ParallelStats{TotalImages: len(results), WorkerCount: workerCount, TotalDuration: duration}
	for _, r := range results {
		switch {
		case r.Err != nil || r.Result == nil:
			s.FailedImages++
		default:
			s.ProcessedImages++
			if r.Result.Found {
				s.FoundPages++
			}
		}
	}
	if s.ProcessedImages > 0 {
		s.AveragePerImage = duration / time.Duration(s.ProcessedImages)
		if duration > 0 {
			s.ThroughputPerSec = float64(s.ProcessedImages) / duration.Seconds()
		}
	}
	return s
}
