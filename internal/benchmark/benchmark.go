// Package benchmark measures pipeline throughput on synthetic page scenes.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/pagescan/internal/pipeline"
	"github.com/MeKo-Tech/pagescan/internal/testutil"
)

// Timer measures one named interval.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer starts a timer with the given name.
func NewTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration { return t.duration }

func (t *Timer) String() string {
	return fmt.Sprintf("%s: %v", t.name, t.duration)
}

// MemoryStats holds memory usage statistics.
type MemoryStats struct {
	AllocBytes      uint64
	TotalAllocBytes uint64
	SysBytes        uint64
	NumGC           uint32
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		SysBytes:        m.Sys,
		NumGC:           m.NumGC,
	}
}

// Result is the outcome of one benchmark.
type Result struct {
	Name         string        `json:"name"`
	Iterations   int           `json:"iterations"`
	Duration     time.Duration `json:"duration_ns"`
	AllocatedKB  uint64        `json:"allocated_kb"`
	GCRuns       uint32        `json:"gc_runs"`
	Error        error         `json:"-"`
	ErrorMessage string        `json:"error,omitempty"`
}

// PerIteration returns the mean duration of one iteration.
func (r Result) PerIteration() time.Duration {
	if r.Iterations == 0 {
		return 0
	}
	return r.Duration / time.Duration(r.Iterations)
}

func (r Result) String() string {
	if r.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", r.Name, r.Error)
	}
	return fmt.Sprintf("%s: %d iterations, avg: %v, total: %v, alloc: %d KB, gc: %d",
		r.Name, r.Iterations, r.PerIteration(), r.Duration, r.AllocatedKB, r.GCRuns)
}

// Benchmark is a named function run repeatedly.
type Benchmark struct {
	Name string
	Func func(ctx context.Context) error
}

// Suite runs benchmarks in registration order.
type Suite struct {
	mu         sync.Mutex
	benchmarks []Benchmark
	results    []Result
}

// NewSuite creates an empty suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add registers a benchmark.
func (s *Suite) Add(name string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.benchmarks = append(s.benchmarks, Benchmark{Name: name, Func: fn})
}

// Names lists the registered benchmarks.
func (s *Suite) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.benchmarks))
	for i, b := range s.benchmarks {
		names[i] = b.Name
	}
	return names
}

// Run runs the named benchmark.
func (s *Suite) Run(ctx context.Context, name string, iterations int) Result {
	s.mu.Lock()
	var bench *Benchmark
	for i := range s.benchmarks {
		if s.benchmarks[i].Name == name {
			bench = &s.benchmarks[i]
			break
		}
	}
	s.mu.Unlock()
	if bench == nil {
		err := fmt.Errorf("benchmark '%s' not found", name)
		return Result{Name: name, Error: err, ErrorMessage: err.Error()}
	}
	return run(ctx, *bench, iterations)
}

// RunAll runs every benchmark and keeps the results.
func (s *Suite) RunAll(ctx context.Context, iterations int) []Result {
	s.mu.Lock()
	benchmarks := append([]Benchmark(nil), s.benchmarks...)
	s.mu.Unlock()

	results := make([]Result, 0, len(benchmarks))
	for _, b := range benchmarks {
		if ctx.Err() != nil {
			break
		}
		results = append(results, run(ctx, b, iterations))
	}

	s.mu.Lock()
	s.results = results
	s.mu.Unlock()
	return results
}

// Results returns the last RunAll results.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// WriteResults prints results as a table.
func WriteResults(w io.Writer, results []Result) {
	_, _ = fmt.Fprintln(w, "\nBenchmark Results:")
	_, _ = fmt.Fprintln(w, "==================")
	for _, r := range results {
		_, _ = fmt.Fprintln(w, r.String())
	}
}

func run(ctx context.Context, b Benchmark, iterations int) Result {
	iterations = max(iterations, 1)
	runtime.GC()
	before := GetMemoryStats()
	timer := NewTimer(b.Name)

	res := Result{Name: b.Name}
	for range iterations {
		if err := b.Func(ctx); err != nil {
			res.Error = err
			res.ErrorMessage = err.Error()
			break
		}
		res.Iterations++
	}
	res.Duration = timer.Stop()
	after := GetMemoryStats()
	res.AllocatedKB = (after.TotalAllocBytes - before.TotalAllocBytes) / 1024
	res.GCRuns = after.NumGC - before.NumGC
	return res
}

// Scene is a named synthetic input.
type Scene struct {
	Name  string
	Image image.Image
}

// DefaultScenes returns the flat, tilted and large page scenes.
func DefaultScenes() []Scene {
	tilted, _ := testutil.PerspectivePage(300, 200, 0.3, 0.2, testutil.MediumSize)
	large, _ := testutil.PerspectivePage(1200, 900, 0.25, 0.1, testutil.ImageSize{Width: 2400, Height: 1800})
	return []Scene{
		{Name: "flat_200", Image: testutil.RectPage(testutil.DefaultPageConfig())},
		{Name: "tilted_640", Image: tilted},
		{Name: "large_2400", Image: large},
	}
}

// NewPipelineSuite registers detection-only and full-pipeline benchmarks for
// every scene.
func NewPipelineSuite(pl *pipeline.Pipeline, scenes []Scene) *Suite {
	s := NewSuite()
	for _, sc := range scenes {
		img := sc.Image
		s.Add("Detect_"+sc.Name, func(ctx context.Context) error {
			_, err := pl.Detector.Detect(ctx, img)
			return err
		})
		s.Add("Pipeline_"+sc.Name, func(ctx context.Context) error {
			res, err := pl.ProcessImage(ctx, img)
			if err != nil {
				return err
			}
			if !res.Found {
				return fmt.Errorf("no page found in %s", sc.Name)
			}
			return nil
		})
	}
	return s
}

// ParallelComparison contrasts one worker with many on the same batch.
type ParallelComparison struct {
	Images     int           `json:"images"`
	Workers    int           `json:"workers"`
	Sequential time.Duration `json:"sequential_ns"`
	Parallel   time.Duration `json:"parallel_ns"`
}

// Speedup is the sequential over the parallel duration.
func (c ParallelComparison) Speedup() float64 {
	if c.Parallel <= 0 {
		return 0
	}
	return float64(c.Sequential) / float64(c.Parallel)
}

func (c ParallelComparison) String() string {
	return fmt.Sprintf("%d images: 1 worker %v, %d workers %v (%.2fx)",
		c.Images, c.Sequential.Round(time.Millisecond), c.Workers, c.Parallel.Round(time.Millisecond), c.Speedup())
}

// CompareParallel processes copies of scenes with one worker and then with
// workers, n images in total.
func CompareParallel(ctx context.Context, pl *pipeline.Pipeline, scenes []Scene, n, workers int) (ParallelComparison, error) {
	if len(scenes) == 0 {
		return ParallelComparison{}, errors.New("no scenes")
	}
	images := make([]image.Image, n)
	for i := range images {
		images[i] = scenes[i%len(scenes)].Image
	}
	cmp := ParallelComparison{Images: n, Workers: workers}

	timer := NewTimer("sequential")
	if _, err := pl.ProcessImagesParallel(ctx, images, pipeline.ParallelConfig{MaxWorkers: 1}); err != nil {
		return cmp, err
	}
	cmp.Sequential = timer.Stop()

	timer = NewTimer("parallel")
	if _, err := pl.ProcessImagesParallel(ctx, images, pipeline.ParallelConfig{MaxWorkers: workers}); err != nil {
		return cmp, err
	}
	cmp.Parallel = timer.Stop()
	return cmp, nil
}
