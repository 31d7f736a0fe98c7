// Package pipeline chains page detection, rectification and optional text
// recognition into a single call, and fans batches out over workers.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/MeKo-Tech/pagescan/internal/detector"
	"github.com/MeKo-Tech/pagescan/internal/ocr"
	"github.com/MeKo-Tech/pagescan/internal/postprocess"
	"github.com/MeKo-Tech/pagescan/internal/rectify"
)

// Stage names reported to a StageObserver.
const (
	StageDetect  = "detect"
	StageRectify = "rectify"
	StageOrient  = "orient"
	StageOCR     = "ocr"
)

// StageObserver receives the duration of every completed stage.
type StageObserver func(stage string, d time.Duration)

// Config holds configuration for the pipeline and its components.
type Config struct {
	Detector  detector.Config
	Rectify   rectify.Config
	OCR       ocr.Config
	Parallel  ParallelConfig
	Observer  StageObserver
	// FullFrameFallback rectifies the whole image when no page is found.
	FullFrameFallback bool
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		Detector: detector.DefaultConfig(),
		Rectify:  rectify.DefaultConfig(),
		OCR:      ocr.DefaultConfig(),
		Parallel: DefaultParallelConfig(),
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg  Config
	pool *ocr.Pool
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithDetectorConfig replaces the detector configuration.
func (b *Builder) WithDetectorConfig(cfg detector.Config) *Builder {
	b.cfg.Detector = cfg
	return b
}

// WithEdgeMode selects Canny or threshold edges.
func (b *Builder) WithEdgeMode(mode detector.EdgeMode) *Builder {
	if mode != "" {
		b.cfg.Detector.EdgeMode = mode
	}
	return b
}

// WithApproxEpsilon sets the polygon approximation tolerance as a fraction of the perimeter.
func (b *Builder) WithApproxEpsilon(eps float64) *Builder {
	if eps > 0 {
		b.cfg.Detector.ApproxEpsilon = eps
	}
	return b
}

// WithMaxQuads limits the number of candidates kept per image.
func (b *Builder) WithMaxQuads(n int) *Builder {
	if n > 0 {
		b.cfg.Detector.MaxQuads = n
	}
	return b
}

// WithRectifyConfig replaces the rectification configuration.
func (b *Builder) WithRectifyConfig(cfg rectify.Config) *Builder {
	b.cfg.Rectify = cfg
	return b
}

// WithParallelTolerance sets the edge-parallelism tolerance.
func (b *Builder) WithParallelTolerance(tol float64) *Builder {
	if tol > 0 {
		b.cfg.Rectify.ParallelTolerance = tol
	}
	return b
}

// WithPostprocess toggles adaptive thresholding of the rectified page.
func (b *Builder) WithPostprocess(enabled bool) *Builder {
	b.cfg.Rectify.PostProcess = enabled
	return b
}

// WithThreshold sets the adaptive threshold parameters.
func (b *Builder) WithThreshold(opts postprocess.Options) *Builder {
	b.cfg.Rectify.Postprocess = opts
	return b
}

// WithRectifyDebugDir enables debug dumps for the rectification stage into dir.
func (b *Builder) WithRectifyDebugDir(dir string) *Builder {
	if dir != "" {
		b.cfg.Rectify.DebugDir = dir
	}
	return b
}

// WithFullFrameFallback rectifies the full frame when no page is detected.
func (b *Builder) WithFullFrameFallback(enabled bool) *Builder {
	b.cfg.FullFrameFallback = enabled
	return b
}

// WithOCRPool enables recognition through a shared worker pool. The pool is
// owned by the caller and is not closed by Pipeline.Close.
func (b *Builder) WithOCRPool(pool *ocr.Pool) *Builder {
	b.pool = pool
	b.cfg.OCR.Enabled = pool != nil
	return b
}

// WithAutoOrient enables orientation detection before recognition.
func (b *Builder) WithAutoOrient(enabled bool) *Builder {
	b.cfg.OCR.AutoOrient = enabled
	return b
}

// WithParallelWorkers sets the number of parallel workers for batch processing.
func (b *Builder) WithParallelWorkers(workers int) *Builder {
	if workers > 0 {
		b.cfg.Parallel.MaxWorkers = workers
	}
	return b
}

// WithProgressCallback sets the progress callback for batch processing.
func (b *Builder) WithProgressCallback(callback ProgressCallback) *Builder {
	b.cfg.Parallel.ProgressCallback = callback
	return b
}

// WithStageObserver registers a per-stage timing hook.
func (b *Builder) WithStageObserver(fn StageObserver) *Builder {
	b.cfg.Observer = fn
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks the configuration.
func (b *Builder) Validate() error {
	if err := b.cfg.Detector.Validate(); err != nil {
		return fmt.Errorf("detector: %w", err)
	}
	if err := b.cfg.Rectify.Validate(); err != nil {
		return fmt.Errorf("rectify: %w", err)
	}
	if b.cfg.OCR.Enabled && b.pool == nil {
		return errors.New("ocr enabled without a recognizer pool")
	}
	return nil
}

// Pipeline wires together the detector, rectifier and recognizer pool.
type Pipeline struct {
	cfg       Config
	Detector  *detector.Detector
	Rectifier *rectify.Rectifier
	OCR       *ocr.Pool
}

// Build initializes the pipeline components.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	det, err := detector.NewDetector(b.cfg.Detector)
	if err != nil {
		return nil, fmt.Errorf("init detector: %w", err)
	}
	rx, err := rectify.New(b.cfg.Rectify)
	if err != nil {
		return nil, fmt.Errorf("init rectifier: %w", err)
	}
	if b.cfg.Parallel.MaxWorkers <= 0 {
		b.cfg.Parallel.MaxWorkers = runtime.NumCPU()
	}
	slog.Debug("Pipeline ready",
		"edge_mode", b.cfg.Detector.EdgeMode,
		"postprocess", b.cfg.Rectify.PostProcess,
		"ocr", b.pool != nil,
		"workers", b.cfg.Parallel.MaxWorkers)
	return &Pipeline{cfg: b.cfg, Detector: det, Rectifier: rx, OCR: b.pool}, nil
}

// Close detaches the pipeline from its components. The OCR pool stays open.
func (p *Pipeline) Close() error {
	p.Detector = nil
	p.Rectifier = nil
	p.OCR = nil
	return nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Info returns a map with key pipeline properties.
func (p *Pipeline) Info() map[string]any {
	info := map[string]any{
		"detector": map[string]any{
			"edge_mode":      p.cfg.Detector.EdgeMode,
			"canny_auto":     p.cfg.Detector.CannyAuto,
			"approx_epsilon": p.cfg.Detector.ApproxEpsilon,
			"max_quads":      p.cfg.Detector.MaxQuads,
			"max_dimension":  p.cfg.Detector.MaxDimension,
		},
		"rectify": map[string]any{
			"parallel_tolerance": p.cfg.Rectify.ParallelTolerance,
			"postprocess":        p.cfg.Rectify.PostProcess,
			"threshold_method":   p.cfg.Rectify.Postprocess.Method,
		},
		"parallel": map[string]any{
			"max_workers":           p.cfg.Parallel.MaxWorkers,
			"has_progress_callback": p.cfg.Parallel.ProgressCallback != nil,
		},
		"full_frame_fallback": p.cfg.FullFrameFallback,
	}
	o := map[string]any{"enabled": p.OCR != nil, "backend": ocr.BackendName}
	if p.OCR != nil {
		o["workers"] = p.OCR.Size()
		o["auto_orient"] = p.cfg.OCR.AutoOrient
	}
	info["ocr"] = o
	return info
}

func (p *Pipeline) observe(stage string, start time.Time) time.Duration {
	d := time.Since(start)
	if p.cfg.Observer != nil {
		p.cfg.Observer(stage, d)
	}
	return d
}
