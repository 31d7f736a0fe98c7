package cmd

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pagescan/internal/config"
	"github.com/MeKo-Tech/pagescan/internal/ocr"
	"github.com/MeKo-Tech/pagescan/internal/pipeline"
	"github.com/MeKo-Tech/pagescan/internal/utils"
)

const (
	outputFormatJSON = "json"
	outputFormatCSV  = "csv"
	outputFormatText = "text"
)

// Flag bindings shared by the commands that run the pipeline.
var detectorBindings = map[string]string{
	"detector.edge_mode":      "edge-mode",
	"detector.canny_auto":     "canny-auto",
	"detector.approx_epsilon": "approx-epsilon",
	"detector.max_quads":      "max-quads",
	"detector.max_dimension":  "max-dimension",
}

var rectifyBindings = map[string]string{
	"rectify.parallel_tolerance": "parallel-tolerance",
	"rectify.debug_dir":          "debug-dir",
	"postprocess.method":         "threshold-method",
	"postprocess.block_size":     "block-size",
	"postprocess.c":              "threshold-c",
	"batch.full_frame_fallback":  "full-frame",
	"ocr.enabled":                "ocr",
	"ocr.language":               "language",
	"ocr.auto_orient":            "auto-orient",
}

func addDetectorFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("edge-mode", "canny", "edge detection mode (canny, threshold)")
	f.Bool("canny-auto", false, "derive Canny thresholds from the image median")
	f.Float64("approx-epsilon", 0.02, "polygon approximation tolerance as a fraction of the perimeter")
	f.Int("max-quads", 5, "maximum number of candidate quadrilaterals")
	f.Int("max-dimension", 1600, "downscale images so neither side exceeds this before detection (0 disables)")
}

func addRectifyFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64("parallel-tolerance", 0.01, "maximum slope difference for opposing edges to count as parallel")
	f.String("debug-dir", "", "write corner overlays and before/after images here")
	f.Bool("no-postprocess", false, "skip adaptive thresholding of the rectified page")
	f.String("threshold-method", "gaussian", "adaptive threshold method (gaussian, mean)")
	f.Int("block-size", 11, "adaptive threshold neighbourhood size (odd)")
	f.Float64("threshold-c", 2, "constant subtracted from the local mean")
	f.Bool("full-frame", false, "rectify the whole image when no page is found")
	f.Bool("ocr", false, "recognize text on the rectified page")
	f.String("language", "eng", "OCR language")
	f.Bool("auto-orient", false, "detect and correct page orientation before OCR")
}

// pipelineConfig returns the effective pipeline configuration for cmd.
func (a *app) pipelineConfig(cmd *cobra.Command) pipeline.Config {
	pc := a.cfg.ToPipelineConfig()
	if off, err := cmd.Flags().GetBool("no-postprocess"); err == nil && off {
		pc.Rectify.PostProcess = false
	}
	return pc
}

// newOCRPool creates the recognizer pool when OCR is enabled. The returned
// close function is always safe to call.
func newOCRPool(cfg *config.Config) (*ocr.Pool, func(), error) {
	if !cfg.OCR.Enabled {
		return nil, func() {}, nil
	}
	oc := cfg.OCR
	pool, err := ocr.NewPool(oc.Workers, func() (ocr.Recognizer, error) {
		return ocr.NewRecognizer(oc)
	})
	if err != nil {
		return nil, func() {}, fmt.Errorf("start OCR: %w", err)
	}
	return pool, func() {
		if err := pool.Close(); err != nil {
			slog.Warn("Failed to close OCR pool", "error", err)
		}
	}, nil
}

// buildPipeline builds the pipeline for cmd, including the OCR pool when
// enabled. The cleanup function releases both.
func (a *app) buildPipeline(cmd *cobra.Command) (*pipeline.Pipeline, func(), error) {
	pool, closePool, err := newOCRPool(a.cfg)
	if err != nil {
		return nil, nil, err
	}
	pl, err := pipeline.NewBuilder().WithConfig(a.pipelineConfig(cmd)).WithOCRPool(pool).Build()
	if err != nil {
		closePool()
		return nil, nil, fmt.Errorf("build pipeline: %w", err)
	}
	return pl, func() {
		_ = pl.Close()
		closePool()
	}, nil
}

// loadInput reads and validates an input image.
func loadInput(path string) (image.Image, error) {
	img, meta, err := utils.LoadImage(path)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateImageConstraints(img, utils.DefaultImageConstraints()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("Loaded image", "path", path, "format", meta.Format, "width", meta.Width, "height", meta.Height)
	return img, nil
}

// derivedName returns "<stem>_<suffix>.png" next to the current directory.
func derivedName(input, suffix string) string {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return stem + "_" + suffix + ".png"
}

func checkFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid output format: %s (must be one of: %s)", format, strings.Join(allowed, ", "))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
