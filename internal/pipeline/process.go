package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/pagescan/internal/ocr"
	"github.com/MeKo-Tech/pagescan/internal/utils"
)

var (
	// ErrNotInitialized is returned when a closed or zero Pipeline is used.
	ErrNotInitialized = errors.New("pipeline not initialized")
	// ErrNilImage is returned for a nil input image.
	ErrNilImage = errors.New("input image is nil")
)

func (p *Pipeline) ready() error {
	if p == nil || p.Detector == nil || p.Rectifier == nil {
		return ErrNotInitialized
	}
	return nil
}

// frameCorners returns the pixel-centre corners of the full image.
func frameCorners(b image.Rectangle) utils.FourPoints {
	w, h := float64(b.Dx()-1), float64(b.Dy()-1)
	return utils.FourPoints{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}
}

// ProcessImage detects the page in img, rectifies it and, when a recognizer
// pool is configured, recognizes its text. A missing page is reported through
// PageResult.Found rather than an error.
func (p *Pipeline) ProcessImage(ctx context.Context, img image.Image) (*PageResult, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, ErrNilImage
	}
	total := time.Now()
	b := img.Bounds()
	res := &PageResult{Width: b.Dx(), Height: b.Dy()}

	start := time.Now()
	det, err := p.Detector.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	res.Processing.DetectionNs = p.observe(StageDetect, start).Nanoseconds()
	res.Quads = det.Quads
	res.Found = det.Found

	var corners utils.FourPoints
	fullFrame := false
	if best, ok := det.Best(); ok {
		corners, err = best.Quad()
		if err != nil {
			return nil, err
		}
	} else if p.cfg.FullFrameFallback {
		corners = frameCorners(b)
		fullFrame = true
	} else {
		slog.Debug("No page found", "width", res.Width, "height", res.Height)
		res.Processing.TotalNs = time.Since(total).Nanoseconds()
		return res, nil
	}

	if err := p.finish(ctx, img, corners, res); err != nil {
		return nil, err
	}
	res.Rectified.FullFrame = fullFrame
	res.Processing.TotalNs = time.Since(total).Nanoseconds()
	return res, nil
}

// ProcessImageWithCorners skips detection and rectifies the page bounded by
// corners, given in any order.
func (p *Pipeline) ProcessImageWithCorners(ctx context.Context, img image.Image, corners utils.FourPoints) (*PageResult, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, ErrNilImage
	}
	total := time.Now()
	b := img.Bounds()
	res := &PageResult{Width: b.Dx(), Height: b.Dy(), Found: true}
	if err := p.finish(ctx, img, corners, res); err != nil {
		return nil, err
	}
	res.Processing.TotalNs = time.Since(total).Nanoseconds()
	return res, nil
}

// finish runs rectification and the optional recognition stages.
func (p *Pipeline) finish(ctx context.Context, img image.Image, corners utils.FourPoints, res *PageResult) error {
	start := time.Now()
	rx, err := p.Rectifier.Rectify(ctx, img, corners)
	if err != nil {
		return fmt.Errorf("rectify: %w", err)
	}
	res.Processing.RectifyNs = p.observe(StageRectify, start).Nanoseconds()
	res.Corners = &rx.Corners
	res.Rectified = &RectifiedPage{
		Width:       rx.Width,
		Height:      rx.Height,
		Mode:        rx.Mode,
		Parallel:    rx.Parallel,
		Fallback:    rx.Fallback,
		AspectRatio: rx.AspectRatio,
	}
	res.Image = rx.Raster

	if p.OCR == nil {
		return nil
	}
	start = time.Now()
	if err := p.recognize(ctx, res); err != nil {
		return err
	}
	res.Processing.OCRNs = time.Since(start).Nanoseconds()
	return nil
}

func (p *Pipeline) recognize(ctx context.Context, res *PageResult) error {
	w, err := p.OCR.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire recognizer: %w", err)
	}
	defer func() {
		if err := p.OCR.Release(w); err != nil {
			slog.Warn("Failed to release recognizer", "error", err)
		}
	}()

	if p.cfg.OCR.AutoOrient {
		start := time.Now()
		o, err := ocr.DetectOrientation(ctx, w, res.Image, p.cfg.OCR.OrientationThreshold)
		if err != nil {
			return fmt.Errorf("orientation: %w", err)
		}
		p.observe(StageOrient, start)
		res.Orientation = &o
		res.Image = o.Image
	}

	start := time.Now()
	txt, err := w.Recognize(ctx, res.Image)
	if err != nil {
		return fmt.Errorf("recognize: %w", err)
	}
	p.observe(StageOCR, start)
	res.Text = &txt
	return nil
}

// ProcessFile loads path and runs ProcessImage on it.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*PageResult, error) {
	if !utils.IsSupportedImage(path) {
		return nil, fmt.Errorf("unsupported image format: %s", path)
	}
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateImageConstraints(img, utils.DefaultImageConstraints()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p.ProcessImage(ctx, img)
}
