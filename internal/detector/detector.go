package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/pagescan/internal/mempool"
	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// ErrNilImage is returned when Detect or Edges receives a nil image.
var ErrNilImage = errors.New("detector: nil image")

// Detector finds page-shaped quadrilaterals in photographs.
// It holds no per-call state and is safe for concurrent use.
type Detector struct {
	config Config
}

// NewDetector creates a detector after validating config.
func NewDetector(config Config) (*Detector, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detector config: %w", err)
	}
	slog.Debug("Initializing detector",
		"edge_mode", config.EdgeMode,
		"canny_auto", config.CannyAuto,
		"approx_epsilon", config.ApproxEpsilon,
		"max_dimension", config.MaxDimension)
	return &Detector{config: config}, nil
}

// GetConfig returns a copy of the detector's configuration.
func (d *Detector) GetConfig() Config {
	return d.config
}

// scaledInput downsizes img so neither side exceeds MaxDimension and returns
// the factors that map detection coordinates back to img.
func (d *Detector) scaledInput(img image.Image) (image.Image, float64, float64) {
	b := img.Bounds()
	md := d.config.MaxDimension
	if md <= 0 || (b.Dx() <= md && b.Dy() <= md) {
		return img, 1, 1
	}
	small := imaging.Fit(img, md, md, imaging.Linear)
	sb := small.Bounds()
	return small, float64(b.Dx()) / float64(sb.Dx()), float64(b.Dy()) / float64(sb.Dy())
}

// edgeMask runs the greyscale, blur and edge stages and returns a pooled mask.
func (d *Detector) edgeMask(img image.Image) ([]bool, int, int) {
	lum := newLuminance(img, d.config.BlurSigma)
	defer lum.release()

	var mask []bool
	switch d.config.EdgeMode {
	case EdgeThreshold:
		mask = thresholdMask(lum)
	default:
		low, high := d.config.CannyLow, d.config.CannyHigh
		if d.config.CannyAuto {
			low, high = autoCannyThresholds(lum.median())
		}
		mask = canny(lum, low, high)
	}
	applyMorphology(mask, lum.w, lum.h, d.config.Morph)
	return mask, lum.w, lum.h
}

// Edges returns the binary edge map used for contour tracing, at the
// (possibly downscaled) detection resolution.
func (d *Detector) Edges(ctx context.Context, img image.Image) (*image.Gray, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	small, _, _ := d.scaledInput(img)
	mask, w, h := d.edgeMask(small)
	defer mempool.PutBool(mask)
	return maskToGray(mask, w, h), nil
}

// Detect locates candidate page boundaries in img. Quads are ordered largest
// first and hold at most MaxQuads entries. Coordinates are relative to
// img.Bounds().Min.
func (d *Detector) Detect(ctx context.Context, img image.Image) (*Result, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	start := time.Now()
	b := img.Bounds()
	res := &Result{Width: b.Dx(), Height: b.Dy()}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	small, sx, sy := d.scaledInput(img)
	mask, w, h := d.edgeMask(small)
	defer mempool.PutBool(mask)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	comps, labels := connectedComponents(mask, w, h)
	defer mempool.PutInt(labels)

	quads := make([]Contour, 0, 8)
	for i, st := range comps {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		// a 1-pixel wide strip cannot enclose area
		if st.width() < 2 || st.height() < 2 {
			continue
		}
		boundary := traceContourMoore(labels, w, h, st)
		area := utils.PolygonArea(boundary)
		if area <= d.config.MinArea {
			continue
		}
		c := approximateContour(boundary, area, d.config.ApproxEpsilon)
		if !isQuadrilateral(c) {
			continue
		}
		if sx != 1 || sy != 1 {
			c.Points = utils.ScalePoints(c.Points, sx, sy)
			c.Area *= sx * sy
		}
		quads = append(quads, c)
	}

	res.Quads = rankQuads(quads, d.config.MaxQuads)
	res.Found = len(res.Quads) > 0
	res.Duration = time.Since(start)

	slog.Debug("Detection complete",
		"components", len(comps),
		"quads", len(res.Quads),
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}
