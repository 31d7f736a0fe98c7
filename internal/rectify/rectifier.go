package rectify

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/pagescan/internal/postprocess"
	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// Mode records which sizing strategy produced the output dimensions.
type Mode string

const (
	// ModeVisible sizes the output from the measured edge lengths.
	ModeVisible Mode = "visible"
	// ModeTrueAspect sizes the output from the recovered aspect ratio.
	ModeTrueAspect Mode = "true-aspect"
)

var (
	// ErrNilImage is returned when Rectify receives a nil image.
	ErrNilImage = errors.New("rectify: nil image")
	// ErrDegenerateOutput is returned when the corners collapse to less than one pixel.
	ErrDegenerateOutput = errors.New("rectify: output has zero width or height")
	// ErrOutputTooLarge is returned when the output would exceed MaxOutputPixels.
	ErrOutputTooLarge = errors.New("rectify: output exceeds size limit")
)

// Result is the outcome of one rectification.
type Result struct {
	Width    int               `json:"width"`
	Height   int               `json:"height"`
	Raster   image.Image       `json:"-"`
	Warped   image.Image       `json:"-"`
	Corners  utils.FourPoints  `json:"corners"`
	Parallel bool              `json:"parallel"`
	Mode     Mode              `json:"mode"`
	Fallback bool              `json:"fallback"`
	// AspectRatio is the width/height ratio of the output.
	AspectRatio float64    `json:"aspect_ratio"`
	Transform   Homography `json:"transform"`
}

// Rectifier maps a perspective-distorted page onto a fronto-parallel rectangle.
type Rectifier struct {
	cfg    Config
	aspect AspectFunc
}

// Option customizes a Rectifier.
type Option func(*Rectifier)

// WithAspectFunc replaces the aspect-ratio estimator.
func WithAspectFunc(fn AspectFunc) Option {
	return func(r *Rectifier) { r.aspect = fn }
}

// New creates a rectifier.
func New(cfg Config, opts ...Option) (*Rectifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rectify config: %w", err)
	}
	r := &Rectifier{cfg: cfg, aspect: TrueAspectRatio}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Config returns the rectifier configuration.
func (r *Rectifier) Config() Config { return r.cfg }

// visibleSize returns the longer of each pair of opposing edges.
func visibleSize(q utils.FourPoints) (float64, float64) {
	tl, tr, br, bl := q[0], q[1], q[2], q[3]
	w := math.Max(utils.Distance(tl, tr), utils.Distance(bl, br))
	h := math.Max(utils.Distance(tl, bl), utils.Distance(tr, br))
	return w, h
}

// usableAspect reports whether ar can size the output.
func usableAspect(ar float64) bool {
	return !math.IsNaN(ar) && !math.IsInf(ar, 0) && ar > 0
}

// maxSide bounds either output side so it always converts to int.
const maxSide = math.MaxInt32

// fitsOutput reports whether a w x h raster can be allocated under the
// configured pixel limit.
func (r *Rectifier) fitsOutput(w, h float64) bool {
	if !(w >= 1 && h >= 1 && w <= maxSide && h <= maxSide) {
		return false
	}
	return r.cfg.MaxOutputPixels <= 0 || math.Round(w)*math.Round(h) <= float64(r.cfg.MaxOutputPixels)
}

// Dimensions decides the output size for the ordered corners of a quad found
// in an imgW x imgH image.
func (r *Rectifier) Dimensions(ordered utils.FourPoints, imgW, imgH int) (w, h int, parallel bool, mode Mode, fallback bool) {
	vw, vh := visibleSize(ordered)
	parallel = ParallelLines(ordered, r.cfg.ParallelTolerance)
	if parallel {
		return int(math.Round(vw)), int(math.Round(vh)), true, ModeVisible, false
	}

	arReal, err := r.aspect(ordered, imgW, imgH)
	if err != nil || !usableAspect(arReal) {
		slog.Debug("Aspect ratio unusable, using visible size", "ar", arReal, "error", err)
		return int(math.Round(vw)), int(math.Round(vh)), false, ModeVisible, true
	}

	tw, th := vw, vh
	if arReal < vw/vh {
		th = vw / arReal
	} else {
		tw = arReal * vh
	}
	if !r.fitsOutput(tw, th) {
		slog.Debug("Aspect ratio stretches output out of range, using visible size",
			"ar", arReal, "width", tw, "height", th)
		return int(math.Round(vw)), int(math.Round(vh)), false, ModeVisible, true
	}
	return int(math.Round(tw)), int(math.Round(th)), false, ModeTrueAspect, false
}

// Rectify warps the page bounded by corners (in any order) onto a rectangle.
func (r *Rectifier) Rectify(ctx context.Context, img image.Image, corners utils.FourPoints) (*Result, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	ordered := OrderPoints(corners)
	w, h, parallel, mode, fallback := r.Dimensions(ordered, b.Dx(), b.Dy())
	if w < 1 || h < 1 {
		return nil, ErrDegenerateOutput
	}
	if r.cfg.MaxOutputPixels > 0 && w*h > r.cfg.MaxOutputPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrOutputTooLarge, w, h)
	}

	fw, fh := float64(w), float64(h)
	target := utils.FourPoints{{X: 0, Y: 0}, {X: fw, Y: 0}, {X: fw, Y: fh}, {X: 0, Y: fh}}
	fwd, err := SolveHomography(ordered, target)
	if err != nil {
		return nil, err
	}
	inv, err := fwd.Inverse()
	if err != nil {
		return nil, fmt.Errorf("invert perspective transform: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	warped := warpPerspective(img, inv, w, h)

	res := &Result{
		Width:       w,
		Height:      h,
		Raster:      warped,
		Warped:      warped,
		Corners:     ordered,
		Parallel:    parallel,
		Mode:        mode,
		Fallback:    fallback,
		AspectRatio: fw / fh,
		Transform:   fwd,
	}
	if r.cfg.PostProcess {
		res.Raster = postprocess.Process(warped, r.cfg.Postprocess)
	}

	if r.cfg.DebugDir != "" {
		if err := dumpOverlayPNG(r.cfg.DebugDir, img, ordered); err != nil {
			slog.Warn("Failed to write rectify overlay", "error", err)
		}
		if err := dumpComparePNG(r.cfg.DebugDir, img, ordered, res.Raster); err != nil {
			slog.Warn("Failed to write rectify comparison", "error", err)
		}
	}

	slog.Debug("Rectified page",
		"width", w, "height", h, "mode", mode, "parallel", parallel, "fallback", fallback)
	return res, nil
}
