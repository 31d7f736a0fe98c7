package rectify

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pagescan/internal/linalg"
	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// whitePage returns a w x h black image with the convex quad q filled white.
func whitePage(w, h int, q utils.FourPoints) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			p := utils.Point{X: float64(x), Y: float64(y)}
			if utils.PointInTriangle(p, q[0], q[1], q[2]) || utils.PointInTriangle(p, q[0], q[2], q[3]) {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func whiteFraction(img image.Image, inset int) float64 {
	b := img.Bounds()
	var white, total int
	for y := b.Min.Y + inset; y < b.Max.Y-inset; y++ {
		for x := b.Min.X + inset; x < b.Max.X-inset; x++ {
			r, g, bb, _ := img.At(x, y).RGBA()
			if r>>8 >= 200 && g>>8 >= 200 && bb>>8 >= 200 {
				white++
			}
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(white) / float64(total)
}

func newTestRectifier(t *testing.T, mutate func(*Config), opts ...Option) *Rectifier {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	r, err := New(cfg, opts...)
	require.NoError(t, err)
	return r
}

var perspectiveQuad = utils.FourPoints{{X: 10, Y: 10}, {X: 130, Y: 20}, {X: 125, Y: 115}, {X: 15, Y: 105}}

func TestDimensions_TrueAspect(t *testing.T) {
	calls := 0
	r := newTestRectifier(t, nil, WithAspectFunc(func(utils.FourPoints, int, int) (float64, error) {
		calls++
		return 1.5, nil
	}))

	w, h, parallel, mode, fallback := r.Dimensions(perspectiveQuad, 200, 200)
	assert.Equal(t, 1, calls)
	assert.False(t, parallel)
	assert.False(t, fallback)
	assert.Equal(t, ModeTrueAspect, mode)
	assert.LessOrEqual(t, math.Abs(float64(w)-1.5*float64(h)), 1.0, "got %dx%d", w, h)
	assert.Equal(t, 95, h)
}

func TestDimensions_StretchesHeightWhenRealIsNarrower(t *testing.T) {
	r := newTestRectifier(t, nil, WithAspectFunc(func(utils.FourPoints, int, int) (float64, error) {
		return 1.0, nil
	}))
	w, h, _, mode, _ := r.Dimensions(perspectiveQuad, 200, 200)
	assert.Equal(t, ModeTrueAspect, mode)
	assert.Equal(t, 120, w)
	assert.Equal(t, w, h)
}

func TestDimensions_ParallelSkipsAspect(t *testing.T) {
	r := newTestRectifier(t, nil, WithAspectFunc(func(utils.FourPoints, int, int) (float64, error) {
		t.Fatal("aspect estimator must not run for parallel quads")
		return 0, nil
	}))
	q := utils.FourPoints{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 50}, {X: 0, Y: 50}}
	w, h, parallel, mode, fallback := r.Dimensions(q, 200, 200)
	assert.True(t, parallel)
	assert.False(t, fallback)
	assert.Equal(t, ModeVisible, mode)
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)
}

func TestDimensions_FallsBackOnUnusableAspect(t *testing.T) {
	results := map[string]func() (float64, error){
		"nan":      func() (float64, error) { return math.NaN(), nil },
		"inf":      func() (float64, error) { return math.Inf(1), nil },
		"negative": func() (float64, error) { return -2, nil },
		"singular": func() (float64, error) {
			return math.NaN(), &linalg.SingularMatrixError{Rows: 3, Cols: 3}
		},
		"error with value": func() (float64, error) { return 1.5, errors.New("boom") },
		"tiny":             func() (float64, error) { return 1e-300, nil },
		"huge":             func() (float64, error) { return 1e300, nil },
		"over pixel limit": func() (float64, error) { return 1e6, nil },
	}
	for name, fn := range results {
		t.Run(name, func(t *testing.T) {
			r := newTestRectifier(t, nil, WithAspectFunc(func(utils.FourPoints, int, int) (float64, error) {
				return fn()
			}))
			w, h, parallel, mode, fallback := r.Dimensions(perspectiveQuad, 200, 200)
			assert.False(t, parallel)
			assert.True(t, fallback)
			assert.Equal(t, ModeVisible, mode)
			assert.Equal(t, 120, w)
			assert.Equal(t, 95, h)
		})
	}
}

func TestRectify_SyntheticRectangle(t *testing.T) {
	corners := utils.FourPoints{{X: 159, Y: 159}, {X: 40, Y: 40}, {X: 40, Y: 159}, {X: 159, Y: 40}}
	img := whitePage(200, 200, OrderPoints(corners))

	for _, post := range []bool{false, true} {
		r := newTestRectifier(t, func(c *Config) { c.PostProcess = post })
		res, err := r.Rectify(context.Background(), img, corners)
		require.NoError(t, err)

		assert.InDelta(t, 120, res.Width, 2)
		assert.InDelta(t, 120, res.Height, 2)
		assert.True(t, res.Parallel)
		assert.Equal(t, ModeVisible, res.Mode)
		assert.Equal(t, utils.Point{X: 40, Y: 40}, res.Corners[0])
		assert.Equal(t, res.Width, res.Raster.Bounds().Dx())
		assert.Equal(t, res.Height, res.Raster.Bounds().Dy())
		assert.InDelta(t, 1.0, whiteFraction(res.Raster, 0), 1e-9, "postprocess=%v", post)
	}
}

func TestRectify_PerspectivePage(t *testing.T) {
	q := projectRectangle(300, 200, 0.35, 0.25, 1000, 800, 640, 480)
	img := whitePage(640, 480, q)

	r := newTestRectifier(t, nil)
	res, err := r.Rectify(context.Background(), img, utils.FourPoints{q[2], q[3], q[0], q[1]})
	require.NoError(t, err)

	assert.Equal(t, ModeTrueAspect, res.Mode)
	assert.False(t, res.Fallback)
	assert.InEpsilon(t, 1.5, res.AspectRatio, 0.03)
	assert.GreaterOrEqual(t, whiteFraction(res.Raster, 2), 0.95)

	x, y := res.Transform.Apply(q[2].X, q[2].Y)
	assert.InDelta(t, float64(res.Width), x, 1e-6)
	assert.InDelta(t, float64(res.Height), y, 1e-6)
}

func TestRectify_Errors(t *testing.T) {
	r := newTestRectifier(t, nil)
	ctx := context.Background()
	img := image.NewGray(image.Rect(0, 0, 50, 50))

	_, err := r.Rectify(ctx, nil, utils.FourPoints{})
	assert.ErrorIs(t, err, ErrNilImage)

	_, err = r.Rectify(ctx, img, utils.FourPoints{{X: 5, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 5}})
	assert.ErrorIs(t, err, ErrDegenerateOutput)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = r.Rectify(cancelled, img, utils.FourPoints{{X: 0, Y: 0}, {X: 40, Y: 0}, {X: 40, Y: 40}, {X: 0, Y: 40}})
	assert.ErrorIs(t, err, context.Canceled)

	small := newTestRectifier(t, func(c *Config) { c.MaxOutputPixels = 100 })
	_, err = small.Rectify(ctx, img, utils.FourPoints{{X: 0, Y: 0}, {X: 40, Y: 0}, {X: 40, Y: 40}, {X: 0, Y: 40}})
	assert.ErrorIs(t, err, ErrOutputTooLarge)
}

func TestRectify_DebugDir(t *testing.T) {
	dir := t.TempDir()
	r := newTestRectifier(t, func(c *Config) { c.DebugDir = dir })
	img := whitePage(100, 100, utils.FourPoints{{X: 20, Y: 20}, {X: 80, Y: 20}, {X: 80, Y: 80}, {X: 20, Y: 80}})

	_, err := r.Rectify(context.Background(), img, utils.FourPoints{{X: 20, Y: 20}, {X: 80, Y: 20}, {X: 80, Y: 80}, {X: 20, Y: 80}})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.ParallelTolerance = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxOutputPixels = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Postprocess.BlockSize = 4
	assert.Error(t, cfg.Validate())
	cfg.PostProcess = false
	assert.NoError(t, cfg.Validate())

	_, err := New(Config{})
	assert.Error(t, err)
}

func TestRectify_ExtremeAspectFallsBackToVisibleSize(t *testing.T) {
	img := whitePage(200, 200, perspectiveQuad)
	r := newTestRectifier(t, nil, WithAspectFunc(func(utils.FourPoints, int, int) (float64, error) {
		return 1e-300, nil
	}))
	res, err := r.Rectify(context.Background(), img, perspectiveQuad)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, ModeVisible, res.Mode)
	assert.Equal(t, 120, res.Width)
	assert.Equal(t, 95, res.Height)
}
