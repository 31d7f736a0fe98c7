package rectify

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pagescan/internal/utils"
)

func TestSolveHomography_MapsCorners(t *testing.T) {
	src := utils.FourPoints{{X: 10, Y: 10}, {X: 130, Y: 20}, {X: 125, Y: 115}, {X: 15, Y: 105}}
	dst := utils.FourPoints{{X: 0, Y: 0}, {X: 143, Y: 0}, {X: 143, Y: 95}, {X: 0, Y: 95}}

	h, err := SolveHomography(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 1.0, h[8])
	for i := range 4 {
		x, y := h.Apply(src[i].X, src[i].Y)
		assert.InDelta(t, dst[i].X, x, 1e-6, "corner %d x", i)
		assert.InDelta(t, dst[i].Y, y, 1e-6, "corner %d y", i)
	}

	inv, err := h.Inverse()
	require.NoError(t, err)
	for i := range 4 {
		x, y := inv.Apply(dst[i].X, dst[i].Y)
		assert.InDelta(t, src[i].X, x, 1e-6)
		assert.InDelta(t, src[i].Y, y, 1e-6)
	}
	// arbitrary interior point survives the round trip
	fx, fy := h.Apply(60, 55)
	bx, by := inv.Apply(fx, fy)
	assert.InDelta(t, 60, bx, 1e-6)
	assert.InDelta(t, 55, by, 1e-6)
}

func TestSolveHomography_Identity(t *testing.T) {
	q := utils.FourPoints{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	h, err := SolveHomography(q, q)
	require.NoError(t, err)
	want := Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
	for i := range h {
		assert.InDelta(t, want[i], h[i], 1e-12)
	}
}

func TestSolveHomography_Degenerate(t *testing.T) {
	var same utils.FourPoints
	_, err := SolveHomography(same, utils.FourPoints{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}})
	assert.ErrorIs(t, err, ErrDegenerateCorrespondence)
}

func TestHomographyApply_LineAtInfinity(t *testing.T) {
	h := Homography{1, 0, 0, 0, 1, 0, 1, 0, 0}
	x, y := h.Apply(0, 3)
	assert.True(t, math.IsNaN(x))
	assert.True(t, math.IsNaN(y))
}

func TestBilinearSample(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{0, 0, 0, 255})
	img.SetRGBA(1, 0, color.RGBA{200, 100, 50, 255})

	r, g, b, a := bilinearSample(img, 0.5, 0)
	assert.Equal(t, [4]uint8{100, 50, 25, 255}, [4]uint8{r, g, b, a})

	r, g, b, a = bilinearSample(img, 1, 0)
	assert.Equal(t, [4]uint8{200, 100, 50, 255}, [4]uint8{r, g, b, a})

	// outside the source is opaque black
	r, g, b, a = bilinearSample(img, -0.1, 0)
	assert.Equal(t, [4]uint8{0, 0, 0, 255}, [4]uint8{r, g, b, a})
	r, g, b, a = bilinearSample(img, math.NaN(), 0)
	assert.Equal(t, [4]uint8{0, 0, 0, 255}, [4]uint8{r, g, b, a})
}
