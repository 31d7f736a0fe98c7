package detector

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pagescan/internal/mempool"
)

func stepImage(w, h, edgeX int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := edgeX; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

func TestCanny_VerticalStepIsThin(t *testing.T) {
	lum := newLuminance(stepImage(40, 20, 20), DefaultBlurSigma)
	defer lum.release()
	edges := canny(lum, DefaultCannyLow, DefaultCannyHigh)
	defer mempool.PutBool(edges)

	for y := 2; y < 18; y++ {
		var cols []int
		for x := range 40 {
			if edges[y*40+x] {
				cols = append(cols, x)
			}
		}
		require.Len(t, cols, 1, "row %d", y)
		assert.InDelta(t, 19.5, float64(cols[0]), 0.5)
	}
}

func TestCanny_FlatImageHasNoEdges(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 30, 30))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	lum := newLuminance(img, DefaultBlurSigma)
	defer lum.release()
	edges := canny(lum, DefaultCannyLow, DefaultCannyHigh)
	defer mempool.PutBool(edges)
	for _, e := range edges {
		require.False(t, e)
	}
}

func TestOtsuLevel_Bimodal(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range img.Pix {
		if i%2 == 0 {
			img.Pix[i] = 40
		} else {
			img.Pix[i] = 200
		}
	}
	level := otsuLevel(img)
	assert.GreaterOrEqual(t, level, uint8(40))
	assert.Less(t, level, uint8(200))
}

func TestThresholdMask(t *testing.T) {
	lum := newLuminance(stepImage(20, 4, 10), 0)
	defer lum.release()
	mask := thresholdMask(lum)
	defer mempool.PutBool(mask)
	assert.False(t, mask[0])
	assert.True(t, mask[15])
}

func TestAutoCannyThresholds(t *testing.T) {
	low, high := autoCannyThresholds(100)
	assert.InDelta(t, 66.0, low, 1e-9)
	assert.InDelta(t, 133.0, high, 1e-9)

	_, high = autoCannyThresholds(250)
	assert.InDelta(t, 255.0, high, 1e-9)
}

func TestLuminanceMedian(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 1))
	img.Pix = []uint8{10, 200, 50}
	lum := newLuminance(img, 0)
	defer lum.release()
	assert.InDelta(t, 50.0, lum.median(), 1e-9)
}

func TestMorphology_ClosingBridgesGap(t *testing.T) {
	mask, w, h := maskFromRows([]string{
		".........",
		".........",
		"..##.##..",
		".........",
		".........",
	})
	applyMorphology(mask, w, h, DefaultMorphConfig())
	assert.True(t, mask[2*w+4], "gap bridged")
	assert.True(t, mask[2*w+2])
	assert.False(t, mask[1*w+4], "no growth above the line")
	assert.False(t, mask[0])

	mask, w, h = maskFromRows([]string{
		".....",
		"..#..",
		".....",
	})
	applyMorphology(mask, w, h, MorphConfig{Operation: MorphOpening, KernelSize: 3, Iterations: 1})
	for _, v := range mask {
		assert.False(t, v, "opening removes isolated specks")
	}

	mask, w, h = maskFromRows([]string{"...", ".#.", "..."})
	applyMorphology(mask, w, h, MorphConfig{Operation: MorphDilate, KernelSize: 3, Iterations: 1})
	for _, v := range mask {
		assert.True(t, v)
	}
	applyMorphology(mask, w, h, MorphConfig{Operation: MorphNone})
	assert.True(t, mask[0])
}
