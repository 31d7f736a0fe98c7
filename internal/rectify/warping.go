package rectify

import (
	"image"
	"math"

	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// warpPerspective resamples src into a dstW x dstH raster. inv maps
// destination pixels back into source coordinates; samples falling outside
// the source are black.
func warpPerspective(src image.Image, inv Homography, dstW, dstH int) *image.RGBA {
	s := utils.ToRGBA(src)
	out := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	for y := range dstH {
		row := out.Pix[y*out.Stride:]
		for x := range dstW {
			sx, sy := inv.Apply(float64(x), float64(y))
			r, g, b, a := bilinearSample(s, sx, sy)
			o := x * 4
			row[o], row[o+1], row[o+2], row[o+3] = r, g, b, a
		}
	}
	return out
}

// bilinearSample interpolates src at (x, y); src must have a zero origin.
func bilinearSample(src *image.RGBA, x, y float64) (uint8, uint8, uint8, uint8) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if math.IsNaN(x) || math.IsNaN(y) || x < 0 || y < 0 || x > float64(w-1) || y > float64(h-1) {
		return 0, 0, 0, 255
	}
	x0, y0 := int(x), int(y)
	x1, y1 := min(x0+1, w-1), min(y0+1, h-1)
	fx, fy := x-float64(x0), y-float64(y0)

	p00 := src.Pix[y0*src.Stride+x0*4:]
	p10 := src.Pix[y0*src.Stride+x1*4:]
	p01 := src.Pix[y1*src.Stride+x0*4:]
	p11 := src.Pix[y1*src.Stride+x1*4:]

	var c [4]uint8
	for i := range 4 {
		top := lerp(float64(p00[i]), float64(p10[i]), fx)
		bot := lerp(float64(p01[i]), float64(p11[i]), fx)
		c[i] = uint8(lerp(top, bot, fy) + 0.5)
	}
	return c[0], c[1], c[2], c[3]
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
