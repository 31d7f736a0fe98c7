package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand/v2"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// ImageSize represents common image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	SmallSize  = ImageSize{200, 200}
	MediumSize = ImageSize{640, 480}
)

// PageConfig describes a flat page lying on a darker background.
type PageConfig struct {
	Size       ImageSize
	Page       image.Rectangle
	Background color.Gray
	Paper      color.Gray
	Ink        color.Gray
	Lines      []string
}

// DefaultPageConfig returns the 200x200 scene with a white square page
// spanning (40,40)-(160,160) on black.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		Size:       SmallSize,
		Page:       image.Rect(40, 40, 160, 160),
		Background: color.Gray{Y: 0},
		Paper:      color.Gray{Y: 255},
		Ink:        color.Gray{Y: 0},
	}
}

// RectPage renders cfg. Text lines are drawn with a 7x13 bitmap font starting
// at the top-left of the page with a small margin.
func RectPage(cfg PageConfig) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, cfg.Size.Width, cfg.Size.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(cfg.Background), image.Point{}, draw.Src)
	draw.Draw(img, cfg.Page, image.NewUniform(cfg.Paper), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(cfg.Ink), Face: face}
	lineHeight := face.Metrics().Height.Ceil() + 2
	for i, line := range cfg.Lines {
		d.Dot = fixed.P(cfg.Page.Min.X+6, cfg.Page.Min.Y+6+face.Metrics().Ascent.Ceil()+i*lineHeight)
		d.DrawString(line)
	}
	return img
}

// WhiteRectangle returns a w x h black image with r filled white.
func WhiteRectangle(w, h int, r image.Rectangle) *image.Gray {
	cfg := DefaultPageConfig()
	cfg.Size = ImageSize{w, h}
	cfg.Page = r
	return RectPage(cfg)
}

// QuadPage returns a w x h image of background with the convex quad q filled
// with paper. q must be in clockwise or counter-clockwise order.
func QuadPage(w, h int, q utils.FourPoints, background, paper color.Gray) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		row := img.Pix[y*img.Stride:]
		for x := range w {
			p := utils.Point{X: float64(x), Y: float64(y)}
			if utils.PointInTriangle(p, q[0], q[1], q[2]) || utils.PointInTriangle(p, q[0], q[2], q[3]) {
				row[x] = paper.Y
			} else {
				row[x] = background.Y
			}
		}
	}
	return img
}

// ProjectRectangle images a rectW x rectH planar rectangle, tilted by tiltX
// and tiltY radians and centred distance units in front of a pinhole camera
// with focal length focal, onto an imgW x imgH sensor whose principal point is
// the image centre. Corners are returned TL, TR, BR, BL.
func ProjectRectangle(rectW, rectH, tiltX, tiltY, distance, focal float64, imgW, imgH int) utils.FourPoints {
	corners := [4][2]float64{
		{-rectW / 2, -rectH / 2},
		{rectW / 2, -rectH / 2},
		{rectW / 2, rectH / 2},
		{-rectW / 2, rectH / 2},
	}
	cx, sx := math.Cos(tiltX), math.Sin(tiltX)
	cy, sy := math.Cos(tiltY), math.Sin(tiltY)
	var q utils.FourPoints
	for i, c := range corners {
		x, y, z := c[0], c[1]*cx, c[1]*sx
		x, z = x*cy+z*sy, -x*sy+z*cy
		z += distance
		q[i] = utils.Point{
			X: focal*x/z + float64(imgW)/2,
			Y: focal*y/z + float64(imgH)/2,
		}
	}
	return q
}

// PerspectivePage renders a white rectW x rectH page seen through the camera
// described by ProjectRectangle, on a dark grey background.
func PerspectivePage(rectW, rectH, tiltX, tiltY float64, size ImageSize) (*image.Gray, utils.FourPoints) {
	q := ProjectRectangle(rectW, rectH, tiltX, tiltY, 1000, 800, size.Width, size.Height)
	return QuadPage(size.Width, size.Height, q, color.Gray{Y: 30}, color.Gray{Y: 250}), q
}

// AddNoise flips a fraction of pixels to a random grey level. The output is
// deterministic for a given seed.
func AddNoise(img *image.Gray, fraction float64, seed uint64) *image.Gray {
	out := image.NewGray(img.Rect)
	copy(out.Pix, img.Pix)
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := range out.Pix {
		if r.Float64() < fraction {
			out.Pix[i] = uint8(r.IntN(256))
		}
	}
	return out
}
