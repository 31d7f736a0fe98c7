package rectify

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/pagescan/internal/utils"
)

func debugPath(dir, kind string) string {
	return filepath.Join(dir, fmt.Sprintf("rect_%s_%d.png", kind, time.Now().UnixNano()))
}

// dumpOverlayPNG writes src with the ordered quad outlined; the top edge is
// drawn in green so orientation mistakes are visible.
func dumpOverlayPNG(dir string, src image.Image, quad utils.FourPoints) error {
	canvas := utils.ToRGBA(src)
	utils.DrawPolygon(canvas, quad.Slice(), color.RGBA{255, 0, 0, 255}, 2)
	utils.DrawPolygon(canvas, quad[:2], color.RGBA{0, 200, 0, 255}, 2)
	return utils.SavePNG(debugPath(dir, "overlay"), canvas)
}

// dumpComparePNG writes the outlined source and the rectified output side by side.
func dumpComparePNG(dir string, src image.Image, quad utils.FourPoints, dst image.Image) error {
	sb := src.Bounds()
	db := dst.Bounds()
	gap := 10
	outW := sb.Dx() + gap + db.Dx()
	outH := max(sb.Dy(), db.Dy())
	canvas := image.NewRGBA(image.Rect(0, 0, outW, outH))
	draw.Draw(canvas, image.Rect(0, 0, sb.Dx(), sb.Dy()), src, sb.Min, draw.Src)
	xoff := sb.Dx() + gap
	draw.Draw(canvas, image.Rect(xoff, 0, xoff+db.Dx(), db.Dy()), dst, db.Min, draw.Src)

	utils.DrawPolygon(canvas, quad.Slice(), color.RGBA{255, 0, 0, 255}, 2)
	frame := []utils.Point{
		{X: float64(xoff), Y: 0},
		{X: float64(xoff + db.Dx() - 1), Y: 0},
		{X: float64(xoff + db.Dx() - 1), Y: float64(db.Dy() - 1)},
		{X: float64(xoff), Y: float64(db.Dy() - 1)},
	}
	utils.DrawPolygon(canvas, frame, color.RGBA{0, 255, 0, 255}, 2)
	return utils.SavePNG(debugPath(dir, "compare"), canvas)
}
