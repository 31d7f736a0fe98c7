package detector

import (
	"encoding/json"
	"image"
	"image/color"
	"time"

	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// Contour is a closed boundary with its raw area and approximated polygon.
type Contour struct {
	Area   float64       `json:"area"`
	Points []utils.Point `json:"points"`
}

// Quad returns the polygon as a FourPoints when it has exactly four distinct vertices.
func (c Contour) Quad() (utils.FourPoints, error) {
	return utils.NewFourPoints(c.Points)
}

// Result is the outcome of one detection pass. Found is false when no
// usable quadrilateral exists, which is an expected outcome rather than an error.
type Result struct {
	Quads    []Contour     `json:"quads"`
	Found    bool          `json:"success"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Duration time.Duration `json:"-"`
}

// Best returns the largest quadrilateral.
func (r *Result) Best() (Contour, bool) {
	if r == nil || len(r.Quads) == 0 {
		return Contour{}, false
	}
	return r.Quads[0], true
}

// ToJSON renders the result with indentation.
func (r *Result) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// VisualizeOptions controls how quads are drawn onto images.
type VisualizeOptions struct {
	Color     color.Color
	BestColor color.Color
	Thickness int
}

// VisualizeQuads draws every quad onto a copy of img. The best quad is drawn last
// so it stays on top.
func VisualizeQuads(img image.Image, quads []Contour, opt VisualizeOptions) *image.RGBA {
	if opt.Color == nil {
		opt.Color = color.RGBA{255, 160, 0, 255}
	}
	if opt.BestColor == nil {
		opt.BestColor = color.RGBA{255, 0, 0, 255}
	}
	if opt.Thickness <= 0 {
		opt.Thickness = 3
	}
	dst := utils.ToRGBA(img)
	for i := len(quads) - 1; i >= 0; i-- {
		c := opt.Color
		if i == 0 {
			c = opt.BestColor
		}
		utils.DrawPolygon(dst, quads[i].Points, c, opt.Thickness)
	}
	return dst
}
