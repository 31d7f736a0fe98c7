package utils

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestApproximateClosed_Properties checks structural guarantees of the
// closed-curve approximation.
func TestApproximateClosed_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("result is a subset of the input", prop.ForAll(
		func(xs, ys []float64, eps float64) bool {
			pts := make([]Point, len(xs))
			for i := range xs {
				pts[i] = Point{X: xs[i], Y: ys[i]}
			}
			in := make(map[Point]bool, len(pts))
			for _, p := range pts {
				in[p] = true
			}
			out := ApproximateClosed(pts, eps)
			if len(out) > len(pts) {
				return false
			}
			for _, p := range out {
				if !in[p] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(20, gen.Float64Range(0, 100)),
		gen.SliceOfN(20, gen.Float64Range(0, 100)),
		gen.Float64Range(0.1, 20),
	))

	properties.Property("axis-aligned rectangles reduce to four corners", prop.ForAll(
		func(w, h, step int) bool {
			var pts []Point
			for x := 0; x < w; x += step {
				pts = append(pts, Point{float64(x), 0})
			}
			for y := 0; y < h; y += step {
				pts = append(pts, Point{float64(w), float64(y)})
			}
			for x := w; x > 0; x -= step {
				pts = append(pts, Point{float64(x), float64(h)})
			}
			for y := h; y > 0; y -= step {
				pts = append(pts, Point{0, float64(y)})
			}
			out := ApproximateClosed(pts, 0.02*Perimeter(pts))
			return len(out) == 4
		},
		gen.IntRange(20, 200),
		gen.IntRange(20, 200),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}

// TestPolygonArea_TranslationInvariant verifies the shoelace area ignores offsets.
func TestPolygonArea_TranslationInvariant(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("area is translation invariant", prop.ForAll(
		func(w, h, dx, dy float64) bool {
			base := []Point{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}
			moved := make([]Point, len(base))
			for i, p := range base {
				moved[i] = Point{p.X + dx, p.Y + dy}
			}
			d := PolygonArea(base) - PolygonArea(moved)
			return d < 1e-6 && d > -1e-6
		},
		gen.Float64Range(1, 500),
		gen.Float64Range(1, 500),
		gen.Float64Range(-1000, 1000),
		gen.Float64Range(-1000, 1000),
	))

	properties.TestingRun(t)
}
