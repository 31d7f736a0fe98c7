package detector

import (
	"image"

	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// tracer walks the outer boundary of one labeled component.
type tracer struct {
	labels []int
	w, h   int
	label  int
}

func (t tracer) is(p image.Point) bool {
	if p.X < 0 || p.Y < 0 || p.X >= t.w || p.Y >= t.h {
		return false
	}
	return t.labels[p.Y*t.w+p.X] == t.label
}

// next sweeps the Moore neighbourhood of cur clockwise, starting just after
// direction back, and returns the first pixel of the component together with
// the direction it was found in.
func (t tracer) next(cur image.Point, back int) (image.Point, int, bool) {
	for k := 1; k <= 8; k++ {
		i := (back + k) % 8
		p := cur.Add(image.Pt(neighbours8[i][0], neighbours8[i][1]))
		if t.is(p) {
			return p, i, true
		}
	}
	return cur, 0, false
}

// traceContourMoore extracts the outer boundary of the component described
// by st using Moore-neighbour tracing with a radial sweep. Runs of collinear
// boundary pixels are collapsed to their endpoints. Returned points are
// pixel-center coordinates in clockwise screen order.
func traceContourMoore(labels []int, w, h int, st compStats) []utils.Point {
	if st.label <= 0 || len(labels) < w*h {
		return nil
	}
	t := tracer{labels: labels, w: w, h: h, label: st.label}

	start, ok := firstPixel(t, st)
	if !ok {
		return nil
	}

	var b contourBuilder
	b.add(start)

	// the raster scan guarantees nothing lies west of the start pixel
	const west = 4
	second, d, ok := t.next(start, west)
	if !ok {
		return b.pts
	}

	cur, back := second, (d+4)%8
	maxSteps := 4*st.count + 8
	for range maxSteps {
		nxt, d, ok := t.next(cur, back)
		if !ok {
			break
		}
		if cur == start && nxt == second {
			break
		}
		b.add(cur)
		cur, back = nxt, (d+4)%8
	}
	b.close()
	return b.pts
}

func firstPixel(t tracer, st compStats) (image.Point, bool) {
	for y := st.minY; y <= st.maxY; y++ {
		for x := st.minX; x <= st.maxX; x++ {
			if p := image.Pt(x, y); t.is(p) {
				return p, true
			}
		}
	}
	return image.Point{}, false
}

// contourBuilder accumulates boundary pixels, merging straight runs.
type contourBuilder struct {
	pts []utils.Point
}

func sameDirection(a, b, c utils.Point) bool {
	v1x, v1y := b.X-a.X, b.Y-a.Y
	v2x, v2y := c.X-b.X, c.Y-b.Y
	return v1x*v2y-v1y*v2x == 0 && v1x*v2x+v1y*v2y > 0
}

func (cb *contourBuilder) add(p image.Point) {
	pt := utils.Point{X: float64(p.X), Y: float64(p.Y)}
	n := len(cb.pts)
	if n > 0 && cb.pts[n-1] == pt {
		return
	}
	if n >= 2 && sameDirection(cb.pts[n-2], cb.pts[n-1], pt) {
		cb.pts[n-1] = pt
		return
	}
	cb.pts = append(cb.pts, pt)
}

// close merges the seam between the last and first points.
func (cb *contourBuilder) close() {
	for len(cb.pts) > 3 {
		n := len(cb.pts)
		switch {
		case cb.pts[n-1] == cb.pts[0]:
			cb.pts = cb.pts[:n-1]
		case sameDirection(cb.pts[n-2], cb.pts[n-1], cb.pts[0]):
			cb.pts = cb.pts[:n-1]
		case sameDirection(cb.pts[n-1], cb.pts[0], cb.pts[1]):
			cb.pts = cb.pts[1:]
		default:
			return
		}
	}
}
