package utils

import "math"

// SimplifyPolyline reduces the number of points in an open polyline using the
// Douglas–Peucker algorithm with tolerance epsilon. Both endpoints are kept.
func SimplifyPolyline(pts []Point, epsilon float64) []Point {
	if len(pts) <= 2 || epsilon <= 0 {
		return append([]Point(nil), pts...)
	}
	keep := make([]bool, len(pts))
	keep[0] = true
	keep[len(pts)-1] = true
	dpSimplify(pts, 0, len(pts)-1, epsilon, keep)
	out := make([]Point, 0, len(pts))
	for i, k := range keep {
		if k {
			out = append(out, pts[i])
		}
	}
	return out
}

// ApproximateClosed approximates a closed contour with a polygon whose
// vertices lie within epsilon of the original curve. The curve is split at
// two mutually distant points so that the trace start is not forced to be a
// vertex.
func ApproximateClosed(pts []Point, epsilon float64) []Point {
	n := len(pts)
	if n <= 3 || epsilon <= 0 {
		return append([]Point(nil), pts...)
	}
	a := farthestIndex(pts, pts[0])
	b := farthestIndex(pts, pts[a])
	if a == b {
		return []Point{pts[0]}
	}
	if a > b {
		a, b = b, a
	}
	first := SimplifyPolyline(pts[a:b+1], epsilon)

	wrap := make([]Point, 0, n-b+a+1)
	wrap = append(wrap, pts[b:]...)
	wrap = append(wrap, pts[:a+1]...)
	second := SimplifyPolyline(wrap, epsilon)

	out := make([]Point, 0, len(first)+len(second))
	out = append(out, first...)
	// second starts at pts[b] and ends at pts[a], both already in first
	if len(second) > 2 {
		out = append(out, second[1:len(second)-1]...)
	}
	return out
}

func farthestIndex(pts []Point, from Point) int {
	best, bestD := 0, -1.0
	for i, p := range pts {
		dx, dy := p.X-from.X, p.Y-from.Y
		if d := dx*dx + dy*dy; d > bestD {
			best, bestD = i, d
		}
	}
	return best
}

func dpSimplify(pts []Point, start, end int, eps float64, keep []bool) {
	if end <= start+1 {
		return
	}
	maxDist := -1.0
	index := -1
	a := pts[start]
	b := pts[end]
	for i := start + 1; i < end; i++ {
		d := perpendicularDistance(pts[i], a, b)
		if d > maxDist {
			maxDist = d
			index = i
		}
	}
	if maxDist > eps {
		dpSimplify(pts, start, index, eps, keep)
		keep[index] = true
		dpSimplify(pts, index, end, eps, keep)
	}
}

func perpendicularDistance(p, a, b Point) float64 {
	vx, vy := b.X-a.X, b.Y-a.Y
	if vx == 0 && vy == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	num := math.Abs((p.X-a.X)*vy - (p.Y-a.Y)*vx)
	return num / math.Hypot(vx, vy)
}

// PolygonArea returns the unsigned shoelace area of a closed polygon.
func PolygonArea(pts []Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var s float64
	for i := range pts {
		j := (i + 1) % len(pts)
		s += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(s) / 2
}

// Perimeter returns the arc length of a closed polygon.
func Perimeter(pts []Point) float64 {
	if len(pts) < 2 {
		return 0
	}
	var l float64
	for i := range pts {
		l += Distance(pts[i], pts[(i+1)%len(pts)])
	}
	return l
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// PointInTriangle reports whether p lies inside or on the boundary of the
// triangle abc.
func PointInTriangle(p, a, b, c Point) bool {
	d1 := cross(a, b, p)
	d2 := cross(b, c, p)
	d3 := cross(c, a, p)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

// IsConvexQuad reports whether every vertex of q lies strictly outside the
// triangle formed by the other three.
func IsConvexQuad(q FourPoints) bool {
	for i := range 4 {
		a, b, c := q[(i+1)%4], q[(i+2)%4], q[(i+3)%4]
		if PointInTriangle(q[i], a, b, c) {
			return false
		}
	}
	return true
}
