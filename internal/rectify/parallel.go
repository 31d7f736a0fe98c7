package rectify

import (
	"math"

	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// invSlope returns dx/dy for the segment a->b. A horizontal segment yields
// an infinity, which never compares as parallel.
func invSlope(a, b utils.Point) float64 {
	return (b.X - a.X) / (b.Y - a.Y)
}

// ParallelLines reports whether either pair of opposing edges of the ordered
// quad is parallel within tol, comparing inverted slopes.
func ParallelLines(q utils.FourPoints, tol float64) bool {
	tl, tr, br, bl := q[0], q[1], q[2], q[3]
	top := invSlope(tl, tr)
	bottom := invSlope(bl, br)
	left := invSlope(tl, bl)
	right := invSlope(tr, br)
	return math.Abs(top-bottom) < tol || math.Abs(left-right) < tol
}
