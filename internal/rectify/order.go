package rectify

import "github.com/MeKo-Tech/pagescan/internal/utils"

// OrderPoints returns the corners as top-left, top-right, bottom-right,
// bottom-left. Top-left minimizes x+y, bottom-right maximizes it, top-right
// minimizes y-x and bottom-left maximizes it. Ties go to the earliest input.
func OrderPoints(pts utils.FourPoints) utils.FourPoints {
	tl, tr, br, bl := 0, 0, 0, 0
	for i := 1; i < 4; i++ {
		p := pts[i]
		if p.X+p.Y < pts[tl].X+pts[tl].Y {
			tl = i
		}
		if p.X+p.Y > pts[br].X+pts[br].Y {
			br = i
		}
		if p.Y-p.X < pts[tr].Y-pts[tr].X {
			tr = i
		}
		if p.Y-p.X > pts[bl].Y-pts[bl].X {
			bl = i
		}
	}
	return utils.FourPoints{pts[tl], pts[tr], pts[br], pts[bl]}
}
