package detector

import (
	"sort"

	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// approximateContour pairs the raw boundary area with a polygon whose
// tolerance is epsilonFactor times the boundary perimeter.
func approximateContour(boundary []utils.Point, area, epsilonFactor float64) Contour {
	eps := epsilonFactor * utils.Perimeter(boundary)
	return Contour{
		Area:   area,
		Points: utils.ApproximateClosed(boundary, eps),
	}
}

// isQuadrilateral reports whether c has four vertices forming a convex quad.
func isQuadrilateral(c Contour) bool {
	q, err := c.Quad()
	if err != nil {
		return false
	}
	return utils.IsConvexQuad(q)
}

// rankQuads sorts quads by area, largest first, and truncates to limit.
func rankQuads(quads []Contour, limit int) []Contour {
	sort.SliceStable(quads, func(i, j int) bool {
		return quads[i].Area > quads[j].Area
	})
	if limit > 0 && len(quads) > limit {
		quads = quads[:limit]
	}
	return quads
}
