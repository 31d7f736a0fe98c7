package rectify

import (
	"errors"
	"math"

	"github.com/MeKo-Tech/pagescan/internal/linalg"
	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// ErrDegenerateCorrespondence is returned when four point pairs do not
// determine a unique perspective transform (three or more collinear corners).
var ErrDegenerateCorrespondence = errors.New("rectify: corners do not determine a perspective transform")

// Homography is a 3x3 projective transform stored row-major with h[8] == 1.
type Homography [9]float64

// Apply maps (x, y) through h. Points on the line at infinity map to NaN.
func (h Homography) Apply(x, y float64) (float64, float64) {
	w := h[6]*x + h[7]*y + h[8]
	if w == 0 {
		return math.NaN(), math.NaN()
	}
	return (h[0]*x + h[1]*y + h[2]) / w, (h[3]*x + h[4]*y + h[5]) / w
}

// Inverse returns the transform mapping destination points back to the source.
func (h Homography) Inverse() (Homography, error) {
	m := linalg.MustNew([][]float64{
		{h[0], h[1], h[2]},
		{h[3], h[4], h[5]},
		{h[6], h[7], h[8]},
	})
	inv, err := m.Inverse()
	if err != nil {
		return Homography{}, err
	}
	var out Homography
	for r := range 3 {
		for c := range 3 {
			out[r*3+c] = inv.At(r, c) / inv.At(2, 2)
		}
	}
	return out, nil
}

// linearSystem is the 8x8 DLT system A*h = b for the eight unknowns h00..h21.
type linearSystem struct {
	a [8][8]float64
	b [8]float64
}

// SolveHomography computes the transform that maps src[i] onto dst[i].
func SolveHomography(src, dst utils.FourPoints) (Homography, error) {
	var sys linearSystem
	for i := range 4 {
		X, Y := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y
		r := 2 * i
		// x = (h00 X + h01 Y + h02) / (h20 X + h21 Y + 1)
		sys.a[r] = [8]float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x}
		sys.b[r] = x
		// y = (h10 X + h11 Y + h12) / (h20 X + h21 Y + 1)
		sys.a[r+1] = [8]float64{0, 0, 0, X, Y, 1, -X * y, -Y * y}
		sys.b[r+1] = y
	}
	sol, ok := sys.solve()
	if !ok {
		return Homography{}, ErrDegenerateCorrespondence
	}
	return Homography{sol[0], sol[1], sol[2], sol[3], sol[4], sol[5], sol[6], sol[7], 1}, nil
}

// solve runs Gauss-Jordan elimination with partial pivoting.
func (s *linearSystem) solve() ([8]float64, bool) {
	for col := range 8 {
		p := s.pivotRow(col)
		if p < 0 {
			return [8]float64{}, false
		}
		s.a[col], s.a[p] = s.a[p], s.a[col]
		s.b[col], s.b[p] = s.b[p], s.b[col]

		div := s.a[col][col]
		for c := col; c < 8; c++ {
			s.a[col][c] /= div
		}
		s.b[col] /= div

		for r := range 8 {
			f := s.a[r][col]
			if r == col || f == 0 {
				continue
			}
			for c := col; c < 8; c++ {
				s.a[r][c] -= f * s.a[col][c]
			}
			s.b[r] -= f * s.b[col]
		}
	}
	return s.b, true
}

// pivotRow returns the row at or below col with the largest magnitude in
// column col, or -1 when the column is numerically zero.
func (s *linearSystem) pivotRow(col int) int {
	best, bestAbs := -1, 1e-12
	for r := col; r < 8; r++ {
		if v := math.Abs(s.a[r][col]); v > bestAbs {
			best, bestAbs = r, v
		}
	}
	return best
}
