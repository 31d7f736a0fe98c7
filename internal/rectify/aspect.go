package rectify

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/pagescan/internal/linalg"
	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// AspectFunc estimates the true width/height ratio of the rectangle imaged
// as the ordered quad q in an image of the given size.
type AspectFunc func(q utils.FourPoints, width, height int) (float64, error)

func homogeneous(p utils.Point) linalg.Matrix {
	return linalg.Vec3(p.X, p.Y, 1)
}

// tripleRatio returns ((a x b) . c) / ((d x b) . c).
func tripleRatio(a, d, b, c linalg.Matrix) (float64, error) {
	ab, err := a.Cross(b)
	if err != nil {
		return 0, err
	}
	db, err := d.Cross(b)
	if err != nil {
		return 0, err
	}
	num, err := ab.Dot(c)
	if err != nil {
		return 0, err
	}
	den, err := db.Dot(c)
	if err != nil {
		return 0, err
	}
	return num / den, nil
}

// quadraticForm returns v' M v for a 3-vector v.
func quadraticForm(m, v linalg.Matrix) (float64, error) {
	mv, err := m.Apply(v)
	if err != nil {
		return 0, err
	}
	return mv.Dot(v)
}

// TrueAspectRatio recovers the width/height ratio of a planar rectangle from
// its perspective image, assuming square pixels and a principal point at the
// image centre. Degenerate geometry yields NaN rather than an error; a
// singular calibration matrix is reported as *linalg.SingularMatrixError.
func TrueAspectRatio(q utils.FourPoints, width, height int) (float64, error) {
	u0 := float64(width) / 2
	v0 := float64(height) / 2

	m1 := homogeneous(q[0]) // top-left
	m2 := homogeneous(q[1]) // top-right
	m3 := homogeneous(q[3]) // bottom-left
	m4 := homogeneous(q[2]) // bottom-right

	k2, err := tripleRatio(m1, m2, m4, m3)
	if err != nil {
		return math.NaN(), err
	}
	k3, err := tripleRatio(m1, m3, m4, m2)
	if err != nil {
		return math.NaN(), err
	}

	n2, err := m2.Muls(k2).Sub(m1)
	if err != nil {
		return math.NaN(), err
	}
	n3, err := m3.Muls(k3).Sub(m1)
	if err != nil {
		return math.NaN(), err
	}
	n21, n22, n23 := n2.At(0, 0), n2.At(1, 0), n2.At(2, 0)
	n31, n32, n33 := n3.At(0, 0), n3.At(1, 0), n3.At(2, 0)

	f2 := -(1 / (n23 * n33)) *
		((n21*n31 - (n21*n33+n23*n31)*u0 + n23*n33*u0*u0) +
			(n22*n32 - (n22*n33+n23*n32)*v0 + n23*n33*v0*v0))
	f := math.Sqrt(f2)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return math.NaN(), nil
	}

	a := linalg.MustNew([][]float64{
		{f, 0, u0},
		{0, f, v0},
		{0, 0, 1},
	})
	aInv, err := a.Inverse()
	if err != nil {
		return math.NaN(), fmt.Errorf("calibration matrix: %w", err)
	}
	aTInv, err := a.Transpose().Inverse()
	if err != nil {
		return math.NaN(), fmt.Errorf("calibration matrix: %w", err)
	}
	w, err := aTInv.Apply(aInv)
	if err != nil {
		return math.NaN(), err
	}

	num, err := quadraticForm(w, n2)
	if err != nil {
		return math.NaN(), err
	}
	den, err := quadraticForm(w, n3)
	if err != nil {
		return math.NaN(), err
	}
	return math.Sqrt(num / den), nil
}
