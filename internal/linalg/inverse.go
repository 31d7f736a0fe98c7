package linalg

// Determinant returns the determinant of a 2x2 or 3x3 matrix.
func (m Matrix) Determinant() (float64, error) {
	r, c := m.Dims()
	switch {
	case r == 2 && c == 2:
		return det2(m), nil
	case r == 3 && c == 3:
		return det3(m), nil
	default:
		return 0, &NotImplementedError{Op: "determinant", Rows: r, Cols: c}
	}
}

// Inverse returns the inverse of a 2x2 or 3x3 matrix using the adjugate.
// A determinant of exactly zero yields *SingularMatrixError.
func (m Matrix) Inverse() (Matrix, error) {
	r, c := m.Dims()
	switch {
	case r == 2 && c == 2:
		d := det2(m)
		if d == 0 {
			return Matrix{}, &SingularMatrixError{Rows: r, Cols: c}
		}
		a, b := m.At(0, 0), m.At(0, 1)
		cc, dd := m.At(1, 0), m.At(1, 1)
		return MustNew([][]float64{
			{dd / d, -b / d},
			{-cc / d, a / d},
		}), nil
	case r == 3 && c == 3:
		d := det3(m)
		if d == 0 {
			return Matrix{}, &SingularMatrixError{Rows: r, Cols: c}
		}
		return MustNew(adjugate3(m)).Divs(d), nil
	default:
		return Matrix{}, &NotImplementedError{Op: "inverse", Rows: r, Cols: c}
	}
}

func det2(m Matrix) float64 {
	return m.At(0, 0)*m.At(1, 1) - m.At(0, 1)*m.At(1, 0)
}

func det3(m Matrix) float64 {
	a, b, c := m.At(0, 0), m.At(0, 1), m.At(0, 2)
	d, e, f := m.At(1, 0), m.At(1, 1), m.At(1, 2)
	g, h, i := m.At(2, 0), m.At(2, 1), m.At(2, 2)
	return a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
}

// adjugate3 returns the transposed cofactor matrix of a 3x3 matrix.
func adjugate3(m Matrix) [][]float64 {
	a, b, c := m.At(0, 0), m.At(0, 1), m.At(0, 2)
	d, e, f := m.At(1, 0), m.At(1, 1), m.At(1, 2)
	g, h, i := m.At(2, 0), m.At(2, 1), m.At(2, 2)
	return [][]float64{
		{e*i - f*h, -(b*i - c*h), b*f - c*e},
		{-(d*i - f*g), a*i - c*g, -(a*f - c*d)},
		{d*h - e*g, -(a*h - b*g), a*e - b*d},
	}
}
