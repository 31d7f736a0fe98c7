// Package linalg provides the small dense linear-algebra kernel used by the
// rectification geometry: immutable matrices and column vectors with
// elementwise, scalar and product operations, plus closed-form determinant
// and inverse for 2x2 and 3x3 matrices.
//
// Storage and products are delegated to gonum; every operation validates
// shapes first so that mismatches surface as *ShapeError instead of a panic.
package linalg

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Matrix is an immutable rows x cols matrix. A vector is an Nx1 matrix.
// The zero value is an empty 0x0 matrix.
type Matrix struct {
	d *mat.Dense
}

// New builds a matrix from a rectangular slice of rows.
func New(rows [][]float64) (Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return Matrix{}, &ShapeError{Op: "new", Detail: "matrix must have at least one row and one column"}
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return Matrix{}, &ShapeError{
				Op:     "new",
				Detail: fmt.Sprintf("row %d has %d columns, expected %d", i, len(r), cols),
			}
		}
		data = append(data, r...)
	}
	return Matrix{d: mat.NewDense(len(rows), cols, data)}, nil
}

// MustNew is like New but panics on ragged input. Intended for literals.
func MustNew(rows [][]float64) Matrix {
	m, err := New(rows)
	if err != nil {
		panic(err)
	}
	return m
}

// NewVector builds an Nx1 column vector.
func NewVector(vals ...float64) (Matrix, error) {
	if len(vals) == 0 {
		return Matrix{}, &ShapeError{Op: "vector", Detail: "vector must have at least one element"}
	}
	data := append([]float64(nil), vals...)
	return Matrix{d: mat.NewDense(len(vals), 1, data)}, nil
}

// Vec3 builds a 3x1 column vector.
func Vec3(x, y, z float64) Matrix {
	return Matrix{d: mat.NewDense(3, 1, []float64{x, y, z})}
}

// Identity returns the n x n identity matrix.
func Identity(n int) Matrix {
	d := mat.NewDense(n, n, nil)
	for i := range n {
		d.Set(i, i, 1)
	}
	return Matrix{d: d}
}

// Dims returns the number of rows and columns.
func (m Matrix) Dims() (int, int) {
	if m.d == nil {
		return 0, 0
	}
	return m.d.Dims()
}

// Rows returns the row count.
func (m Matrix) Rows() int {
	r, _ := m.Dims()
	return r
}

// Cols returns the column count.
func (m Matrix) Cols() int {
	_, c := m.Dims()
	return c
}

// At returns the element at row i, column j.
func (m Matrix) At(i, j int) float64 { return m.d.At(i, j) }

// IsVector reports whether m is an Nx1 column vector with N >= 1.
func (m Matrix) IsVector() bool {
	r, c := m.Dims()
	return r >= 1 && c == 1
}

// RawRows returns a copy of the matrix contents as rows.
func (m Matrix) RawRows() [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := range r {
		out[i] = make([]float64, c)
		for j := range c {
			out[i][j] = m.d.At(i, j)
		}
	}
	return out
}

func (m Matrix) sameShape(b Matrix) bool {
	ar, ac := m.Dims()
	br, bc := b.Dims()
	return ar == br && ac == bc && ar > 0
}

// Add returns m + b elementwise.
func (m Matrix) Add(b Matrix) (Matrix, error) {
	if !m.sameShape(b) {
		return Matrix{}, shapeErr("add", m, b)
	}
	var out mat.Dense
	out.Add(m.d, b.d)
	return Matrix{d: &out}, nil
}

// Sub returns m - b elementwise.
func (m Matrix) Sub(b Matrix) (Matrix, error) {
	if !m.sameShape(b) {
		return Matrix{}, shapeErr("sub", m, b)
	}
	var out mat.Dense
	out.Sub(m.d, b.d)
	return Matrix{d: &out}, nil
}

// Mul returns the elementwise (Hadamard) product. Use Apply for the matrix product.
func (m Matrix) Mul(b Matrix) (Matrix, error) {
	if !m.sameShape(b) {
		return Matrix{}, shapeErr("mul", m, b)
	}
	var out mat.Dense
	out.MulElem(m.d, b.d)
	return Matrix{d: &out}, nil
}

// Div returns m / b elementwise. Division by zero follows IEEE-754.
func (m Matrix) Div(b Matrix) (Matrix, error) {
	if !m.sameShape(b) {
		return Matrix{}, shapeErr("div", m, b)
	}
	var out mat.Dense
	out.DivElem(m.d, b.d)
	return Matrix{d: &out}, nil
}

func (m Matrix) mapScalar(fn func(v float64) float64) Matrix {
	if m.d == nil {
		return Matrix{}
	}
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return fn(v) }, m.d)
	return Matrix{d: &out}
}

// Adds adds s to every element.
func (m Matrix) Adds(s float64) Matrix { return m.mapScalar(func(v float64) float64 { return v + s }) }

// Subs subtracts s from every element.
func (m Matrix) Subs(s float64) Matrix { return m.mapScalar(func(v float64) float64 { return v - s }) }

// Muls multiplies every element by s.
func (m Matrix) Muls(s float64) Matrix {
	if m.d == nil {
		return Matrix{}
	}
	var out mat.Dense
	out.Scale(s, m.d)
	return Matrix{d: &out}
}

// Divs divides every element by s.
func (m Matrix) Divs(s float64) Matrix { return m.mapScalar(func(v float64) float64 { return v / s }) }

// Pows raises every element to the power p.
func (m Matrix) Pows(p float64) Matrix {
	return m.mapScalar(func(v float64) float64 { return math.Pow(v, p) })
}

// Apply returns the matrix product m x b. Requires m.cols == b.rows.
func (m Matrix) Apply(b Matrix) (Matrix, error) {
	_, ac := m.Dims()
	br, _ := b.Dims()
	if ac == 0 || ac != br {
		return Matrix{}, shapeErr("apply", m, b)
	}
	var out mat.Dense
	out.Mul(m.d, b.d)
	return Matrix{d: &out}, nil
}

// Transpose returns the transposed matrix.
func (m Matrix) Transpose() Matrix {
	if m.d == nil {
		return Matrix{}
	}
	return Matrix{d: mat.DenseCopyOf(m.d.T())}
}

// Dot returns the scalar product of two column vectors of equal length.
// Matrices must use Apply instead.
func (m Matrix) Dot(b Matrix) (float64, error) {
	if !m.IsVector() || !b.IsVector() || m.Rows() != b.Rows() {
		return 0, shapeErr("dot", m, b)
	}
	var sum float64
	for i := range m.Rows() {
		sum += m.d.At(i, 0) * b.d.At(i, 0)
	}
	return sum, nil
}

// Magnitude returns the Euclidean length of a column vector.
func (m Matrix) Magnitude() (float64, error) {
	d, err := m.Dot(m)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(d), nil
}

// Angle returns the angle in radians between two vectors. A zero-length
// operand yields NaN.
func (m Matrix) Angle(b Matrix) (float64, error) {
	d, err := m.Dot(b)
	if err != nil {
		return 0, err
	}
	ma, _ := m.Magnitude()
	mb, _ := b.Magnitude()
	c := d / (ma * mb)
	// rounding can push |c| slightly past 1
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c), nil
}

// Cross returns the cross product of two 3-vectors.
func (m Matrix) Cross(b Matrix) (Matrix, error) {
	if !m.IsVector() || !b.IsVector() || m.Rows() != 3 || b.Rows() != 3 {
		return Matrix{}, shapeErr("cross", m, b)
	}
	a1, a2, a3 := m.d.At(0, 0), m.d.At(1, 0), m.d.At(2, 0)
	b1, b2, b3 := b.d.At(0, 0), b.d.At(1, 0), b.d.At(2, 0)
	return Vec3(a2*b3-a3*b2, a3*b1-a1*b3, a1*b2-a2*b1), nil
}

// Cross2D returns |a||b| sin(theta) for two vectors of equal length. The
// result is unsigned since theta lies in [0, pi].
func (m Matrix) Cross2D(b Matrix) (float64, error) {
	theta, err := m.Angle(b)
	if err != nil {
		return 0, err
	}
	ma, _ := m.Magnitude()
	mb, _ := b.Magnitude()
	return ma * mb * math.Sin(theta), nil
}

// Equal reports whether m and b have the same shape and all elements differ
// by at most tol.
func (m Matrix) Equal(b Matrix, tol float64) bool {
	if !m.sameShape(b) {
		return false
	}
	return mat.EqualApprox(m.d, b.d, tol)
}

func (m Matrix) String() string {
	r, c := m.Dims()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Matrix(%dx%d)[", r, c))
	for i := range r {
		if i > 0 {
			sb.WriteString("; ")
		}
		for j := range c {
			if j > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(fmt.Sprintf("%g", m.d.At(i, j)))
		}
	}
	sb.WriteString("]")
	return sb.String()
}
