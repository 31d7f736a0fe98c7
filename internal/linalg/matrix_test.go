package linalg

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RaggedRows(t *testing.T) {
	_, err := New([][]float64{{1, 2}, {3}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShape))

	var se *ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "new", se.Op)
}

func TestNew_Empty(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrShape)

	_, err = NewVector()
	assert.ErrorIs(t, err, ErrShape)
}

func TestElementwise(t *testing.T) {
	a := MustNew([][]float64{{1, 2}, {3, 4}})
	b := MustNew([][]float64{{5, 6}, {7, 8}})

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{6, 8}, {10, 12}}, sum.RawRows())

	diff, err := b.Sub(a)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{4, 4}, {4, 4}}, diff.RawRows())

	prod, err := a.Mul(b)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{5, 12}, {21, 32}}, prod.RawRows())

	quot, err := b.Div(a)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, quot.At(0, 0), 1e-12)
	assert.InDelta(t, 2.0, quot.At(1, 1), 1e-12)

	// operands are left untouched
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, a.RawRows())
}

func TestElementwise_ShapeMismatch(t *testing.T) {
	a := MustNew([][]float64{{1, 2}, {3, 4}})
	v := Vec3(1, 2, 3)

	ops := map[string]func(Matrix) (Matrix, error){
		"add": a.Add,
		"sub": a.Sub,
		"mul": a.Mul,
		"div": a.Div,
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			_, err := op(v)
			var se *ShapeError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, name, se.Op)
			assert.Equal(t, [2]int{2, 2}, se.A)
			assert.Equal(t, [2]int{3, 1}, se.B)
		})
	}
}

func TestScalarOps(t *testing.T) {
	a := MustNew([][]float64{{1, 2}, {3, 4}})

	assert.Equal(t, [][]float64{{3, 4}, {5, 6}}, a.Adds(2).RawRows())
	assert.Equal(t, [][]float64{{0, 1}, {2, 3}}, a.Subs(1).RawRows())
	assert.Equal(t, [][]float64{{2, 4}, {6, 8}}, a.Muls(2).RawRows())
	assert.Equal(t, [][]float64{{0.5, 1}, {1.5, 2}}, a.Divs(2).RawRows())
	assert.Equal(t, [][]float64{{1, 4}, {9, 16}}, a.Pows(2).RawRows())
}

func TestDot(t *testing.T) {
	a := Vec3(1, 2, 3)
	b := Vec3(4, 5, 6)
	d, err := a.Dot(b)
	require.NoError(t, err)
	assert.InDelta(t, 32.0, d, 1e-12)

	m := MustNew([][]float64{{1, 2, 3}})
	_, err = m.Dot(m)
	assert.ErrorIs(t, err, ErrShape, "row vectors are not accepted")

	short, err := NewVector(1, 2)
	require.NoError(t, err)
	_, err = a.Dot(short)
	assert.ErrorIs(t, err, ErrShape)
}

func TestApply(t *testing.T) {
	a := MustNew([][]float64{{1, 2, 3}, {4, 5, 6}})
	b := MustNew([][]float64{{7, 8}, {9, 10}, {11, 12}})

	p, err := a.Apply(b)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{58, 64}, {139, 154}}, p.RawRows())

	_, err = a.Apply(a)
	assert.ErrorIs(t, err, ErrShape)

	mv, err := a.Apply(Vec3(1, 0, -1))
	require.NoError(t, err)
	assert.True(t, mv.IsVector())
	assert.Equal(t, [][]float64{{-2}, {-2}}, mv.RawRows())
}

func TestCross(t *testing.T) {
	x := Vec3(1, 0, 0)
	y := Vec3(0, 1, 0)
	z, err := x.Cross(y)
	require.NoError(t, err)
	assert.True(t, z.Equal(Vec3(0, 0, 1), 1e-12))

	v2, err := NewVector(1, 0)
	require.NoError(t, err)
	_, err = x.Cross(v2)
	assert.ErrorIs(t, err, ErrShape)
}

func TestCross2D(t *testing.T) {
	a, _ := NewVector(2, 0)
	b, _ := NewVector(0, 3)
	c, err := a.Cross2D(b)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, c, 1e-9)

	// unsigned regardless of operand order
	c2, err := b.Cross2D(a)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, c2, 1e-9)

	par, _ := NewVector(4, 0)
	c3, err := a.Cross2D(par)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, c3, 1e-9)
}

func TestMagnitudeAndAngle(t *testing.T) {
	v, _ := NewVector(3, 4)
	m, err := v.Magnitude()
	require.NoError(t, err)
	assert.InDelta(t, 5.0, m, 1e-12)

	a, _ := NewVector(1, 0)
	b, _ := NewVector(0, 1)
	ang, err := a.Angle(b)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/2, ang, 1e-12)

	zero, _ := NewVector(0, 0)
	ang, err = a.Angle(zero)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(ang))
}

func TestTranspose(t *testing.T) {
	a := MustNew([][]float64{{1, 2, 3}, {4, 5, 6}})
	tr := a.Transpose()
	assert.Equal(t, [][]float64{{1, 4}, {2, 5}, {3, 6}}, tr.RawRows())
	assert.Equal(t, 3, tr.Rows())
	assert.Equal(t, 2, tr.Cols())
}

func TestDeterminant(t *testing.T) {
	m2 := MustNew([][]float64{{4, 7}, {2, 6}})
	d, err := m2.Determinant()
	require.NoError(t, err)
	assert.InDelta(t, 10.0, d, 1e-12)

	m3 := MustNew([][]float64{{6, 1, 1}, {4, -2, 5}, {2, 8, 7}})
	d, err = m3.Determinant()
	require.NoError(t, err)
	assert.InDelta(t, -306.0, d, 1e-9)

	_, err = Identity(4).Determinant()
	var nie *NotImplementedError
	require.ErrorAs(t, err, &nie)
	assert.Equal(t, 4, nie.Rows)

	_, err = MustNew([][]float64{{1, 2, 3}, {4, 5, 6}}).Determinant()
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestInverse(t *testing.T) {
	m3 := MustNew([][]float64{{2, 0, 1}, {1, 3, 2}, {1, 1, 2}})
	inv, err := m3.Inverse()
	require.NoError(t, err)
	id, err := m3.Apply(inv)
	require.NoError(t, err)
	assert.True(t, id.Equal(Identity(3), 1e-9), "got %v", id)

	m2 := MustNew([][]float64{{4, 7}, {2, 6}})
	inv2, err := m2.Inverse()
	require.NoError(t, err)
	assert.InDelta(t, 0.6, inv2.At(0, 0), 1e-12)
	assert.InDelta(t, -0.7, inv2.At(0, 1), 1e-12)
	assert.InDelta(t, -0.2, inv2.At(1, 0), 1e-12)
	assert.InDelta(t, 0.4, inv2.At(1, 1), 1e-12)
}

func TestInverse_Singular(t *testing.T) {
	_, err := MustNew([][]float64{{1, 2}, {2, 4}}).Inverse()
	var se *SingularMatrixError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, ErrSingular)

	_, err = MustNew([][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}).Inverse()
	assert.ErrorIs(t, err, ErrSingular)
}

func TestInverse_NotImplemented(t *testing.T) {
	_, err := Identity(4).Inverse()
	assert.ErrorIs(t, err, ErrNotImplemented)

	_, err = Vec3(1, 2, 3).Inverse()
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestErrorMessages(t *testing.T) {
	_, err := Identity(2).Add(Identity(3))
	assert.EqualError(t, err, "linalg error in add: shape mismatch 2x2 vs 3x3")

	_, err = MustNew([][]float64{{0, 0}, {0, 0}}).Inverse()
	assert.EqualError(t, err, "linalg error in inverse: 2x2 matrix is singular")
}
