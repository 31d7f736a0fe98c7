package linalg

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks.
var (
	ErrShape          = errors.New("shape mismatch")
	ErrSingular       = errors.New("singular matrix")
	ErrNotImplemented = errors.New("not implemented")
)

// ShapeError reports operands whose shapes are incompatible for an operation.
type ShapeError struct {
	Op     string
	A      [2]int
	B      [2]int
	Detail string
}

func (e *ShapeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("linalg error in %s: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("linalg error in %s: shape mismatch %dx%d vs %dx%d",
		e.Op, e.A[0], e.A[1], e.B[0], e.B[1])
}

func (e *ShapeError) Unwrap() error { return ErrShape }

// SingularMatrixError is returned when an inverse is requested for a matrix
// whose determinant is exactly zero.
type SingularMatrixError struct {
	Rows, Cols int
}

func (e *SingularMatrixError) Error() string {
	return fmt.Sprintf("linalg error in inverse: %dx%d matrix is singular", e.Rows, e.Cols)
}

func (e *SingularMatrixError) Unwrap() error { return ErrSingular }

// NotImplementedError is returned for determinant/inverse on shapes other
// than 2x2 and 3x3.
type NotImplementedError struct {
	Op         string
	Rows, Cols int
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("linalg error in %s: not implemented for %dx%d", e.Op, e.Rows, e.Cols)
}

func (e *NotImplementedError) Unwrap() error { return ErrNotImplemented }

func shapeErr(op string, a, b Matrix) error {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	return &ShapeError{Op: op, A: [2]int{ar, ac}, B: [2]int{br, bc}}
}
