package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseFourPoints parses "x,y,x,y,x,y,x,y" into four corners. Whitespace and
// semicolons between pairs are accepted.
func ParseFourPoints(s string) (FourPoints, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	if len(fields) != 8 {
		return FourPoints{}, fmt.Errorf("%w: expected 8 coordinates, got %d", ErrInvalidQuad, len(fields))
	}
	pts := make([]Point, 4)
	for i := range pts {
		x, err := strconv.ParseFloat(fields[2*i], 64)
		if err != nil {
			return FourPoints{}, fmt.Errorf("point %d: invalid x %q", i+1, fields[2*i])
		}
		y, err := strconv.ParseFloat(fields[2*i+1], 64)
		if err != nil {
			return FourPoints{}, fmt.Errorf("point %d: invalid y %q", i+1, fields[2*i+1])
		}
		pts[i] = Point{X: x, Y: y}
	}
	return NewFourPoints(pts)
}

// String formats the corners in the form accepted by ParseFourPoints.
func (fp FourPoints) String() string {
	parts := make([]string, 0, 8)
	for _, p := range fp {
		parts = append(parts,
			strconv.FormatFloat(p.X, 'f', -1, 64),
			strconv.FormatFloat(p.Y, 'f', -1, 64))
	}
	return strings.Join(parts, ",")
}
