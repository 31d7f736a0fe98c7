package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFourPoints(t *testing.T) {
	fp, err := ParseFourPoints("10,20, 110,20; 110,220 10,220")
	require.NoError(t, err)
	assert.Equal(t, FourPoints{{X: 10, Y: 20}, {X: 110, Y: 20}, {X: 110, Y: 220}, {X: 10, Y: 220}}, fp)
	assert.Equal(t, "10,20,110,20,110,220,10,220", fp.String())

	roundTrip, err := ParseFourPoints(fp.String())
	require.NoError(t, err)
	assert.Equal(t, fp, roundTrip)
}

func TestParseFourPoints_Invalid(t *testing.T) {
	_, err := ParseFourPoints("1,2,3,4")
	assert.True(t, errors.Is(err, ErrInvalidQuad))

	_, err = ParseFourPoints("1,2,3,4,5,6,7,x")
	assert.ErrorContains(t, err, "invalid y")

	_, err = ParseFourPoints("0,0,0,0,5,5,0,5")
	assert.True(t, errors.Is(err, ErrInvalidQuad))
}
