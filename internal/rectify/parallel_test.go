package rectify

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MeKo-Tech/pagescan/internal/utils"
)

func TestParallelLines(t *testing.T) {
	tests := []struct {
		name string
		q    utils.FourPoints
		want bool
	}{
		{"axis aligned rectangle", utils.FourPoints{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 50}, {X: 0, Y: 50}}, true},
		{"trapezoid", utils.FourPoints{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 120, Y: 80}, {X: -20, Y: 80}}, false},
		{"parallelogram", utils.FourPoints{{X: 0, Y: 0}, {X: 100, Y: 10}, {X: 120, Y: 90}, {X: 20, Y: 80}}, true},
		{"perspective quad", utils.FourPoints{{X: 10, Y: 10}, {X: 130, Y: 20}, {X: 125, Y: 115}, {X: 15, Y: 105}}, false},
		{"side edges within tolerance", utils.FourPoints{{X: 0, Y: 0}, {X: 100, Y: 3}, {X: 100.5, Y: 103}, {X: 0, Y: 100}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParallelLines(tt.q, ParallelTolerance))
		})
	}
}

func TestInvSlope(t *testing.T) {
	assert.True(t, math.IsInf(invSlope(utils.Point{X: 0, Y: 5}, utils.Point{X: 10, Y: 5}), 1))
	assert.Equal(t, 0.0, invSlope(utils.Point{X: 3, Y: 0}, utils.Point{X: 3, Y: 9}))
	assert.InDelta(t, 0.5, invSlope(utils.Point{X: 0, Y: 0}, utils.Point{X: 2, Y: 4}), 1e-12)
}
