package rectify

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// projectRectangle images a w x h planar rectangle tilted by ax and ay
// radians through a pinhole camera with focal length f and the principal
// point at the centre of an imgW x imgH sensor.
func projectRectangle(w, h, ax, ay, dist, f float64, imgW, imgH int) utils.FourPoints {
	corners := [4][3]float64{
		{-w / 2, -h / 2, 0},
		{w / 2, -h / 2, 0},
		{w / 2, h / 2, 0},
		{-w / 2, h / 2, 0},
	}
	cx, sx := math.Cos(ax), math.Sin(ax)
	cy, sy := math.Cos(ay), math.Sin(ay)
	var q utils.FourPoints
	for i, p := range corners {
		// rotate about x, then about y
		x, y, z := p[0], p[1]*cx-p[2]*sx, p[1]*sx+p[2]*cx
		x, z = x*cy+z*sy, -x*sy+z*cy
		z += dist
		q[i] = utils.Point{
			X: f*x/z + float64(imgW)/2,
			Y: f*y/z + float64(imgH)/2,
		}
	}
	return q
}

func TestTrueAspectRatio_RecoversProjectedRectangle(t *testing.T) {
	tests := []struct {
		name   string
		ratio  float64
		ax, ay float64
	}{
		{"landscape tilted both ways", 1.5, 0.35, 0.25},
		{"portrait A4", 1 / math.Sqrt2, -0.3, 0.4},
		{"square", 1, 0.2, -0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := projectRectangle(300*tt.ratio, 300, tt.ax, tt.ay, 1000, 800, 1000, 800)
			ordered := OrderPoints(q)
			require.Equal(t, q, ordered)
			require.False(t, ParallelLines(ordered, ParallelTolerance))

			ar, err := TrueAspectRatio(ordered, 1000, 800)
			require.NoError(t, err)
			assert.InEpsilon(t, tt.ratio, ar, 0.01)
		})
	}
}

func TestTrueAspectRatio_FrontoParallelIsNaN(t *testing.T) {
	q := utils.FourPoints{{X: 40, Y: 40}, {X: 160, Y: 40}, {X: 160, Y: 160}, {X: 40, Y: 160}}
	ar, err := TrueAspectRatio(q, 200, 200)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(ar))
}

func TestTripleRatio(t *testing.T) {
	a, d := homogeneous(utils.Point{X: 0, Y: 0}), homogeneous(utils.Point{X: 1, Y: 0})
	b, c := homogeneous(utils.Point{X: 1, Y: 1}), homogeneous(utils.Point{X: 0, Y: 1})
	// unit square: both diagonals intersect symmetrically
	k, err := tripleRatio(a, d, b, c)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, k, 1e-12)
}
