package rectify

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/MeKo-Tech/pagescan/internal/utils"
)

func TestOrderPoints(t *testing.T) {
	want := utils.FourPoints{{X: 10, Y: 12}, {X: 90, Y: 8}, {X: 95, Y: 70}, {X: 5, Y: 66}}
	shuffled := utils.FourPoints{want[2], want[0], want[3], want[1]}
	assert.Equal(t, want, OrderPoints(shuffled))
	assert.Equal(t, want, OrderPoints(want))
}

func TestOrderPoints_TiesGoToFirst(t *testing.T) {
	// a diamond has equal x+y for its top and left corners
	pts := utils.FourPoints{{X: 50, Y: 0}, {X: 100, Y: 50}, {X: 50, Y: 100}, {X: 0, Y: 50}}
	got := OrderPoints(pts)
	assert.Equal(t, pts[0], got[0])
	assert.Equal(t, pts[0], got[1])
	assert.Equal(t, pts[1], got[2])
	assert.Equal(t, pts[2], got[3])
}

// permutation returns the n-th of the 24 orderings of q.
func permutation(q utils.FourPoints, n int) utils.FourPoints {
	idx := []int{0, 1, 2, 3}
	var out utils.FourPoints
	for i := range 4 {
		f := 1
		for k := 2; k < 4-i; k++ {
			f *= k
		}
		j := n / f
		n %= f
		out[i] = q[idx[j]]
		idx = append(idx[:j], idx[j+1:]...)
	}
	return out
}

func TestPermutationCoversAll(t *testing.T) {
	q := utils.FourPoints{{X: 0}, {X: 1}, {X: 2}, {X: 3}}
	seen := map[utils.FourPoints]bool{}
	for n := range 24 {
		seen[permutation(q, n)] = true
	}
	assert.Len(t, seen, 24)
}

func TestOrderPoints_PermutationInvariant(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("any input order yields TL, TR, BR, BL", prop.ForAll(
		func(x0, y0, w, h float64, jitter []float64, perm int) bool {
			want := utils.FourPoints{
				{X: x0 + jitter[0], Y: y0 + jitter[1]},
				{X: x0 + w + jitter[2], Y: y0 + jitter[3]},
				{X: x0 + w + jitter[4], Y: y0 + h + jitter[5]},
				{X: x0 + jitter[6], Y: y0 + h + jitter[7]},
			}
			return OrderPoints(permutation(want, perm)) == want
		},
		gen.Float64Range(0, 1000),
		gen.Float64Range(0, 1000),
		gen.Float64Range(20, 800),
		gen.Float64Range(20, 800),
		gen.SliceOfN(8, gen.Float64Range(-3, 3)),
		gen.IntRange(0, 23),
	))

	properties.TestingRun(t)
}
