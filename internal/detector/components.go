package detector

import "github.com/MeKo-Tech/pagescan/internal/mempool"

// compStats represents statistics for a connected component.
type compStats struct {
	label int
	count int
	minX  int
	minY  int
	maxX  int
	maxY  int
}

func (s compStats) width() int  { return s.maxX - s.minX + 1 }
func (s compStats) height() int { return s.maxY - s.minY + 1 }

var neighbours8 = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}

// connectedComponents labels 8-connected foreground regions of mask. Labels
// start at 1; 0 is background. The label buffer comes from mempool and must
// be returned with mempool.PutInt.
func connectedComponents(mask []bool, w, h int) ([]compStats, []int) {
	labels := mempool.GetInt(w * h)
	var comps []compStats
	queue := make([]int, 0, 256)
	label := 1

	for y := range h {
		for x := range w {
			idx := y*w + x
			if !mask[idx] || labels[idx] != 0 {
				continue
			}
			st := compStats{label: label, minX: x, minY: y, maxX: x, maxY: y}
			labels[idx] = label
			queue = append(queue[:0], idx)
			for head := 0; head < len(queue); head++ {
				ci := queue[head]
				cx, cy := ci%w, ci/w
				st.count++
				st.minX = min(st.minX, cx)
				st.maxX = max(st.maxX, cx)
				st.minY = min(st.minY, cy)
				st.maxY = max(st.maxY, cy)
				for _, d := range neighbours8 {
					nx, ny := cx+d[0], cy+d[1]
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					ni := ny*w + nx
					if mask[ni] && labels[ni] == 0 {
						labels[ni] = label
						queue = append(queue, ni)
					}
				}
			}
			comps = append(comps, st)
			label++
		}
	}
	return comps, labels
}
