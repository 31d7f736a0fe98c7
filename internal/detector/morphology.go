package detector

import (
	"fmt"

	"github.com/MeKo-Tech/pagescan/internal/mempool"
)

// MorphologicalOp represents the type of morphological operation applied to
// the edge map before tracing.
type MorphologicalOp string

const (
	MorphNone    MorphologicalOp = "none"
	MorphDilate  MorphologicalOp = "dilate"
	MorphErode   MorphologicalOp = "erode"
	MorphOpening MorphologicalOp = "opening" // erode then dilate, removes specks
	MorphClosing MorphologicalOp = "closing" // dilate then erode, bridges gaps
)

// MorphConfig holds configuration for morphological operations.
type MorphConfig struct {
	Operation  MorphologicalOp `mapstructure:"operation" yaml:"operation" json:"operation"`
	KernelSize int             `mapstructure:"kernel_size" yaml:"kernel_size" json:"kernel_size"`
	Iterations int             `mapstructure:"iterations" yaml:"iterations" json:"iterations"`
}

// DefaultMorphConfig closes single-pixel breaks that Canny leaves at page corners.
func DefaultMorphConfig() MorphConfig {
	return MorphConfig{
		Operation:  MorphClosing,
		KernelSize: 3,
		Iterations: 1,
	}
}

func (m MorphConfig) validate() error {
	switch m.Operation {
	case "", MorphNone, MorphDilate, MorphErode, MorphOpening, MorphClosing:
	default:
		return fmt.Errorf("unknown morphological operation %q", m.Operation)
	}
	if m.Operation != "" && m.Operation != MorphNone {
		if m.KernelSize < 1 || m.KernelSize%2 == 0 {
			return fmt.Errorf("morph kernel size must be odd and positive, got %d", m.KernelSize)
		}
		if m.Iterations < 1 {
			return fmt.Errorf("morph iterations must be positive, got %d", m.Iterations)
		}
	}
	return nil
}

// applyMorphology transforms mask in place.
func applyMorphology(mask []bool, w, h int, cfg MorphConfig) {
	if cfg.Operation == "" || cfg.Operation == MorphNone || cfg.KernelSize <= 0 || cfg.Iterations <= 0 {
		return
	}
	tmp := mempool.GetBool(w * h)
	defer mempool.PutBool(tmp)

	r := cfg.KernelSize / 2
	for range cfg.Iterations {
		switch cfg.Operation {
		case MorphDilate:
			dilateMask(mask, tmp, w, h, r)
		case MorphErode:
			erodeMask(mask, tmp, w, h, r)
		case MorphOpening:
			erodeMask(mask, tmp, w, h, r)
			dilateMask(mask, tmp, w, h, r)
		case MorphClosing:
			dilateMask(mask, tmp, w, h, r)
			erodeMask(mask, tmp, w, h, r)
		}
	}
}

// dilateMask sets a pixel when any in-bounds neighbour within radius r is set.
func dilateMask(mask, tmp []bool, w, h, r int) {
	copy(tmp, mask)
	for y := range h {
		for x := range w {
			mask[y*w+x] = anyInWindow(tmp, w, h, x, y, r)
		}
	}
}

// erodeMask keeps a pixel only when every in-bounds neighbour within radius r is set.
func erodeMask(mask, tmp []bool, w, h, r int) {
	copy(tmp, mask)
	for y := range h {
		for x := range w {
			if tmp[y*w+x] {
				mask[y*w+x] = allInWindow(tmp, w, h, x, y, r)
			}
		}
	}
}

func anyInWindow(m []bool, w, h, cx, cy, r int) bool {
	for y := max(0, cy-r); y <= min(h-1, cy+r); y++ {
		row := m[y*w:]
		for x := max(0, cx-r); x <= min(w-1, cx+r); x++ {
			if row[x] {
				return true
			}
		}
	}
	return false
}

func allInWindow(m []bool, w, h, cx, cy, r int) bool {
	for y := max(0, cy-r); y <= min(h-1, cy+r); y++ {
		row := m[y*w:]
		for x := max(0, cx-r); x <= min(w-1, cx+r); x++ {
			if !row[x] {
				return false
			}
		}
	}
	return true
}
