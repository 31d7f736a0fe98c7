package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/pagescan/internal/pipeline"
	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// rectifiedName derives the output file name for input path. Duplicate base
// names across directories get the input index appended.
func rectifiedName(path string, index int, seen map[string]bool) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	name := stem + "_rectified.png"
	if seen[name] {
		name = fmt.Sprintf("%s_%d_rectified.png", stem, index)
	}
	seen[name] = true
	return name
}

// saveRectified writes every rectified raster into dir as PNG.
func saveRectified(dir string, results []pipeline.FileResult) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	seen := make(map[string]bool, len(results))
	for i, r := range results {
		if r.Err != nil || r.Result == nil || r.Result.Image == nil {
			continue
		}
		out := filepath.Join(dir, rectifiedName(r.Path, i, seen))
		if err := utils.SavePNG(out, r.Result.Image); err != nil {
			return fmt.Errorf("save %s: %w", out, err)
		}
	}
	return nil
}
