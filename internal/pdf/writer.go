package pdf

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// WriteImages creates outFile with one page per image, in order.
func WriteImages(images []image.Image, outFile string) error {
	if len(images) == 0 {
		return errors.New("no images to write")
	}
	tempDir, err := os.MkdirTemp("", "pagescan-import-*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	files := make([]string, len(images))
	for i, img := range images {
		if img == nil {
			return fmt.Errorf("image %d is nil", i)
		}
		files[i] = filepath.Join(tempDir, fmt.Sprintf("page_%04d.png", i+1))
		if err := utils.SavePNG(files[i], img); err != nil {
			return fmt.Errorf("stage image %d: %w", i, err)
		}
	}

	if err := api.ImportImagesFile(files, outFile, pdfcpu.DefaultImportConfig(), newConfiguration(nil)); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

// PageCount returns the number of pages in filename.
func PageCount(filename string) (int, error) {
	n, err := api.PageCountFile(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to read page count: %w", err)
	}
	return n, nil
}
