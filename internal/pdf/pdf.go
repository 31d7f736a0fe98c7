// Package pdf pulls page photographs out of PDF files and assembles
// rectified pages into new documents using pdfcpu.
package pdf

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// PageImage is one raster image embedded in a PDF page.
type PageImage struct {
	Page  int
	Index int
	Image image.Image
}

// ExtractImages extracts the embedded images of the pages selected by
// pageRange ("" selects all pages). Results are ordered by page, then by
// position within the page.
func ExtractImages(filename string, pageRange string) ([]PageImage, error) {
	pageNumbers, err := parsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	tempDir, err := os.MkdirTemp("", "pagescan-extract-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var pageStrings []string
	for _, n := range pageNumbers {
		pageStrings = append(pageStrings, strconv.Itoa(n))
	}

	if err := api.ExtractImagesFile(filename, tempDir, pageStrings, newConfiguration(nil)); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	images, err := collectExtractedImages(tempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to process extracted images: %w", err)
	}
	return images, nil
}

// collectExtractedImages loads every decodable image written by pdfcpu into
// dir. Files whose names carry no page number or that fail to decode are skipped.
func collectExtractedImages(dir string) ([]PageImage, error) {
	var out []PageImage
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !utils.IsSupportedImage(path) {
			return nil
		}
		page, err := parsePageFromFilename(d.Name())
		if err != nil {
			return nil
		}
		img, _, err := utils.LoadImage(path)
		if err != nil {
			return nil
		}
		out = append(out, PageImage{Page: page, Image: img})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// WalkDir is lexical, so page 10 sorts before page 2 until re-sorted.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	idx := map[int]int{}
	for i := range out {
		out[i].Index = idx[out[i].Page]
		idx[out[i].Page]++
	}
	return out, nil
}

// parsePageFromFilename extracts the page number from an extracted image
// name. pdfcpu writes <stem>_<page>_<id>.<ext>; the older page_<n>_image_<m>
// layout is accepted as well.
func parsePageFromFilename(filename string) (int, error) {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(stem, "_")
	if len(parts) < 3 {
		return 0, errors.New("not an extracted page image")
	}
	token := parts[len(parts)-2]
	if parts[0] == "page" {
		token = parts[1]
	}
	page, err := strconv.Atoi(token)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("invalid page number %q", token)
	}
	return page, nil
}

// parsePageRange parses a page range string like "1-5" or "1,3,5".
func parsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

// parseRangeToken parses a single page ("3") or an inclusive range ("1-5").
func parseRangeToken(part string) ([]int, error) {
	if lo, hi, ok := strings.Cut(part, "-"); ok {
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", lo)
		}
		end, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", hi)
		}
		if start < 1 {
			return nil, fmt.Errorf("page numbers start at 1, got %d", start)
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := strconv.Atoi(part)
	if err != nil {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	if page < 1 {
		return nil, fmt.Errorf("page numbers start at 1, got %d", page)
	}
	return []int{page}, nil
}
