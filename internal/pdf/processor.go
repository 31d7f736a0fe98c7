package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/pagescan/internal/pipeline"
)

// ErrNoImages is returned when the selected pages contain no raster images.
var ErrNoImages = errors.New("no images found in PDF")

// ProcessorConfig controls PDF processing.
type ProcessorConfig struct {
	PageRange   string
	Credentials *Credentials
	Parallel    pipeline.ParallelConfig
	// KeepUnrectified writes the extracted image for pages where no page
	// boundary was found instead of dropping them from the output.
	KeepUnrectified bool
}

// Processor runs PDF page images through a pipeline.
type Processor struct {
	pipeline *pipeline.Pipeline
	config   ProcessorConfig
	extract  func(filename, pageRange string) ([]PageImage, error)
}

// NewProcessor creates a processor that uses pl for every extracted image.
func NewProcessor(pl *pipeline.Pipeline, config ProcessorConfig) *Processor {
	return &Processor{pipeline: pl, config: config, extract: ExtractImages}
}

// ProcessFile extracts, rectifies and optionally recognizes every image in
// filename. When outFile is non-empty the rectified pages are written to it
// as a new PDF.
func (p *Processor) ProcessFile(ctx context.Context, filename, outFile string) (*DocumentResult, error) {
	start := time.Now()

	working, cleanup, err := Decrypt(filename, p.config.Credentials)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	extractStart := time.Now()
	pageImages, err := p.extract(working, p.config.PageRange)
	if err != nil {
		return nil, err
	}
	if len(pageImages) == 0 {
		return nil, ErrNoImages
	}
	extractTime := time.Since(extractStart)

	images := make([]image.Image, len(pageImages))
	for i, pi := range pageImages {
		images[i] = pi.Image
	}
	pipeStart := time.Now()
	results, err := p.pipeline.ProcessImagesParallel(ctx, images, p.config.Parallel)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", filename, err)
	}
	pipeTime := time.Since(pipeStart)

	doc := &DocumentResult{Filename: filename, Pages: groupByPage(pageImages, results)}
	doc.TotalPages = len(doc.Pages)
	doc.Processing.ExtractionTimeMs = extractTime.Milliseconds()
	doc.Processing.PipelineTimeMs = pipeTime.Milliseconds()

	if outFile != "" {
		writeStart := time.Now()
		out := p.outputImages(pageImages, results)
		if len(out) == 0 {
			return nil, errors.New("no rectified pages to write")
		}
		if err := WriteImages(out, outFile); err != nil {
			return nil, err
		}
		doc.Output = outFile
		doc.Processing.WriteTimeMs = time.Since(writeStart).Milliseconds()
	}

	doc.Processing.TotalTimeMs = time.Since(start).Milliseconds()
	slog.Info("Processed PDF",
		"file", filename,
		"pages", doc.TotalPages,
		"images", len(pageImages),
		"duration_ms", doc.Processing.TotalTimeMs)
	return doc, nil
}

// outputImages picks the raster to write for each extracted image.
func (p *Processor) outputImages(pageImages []PageImage, results []*pipeline.PageResult) []image.Image {
	out := make([]image.Image, 0, len(results))
	for i, r := range results {
		switch {
		case r != nil && r.Image != nil:
			out = append(out, r.Image)
		case p.config.KeepUnrectified:
			out = append(out, pageImages[i].Image)
		}
	}
	return out
}

func groupByPage(pageImages []PageImage, results []*pipeline.PageResult) []PageResult {
	var pages []PageResult
	for i, pi := range pageImages {
		if len(pages) == 0 || pages[len(pages)-1].PageNumber != pi.Page {
			pages = append(pages, PageResult{PageNumber: pi.Page})
		}
		b := pi.Image.Bounds()
		last := &pages[len(pages)-1]
		last.Images = append(last.Images, ImageResult{
			ImageIndex: pi.Index,
			Width:      b.Dx(),
			Height:     b.Dy(),
			Result:     results[i],
		})
	}
	return pages
}
