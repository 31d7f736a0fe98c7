package pdf

import "github.com/MeKo-Tech/pagescan/internal/pipeline"

// ImageResult is the pipeline outcome for one embedded image.
type ImageResult struct {
	ImageIndex int                  `json:"image_index"`
	Width      int                  `json:"width"`
	Height     int                  `json:"height"`
	Result     *pipeline.PageResult `json:"result"`
}

// PageResult groups the images of one PDF page.
type PageResult struct {
	PageNumber int           `json:"page_number"`
	Images     []ImageResult `json:"images"`
}

// DocumentResult is the outcome of processing a PDF.
type DocumentResult struct {
	Filename   string         `json:"filename"`
	TotalPages int            `json:"total_pages"`
	Pages      []PageResult   `json:"pages"`
	Output     string         `json:"output,omitempty"`
	Processing ProcessingInfo `json:"processing"`
}

// ProcessingInfo contains timing information.
type ProcessingInfo struct {
	ExtractionTimeMs int64 `json:"extraction_time_ms"`
	PipelineTimeMs   int64 `json:"pipeline_time_ms"`
	WriteTimeMs      int64 `json:"write_time_ms,omitempty"`
	TotalTimeMs      int64 `json:"total_time_ms"`
}

// ImageCount returns the number of processed images.
func (d *DocumentResult) ImageCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Images)
	}
	return n
}
