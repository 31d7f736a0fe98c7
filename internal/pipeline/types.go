package pipeline

import (
	"image"

	"github.com/MeKo-Tech/pagescan/internal/detector"
	"github.com/MeKo-Tech/pagescan/internal/ocr"
	"github.com/MeKo-Tech/pagescan/internal/rectify"
	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// RectifiedPage describes the rectified raster.
type RectifiedPage struct {
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Mode        rectify.Mode `json:"mode"`
	Parallel    bool         `json:"parallel"`
	Fallback    bool         `json:"fallback"`
	AspectRatio float64      `json:"aspect_ratio"`
	// FullFrame is set when the image border was used because no page was found.
	FullFrame bool `json:"full_frame,omitempty"`
}

// PageResult is the per-image pipeline output.
type PageResult struct {
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	Found       bool               `json:"found"`
	Quads       []detector.Contour `json:"quads,omitempty"`
	Corners     *utils.FourPoints  `json:"corners,omitempty"`
	Rectified   *RectifiedPage     `json:"rectified,omitempty"`
	Orientation *ocr.Orientation   `json:"orientation,omitempty"`
	Text        *ocr.Text          `json:"text,omitempty"`
	// Image is the final raster: rectified, thresholded and re-oriented as configured.
	Image      image.Image `json:"-"`
	Processing struct {
		DetectionNs int64 `json:"detection_ns"`
		RectifyNs   int64 `json:"rectify_ns"`
		OCRNs       int64 `json:"ocr_ns"`
		TotalNs     int64 `json:"total_ns"`
	} `json:"processing"`
}

// FileResult pairs a processed file with its result or failure.
type FileResult struct {
	Path   string      `json:"file"`
	Result *PageResult `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
	Err    error       `json:"-"`
}
