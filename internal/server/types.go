package server

import (
	"github.com/MeKo-Tech/pagescan/internal/detector"
	"github.com/MeKo-Tech/pagescan/internal/ocr"
	"github.com/MeKo-Tech/pagescan/internal/pipeline"
	"github.com/MeKo-Tech/pagescan/internal/rectify"
	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// Error types reported in error_type.
const (
	errTypeInvalidRequest     = "invalid_request"
	errTypeInvalidImage       = "invalid_image"
	errTypeTooLarge           = "too_large"
	errTypeNoQuadrilateral    = "no_quadrilateral"
	errTypeInvalidPoints      = "invalid_points"
	errTypeDegenerateQuad     = "degenerate_quad"
	errTypeDegenerateRotation = "degenerate_rotation"
	errTypeOCRUnavailable     = "ocr_unavailable"
	errTypeTimeout            = "timeout"
	errTypeProcessing         = "processing_error"
)

type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorType string `json:"error_type,omitempty"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
	OCR     bool   `json:"ocr"`
}

// DetectResponse is returned by /detect.
type DetectResponse struct {
	Success    bool               `json:"success"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Quads      []detector.Contour `json:"quads"`
	DurationMs int64              `json:"duration_ms"`
	Error      string             `json:"error,omitempty"`
	ErrorType  string             `json:"error_type,omitempty"`
}

// RectifyResponse is returned by /rectify and by WebSocket rectify requests.
// PNG holds the base64-encoded rectified page.
type RectifyResponse struct {
	Success     bool              `json:"success"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Mode        rectify.Mode      `json:"mode"`
	Parallel    bool              `json:"parallel"`
	Fallback    bool              `json:"fallback"`
	AspectRatio float64           `json:"aspect_ratio"`
	Corners     *utils.FourPoints `json:"corners,omitempty"`
	PNG         string            `json:"png"`
}

// ImageResponse carries a single base64 PNG, as returned by /rotate and /edges.
type ImageResponse struct {
	Success bool   `json:"success"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Data    string `json:"data"`
}

// OCRResponse is returned by /ocr.
type OCRResponse struct {
	Success     bool                    `json:"success"`
	Found       bool                    `json:"found"`
	Text        *ocr.Text               `json:"text,omitempty"`
	Orientation *ocr.Orientation        `json:"orientation,omitempty"`
	Rectified   *pipeline.RectifiedPage `json:"rectified,omitempty"`
	Corners     *utils.FourPoints       `json:"corners,omitempty"`
}
