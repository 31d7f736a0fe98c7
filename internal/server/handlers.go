package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/pagescan/internal/detector"
	"github.com/MeKo-Tech/pagescan/internal/ocr"
	"github.com/MeKo-Tech/pagescan/internal/pipeline"
	"github.com/MeKo-Tech/pagescan/internal/rectify"
	"github.com/MeKo-Tech/pagescan/internal/utils"
	"github.com/MeKo-Tech/pagescan/internal/version"
)

const formatPNG = "png"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writePNG(w http.ResponseWriter, img image.Image) {
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		slog.Error("Failed to encode PNG response", "error", err)
	}
}

func encodeBase64PNG(img image.Image) (string, error) {
	data, err := utils.EncodePNG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// classify maps processing errors onto API errors.
func classify(err error) *apiError {
	var ae *apiError
	var rot *utils.DegenerateRotationError
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, context.DeadlineExceeded):
		return &apiError{Status: http.StatusGatewayTimeout, Type: errTypeTimeout, Msg: "processing timed out"}
	case errors.Is(err, context.Canceled):
		return &apiError{Status: http.StatusServiceUnavailable, Type: errTypeTimeout, Msg: "request cancelled"}
	case errors.As(err, &rot):
		return &apiError{Status: http.StatusBadRequest, Type: errTypeDegenerateRotation, Msg: err.Error()}
	case errors.Is(err, utils.ErrInvalidQuad):
		return &apiError{Status: http.StatusBadRequest, Type: errTypeInvalidPoints, Msg: err.Error()}
	case errors.Is(err, rectify.ErrDegenerateOutput),
		errors.Is(err, rectify.ErrDegenerateCorrespondence),
		errors.Is(err, rectify.ErrOutputTooLarge):
		return &apiError{Status: http.StatusUnprocessableEntity, Type: errTypeDegenerateQuad, Msg: err.Error()}
	case errors.Is(err, ocr.ErrUnavailable), errors.Is(err, ocr.ErrPoolClosed):
		return &apiError{Status: http.StatusServiceUnavailable, Type: errTypeOCRUnavailable, Msg: err.Error()}
	default:
		return &apiError{Status: http.StatusInternalServerError, Type: errTypeProcessing, Msg: err.Error()}
	}
}

// fail writes err as a structured error response and counts it.
func (s *Server) fail(w http.ResponseWriter, operation string, err error) {
	ae := classify(err)
	pageRequestsTotal.WithLabelValues(operation, "error").Inc()
	if ae.Status >= http.StatusInternalServerError {
		slog.Error("Request failed", "operation", operation, "error", err)
	} else {
		slog.Debug("Request rejected", "operation", operation, "error_type", ae.Type, "error", err)
	}
	writeJSON(w, ae.Status, errorResponse{Error: ae.Msg, ErrorType: ae.Type})
}

func (s *Server) allowPost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodPost {
		return true
	}
	w.Header().Set("Allow", http.MethodPost)
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed", ErrorType: errTypeInvalidRequest})
	return false
}

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed", ErrorType: errTypeInvalidRequest})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
		OCR:     s.ocrPipeline != nil,
	})
}

// detectHandler returns the candidate page quadrilaterals, largest first.
func (s *Server) detectHandler(w http.ResponseWriter, r *http.Request) {
	if !s.allowPost(w, r) {
		return
	}
	req, err := s.readImageRequest(w, r)
	if err != nil {
		s.fail(w, "detect", err)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	resp, err := s.detect(ctx, req.Image)
	if err != nil {
		s.fail(w, "detect", err)
		return
	}
	status := "success"
	if !resp.Success {
		status = "not_found"
	}
	pageRequestsTotal.WithLabelValues("detect", status).Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) detect(ctx context.Context, img image.Image) (*DetectResponse, error) {
	start := time.Now()
	det, err := s.pipeline.Detector.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	stageDuration.WithLabelValues(pipeline.StageDetect).Observe(time.Since(start).Seconds())
	quadsDetected.Observe(float64(len(det.Quads)))

	resp := &DetectResponse{
		Success:    det.Found,
		Width:      det.Width,
		Height:     det.Height,
		Quads:      det.Quads,
		DurationMs: det.Duration.Milliseconds(),
	}
	if resp.Quads == nil {
		resp.Quads = []detector.Contour{}
	}
	if !det.Found {
		resp.Error = "no quadrilateral found"
		resp.ErrorType = errTypeNoQuadrilateral
	}
	return resp, nil
}

// rectifyHandler rectifies the page bounded by the supplied points, or by the
// best detected quadrilateral when none are given.
func (s *Server) rectifyHandler(w http.ResponseWriter, r *http.Request) {
	if !s.allowPost(w, r) {
		return
	}
	req, err := s.readImageRequest(w, r)
	if err != nil {
		s.fail(w, "rectify", err)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var res *pipeline.PageResult
	if req.Corners != nil {
		res, err = s.pipeline.ProcessImageWithCorners(ctx, req.Image, *req.Corners)
	} else {
		res, err = s.pipeline.ProcessImage(ctx, req.Image)
	}
	if err != nil {
		s.fail(w, "rectify", err)
		return
	}
	recordPage(res)

	if res.Rectified == nil {
		pageRequestsTotal.WithLabelValues("rectify", "not_found").Inc()
		writeJSON(w, http.StatusOK, errorResponse{Error: "no quadrilateral found", ErrorType: errTypeNoQuadrilateral})
		return
	}
	pageRequestsTotal.WithLabelValues("rectify", "success").Inc()

	if req.Format == formatPNG {
		w.Header().Set("X-Rectify-Mode", string(res.Rectified.Mode))
		w.Header().Set("X-Rectify-Aspect-Ratio", strconv.FormatFloat(res.Rectified.AspectRatio, 'f', 4, 64))
		writePNG(w, res.Image)
		return
	}
	resp, err := newRectifyResponse(res)
	if err != nil {
		s.fail(w, "rectify", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func newRectifyResponse(res *pipeline.PageResult) (*RectifyResponse, error) {
	data, err := encodeBase64PNG(res.Image)
	if err != nil {
		return nil, err
	}
	rp := res.Rectified
	return &RectifyResponse{
		Success:     true,
		Width:       rp.Width,
		Height:      rp.Height,
		Mode:        rp.Mode,
		Parallel:    rp.Parallel,
		Fallback:    rp.Fallback,
		AspectRatio: rp.AspectRatio,
		Corners:     res.Corners,
		PNG:         data,
	}, nil
}

// rotateHandler rotates the upload clockwise by 90, 180 or 270 degrees.
func (s *Server) rotateHandler(w http.ResponseWriter, r *http.Request) {
	if !s.allowPost(w, r) {
		return
	}
	req, err := s.readImageRequest(w, r)
	if err != nil {
		s.fail(w, "rotate", err)
		return
	}
	out, err := utils.Rotate(req.Image, req.Degrees)
	if err != nil {
		s.fail(w, "rotate", err)
		return
	}
	pageRequestsTotal.WithLabelValues("rotate", "success").Inc()
	s.writeImage(w, req.Format, out)
}

// edgesHandler returns the binary edge map used for contour tracing.
func (s *Server) edgesHandler(w http.ResponseWriter, r *http.Request) {
	if !s.allowPost(w, r) {
		return
	}
	req, err := s.readImageRequest(w, r)
	if err != nil {
		s.fail(w, "edges", err)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	edges, err := s.pipeline.Detector.Edges(ctx, req.Image)
	if err != nil {
		s.fail(w, "edges", err)
		return
	}
	pageRequestsTotal.WithLabelValues("edges", "success").Inc()
	s.writeImage(w, req.Format, edges)
}

func (s *Server) writeImage(w http.ResponseWriter, format string, img image.Image) {
	if format == formatPNG {
		writePNG(w, img)
		return
	}
	data, err := encodeBase64PNG(img)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), ErrorType: errTypeProcessing})
		return
	}
	b := img.Bounds()
	writeJSON(w, http.StatusOK, ImageResponse{Success: true, Width: b.Dx(), Height: b.Dy(), Data: data})
}

// ocrHandler rectifies the page and recognizes its text. Without a page the
// whole frame is recognized.
func (s *Server) ocrHandler(w http.ResponseWriter, r *http.Request) {
	if !s.allowPost(w, r) {
		return
	}
	if s.ocrPipeline == nil {
		s.fail(w, "ocr", ocr.ErrUnavailable)
		return
	}
	req, err := s.readImageRequest(w, r)
	if err != nil {
		s.fail(w, "ocr", err)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	ocrInFlight.Inc()
	var res *pipeline.PageResult
	if req.Corners != nil {
		res, err = s.ocrPipeline.ProcessImageWithCorners(ctx, req.Image, *req.Corners)
	} else {
		res, err = s.ocrPipeline.ProcessImage(ctx, req.Image)
	}
	ocrInFlight.Dec()
	if err != nil {
		s.fail(w, "ocr", err)
		return
	}
	recordPage(res)
	pageRequestsTotal.WithLabelValues("ocr", "success").Inc()

	writeJSON(w, http.StatusOK, OCRResponse{
		Success:     true,
		Found:       res.Found,
		Text:        res.Text,
		Orientation: res.Orientation,
		Rectified:   res.Rectified,
		Corners:     res.Corners,
	})
}
