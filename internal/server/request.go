package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// apiError is an error with the HTTP status and error_type to report.
type apiError struct {
	Status int
	Type   string
	Msg    string
}

func (e *apiError) Error() string { return e.Msg }

func badRequest(errType, format string, args ...any) *apiError {
	return &apiError{Status: http.StatusBadRequest, Type: errType, Msg: fmt.Sprintf(format, args...)}
}

// imageRequest is an upload normalized from multipart or JSON.
type imageRequest struct {
	Image   image.Image
	Corners *utils.FourPoints
	Degrees int
	Format  string
}

type jsonImageRequest struct {
	Image   string          `json:"image"`
	Points  json.RawMessage `json:"points,omitempty"`
	Degrees int             `json:"degrees,omitempty"`
	Format  string          `json:"format,omitempty"`
}

// readImageRequest parses a multipart upload (field "image" or "file") or a
// JSON body with a base64 image.
func (s *Server) readImageRequest(w http.ResponseWriter, r *http.Request) (*imageRequest, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		req *imageRequest
		err error
	)
	if mediaType == "application/json" {
		req, err = readJSONImageRequest(r.Body)
	} else {
		req, err = readMultipartImageRequest(r, limit)
	}
	if err != nil {
		return nil, err
	}
	if req.Format == "" {
		req.Format = r.URL.Query().Get("format")
	}
	if err := utils.ValidateImageConstraints(req.Image, utils.DefaultImageConstraints()); err != nil {
		return nil, badRequest(errTypeInvalidImage, "%v", err)
	}
	return req, nil
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func readMultipartImageRequest(r *http.Request, limit int64) (*imageRequest, error) {
	if err := r.ParseMultipartForm(limit); err != nil {
		if tooLarge(err) {
			return nil, &apiError{Status: http.StatusRequestEntityTooLarge, Type: errTypeTooLarge, Msg: "file too large"}
		}
		return nil, badRequest(errTypeInvalidRequest, "failed to parse form data: %v", err)
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		file, header, err = r.FormFile("file")
	}
	if err != nil {
		return nil, badRequest(errTypeInvalidRequest, "no image file provided")
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, badRequest(errTypeInvalidRequest, "failed to read image data: %v", err)
	}
	img, _, err := utils.DecodeImageBytes(data)
	if err != nil {
		return nil, badRequest(errTypeInvalidImage, "invalid image format: %v", err)
	}

	req := &imageRequest{Image: img, Format: r.FormValue("format")}
	if pts := strings.TrimSpace(r.FormValue("points")); pts != "" {
		fp, err := utils.ParseFourPoints(pts)
		if err != nil {
			return nil, badRequest(errTypeInvalidPoints, "invalid points: %v", err)
		}
		req.Corners = &fp
	}
	if deg := r.FormValue("degrees"); deg != "" {
		req.Degrees, err = strconv.Atoi(deg)
		if err != nil {
			return nil, badRequest(errTypeInvalidRequest, "invalid degrees %q", deg)
		}
	}
	return req, nil
}

func readJSONImageRequest(body io.Reader) (*imageRequest, error) {
	var in jsonImageRequest
	if err := json.NewDecoder(body).Decode(&in); err != nil {
		if tooLarge(err) {
			return nil, &apiError{Status: http.StatusRequestEntityTooLarge, Type: errTypeTooLarge, Msg: "request too large"}
		}
		return nil, badRequest(errTypeInvalidRequest, "invalid JSON body: %v", err)
	}
	img, err := decodeBase64Image(in.Image)
	if err != nil {
		return nil, err
	}
	corners, err := parsePointsJSON(in.Points)
	if err != nil {
		return nil, badRequest(errTypeInvalidPoints, "invalid points: %v", err)
	}
	return &imageRequest{Image: img, Corners: corners, Degrees: in.Degrees, Format: in.Format}, nil
}

// decodeBase64Image decodes a base64 image, with or without a data URL prefix.
func decodeBase64Image(s string) (image.Image, error) {
	if s == "" {
		return nil, badRequest(errTypeInvalidRequest, "no image data provided")
	}
	if strings.HasPrefix(s, "data:") {
		if _, payload, ok := strings.Cut(s, ","); ok {
			s = payload
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, badRequest(errTypeInvalidImage, "invalid base64 image: %v", err)
	}
	uploadSizeBytes.Observe(float64(len(data)))
	img, _, err := utils.DecodeImageBytes(data)
	if err != nil {
		return nil, badRequest(errTypeInvalidImage, "invalid image format: %v", err)
	}
	return img, nil
}

// parsePointsJSON accepts "x,y,...", [[x,y],...] or [{"x":..,"y":..},...].
func parsePointsJSON(raw json.RawMessage) (*utils.FourPoints, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		fp, err := utils.ParseFourPoints(s)
		if err != nil {
			return nil, err
		}
		return &fp, nil
	}

	var pts []utils.Point
	var pairs [][]float64
	if json.Unmarshal(raw, &pairs) == nil {
		for i, p := range pairs {
			if len(p) != 2 {
				return nil, fmt.Errorf("point %d: expected [x, y], got %d values", i+1, len(p))
			}
			pts = append(pts, utils.Point{X: p[0], Y: p[1]})
		}
	} else if err := json.Unmarshal(raw, &pts); err != nil {
		return nil, err
	}

	fp, err := utils.NewFourPoints(pts)
	if err != nil {
		return nil, err
	}
	return &fp, nil
}
