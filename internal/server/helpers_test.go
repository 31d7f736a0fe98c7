package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pagescan/internal/ocr"
	"github.com/MeKo-Tech/pagescan/internal/pipeline"
	"github.com/MeKo-Tech/pagescan/internal/testutil"
)

type stubRecognizer struct{ text string }

func (s stubRecognizer) Recognize(context.Context, image.Image) (ocr.Text, error) {
	return ocr.NewText(s.text, []ocr.Word{{Text: s.text, Confidence: 0.8}}, ocr.LowConfidence), nil
}

func testConfig() Config {
	return Config{
		CORSOrigin:  "*",
		MaxUploadMB: 5,
		TimeoutSec:  10,
		Pipeline:    pipeline.DefaultConfig(),
	}
}

func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newStubPool(t *testing.T, text string) *ocr.Pool {
	t.Helper()
	pool, err := ocr.NewPool(1, func() (ocr.Recognizer, error) { return stubRecognizer{text: text}, nil })
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func pageImage() *image.Gray {
	return testutil.WhiteRectangle(200, 200, image.Rect(40, 40, 160, 160))
}

func blankImage() *image.Gray {
	return image.NewGray(image.Rect(0, 0, 100, 100))
}

func multipartRequest(t *testing.T, path, field string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if data != nil {
		fw, err := mw.CreateFormFile(field, "page.png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func imageUpload(t *testing.T, path string, img image.Image, fields map[string]string) *http.Request {
	t.Helper()
	return multipartRequest(t, path, "image", testutil.EncodePNG(t, img), fields)
}

func jsonRequest(t *testing.T, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func base64PNG(t *testing.T, img image.Image) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(testutil.EncodePNG(t, img))
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func decodePNG(t *testing.T, b64 string) image.Image {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}
