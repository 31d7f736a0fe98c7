package ocr

import (
	"context"
	"image"
	"sync/atomic"
)

// fakeRecognizer scores an image by the grey level of its top-left pixel.
type fakeRecognizer struct {
	scores map[uint8]float64
	calls  atomic.Int32
	closed atomic.Bool
	err    error
}

func (f *fakeRecognizer) Recognize(_ context.Context, img image.Image) (Text, error) {
	f.calls.Add(1)
	if f.err != nil {
		return Text{}, f.err
	}
	b := img.Bounds()
	r, _, _, _ := img.At(b.Min.X, b.Min.Y).RGBA()
	conf := f.scores[uint8(r>>8)]
	return NewText("", []Word{{Text: "page", Confidence: conf}}, LowConfidence), nil
}

func (f *fakeRecognizer) Close() error {
	f.closed.Store(true)
	return nil
}
