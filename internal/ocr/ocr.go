// Package ocr defines the text-recognition collaborator that consumes
// rectified pages, a bounded worker pool around it, and orientation
// detection built on recognition confidence.
package ocr

import (
	"context"
	"errors"
	"image"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrUnavailable is returned when no recognition backend is compiled in.
var ErrUnavailable = errors.New("ocr: no recognition backend available (build with -tags tesseract)")

// LowConfidence is the default word confidence below which a word is flagged.
const LowConfidence = 0.6

// Recognizer turns a raster into text.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (Text, error)
}

// Word is one recognized token. Confidence is in [0,1].
type Word struct {
	Text          string          `json:"text"`
	Confidence    float64         `json:"confidence"`
	Box           image.Rectangle `json:"box"`
	LowConfidence bool            `json:"low_confidence"`
}

// Text is the recognition result for one image.
type Text struct {
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words,omitempty"`
}

// NewText builds a Text from words, flagging those under threshold and
// averaging their confidences. content may be empty, in which case the words
// are joined with spaces. All text is normalized to NFC.
func NewText(content string, words []Word, threshold float64) Text {
	t := Text{Content: norm.NFC.String(content), Words: words}
	var sum float64
	parts := make([]string, 0, len(words))
	for i := range t.Words {
		w := &t.Words[i]
		w.Text = norm.NFC.String(w.Text)
		w.LowConfidence = w.Confidence < threshold
		sum += w.Confidence
		parts = append(parts, w.Text)
	}
	if len(words) > 0 {
		t.Confidence = sum / float64(len(words))
	}
	if t.Content == "" {
		t.Content = strings.Join(parts, " ")
	}
	return t
}

// LowConfidenceWords returns the words flagged as low confidence.
func (t Text) LowConfidenceWords() []Word {
	var out []Word
	for _, w := range t.Words {
		if w.LowConfidence {
			out = append(out, w)
		}
	}
	return out
}
