//go:build tesseract

package ocr

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// BackendName identifies the compiled-in recognition backend.
const BackendName = "tesseract"

// Tesseract recognizes text with one gosseract client. A client is not safe
// for concurrent use, so callers share instances through a Pool.
type Tesseract struct {
	mu        sync.Mutex
	client    *gosseract.Client
	threshold float64
}

// NewRecognizer creates a Tesseract recognizer.
func NewRecognizer(cfg Config) (Recognizer, error) {
	client := gosseract.NewClient()
	if cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	lang := cfg.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	if err := client.SetLanguage(lang); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	return &Tesseract{client: client, threshold: cfg.LowConfidence}, nil
}

// Recognize implements Recognizer.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (Text, error) {
	if err := ctx.Err(); err != nil {
		return Text{}, err
	}
	data, err := utils.EncodePNG(img)
	if err != nil {
		return Text{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.client.SetImageFromBytes(data); err != nil {
		return Text{}, fmt.Errorf("set image: %w", err)
	}
	content, err := t.client.Text()
	if err != nil {
		return Text{}, fmt.Errorf("recognize: %w", err)
	}
	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return NewText(content, nil, t.threshold), nil
	}
	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		if b.Word == "" {
			continue
		}
		words = append(words, Word{Text: b.Word, Confidence: b.Confidence / 100, Box: b.Box})
	}
	return NewText(content, words, t.threshold), nil
}

// Close releases the underlying Tesseract API.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
