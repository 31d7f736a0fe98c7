package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// Orientation is the result of DetectOrientation.
type Orientation struct {
	// Degrees is the clockwise rotation applied to the input, 0 when unchanged.
	Degrees    int     `json:"degrees"`
	Confidence float64 `json:"confidence"`
	// Gain is the best candidate's confidence minus the upright confidence.
	Gain  float64     `json:"gain"`
	Image image.Image `json:"-"`
}

var candidateAngles = [...]int{90, 180, 270}

// DetectOrientation recognizes img upright and at each quarter turn and
// rotates it to the best candidate when that beats the upright confidence by
// more than threshold.
func DetectOrientation(ctx context.Context, rec Recognizer, img image.Image, threshold float64) (Orientation, error) {
	base, err := rec.Recognize(ctx, img)
	if err != nil {
		return Orientation{}, fmt.Errorf("recognize upright: %w", err)
	}
	best := Orientation{Confidence: base.Confidence, Image: img}
	var bestImg image.Image = img

	for _, deg := range candidateAngles {
		if err := ctx.Err(); err != nil {
			return Orientation{}, err
		}
		rotated, err := utils.Rotate(img, deg)
		if err != nil {
			return Orientation{}, err
		}
		t, err := rec.Recognize(ctx, rotated)
		if err != nil {
			return Orientation{}, fmt.Errorf("recognize at %d degrees: %w", deg, err)
		}
		if t.Confidence > best.Confidence {
			best = Orientation{Degrees: deg, Confidence: t.Confidence}
			bestImg = rotated
		}
	}

	best.Gain = best.Confidence - base.Confidence
	if best.Degrees == 0 || best.Gain <= threshold {
		slog.Debug("Keeping upright orientation", "best_degrees", best.Degrees, "gain", best.Gain)
		return Orientation{Confidence: base.Confidence, Gain: best.Gain, Image: img}, nil
	}
	best.Image = bestImg
	slog.Debug("Rotating page", "degrees", best.Degrees, "gain", best.Gain)
	return best, nil
}
