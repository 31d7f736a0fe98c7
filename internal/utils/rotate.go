package utils

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// DegenerateRotationError is returned by Rotate for any angle other than
// 90, 180 or 270 degrees.
type DegenerateRotationError struct {
	Degrees int
}

func (e *DegenerateRotationError) Error() string {
	return fmt.Sprintf("image processing error in rotate: unsupported angle %d (want 90, 180 or 270)", e.Degrees)
}

// Rotate rotates img clockwise by degrees, which must be 90, 180 or 270.
func Rotate(img image.Image, degrees int) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "rotate", Err: errNilImage}
	}
	// imaging rotates counter-clockwise
	switch degrees {
	case 90:
		return imaging.Rotate270(img), nil
	case 180:
		return imaging.Rotate180(img), nil
	case 270:
		return imaging.Rotate90(img), nil
	default:
		return nil, &DegenerateRotationError{Degrees: degrees}
	}
}
