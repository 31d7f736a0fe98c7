//go:build !tesseract

package ocr

// BackendName identifies the compiled-in recognition backend.
const BackendName = "none"

// NewRecognizer creates a recognizer for the compiled-in backend.
func NewRecognizer(Config) (Recognizer, error) {
	return nil, ErrUnavailable
}
