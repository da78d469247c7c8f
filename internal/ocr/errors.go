package ocr

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode is returned when the input bytes are not a recognizable image.
	ErrDecode = errors.New("image could not be decoded")

	// ErrEmptyImage is returned for an empty buffer or a zero-sized image.
	ErrEmptyImage = errors.New("image is empty")
)

// OCRError wraps errors with the operation that failed.
type OCRError struct {
	// Op is the operation that failed (e.g. "Decode", "Recognize").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %v: %s", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

func (e *OCRError) Unwrap() error {
	return e.Err
}

// NewOCRError creates a new OCRError with the specified operation and underlying error.
func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}
