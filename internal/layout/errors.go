package layout

import (
	"errors"
	"fmt"
)

// ValidationError means a case does not have the one-primary-plus-images shape.
type ValidationError struct {
	PrimaryCount int
	ImageCount   int
	Message      string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: found %d primary documents and %d images", e.PrimaryCount, e.ImageCount)
}

// DecodeError means an image or document could not be opened or decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// LayoutError is a broken geometric contract: a non-positive dimension or a
// placement outside the canvas. It is never clamped away.
type LayoutError struct {
	Op     string
	Reason string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("layout error in %s: %s", e.Op, e.Reason)
}

// Layoutf builds a LayoutError.
func Layoutf(op, format string, args ...any) error {
	return &LayoutError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// Error kinds reported in run summaries.
const (
	KindValidation = "validation"
	KindDecode     = "decode"
	KindLayout     = "layout"
	KindInternal   = "internal"
)

// Classify maps err to one of the Kind* labels.
func Classify(err error) string {
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return KindValidation
	}
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return KindDecode
	}
	var layErr *LayoutError
	if errors.As(err, &layErr) {
		return KindLayout
	}
	return KindInternal
}
