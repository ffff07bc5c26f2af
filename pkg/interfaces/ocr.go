package interfaces

import (
	"context"
	"image"

	"github.com/ocrkit/ocrkit/pkg/types"
)

// Recognition is the outcome of running detection + recognition on one page
type Recognition struct {
	// Text is the recognized plain text
	Text string

	// HOCR is the page markup with word geometry, used for searchable
	// PDF assembly
	HOCR string
}

// OCREngine runs text detection + recognition over rasterized pages.
// The engine is loaded once per invocation and shared across all inputs of
// a batch; implementations must be safe for concurrent Recognize calls,
// serializing internally when the underlying library is not.
type OCREngine interface {
	// Name returns the engine name
	Name() string

	// Device returns the device inference actually runs on, after any
	// fallback from an unavailable GPU
	Device() types.Device

	// Recognize runs detection + recognition on a single page image
	Recognize(ctx context.Context, img image.Image) (Recognition, error)

	// Close releases engine resources
	Close() error
}
