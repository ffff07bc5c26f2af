package interfaces

import (
	"context"

	"github.com/ocrkit/ocrkit/pkg/types"
)

// Processor converts one input file end-to-end and reports the outcome.
// Implementations never propagate raw library failures: every run yields
// exactly one ProcessingResult, with errors normalized into it.
type Processor interface {
	// Kind returns the processor kind identifier
	Kind() types.ProcessorKind

	// Process converts a single file, writing output to the configured
	// output directory. The returned result is never nil.
	Process(ctx context.Context, inputFile string) *types.ProcessingResult
}

// ProcessorFactory selects a processor for a file extension
type ProcessorFactory interface {
	// ProcessorFor returns a processor claiming the extension, or an
	// unsupported-format error when none does
	ProcessorFor(ext string) (Processor, error)

	// SupportedExtensions returns every extension the factory claims
	SupportedExtensions() []string
}
