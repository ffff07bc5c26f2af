package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ocrkit/ocrkit/pkg/constants"
	"github.com/ocrkit/ocrkit/pkg/interfaces"
	"github.com/ocrkit/ocrkit/pkg/logger"
	"github.com/ocrkit/ocrkit/pkg/types"
	"github.com/ocrkit/ocrkit/pkg/utils"
)

// KindForExtension maps a file extension to its processor kind. The mapping
// is pure and total over the supported set: the same extension always maps
// to the same kind, regardless of configuration.
func KindForExtension(ext string) (types.ProcessorKind, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))

	for _, e := range constants.SpreadsheetExtensions {
		if ext == e {
			return types.KindExcel, true
		}
	}
	for _, e := range constants.ImageExtensions {
		if ext == e {
			return types.KindOCR, true
		}
	}
	for _, group := range [][]string{
		constants.PDFExtensions,
		constants.OfficeExtensions,
		constants.TextExtensions,
		constants.EbookExtensions,
	} {
		for _, e := range group {
			if ext == e {
				return types.KindMarkdown, true
			}
		}
	}
	return "", false
}

// OCRKindForExtension maps a file extension to its processor kind for the
// OCR pipeline. Unlike the conversion mapping, PDFs route to OCR here: the
// pipeline rasterizes every input regardless of its text layer.
func OCRKindForExtension(ext string) (types.ProcessorKind, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))

	for _, e := range constants.OCRExtensions() {
		if ext == e {
			return types.KindOCR, true
		}
	}
	return "", false
}

// Factory selects a processor for each input file by extension. Processors
// are registered once during command setup; lookup afterwards is read-only
// and safe for concurrent workers.
type Factory struct {
	processors map[types.ProcessorKind]interfaces.Processor
	mapping    func(ext string) (types.ProcessorKind, bool)
	logger     *logger.Logger
}

var _ interfaces.ProcessorFactory = (*Factory)(nil)

// NewFactory creates an empty factory using the conversion kind mapping
func NewFactory(log *logger.Logger) *Factory {
	return &Factory{
		processors: make(map[types.ProcessorKind]interfaces.Processor),
		mapping:    KindForExtension,
		logger:     log,
	}
}

// NewOCRFactory creates an empty factory for the OCR pipeline, where PDFs
// and images all map to the OCR kind.
func NewOCRFactory(log *logger.Logger) *Factory {
	return &Factory{
		processors: make(map[types.ProcessorKind]interfaces.Processor),
		mapping:    OCRKindForExtension,
		logger:     log,
	}
}

// Register adds a processor for its kind, replacing any previous one
func (f *Factory) Register(p interfaces.Processor) {
	f.processors[p.Kind()] = p
	f.logger.Debug("Registered processor: %s", p.Kind())
}

// ProcessorFor returns the processor claiming the extension. Extensions that
// map to no kind, or to a kind with no registered processor, yield an
// unsupported-format error.
func (f *Factory) ProcessorFor(ext string) (interfaces.Processor, error) {
	kind, ok := f.mapping(ext)
	if !ok {
		return nil, utils.NewUnsupportedError(
			fmt.Sprintf("unsupported file format: .%s", strings.ToLower(strings.TrimPrefix(ext, "."))), nil)
	}

	processor, ok := f.processors[kind]
	if !ok {
		return nil, utils.NewUnsupportedError(
			fmt.Sprintf("no processor available for .%s files (%s)", ext, kind), nil)
	}

	f.logger.Debug("Selected %s processor for extension: %s", kind, ext)
	return processor, nil
}

// SupportedExtensions returns the sorted extensions handled by registered
// processors.
func (f *Factory) SupportedExtensions() []string {
	var exts []string

	candidates := append([]string{}, constants.ConversionExtensions()...)
	candidates = append(candidates, constants.ImageExtensions...)

	for _, ext := range candidates {
		kind, ok := f.mapping(ext)
		if !ok {
			continue
		}
		if _, registered := f.processors[kind]; registered {
			exts = append(exts, ext)
		}
	}

	sort.Strings(exts)
	return exts
}
