package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gen2brain/go-fitz"

	"github.com/ocrkit/ocrkit/pkg/config"
	"github.com/ocrkit/ocrkit/pkg/constants"
	"github.com/ocrkit/ocrkit/pkg/interfaces"
	"github.com/ocrkit/ocrkit/pkg/logger"
	"github.com/ocrkit/ocrkit/pkg/types"
	"github.com/ocrkit/ocrkit/pkg/utils"
)

// Processor runs the OCR pipeline over PDFs and images: rasterize pages,
// recognize each one through the shared engine, and assemble the page texts
// into a markdown document.
type Processor struct {
	config *config.Config
	logger *logger.Logger
	engine interfaces.OCREngine
	pages  []int // parsed page selection, nil selects all pages
}

var _ interfaces.Processor = (*Processor)(nil)

// NewProcessor creates an OCR processor bound to a loaded engine. The page
// selection is parsed once up front so a bad selection aborts before any
// file is touched.
func NewProcessor(cfg *config.Config, log *logger.Logger, engine interfaces.OCREngine) (*Processor, error) {
	pages, err := ParsePages(cfg.Pages)
	if err != nil {
		return nil, err
	}
	return &Processor{
		config: cfg,
		logger: log,
		engine: engine,
		pages:  pages,
	}, nil
}

// Kind returns the processor kind identifier
func (p *Processor) Kind() types.ProcessorKind {
	return types.KindOCR
}

// Process runs OCR on one file and writes the markdown output
func (p *Processor) Process(ctx context.Context, inputFile string) *types.ProcessingResult {
	start := time.Now()
	result := &types.ProcessingResult{
		Source:    inputFile,
		Processor: types.KindOCR,
		Device:    p.engine.Device(),
	}

	markdown, err := p.extract(ctx, inputFile)
	if err == nil {
		output := utils.OutputFilePath(inputFile, p.config.OutputDir)
		err = writeMarkdown(output, markdown)
		result.Output = output
	}

	result.Duration = time.Since(start)
	if err != nil {
		result.Status = types.StatusFailure
		result.Error = err.Error()
		result.TimedOut = utils.GetErrorType(err) == utils.ErrorTypeTimeout
		result.Output = ""
		return result
	}

	result.Status = types.StatusSuccess
	return result
}

// extract produces the markdown text for one input file
func (p *Processor) extract(ctx context.Context, inputFile string) (string, error) {
	ext := utils.FileExtension(inputFile)

	for _, e := range constants.ImageExtensions {
		if ext == e {
			return p.extractImage(ctx, inputFile)
		}
	}
	return p.extractPDF(ctx, inputFile)
}

// extractImage recognizes a single standalone image
func (p *Processor) extractImage(ctx context.Context, inputFile string) (string, error) {
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return "", utils.NewIOError(fmt.Sprintf("failed to read image: %s", inputFile), err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", utils.NewConversionError(fmt.Sprintf("failed to decode image: %s", inputFile), err)
	}

	recognition, err := p.engine.Recognize(ctx, img)
	if err != nil {
		return "", wrapRecognizeError(err, inputFile)
	}

	return recognition.Text + "\n", nil
}

// extractPDF rasterizes the selected pages and recognizes them in batches.
// The batch size bounds how many page rasters are held in memory at once.
func (p *Processor) extractPDF(ctx context.Context, inputFile string) (string, error) {
	doc, err := fitz.New(inputFile)
	if err != nil {
		return "", utils.NewConversionError(fmt.Sprintf("failed to open PDF: %s", inputFile), err)
	}
	defer doc.Close()

	selected := SelectPages(p.pages, doc.NumPage())
	if len(selected) == 0 {
		return "", utils.NewValidationError(
			fmt.Sprintf("page selection matches no pages in %s (%d pages)", inputFile, doc.NumPage()), nil)
	}

	dpi := p.dpi()
	batchSize := p.config.BatchSize
	if batchSize < 1 {
		batchSize = constants.DefaultBatchSize
	}

	var sections []string
	for _, span := range batchSpans(len(selected), batchSize) {
		p.logger.Progress("🔍", "Recognizing pages %d-%d of %d from %s",
			span[0]+1, span[1], len(selected), filepath.Base(inputFile))

		for _, pageIdx := range selected[span[0]:span[1]] {
			if err := ctx.Err(); err != nil {
				return "", utils.NewTimeoutError(
					fmt.Sprintf("ocr cancelled at page %d of %s", pageIdx+1, inputFile), err)
			}

			img, err := doc.ImageDPI(pageIdx, dpi)
			if err != nil {
				return "", utils.NewConversionError(
					fmt.Sprintf("failed to rasterize page %d of %s", pageIdx+1, inputFile), err)
			}

			recognition, err := p.engine.Recognize(ctx, img)
			if err != nil {
				return "", wrapRecognizeError(err, inputFile)
			}

			sections = append(sections,
				fmt.Sprintf("## Page %d\n\n%s", pageIdx+1, recognition.Text))
		}
	}

	return strings.Join(sections, "\n\n") + "\n", nil
}

// dpi returns the raster resolution for the configured mode
func (p *Processor) dpi() float64 {
	if p.config.FastMode {
		return constants.FastModeDPI
	}
	return constants.DefaultImageDPI
}

// wrapRecognizeError keeps timeout classification when the engine call was
// cut short by the context.
func wrapRecognizeError(err error, inputFile string) error {
	if utils.GetErrorType(err) == utils.ErrorTypeTimeout {
		return utils.NewTimeoutError(fmt.Sprintf("ocr timed out on %s", inputFile), err)
	}
	return utils.WrapError(err, utils.ErrorTypeOCR, fmt.Sprintf("recognition failed on %s", inputFile))
}

// writeMarkdown writes the output file, creating the directory first
func writeMarkdown(output, markdown string) error {
	if err := utils.EnsureDir(filepath.Dir(output)); err != nil {
		return utils.NewIOError("failed to create output directory", err)
	}
	if err := os.WriteFile(output, []byte(markdown), constants.DefaultFilePermission); err != nil {
		return utils.NewIOError(fmt.Sprintf("failed to write output: %s", output), err)
	}
	return nil
}
