package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gardar/ocrchestra/pkg/pdfocr"
	"github.com/gen2brain/go-fitz"

	"github.com/ocrkit/ocrkit/pkg/config"
	"github.com/ocrkit/ocrkit/pkg/constants"
	"github.com/ocrkit/ocrkit/pkg/interfaces"
	"github.com/ocrkit/ocrkit/pkg/logger"
	"github.com/ocrkit/ocrkit/pkg/utils"
)

// optimizeProfile controls how page images are recompressed for one
// optimization level. Level 0 keeps the original PDF bytes untouched and
// only adds the text layer.
type optimizeProfile struct {
	dpi         float64
	jpegQuality int
	bitonal     bool
}

var optimizeProfiles = map[int]optimizeProfile{
	1: {dpi: 300, jpegQuality: 85},
	2: {dpi: 200, jpegQuality: 75, bitonal: true},
	3: {dpi: 150, jpegQuality: 60, bitonal: true},
}

// SearchableBuilder overlays an invisible OCR text layer on a PDF. Level 0
// applies the layer to the original document; levels 1-3 rebuild the
// document from recompressed page images, trading fidelity for size.
type SearchableBuilder struct {
	config *config.Config
	logger *logger.Logger
	engine interfaces.OCREngine
}

// NewSearchableBuilder creates a searchable PDF builder
func NewSearchableBuilder(cfg *config.Config, log *logger.Logger, engine interfaces.OCREngine) *SearchableBuilder {
	return &SearchableBuilder{
		config: cfg,
		logger: log,
		engine: engine,
	}
}

// Build recognizes every page of inputPDF and writes a searchable copy to
// outputPDF.
func (b *SearchableBuilder) Build(ctx context.Context, inputPDF, outputPDF string) error {
	pdfBytes, err := os.ReadFile(inputPDF)
	if err != nil {
		return utils.NewIOError(fmt.Sprintf("failed to read PDF: %s", inputPDF), err)
	}

	doc, err := fitz.NewFromMemory(pdfBytes)
	if err != nil {
		return utils.NewConversionError(fmt.Sprintf("failed to open PDF: %s", inputPDF), err)
	}
	defer doc.Close()

	level := b.config.OptimizeLevel
	profile, rebuild := optimizeProfiles[level]
	if !rebuild {
		// Level 0 still needs rasters for recognition, at full resolution
		profile = optimizeProfile{dpi: constants.DefaultImageDPI}
	}

	pageCount := doc.NumPage()
	b.logger.ProgressAlways("🔍", "Recognizing %d pages of %s (optimize level %d, device %s)",
		pageCount, filepath.Base(inputPDF), level, b.engine.Device())

	batchSize := b.config.BatchSize
	if batchSize < 1 {
		batchSize = constants.DefaultBatchSize
	}

	var hocrPages []string
	var pageImages [][]byte

	for _, span := range batchSpans(pageCount, batchSize) {
		b.logger.Progress("🔍", "Recognizing pages %d-%d of %d from %s",
			span[0]+1, span[1], pageCount, filepath.Base(inputPDF))

		for pageIdx := span[0]; pageIdx < span[1]; pageIdx++ {
			if err := ctx.Err(); err != nil {
				return utils.NewTimeoutError(
					fmt.Sprintf("cancelled at page %d of %s", pageIdx+1, inputPDF), err)
			}

			img, err := doc.ImageDPI(pageIdx, profile.dpi)
			if err != nil {
				return utils.NewConversionError(
					fmt.Sprintf("failed to rasterize page %d", pageIdx+1), err)
			}

			recognition, err := b.engine.Recognize(ctx, img)
			if err != nil {
				return wrapRecognizeError(err, inputPDF)
			}
			hocrPages = append(hocrPages, recognition.HOCR)

			if rebuild {
				encoded, err := b.encodePage(img, profile)
				if err != nil {
					return err
				}
				pageImages = append(pageImages, encoded)
			}
		}
	}

	hocr := assembleHOCR(hocrPages)

	ocrConfig := pdfocr.OCRConfig{
		StartPage:   1,
		Font:        pdfocr.DefaultFont,
		LogWarnings: true,
		LayerName:   "OCR Text",
		Logger:      &logWriter{logger: b.logger},
	}

	var outBytes []byte
	if rebuild {
		outBytes, err = pdfocr.AssembleWithOCR(hocr, pageImages, ocrConfig)
	} else {
		outBytes, err = pdfocr.ApplyOCR(pdfBytes, hocr, ocrConfig)
	}
	if err != nil {
		return utils.NewConversionError(
			fmt.Sprintf("failed to build searchable PDF from %s", inputPDF), err)
	}

	if err := utils.EnsureDir(filepath.Dir(outputPDF)); err != nil {
		return utils.NewIOError("failed to create output directory", err)
	}
	if err := os.WriteFile(outputPDF, outBytes, constants.DefaultFilePermission); err != nil {
		return utils.NewIOError(fmt.Sprintf("failed to write PDF: %s", outputPDF), err)
	}

	b.logger.ProgressAlways("✅", "Searchable PDF saved to: %s", outputPDF)
	return nil
}

// encodePage recompresses one page raster per the optimization profile.
// Mostly-bitonal pages are thresholded to 1-bit and stored lossless unless
// bitonal recompression is disabled.
func (b *SearchableBuilder) encodePage(img image.Image, profile optimizeProfile) ([]byte, error) {
	var buf bytes.Buffer

	if profile.bitonal && !b.config.NoJBIG2 && isMostlyBitonal(img) {
		if err := png.Encode(&buf, thresholdImage(img)); err != nil {
			return nil, utils.NewConversionError("failed to encode bitonal page", err)
		}
		return buf.Bytes(), nil
	}

	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: profile.jpegQuality}); err != nil {
		return nil, utils.NewConversionError("failed to encode page image", err)
	}
	return buf.Bytes(), nil
}

// isMostlyBitonal samples the page and reports whether nearly all pixels
// are close to pure black or pure white.
func isMostlyBitonal(img image.Image) bool {
	bounds := img.Bounds()
	step := bounds.Dx() / 64
	if step < 1 {
		step = 1
	}

	var sampled, extreme int
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			gray := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			sampled++
			if gray.Y < 32 || gray.Y > 223 {
				extreme++
			}
		}
	}

	return sampled > 0 && float64(extreme)/float64(sampled) > 0.95
}

// thresholdImage converts a page raster to 1-bit black and white
func thresholdImage(img image.Image) image.Image {
	bounds := img.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if gray.Y < 128 {
				out.SetGray(x, y, color.Gray{Y: 0})
			} else {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// assembleHOCR wraps per-page hOCR fragments into one document. Fragments
// that already carry a full document skeleton are reduced to their page
// divs first.
func assembleHOCR(pages []string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
 <head>
  <title></title>
  <meta http-equiv="Content-Type" content="text/html;charset=utf-8"/>
  <meta name="ocr-system" content="tesseract"/>
  <meta name="ocr-capabilities" content="ocr_page ocr_carea ocr_par ocr_line ocrx_word"/>
 </head>
 <body>
`)
	for i, page := range pages {
		sb.WriteString(renumberPage(extractPageDiv(page), i+1))
		sb.WriteString("\n")
	}
	sb.WriteString(" </body>\n</html>\n")
	return sb.String()
}

// extractPageDiv returns the ocr_page div from an hOCR fragment
func extractPageDiv(hocr string) string {
	start := strings.Index(hocr, `<div class='ocr_page'`)
	if start < 0 {
		start = strings.Index(hocr, `<div class="ocr_page"`)
	}
	if start < 0 {
		return hocr
	}
	end := strings.LastIndex(hocr, "</div>")
	if end < start {
		return hocr[start:]
	}
	return hocr[start : end+len("</div>")]
}

// renumberPage rewrites the page id so ids stay unique across the document
func renumberPage(pageDiv string, pageNum int) string {
	for _, quoted := range []string{"id='page_1'", `id="page_1"`} {
		if strings.Contains(pageDiv, quoted) {
			return strings.Replace(pageDiv, "page_1", fmt.Sprintf("page_%d", pageNum), 1)
		}
	}
	return pageDiv
}

// logWriter adapts the leveled logger to the io.Writer the PDF layer
// library logs through.
type logWriter struct {
	logger *logger.Logger
}

func (w *logWriter) Write(p []byte) (int, error) {
	message := strings.TrimSpace(string(p))
	if message != "" {
		w.logger.Debug("pdfocr: %s", message)
	}
	return len(p), nil
}
