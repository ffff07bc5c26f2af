package processors

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ocrkit/ocrkit/pkg/config"
	"github.com/ocrkit/ocrkit/pkg/constants"
	"github.com/ocrkit/ocrkit/pkg/interfaces"
	"github.com/ocrkit/ocrkit/pkg/logger"
	"github.com/ocrkit/ocrkit/pkg/types"
	"github.com/ocrkit/ocrkit/pkg/utils"
)

// dataImagePattern matches inline base64 images embedded by the PDF page
// renderer. They bloat the markdown without adding convertible content.
var dataImagePattern = regexp.MustCompile(`!\[\]\(data:image/[^)]+\)`)

// mhtmlBodyPattern locates the text/html part inside an MHTML envelope
var mhtmlBodyPattern = regexp.MustCompile(`(?is)content-type:\s*text/html[^\r\n]*\r?\n\r?\n(.*?)(?:\r?\n--|$)`)

// MarkdownProcessor converts documents to markdown without OCR: PDFs with a
// text layer, HTML and plain-text formats natively, and office formats by
// shelling out to pandoc or LibreOffice.
type MarkdownProcessor struct {
	config      *config.Config
	logger      *logger.Logger
	temp        *utils.TempManager
	pandocPath  string
	sofficePath string
}

var _ interfaces.Processor = (*MarkdownProcessor)(nil)

// NewMarkdownProcessor creates a markdown processor. External tool paths are
// resolved once up front; formats whose tool is missing fail per-file.
func NewMarkdownProcessor(cfg *config.Config, log *logger.Logger, tm *utils.TempManager) *MarkdownProcessor {
	platform := constants.GetPlatformConfig()

	pandocPath := cfg.PandocPath
	if pandocPath == "" {
		pandocPath = utils.FindTool(platform.PandocPaths)
	}
	sofficePath := cfg.SofficePath
	if sofficePath == "" {
		sofficePath = utils.FindTool(platform.SofficePaths)
	}

	if pandocPath == "" {
		log.Warn("pandoc not found, docx/odt/rtf/epub conversion unavailable")
	}
	if sofficePath == "" {
		log.Warn("soffice not found, doc/ppt/pptx/odp conversion unavailable")
	}

	return &MarkdownProcessor{
		config:      cfg,
		logger:      log,
		temp:        tm,
		pandocPath:  pandocPath,
		sofficePath: sofficePath,
	}
}

// Kind returns the processor kind identifier
func (p *MarkdownProcessor) Kind() types.ProcessorKind {
	return types.KindMarkdown
}

// Process converts one file and writes the markdown output
func (p *MarkdownProcessor) Process(ctx context.Context, inputFile string) *types.ProcessingResult {
	start := time.Now()
	result := &types.ProcessingResult{
		Source:    inputFile,
		Processor: types.KindMarkdown,
	}

	markdown, err := p.convert(ctx, inputFile)
	if err == nil {
		output := utils.OutputFilePath(inputFile, p.config.OutputDir)
		err = writeOutput(output, markdown)
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

// convert dispatches on the file extension
func (p *MarkdownProcessor) convert(ctx context.Context, inputFile string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", utils.NewTimeoutError(fmt.Sprintf("cancelled before converting %s", inputFile), err)
	}

	switch ext := utils.FileExtension(inputFile); ext {
	case "pdf":
		return p.convertPDF(ctx, inputFile)
	case "html", "htm", "mhtml", "mht":
		return p.convertHTML(inputFile)
	case "md", "markdown":
		return readWholeFile(inputFile)
	case "txt":
		return readWholeFile(inputFile)
	case "csv":
		return p.convertDelimited(inputFile, ',')
	case "tsv":
		return p.convertDelimited(inputFile, '\t')
	case "json", "xml":
		return p.convertFenced(inputFile, ext)
	case "docx", "odt", "rtf", "epub":
		return p.convertWithPandoc(ctx, inputFile)
	case "doc", "ppt", "pptx", "odp":
		return p.convertViaSoffice(ctx, inputFile)
	default:
		return "", utils.NewUnsupportedError(fmt.Sprintf("unsupported file format: .%s", ext), nil)
	}
}

// convertPDF renders each page to HTML and converts that to markdown. PDFs
// whose text layer is below the threshold are rejected so the batch policy
// can route them to OCR instead of emitting empty documents.
func (p *MarkdownProcessor) convertPDF(ctx context.Context, inputFile string) (string, error) {
	textLen, err := pdfTextLength(inputFile)
	if err != nil {
		p.logger.Debug("Text layer probe failed for %s: %v", inputFile, err)
	} else if textLen < p.config.MinTextThreshold {
		return "", utils.NewConversionError(
			fmt.Sprintf("%s has no usable text layer (%d chars extracted)", inputFile, textLen), nil)
	}

	doc, err := fitz.New(inputFile)
	if err != nil {
		return "", utils.NewConversionError(fmt.Sprintf("failed to open PDF: %s", inputFile), err)
	}
	defer doc.Close()

	converter := md.NewConverter("", true, nil)

	var sb strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", utils.NewTimeoutError(
				fmt.Sprintf("cancelled at page %d of %s", i+1, inputFile), err)
		}

		pageHTML, err := doc.HTML(i, true)
		if err != nil {
			return "", utils.NewConversionError(
				fmt.Sprintf("failed to render page %d of %s", i+1, inputFile), err)
		}

		pageMarkdown, err := converter.ConvertString(pageHTML)
		if err != nil {
			return "", utils.NewConversionError(
				fmt.Sprintf("failed to convert page %d of %s", i+1, inputFile), err)
		}

		sb.WriteString(dataImagePattern.ReplaceAllString(pageMarkdown, ""))
		sb.WriteString("\n\n")
	}

	return sb.String(), nil
}

// pdfTextLength measures the extractable text layer of a PDF
func pdfTextLength(inputFile string) (int, error) {
	file, reader, err := pdf.Open(inputFile)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	textReader, err := reader.GetPlainText()
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(textReader); err != nil {
		return 0, err
	}
	return len(strings.TrimSpace(buf.String())), nil
}

// convertHTML converts HTML and MHTML documents. MHTML envelopes are
// reduced to their text/html part first.
func (p *MarkdownProcessor) convertHTML(inputFile string) (string, error) {
	content, err := readWholeFile(inputFile)
	if err != nil {
		return "", err
	}

	ext := utils.FileExtension(inputFile)
	if ext == "mhtml" || ext == "mht" {
		if matches := mhtmlBodyPattern.FindStringSubmatch(content); len(matches) > 1 {
			content = matches[1]
		}
	}

	title, cleaned := preprocessHTML(content)

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(cleaned)
	if err != nil {
		return "", utils.NewConversionError(fmt.Sprintf("failed to convert HTML: %s", inputFile), err)
	}

	markdown = dataImagePattern.ReplaceAllString(markdown, "")
	if title != "" && !strings.HasPrefix(strings.TrimSpace(markdown), "# ") {
		markdown = "# " + title + "\n\n" + markdown
	}
	return markdown + "\n", nil
}

// preprocessHTML parses the document once to pull out the title and drop
// script and style subtrees before markdown conversion.
func preprocessHTML(content string) (title, cleaned string) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", content
	}

	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch node.DataAtom {
			case atom.Title:
				if title == "" && node.FirstChild != nil && node.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(node.FirstChild.Data)
				}
			case atom.Script, atom.Style:
				for child := node.FirstChild; child != nil; {
					next := child.NextSibling
					node.RemoveChild(child)
					child = next
				}
				return
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	var sb strings.Builder
	if err := html.Render(&sb, doc); err != nil {
		return title, content
	}
	return title, sb.String()
}

// convertDelimited renders CSV or TSV content as a markdown table
func (p *MarkdownProcessor) convertDelimited(inputFile string, delimiter rune) (string, error) {
	file, err := os.Open(inputFile)
	if err != nil {
		return "", utils.NewIOError(fmt.Sprintf("failed to open file: %s", inputFile), err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", utils.NewConversionError(fmt.Sprintf("failed to parse %s", inputFile), err)
	}

	return RecordsToMarkdownTable(records), nil
}

// convertFenced wraps structured text in a fenced code block
func (p *MarkdownProcessor) convertFenced(inputFile, language string) (string, error) {
	content, err := readWholeFile(inputFile)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("```%s\n%s\n```\n", language, strings.TrimRight(content, "\n")), nil
}

// convertWithPandoc shells out to pandoc for formats it converts directly
func (p *MarkdownProcessor) convertWithPandoc(ctx context.Context, inputFile string) (string, error) {
	if p.pandocPath == "" {
		return "", utils.NewConversionError(
			fmt.Sprintf("pandoc is required to convert %s but was not found", inputFile), nil)
	}

	scope, err := p.temp.Acquire(filepath.Base(inputFile))
	if err != nil {
		return "", err
	}

	var markdown string
	err = scope.WithCleanup(func() error {
		outputFile := scope.Path("pandoc_output.md")

		cmd := exec.CommandContext(ctx, p.pandocPath, inputFile, "-t", "gfm", "-o", outputFile)
		if output, err := cmd.CombinedOutput(); err != nil {
			p.logger.Debug("pandoc output: %s", strings.TrimSpace(string(output)))
			return utils.NewConversionError(
				fmt.Sprintf("pandoc conversion failed for %s", inputFile), err)
		}

		content, err := os.ReadFile(outputFile)
		if err != nil {
			return utils.NewIOError("failed to read pandoc output", err)
		}
		markdown = string(content)
		return nil
	})

	return markdown, err
}

// convertViaSoffice converts legacy office formats by rendering them to PDF
// with LibreOffice first, then converting that PDF.
func (p *MarkdownProcessor) convertViaSoffice(ctx context.Context, inputFile string) (string, error) {
	if p.sofficePath == "" {
		return "", utils.NewConversionError(
			fmt.Sprintf("soffice is required to convert %s but was not found", inputFile), nil)
	}

	scope, err := p.temp.Acquire(filepath.Base(inputFile))
	if err != nil {
		return "", err
	}

	var markdown string
	err = scope.WithCleanup(func() error {
		cmd := exec.CommandContext(ctx, p.sofficePath,
			"--headless", "--convert-to", "pdf", "--outdir", scope.Dir(), inputFile)
		if output, err := cmd.CombinedOutput(); err != nil {
			p.logger.Debug("soffice output: %s", strings.TrimSpace(string(output)))
			return utils.NewConversionError(
				fmt.Sprintf("soffice conversion failed for %s", inputFile), err)
		}

		base := filepath.Base(inputFile)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		intermediatePDF := scope.Path(stem + ".pdf")
		if _, err := os.Stat(intermediatePDF); err != nil {
			return utils.NewConversionError(
				fmt.Sprintf("soffice produced no PDF for %s", inputFile), err)
		}

		// Skip the text layer probe here: LibreOffice renders its PDFs
		// with a full text layer.
		converted, err := p.convertRenderedPDF(ctx, intermediatePDF)
		if err != nil {
			return err
		}
		markdown = converted
		return nil
	})

	return markdown, err
}

// convertRenderedPDF converts a PDF known to carry a text layer
func (p *MarkdownProcessor) convertRenderedPDF(ctx context.Context, pdfFile string) (string, error) {
	doc, err := fitz.New(pdfFile)
	if err != nil {
		return "", utils.NewConversionError(fmt.Sprintf("failed to open PDF: %s", pdfFile), err)
	}
	defer doc.Close()

	converter := md.NewConverter("", true, nil)

	var sb strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", utils.NewTimeoutError(fmt.Sprintf("cancelled at page %d", i+1), err)
		}
		pageHTML, err := doc.HTML(i, true)
		if err != nil {
			return "", utils.NewConversionError(fmt.Sprintf("failed to render page %d", i+1), err)
		}
		pageMarkdown, err := converter.ConvertString(pageHTML)
		if err != nil {
			return "", utils.NewConversionError(fmt.Sprintf("failed to convert page %d", i+1), err)
		}
		sb.WriteString(dataImagePattern.ReplaceAllString(pageMarkdown, ""))
		sb.WriteString("\n\n")
	}

	return sb.String(), nil
}

// RecordsToMarkdownTable renders tabular records as a markdown table. The
// first record is treated as the header row; ragged rows are padded.
func RecordsToMarkdownTable(records [][]string) string {
	if len(records) == 0 {
		return ""
	}

	columns := 0
	for _, record := range records {
		if len(record) > columns {
			columns = len(record)
		}
	}

	var sb strings.Builder
	writeRow := func(record []string) {
		sb.WriteString("|")
		for i := 0; i < columns; i++ {
			cell := ""
			if i < len(record) {
				cell = strings.ReplaceAll(record[i], "|", "\\|")
				cell = strings.ReplaceAll(cell, "\n", " ")
			}
			sb.WriteString(" " + cell + " |")
		}
		sb.WriteString("\n")
	}

	writeRow(records[0])
	sb.WriteString("|")
	for i := 0; i < columns; i++ {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")

	for _, record := range records[1:] {
		writeRow(record)
	}

	return sb.String()
}

// readWholeFile reads a file as a string
func readWholeFile(inputFile string) (string, error) {
	content, err := os.ReadFile(inputFile)
	if err != nil {
		return "", utils.NewIOError(fmt.Sprintf("failed to read file: %s", inputFile), err)
	}
	return string(content), nil
}

// writeOutput writes the markdown output, creating the directory first
func writeOutput(output, markdown string) error {
	if err := utils.EnsureDir(filepath.Dir(output)); err != nil {
		return utils.NewIOError("failed to create output directory", err)
	}
	if err := os.WriteFile(output, []byte(markdown), constants.DefaultFilePermission); err != nil {
		return utils.NewIOError(fmt.Sprintf("failed to write output: %s", output), err)
	}
	return nil
}
