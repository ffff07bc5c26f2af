package processors

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ocrkit/ocrkit/pkg/config"
	"github.com/ocrkit/ocrkit/pkg/constants"
	"github.com/ocrkit/ocrkit/pkg/interfaces"
	"github.com/ocrkit/ocrkit/pkg/logger"
	"github.com/ocrkit/ocrkit/pkg/types"
	"github.com/ocrkit/ocrkit/pkg/utils"
)

// ExcelProcessor converts spreadsheets to markdown. Every sheet becomes a
// markdown table section, and each sheet is additionally written as a CSV
// sidecar next to the markdown output.
type ExcelProcessor struct {
	config *config.Config
	logger *logger.Logger
}

var _ interfaces.Processor = (*ExcelProcessor)(nil)

// NewExcelProcessor creates a spreadsheet processor
func NewExcelProcessor(cfg *config.Config, log *logger.Logger) *ExcelProcessor {
	return &ExcelProcessor{
		config: cfg,
		logger: log,
	}
}

// Kind returns the processor kind identifier
func (p *ExcelProcessor) Kind() types.ProcessorKind {
	return types.KindExcel
}

// Process converts one spreadsheet and writes the markdown and CSV outputs
func (p *ExcelProcessor) Process(ctx context.Context, inputFile string) *types.ProcessingResult {
	start := time.Now()
	result := &types.ProcessingResult{
		Source:    inputFile,
		Processor: types.KindExcel,
	}

	output := utils.OutputFilePath(inputFile, p.config.OutputDir)
	err := p.convert(ctx, inputFile, output)

	result.Duration = time.Since(start)
	if err != nil {
		result.Status = types.StatusFailure
		result.Error = err.Error()
		result.TimedOut = utils.GetErrorType(err) == utils.ErrorTypeTimeout
		return result
	}

	result.Status = types.StatusSuccess
	result.Output = output
	return result
}

// convert reads every sheet and writes the outputs
func (p *ExcelProcessor) convert(ctx context.Context, inputFile, output string) error {
	if err := ctx.Err(); err != nil {
		return utils.NewTimeoutError(fmt.Sprintf("cancelled before converting %s", inputFile), err)
	}

	workbook, err := excelize.OpenFile(inputFile)
	if err != nil {
		return utils.NewConversionError(fmt.Sprintf("failed to open spreadsheet: %s", inputFile), err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return utils.NewConversionError(fmt.Sprintf("spreadsheet has no sheets: %s", inputFile), nil)
	}

	if err := utils.EnsureDir(filepath.Dir(output)); err != nil {
		return utils.NewIOError("failed to create output directory", err)
	}

	var sb strings.Builder
	for _, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return utils.NewTimeoutError(
				fmt.Sprintf("cancelled at sheet %q of %s", sheet, inputFile), err)
		}

		rows, err := workbook.GetRows(sheet)
		if err != nil {
			return utils.NewConversionError(
				fmt.Sprintf("failed to read sheet %q of %s", sheet, inputFile), err)
		}

		sb.WriteString(fmt.Sprintf("## %s\n\n", sheet))
		if len(rows) == 0 {
			sb.WriteString("*(empty sheet)*\n\n")
			continue
		}
		sb.WriteString(RecordsToMarkdownTable(rows))
		sb.WriteString("\n")

		if err := p.writeCSVSidecar(output, sheet, rows); err != nil {
			return err
		}
	}

	if err := os.WriteFile(output, []byte(sb.String()), constants.DefaultFilePermission); err != nil {
		return utils.NewIOError(fmt.Sprintf("failed to write output: %s", output), err)
	}
	return nil
}

// writeCSVSidecar writes one sheet as CSV next to the markdown output
func (p *ExcelProcessor) writeCSVSidecar(markdownOutput, sheet string, rows [][]string) error {
	stem := strings.TrimSuffix(markdownOutput, constants.MarkdownExtension)
	csvPath := fmt.Sprintf("%s_%s%s", stem, utils.SanitizeFileName(sheet), constants.CSVExtension)

	file, err := os.Create(csvPath)
	if err != nil {
		return utils.NewIOError(fmt.Sprintf("failed to create CSV: %s", csvPath), err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return utils.NewIOError(fmt.Sprintf("failed to write CSV: %s", csvPath), err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return utils.NewIOError(fmt.Sprintf("failed to flush CSV: %s", csvPath), err)
	}

	p.logger.Debug("Wrote CSV sidecar: %s", csvPath)
	return nil
}
