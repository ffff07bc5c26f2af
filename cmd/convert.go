package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ocrkit/ocrkit/pkg/constants"
	"github.com/ocrkit/ocrkit/pkg/core"
	"github.com/ocrkit/ocrkit/pkg/ocr"
	"github.com/ocrkit/ocrkit/pkg/processors"
	"github.com/ocrkit/ocrkit/pkg/utils"
)

var (
	convertOutputDir    string
	convertWorkers      int
	convertSkipExisting bool
	convertOCRFallback  bool
	convertListFormats  bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [input]",
	Short: "Convert documents to markdown without OCR",
	Long: `Convert a document, or every supported document in a directory, to
markdown. PDFs are converted from their text layer; office formats are
converted with pandoc or LibreOffice; spreadsheets become markdown tables
with CSV sidecars.

With --ocr-fallback, PDFs whose direct conversion fails (including scans
with no usable text layer) are retried on the OCR pipeline.

Examples:
  ocrkit convert report.pdf
  ocrkit convert ./documents -o ./markdown -w 8
  ocrkit convert scans/ --ocr-fallback
  ocrkit convert --list-formats`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	if convertListFormats {
		printSupportedFormats()
		return nil
	}
	if len(args) == 0 {
		return utils.NewValidationError("input path is required", nil)
	}
	inputPath := args[0]

	cfg := buildConfig()
	if convertOutputDir != "" {
		cfg.OutputDir = convertOutputDir
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = convertWorkers
	}
	if convertSkipExisting {
		cfg.SkipExisting = true
	}
	if convertOCRFallback {
		cfg.OCRFallback = true
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir(inputPath)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger(cfg)

	files, _, err := utils.DiscoverFiles(inputPath, constants.ConversionExtensions())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.ProgressAlways("📭", "No supported files found in: %s", inputPath)
		return nil
	}

	tm, err := utils.NewTempManager(log)
	if err != nil {
		return err
	}
	defer func() {
		if err := tm.CleanupAll(); err != nil {
			log.Warn("Temp cleanup incomplete: %v", err)
		}
	}()

	factory := core.NewFactory(log)
	factory.Register(processors.NewMarkdownProcessor(cfg, log, tm))
	factory.Register(processors.NewExcelProcessor(cfg, log))

	runner := core.NewRunner(cfg, log, factory, tm)

	ctx, stop := signalContext()
	defer stop()

	if cfg.OCRFallback {
		engine, err := ocr.NewTesseractEngine(cfg, log)
		if err != nil {
			return err
		}
		defer engine.Close()

		ocrProcessor, err := ocr.NewProcessor(cfg, log, engine)
		if err != nil {
			return err
		}
		runner.SetFallback(ocrProcessor)
	}

	_, summary := runner.Run(ctx, files)
	runner.FinalizeCleanup(summary)
	printSummary("Conversion Summary", summary)
	exitCode = core.ExitCode(summary)
	return nil
}

// printSupportedFormats lists every extension the convert pipeline claims
func printSupportedFormats() {
	groups := []struct {
		name string
		exts []string
	}{
		{"PDF", constants.PDFExtensions},
		{"Office", constants.OfficeExtensions},
		{"Spreadsheets", constants.SpreadsheetExtensions},
		{"Text & markup", constants.TextExtensions},
		{"E-books", constants.EbookExtensions},
	}

	fmt.Println("Supported formats:")
	for _, group := range groups {
		fmt.Printf("  %-14s %s\n", group.name+":", strings.Join(group.exts, ", "))
	}
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutputDir, "output-dir", "o", "",
		fmt.Sprintf("Output directory (default: %s next to the input)", constants.DefaultMarkdownDirName))
	convertCmd.Flags().IntVarP(&convertWorkers, "workers", "w", constants.DefaultWorkers,
		"Number of files processed concurrently")
	convertCmd.Flags().BoolVar(&convertSkipExisting, "skip-existing", false,
		"Skip files whose markdown output already exists")
	convertCmd.Flags().BoolVar(&convertOCRFallback, "ocr-fallback", false,
		"Retry failed PDF conversions on the OCR pipeline")
	convertCmd.Flags().BoolVar(&convertListFormats, "list-formats", false,
		"List supported input formats and exit")

	rootCmd.AddCommand(convertCmd)
}
