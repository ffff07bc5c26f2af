package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ocrkit/ocrkit/pkg/constants"
	"github.com/ocrkit/ocrkit/pkg/ocr"
	"github.com/ocrkit/ocrkit/pkg/utils"
)

var (
	searchOptimize  int
	searchBatchSize int
	searchUseCPU    bool
	searchNoJBIG2   bool
	searchFast      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [input-pdf] [output-pdf]",
	Short: "Build a searchable PDF with an invisible text layer",
	Long: `Recognize every page of a PDF and overlay the text as an invisible
layer, making the document searchable and selectable.

Optimization levels trade visual fidelity for file size:
  0  keep the original pages untouched, only add the text layer
  1  rebuild pages at full resolution
  2  rebuild pages at reduced resolution, recompressing bitonal pages
  3  rebuild pages aggressively for the smallest output

Examples:
  ocrkit search scan.pdf
  ocrkit search scan.pdf searchable.pdf -O 2
  ocrkit search scan.pdf --cpu --no-jbig2`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	inputPDF := args[0]

	outputPDF := ""
	if len(args) > 1 {
		outputPDF = args[1]
	} else {
		base := filepath.Base(inputPDF)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		outputPDF = filepath.Join(filepath.Dir(inputPDF),
			stem+constants.DefaultSearchableSuffix+".pdf")
	}

	if utils.FileExtension(inputPDF) != "pdf" {
		return utils.NewValidationError(
			fmt.Sprintf("search requires a PDF input, got: %s", inputPDF), nil)
	}

	cfg := buildConfig()
	cfg.OptimizeLevel = searchOptimize
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = searchBatchSize
	}
	if searchUseCPU {
		cfg.UseCPU = true
	}
	if searchNoJBIG2 {
		cfg.NoJBIG2 = true
	}
	if searchFast {
		cfg.FastMode = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger(cfg)

	engine, err := ocr.NewTesseractEngine(cfg, log)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signalContext()
	defer stop()

	builder := ocr.NewSearchableBuilder(cfg, log, engine)
	if err := builder.Build(ctx, inputPDF, outputPDF); err != nil {
		if utils.IsFatal(err) {
			return err
		}
		log.ProgressAlways("❌", "%s failed: %v", inputPDF, err)
		exitCode = constants.ExitFilesFailed
	}
	return nil
}

func init() {
	searchCmd.Flags().IntVarP(&searchOptimize, "optimize", "O", constants.DefaultOptimizeLevel,
		fmt.Sprintf("Optimization level %d-%d", constants.MinOptimizeLevel, constants.MaxOptimizeLevel))
	searchCmd.Flags().IntVarP(&searchBatchSize, "batch-size", "b", constants.DefaultBatchSize,
		"Pages rasterized and held in memory per batch")
	searchCmd.Flags().BoolVar(&searchUseCPU, "cpu", false,
		"Force CPU inference, skipping the GPU probe")
	searchCmd.Flags().BoolVar(&searchNoJBIG2, "no-jbig2", false,
		"Disable bitonal recompression of rebuilt pages")
	searchCmd.Flags().BoolVar(&searchFast, "fast", false,
		"Fast mode: sparse detection during recognition")

	rootCmd.AddCommand(searchCmd)
}
