package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ocrkit/ocrkit/pkg/constants"
	"github.com/ocrkit/ocrkit/pkg/core"
	"github.com/ocrkit/ocrkit/pkg/ocr"
	"github.com/ocrkit/ocrkit/pkg/utils"
)

var (
	extractOutputDir string
	extractWorkers   int
	extractBatchSize int
	extractUseCPU    bool
	extractDetArch   string
	extractRecoArch  string
	extractFast      bool
	extractThreads   int
	extractPages     string
)

var extractCmd = &cobra.Command{
	Use:   "extract [input]",
	Short: "Run the OCR pipeline over scanned PDFs and images",
	Long: `Extract text from scanned PDFs and images through the OCR pipeline:
pages are rasterized, recognized, and assembled into a markdown document.

The recognition model is loaded once per invocation and shared across all
files. Unless --cpu is given, a GPU is probed for and the pipeline falls
back to CPU when none is usable.

Examples:
  ocrkit extract scan.pdf
  ocrkit extract ./scans -o ./markdown --batch-size 8
  ocrkit extract scan.pdf --pages 1-5,10 --fast
  ocrkit extract scan.pdf --reco-arch deu --threads 4`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	cfg := buildConfig()
	if extractOutputDir != "" {
		cfg.OutputDir = extractOutputDir
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = extractWorkers
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = extractBatchSize
	}
	if extractUseCPU {
		cfg.UseCPU = true
	}
	if extractDetArch != "" {
		cfg.DetArch = extractDetArch
	}
	if extractRecoArch != "" {
		cfg.RecoArch = extractRecoArch
	}
	if extractFast {
		cfg.FastMode = true
	}
	if cmd.Flags().Changed("threads") {
		cfg.Threads = extractThreads
	}
	cfg.Pages = extractPages
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir(inputPath)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger(cfg)

	files, _, err := utils.DiscoverFiles(inputPath, constants.OCRExtensions())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.ProgressAlways("📭", "No PDFs or images found in: %s", inputPath)
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

	engine, err := ocr.NewTesseractEngine(cfg, log)
	if err != nil {
		return err
	}
	defer engine.Close()

	processor, err := ocr.NewProcessor(cfg, log, engine)
	if err != nil {
		return err
	}

	factory := core.NewOCRFactory(log)
	factory.Register(processor)

	ctx, stop := signalContext()
	defer stop()

	runner := core.NewRunner(cfg, log, factory, tm)
	_, summary := runner.Run(ctx, files)
	runner.FinalizeCleanup(summary)
	printSummary("OCR Summary", summary)
	exitCode = core.ExitCode(summary)
	return nil
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutputDir, "output-dir", "o", "",
		"Output directory (default: markdown_output next to the input)")
	extractCmd.Flags().IntVarP(&extractWorkers, "workers", "w", constants.DefaultWorkers,
		"Number of files processed concurrently")
	extractCmd.Flags().IntVarP(&extractBatchSize, "batch-size", "b", constants.DefaultBatchSize,
		"Pages rasterized and held in memory per batch")
	extractCmd.Flags().BoolVar(&extractUseCPU, "cpu", false,
		"Force CPU inference, skipping the GPU probe")
	extractCmd.Flags().StringVar(&extractDetArch, "det-arch", "",
		"Detection architecture: auto, sparse, or block")
	extractCmd.Flags().StringVar(&extractRecoArch, "reco-arch", "",
		"Recognition model name (default: eng)")
	extractCmd.Flags().BoolVar(&extractFast, "fast", false,
		"Fast mode: lower raster resolution and sparse detection")
	extractCmd.Flags().IntVar(&extractThreads, "threads", 0,
		"Thread budget for the recognition engine (0 = engine default)")
	extractCmd.Flags().StringVarP(&extractPages, "pages", "p", "",
		"Page selection, e.g. \"1-5,10,20-25\" (1-indexed)")

	rootCmd.AddCommand(extractCmd)
}
