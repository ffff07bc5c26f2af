package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ocrkit/ocrkit/pkg/bench"
	"github.com/ocrkit/ocrkit/pkg/constants"
	"github.com/ocrkit/ocrkit/pkg/core"
	"github.com/ocrkit/ocrkit/pkg/ocr"
	"github.com/ocrkit/ocrkit/pkg/utils"
)

var (
	benchWorkers   int
	benchFileLimit int
	benchTimeout   time.Duration
	benchBatchSize int
	benchUseCPU    bool
	benchFast      bool
)

var benchCmd = &cobra.Command{
	Use:   "bench [input]",
	Short: "Measure OCR pipeline throughput",
	Long: `Benchmark the OCR pipeline over a set of PDFs and images. Each file
runs under a per-file timeout; files that exceed it are recorded as
timeouts and never abort the remaining measurements.

Timeout enforcement is best-effort: cancellation is observed between
pages, so a page already inside the engine finishes first.

Examples:
  ocrkit bench ./scans
  ocrkit bench ./scans -w 8 --file-limit 50
  ocrkit bench ./scans --timeout 60s`,
	Args: cobra.ExactArgs(1),
	RunE: runBench,
}

func runBench(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	cfg := buildConfig()
	if cmd.Flags().Changed("workers") {
		cfg.Workers = benchWorkers
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = benchBatchSize
	}
	if benchUseCPU {
		cfg.UseCPU = true
	}
	if benchFast {
		cfg.FastMode = true
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir(inputPath)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if benchTimeout <= 0 {
		return utils.NewValidationError("timeout must be positive", nil)
	}
	if benchFileLimit < 0 {
		return utils.NewValidationError("file limit must be non-negative", nil)
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

	engine, err := ocr.NewTesseractEngine(cfg, log)
	if err != nil {
		return err
	}
	defer engine.Close()

	processor, err := ocr.NewProcessor(cfg, log, engine)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	runner := bench.NewRunner(processor, log, bench.Options{
		Workers:   cfg.Workers,
		FileLimit: benchFileLimit,
		Timeout:   benchTimeout,
	})
	report := runner.Run(ctx, files)

	printBenchReport(report)
	exitCode = core.ExitCode(report.Summary)
	return nil
}

// printBenchReport renders the benchmark report box
func printBenchReport(report *bench.Report) {
	if quiet {
		return
	}

	summary := report.Summary
	lines := []string{summaryTitleStyle.Render("Benchmark Report"), ""}
	row := func(label, value string) {
		lines = append(lines, summaryLabelStyle.Render(label)+value)
	}

	row("Files", fmt.Sprintf("%d", summary.Total))
	row("Succeeded", fmt.Sprintf("%d", summary.Succeeded))
	row("Failed", fmt.Sprintf("%d", summary.Failed))
	row("Timeouts", fmt.Sprintf("%d", summary.Timeouts))
	row("Success rate", fmt.Sprintf("%.1f%%", summary.SuccessRate))
	row("Elapsed", summary.TotalDuration.Round(time.Millisecond).String())
	row("Throughput", fmt.Sprintf("%.2f files/sec", report.FilesPerSecond))
	if summary.Total > 0 {
		row("Avg per file", summary.AvgDuration.Round(time.Millisecond).String())
	}
	if report.Fastest != nil {
		row("Fastest", fmt.Sprintf("%s (%v)", report.Fastest.Source,
			report.Fastest.Duration.Round(time.Millisecond)))
	}
	if report.Slowest != nil {
		row("Slowest", fmt.Sprintf("%s (%v)", report.Slowest.Source,
			report.Slowest.Duration.Round(time.Millisecond)))
	}

	fmt.Println(summaryBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		strings.Join(lines, "\n"))))
}

func init() {
	benchCmd.Flags().IntVarP(&benchWorkers, "workers", "w", constants.DefaultWorkers,
		"Number of files processed concurrently")
	benchCmd.Flags().IntVar(&benchFileLimit, "file-limit", 0,
		"Benchmark only the first N discovered files (0 = all)")
	benchCmd.Flags().DurationVar(&benchTimeout, "timeout", constants.DefaultBenchTimeout,
		"Per-file timeout, best-effort")
	benchCmd.Flags().IntVarP(&benchBatchSize, "batch-size", "b", constants.DefaultBatchSize,
		"Pages rasterized and held in memory per batch")
	benchCmd.Flags().BoolVar(&benchUseCPU, "cpu", false,
		"Force CPU inference, skipping the GPU probe")
	benchCmd.Flags().BoolVar(&benchFast, "fast", false,
		"Fast mode: lower raster resolution and sparse detection")

	rootCmd.AddCommand(benchCmd)
}
