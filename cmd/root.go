package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ocrkit/ocrkit/pkg/config"
	"github.com/ocrkit/ocrkit/pkg/constants"
	"github.com/ocrkit/ocrkit/pkg/logger"
	"github.com/ocrkit/ocrkit/pkg/utils"
)

var (
	verbose bool
	quiet   bool

	// exitCode is the batch outcome set by subcommands. Errors returned
	// from a RunE are invocation errors and take the usage exit code
	// instead.
	exitCode = constants.ExitOK
)

// rootCmd is the base command; all work happens in subcommands
var rootCmd = &cobra.Command{
	Use:   constants.AppName,
	Short: "Convert documents to markdown, with an OCR pipeline for scans",
	Long: `ocrkit converts office documents, PDFs and images to markdown.

Documents with machine-readable content go through direct conversion;
scanned PDFs and images go through the OCR pipeline. A searchable-PDF
builder overlays recognized text on the original pages, and a benchmark
command measures pipeline throughput.

Commands:
  convert  Direct document-to-markdown conversion, optional OCR fallback
  extract  OCR pipeline for scanned PDFs and images
  search   Build a searchable PDF with an invisible text layer
  bench    Measure OCR pipeline throughput

Exit codes:
  0  all files processed
  1  some files failed
  2  invalid invocation`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if appErr, ok := err.(*utils.AppError); ok {
			fmt.Fprintf(os.Stderr, "Error (%s): %s\n", appErr.Type, appErr.Message)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return constants.ExitUsageError
	}
	return exitCode
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose output to show progress information")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"Suppress progress output, keeping warnings and errors")
}

// buildConfig loads the layered configuration: defaults, then environment
// overrides, then command-line overrides applied by the caller.
func buildConfig() *config.Config {
	cfg := config.LoadConfigWithEnvOverrides()
	if verbose {
		cfg.EnableVerbose = true
	}
	return cfg
}

// newLogger creates the invocation logger from the validated config
func newLogger(cfg *config.Config) *logger.Logger {
	log := logger.NewLogger(cfg.LogLevel, cfg.EnableVerbose)
	log.SetQuiet(quiet)
	return log
}

// signalContext returns a context cancelled by SIGINT/SIGTERM so workers
// drain and temp namespaces are cleaned before exit.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// defaultOutputDir resolves the output directory for an input path when
// none was configured: a markdown_output directory next to the input.
func defaultOutputDir(inputPath string) string {
	stat, err := os.Stat(inputPath)
	if err == nil && stat.IsDir() {
		return filepath.Join(inputPath, constants.DefaultMarkdownDirName)
	}
	return filepath.Join(filepath.Dir(inputPath), constants.DefaultMarkdownDirName)
}
