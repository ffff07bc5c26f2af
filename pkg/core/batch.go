package core

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ocrkit/ocrkit/pkg/config"
	"github.com/ocrkit/ocrkit/pkg/constants"
	"github.com/ocrkit/ocrkit/pkg/interfaces"
	"github.com/ocrkit/ocrkit/pkg/logger"
	"github.com/ocrkit/ocrkit/pkg/types"
	"github.com/ocrkit/ocrkit/pkg/utils"
)

// Runner drives a batch of files through a fixed pool of workers. Every
// discovered file yields exactly one result: unsupported and cancelled files
// are recorded as skipped, per-file failures are recorded and never abort
// the remaining files.
type Runner struct {
	config   *config.Config
	logger   *logger.Logger
	factory  interfaces.ProcessorFactory
	fallback interfaces.Processor
	temp     *utils.TempManager
}

// NewRunner creates a batch runner
func NewRunner(cfg *config.Config, log *logger.Logger, factory interfaces.ProcessorFactory, tm *utils.TempManager) *Runner {
	return &Runner{
		config:  cfg,
		logger:  log,
		factory: factory,
		temp:    tm,
	}
}

// SetFallback installs a processor retried on files whose direct conversion
// failed. Only used when the fallback policy is enabled in config.
func (r *Runner) SetFallback(p interfaces.Processor) {
	r.fallback = p
}

// Run processes the files and returns the per-file results in completion
// order along with the batch summary.
func (r *Runner) Run(ctx context.Context, files []string) ([]*types.ProcessingResult, *types.BatchSummary) {
	stats := NewStats()
	results := make([]*types.ProcessingResult, 0, len(files))

	workers := r.config.Workers
	if workers > len(files) {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}

	r.logger.Info("Starting batch: %d files, %d workers", len(files), workers)

	jobs := make(chan string)
	out := make(chan *types.ProcessingResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				out <- r.processOne(ctx, file)
			}
		}()
	}

	go func() {
		for _, file := range files {
			jobs <- file
		}
		close(jobs)
		wg.Wait()
		close(out)
	}()

	var done int
	for result := range out {
		stats.Record(result)
		r.reportResult(result)
		results = append(results, result)

		done++
		if len(files) >= constants.ProgressReportThreshold {
			r.logger.Progress("📊", "Processed %d/%d files", done, len(files))
		}
	}

	summary := stats.Summary()
	if r.temp != nil {
		summary.CleanupErrors = r.temp.CleanupErrors()
	}
	return results, summary
}

// FinalizeCleanup removes every temp namespace and folds cleanup failures
// into the summary. Called before the summary is rendered so a failing
// final cleanup is visible in it, not just in the log.
func (r *Runner) FinalizeCleanup(summary *types.BatchSummary) {
	if r.temp == nil {
		return
	}
	if err := r.temp.CleanupAll(); err != nil {
		r.logger.Warn("Temp cleanup incomplete: %v", err)
	}
	summary.CleanupErrors = r.temp.CleanupErrors()
}

// processOne produces the single result for one file
func (r *Runner) processOne(ctx context.Context, file string) *types.ProcessingResult {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return &types.ProcessingResult{
			Source:   file,
			Status:   types.StatusSkipped,
			Error:    "batch cancelled before processing",
			Duration: time.Since(start),
		}
	}

	if r.config.SkipExisting {
		output := utils.OutputFilePath(file, r.config.OutputDir)
		if _, err := os.Stat(output); err == nil {
			r.logger.Debug("Output already exists, skipping: %s", output)
			return &types.ProcessingResult{
				Source:   file,
				Output:   output,
				Status:   types.StatusSkipped,
				Duration: time.Since(start),
			}
		}
	}

	processor, err := r.factory.ProcessorFor(utils.FileExtension(file))
	if err != nil {
		return &types.ProcessingResult{
			Source:   file,
			Status:   types.StatusSkipped,
			Error:    err.Error(),
			Duration: time.Since(start),
		}
	}

	result := processor.Process(ctx, file)

	if result.Status == types.StatusFailure && r.shouldFallback(processor, file) {
		r.logger.Warn("Conversion failed for %s, retrying with OCR fallback", file)
		fallbackResult := r.fallback.Process(ctx, file)
		fallbackResult.FallbackUsed = true
		if !fallbackResult.Succeeded() {
			fallbackResult.Error = fmt.Sprintf("conversion failed: %s; ocr fallback failed: %s",
				result.Error, fallbackResult.Error)
		}
		return fallbackResult
	}

	return result
}

// shouldFallback reports whether a failed direct conversion is retried on
// the OCR pipeline. Files the OCR pipeline cannot rasterize never fall back.
func (r *Runner) shouldFallback(processor interfaces.Processor, file string) bool {
	if r.fallback == nil || !r.config.OCRFallback {
		return false
	}
	if processor.Kind() == types.KindOCR {
		return false
	}
	ext := utils.FileExtension(file)
	for _, e := range constants.OCRExtensions() {
		if ext == e {
			return true
		}
	}
	return false
}

// reportResult logs one file's outcome
func (r *Runner) reportResult(result *types.ProcessingResult) {
	switch result.Status {
	case types.StatusSuccess:
		if result.FallbackUsed {
			r.logger.ProgressAlways("✅", "%s → %s (ocr fallback, %v)", result.Source, result.Output, result.Duration.Round(time.Millisecond))
		} else {
			r.logger.ProgressAlways("✅", "%s → %s (%v)", result.Source, result.Output, result.Duration.Round(time.Millisecond))
		}
	case types.StatusSkipped:
		r.logger.ProgressAlways("⏭️", "%s skipped: %s", result.Source, skipReason(result))
	case types.StatusFailure:
		r.logger.ProgressAlways("❌", "%s failed: %s", result.Source, result.Error)
	}
}

func skipReason(result *types.ProcessingResult) string {
	if result.Error != "" {
		return result.Error
	}
	return "output already exists"
}

// ExitCode maps a batch summary to the process exit code. Per-file failures
// exit with a code distinct from invocation errors so callers can script
// around partial batches.
func ExitCode(summary *types.BatchSummary) int {
	if summary.Failed > 0 {
		return constants.ExitFilesFailed
	}
	return constants.ExitOK
}
