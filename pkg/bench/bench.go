package bench

import (
	"context"
	"sync"
	"time"

	"github.com/ocrkit/ocrkit/pkg/core"
	"github.com/ocrkit/ocrkit/pkg/interfaces"
	"github.com/ocrkit/ocrkit/pkg/logger"
	"github.com/ocrkit/ocrkit/pkg/types"
)

// Options controls one benchmark run
type Options struct {
	// Workers is the number of files processed concurrently
	Workers int

	// FileLimit caps how many discovered files are measured, 0 means all
	FileLimit int

	// Timeout is the per-file wall-clock budget. Enforcement is
	// best-effort: the pipeline observes cancellation between pages, so
	// a page already inside the engine runs to completion.
	Timeout time.Duration
}

// Report is the outcome of a benchmark run
type Report struct {
	Summary        *types.BatchSummary
	Results        []*types.ProcessingResult
	FilesPerSecond float64
	Fastest        *types.ProcessingResult
	Slowest        *types.ProcessingResult
}

// Runner measures pipeline throughput by pushing files through a processor
// under a per-file timeout. Timeouts are recorded as failed measurements
// and never abort the remaining files.
type Runner struct {
	processor interfaces.Processor
	logger    *logger.Logger
	opts      Options
}

// NewRunner creates a benchmark runner
func NewRunner(processor interfaces.Processor, log *logger.Logger, opts Options) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Runner{
		processor: processor,
		logger:    log,
		opts:      opts,
	}
}

// Run benchmarks the files and returns the report
func (r *Runner) Run(ctx context.Context, files []string) *Report {
	if r.opts.FileLimit > 0 && len(files) > r.opts.FileLimit {
		r.logger.Info("Limiting benchmark to first %d of %d files", r.opts.FileLimit, len(files))
		files = files[:r.opts.FileLimit]
	}

	workers := r.opts.Workers
	if workers > len(files) {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}

	r.logger.ProgressAlways("⏱️", "Benchmarking %d files with %d workers (per-file timeout %v)",
		len(files), workers, r.opts.Timeout)

	stats := core.NewStats()
	started := time.Now()

	jobs := make(chan string)
	out := make(chan *types.ProcessingResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				out <- r.measureOne(ctx, file)
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

	report := &Report{}
	for result := range out {
		stats.Record(result)
		report.Results = append(report.Results, result)

		if result.Succeeded() {
			if report.Fastest == nil || result.Duration < report.Fastest.Duration {
				report.Fastest = result
			}
			if report.Slowest == nil || result.Duration > report.Slowest.Duration {
				report.Slowest = result
			}
		}

		if result.TimedOut {
			r.logger.ProgressAlways("⏰", "%s exceeded the %v timeout", result.Source, r.opts.Timeout)
		}
	}

	report.Summary = stats.Summary()

	elapsed := time.Since(started)
	if elapsed > 0 && report.Summary.Total > 0 {
		report.FilesPerSecond = float64(report.Summary.Total) / elapsed.Seconds()
	}

	return report
}

// measureOne processes one file under the per-file timeout
func (r *Runner) measureOne(ctx context.Context, file string) *types.ProcessingResult {
	fileCtx := ctx
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		fileCtx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	result := r.processor.Process(fileCtx, file)

	// A file cut short by its own deadline counts as a timeout even when
	// the pipeline surfaced it as a generic failure.
	if fileCtx.Err() == context.DeadlineExceeded && result.Status == types.StatusFailure {
		result.TimedOut = true
	}

	return result
}
