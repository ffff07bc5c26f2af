package core

import (
	"sync"
	"time"

	"github.com/ocrkit/ocrkit/pkg/types"
)

// Stats aggregates per-file results into a batch summary. Workers record
// results concurrently; the summary is read once the batch has drained.
type Stats struct {
	mu          sync.Mutex
	total       int
	succeeded   int
	failed      int
	skipped     int
	timeouts    int
	byProcessor map[types.ProcessorKind]int
	durationSum time.Duration
	started     time.Time
}

// NewStats creates a stats aggregator and starts the batch clock
func NewStats() *Stats {
	return &Stats{
		byProcessor: make(map[types.ProcessorKind]int),
		started:     time.Now(),
	}
}

// Record accounts for exactly one file's outcome
func (s *Stats) Record(result *types.ProcessingResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.durationSum += result.Duration

	switch result.Status {
	case types.StatusSuccess:
		s.succeeded++
	case types.StatusFailure:
		s.failed++
		if result.TimedOut {
			s.timeouts++
		}
	case types.StatusSkipped:
		s.skipped++
	}

	if result.Processor != "" {
		s.byProcessor[result.Processor]++
	}
}

// Summary produces the final batch summary. The success rate is computed
// over all recorded files, so skipped files lower it.
func (s *Stats) Summary() *types.BatchSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := &types.BatchSummary{
		Total:         s.total,
		Succeeded:     s.succeeded,
		Failed:        s.failed,
		Skipped:       s.skipped,
		Timeouts:      s.timeouts,
		TotalDuration: time.Since(s.started),
		ByProcessor:   make(map[types.ProcessorKind]int, len(s.byProcessor)),
	}

	for kind, count := range s.byProcessor {
		summary.ByProcessor[kind] = count
	}

	if s.total > 0 {
		summary.SuccessRate = float64(s.succeeded) / float64(s.total) * 100
		summary.AvgDuration = s.durationSum / time.Duration(s.total)
	}

	return summary
}
