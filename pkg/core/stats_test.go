package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ocrkit/ocrkit/pkg/types"
)

func TestStatsSummary(t *testing.T) {
	stats := NewStats()

	stats.Record(&types.ProcessingResult{Status: types.StatusSuccess, Processor: types.KindMarkdown, Duration: 100 * time.Millisecond})
	stats.Record(&types.ProcessingResult{Status: types.StatusSuccess, Processor: types.KindExcel, Duration: 200 * time.Millisecond})
	stats.Record(&types.ProcessingResult{Status: types.StatusFailure, Processor: types.KindMarkdown, Duration: 50 * time.Millisecond})
	stats.Record(&types.ProcessingResult{Status: types.StatusFailure, Processor: types.KindOCR, Duration: 30 * time.Millisecond, TimedOut: true})
	stats.Record(&types.ProcessingResult{Status: types.StatusSkipped})

	summary := stats.Summary()

	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Timeouts)
	assert.InDelta(t, 40.0, summary.SuccessRate, 0.001)
	assert.Equal(t, 76*time.Millisecond, summary.AvgDuration)
	assert.Equal(t, map[types.ProcessorKind]int{
		types.KindMarkdown: 2,
		types.KindExcel:    1,
		types.KindOCR:      1,
	}, summary.ByProcessor)
}

func TestStatsEmptySummary(t *testing.T) {
	summary := NewStats().Summary()

	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0.0, summary.SuccessRate)
	assert.Equal(t, time.Duration(0), summary.AvgDuration)
	assert.Empty(t, summary.ByProcessor)
}

func TestStatsConcurrentRecord(t *testing.T) {
	stats := NewStats()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats.Record(&types.ProcessingResult{Status: types.StatusSuccess, Processor: types.KindOCR, Duration: time.Millisecond})
		}()
	}
	wg.Wait()

	summary := stats.Summary()
	assert.Equal(t, 50, summary.Total)
	assert.Equal(t, 50, summary.Succeeded)
	assert.InDelta(t, 100.0, summary.SuccessRate, 0.001)
}
