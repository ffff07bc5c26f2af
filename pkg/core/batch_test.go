package core

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocrkit/ocrkit/pkg/config"
	"github.com/ocrkit/ocrkit/pkg/constants"
	"github.com/ocrkit/ocrkit/pkg/logger"
	"github.com/ocrkit/ocrkit/pkg/types"
	"github.com/ocrkit/ocrkit/pkg/utils"
)

func newTestRunner(t *testing.T, cfg *config.Config, markdown *fakeProcessor) *Runner {
	t.Helper()
	log := testLogger()
	factory := NewFactory(log)
	factory.Register(markdown)
	tm, err := utils.NewTempManager(log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tm.CleanupAll() })
	return NewRunner(cfg, log, factory, tm)
}

func TestRunnerOneResultPerFile(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Workers = 3
	markdown := &fakeProcessor{kind: types.KindMarkdown, fail: map[string]bool{"b.pdf": true}}
	runner := newTestRunner(t, cfg, markdown)

	files := []string{"a.pdf", "b.pdf", "c.txt", "d.zip", "e.html"}
	results, summary := runner.Run(context.Background(), files)

	require.Len(t, results, len(files), "exactly one result per discovered file")
	seen := make(map[string]bool)
	for _, result := range results {
		assert.False(t, seen[result.Source], "duplicate result for %s", result.Source)
		seen[result.Source] = true
	}

	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed, "one scripted failure")
	assert.Equal(t, 1, summary.Skipped, "unsupported .zip is skipped, not failed")
}

func TestRunnerFailuresDoNotAbortBatch(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Workers = 1
	markdown := &fakeProcessor{kind: types.KindMarkdown, fail: map[string]bool{"a.pdf": true}}
	runner := newTestRunner(t, cfg, markdown)

	results, summary := runner.Run(context.Background(), []string{"a.pdf", "b.pdf", "c.pdf"})

	require.Len(t, results, 3)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, constants.ExitFilesFailed, ExitCode(summary))
}

func TestRunnerCancelledContextSkipsRemaining(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Workers = 2
	markdown := &fakeProcessor{kind: types.KindMarkdown}
	runner := newTestRunner(t, cfg, markdown)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"}
	results, summary := runner.Run(ctx, files)

	require.Len(t, results, len(files), "cancelled files still get a result each")
	assert.Equal(t, len(files), summary.Skipped)
	assert.Equal(t, 0, summary.Succeeded)
	assert.Empty(t, markdown.invoked, "no processor runs after cancellation")
}

func TestRunnerSkipExisting(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "doc.pdf")

	cfg := config.NewConfig()
	cfg.Workers = 1
	cfg.SkipExisting = true
	cfg.OutputDir = dir
	require.NoError(t, os.WriteFile(utils.OutputFilePath(input, dir), []byte("existing"), 0644))

	markdown := &fakeProcessor{kind: types.KindMarkdown}
	runner := newTestRunner(t, cfg, markdown)

	results, summary := runner.Run(context.Background(), []string{input})

	require.Len(t, results, 1)
	assert.Equal(t, types.StatusSkipped, results[0].Status)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, markdown.invoked, "existing output short-circuits processing")
}

func TestRunnerOCRFallback(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Workers = 1
	cfg.OCRFallback = true

	markdown := &fakeProcessor{kind: types.KindMarkdown, fail: map[string]bool{"scan.pdf": true}}
	fallback := &fakeProcessor{kind: types.KindOCR, device: types.DeviceCPU}

	runner := newTestRunner(t, cfg, markdown)
	runner.SetFallback(fallback)

	results, summary := runner.Run(context.Background(), []string{"scan.pdf", "text.pdf"})

	require.Len(t, results, 2)
	bySource := make(map[string]*types.ProcessingResult)
	for _, result := range results {
		bySource[result.Source] = result
	}

	scanned := bySource["scan.pdf"]
	require.NotNil(t, scanned)
	assert.Equal(t, types.StatusSuccess, scanned.Status)
	assert.True(t, scanned.FallbackUsed)
	assert.Equal(t, types.KindOCR, scanned.Processor)
	assert.Equal(t, types.DeviceCPU, scanned.Device)

	direct := bySource["text.pdf"]
	require.NotNil(t, direct)
	assert.False(t, direct.FallbackUsed)
	assert.Equal(t, types.KindMarkdown, direct.Processor)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, constants.ExitOK, ExitCode(summary))
}

func TestRunnerFallbackDisabledByDefault(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Workers = 1

	markdown := &fakeProcessor{kind: types.KindMarkdown, fail: map[string]bool{"scan.pdf": true}}
	fallback := &fakeProcessor{kind: types.KindOCR}

	runner := newTestRunner(t, cfg, markdown)
	runner.SetFallback(fallback)

	results, _ := runner.Run(context.Background(), []string{"scan.pdf"})

	require.Len(t, results, 1)
	assert.Equal(t, types.StatusFailure, results[0].Status)
	assert.Empty(t, fallback.invoked, "fallback is a policy decision, off by default")
}

func TestRunnerFallbackSkipsNonRasterizable(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Workers = 1
	cfg.OCRFallback = true

	markdown := &fakeProcessor{kind: types.KindMarkdown, fail: map[string]bool{"notes.html": true}}
	fallback := &fakeProcessor{kind: types.KindOCR}

	runner := newTestRunner(t, cfg, markdown)
	runner.SetFallback(fallback)

	results, _ := runner.Run(context.Background(), []string{"notes.html"})

	require.Len(t, results, 1)
	assert.Equal(t, types.StatusFailure, results[0].Status)
	assert.Empty(t, fallback.invoked, "html cannot be rasterized for OCR")
}

func TestRunnerOCRFactoryProcessesPDFs(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Workers = 2

	ocr := &fakeProcessor{kind: types.KindOCR, device: types.DeviceCPU}
	log := testLogger()
	factory := NewOCRFactory(log)
	factory.Register(ocr)

	tm, err := utils.NewTempManager(log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tm.CleanupAll() })
	runner := NewRunner(cfg, log, factory, tm)

	results, summary := runner.Run(context.Background(), []string{"scan.pdf", "photo.png"})

	require.Len(t, results, 2)
	for _, result := range results {
		assert.Equal(t, types.StatusSuccess, result.Status, "%s must reach the OCR processor", result.Source)
		assert.Equal(t, types.KindOCR, result.Processor)
	}
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Skipped, "PDFs are never skipped by the OCR pipeline")
	assert.ElementsMatch(t, []string{"scan.pdf", "photo.png"}, ocr.invoked)
}

func TestRunnerReportsIncrementalProgress(t *testing.T) {
	log := logger.NewLogger("error", true)
	var buf bytes.Buffer
	log.SetOutput(&buf)

	cfg := config.NewConfig()
	cfg.Workers = 2
	markdown := &fakeProcessor{kind: types.KindMarkdown}
	factory := NewFactory(log)
	factory.Register(markdown)
	runner := NewRunner(cfg, log, factory, nil)

	files := make([]string, constants.ProgressReportThreshold)
	for i := range files {
		files[i] = filepath.Join("docs", string(rune('a'+i))+".pdf")
	}
	_, summary := runner.Run(context.Background(), files)

	assert.Equal(t, len(files), summary.Succeeded)
	assert.Contains(t, buf.String(), "Processed")
}

func TestRunnerSmallBatchSkipsIncrementalProgress(t *testing.T) {
	log := logger.NewLogger("error", true)
	var buf bytes.Buffer
	log.SetOutput(&buf)

	cfg := config.NewConfig()
	cfg.Workers = 1
	markdown := &fakeProcessor{kind: types.KindMarkdown}
	factory := NewFactory(log)
	factory.Register(markdown)
	runner := NewRunner(cfg, log, factory, nil)

	_, _ = runner.Run(context.Background(), []string{"a.pdf", "b.pdf"})
	assert.NotContains(t, buf.String(), "Processed")
}

func TestFinalizeCleanupRemovesNamespaces(t *testing.T) {
	cfg := config.NewConfig()
	log := testLogger()
	tm, err := utils.NewTempManager(log)
	require.NoError(t, err)
	runner := NewRunner(cfg, log, NewFactory(log), tm)

	scope, err := tm.Acquire("work")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(scope.Path("scratch.txt"), []byte("x"), 0644))

	summary := &types.BatchSummary{}
	runner.FinalizeCleanup(summary)

	assert.NoDirExists(t, tm.Root())
	assert.Equal(t, 0, summary.CleanupErrors)
}

func TestFinalizeCleanupSurfacesFailures(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks are not enforced for root")
	}

	cfg := config.NewConfig()
	log := testLogger()
	tm, err := utils.NewTempManager(log)
	require.NoError(t, err)
	runner := NewRunner(cfg, log, NewFactory(log), tm)

	scope, err := tm.Acquire("work")
	require.NoError(t, err)
	locked := scope.Path("locked")
	require.NoError(t, os.Mkdir(locked, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(locked, "f.bin"), []byte("x"), 0644))
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() {
		_ = os.Chmod(locked, 0755)
		_ = os.RemoveAll(tm.Root())
	})

	summary := &types.BatchSummary{}
	runner.FinalizeCleanup(summary)

	assert.Greater(t, summary.CleanupErrors, 0, "failed final cleanup must reach the summary")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, constants.ExitOK, ExitCode(&types.BatchSummary{Total: 3, Succeeded: 2, Skipped: 1}))
	assert.Equal(t, constants.ExitFilesFailed, ExitCode(&types.BatchSummary{Total: 3, Succeeded: 2, Failed: 1}))
	assert.Equal(t, constants.ExitOK, ExitCode(&types.BatchSummary{}))
}
