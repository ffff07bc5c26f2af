package processors

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ocrkit/ocrkit/pkg/config"
	"github.com/ocrkit/ocrkit/pkg/logger"
	"github.com/ocrkit/ocrkit/pkg/types"
)

func newTestExcelProcessor(t *testing.T, cfg *config.Config) *ExcelProcessor {
	t.Helper()
	log := logger.NewLogger("error", false)
	log.SetOutput(&bytes.Buffer{})
	return NewExcelProcessor(cfg, log)
}

func writeTestWorkbook(t *testing.T, dir string) string {
	t.Helper()
	workbook := excelize.NewFile()
	defer workbook.Close()

	require.NoError(t, workbook.SetSheetName("Sheet1", "People"))
	require.NoError(t, workbook.SetSheetRow("People", "A1", &[]interface{}{"name", "age"}))
	require.NoError(t, workbook.SetSheetRow("People", "A2", &[]interface{}{"alice", 30}))

	_, err := workbook.NewSheet("Cities")
	require.NoError(t, err)
	require.NoError(t, workbook.SetSheetRow("Cities", "A1", &[]interface{}{"city"}))
	require.NoError(t, workbook.SetSheetRow("Cities", "A2", &[]interface{}{"berlin"}))

	path := filepath.Join(dir, "book.xlsx")
	require.NoError(t, workbook.SaveAs(path))
	return path
}

func TestExcelProcess(t *testing.T) {
	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.OutputDir = dir
	processor := newTestExcelProcessor(t, cfg)

	input := writeTestWorkbook(t, dir)
	result := processor.Process(context.Background(), input)

	require.Equal(t, types.StatusSuccess, result.Status, "error: %s", result.Error)
	assert.Equal(t, types.KindExcel, result.Processor)

	content, err := os.ReadFile(result.Output)
	require.NoError(t, err)
	text := string(content)

	assert.Contains(t, text, "## People")
	assert.Contains(t, text, "## Cities")
	assert.Contains(t, text, "| name | age |")
	assert.Contains(t, text, "| alice | 30 |")
	assert.Contains(t, text, "| berlin |")
}

func TestExcelCSVSidecars(t *testing.T) {
	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.OutputDir = dir
	processor := newTestExcelProcessor(t, cfg)

	input := writeTestWorkbook(t, dir)
	result := processor.Process(context.Background(), input)
	require.Equal(t, types.StatusSuccess, result.Status)

	people, err := os.ReadFile(filepath.Join(dir, "book_People.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(people), "name,age")
	assert.Contains(t, string(people), "alice,30")

	assert.FileExists(t, filepath.Join(dir, "book_Cities.csv"))
}

func TestExcelProcessCorruptFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.OutputDir = dir
	processor := newTestExcelProcessor(t, cfg)

	input := filepath.Join(dir, "broken.xlsx")
	require.NoError(t, os.WriteFile(input, []byte("not a workbook"), 0644))

	result := processor.Process(context.Background(), input)
	assert.Equal(t, types.StatusFailure, result.Status)
	assert.NotEmpty(t, result.Error)
}

func TestExcelProcessCancelled(t *testing.T) {
	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.OutputDir = dir
	processor := newTestExcelProcessor(t, cfg)

	input := writeTestWorkbook(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := processor.Process(ctx, input)
	assert.Equal(t, types.StatusFailure, result.Status)
	assert.True(t, result.TimedOut)
}
