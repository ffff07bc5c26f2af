package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExtension(t *testing.T) {
	assert.Equal(t, "pdf", FileExtension("/tmp/Report.PDF"))
	assert.Equal(t, "tar", FileExtension("archive.tar"))
	assert.Equal(t, "", FileExtension("README"))
	assert.Equal(t, "md", FileExtension("notes.backup.md"))
}

func TestOutputFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/out", "report.md"),
		OutputFilePath("/docs/report.pdf", "/out"))
	assert.Equal(t, filepath.Join("/out", "scan.md"),
		OutputFilePath("scan.tiff", "/out"))
}

func TestSanitizeFileName(t *testing.T) {
	sanitized := SanitizeFileName("a/b\x00c")
	assert.NotContains(t, sanitized, "/")
	assert.NotContains(t, sanitized, "\x00")

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	assert.LessOrEqual(t, len(SanitizeFileName(string(long))), 250)
}

func TestDiscoverFilesDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.docx", "c.txt", "ignore.zip"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "deep.pdf"), []byte("x"), 0644))

	files, baseDir, err := DiscoverFiles(dir, []string{"pdf", "docx", "txt"})
	require.NoError(t, err)

	assert.Equal(t, dir, baseDir)
	require.Len(t, files, 3, "non-recursive, unsupported extensions excluded")
	assert.Equal(t, []string{
		filepath.Join(dir, "a.docx"),
		filepath.Join(dir, "b.pdf"),
		filepath.Join(dir, "c.txt"),
	}, files, "sorted order")
}

func TestDiscoverFilesSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	files, baseDir, err := DiscoverFiles(path, []string{"pdf"})
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
	assert.Equal(t, dir, baseDir)
}

func TestDiscoverFilesUnsupportedSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.zip")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, _, err := DiscoverFiles(path, []string{"pdf"})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeUnsupported, GetErrorType(err))
}

func TestDiscoverFilesMissingPath(t *testing.T) {
	_, _, err := DiscoverFiles(filepath.Join(t.TempDir(), "missing"), []string{"pdf"})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeIO, GetErrorType(err))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	require.NoError(t, EnsureDir(dir))
	assert.DirExists(t, dir)

	require.Error(t, EnsureDir(""))
}
