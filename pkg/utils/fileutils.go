package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ocrkit/ocrkit/pkg/constants"
)

// NormalizePath standardizes file paths
func NormalizePath(path string) string {
	return filepath.Clean(path)
}

// EnsureDir creates directory if it doesn't exist
func EnsureDir(dirPath string) error {
	if dirPath == "" {
		return fmt.Errorf("directory path cannot be empty")
	}
	return os.MkdirAll(dirPath, constants.DefaultDirPermission)
}

// FindTool returns the first usable path from the candidate list, or an
// empty string when none is present on this system.
func FindTool(candidates []string) string {
	for _, candidate := range candidates {
		if filepath.IsAbs(candidate) {
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
			continue
		}
		if _, err := exec.LookPath(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// SanitizeFileName cleans a filename for cross-platform compatibility:
// reserved characters are replaced and overlong names truncated.
func SanitizeFileName(filename string) string {
	if constants.IsWindows() {
		re := regexp.MustCompile(`[<>:"/\\|?*]`)
		filename = re.ReplaceAllString(filename, "_")
	} else {
		re := regexp.MustCompile(`[/\x00]`)
		filename = re.ReplaceAllString(filename, "_")
	}
	filename = strings.TrimSpace(filename)
	if len(filename) > 250 {
		filename = filename[:250]
	}
	return filename
}

// FileExtension returns the lowercased extension without the leading dot
func FileExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return strings.TrimPrefix(ext, ".")
}

// OutputFilePath derives the markdown output path for an input file: the
// input base name, sanitized, with the markdown extension, under outputDir.
func OutputFilePath(inputPath, outputDir string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	name := SanitizeFileName(stem) + constants.MarkdownExtension
	return filepath.Join(outputDir, name)
}

// DiscoverFiles enumerates candidate input files under a path. A directory
// is scanned non-recursively in sorted order; a single file is accepted only
// when its extension is in the allowed set. Returns the matched files and
// the base directory of the input.
func DiscoverFiles(inputPath string, allowedExts []string) ([]string, string, error) {
	stat, err := os.Stat(inputPath)
	if err != nil {
		return nil, "", NewIOError(fmt.Sprintf("input path does not exist: %s", inputPath), err)
	}

	allowed := make(map[string]bool, len(allowedExts))
	for _, ext := range allowedExts {
		allowed[strings.ToLower(ext)] = true
	}

	if !stat.IsDir() {
		if !allowed[FileExtension(inputPath)] {
			return nil, "", NewUnsupportedError(
				fmt.Sprintf("unsupported file format: .%s", FileExtension(inputPath)), nil)
		}
		return []string{NormalizePath(inputPath)}, filepath.Dir(inputPath), nil
	}

	entries, err := os.ReadDir(inputPath)
	if err != nil {
		return nil, "", NewIOError(fmt.Sprintf("failed to read directory: %s", inputPath), err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(inputPath, entry.Name())
		if allowed[FileExtension(path)] {
			files = append(files, NormalizePath(path))
		}
	}
	sort.Strings(files)

	return files, NormalizePath(inputPath), nil
}
