package constants

import (
	"runtime"
)

// PlatformConfig carries per-OS lookup paths for the external converter
// tools the markdown processor shells out to.
type PlatformConfig struct {
	PandocPaths  []string
	SofficePaths []string
}

// GetPlatformConfig returns platform-specific tool lookup paths
func GetPlatformConfig() *PlatformConfig {
	switch runtime.GOOS {
	case "windows":
		return &PlatformConfig{
			PandocPaths: []string{
				"pandoc.exe",
				"C:\\Program Files\\Pandoc\\pandoc.exe",
				"C:\\Program Files (x86)\\Pandoc\\pandoc.exe",
			},
			SofficePaths: []string{
				"soffice.exe",
				"C:\\Program Files\\LibreOffice\\program\\soffice.exe",
				"C:\\Program Files (x86)\\LibreOffice\\program\\soffice.exe",
			},
		}
	case "darwin":
		return &PlatformConfig{
			PandocPaths: []string{
				"pandoc",
				"/usr/local/bin/pandoc",
				"/opt/homebrew/bin/pandoc",
			},
			SofficePaths: []string{
				"soffice",
				"/Applications/LibreOffice.app/Contents/MacOS/soffice",
				"/usr/local/bin/soffice",
			},
		}
	default: // Linux and other Unix-like systems
		return &PlatformConfig{
			PandocPaths: []string{
				"pandoc",
				"/usr/bin/pandoc",
				"/usr/local/bin/pandoc",
			},
			SofficePaths: []string{
				"soffice",
				"/usr/bin/soffice",
				"/usr/local/bin/soffice",
				"/snap/bin/libreoffice",
			},
		}
	}
}

// IsWindows returns true if running on Windows
func IsWindows() bool {
	return runtime.GOOS == "windows"
}

// IsUnixLike returns true if running on a Unix-like system (macOS, Linux, etc.)
func IsUnixLike() bool {
	return runtime.GOOS != "windows"
}
