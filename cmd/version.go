package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version information variables - set by main.go
var (
	version   = "dev"
	gitCommit = "none"
	buildTime = "unknown"
	buildBy   = "unknown"
)

// SetVersionInfo sets the version information from main.go
func SetVersionInfo(v, commit, buildTimeParam, buildByParam string) {
	version = v
	gitCommit = commit
	buildTime = buildTimeParam
	buildBy = buildByParam
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		showVersionInfo()
	},
}

// showVersionInfo displays version and runtime information
func showVersionInfo() {
	fmt.Printf("🔖 Version Information:\n")
	fmt.Printf("  Version:     %s\n", version)
	fmt.Printf("  Git Commit:  %s\n", gitCommit)
	fmt.Printf("  Build Time:  %s\n", buildTime)
	fmt.Printf("  Built By:    %s\n", buildBy)
	fmt.Printf("\n")

	fmt.Printf("⚙️ Runtime Information:\n")
	fmt.Printf("  Go Version:  %s\n", runtime.Version())
	fmt.Printf("  OS/Arch:     %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
