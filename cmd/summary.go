package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ocrkit/ocrkit/pkg/types"
)

var (
	summaryBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2)

	summaryTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	summaryLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Width(14)
)

// printSummary renders the batch summary box
func printSummary(title string, summary *types.BatchSummary) {
	if quiet {
		return
	}

	lines := []string{summaryTitleStyle.Render(title), ""}
	row := func(label, value string) {
		lines = append(lines, summaryLabelStyle.Render(label)+value)
	}

	row("Total", fmt.Sprintf("%d", summary.Total))
	row("Succeeded", fmt.Sprintf("%d", summary.Succeeded))
	row("Failed", fmt.Sprintf("%d", summary.Failed))
	row("Skipped", fmt.Sprintf("%d", summary.Skipped))
	if summary.Timeouts > 0 {
		row("Timeouts", fmt.Sprintf("%d", summary.Timeouts))
	}
	row("Success rate", fmt.Sprintf("%.1f%%", summary.SuccessRate))
	row("Elapsed", summary.TotalDuration.Round(time.Millisecond).String())
	if summary.Total > 0 {
		row("Avg per file", summary.AvgDuration.Round(time.Millisecond).String())
	}
	if len(summary.ByProcessor) > 0 {
		row("Processors", formatByProcessor(summary.ByProcessor))
	}
	if summary.CleanupErrors > 0 {
		row("Cleanup errors", fmt.Sprintf("%d", summary.CleanupErrors))
	}

	fmt.Println(summaryBoxStyle.Render(strings.Join(lines, "\n")))
}

// formatByProcessor renders per-processor counts in a stable order
func formatByProcessor(counts map[types.ProcessorKind]int) string {
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	parts := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", kind, counts[types.ProcessorKind(kind)]))
	}
	return strings.Join(parts, " ")
}
