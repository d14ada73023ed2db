package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"

	"startupetl/internal/errors"
	"startupetl/pkg/contracts/domain"
)

// Markdown renders the report content as a Markdown document.
func Markdown(n Narrative, summary domain.ReportSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", n.Title)
	fmt.Fprintf(&b, "_As of %s. %d records loaded, %d retained, %d rejected, %d valuation fields defaulted._\n\n",
		summary.AsOf.Format("2006-01-02"), summary.Counts.Input, summary.Counts.Retained,
		summary.Counts.Rejected, summary.Counts.DefaultedFields)

	fmt.Fprintf(&b, "## Introduction\n\n%s\n\n", n.Introduction)

	b.WriteString("## Inferences\n\n")
	for _, inf := range n.Inferences {
		fmt.Fprintf(&b, "%s\n", inf)
	}
	b.WriteString("\n## Industries Facing Challenges\n\n")
	for _, line := range ChallengesText(summary.ChallengedSectors) {
		if len(summary.ChallengedSectors) > 0 && line != challengesLead {
			line = "- " + line
		}
		fmt.Fprintf(&b, "%s\n", line)
	}

	fmt.Fprintf(&b, "\n## %s\n\n| Sector | Total Valuation |\n|---|---:|\n", totalsHeading)
	for _, t := range summary.SectorTotals {
		fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(t.Sector), formatAmount(t.TotalValuation))
	}

	fmt.Fprintf(&b, "\n## %s\n\n| Sector | Average Valuation Growth | Companies |\n|---|---:|---:|\n", growthHeading)
	for _, g := range summary.SectorGrowth {
		fmt.Fprintf(&b, "| %s | %s | %d |\n", escapeCell(g.Sector), formatAmount(g.AverageValuationGrowth), g.Companies)
	}

	fmt.Fprintf(&b, "\n## Conclusion\n\n%s\n", n.Conclusion)
	return b.String()
}

// WriteMarkdown writes the Markdown report to path.
func WriteMarkdown(path string, n Narrative, summary domain.ReportSummary) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", errors.NewRenderError("failed to create markdown directory", err)
	}
	if err := os.WriteFile(path, []byte(Markdown(n, summary)), 0644); err != nil {
		return "", errors.NewRenderError("failed to write markdown report", err).WithContext("path", path)
	}
	return path, nil
}

// RenderTerminal styles Markdown for terminal output.
func RenderTerminal(md string, wordWrap int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return "", errors.NewRenderError("failed to create terminal renderer", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", errors.NewRenderError("failed to render markdown", err)
	}
	return out, nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
