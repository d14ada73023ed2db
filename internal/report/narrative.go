package report

import (
	"fmt"
	"strings"

	"startupetl/pkg/contracts/domain"
)

const (
	defaultIntroduction = "This report provides an analysis of the valuation and growth of startups across " +
		"various sectors. The aim is to identify trends in startup performance, highlight sectors with the " +
		"highest valuation and growth potential, and identify challenges faced by specific industries based " +
		"on data collected from various sources. The findings are supported by data-driven insights and " +
		"visualizations."

	defaultConclusion = "Based on the analysis, several sectors are leading in terms of valuation, while " +
		"others are facing challenges due to negative growth. Further research and strategic investments in " +
		"high-growth sectors can potentially yield greater returns in the coming years. This report serves as " +
		"a valuable resource for identifying trends and making informed decisions in the startup ecosystem."

	noChallengesText = "No industries with negative growth identified in the dataset."
	challengesLead   = "The following industries have shown negative valuation growth, indicating potential problems:"
)

// Narrative is the prose of a report.
type Narrative struct {
	Title        string
	Introduction string
	Inferences   []string
	Conclusion   string
}

// DefaultNarrative returns the standard report prose with inferences drawn
// from summary.
func DefaultNarrative(title string, summary domain.ReportSummary) Narrative {
	return Narrative{
		Title:        title,
		Introduction: defaultIntroduction,
		Inferences:   Inferences(summary),
		Conclusion:   defaultConclusion,
	}
}

// Inferences derives short findings from the summary figures.
func Inferences(summary domain.ReportSummary) []string {
	var out []string

	if len(summary.SectorTotals) > 0 {
		top := summary.SectorTotals[0]
		out = append(out, fmt.Sprintf("- %s leads all sectors with a total valuation of %s.",
			top.Sector, formatAmount(top.TotalValuation)))
	}

	if len(summary.SectorGrowth) > 0 {
		best := summary.SectorGrowth[0]
		for _, g := range summary.SectorGrowth[1:] {
			if g.AverageValuationGrowth.GreaterThan(best.AverageValuationGrowth) {
				best = g
			}
		}
		if best.AverageValuationGrowth.IsPositive() {
			out = append(out, fmt.Sprintf("- Valuation has been increasing fastest in %s, with an average growth of %s across %d companies.",
				best.Sector, formatAmount(best.AverageValuationGrowth), best.Companies))
		}
	}

	if n := len(summary.ChallengedSectors); n > 0 {
		names := make([]string, n)
		for i, c := range summary.ChallengedSectors {
			names[i] = c.Sector
		}
		out = append(out, fmt.Sprintf("- Industries such as %s are facing challenges.", strings.Join(names, ", ")))
	}

	if summary.Counts.Rejected > 0 || summary.Counts.DefaultedFields > 0 {
		out = append(out, fmt.Sprintf("- %d of %d source records were excluded for a missing name or sector, and %d valuation fields were unreadable and counted as zero.",
			summary.Counts.Rejected, summary.Counts.Input, summary.Counts.DefaultedFields))
	}

	if len(out) == 0 {
		out = append(out, "- The dataset contains no records to analyse.")
	}
	return out
}

// ChallengesText describes the sectors with negative growth.
func ChallengesText(challenged []domain.SectorGrowthSummary) []string {
	if len(challenged) == 0 {
		return []string{noChallengesText}
	}
	lines := []string{challengesLead}
	for _, c := range challenged {
		lines = append(lines, fmt.Sprintf("Sector: %s - Negative Growth: %s", c.Sector, formatAmount(c.AverageValuationGrowth)))
	}
	return lines
}
