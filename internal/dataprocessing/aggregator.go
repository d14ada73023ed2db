package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"startupetl/pkg/contracts/domain"
)

// MaxGrowthAgeDays is the growth analysis window: 5 x 365 days, without
// leap-year adjustment.
const MaxGrowthAgeDays = 1825

// SectorTotals sums valuation per sector, largest total first. Sectors with
// equal totals keep the order in which they first appear in records.
func SectorTotals(records []domain.StartupRecord) []domain.SectorValuationSummary {
	index := make(map[string]int)
	totals := make([]domain.SectorValuationSummary, 0)

	for _, r := range records {
		i, ok := index[r.Sector]
		if !ok {
			i = len(totals)
			index[r.Sector] = i
			totals = append(totals, domain.SectorValuationSummary{Sector: r.Sector, TotalValuation: decimal.Zero})
		}
		totals[i].TotalValuation = totals[i].TotalValuation.Add(r.Valuation)
	}

	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].TotalValuation.GreaterThan(totals[j].TotalValuation)
	})
	return totals
}

// AgeDays returns the whole days between entry and asOf, floored. The second
// result is false when entry is nil.
func AgeDays(entry *time.Time, asOf time.Time) (int, bool) {
	if entry == nil {
		return 0, false
	}
	days := math.Floor(asOf.Sub(*entry).Hours() / 24)
	return int(days), true
}

// Qualifies reports whether a record takes part in growth analysis: it has
// an entry date at most MaxGrowthAgeDays before asOf.
func Qualifies(r domain.StartupRecord, asOf time.Time) bool {
	age, ok := AgeDays(r.EntryDate, asOf)
	return ok && age <= MaxGrowthAgeDays
}

// SectorGrowth averages valuation growth per sector over the qualifying
// records, ordered by sector name. Sectors without a qualifying record are
// absent.
func SectorGrowth(records []domain.StartupRecord, asOf time.Time) []domain.SectorGrowthSummary {
	type acc struct {
		sum decimal.Decimal
		n   int
	}
	groups := make(map[string]*acc)

	for _, r := range records {
		if !Qualifies(r, asOf) {
			continue
		}
		g, ok := groups[r.Sector]
		if !ok {
			g = &acc{sum: decimal.Zero}
			groups[r.Sector] = g
		}
		g.sum = g.sum.Add(r.ValuationGrowth())
		g.n++
	}

	growth := make([]domain.SectorGrowthSummary, 0, len(groups))
	for sector, g := range groups {
		growth = append(growth, domain.SectorGrowthSummary{
			Sector:                 sector,
			AverageValuationGrowth: g.sum.Div(decimal.NewFromInt(int64(g.n))),
			Companies:              g.n,
		})
	}
	sort.Slice(growth, func(i, j int) bool {
		return growth[i].Sector < growth[j].Sector
	})
	return growth
}

// ChallengedSectors returns the sectors whose average growth is negative,
// steepest decline first.
func ChallengedSectors(growth []domain.SectorGrowthSummary) []domain.SectorGrowthSummary {
	out := make([]domain.SectorGrowthSummary, 0)
	for _, g := range growth {
		if g.AverageValuationGrowth.IsNegative() {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AverageValuationGrowth.LessThan(out[j].AverageValuationGrowth)
	})
	return out
}

// Summarizer builds report summaries and logs their shape.
type Summarizer struct {
	logger *slog.Logger
}

// NewSummarizer creates a summarizer. A nil logger uses slog.Default.
func NewSummarizer(logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{logger: logger}
}

// Summarize computes growth from records and bundles it with the sector
// totals. Totals come from the caller so they can be taken from the store.
func (s *Summarizer) Summarize(ctx context.Context, records []domain.StartupRecord,
	totals []domain.SectorValuationSummary, asOf time.Time, counts domain.RecordCounts) domain.ReportSummary {

	if totals == nil {
		totals = SectorTotals(records)
	}
	growth := SectorGrowth(records, asOf)

	summary := domain.ReportSummary{
		AsOf:              asOf,
		SectorTotals:      totals,
		SectorGrowth:      growth,
		ChallengedSectors: ChallengedSectors(growth),
		Counts:            counts,
	}

	s.logger.InfoContext(ctx, "Summary computed",
		slog.Time("as_of", asOf),
		slog.Int("sectors", len(totals)),
		slog.Int("growth_sectors", len(growth)),
		slog.Int("challenged_sectors", len(summary.ChallengedSectors)))

	return summary
}
