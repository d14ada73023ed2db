package dataprocessing

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startupetl/pkg/contracts/domain"
)

func rec(name, sector string, entryVal, val string, entry *time.Time) domain.StartupRecord {
	return domain.StartupRecord{
		Name:           name,
		Sector:         sector,
		EntryValuation: decimal.RequireFromString(entryVal),
		Valuation:      decimal.RequireFromString(val),
		EntryDate:      entry,
	}
}

func TestSectorTotals(t *testing.T) {
	records := []domain.StartupRecord{
		rec("a", "Edtech", "0", "3", nil),
		rec("b", "Fintech", "0", "10", nil),
		rec("c", "Edtech", "0", "4.5", nil),
		rec("d", "Healthtech", "0", "7.5", nil),
		rec("e", "Logistics", "0", "7.5", nil),
	}

	totals := SectorTotals(records)

	var got []string
	for _, s := range totals {
		got = append(got, s.Sector+"="+s.TotalValuation.String())
	}
	assert.Equal(t, []string{"Fintech=10", "Edtech=7.5", "Healthtech=7.5", "Logistics=7.5"}, got)
}

func TestSectorTotals_Conservation(t *testing.T) {
	records := []domain.StartupRecord{
		rec("a", "Edtech", "0", "3.3", nil),
		rec("b", "Fintech", "0", "-1.1", nil),
		rec("c", "Edtech", "0", "0", nil),
		rec("d", "Fintech", "0", "2.2", nil),
	}

	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.Valuation)
	}
	total := decimal.Zero
	for _, s := range SectorTotals(records) {
		total = total.Add(s.TotalValuation)
	}
	assert.True(t, sum.Equal(total))
}

func TestSectorTotals_DateIndependent(t *testing.T) {
	withDates := []domain.StartupRecord{
		rec("a", "Fintech", "0", "1", ptr(date(2010, 1, 1))),
		rec("b", "Fintech", "0", "2", nil),
	}
	assert.Equal(t, "3", SectorTotals(withDates)[0].TotalValuation.String())
}

func TestSectorTotals_Empty(t *testing.T) {
	assert.Empty(t, SectorTotals(nil))
}

func TestAgeDays(t *testing.T) {
	asOf := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		entry *time.Time
		want  int
		ok    bool
	}{
		{"nil", nil, 0, false},
		{"same day", ptr(date(2024, 1, 1)), 0, true},
		{"one year", ptr(date(2023, 1, 1)), 365, true},
		{"future", ptr(date(2024, 1, 3)), -2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AgeDays(tt.entry, asOf)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSectorGrowth_Window(t *testing.T) {
	asOf := date(2024, 1, 1)
	boundary := asOf.AddDate(0, 0, -MaxGrowthAgeDays)
	tooOld := asOf.AddDate(0, 0, -MaxGrowthAgeDays-1)

	records := []domain.StartupRecord{
		rec("edge", "Fintech", "1", "4", &boundary),
		rec("old", "Fintech", "1", "100", &tooOld),
		rec("undated", "Fintech", "1", "100", nil),
		rec("recent", "Fintech", "2", "3", ptr(date(2023, 6, 1))),
		rec("stale", "Agritech", "1", "9", &tooOld),
		rec("nodate", "Biotech", "1", "9", nil),
	}

	growth := SectorGrowth(records, asOf)
	require.Len(t, growth, 1, "sectors without qualifying records must be absent")
	assert.Equal(t, "Fintech", growth[0].Sector)
	assert.Equal(t, 2, growth[0].Companies)
	assert.Equal(t, "2", growth[0].AverageValuationGrowth.String())
}

func TestSectorGrowth_SortedBySector(t *testing.T) {
	asOf := date(2024, 1, 1)
	entry := ptr(date(2022, 1, 1))
	records := []domain.StartupRecord{
		rec("a", "Healthtech", "1", "2", entry),
		rec("b", "Agritech", "3", "1", entry),
		rec("c", "Edtech", "1", "1", entry),
	}

	growth := SectorGrowth(records, asOf)
	var sectors []string
	for _, g := range growth {
		sectors = append(sectors, g.Sector)
	}
	assert.Equal(t, []string{"Agritech", "Edtech", "Healthtech"}, sectors)
	assert.Equal(t, "-2", growth[0].AverageValuationGrowth.String())
	assert.True(t, growth[1].AverageValuationGrowth.IsZero())
}

func TestSectorGrowth_Pure(t *testing.T) {
	asOf := date(2024, 1, 1)
	records := []domain.StartupRecord{
		rec("a", "Fintech", "1", "2", ptr(date(2021, 1, 1))),
		rec("b", "Edtech", "1", "5", ptr(date(2022, 1, 1))),
	}
	assert.Equal(t, SectorGrowth(records, asOf), SectorGrowth(records, asOf))
}

func TestChallengedSectors(t *testing.T) {
	growth := []domain.SectorGrowthSummary{
		{Sector: "Agritech", AverageValuationGrowth: decimal.RequireFromString("-0.5")},
		{Sector: "Edtech", AverageValuationGrowth: decimal.RequireFromString("-3")},
		{Sector: "Fintech", AverageValuationGrowth: decimal.RequireFromString("4")},
		{Sector: "Logistics", AverageValuationGrowth: decimal.Zero},
	}

	challenged := ChallengedSectors(growth)
	require.Len(t, challenged, 2)
	assert.Equal(t, "Edtech", challenged[0].Sector)
	assert.Equal(t, "Agritech", challenged[1].Sector)

	assert.Empty(t, ChallengedSectors(nil))
}

func TestSummarize_EmptyListsEncodeAsArrays(t *testing.T) {
	asOf := date(2024, 1, 1)
	records := []domain.StartupRecord{
		rec("a", "Fintech", "1", "2", ptr(date(2022, 1, 1))),
	}

	summary := NewSummarizer(nil).Summarize(context.Background(), records, nil, asOf, domain.RecordCounts{})
	require.NotNil(t, summary.ChallengedSectors)

	body, err := json.Marshal(summary)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"challenged_sectors":[]`)

	empty := NewSummarizer(nil).Summarize(context.Background(), nil, nil, asOf, domain.RecordCounts{})
	body, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"sector_totals":[]`)
	assert.Contains(t, string(body), `"sector_growth":[]`)
	assert.Contains(t, string(body), `"challenged_sectors":[]`)
}

func TestSummarizer_Summarize(t *testing.T) {
	var buf bytes.Buffer
	s := NewSummarizer(testLogger(&buf))
	asOf := date(2024, 1, 1)

	records := []domain.StartupRecord{
		rec("a", "Fintech", "5", "10", ptr(date(2020, 1, 1))),
		rec("b", "Edtech", "4", "1", ptr(date(2021, 1, 1))),
	}
	counts := domain.RecordCounts{Input: 3, Retained: 2, Rejected: 1}

	summary := s.Summarize(context.Background(), records, nil, asOf, counts)

	assert.Equal(t, asOf, summary.AsOf)
	assert.Equal(t, counts, summary.Counts)
	require.Len(t, summary.SectorTotals, 2)
	assert.Equal(t, "Fintech", summary.SectorTotals[0].Sector)
	require.Len(t, summary.ChallengedSectors, 1)
	assert.Equal(t, "Edtech", summary.ChallengedSectors[0].Sector)
	assert.Contains(t, buf.String(), "Summary computed")

	stored := []domain.SectorValuationSummary{{Sector: "Stored", TotalValuation: decimal.NewFromInt(1)}}
	summary = s.Summarize(context.Background(), records, stored, asOf, counts)
	assert.Equal(t, stored, summary.SectorTotals)
}
