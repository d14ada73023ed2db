package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Spreadsheet column names. The column set is fixed by the source sheet.
const (
	ColumnCompany         = "Company"
	ColumnSector          = "Sector"
	ColumnEntryValuation  = "Entry Valuation"
	ColumnValuation       = "Valuation"
	ColumnEntry           = "Entry"
	ColumnLocation        = "Location"
	ColumnSelectInvestors = "Select Investors"
)

// RequiredColumns must be present in at least one raw record of a batch.
var RequiredColumns = []string{
	ColumnCompany,
	ColumnSector,
	ColumnEntryValuation,
	ColumnValuation,
	ColumnEntry,
}

// RawRecord is one spreadsheet row keyed by column name. Values are usually
// strings but numeric cells may arrive as float64 or int.
type RawRecord map[string]any

// StartupRecord is one company after cleaning and type coercion.
type StartupRecord struct {
	Name            string          `json:"name" db:"name" validate:"notblank"`
	Sector          string          `json:"sector" db:"sector" validate:"notblank"`
	EntryValuation  decimal.Decimal `json:"entry_valuation" db:"entry_valuation"`
	Valuation       decimal.Decimal `json:"valuation" db:"valuation"`
	EntryDate       *time.Time      `json:"entry_date,omitempty" db:"entry_date"`
	Location        string          `json:"location,omitempty" db:"location"`
	SelectInvestors string          `json:"select_investors,omitempty" db:"select_investors"`
}

// ValuationGrowth is current valuation minus entry valuation.
func (r StartupRecord) ValuationGrowth() decimal.Decimal {
	return r.Valuation.Sub(r.EntryValuation)
}

// HasEntryDate reports whether the entry date survived parsing.
func (r StartupRecord) HasEntryDate() bool {
	return r.EntryDate != nil
}

// SectorValuationSummary is the total valuation of one sector.
type SectorValuationSummary struct {
	Sector         string          `json:"sector" db:"sector"`
	TotalValuation decimal.Decimal `json:"total_valuation" db:"total_valuation"`
}

// SectorGrowthSummary is the mean valuation growth of the qualifying
// companies of one sector.
type SectorGrowthSummary struct {
	Sector                 string          `json:"sector"`
	AverageValuationGrowth decimal.Decimal `json:"average_valuation_growth"`
	Companies              int             `json:"companies"`
}

// RecordCounts describes how much of a batch survived cleaning.
type RecordCounts struct {
	Input           int `json:"input"`
	Retained        int `json:"retained"`
	Rejected        int `json:"rejected"`
	DefaultedFields int `json:"defaulted_fields"`
	NullDates       int `json:"null_dates"`
	UnparsableDates int `json:"unparsable_dates"`
}

// ReportSummary bundles everything a report needs.
type ReportSummary struct {
	AsOf              time.Time                `json:"as_of"`
	SectorTotals      []SectorValuationSummary `json:"sector_totals"`
	SectorGrowth      []SectorGrowthSummary    `json:"sector_growth"`
	ChallengedSectors []SectorGrowthSummary    `json:"challenged_sectors"`
	Counts            RecordCounts             `json:"counts"`
}
