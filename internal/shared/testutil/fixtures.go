package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"startupetl/pkg/contracts/domain"
)

// Header is the column order of the startup spreadsheet.
var Header = []string{
	domain.ColumnCompany,
	domain.ColumnSector,
	domain.ColumnEntryValuation,
	domain.ColumnValuation,
	domain.ColumnEntry,
	domain.ColumnLocation,
	domain.ColumnSelectInvestors,
}

// Row builds a raw record with the required columns.
func Row(company, sector, entryValuation, valuation, entry string) domain.RawRecord {
	return domain.RawRecord{
		domain.ColumnCompany:        company,
		domain.ColumnSector:         sector,
		domain.ColumnEntryValuation: entryValuation,
		domain.ColumnValuation:      valuation,
		domain.ColumnEntry:          entry,
	}
}

// Date returns midnight UTC of the given day.
func Date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// Startup builds a cleaned record. Valuations must be valid decimals.
func Startup(name, sector, entryValuation, valuation string, entry *time.Time) domain.StartupRecord {
	return domain.StartupRecord{
		Name:           name,
		Sector:         sector,
		EntryValuation: decimal.RequireFromString(entryValuation),
		Valuation:      decimal.RequireFromString(valuation),
		EntryDate:      entry,
	}
}

// WriteWorkbook writes rows under Header to the first sheet of a new .xlsx
// file in a temp dir and returns its path.
func WriteWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("write row %d: %v", i+2, err)
		}
	}

	path := filepath.Join(t.TempDir(), "startups.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

// WriteCSV writes content to startups.csv in a temp dir and returns its path.
func WriteCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "startups.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}
