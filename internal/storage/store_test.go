package storage_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	apperrors "startupetl/internal/errors"
	"startupetl/internal/storage"
	"startupetl/pkg/contracts/domain"
)

func newMockStore(t *testing.T, driver string) (*storage.StartupStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	dialect, err := storage.DialectFor(driver)
	if err != nil {
		t.Fatalf("DialectFor: %v", err)
	}
	store, err := storage.NewStartupStore(db, dialect, "startups", nil)
	if err != nil {
		t.Fatalf("NewStartupStore: %v", err)
	}
	return store, mock
}

func sampleRecords() []domain.StartupRecord {
	entry := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	return []domain.StartupRecord{
		{Name: "A", Sector: "Fintech", EntryValuation: decimal.NewFromInt(5), Valuation: decimal.NewFromInt(10), EntryDate: &entry},
		{Name: "B", Sector: "Edtech", EntryValuation: decimal.NewFromInt(1), Valuation: decimal.RequireFromString("2.5"), Location: "Pune"},
	}
}

func TestNewStartupStore_InvalidTable(t *testing.T) {
	dialect, _ := storage.DialectFor("sqlite")
	_, err := storage.NewStartupStore(nil, dialect, "startups; DROP TABLE x", nil)
	if !apperrors.IsType(err, apperrors.ErrTypeValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestStartupStore_ReplaceAll(t *testing.T) {
	store, mock := newMockStore(t, "sqlite")

	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS startups_staging")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE startups_staging (")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO startups_staging (position, name, sector")).
		WithArgs(
			0, "A", "Fintech", int64(5_000_000), int64(10_000_000), "2020-01-01", "", "",
			1, "B", "Edtech", int64(1_000_000), int64(2_500_000), nil, "Pune", "",
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS startups")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE startups_staging RENAME TO startups")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := store.ReplaceAll(context.Background(), sampleRecords()); err != nil {
		t.Fatalf("ReplaceAll err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestStartupStore_ReplaceAll_PostgresPlaceholders(t *testing.T) {
	store, mock := newMockStore(t, "postgres")

	mock.ExpectExec("DROP TABLE IF EXISTS startups_staging").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE startups_staging").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5, $6, $7, $8), ($9,")).
		WithArgs(
			0, "A", "Fintech", "5", "10", "2020-01-01", "", "",
			1, "B", "Edtech", "1", "2.5", nil, "Pune", "",
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE IF EXISTS startups").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("ALTER TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := store.ReplaceAll(context.Background(), sampleRecords()); err != nil {
		t.Fatalf("ReplaceAll err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestStartupStore_ReplaceAll_InsertFailureKeepsLiveTable(t *testing.T) {
	store, mock := newMockStore(t, "sqlite")

	mock.ExpectExec("DROP TABLE IF EXISTS startups_staging").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE startups_staging").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO startups_staging").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()
	mock.ExpectExec("DROP TABLE IF EXISTS startups_staging").WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.ReplaceAll(context.Background(), sampleRecords())
	if !apperrors.IsType(err, apperrors.ErrTypeStorage) {
		t.Fatalf("want storage error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestStartupStore_ReplaceAll_MySQLSwap(t *testing.T) {
	store, mock := newMockStore(t, "mysql")

	mock.ExpectExec("DROP TABLE IF EXISTS startups_staging").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE startups_staging").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS startups_old")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS startups LIKE startups_staging")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("RENAME TABLE startups TO startups_old, startups_staging TO startups")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE startups_old")).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.ReplaceAll(context.Background(), nil); err != nil {
		t.Fatalf("ReplaceAll err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestStartupStore_SectorTotals(t *testing.T) {
	tests := []struct {
		driver  string
		fintech any
		edtech  any
	}{
		{driver: "postgres", fintech: "10.000000", edtech: "0.300000"},
		{driver: "mysql", fintech: float64(10), edtech: 0.30000000000000004},
		{driver: "sqlite", fintech: int64(10_000_000), edtech: int64(300_000)},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			store, mock := newMockStore(t, tt.driver)

			mock.ExpectQuery(regexp.QuoteMeta("ORDER BY total_valuation DESC, MIN(position) ASC")).
				WillReturnRows(sqlmock.NewRows([]string{"sector", "total_valuation"}).
					AddRow("Fintech", tt.fintech).
					AddRow("Edtech", tt.edtech))

			got, err := store.SectorTotals(context.Background())
			if err != nil {
				t.Fatalf("SectorTotals err=%v", err)
			}

			gotStr := make([]string, len(got))
			for i, s := range got {
				gotStr[i] = s.Sector + "=" + s.TotalValuation.String()
			}
			want := []string{"Fintech=10", "Edtech=0.3"}
			if diff := cmp.Diff(want, gotStr); diff != "" {
				t.Fatalf("SectorTotals mismatch (-want +got):\n%s", diff)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("ExpectationsWereMet: %v", err)
			}
		})
	}
}

func TestStartupStore_ReplaceAll_ValuationOutOfRange(t *testing.T) {
	store, mock := newMockStore(t, "sqlite")

	mock.ExpectExec("DROP TABLE IF EXISTS startups_staging").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE startups_staging").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectExec("DROP TABLE IF EXISTS startups_staging").WillReturnResult(sqlmock.NewResult(0, 0))

	records := []domain.StartupRecord{
		{Name: "Huge", Sector: "Fintech", Valuation: decimal.RequireFromString("10000000000000")},
	}
	err := store.ReplaceAll(context.Background(), records)
	if !apperrors.IsType(err, apperrors.ErrTypeStorage) {
		t.Fatalf("want storage error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestStartupStore_SectorTotals_QueryError(t *testing.T) {
	store, mock := newMockStore(t, "sqlite")
	mock.ExpectQuery("SELECT sector").WillReturnError(errors.New("no such table: startups"))

	_, err := store.SectorTotals(context.Background())
	if !apperrors.IsType(err, apperrors.ErrTypeStorage) {
		t.Fatalf("want storage error, got %v", err)
	}
}

func TestStartupStore_Records(t *testing.T) {
	store, mock := newMockStore(t, "postgres")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, sector, entry_date, valuation, entry_valuation")).
		WillReturnRows(sqlmock.NewRows([]string{
			"name", "sector", "entry_date", "valuation", "entry_valuation", "location", "select_investors",
		}).
			AddRow("A", "Fintech", "2020-01-01", "10", "5", "", "").
			AddRow("B", "Edtech", nil, int64(3), float64(1.5), "Pune", "Accel"))

	got, err := store.Records(context.Background())
	if err != nil {
		t.Fatalf("Records err=%v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Records len=%d", len(got))
	}
	if got[0].EntryDate == nil || got[0].EntryDate.Format("2006-01-02") != "2020-01-01" {
		t.Fatalf("EntryDate=%v", got[0].EntryDate)
	}
	if got[1].EntryDate != nil {
		t.Fatalf("EntryDate=%v, want nil", got[1].EntryDate)
	}
	if got[1].Valuation.String() != "3" || got[1].EntryValuation.String() != "1.5" {
		t.Fatalf("valuations=%s/%s", got[1].Valuation, got[1].EntryValuation)
	}
	if diff := cmp.Diff("Accel", got[1].SelectInvestors); diff != "" {
		t.Fatalf("SelectInvestors mismatch (-want +got):\n%s", diff)
	}
}

func TestStartupStore_Records_SQLiteMicroUnits(t *testing.T) {
	store, mock := newMockStore(t, "sqlite")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, sector, entry_date, valuation, entry_valuation")).
		WillReturnRows(sqlmock.NewRows([]string{
			"name", "sector", "entry_date", "valuation", "entry_valuation", "location", "select_investors",
		}).
			AddRow("A", "Fintech", nil, int64(1_234_567_890_123_123_456), int64(1), "", ""))

	got, err := store.Records(context.Background())
	if err != nil {
		t.Fatalf("Records err=%v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Records len=%d", len(got))
	}
	if got[0].Valuation.String() != "1234567890123.123456" || got[0].EntryValuation.String() != "0.000001" {
		t.Fatalf("valuations=%s/%s", got[0].Valuation, got[0].EntryValuation)
	}
}

func TestStartupStore_Count(t *testing.T) {
	store, mock := newMockStore(t, "sqlite")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM startups")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := store.Count(context.Background())
	if err != nil || n != 7 {
		t.Fatalf("Count n=%d err=%v", n, err)
	}
}
