package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"startupetl/internal/errors"
	"startupetl/pkg/contracts/domain"
)

const (
	insertBatchSize = 500
	insertColumns   = "position, name, sector, entry_valuation, valuation, entry_date, location, select_investors"
	columnsPerRow   = 8
	dateLayout      = "2006-01-02"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// StartupStore persists the cleaned startup table. Every load replaces the
// whole table.
type StartupStore struct {
	db      *sql.DB
	dialect Dialect
	table   string
	logger  *slog.Logger
}

// NewStartupStore creates a store over table. The table name is validated
// because it is interpolated into SQL.
func NewStartupStore(db *sql.DB, dialect Dialect, table string, logger *slog.Logger) (*StartupStore, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, errors.NewAppValidationError(fmt.Sprintf("invalid table name %q", table))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StartupStore{db: db, dialect: dialect, table: table, logger: logger}, nil
}

// Table returns the live table name.
func (s *StartupStore) Table() string {
	return s.table
}

func (s *StartupStore) stagingTable() string {
	return s.table + "_staging"
}

// EnsureTable creates the live table if it does not exist yet, so readers
// can query before the first load.
func (s *StartupStore) EnsureTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.CreateTable(s.table, true)); err != nil {
		return errors.NewStorageError("failed to create table", err).WithContext("table", s.table)
	}
	return nil
}

// ReplaceAll discards the table contents and stores records in their input
// order. Records are written to a staging table first and swapped in, so
// readers see either the previous contents or the complete new batch.
func (s *StartupStore) ReplaceAll(ctx context.Context, records []domain.StartupRecord) error {
	start := time.Now()
	staging := s.stagingTable()

	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+staging); err != nil {
		return errors.NewStorageError("failed to drop staging table", err).WithContext("table", staging)
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.CreateTable(staging, false)); err != nil {
		return errors.NewStorageError("failed to create staging table", err).WithContext("table", staging)
	}

	if err := s.insertAll(ctx, staging, records); err != nil {
		s.dropStaging(ctx)
		return err
	}

	if err := s.swap(ctx, staging); err != nil {
		s.dropStaging(ctx)
		return err
	}

	s.logger.InfoContext(ctx, "Table replaced",
		slog.String("table", s.table),
		slog.Int("rows", len(records)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (s *StartupStore) insertAll(ctx context.Context, staging string, records []domain.StartupRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageError("failed to begin insert transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for start := 0; start < len(records); start += insertBatchSize {
		end := min(start+insertBatchSize, len(records))
		batch := records[start:end]

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			staging, insertColumns, s.dialect.ValuesList(len(batch), columnsPerRow))

		args := make([]any, 0, len(batch)*columnsPerRow)
		for i, r := range batch {
			entryValuation, err := s.dialect.ValuationArg(r.EntryValuation)
			if err != nil {
				return errors.NewStorageError("failed to encode entry valuation", err).WithContext("row", start+i)
			}
			valuation, err := s.dialect.ValuationArg(r.Valuation)
			if err != nil {
				return errors.NewStorageError("failed to encode valuation", err).WithContext("row", start+i)
			}
			args = append(args,
				start+i,
				r.Name,
				r.Sector,
				entryValuation,
				valuation,
				dateArg(r.EntryDate),
				r.Location,
				r.SelectInvestors,
			)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return errors.NewStorageError("failed to insert records", err).
				WithContext("table", staging).
				WithContext("offset", start)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStorageError("failed to commit records", err).WithContext("table", staging)
	}
	return nil
}

func (s *StartupStore) swap(ctx context.Context, staging string) error {
	stmts, transactional := s.dialect.SwapStatements(s.table, staging)

	if !transactional {
		for _, stmt := range stmts {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return errors.NewStorageError("failed to swap in new table", err).WithContext("table", s.table)
			}
		}
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageError("failed to begin swap transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.NewStorageError("failed to swap in new table", err).WithContext("table", s.table)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.NewStorageError("failed to commit table swap", err).WithContext("table", s.table)
	}
	return nil
}

// dropStaging removes a half-built staging table. Errors are only logged;
// the live table is untouched either way.
func (s *StartupStore) dropStaging(ctx context.Context) {
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.stagingTable()); err != nil {
		s.logger.WarnContext(ctx, "Failed to drop staging table",
			slog.String("table", s.stagingTable()),
			slog.String("error", err.Error()))
	}
}

// SectorTotals sums valuation per sector, largest first. Equal totals keep
// the order in which the sectors first appear in the table.
func (s *StartupStore) SectorTotals(ctx context.Context) ([]domain.SectorValuationSummary, error) {
	query := fmt.Sprintf(`
SELECT sector, SUM(valuation) AS total_valuation
FROM %s
GROUP BY sector
ORDER BY total_valuation DESC, MIN(position) ASC`, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewStorageError("failed to query sector totals", err).WithContext("table", s.table)
	}
	defer func() { _ = rows.Close() }()

	totals := make([]domain.SectorValuationSummary, 0, 32)
	for rows.Next() {
		var summary domain.SectorValuationSummary
		if err := rows.Scan(&summary.Sector, &summary.TotalValuation); err != nil {
			return nil, errors.NewStorageError("failed to scan sector total", err)
		}
		summary.TotalValuation = s.dialect.Valuation(summary.TotalValuation)
		totals = append(totals, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("failed to read sector totals", err)
	}
	return totals, nil
}

// Records returns every stored record in input order.
func (s *StartupStore) Records(ctx context.Context) ([]domain.StartupRecord, error) {
	query := fmt.Sprintf(`
SELECT name, sector, entry_date, valuation, entry_valuation, location, select_investors
FROM %s
ORDER BY position ASC`, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewStorageError("failed to query records", err).WithContext("table", s.table)
	}
	defer func() { _ = rows.Close() }()

	records := make([]domain.StartupRecord, 0, 256)
	for rows.Next() {
		var (
			r     domain.StartupRecord
			entry nullDate
		)
		if err := rows.Scan(&r.Name, &r.Sector, &entry, &r.Valuation, &r.EntryValuation,
			&r.Location, &r.SelectInvestors); err != nil {
			return nil, errors.NewStorageError("failed to scan record", err)
		}
		r.EntryDate = entry.Time
		r.Valuation = s.dialect.Valuation(r.Valuation)
		r.EntryValuation = s.dialect.Valuation(r.EntryValuation)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("failed to read records", err)
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *StartupStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.table).Scan(&n); err != nil {
		return 0, errors.NewStorageError("failed to count records", err).WithContext("table", s.table)
	}
	return n, nil
}

func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

// nullDate scans a DATE column. Drivers return it as time.Time, string or
// []byte depending on driver and DSN options.
type nullDate struct {
	Time *time.Time
}

func (n *nullDate) Scan(v any) error {
	var t time.Time
	switch x := v.(type) {
	case nil:
		n.Time = nil
		return nil
	case time.Time:
		t = x
	case string:
		parsed, err := parseDate(x)
		if err != nil {
			return err
		}
		t = parsed
	case []byte:
		parsed, err := parseDate(string(x))
		if err != nil {
			return err
		}
		t = parsed
	default:
		return fmt.Errorf("cannot scan %T into date", v)
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	n.Time = &d
	return nil
}

func parseDate(s string) (time.Time, error) {
	if len(s) < len(dateLayout) {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return time.Parse(dateLayout, s[:len(dateLayout)])
}
