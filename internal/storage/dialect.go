package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"startupetl/internal/config"
)

// valuationScale is the number of decimal places stored for valuations.
const valuationScale = 6

// Dialect captures the SQL differences between the supported drivers.
type Dialect struct {
	// Name is the configured driver name (sqlite, postgres, mysql).
	Name string
	// DriverName is the database/sql driver the dialect opens.
	DriverName string
}

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverSQLite:
		return Dialect{Name: driver, DriverName: "sqlite"}, nil
	case config.DriverPostgres:
		return Dialect{Name: driver, DriverName: "pgx"}, nil
	case config.DriverMySQL:
		return Dialect{Name: driver, DriverName: "mysql"}, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) Placeholder(n int) string {
	if d.Name == config.DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// ValuesList returns "(p1, p2, ...), (...)" for rows x cols parameters.
func (d Dialect) ValuesList(rows, cols int) string {
	var b strings.Builder
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Placeholder(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// CreateTable returns the DDL for the startup table.
func (d Dialect) CreateTable(table string, ifNotExists bool) string {
	clause := ""
	if ifNotExists {
		clause = "IF NOT EXISTS "
	}
	return fmt.Sprintf(`CREATE TABLE %s%s (
    position INTEGER NOT NULL,
    name VARCHAR(255) NOT NULL,
    sector VARCHAR(255) NOT NULL,
    entry_valuation %[3]s NOT NULL,
    valuation %[3]s NOT NULL,
    entry_date DATE NULL,
    location TEXT NOT NULL,
    select_investors TEXT NOT NULL
)`, clause, table, d.valuationType())
}

// SQLite has no exact decimal type: DECIMAL columns get NUMERIC affinity and
// SUM runs in float64. Valuations are kept there as integer micro-units.
func (d Dialect) microUnits() bool {
	return d.Name == config.DriverSQLite
}

func (d Dialect) valuationType() string {
	if d.microUnits() {
		return "INTEGER"
	}
	return fmt.Sprintf("DECIMAL(20,%d)", valuationScale)
}

// ValuationArg converts a valuation to its bind parameter, rounded to the
// stored scale.
func (d Dialect) ValuationArg(v decimal.Decimal) (any, error) {
	v = v.Round(valuationScale)
	if !d.microUnits() {
		return v.String(), nil
	}
	micro := v.Shift(valuationScale).BigInt()
	if !micro.IsInt64() {
		return nil, fmt.Errorf("valuation %s exceeds the storable range", v)
	}
	return micro.Int64(), nil
}

// Valuation converts a scanned valuation column or sum back to units.
func (d Dialect) Valuation(v decimal.Decimal) decimal.Decimal {
	if d.microUnits() {
		return v.Shift(-valuationScale)
	}
	return v.Round(valuationScale)
}

// SwapStatements replaces live with staging. SQLite and PostgreSQL run them
// in one transaction. MySQL DDL commits implicitly, so it relies on the
// atomic multi-table RENAME instead.
func (d Dialect) SwapStatements(live, staging string) (stmts []string, transactional bool) {
	if d.Name == config.DriverMySQL {
		old := live + "_old"
		return []string{
			"DROP TABLE IF EXISTS " + old,
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s LIKE %s", live, staging),
			fmt.Sprintf("RENAME TABLE %s TO %s, %s TO %s", live, old, staging, live),
			"DROP TABLE " + old,
		}, false
	}
	return []string{
		"DROP TABLE IF EXISTS " + live,
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", staging, live),
	}, true
}
