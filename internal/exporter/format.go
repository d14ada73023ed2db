package exporter

import (
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// formatDecimal formats a valuation for CSV output with exactly 2 decimal
// places, so 13.4 appears as 13.40.
func formatDecimal(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// formatDate formats an optional date; nil becomes an empty cell.
func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
