package report

import "github.com/shopspring/decimal"

const (
	totalsHeading = "Total Valuation per Sector"
	growthHeading = "Valuation Growth per Sector (Companies in Business for 5 Years or Less)"
	chartTitle    = "Total Valuation by Sector"
	chartXLabel   = "Sector"
	chartYLabel   = "Total Valuation (in Billion ₹)"
)

// formatAmount renders a valuation in billions with at most two decimals.
func formatAmount(d decimal.Decimal) string {
	return d.Round(2).String()
}
