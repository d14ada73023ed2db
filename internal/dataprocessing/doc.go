// Package dataprocessing turns raw spreadsheet rows into the cleaned startup
// table and reduces that table to sector summaries.
//
// # Cleaning
//
// Transformer applies a two-tier policy. Field problems never drop a record:
// an unparsable valuation becomes zero and an unparsable entry date becomes
// null, and each such default is reported as a Coercion. A record without a
// company name or sector is dropped and reported as a Rejection. Only a
// required column missing from the whole batch fails the transform.
//
//	result, err := dataprocessing.NewTransformer(logger).Transform(ctx, raw)
//	fmt.Printf("%d rejected, %d defaulted\n", result.Stats.Rejected, result.Stats.DefaultedFields)
//
// # Aggregation
//
// SectorTotals and SectorGrowth are pure functions of their input. Growth is
// measured against an explicit reference time so reports are reproducible:
//
//	growth := dataprocessing.SectorGrowth(records, asOf)
package dataprocessing
