// Package exporter writes pipeline results to files for use outside the
// report: sector totals and growth as CSV, the cleaned startup table as CSV,
// and an Excel workbook holding both summaries and the run counts.
//
// CSV files carry a UTF-8 BOM so Excel detects the encoding.
//
//	exp := exporter.NewExporter(paths, cfg.Report, logger)
//	files, err := exp.Export(ctx, summary, records)
package exporter
