package loader

import (
	"fmt"
	"strings"

	"startupetl/pkg/contracts/domain"
)

// recordsFromRows maps rows onto the header row. Short rows are padded with
// empty strings, cells beyond the header are ignored, and rows with no
// non-blank cell are skipped. Headers are trimmed; blank headers are dropped.
func recordsFromRows(rows [][]any) ([]domain.RawRecord, error) {
	if len(rows) == 0 {
		return []domain.RawRecord{}, nil
	}

	header := make([]string, len(rows[0]))
	seen := make(map[string]bool, len(header))
	for i, cell := range rows[0] {
		name := strings.TrimSpace(cellString(cell))
		if name != "" && seen[name] {
			return nil, fmt.Errorf("duplicate header %q in column %d", name, i+1)
		}
		seen[name] = true
		header[i] = name
	}

	records := make([]domain.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		rec := make(domain.RawRecord, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(row) && row[i] != nil {
				rec[name] = row[i]
			} else {
				rec[name] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func stringRows(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, c := range row {
			cells[j] = c
		}
		out[i] = cells
	}
	return out
}

func blankRow(row []any) bool {
	for _, cell := range row {
		if strings.TrimSpace(cellString(cell)) != "" {
			return false
		}
	}
	return true
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
