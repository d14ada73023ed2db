package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"startupetl/internal/errors"
	"startupetl/pkg/contracts/domain"
)

// nameMarkers are footnote markers the source sheet appends to company names.
const nameMarkers = "^*"

// valuationReplacer strips thousands separators, currency symbols and the
// billions suffix before decimal parsing.
var valuationReplacer = strings.NewReplacer(",", "", "₹", "", "$", "", "B", "")

// Coercion records a field that could not be parsed and was defaulted.
// Valuations default to zero, entry dates to null.
type Coercion struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Raw    string `json:"raw"`
}

// Rejection records a record dropped for a missing name or sector.
type Rejection struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// TransformStats counts what happened to a batch.
type TransformStats struct {
	Input           int
	Retained        int
	Rejected        int
	DefaultedFields int
	NullDates       int
	UnparsableDates int
}

// Counts converts the stats to the domain counts carried by reports.
func (s TransformStats) Counts() domain.RecordCounts {
	return domain.RecordCounts{
		Input:           s.Input,
		Retained:        s.Retained,
		Rejected:        s.Rejected,
		DefaultedFields: s.DefaultedFields,
		NullDates:       s.NullDates,
		UnparsableDates: s.UnparsableDates,
	}
}

// TransformResult is the cleaned batch plus its audit trail. Rows are
// 1-based positions in the input batch.
type TransformResult struct {
	Records    []domain.StartupRecord
	Stats      TransformStats
	Coercions  []Coercion
	Rejections []Rejection
}

// Transformer cleans raw spreadsheet records into StartupRecords.
type Transformer struct {
	logger   *slog.Logger
	validate *validator.Validate
}

// NewTransformer creates a transformer. A nil logger uses slog.Default.
func NewTransformer(logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	// registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return &Transformer{logger: logger, validate: v}
}

// Transform applies the cleaning rules to every record, preserving order.
// Unparsable valuations become zero and unparsable dates become null; records
// without a name or sector are dropped. Only a required column missing from
// the whole batch is an error.
func (t *Transformer) Transform(ctx context.Context, raw []domain.RawRecord) (*TransformResult, error) {
	result := &TransformResult{
		Records: make([]domain.StartupRecord, 0, len(raw)),
	}
	result.Stats.Input = len(raw)

	if len(raw) == 0 {
		t.logger.InfoContext(ctx, "Transform skipped, empty batch")
		return result, nil
	}

	if missing := missingColumns(raw); len(missing) > 0 {
		return nil, errors.NewParsingError(
			fmt.Sprintf("missing required column(s): %s", strings.Join(missing, ", ")), nil).
			WithContext("columns", missing)
	}

	for i, rec := range raw {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := i + 1

		out := domain.StartupRecord{
			Name:   CleanName(cellString(rec[domain.ColumnCompany])),
			Sector: strings.TrimSpace(cellString(rec[domain.ColumnSector])),
		}
		if err := t.validate.Struct(out); err != nil {
			t.reject(ctx, result, row, rejectionReason(out))
			continue
		}

		var ok bool
		if out.EntryValuation, ok = ParseValuation(rec[domain.ColumnEntryValuation]); !ok {
			t.coerce(ctx, result, row, domain.ColumnEntryValuation, rec[domain.ColumnEntryValuation])
		}
		if out.Valuation, ok = ParseValuation(rec[domain.ColumnValuation]); !ok {
			t.coerce(ctx, result, row, domain.ColumnValuation, rec[domain.ColumnValuation])
		}

		out.EntryDate = ParseEntryDate(rec[domain.ColumnEntry])
		if out.EntryDate == nil {
			result.Stats.NullDates++
			if s := strings.TrimSpace(cellString(rec[domain.ColumnEntry])); s != "" {
				result.Stats.UnparsableDates++
				t.logger.DebugContext(ctx, "Entry date unparsable, set to null",
					slog.Int("row", row),
					slog.String("raw", s))
				result.Coercions = append(result.Coercions, Coercion{Row: row, Column: domain.ColumnEntry, Raw: s})
			}
		}

		out.Location = strings.TrimSpace(cellString(rec[domain.ColumnLocation]))
		out.SelectInvestors = strings.TrimSpace(cellString(rec[domain.ColumnSelectInvestors]))

		result.Records = append(result.Records, out)
	}

	result.Stats.Retained = len(result.Records)

	t.logger.InfoContext(ctx, "Batch transformed",
		slog.Int("input", result.Stats.Input),
		slog.Int("retained", result.Stats.Retained),
		slog.Int("rejected", result.Stats.Rejected),
		slog.Int("defaulted_fields", result.Stats.DefaultedFields),
		slog.Int("null_dates", result.Stats.NullDates),
		slog.Int("unparsable_dates", result.Stats.UnparsableDates))

	return result, nil
}

func (t *Transformer) reject(ctx context.Context, result *TransformResult, row int, reason string) {
	result.Stats.Rejected++
	result.Rejections = append(result.Rejections, Rejection{Row: row, Reason: reason})
	t.logger.WarnContext(ctx, "Record rejected",
		slog.Int("row", row),
		slog.String("reason", reason))
}

func (t *Transformer) coerce(ctx context.Context, result *TransformResult, row int, column string, raw any) {
	s := cellString(raw)
	result.Stats.DefaultedFields++
	result.Coercions = append(result.Coercions, Coercion{Row: row, Column: column, Raw: s})
	t.logger.DebugContext(ctx, "Valuation unparsable, defaulted to zero",
		slog.Int("row", row),
		slog.String("column", column),
		slog.String("raw", s))
}

func rejectionReason(r domain.StartupRecord) string {
	switch {
	case strings.TrimSpace(r.Name) == "" && strings.TrimSpace(r.Sector) == "":
		return "missing company name and sector"
	case strings.TrimSpace(r.Name) == "":
		return "missing company name"
	default:
		return "missing sector"
	}
}

// missingColumns returns the required columns absent from every record.
func missingColumns(raw []domain.RawRecord) []string {
	var missing []string
	for _, col := range domain.RequiredColumns {
		found := false
		for _, rec := range raw {
			if _, ok := rec[col]; ok {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, col)
		}
	}
	return missing
}

// CleanName removes footnote markers. Everything else, including
// surrounding whitespace, is kept as entered.
func CleanName(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(nameMarkers, r) {
			return -1
		}
		return r
	}, s)
}

// ParseValuation converts a valuation cell to a decimal. The second result
// is false when the cell could not be parsed, in which case the value is zero.
func ParseValuation(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(n), true
	case float32:
		return ParseValuation(float64(n))
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case decimal.Decimal:
		return n, true
	}

	s := strings.TrimSpace(valuationReplacer.Replace(cellString(v)))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseEntryDate converts an entry cell to a calendar date in UTC. Numeric
// cells are spreadsheet serial dates; strings are parsed month-first.
// Blank or unparsable cells give nil.
func ParseEntryDate(v any) *time.Time {
	var t time.Time
	switch d := v.(type) {
	case nil:
		return nil
	case time.Time:
		t = d
	case float64:
		parsed, err := excelize.ExcelDateToTime(d, false)
		if err != nil {
			return nil
		}
		t = parsed
	case int:
		return ParseEntryDate(float64(d))
	case int64:
		return ParseEntryDate(float64(d))
	default:
		s := strings.TrimSpace(cellString(v))
		if s == "" {
			return nil
		}
		parsed, err := dateparse.ParseIn(s, time.UTC)
		if err != nil {
			return nil
		}
		t = parsed
	}

	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &date
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
