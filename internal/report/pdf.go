package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-fonts/liberation/liberationsansbold"
	"github.com/go-fonts/liberation/liberationsansregular"
	"github.com/go-pdf/fpdf"

	"startupetl/internal/errors"
	"startupetl/pkg/contracts/domain"
)

const (
	fontFamily   = "LiberationSans"
	pageMargin   = 54.0
	bodyFontSize = 11.0
	lineHeight   = 14.0
	imageWidth   = 400.0
	imageHeight  = 300.0
)

// DocumentRenderer writes the report as a Letter-size PDF.
type DocumentRenderer struct {
	path   string
	logger *slog.Logger
}

// NewDocumentRenderer creates a renderer writing to path.
func NewDocumentRenderer(path string, logger *slog.Logger) *DocumentRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentRenderer{path: path, logger: logger}
}

// RenderDocument lays out the narrative, both summary tables, the given
// images and the conclusion, and returns the document path.
func (r *DocumentRenderer) RenderDocument(ctx context.Context, n Narrative, totals []domain.SectorValuationSummary,
	growth []domain.SectorGrowthSummary, challenged []domain.SectorGrowthSummary, images []string) (string, error) {

	if err := ctx.Err(); err != nil {
		return "", errors.NewRenderError("document rendering cancelled", err)
	}

	pdf := fpdf.New("P", "pt", "Letter", "")
	// core fonts are cp1252 only; sector and company names may be any script
	pdf.AddUTF8FontFromBytes(fontFamily, "", liberationsansregular.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", liberationsansbold.TTF)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(n.Title, true)
	pdf.SetCreator("startup-etl", true)
	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", 20)
	pdf.MultiCell(0, 26, n.Title, "", "C", false)
	pdf.Ln(12)

	heading(pdf, "Introduction:")
	paragraph(pdf, n.Introduction)

	heading(pdf, "Inferences:")
	for _, inf := range n.Inferences {
		paragraph(pdf, inf)
	}

	heading(pdf, "Industries Facing Challenges:")
	for _, line := range ChallengesText(challenged) {
		paragraph(pdf, line)
	}

	heading(pdf, totalsHeading+":")
	totalRows := make([][]string, len(totals))
	for i, t := range totals {
		totalRows[i] = []string{t.Sector, formatAmount(t.TotalValuation)}
	}
	table(pdf, []string{"Sector", "Total Valuation"}, totalRows)

	heading(pdf, growthHeading+":")
	growthRows := make([][]string, len(growth))
	for i, g := range growth {
		growthRows[i] = []string{g.Sector, formatAmount(g.AverageValuationGrowth)}
	}
	table(pdf, []string{"Sector", "Average Valuation Growth"}, growthRows)

	heading(pdf, "Visualizations:")
	for _, img := range images {
		if _, err := os.Stat(img); err != nil {
			return "", errors.NewRenderError("chart image missing", err).WithContext("image", img)
		}
		if pdf.GetY()+imageHeight > pageHeight(pdf)-pageMargin {
			pdf.AddPage()
		}
		x := (pageWidth(pdf) - imageWidth) / 2
		pdf.ImageOptions(img, x, pdf.GetY(), imageWidth, imageHeight, true,
			fpdf.ImageOptions{ReadDpi: true}, 0, "")
		pdf.Ln(12)
	}

	heading(pdf, "Conclusion:")
	paragraph(pdf, n.Conclusion)

	if err := pdf.Error(); err != nil {
		return "", errors.NewRenderError("failed to lay out document", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return "", errors.NewRenderError("failed to create document directory", err)
	}
	if err := pdf.OutputFileAndClose(r.path); err != nil {
		return "", errors.NewRenderError("failed to write document", err).WithContext("path", r.path)
	}

	r.logger.InfoContext(ctx, "Document rendered",
		slog.String("path", r.path),
		slog.Int("pages", pdf.PageCount()),
		slog.Int("images", len(images)))
	return r.path, nil
}

func heading(pdf *fpdf.Fpdf, text string) {
	pdf.Ln(6)
	pdf.SetFont(fontFamily, "B", 14)
	pdf.MultiCell(0, 18, text, "", "L", false)
	pdf.Ln(2)
}

func paragraph(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont(fontFamily, "", bodyFontSize)
	pdf.MultiCell(0, lineHeight, text, "", "L", false)
	pdf.Ln(4)
}

// table draws a grid with a grey header row and beige body rows.
func table(pdf *fpdf.Fpdf, header []string, rows [][]string) {
	width := (pageWidth(pdf) - 2*pageMargin) / float64(len(header))
	rowHeight := 18.0

	pdf.SetFont(fontFamily, "B", bodyFontSize)
	pdf.SetFillColor(128, 128, 128)
	pdf.SetTextColor(245, 245, 245)
	for _, h := range header {
		pdf.CellFormat(width, rowHeight+6, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(fontFamily, "", bodyFontSize)
	pdf.SetFillColor(245, 245, 220)
	pdf.SetTextColor(0, 0, 0)
	for _, row := range rows {
		for _, cell := range row {
			pdf.CellFormat(width, rowHeight, fit(pdf, cell, width), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(8)
}

// fit truncates s so it fits a table cell.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	limit := width - 6
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return fmt.Sprintf("%s...", string(runes))
}

func pageWidth(pdf *fpdf.Fpdf) float64 {
	w, _ := pdf.GetPageSize()
	return w
}

func pageHeight(pdf *fpdf.Fpdf) float64 {
	_, h := pdf.GetPageSize()
	return h
}
