package report

import (
	"context"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"startupetl/internal/errors"
	"startupetl/pkg/contracts/domain"
)

var barColor = color.RGBA{R: 0x21, G: 0x91, B: 0x8c, A: 0xff}

// ChartRenderer draws the sector valuation bar chart.
type ChartRenderer struct {
	path   string
	width  vg.Length
	height vg.Length
	logger *slog.Logger
}

// NewChartRenderer creates a renderer writing to path. The image format
// follows the file extension (.png, .svg, .pdf).
func NewChartRenderer(path string, logger *slog.Logger) *ChartRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChartRenderer{path: path, width: 12 * vg.Inch, height: 8 * vg.Inch, logger: logger}
}

// RenderChart draws one bar per sector in the given order and returns the
// image path. An empty slice gives an empty, labelled chart.
func (c *ChartRenderer) RenderChart(ctx context.Context, totals []domain.SectorValuationSummary) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.NewRenderError("chart rendering cancelled", err)
	}

	p := plot.New()
	p.Title.Text = chartTitle
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = chartXLabel
	p.Y.Label.Text = chartYLabel
	p.X.Label.TextStyle.Font.Size = vg.Points(14)
	p.Y.Label.TextStyle.Font.Size = vg.Points(14)

	if len(totals) > 0 {
		values := make(plotter.Values, len(totals))
		names := make([]string, len(totals))
		for i, t := range totals {
			values[i] = t.TotalValuation.InexactFloat64()
			names[i] = t.Sector
		}

		bars, err := plotter.NewBarChart(values, vg.Points(28))
		if err != nil {
			return "", errors.NewRenderError("failed to build bar chart", err)
		}
		bars.Color = barColor
		bars.LineStyle.Width = 0
		p.Add(bars)
		p.NominalX(names...)

		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return "", errors.NewRenderError("failed to create chart directory", err)
	}
	if err := p.Save(c.width, c.height, c.path); err != nil {
		return "", errors.NewRenderError("failed to save chart", err).WithContext("path", c.path)
	}

	c.logger.InfoContext(ctx, "Chart rendered",
		slog.String("path", c.path),
		slog.Int("sectors", len(totals)))
	return c.path, nil
}
