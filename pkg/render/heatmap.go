package render

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/gilchrisn/alignment-charts/pkg/catalog"
	"github.com/gilchrisn/alignment-charts/pkg/results"
)

const colorBarWidth = 1.2 * vg.Inch

// paletteSize is the number of discrete colours a heat map samples from
// its colour map.
const paletteSize = 256

// pivotGrid adapts a Pivot to plotter.GridXYZ: column j at x=j, row key i at
// y=rows-1-i so the first row key sits at the top.
type pivotGrid struct {
	pivot *Pivot
}

func (g pivotGrid) Dims() (c, r int) {
	rows, cols := g.pivot.Dims()
	return cols, rows
}

func (g pivotGrid) Z(c, r int) float64 {
	rows, _ := g.pivot.Dims()
	return g.pivot.At(rows-1-r, c)
}

func (g pivotGrid) X(c int) float64 { return float64(c) }
func (g pivotGrid) Y(r int) float64 { return float64(r) }

// heatPlotters returns the heat map of pv and, when format is set, one
// label per populated cell. Empty pivots yield no plotters.
func heatPlotters(pv *Pivot, cm palette.ColorMap, format string, labelStyle text.Style) ([]plot.Plotter, error) {
	rows, cols := pv.Dims()
	if rows == 0 || cols == 0 {
		return nil, nil
	}

	hm := plotter.NewHeatMap(pivotGrid{pivot: pv}, cm.Palette(paletteSize))
	hm.Min, hm.Max = cm.Min(), cm.Max()
	out := []plot.Plotter{hm}
	if format == "" {
		return out, nil
	}

	var cells plotter.XYLabels
	var styles []text.Style
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := pv.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			clr, err := cm.At(v)
			if err != nil {
				continue
			}
			cells.XYs = append(cells.XYs, plotter.XY{X: float64(j), Y: float64(rows - 1 - i)})
			cells.Labels = append(cells.Labels, fmt.Sprintf(format, v))

			sty := labelStyle
			sty.XAlign = text.XCenter
			sty.YAlign = text.YCenter
			sty.Color = contrastColor(clr)
			styles = append(styles, sty)
		}
	}
	if len(cells.Labels) == 0 {
		return out, nil
	}

	labels, err := plotter.NewLabels(cells)
	if err != nil {
		return nil, fmt.Errorf("failed to build cell labels: %w", err)
	}
	labels.TextStyle = styles
	return append(out, labels), nil
}

// newColorMap spans [min, max]; a degenerate range is widened so the colour
// bar stays drawable.
func newColorMap(min, max float64, ok bool) palette.ColorMap {
	if !ok {
		min, max = 0, 1
	}
	if min == max {
		min, max = min-0.5, max+0.5
	}
	cm := moreland.Kindlmann()
	cm.SetMin(min)
	cm.SetMax(max)
	return cm
}

// heatmapPlot builds the plot for one pivot with category ticks on both axes.
func heatmapPlot(pv *Pivot, cm palette.ColorMap, format, title, xLabel, yLabel string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.X.Padding = 0
	p.Y.Padding = 0

	rows, cols := pv.Dims()
	xTicks := make([]plot.Tick, cols)
	for j, key := range pv.ColKeys {
		xTicks[j] = plot.Tick{Value: float64(j), Label: key}
	}
	yTicks := make([]plot.Tick, rows)
	for i, key := range pv.RowKeys {
		yTicks[i] = plot.Tick{Value: float64(rows - 1 - i), Label: key}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)

	plotters, err := heatPlotters(pv, cm, format, p.X.Tick.Label)
	if err != nil {
		return nil, err
	}
	p.Add(plotters...)
	return p, nil
}

// colorBarPlot is the vertical legend of a colour map.
func colorBarPlot(cm palette.ColorMap, label string) *plot.Plot {
	p := plot.New()
	p.HideX()
	p.Y.Label.Text = label
	p.Y.Padding = 0
	p.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})
	return p
}

// Heatmap draws the mean of Z for every (Y, X) pair as an annotated grid.
func (r *Renderer) Heatmap(sub *results.Table, spec catalog.ExperimentSpec, path string) error {
	pv, err := BuildPivot(sub, spec.X, spec.Y, spec.Z)
	if err != nil {
		return err
	}

	cm := newColorMap(pv.Range())
	p, err := heatmapPlot(pv, cm, r.opts.CellFormat,
		labelOr(spec.Title, spec.Name),
		labelOr(spec.XLabel, spec.X),
		labelOr(spec.YLabel, spec.Y))
	if err != nil {
		return err
	}

	img := r.newCanvas(r.opts.Width, r.opts.Height)
	dc := draw.New(img)
	width := dc.Max.X - dc.Min.X

	p.Draw(draw.Crop(dc, 0, -colorBarWidth, 0, 0))
	colorBarPlot(cm, spec.Z).Draw(draw.Crop(dc, width-colorBarWidth, 0, 0, 0))

	return writePNG(img, path)
}

// contrastColor picks black or white text for a cell background.
func contrastColor(bg color.Color) color.Color {
	r, g, b, _ := bg.RGBA()
	lum := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 0xffff
	if lum > 0.5 {
		return color.Black
	}
	return color.White
}
