package render

import (
	"fmt"
	"math"

	xfont "golang.org/x/image/font"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/gilchrisn/alignment-charts/pkg/catalog"
	"github.com/gilchrisn/alignment-charts/pkg/results"
)

const gridPanelHeight = 5 * vg.Inch

// GridLayout places names row-major into rows of cols cells. The layout has
// ceil(len(names)/cols) rows; unused cells of the last row are "".
func GridLayout(names []string, cols int) [][]string {
	if cols <= 0 || len(names) == 0 {
		return nil
	}
	rows := (len(names) + cols - 1) / cols
	layout := make([][]string, rows)
	for i := range layout {
		layout[i] = make([]string, cols)
	}
	for k, name := range names {
		layout[k/cols][k%cols] = name
	}
	return layout
}

// GroupPivots partitions table by the group column (first-appearance order)
// and builds one pivot per group. Rows with a missing group value are dropped.
func GroupPivots(table *results.Table, spec catalog.ExperimentSpec) ([]string, map[string]*Pivot, error) {
	group := spec.GroupColumn()
	if err := table.Require(spec.X, spec.Y, spec.Z, group); err != nil {
		return nil, nil, err
	}
	values, err := table.Unique(group)
	if err != nil {
		return nil, nil, err
	}

	var names []string
	pivots := make(map[string]*Pivot, len(values))
	for _, name := range values {
		if results.IsMissing(name) {
			continue
		}
		names = append(names, name)
		sub, err := table.Filter(group, name)
		if err != nil {
			return nil, nil, err
		}
		pv, err := BuildPivot(sub, spec.X, spec.Y, spec.Z)
		if err != nil {
			return nil, nil, err
		}
		pivots[name] = pv
	}
	return names, pivots, nil
}

// HeatmapGrid draws one heatmap per group in a fixed-column grid under a
// shared title. All panels share one colour scale.
func (r *Renderer) HeatmapGrid(sub *results.Table, spec catalog.ExperimentSpec, path string) error {
	names, pivots, err := GroupPivots(sub, spec)
	if err != nil {
		return err
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, pv := range pivots {
		if min, max, ok := pv.Range(); ok {
			lo = math.Min(lo, min)
			hi = math.Max(hi, max)
		}
	}
	cm := newColorMap(lo, hi, !math.IsInf(lo, 1))

	cols := r.opts.GridColumns
	layout := GridLayout(names, cols)

	width := r.opts.Width
	if min := vg.Length(cols)*4*vg.Inch + colorBarWidth; width < min {
		width = min
	}
	height := r.opts.Height
	if h := vg.Length(len(layout))*gridPanelHeight + vg.Inch; height < h {
		height = h
	}

	img := r.newCanvas(width, height)
	dc := draw.New(img)

	titleStyle := plot.New().Title.TextStyle
	titleStyle.Font.Size = vg.Points(16)
	titleStyle.Font.Weight = xfont.WeightBold
	titleStyle.XAlign = text.XCenter
	titleStyle.YAlign = text.YTop
	title := labelOr(spec.Title, spec.Name)
	titleHeight := titleStyle.Height(title) + 2*vg.Millimeter
	dc.FillText(titleStyle, vg.Point{
		X: (dc.Min.X + dc.Max.X) / 2,
		Y: dc.Max.Y - vg.Millimeter,
	}, title)

	if len(layout) > 0 {
		plots := make([][]*plot.Plot, len(layout))
		for i, row := range layout {
			plots[i] = make([]*plot.Plot, cols)
			for j, name := range row {
				if name == "" {
					// Placeholder keeps the alignment rectangular; it is never drawn.
					blank := plot.New()
					blank.HideAxes()
					plots[i][j] = blank
					continue
				}
				panel, err := heatmapPlot(pivots[name], cm, r.opts.CellFormat, name,
					labelOr(spec.XLabel, spec.X),
					labelOr(spec.YLabel, spec.Y))
				if err != nil {
					return fmt.Errorf("panel %q: %w", name, err)
				}
				plots[i][j] = panel
			}
		}

		tiles := draw.Tiles{
			Rows:      len(layout),
			Cols:      cols,
			PadX:      vg.Millimeter * 4,
			PadY:      vg.Millimeter * 4,
			PadTop:    vg.Points(2),
			PadBottom: vg.Points(2),
			PadLeft:   vg.Points(2),
			PadRight:  vg.Points(2),
		}
		body := draw.Crop(dc, 0, -colorBarWidth, 0, -titleHeight)
		canvases := plot.Align(plots, tiles, body)
		for i, row := range layout {
			for j, name := range row {
				if name != "" {
					plots[i][j].Draw(canvases[i][j])
				}
			}
		}
	}

	bar := draw.Crop(dc, width-colorBarWidth, 0, 0, -titleHeight)
	colorBarPlot(cm, spec.Z).Draw(bar)

	return writePNG(img, path)
}
