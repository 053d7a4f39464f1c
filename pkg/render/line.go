package render

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/gilchrisn/alignment-charts/pkg/catalog"
	"github.com/gilchrisn/alignment-charts/pkg/results"
)

// Series is one line of a line chart
type Series struct {
	Name   string
	Points plotter.XYs
}

// LineSeries groups table rows by the hue column (first-appearance order) and
// returns one series per group. Repeated x values within a group are averaged;
// rows missing x, y or hue are dropped; points are sorted by x.
func LineSeries(table *results.Table, spec catalog.ExperimentSpec) ([]Series, error) {
	if err := table.Require(spec.X, spec.Y, spec.Hue); err != nil {
		return nil, err
	}
	xs, err := table.Floats(spec.X)
	if err != nil {
		return nil, err
	}
	ys, err := table.Floats(spec.Y)
	if err != nil {
		return nil, err
	}
	hues, _ := table.Strings(spec.Hue)

	var order []string
	groups := make(map[string]map[float64][]float64)
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) || results.IsMissing(hues[i]) {
			continue
		}
		g, ok := groups[hues[i]]
		if !ok {
			g = make(map[float64][]float64)
			groups[hues[i]] = g
			order = append(order, hues[i])
		}
		g[xs[i]] = append(g[xs[i]], ys[i])
	}

	series := make([]Series, 0, len(order))
	for _, name := range order {
		byX := groups[name]
		keys := make([]float64, 0, len(byX))
		for x := range byX {
			keys = append(keys, x)
		}
		sort.Float64s(keys)

		pts := make(plotter.XYs, len(keys))
		for i, x := range keys {
			pts[i].X = x
			pts[i].Y = stat.Mean(byX[x], nil)
		}
		series = append(series, Series{Name: name, Points: pts})
	}
	return series, nil
}

// DecorateTitle appends the first observed value of each auxiliary column
// present in the table and not already plotted.
func DecorateTitle(title string, table *results.Table, spec catalog.ExperimentSpec, aux []string) string {
	used := map[string]bool{spec.X: true, spec.Y: true, spec.Hue: true}
	var parts []string
	for _, column := range aux {
		if used[column] {
			continue
		}
		v, ok := table.First(column)
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", column, formatValue(v)))
	}
	if len(parts) == 0 {
		return title
	}
	return fmt.Sprintf("%s (%s)", title, strings.Join(parts, ", "))
}

// Line draws one line per hue group with markers at each point.
func (r *Renderer) Line(sub *results.Table, spec catalog.ExperimentSpec, path string) error {
	series, err := LineSeries(sub, spec)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = DecorateTitle(labelOr(spec.Title, spec.Name), sub, spec, r.opts.AuxColumns)
	p.X.Label.Text = labelOr(spec.XLabel, spec.X)
	p.Y.Label.Text = labelOr(spec.YLabel, spec.Y)
	p.Add(plotter.NewGrid())

	p.Legend.Top = true
	p.Legend.Add(spec.Hue)
	for i, s := range series {
		l, sc, err := plotter.NewLinePoints(s.Points)
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Name, err)
		}
		clr := plotutil.Color(i)
		l.Color = clr
		l.Width = vg.Points(1.5)
		sc.GlyphStyle.Color = clr
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(3)

		p.Add(l, sc)
		p.Legend.Add(s.Name, l, sc)
	}

	if spec.LogY {
		if lo, hi, ok := logRange(series); ok {
			p.Y.Scale = plot.LogScale{}
			p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
			if lo == hi {
				// A flat series would otherwise widen to [y-1, y+1].
				p.Y.Min, p.Y.Max = lo/10, hi*10
			}
		} else {
			r.logger.Warn().
				Str("experiment", spec.Name).
				Msg("Non-positive values, falling back to a linear y axis")
		}
	}

	img := r.newCanvas(r.opts.Width, r.opts.Height)
	p.Draw(draw.New(img))
	return writePNG(img, path)
}

// logRange returns the y extent when every point can sit on a log axis.
func logRange(series []Series) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, pt := range s.Points {
			if pt.Y <= 0 {
				return 0, 0, false
			}
			lo = math.Min(lo, pt.Y)
			hi = math.Max(hi, pt.Y)
		}
	}
	return lo, hi, !math.IsInf(lo, 1)
}

func formatValue(v string) string {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return v
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
