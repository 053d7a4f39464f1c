package render

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/gilchrisn/alignment-charts/pkg/catalog"
	"github.com/gilchrisn/alignment-charts/pkg/results"
)

// Options controls figure geometry and decoration
type Options struct {
	Width  vg.Length
	Height vg.Length
	DPI    int

	// GridColumns is the number of panels per row of a heatmap grid.
	GridColumns int

	// AuxColumns are appended to line chart titles with their first value.
	AuxColumns []string

	// CellFormat formats heatmap annotations; empty disables them.
	CellFormat string
}

// DefaultOptions matches the 10x6 inch figures of the original charts
func DefaultOptions() Options {
	return Options{
		Width:       10 * vg.Inch,
		Height:      6 * vg.Inch,
		DPI:         100,
		GridColumns: 3,
		AuxColumns:  []string{results.ColumnSampleCount, results.ColumnSequenceLength},
		CellFormat:  "%.2f",
	}
}

// Chart describes one written image
type Chart struct {
	Experiment string
	Kind       catalog.Kind
	Path       string
	Rows       int
}

// Renderer draws experiment subsets to PNG files
type Renderer struct {
	opts   Options
	logger zerolog.Logger
}

// NewRenderer creates a renderer; zero-valued options fall back to defaults
func NewRenderer(opts Options, logger zerolog.Logger) *Renderer {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.DPI <= 0 {
		opts.DPI = def.DPI
	}
	if opts.GridColumns <= 0 {
		opts.GridColumns = def.GridColumns
	}
	return &Renderer{opts: opts, logger: logger}
}

// Render dispatches on the experiment kind and writes exactly one PNG to path.
func (r *Renderer) Render(sub *results.Table, spec catalog.ExperimentSpec, path string) (Chart, error) {
	var err error
	switch spec.Kind {
	case catalog.KindLine:
		err = r.Line(sub, spec, path)
	case catalog.KindHeatmap:
		err = r.Heatmap(sub, spec, path)
	case catalog.KindHeatmapGrid:
		err = r.HeatmapGrid(sub, spec, path)
	default:
		err = fmt.Errorf("unknown plot kind %q", spec.Kind)
	}
	if err != nil {
		return Chart{}, fmt.Errorf("experiment %q: %w", spec.Name, err)
	}

	return Chart{
		Experiment: spec.Name,
		Kind:       spec.Kind,
		Path:       path,
		Rows:       sub.Len(),
	}, nil
}

func (r *Renderer) newCanvas(w, h vg.Length) *vgimg.Canvas {
	return vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(r.opts.DPI))
}

// writePNG encodes img to path, closing the file on every path.
func writePNG(img *vgimg.Canvas, path string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close image file: %w", cerr)
		}
	}()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(file); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

func labelOr(label, fallback string) string {
	if label != "" {
		return label
	}
	return fallback
}
