package render

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/gilchrisn/alignment-charts/pkg/results"
)

// Pivot is a 2-D reshaping of a table: one row per distinct y value, one
// column per distinct x value, each cell the arithmetic mean of z over the
// rows that map to it. Cells without data are NaN.
type Pivot struct {
	RowKeys []string
	ColKeys []string

	values *mat.Dense
	counts []int
}

// axisKey is one distinct value of a pivot axis
type axisKey struct {
	label string
	num   float64
}

// BuildPivot reshapes table into a Pivot indexed by (y -> row, x -> column).
// Rows with a missing x or y are dropped, missing z values do not contribute.
func BuildPivot(table *results.Table, x, y, z string) (*Pivot, error) {
	if err := table.Require(x, y, z); err != nil {
		return nil, err
	}

	xs, _ := table.Strings(x)
	ys, _ := table.Strings(y)
	zs, err := table.Floats(z)
	if err != nil {
		return nil, err
	}

	cols := newAxis(xs)
	rows := newAxis(ys)

	p := &Pivot{
		RowKeys: labels(rows.keys),
		ColKeys: labels(cols.keys),
	}
	nr, nc := len(rows.keys), len(cols.keys)
	if nr == 0 || nc == 0 {
		return p, nil
	}

	cells := make([][]float64, nr*nc)
	for i := range zs {
		ci, okx := cols.lookup(xs[i])
		ri, oky := rows.lookup(ys[i])
		if !okx || !oky || math.IsNaN(zs[i]) {
			continue
		}
		cells[ri*nc+ci] = append(cells[ri*nc+ci], zs[i])
	}

	data := make([]float64, nr*nc)
	p.counts = make([]int, nr*nc)
	for k, vals := range cells {
		p.counts[k] = len(vals)
		if len(vals) == 0 {
			data[k] = math.NaN()
			continue
		}
		data[k] = stat.Mean(vals, nil)
	}
	p.values = mat.NewDense(nr, nc, data)

	return p, nil
}

// Dims returns the number of rows and columns
func (p *Pivot) Dims() (rows, cols int) {
	return len(p.RowKeys), len(p.ColKeys)
}

// At returns the cell mean, NaN when no row contributed
func (p *Pivot) At(row, col int) float64 {
	if p.values == nil {
		return math.NaN()
	}
	return p.values.At(row, col)
}

// Count returns the number of rows averaged into a cell
func (p *Pivot) Count(row, col int) int {
	if p.counts == nil {
		return 0
	}
	return p.counts[row*len(p.ColKeys)+col]
}

// Range returns the smallest and largest populated cell values.
func (p *Pivot) Range() (min, max float64, ok bool) {
	present := p.present()
	if len(present) == 0 {
		return 0, 0, false
	}
	return floats.Min(present), floats.Max(present), true
}

func (p *Pivot) present() []float64 {
	if p.values == nil {
		return nil
	}
	var out []float64
	for _, v := range p.values.RawMatrix().Data {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// axis holds the distinct non-missing values of one pivot dimension, sorted
// numerically when they all parse as numbers and lexically otherwise.
type axis struct {
	keys    []axisKey
	index   map[string]int
	numeric bool
}

func newAxis(values []string) *axis {
	a := &axis{numeric: true}
	for _, v := range values {
		if results.IsMissing(v) {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			a.numeric = false
			break
		}
	}

	a.index = make(map[string]int)
	for _, v := range values {
		if results.IsMissing(v) {
			continue
		}
		key := a.key(v)
		if _, ok := a.index[key]; ok {
			continue
		}
		k := axisKey{label: key}
		if a.numeric {
			k.num, _ = strconv.ParseFloat(v, 64)
		}
		a.index[key] = len(a.keys)
		a.keys = append(a.keys, k)
	}

	sort.Slice(a.keys, func(i, j int) bool {
		if a.numeric {
			return a.keys[i].num < a.keys[j].num
		}
		return a.keys[i].label < a.keys[j].label
	})
	for i, k := range a.keys {
		a.index[k.label] = i
	}
	return a
}

func (a *axis) key(v string) string {
	if a.numeric {
		return normalizeKey(v)
	}
	return v
}

// lookup returns the position of a raw cell value
func (a *axis) lookup(v string) (int, bool) {
	if results.IsMissing(v) {
		return 0, false
	}
	i, ok := a.index[a.key(v)]
	return i, ok
}

// normalizeKey renders numeric cells in shortest form so "0.010000" and
// "0.01" share a cell.
func normalizeKey(v string) string {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) {
		return v
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func labels(keys []axisKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.label
	}
	return out
}
