package catalog

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/gilchrisn/alignment-charts/pkg/models"
	"github.com/gilchrisn/alignment-charts/pkg/results"
)

// Kind selects the drawing routine for an experiment
type Kind string

const (
	KindLine        Kind = "line"
	KindHeatmap     Kind = "heatmap"
	KindHeatmapGrid Kind = "heatmap-grid"
)

// Valid reports whether k is a known plot kind
func (k Kind) Valid() bool {
	switch k {
	case KindLine, KindHeatmap, KindHeatmapGrid:
		return true
	}
	return false
}

// IsHeatmap reports whether k draws pivot grids
func (k Kind) IsHeatmap() bool {
	return k == KindHeatmap || k == KindHeatmapGrid
}

// ExperimentSpec describes how one experiment is filtered and drawn
type ExperimentSpec struct {
	Name    string `mapstructure:"name" json:"name"`
	Kind    Kind   `mapstructure:"kind" json:"kind"`
	X       string `mapstructure:"x" json:"x"`
	Y       string `mapstructure:"y" json:"y"`
	Hue     string `mapstructure:"hue" json:"hue,omitempty"`
	Z       string `mapstructure:"z" json:"z,omitempty"`
	GroupBy string `mapstructure:"group_by" json:"groupBy,omitempty"`
	Title   string `mapstructure:"title" json:"title"`
	XLabel  string `mapstructure:"x_label" json:"xLabel"`
	YLabel  string `mapstructure:"y_label" json:"yLabel"`
	LogY    bool   `mapstructure:"log_y" json:"logY,omitempty"`
}

// Columns returns every table column the experiment reads, in x, y, hue, z, group order.
func (s ExperimentSpec) Columns() []string {
	cols := []string{s.X, s.Y}
	switch s.Kind {
	case KindLine:
		cols = append(cols, s.Hue)
	case KindHeatmap:
		cols = append(cols, s.Z)
	case KindHeatmapGrid:
		cols = append(cols, s.Z, s.GroupColumn())
	}
	return cols
}

// GroupColumn is the partition column of a heatmap grid
func (s ExperimentSpec) GroupColumn() string {
	if s.GroupBy != "" {
		return s.GroupBy
	}
	return results.ColumnAlgorithm
}

// FileName is the output file name: spaces become underscores, plus .png
func (s ExperimentSpec) FileName() string {
	return strings.ReplaceAll(s.Name, " ", "_") + ".png"
}

// Info converts the experiment to its API representation
func (s ExperimentSpec) Info() models.ExperimentInfo {
	return models.ExperimentInfo{
		Name:  s.Name,
		Kind:  string(s.Kind),
		X:     s.X,
		Y:     s.Y,
		Hue:   s.Hue,
		Z:     s.Z,
		Title: s.Title,
		LogY:  s.LogY,
	}
}

// Validate checks the fields required by the experiment kind
func (s ExperimentSpec) Validate() models.ValidationErrors {
	var errs models.ValidationErrors
	field := func(name string) string {
		if s.Name == "" {
			return name
		}
		return s.Name + "." + name
	}

	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, models.ValidationError{Field: "name", Message: "experiment name cannot be empty"})
	}
	if !s.Kind.Valid() {
		errs = append(errs, models.ValidationError{
			Field:   field("kind"),
			Message: "unknown plot kind",
			Value:   string(s.Kind),
		})
		return errs
	}
	if s.X == "" {
		errs = append(errs, models.ValidationError{Field: field("x"), Message: "x column is required"})
	}
	if s.Y == "" {
		errs = append(errs, models.ValidationError{Field: field("y"), Message: "y column is required"})
	}
	if s.Kind == KindLine && s.Hue == "" {
		errs = append(errs, models.ValidationError{Field: field("hue"), Message: "line charts need a hue column"})
	}
	if s.Kind.IsHeatmap() && s.Z == "" {
		errs = append(errs, models.ValidationError{Field: field("z"), Message: "heatmaps need a value column"})
	}
	if s.Kind != KindLine && s.LogY {
		errs = append(errs, models.ValidationError{Field: field("log_y"), Message: "log scale applies to line charts only"})
	}
	return errs
}

// Catalog is an ordered, immutable list of experiment specs
type Catalog struct {
	name  string
	specs []ExperimentSpec
	index map[string]int
}

// New validates specs and builds a catalog that preserves their order
func New(name string, specs ...ExperimentSpec) (*Catalog, error) {
	var errs models.ValidationErrors
	index := make(map[string]int, len(specs))

	for i, spec := range specs {
		errs = append(errs, spec.Validate()...)
		if _, dup := index[spec.Name]; dup {
			errs = append(errs, models.ValidationError{
				Field:   "name",
				Message: "duplicate experiment name",
				Value:   spec.Name,
			})
			continue
		}
		index[spec.Name] = i
	}
	if len(errs) > 0 {
		return nil, errs
	}

	return &Catalog{
		name:  name,
		specs: append([]ExperimentSpec(nil), specs...),
		index: index,
	}, nil
}

// Name identifies the catalog (preset name or file path)
func (c *Catalog) Name() string { return c.name }

// Len returns the number of experiments
func (c *Catalog) Len() int { return len(c.specs) }

// Specs returns a copy of the experiments in catalog order
func (c *Catalog) Specs() []ExperimentSpec {
	return append([]ExperimentSpec(nil), c.specs...)
}

// Lookup finds an experiment by name
func (c *Catalog) Lookup(name string) (ExperimentSpec, bool) {
	i, ok := c.index[name]
	if !ok {
		return ExperimentSpec{}, false
	}
	return c.specs[i], true
}

// Infos returns the API view of every experiment
func (c *Catalog) Infos() []models.ExperimentInfo {
	infos := make([]models.ExperimentInfo, len(c.specs))
	for i, spec := range c.specs {
		infos[i] = spec.Info()
	}
	return infos
}

// LoadFile reads a catalog from a YAML, JSON or TOML file with an
// "experiments" list.
func LoadFile(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var specs []ExperimentSpec
	if err := v.UnmarshalKey("experiments", &specs); err != nil {
		return nil, fmt.Errorf("failed to decode catalog file: %w", err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("catalog file %s defines no experiments", path)
	}

	cat, err := New(path, specs...)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog file %s: %w", path, err)
	}
	return cat, nil
}

// Resolve returns the catalog from file when set, otherwise the named preset.
func Resolve(preset, file string) (*Catalog, error) {
	if file != "" {
		return LoadFile(file)
	}
	return Preset(preset)
}
