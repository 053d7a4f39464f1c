package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gilchrisn/alignment-charts/pkg/models"
)

func TestPresets(t *testing.T) {
	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			cat, err := Preset(name)
			if err != nil {
				t.Fatalf("Preset %s invalid: %v", name, err)
			}
			if cat.Len() != 10 {
				t.Errorf("Expected 10 experiments, got %d", cat.Len())
			}
			if cat.Name() != name {
				t.Errorf("Expected name %s, got %s", name, cat.Name())
			}
		})
	}
}

func TestPresetVariants(t *testing.T) {
	standard, _ := Preset(PresetStandard)
	legacy, _ := Preset(PresetLegacy)

	s, ok := standard.Lookup("Error v Time")
	if !ok || !s.LogY || s.Kind != KindLine {
		t.Errorf("Standard error experiment should be a log-scale line, got %+v", s)
	}
	g, ok := standard.Lookup("Gap Costs Interaction")
	if !ok || g.Kind != KindHeatmapGrid {
		t.Errorf("Standard heatmaps should be grids, got %+v", g)
	}

	l, ok := legacy.Lookup("Error Rate vs Time")
	if !ok || l.LogY {
		t.Errorf("Legacy error experiment should be linear, got %+v", l)
	}
	h, ok := legacy.Lookup("Gap Costs Interaction")
	if !ok || h.Kind != KindHeatmap {
		t.Errorf("Legacy heatmaps should be single pivots, got %+v", h)
	}
}

func TestUnknownPreset(t *testing.T) {
	if _, err := Preset("nope"); err == nil {
		t.Error("Expected error for unknown preset")
	}
}

func TestNewValidation(t *testing.T) {
	valid := ExperimentSpec{Name: "A", Kind: KindLine, X: "x", Y: "y", Hue: "h"}

	tests := []struct {
		name  string
		specs []ExperimentSpec
		want  int
	}{
		{"Valid", []ExperimentSpec{valid}, 0},
		{"Duplicate", []ExperimentSpec{valid, valid}, 1},
		{"UnknownKind", []ExperimentSpec{{Name: "B", Kind: "pie", X: "x", Y: "y"}}, 1},
		{"LineWithoutHue", []ExperimentSpec{{Name: "C", Kind: KindLine, X: "x", Y: "y"}}, 1},
		{"HeatmapWithoutZ", []ExperimentSpec{{Name: "D", Kind: KindHeatmap, X: "x", Y: "y"}}, 1},
		{"LogHeatmap", []ExperimentSpec{{Name: "E", Kind: KindHeatmapGrid, X: "x", Y: "y", Z: "z", LogY: true}}, 1},
		{"Empty", []ExperimentSpec{{Kind: KindLine}}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("test", tt.specs...)
			if tt.want == 0 {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				return
			}
			var verrs models.ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Expected ValidationErrors, got %v", err)
			}
			if len(verrs) != tt.want {
				t.Errorf("Expected %d validation errors, got %d: %v", tt.want, len(verrs), verrs)
			}
		})
	}
}

func TestSpecsIsCopy(t *testing.T) {
	cat, _ := Preset(PresetStandard)
	specs := cat.Specs()
	specs[0].Name = "mutated"

	if cat.Specs()[0].Name == "mutated" {
		t.Error("Specs must not expose catalog storage")
	}
}

func TestSpecHelpers(t *testing.T) {
	spec := ExperimentSpec{Name: "Joint Error & Length", Kind: KindHeatmapGrid, X: "a", Y: "b", Z: "c"}

	if got := spec.FileName(); got != "Joint_Error_&_Length.png" {
		t.Errorf("Unexpected file name %q", got)
	}
	if got := spec.GroupColumn(); got != "Algorithm" {
		t.Errorf("Expected default group column Algorithm, got %q", got)
	}
	cols := spec.Columns()
	if len(cols) != 4 || cols[3] != "Algorithm" {
		t.Errorf("Unexpected columns %v", cols)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `experiments:
  - name: Error v Time
    kind: line
    x: Error Rate
    y: Avg Time
    hue: Algorithm
    title: Error Rate vs Average Time
    x_label: Error Rate
    y_label: Average Time (s)
    log_y: true
  - name: Gap Costs Interaction
    kind: heatmap-grid
    x: Gap Opening Cost
    y: Gap Extension Cost
    z: Avg Time
    group_by: Algorithm
    title: Interaction of Gap Costs
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cat, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("Expected 2 experiments, got %d", cat.Len())
	}

	specs := cat.Specs()
	if specs[0].Name != "Error v Time" || !specs[0].LogY || specs[0].XLabel != "Error Rate" {
		t.Errorf("Unexpected first spec %+v", specs[0])
	}
	if specs[1].Kind != KindHeatmapGrid || specs[1].Z != "Avg Time" {
		t.Errorf("Unexpected second spec %+v", specs[1])
	}
}

func TestLoadFileInvalid(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.yaml")
	os.WriteFile(empty, []byte("experiments: []\n"), 0644)
	if _, err := LoadFile(empty); err == nil {
		t.Error("Expected error for catalog without experiments")
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("experiments:\n  - name: X\n    kind: pie\n    x: a\n    y: b\n"), 0644)
	if _, err := LoadFile(bad); err == nil {
		t.Error("Expected validation error")
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestResolve(t *testing.T) {
	cat, err := Resolve(PresetLegacy, "")
	if err != nil || cat.Name() != PresetLegacy {
		t.Errorf("Expected legacy preset, got %v %v", cat, err)
	}
}
