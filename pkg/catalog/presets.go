package catalog

import (
	"fmt"
	"sort"

	r "github.com/gilchrisn/alignment-charts/pkg/results"
)

const (
	// PresetStandard matches the experiment names written by the benchmark
	// harness, with log-scale timings and per-algorithm heatmaps.
	PresetStandard = "standard"
	// PresetLegacy reproduces the first renderer: linear axes, one pivot per heatmap.
	PresetLegacy = "legacy"
)

const avgTimeLabel = "Average Time (s)"

func line(name, x, title string, logY bool) ExperimentSpec {
	return ExperimentSpec{
		Name:   name,
		Kind:   KindLine,
		X:      x,
		Y:      r.ColumnAvgTime,
		Hue:    r.ColumnAlgorithm,
		Title:  title,
		XLabel: x,
		YLabel: avgTimeLabel,
		LogY:   logY,
	}
}

func heatmap(name string, kind Kind, x, y, title string) ExperimentSpec {
	return ExperimentSpec{
		Name:   name,
		Kind:   kind,
		X:      x,
		Y:      y,
		Z:      r.ColumnAvgTime,
		Title:  title,
		XLabel: x,
		YLabel: y,
	}
}

func standardSpecs() []ExperimentSpec {
	return []ExperimentSpec{
		line("Error v Time", r.ColumnErrorRate, "Error Rate vs Average Time", true),
		line("Sequence Length v Time", r.ColumnSequenceLength, "Sequence Length vs Average Time", true),
		line("Gap Opening v Time", r.ColumnGapOpeningCost, "Gap Opening Cost vs Average Time", true),
		line("Gap Extension v Time", r.ColumnGapExtensionCost, "Gap Extension Cost vs Average Time", true),
		line("Mismatch Penalty v Time", r.ColumnMismatchPenalty, "Mismatch Penalty vs Average Time", true),
		heatmap("Joint Error & Length", KindHeatmapGrid, r.ColumnErrorRate, r.ColumnSequenceLength,
			"Joint Impact of Error Rate and Sequence Length on Time"),
		heatmap("Gap Costs Interaction", KindHeatmapGrid, r.ColumnGapOpeningCost, r.ColumnGapExtensionCost,
			"Interaction of Gap Costs"),
		heatmap("Sensitivity Analysis", KindHeatmapGrid, r.ColumnGapOpeningCost, r.ColumnGapExtensionCost,
			"Sensitivity Analysis"),
		line("Error Rate & Complexity", r.ColumnErrorRate, "Error Rate vs Time with Complexity", true),
		heatmap("Length & Gap Penalties", KindHeatmapGrid, r.ColumnSequenceLength, r.ColumnGapOpeningCost,
			"Combination of Sequence Length and Gap Penalties"),
	}
}

func legacySpecs() []ExperimentSpec {
	return []ExperimentSpec{
		line("Error Rate vs Time", r.ColumnErrorRate, "Error Rate vs Average Time", false),
		line("Sequence Length vs Time", r.ColumnSequenceLength, "Sequence Length vs Average Time", false),
		line("Gap Opening Cost vs Time", r.ColumnGapOpeningCost, "Gap Opening Cost vs Average Time", false),
		line("Gap Extension Cost vs Time", r.ColumnGapExtensionCost, "Gap Extension Cost vs Average Time", false),
		line("Mismatch Penalty vs Time", r.ColumnMismatchPenalty, "Mismatch Penalty vs Average Time", false),
		heatmap("Joint Error & Length", KindHeatmap, r.ColumnErrorRate, r.ColumnSequenceLength,
			"Joint Impact of Error Rate and Sequence Length on Time"),
		heatmap("Gap Costs Interaction", KindHeatmap, r.ColumnGapOpeningCost, r.ColumnGapExtensionCost,
			"Interaction of Gap Costs"),
		heatmap("Sensitivity Analysis", KindHeatmap, r.ColumnGapOpeningCost, r.ColumnGapExtensionCost,
			"Sensitivity Analysis"),
		line("Error Rate & Complexity", r.ColumnErrorRate, "Error Rate vs Time with Complexity", false),
		heatmap("Length & Gap Penalties", KindHeatmap, r.ColumnSequenceLength, r.ColumnGapOpeningCost,
			"Combination of Sequence Length and Gap Penalties"),
	}
}

var presets = map[string]func() []ExperimentSpec{
	PresetStandard: standardSpecs,
	PresetLegacy:   legacySpecs,
}

// Preset builds one of the built-in catalogs
func Preset(name string) (*Catalog, error) {
	build, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown catalog preset %q (available: %v)", name, PresetNames())
	}
	return New(name, build()...)
}

// PresetNames lists the built-in catalogs
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
