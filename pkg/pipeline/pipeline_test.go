package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/alignment-charts/pkg/catalog"
	"github.com/gilchrisn/alignment-charts/pkg/render"
	"github.com/gilchrisn/alignment-charts/pkg/results"
)

const resultsCSV = `Algorithm,Experiment,Sample Count,Sequence Length,Error Rate,Mismatch Penalty,Gap Opening Cost,Gap Extension Cost,Avg Time
wfa,Error v Time,100,1000,0.01,4,6,2,0.0012
naive,Error v Time,100,1000,0.01,4,6,2,0.25
wfa,Error v Time,100,1000,0.05,4,6,2,0.0034
naive,Error v Time,100,1000,0.05,4,6,2,0.31
wfa,Gap Costs Interaction,100,1000,0.05,4,6,2,0.003
wfa,Gap Costs Interaction,100,1000,0.05,4,8,2,0.004
naive,Gap Costs Interaction,100,1000,0.05,4,6,3,0.5
`

func newTestPipeline(t *testing.T, cat *catalog.Catalog, opts Options) *Pipeline {
	t.Helper()
	renderer := render.NewRenderer(render.Options{DPI: 30}, zerolog.Nop())
	return New(cat, renderer, opts, zerolog.Nop())
}

func loadResults(t *testing.T, csv string) *results.Table {
	t.Helper()
	table, err := results.Read(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRunStandardPreset(t *testing.T) {
	cat, err := catalog.Preset(catalog.PresetStandard)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir

	report, err := newTestPipeline(t, cat, opts).Run(context.Background(), loadResults(t, resultsCSV))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(report.Rendered) != 2 {
		t.Fatalf("Expected 2 charts, got %d", len(report.Rendered))
	}
	if report.Rendered[0].Experiment != "Error v Time" || report.Rendered[1].Experiment != "Gap Costs Interaction" {
		t.Errorf("Charts should follow catalog order, got %+v", report.Rendered)
	}
	if len(report.Skipped) != cat.Len()-2 {
		t.Errorf("Expected %d skipped experiments, got %v", cat.Len()-2, report.Skipped)
	}
	if report.Err() != nil {
		t.Errorf("Unexpected failures: %v", report.Err())
	}

	files := listDir(t, dir)
	if len(files) != 2 {
		t.Fatalf("Expected exactly 2 files, got %v", files)
	}
	for _, name := range []string{"Error_v_Time.png", "Gap_Costs_Interaction.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s: %v", name, err)
		}
	}
}

func TestRunRenderEmpty(t *testing.T) {
	cat, _ := catalog.New("test",
		catalog.ExperimentSpec{Name: "Absent Experiment", Kind: catalog.KindLine, X: "Error Rate", Y: "Avg Time", Hue: "Algorithm"},
	)
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir
	opts.SkipEmpty = false

	report, err := newTestPipeline(t, cat, opts).Run(context.Background(), loadResults(t, resultsCSV))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.Rendered) != 1 || len(report.Skipped) != 0 {
		t.Errorf("Empty subset should be rendered, got %+v", report)
	}
	if _, err := os.Stat(filepath.Join(dir, "Absent_Experiment.png")); err != nil {
		t.Errorf("Expected empty chart file: %v", err)
	}
}

func missingColumnCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New("test",
		catalog.ExperimentSpec{Name: "Error v Time", Kind: catalog.KindLine, X: "Error Rate", Y: "Avg Time", Hue: "Algorithm"},
		catalog.ExperimentSpec{Name: "Gap Costs Interaction", Kind: catalog.KindHeatmap, X: "Gap Opening Cost", Y: "Gap Extension Cost", Z: "Avg Time"},
	)
	if err != nil {
		t.Fatal(err)
	}
	return cat
}

const noGapCostsCSV = `Algorithm,Experiment,Error Rate,Avg Time
wfa,Error v Time,0.01,0.1
wfa,Gap Costs Interaction,0.01,0.1
`

func TestRunMissingColumnAborts(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()

	_, err := newTestPipeline(t, missingColumnCatalog(t), opts).Run(context.Background(), loadResults(t, noGapCostsCSV))
	if err == nil {
		t.Fatal("Expected run to abort")
	}
	if !results.IsMissingColumn(err) {
		t.Errorf("Expected MissingColumnError, got %v", err)
	}
}

func TestRunMissingColumnContinue(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()
	opts.ContinueOnError = true

	report, err := newTestPipeline(t, missingColumnCatalog(t), opts).Run(context.Background(), loadResults(t, noGapCostsCSV))
	if err != nil {
		t.Fatalf("Run should continue, got %v", err)
	}
	if len(report.Rendered) != 1 {
		t.Errorf("Expected the line chart to render, got %+v", report.Rendered)
	}
	if _, ok := report.Failed["Gap Costs Interaction"]; !ok {
		t.Errorf("Expected recorded failure, got %v", report.Failed)
	}
	if !results.IsMissingColumn(report.Err()) {
		t.Errorf("Report error should carry MissingColumnError, got %v", report.Err())
	}
}

func TestRunWithoutExperimentColumn(t *testing.T) {
	cat, _ := catalog.Preset(catalog.PresetLegacy)
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()

	_, err := newTestPipeline(t, cat, opts).Run(context.Background(), loadResults(t, "Algorithm,Avg Time\nA,1\n"))
	if !results.IsMissingColumn(err) {
		t.Errorf("Expected MissingColumnError, got %v", err)
	}
}

func TestRunParallelMatchesSequential(t *testing.T) {
	cat, _ := catalog.Preset(catalog.PresetStandard)
	table := loadResults(t, resultsCSV)

	seq := DefaultOptions()
	seq.OutputDir = t.TempDir()
	par := DefaultOptions()
	par.OutputDir = t.TempDir()
	par.Workers = 4

	a, err := newTestPipeline(t, cat, seq).Run(context.Background(), table)
	if err != nil {
		t.Fatal(err)
	}
	b, err := newTestPipeline(t, cat, par).Run(context.Background(), table)
	if err != nil {
		t.Fatal(err)
	}

	if len(a.Rendered) != len(b.Rendered) {
		t.Fatalf("Rendered counts differ: %d vs %d", len(a.Rendered), len(b.Rendered))
	}
	for i := range a.Rendered {
		if a.Rendered[i].Experiment != b.Rendered[i].Experiment {
			t.Errorf("Order differs at %d: %s vs %s", i, a.Rendered[i].Experiment, b.Rendered[i].Experiment)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	cat, _ := catalog.Preset(catalog.PresetStandard)
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestPipeline(t, cat, opts).Run(ctx, loadResults(t, resultsCSV)); err == nil {
		t.Error("Expected error from cancelled context")
	}
}

func TestRunValidatesColumnsBeforeRender(t *testing.T) {
	cat, err := catalog.New("test",
		catalog.ExperimentSpec{Name: "Per Algorithm", Kind: catalog.KindHeatmapGrid, X: "Error Rate", Y: "Sequence Length", Z: "Avg Time", GroupBy: "Backend"},
	)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir
	opts.ContinueOnError = true

	csv := "Experiment,Error Rate,Sequence Length,Avg Time\nPer Algorithm,0.1,10,1\n"
	report, err := newTestPipeline(t, cat, opts).Run(context.Background(), loadResults(t, csv))
	if err != nil {
		t.Fatal(err)
	}

	var mc *results.MissingColumnError
	if !errors.As(report.Failed["Per Algorithm"], &mc) || mc.Column != "Backend" {
		t.Errorf("Expected missing Backend column, got %v", report.Failed)
	}
	if files := listDir(t, dir); len(files) != 0 {
		t.Errorf("No chart should be written, got %v", files)
	}
}

func TestReportErrOrder(t *testing.T) {
	cat, err := catalog.New("test",
		catalog.ExperimentSpec{Name: "Zeta", Kind: catalog.KindLine, X: "Error Rate", Y: "Avg Time", Hue: "Algorithm"},
		catalog.ExperimentSpec{Name: "Alpha", Kind: catalog.KindLine, X: "Error Rate", Y: "Avg Time", Hue: "Algorithm"},
		catalog.ExperimentSpec{Name: "Mid", Kind: catalog.KindLine, X: "Error Rate", Y: "Avg Time", Hue: "Algorithm"},
	)
	if err != nil {
		t.Fatal(err)
	}
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()
	opts.ContinueOnError = true
	opts.Workers = 3

	csv := "Experiment,Algorithm,Avg Time\nZeta,wfa,1\nAlpha,wfa,1\nMid,wfa,1\n"
	report, err := newTestPipeline(t, cat, opts).Run(context.Background(), loadResults(t, csv))
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"Zeta", "Alpha", "Mid"}
	if got := report.FailedNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Expected catalog order %v, got %v", want, got)
	}
	first := report.Err().Error()
	for i := 0; i < 5; i++ {
		if report.Err().Error() != first {
			t.Fatal("Report error text should be stable")
		}
	}
	if !strings.HasPrefix(first, `experiment "Zeta"`) {
		t.Errorf("Expected Zeta first, got %q", first)
	}

	manual := &Report{Failed: map[string]error{"b": errors.New("b"), "a": errors.New("a")}}
	if got := manual.Err().Error(); got != "a\nb" {
		t.Errorf("Expected sorted fallback, got %q", got)
	}
}
