package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleResults = `Algorithm,Experiment,Sample Count,Sequence Length,Error Rate,Mismatch Penalty,Gap Opening Cost,Gap Extension Cost,Avg Time
wfa,Error v Time,100,1000,0.01,4,6,2,0.0012
naive,Error v Time,100,1000,0.01,4,6,2,0.25
wfa,Error v Time,100,1000,0.05,4,6,2,0.0034
naive,Error v Time,100,1000,0.05,4,6,2,0.31
`

func writeResults(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("CHARTS_CONFIG", "")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no arguments", nil},
		{"too many arguments", []string{"a.csv", "b.csv"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, tt.args...)
			if code != 1 {
				t.Errorf("Expected exit 1, got %d", code)
			}
			if !strings.Contains(stderr, "Usage") {
				t.Errorf("Expected usage on stderr, got %q", stderr)
			}
			if stdout != "" {
				t.Errorf("Expected nothing on stdout, got %q", stdout)
			}
		})
	}
}

func TestRunFileNotFound(t *testing.T) {
	t.Setenv("CHARTS_OUTPUT_DIR", t.TempDir())
	missing := filepath.Join(t.TempDir(), "absent.csv")

	code, _, stderr := runCLI(t, missing)
	if code != 1 {
		t.Errorf("Expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "was not found") {
		t.Errorf("Expected not-found message, got %q", stderr)
	}
}

func TestRunRendersCharts(t *testing.T) {
	out := t.TempDir()
	t.Setenv("CHARTS_OUTPUT_DIR", out)
	t.Setenv("CHARTS_RENDER_DPI", "30")

	code, stdout, stderr := runCLI(t, writeResults(t, sampleResults))
	if code != 0 {
		t.Fatalf("Expected exit 0, got %d: %s", code, stderr)
	}
	if strings.TrimSpace(stdout) != "Graphs saved to "+out {
		t.Errorf("Unexpected stdout %q", stdout)
	}
	if _, err := os.Stat(filepath.Join(out, "Error_v_Time.png")); err != nil {
		t.Errorf("Expected chart file: %v", err)
	}
}

func TestRunMissingColumn(t *testing.T) {
	t.Setenv("CHARTS_OUTPUT_DIR", t.TempDir())
	content := "Algorithm,Experiment,Avg Time\nwfa,Error v Time,0.1\n"

	code, stdout, stderr := runCLI(t, writeResults(t, content))
	if code != 1 {
		t.Errorf("Expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "Error Rate") {
		t.Errorf("Expected missing column name in %q", stderr)
	}
	if strings.Contains(stdout, "Graphs saved") {
		t.Error("Success message printed on failure")
	}
}

func TestRunContinueOnErrorStillFails(t *testing.T) {
	t.Setenv("CHARTS_OUTPUT_DIR", t.TempDir())
	t.Setenv("CHARTS_RENDER_CONTINUE_ON_ERROR", "true")
	content := "Algorithm,Experiment,Avg Time\nwfa,Error v Time,0.1\n"

	code, _, stderr := runCLI(t, writeResults(t, content))
	if code != 1 {
		t.Errorf("Expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "failed") {
		t.Errorf("Expected failure summary, got %q", stderr)
	}
}
