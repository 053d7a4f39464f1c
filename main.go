package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gilchrisn/alignment-charts/pkg/config"
	"github.com/gilchrisn/alignment-charts/pkg/pipeline"
	"github.com/gilchrisn/alignment-charts/pkg/render"
	"github.com/gilchrisn/alignment-charts/pkg/results"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Usage: alignment-charts <path_to_results_csv>")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Environment:")
		fmt.Fprintf(stderr, "  %s          optional configuration file\n", config.EnvConfigFile)
		fmt.Fprintln(stderr, "  CHARTS_OUTPUT_DIR      output directory (default: current directory)")
		fmt.Fprintln(stderr, "  CHARTS_CATALOG_PRESET  standard | legacy")
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to load configuration: %v\n", err)
		return 1
	}
	logger := cfg.NewLogger(stderr, "alignment-charts")

	cat, err := cfg.Catalog()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	table, err := results.Load(args[0])
	if err != nil {
		if errors.Is(err, results.ErrFileNotFound) {
			fmt.Fprintf(stderr, "Error: The file %s was not found.\n", args[0])
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	logger.Debug().
		Str("file", args[0]).
		Int("rows", table.Len()).
		Strs("columns", table.Header()).
		Str("catalog", cat.Name()).
		Msg("Results loaded")

	renderer := render.NewRenderer(cfg.RenderOptions(), logger)
	report, err := pipeline.New(cat, renderer, cfg.PipelineOptions(), logger).Run(ctx, table)
	if err != nil {
		var mc *results.MissingColumnError
		if errors.As(err, &mc) {
			fmt.Fprintf(stderr, "Error: column %q is missing from %s\n", mc.Column, args[0])
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	if err := report.Err(); err != nil {
		fmt.Fprintf(stderr, "Error: %d experiment(s) failed: %v\n", len(report.Failed), err)
		return 1
	}

	fmt.Fprintf(stdout, "Graphs saved to %s\n", report.OutputDir)
	return 0
}
