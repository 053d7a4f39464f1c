package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gilchrisn/alignment-charts/pkg/catalog"
	"github.com/gilchrisn/alignment-charts/pkg/render"
	"github.com/gilchrisn/alignment-charts/pkg/results"
)

// Options controls one pass over the catalog
type Options struct {
	OutputDir string

	// SkipEmpty leaves experiments without rows unrendered. When false an
	// empty chart is written, as the first renderer did.
	SkipEmpty bool

	// ContinueOnError records per-experiment failures in the report instead
	// of aborting the run.
	ContinueOnError bool

	// Workers bounds concurrent renders; values below 2 render sequentially.
	Workers int
}

// DefaultOptions renders into the working directory, skipping empty subsets
// and aborting on the first failure.
func DefaultOptions() Options {
	return Options{
		OutputDir: ".",
		SkipEmpty: true,
		Workers:   1,
	}
}

// Report summarises a run
type Report struct {
	OutputDir string
	Rendered  []render.Chart
	Skipped   []string
	Failed    map[string]error
	Runtime   time.Duration

	// failedOrder lists the keys of Failed in catalog order.
	failedOrder []string
}

// FailedNames returns the failed experiments in catalog order. Reports built
// by hand fall back to sorted names.
func (r *Report) FailedNames() []string {
	if len(r.failedOrder) == len(r.Failed) {
		return append([]string(nil), r.failedOrder...)
	}
	names := make([]string, 0, len(r.Failed))
	for name := range r.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Err joins every recorded failure in catalog order, nil when the run was clean.
func (r *Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	names := r.FailedNames()
	errs := make([]error, 0, len(names))
	for _, name := range names {
		errs = append(errs, r.Failed[name])
	}
	return errors.Join(errs...)
}

// Pipeline filters the table per experiment and renders each subset
type Pipeline struct {
	catalog  *catalog.Catalog
	renderer *render.Renderer
	opts     Options
	logger   zerolog.Logger
}

// New creates a pipeline over an immutable catalog
func New(cat *catalog.Catalog, renderer *render.Renderer, opts Options, logger zerolog.Logger) *Pipeline {
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	return &Pipeline{
		catalog:  cat,
		renderer: renderer,
		opts:     opts,
		logger:   logger,
	}
}

// outcome is the result slot of one catalog entry
type outcome struct {
	chart   *render.Chart
	skipped bool
	err     error
}

// Run renders every catalog experiment found in table. Output files are
// named after the experiment; the report lists charts in catalog order.
func (p *Pipeline) Run(ctx context.Context, table *results.Table) (*Report, error) {
	start := time.Now()

	if err := table.Require(results.ColumnExperiment); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	specs := p.catalog.Specs()
	outcomes := make([]outcome, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	workers := p.opts.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, spec := range specs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out := p.runOne(table, spec)
			outcomes[i] = out
			if out.err != nil && !p.opts.ContinueOnError {
				return out.err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		OutputDir: p.opts.OutputDir,
		Failed:    make(map[string]error),
	}
	for i, out := range outcomes {
		switch {
		case out.err != nil:
			report.Failed[specs[i].Name] = out.err
			report.failedOrder = append(report.failedOrder, specs[i].Name)
		case out.skipped:
			report.Skipped = append(report.Skipped, specs[i].Name)
		case out.chart != nil:
			report.Rendered = append(report.Rendered, *out.chart)
		}
	}
	report.Runtime = time.Since(start)

	p.logger.Info().
		Int("rendered", len(report.Rendered)).
		Int("skipped", len(report.Skipped)).
		Int("failed", len(report.Failed)).
		Dur("runtime", report.Runtime).
		Msg("Catalog processed")

	return report, nil
}

func (p *Pipeline) runOne(table *results.Table, spec catalog.ExperimentSpec) outcome {
	logger := p.logger.With().Str("experiment", spec.Name).Logger()

	sub, err := table.Filter(results.ColumnExperiment, spec.Name)
	if err != nil {
		return outcome{err: err}
	}
	if sub.Len() == 0 && p.opts.SkipEmpty {
		logger.Debug().Msg("No rows, skipping")
		return outcome{skipped: true}
	}

	if err := sub.Require(spec.Columns()...); err != nil {
		err = fmt.Errorf("experiment %q: %w", spec.Name, err)
		logger.Error().Err(err).Msg("Missing column")
		return outcome{err: err}
	}

	path := filepath.Join(p.opts.OutputDir, spec.FileName())
	chart, err := p.renderer.Render(sub, spec, path)
	if err != nil {
		logger.Error().Err(err).Msg("Render failed")
		return outcome{err: err}
	}

	logger.Info().
		Str("kind", string(spec.Kind)).
		Int("rows", chart.Rows).
		Str("path", chart.Path).
		Msg("Chart written")
	return outcome{chart: &chart}
}
