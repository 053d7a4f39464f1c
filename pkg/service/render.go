package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gilchrisn/alignment-charts/pkg/catalog"
	"github.com/gilchrisn/alignment-charts/pkg/models"
	"github.com/gilchrisn/alignment-charts/pkg/pipeline"
	"github.com/gilchrisn/alignment-charts/pkg/render"
	"github.com/gilchrisn/alignment-charts/pkg/results"
)

var (
	// ErrJobNotFound is returned for unknown or expired render IDs.
	ErrJobNotFound = errors.New("render job not found")

	// ErrChartNotFound is returned when a job has no chart of the given name.
	ErrChartNotFound = errors.New("chart not found")

	// ErrInvalidResults marks uploads that are not a usable results table.
	ErrInvalidResults = errors.New("invalid results file")
)

// IsInputError reports whether err was caused by the uploaded data rather
// than by the server.
func IsInputError(err error) bool {
	var ve *results.ValueError
	return errors.Is(err, ErrInvalidResults) || results.IsMissingColumn(err) || errors.As(err, &ve)
}

// Options configures the render service
type Options struct {
	WorkDir         string
	URLPrefix       string
	MaxConcurrent   int
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	Pipeline        pipeline.Options
}

// RenderService renders uploaded results into per-job directories
type RenderService struct {
	catalog  *catalog.Catalog
	renderer *render.Renderer
	opts     Options
	logger   zerolog.Logger

	jobs    map[string]*models.RenderJob
	workers chan struct{}
	mutex   sync.RWMutex

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewRenderService creates the work directory and starts the cleanup loop
func NewRenderService(cat *catalog.Catalog, renderer *render.Renderer, opts Options, logger zerolog.Logger) (*RenderService, error) {
	if opts.WorkDir == "" {
		return nil, fmt.Errorf("work directory is required")
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.URLPrefix == "" {
		opts.URLPrefix = "/api/v1"
	}
	if err := os.MkdirAll(opts.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	s := &RenderService{
		catalog:  cat,
		renderer: renderer,
		opts:     opts,
		logger:   logger,
		jobs:     make(map[string]*models.RenderJob),
		workers:  make(chan struct{}, opts.MaxConcurrent),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	if opts.ResultTTL > 0 && opts.CleanupInterval > 0 {
		go s.cleanupLoop()
	} else {
		close(s.done)
	}

	return s, nil
}

// Catalog returns the catalog every job renders
func (s *RenderService) Catalog() *catalog.Catalog {
	return s.catalog
}

// Submit parses a results CSV and renders it synchronously. A job is stored
// whenever the table parsed, including when rendering failed.
func (s *RenderService) Submit(ctx context.Context, sourceName string, r io.Reader) (*models.RenderJob, error) {
	table, err := results.Read(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResults, err)
	}

	select {
	case s.workers <- struct{}{}:
		defer func() { <-s.workers }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	jobID := uuid.New().String()
	dir := s.jobDir(jobID)
	job := &models.RenderJob{
		ID:         jobID,
		SourceName: sourceName,
		Preset:     s.catalog.Name(),
		Status:     models.RenderStatusRunning,
		RowCount:   table.Len(),
		Charts:     []models.ChartInfo{},
		CreatedAt:  time.Now(),
	}

	s.mutex.Lock()
	s.jobs[jobID] = job
	s.mutex.Unlock()

	logger := s.logger.With().Str("job_id", jobID).Logger()
	logger.Info().
		Str("source", sourceName).
		Int("rows", table.Len()).
		Msg("Render job started")

	opts := s.opts.Pipeline
	opts.OutputDir = dir
	report, runErr := pipeline.New(s.catalog, s.renderer, opts, logger).Run(ctx, table)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	job.CompletedAt = &now

	if runErr != nil {
		job.Status = models.RenderStatusFailed
		job.Error = runErr.Error()
		logger.Error().Err(runErr).Msg("Render job failed")
		return s.snapshot(job), runErr
	}

	for _, chart := range report.Rendered {
		file := filepath.Base(chart.Path)
		job.Charts = append(job.Charts, models.ChartInfo{
			Experiment: chart.Experiment,
			Kind:       string(chart.Kind),
			File:       file,
			Rows:       chart.Rows,
			URL:        fmt.Sprintf("%s/renders/%s/charts/%s", s.opts.URLPrefix, jobID, url.PathEscape(file)),
		})
	}
	job.Skipped = report.Skipped
	job.Failed = report.FailedNames()

	job.Status = models.RenderStatusCompleted
	if err := report.Err(); err != nil {
		job.Status = models.RenderStatusFailed
		job.Error = err.Error()
	}

	logger.Info().
		Str("status", string(job.Status)).
		Int("charts", len(job.Charts)).
		Dur("runtime", report.Runtime).
		Msg("Render job finished")

	return s.snapshot(job), nil
}

// Get retrieves a job by ID
func (s *RenderService) Get(jobID string) (*models.RenderJob, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return s.snapshot(job), nil
}

// List returns all jobs, oldest first
func (s *RenderService) List() []*models.RenderJob {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	jobs := make([]*models.RenderJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, s.snapshot(job))
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

// Count returns the number of stored jobs
func (s *RenderService) Count() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.jobs)
}

// ChartPath resolves a chart of a job by file name or experiment name
func (s *RenderService) ChartPath(jobID, chart string) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if spec, ok := s.catalog.Lookup(chart); ok {
		chart = spec.FileName()
	}
	for _, c := range job.Charts {
		if c.File == chart {
			return filepath.Join(s.jobDir(jobID), c.File), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrChartNotFound, chart)
}

// Delete removes a job and its rendered files
func (s *RenderService) Delete(jobID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.jobs[jobID]; !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	delete(s.jobs, jobID)

	if err := os.RemoveAll(s.jobDir(jobID)); err != nil {
		return fmt.Errorf("failed to remove job files: %w", err)
	}

	s.logger.Info().Str("job_id", jobID).Msg("Render job deleted")
	return nil
}

// Close stops the cleanup loop
func (s *RenderService) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *RenderService) jobDir(jobID string) string {
	return filepath.Join(s.opts.WorkDir, jobID)
}

// snapshot copies a job so callers never share state with the map.
// Must be called with the mutex held.
func (s *RenderService) snapshot(job *models.RenderJob) *models.RenderJob {
	cp := *job
	cp.Charts = append([]models.ChartInfo(nil), job.Charts...)
	cp.Skipped = append([]string(nil), job.Skipped...)
	cp.Failed = append([]string(nil), job.Failed...)
	return &cp
}

// cleanupLoop periodically removes expired jobs
func (s *RenderService) cleanupLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup(time.Now())
		case <-s.stop:
			return
		}
	}
}

// cleanup removes finished jobs older than the result TTL
func (s *RenderService) cleanup(now time.Time) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cutoff := now.Add(-s.opts.ResultTTL)
	cleaned := 0

	for jobID, job := range s.jobs {
		if job.CompletedAt == nil || !job.CompletedAt.Before(cutoff) {
			continue
		}
		delete(s.jobs, jobID)
		if err := os.RemoveAll(s.jobDir(jobID)); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to remove expired job files")
		}
		cleaned++
	}

	if cleaned > 0 {
		s.logger.Info().
			Int("cleaned_jobs", cleaned).
			Msg("Render job cleanup completed")
	}
	return cleaned
}
