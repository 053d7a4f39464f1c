package models

import (
	"fmt"
	"time"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (ve ValidationError) Error() string {
	if ve.Value != "" {
		return fmt.Sprintf("validation error in field '%s': %s (value: %s)", ve.Field, ve.Message, ve.Value)
	}
	return fmt.Sprintf("validation error in field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}
	return fmt.Sprintf("%d validation errors: %s (and %d more)", len(ve), ve[0].Error(), len(ve)-1)
}

// APIResponse is the JSON envelope of every chart server response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RenderStatus is the lifecycle state of a render job
type RenderStatus string

const (
	RenderStatusRunning   RenderStatus = "running"
	RenderStatusCompleted RenderStatus = "completed"
	RenderStatusFailed    RenderStatus = "failed"
)

// RenderJob describes one uploaded results file and the charts rendered from it
type RenderJob struct {
	ID          string       `json:"id"`
	SourceName  string       `json:"sourceName"`
	Preset      string       `json:"preset"`
	Status      RenderStatus `json:"status"`
	RowCount    int          `json:"rowCount"`
	Charts      []ChartInfo  `json:"charts"`
	Skipped     []string     `json:"skipped,omitempty"`
	Failed      []string     `json:"failed,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

// ChartInfo points at one rendered PNG of a job
type ChartInfo struct {
	Experiment string `json:"experiment"`
	Kind       string `json:"kind"`
	File       string `json:"file"`
	Rows       int    `json:"rows"`
	URL        string `json:"url"`
}

// ExperimentInfo is the public view of a catalog entry
type ExperimentInfo struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	X     string `json:"x"`
	Y     string `json:"y"`
	Hue   string `json:"hue,omitempty"`
	Z     string `json:"z,omitempty"`
	Title string `json:"title"`
	LogY  bool   `json:"logY,omitempty"`
}

// HealthStatus is returned by the health endpoint
type HealthStatus struct {
	Status    string    `json:"status"`
	Jobs      int       `json:"jobs"`
	Timestamp time.Time `json:"timestamp"`
}
