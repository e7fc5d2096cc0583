package ports

import (
	"context"

	"qcalab/domain/core"
	"qcalab/domain/run"
)

// RunRepository persists analysis runs
type RunRepository interface {
	// SaveRun stores a completed or failed run
	SaveRun(ctx context.Context, record *run.Record) error

	// GetRun retrieves a run with its results; core.ErrRunNotFound if absent
	GetRun(ctx context.Context, runID core.RunID) (*run.Record, error)

	// ListRuns returns the most recent runs first
	ListRuns(ctx context.Context, filters RunFilters) ([]run.Summary, error)
}

// RunFilters for querying runs
type RunFilters struct {
	Status *run.Status
	Limit  int
	Offset int
}
