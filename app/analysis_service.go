package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"qcalab/domain/core"
	"qcalab/domain/qca"
	"qcalab/domain/run"
	"qcalab/internal"
	"qcalab/internal/conversion"
	"qcalab/internal/engine"
	"qcalab/internal/errors"
	"qcalab/ports"
)

// AnalysisService runs convert -> analyze -> persist -> render
type AnalysisService struct {
	config    qca.Configuration
	policy    conversion.SelectionPolicy
	runs      ports.RunRepository // nil disables persistence
	renderers ports.RendererLookup
	logger    *internal.Logger
	now       func() time.Time
}

// AnalysisServiceDeps groups the service's collaborators
type AnalysisServiceDeps struct {
	Runs      ports.RunRepository
	Renderers ports.RendererLookup
	Logger    *internal.Logger
}

// NewAnalysisService creates a service with a default configuration and policy
func NewAnalysisService(config qca.Configuration, policy conversion.SelectionPolicy, deps AnalysisServiceDeps) (*AnalysisService, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.FromDomain(err)
	}
	if policy == nil {
		policy = conversion.CoreCategoryPolicy{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &AnalysisService{
		config:    config,
		policy:    policy,
		runs:      deps.Runs,
		renderers: deps.Renderers,
		logger:    logger.With("analysis_service"),
		now:       time.Now,
	}, nil
}

// Config returns the default run configuration
func (s *AnalysisService) Config() qca.Configuration {
	return s.config
}

// AnalyzeRequest is one analysis of a ready case matrix
type AnalyzeRequest struct {
	Data   qca.Data
	Source string
	// Config overrides the service default when set
	Config        *qca.Configuration
	LowConfidence []string
}

// ConvertRequest is a coded-interview set to turn into a case matrix
type ConvertRequest struct {
	Codes  []qca.Code
	Cases  []qca.Case
	Policy conversion.SelectionPolicy // nil uses the service policy
}

// Convert selects conditions and outcomes and builds the case matrix
func (s *AnalysisService) Convert(req ConvertRequest) (*conversion.Conversion, error) {
	policy := req.Policy
	if policy == nil {
		policy = s.policy
	}
	conv, err := conversion.NewConverter(policy, s.logger).Convert(req.Codes, req.Cases)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	return conv, nil
}

// Analyze runs the engine and persists the run when a repository is set.
// Runs rejected for insufficient data or too many conditions are stored as failed.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) (*run.Record, error) {
	cfg := s.config
	if req.Config != nil {
		cfg = *req.Config
	}
	source := req.Source
	if source == "" {
		source = "api"
	}

	e, err := engine.NewEngine(cfg, s.logger)
	if err != nil {
		return nil, errors.FromDomain(err)
	}

	runID := core.RunID(core.NewID())
	startTime := s.now()
	results, err := e.RunAnalysis(ctx, req.Data)
	if err != nil {
		if qca.IsFatal(err) {
			failed := &run.Record{
				Manifest:      run.NewManifest(runID, source, req.Data, cfg, startTime),
				Configuration: cfg,
				Status:        run.StatusFailed,
			}
			if saveErr := s.save(ctx, failed); saveErr != nil {
				s.logger.Warn("[AnalysisService] failed to record failed run %s: %v", runID, saveErr)
			}
		}
		return nil, errors.FromDomain(err)
	}

	results.Metadata.RunID = runID.String()
	if len(req.LowConfidence) > 0 {
		results.Metadata.LowConfidence = append([]string(nil), req.LowConfidence...)
	}

	record := &run.Record{
		Manifest:      run.NewManifest(runID, source, req.Data, cfg, startTime),
		Configuration: cfg,
		Status:        run.StatusCompleted,
		Results:       results,
	}
	if err := s.save(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("[AnalysisService] run %s: %d cases, %d conditions, %d outcomes (fingerprint %s)",
		runID, results.Metadata.TotalCases, results.Metadata.TotalConditions,
		results.Metadata.TotalOutcomes, record.Manifest.Fingerprint.Fingerprint.Short())
	return record, nil
}

// ConvertAndAnalyze converts a coded-interview set and analyzes the result
func (s *AnalysisService) ConvertAndAnalyze(ctx context.Context, req ConvertRequest, source string, cfg *qca.Configuration) (*run.Record, *conversion.Conversion, error) {
	conv, err := s.Convert(req)
	if err != nil {
		return nil, nil, err
	}
	record, err := s.Analyze(ctx, AnalyzeRequest{
		Data:          conv.Data,
		Source:        source,
		Config:        cfg,
		LowConfidence: conv.Report.LowConfidence,
	})
	if err != nil {
		return nil, conv, err
	}
	return record, conv, nil
}

// GetRun loads a persisted run by id
func (s *AnalysisService) GetRun(ctx context.Context, id string) (*run.Record, error) {
	if s.runs == nil {
		return nil, errors.ConfigInvalid("run storage is not configured")
	}
	runID, err := core.ParseRunID(id)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	record, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		if core.IsNotFoundError(err) {
			return nil, errors.FromDomain(err)
		}
		return nil, errors.DatabaseError(fmt.Sprintf("failed to load run %s", runID), err)
	}
	return record, nil
}

// ListRuns lists persisted runs, newest first
func (s *AnalysisService) ListRuns(ctx context.Context, filters ports.RunFilters) ([]run.Summary, error) {
	if s.runs == nil {
		return nil, errors.ConfigInvalid("run storage is not configured")
	}
	summaries, err := s.runs.ListRuns(ctx, filters)
	if err != nil {
		return nil, errors.DatabaseError("failed to list runs", err)
	}
	return summaries, nil
}

// Renderer resolves the renderer for a format; empty means the configured default
func (s *AnalysisService) Renderer(format string) (ports.ReportRenderer, error) {
	if s.renderers == nil {
		return nil, errors.InternalError("no report renderers configured")
	}
	if format == "" {
		format = s.config.OutputFormat
	}
	r, err := s.renderers(format)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	return r, nil
}

// Render writes results in the given format
func (s *AnalysisService) Render(w io.Writer, results *qca.Results, format string) error {
	r, err := s.Renderer(format)
	if err != nil {
		return err
	}
	if results == nil {
		return errors.InvalidInput("run has no results to render")
	}
	if err := r.Render(w, results); err != nil {
		return errors.Wrapf(err, "failed to render %s report", r.Format())
	}
	return nil
}

func (s *AnalysisService) save(ctx context.Context, record *run.Record) error {
	if s.runs == nil {
		return nil
	}
	if err := s.runs.SaveRun(ctx, record); err != nil {
		return errors.DatabaseError(fmt.Sprintf("failed to save run %s", record.Manifest.RunID), err)
	}
	return nil
}
