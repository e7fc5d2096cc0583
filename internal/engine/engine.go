package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"qcalab/domain/core"
	"qcalab/domain/qca"
	"qcalab/internal"
)

// Engine runs crisp-set QCA over one in-memory case set per call. It holds
// only configuration; every run is independent.
type Engine struct {
	config qca.Configuration
	logger *internal.Logger
	now    func() time.Time
}

// outcomeAnalysis is the private result slot of one outcome
type outcomeAnalysis struct {
	necessity    []qca.NecessityResult
	sufficiency  []qca.SufficiencyResult
	minimization qca.MinimizationResult
}

// NewEngine validates the configuration and creates an engine
func NewEngine(config qca.Configuration, logger *internal.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Engine{
		config: config,
		logger: logger.With("engine"),
		now:    time.Now,
	}, nil
}

// Config returns the engine configuration
func (e *Engine) Config() qca.Configuration {
	return e.config
}

// RunAnalysis builds the truth table and the necessity, sufficiency and
// minimization results. Structural errors are returned before any table is
// built; empty denominators and missing solutions are represented in the results.
func (e *Engine) RunAnalysis(ctx context.Context, input qca.Data) (*qca.Results, error) {
	startTime := time.Now()

	if err := input.Validate(); err != nil {
		return nil, err
	}
	if n := len(input.Conditions); n > e.config.MaxConditions {
		return nil, qca.NewCombinationExplosionError(n, e.config.MaxConditions)
	}

	data, filled := input.Normalize()
	if filled > 0 {
		e.logger.Warn("[Engine] %d missing case matrix cells defaulted to 0", filled)
	}
	rates := BaseRates(data.CaseMatrix, data.Outcomes)
	for _, outcome := range data.Outcomes {
		if rate := rates[outcome]; rate == 0 || rate == 1 {
			e.logger.Warn("[Engine] outcome %s is constant across cases (base rate %.0f)", outcome, rate)
		}
	}

	table, err := BuildTruthTable(data, e.config)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("[TruthTable] %d combinations, %d rows published, %d remainders",
		table.Enumerated, len(table.Rows), len(table.Remainders))

	slots := make([]outcomeAnalysis, len(data.Outcomes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Parallelism)
	for i, outcome := range data.Outcomes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slot, err := e.analyzeOutcome(data, table, outcome)
			if err != nil {
				return fmt.Errorf("outcome %s: %w", outcome, err)
			}
			slots[i] = slot
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := &qca.Results{
		TruthTable:           table.Rows,
		NecessaryConditions:  []qca.NecessityResult{},
		SufficientConditions: []qca.SufficiencyResult{},
		MinimizationResults:  make(map[string]qca.MinimizationResult),
		ConsistencyScores:    make(map[string]float64, len(data.Outcomes)),
		CoverageScores:       make(map[string]float64, len(data.Outcomes)),
	}
	if results.TruthTable == nil {
		results.TruthTable = []qca.TruthTableRow{}
	}

	for i, outcome := range data.Outcomes {
		slot := slots[i]
		results.NecessaryConditions = append(results.NecessaryConditions, slot.necessity...)
		results.SufficientConditions = append(results.SufficientConditions, slot.sufficiency...)
		if e.config.GenerateMinimization {
			results.MinimizationResults[outcome] = slot.minimization
		}
		results.ConsistencyScores[outcome], results.CoverageScores[outcome] = outcomeScores(slot.sufficiency)
	}

	results.Metadata = qca.AnalysisMetadata{
		RunID:                  core.NewID().String(),
		Timestamp:              e.now().UTC(),
		TotalCases:             len(data.CaseMatrix),
		TotalConditions:        len(data.Conditions),
		TotalOutcomes:          len(data.Outcomes),
		AnalysisMethod:         e.config.DefaultAnalysisMethod,
		ConsistencyThreshold:   e.config.TruthTableConsistencyThreshold,
		FrequencyThreshold:     e.config.TruthTableFrequencyThreshold,
		Conditions:             data.Conditions,
		Outcomes:               data.Outcomes,
		CombinationsEnumerated: table.Enumerated,
		LogicalRemainders:      len(table.Remainders),
		FilledCells:            filled,
	}

	e.logger.Info("[Engine] analysis complete: %d cases, %d conditions, %d outcomes in %.2fms",
		len(data.CaseMatrix), len(data.Conditions), len(data.Outcomes),
		float64(time.Since(startTime).Nanoseconds())/1e6)

	return results, nil
}

func (e *Engine) analyzeOutcome(data qca.Data, table *TruthTable, outcome string) (outcomeAnalysis, error) {
	slot := outcomeAnalysis{
		necessity:   AnalyzeNecessity(data.CaseMatrix, data.Conditions, outcome),
		sufficiency: AnalyzeSufficiency(data.CaseMatrix, data.Conditions, outcome, e.config.TruthTableConsistencyThreshold),
	}
	if !e.config.GenerateMinimization {
		return slot, nil
	}

	if e.config.ReduceFormula {
		m, err := MinimizeReduced(table, outcome)
		if err != nil {
			return slot, err
		}
		if !m.ReductionVerified && m.HasSolution() {
			e.logger.Warn("[Minimization] reduced formula for %s is not equivalent to the enumerated one", outcome)
		}
		slot.minimization = m
	} else {
		slot.minimization = Minimize(table, outcome)
	}
	return slot, nil
}
