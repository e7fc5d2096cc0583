package qca

import (
	"encoding/json"
	"time"
)

// NecessityResult is the necessity of one condition for one outcome.
// Consistency = |O and C| / |O|, Coverage = |O and C| / |C|.
type NecessityResult struct {
	Condition   string  `json:"condition"`
	Outcome     string  `json:"outcome"`
	Consistency float64 `json:"consistency"`
	Coverage    float64 `json:"coverage"`
	IsNecessary bool    `json:"is_necessary"`
}

// SufficiencyResult is the sufficiency of one condition for one outcome.
// Consistency = |C and O| / |C|, Coverage = |C and O| / |O|.
type SufficiencyResult struct {
	Condition    string  `json:"condition"`
	Outcome      string  `json:"outcome"`
	Consistency  float64 `json:"consistency"`
	Coverage     float64 `json:"coverage"`
	IsSufficient bool    `json:"is_sufficient"`
	// PValue is P(X >= consistent cases) under a binomial with p = consistency threshold
	PValue float64 `json:"p_value"`
}

// PrimeImplicant is one sufficient configuration from the truth table
type PrimeImplicant struct {
	Formula     string   `json:"formula"`
	Consistency float64  `json:"consistency"`
	Frequency   int      `json:"frequency"`
	CaseIDs     []string `json:"case_ids"`
	Term        Term     `json:"-"`
}

// UnmarshalJSON restores Term from the formula text
func (p *PrimeImplicant) UnmarshalJSON(data []byte) error {
	type plain PrimeImplicant
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	term, err := ParseTerm(v.Formula)
	if err != nil {
		return err
	}
	v.Term = term
	*p = PrimeImplicant(v)
	return nil
}

// MinimizationResult is the boolean solution for one outcome
type MinimizationResult struct {
	// MinimalFormula is the un-reduced disjunction of sufficient configurations
	MinimalFormula  string           `json:"minimal_formula"`
	PrimeImplicants []PrimeImplicant `json:"prime_implicants"`

	// ReducedFormula is set only when reduction was requested
	ReducedFormula    string `json:"reduced_formula,omitempty"`
	ReductionVerified bool   `json:"reduction_verified,omitempty"`
}

// HasSolution reports whether any configuration was sufficient
func (m MinimizationResult) HasSolution() bool {
	return len(m.PrimeImplicants) > 0
}

// AnalysisMetadata describes one run
type AnalysisMetadata struct {
	RunID                string    `json:"run_id,omitempty"`
	Timestamp            time.Time `json:"timestamp"`
	TotalCases           int       `json:"total_cases"`
	TotalConditions      int       `json:"total_conditions"`
	TotalOutcomes        int       `json:"total_outcomes"`
	AnalysisMethod       string    `json:"analysis_method"`
	ConsistencyThreshold float64   `json:"consistency_threshold"`
	FrequencyThreshold   int       `json:"frequency_threshold"`

	Conditions             []string `json:"conditions"`
	Outcomes               []string `json:"outcomes"`
	CombinationsEnumerated int      `json:"combinations_enumerated"`
	LogicalRemainders      int      `json:"logical_remainders"`
	FilledCells            int      `json:"filled_cells,omitempty"`
	LowConfidence          []string `json:"low_confidence_variables,omitempty"`
}

// Results is the complete output of one analysis run
type Results struct {
	TruthTable           []TruthTableRow               `json:"truth_table"`
	NecessaryConditions  []NecessityResult             `json:"necessary_conditions"`
	SufficientConditions []SufficiencyResult           `json:"sufficient_conditions"`
	MinimizationResults  map[string]MinimizationResult `json:"minimization_results"`
	ConsistencyScores    map[string]float64            `json:"consistency_scores"`
	CoverageScores       map[string]float64            `json:"coverage_scores"`
	Metadata             AnalysisMetadata              `json:"analysis_metadata"`
}

// UnmarshalJSON restores run order in truth-table rows from the metadata
func (r *Results) UnmarshalJSON(data []byte) error {
	type plain Results
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	for i := range v.TruthTable {
		v.TruthTable[i].reorder(v.Metadata.Conditions, v.Metadata.Outcomes)
	}
	*r = Results(v)
	return nil
}

// Necessity looks up a necessity result
func (r *Results) Necessity(condition, outcome string) (NecessityResult, bool) {
	for _, n := range r.NecessaryConditions {
		if n.Condition == condition && n.Outcome == outcome {
			return n, true
		}
	}
	return NecessityResult{}, false
}

// Sufficiency looks up a sufficiency result
func (r *Results) Sufficiency(condition, outcome string) (SufficiencyResult, bool) {
	for _, s := range r.SufficientConditions {
		if s.Condition == condition && s.Outcome == outcome {
			return s, true
		}
	}
	return SufficiencyResult{}, false
}

// Row looks up a published truth-table row by bit string, e.g. "10"
func (r *Results) Row(key string) (TruthTableRow, bool) {
	for _, row := range r.TruthTable {
		if row.Key() == key {
			return row, true
		}
	}
	return TruthTableRow{}, false
}
