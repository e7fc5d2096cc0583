package qca

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// OutcomeCell is the per-outcome classification of a truth-table row
type OutcomeCell struct {
	Outcome     string
	Consistency float64 // Fraction of matching cases with outcome = 1
	Bit         int     // 1 iff Consistency >= consistency threshold
}

// TruthTableRow is one boolean configuration of all conditions
type TruthTableRow struct {
	Conditions  []string // Shared, ordered condition names
	Combination []int    // Value per condition, aligned with Conditions
	Frequency   int
	CaseIDs     []string
	Outcomes    []OutcomeCell // Ordered like the run's outcome list
}

// Value returns the row's value for a condition, -1 if unknown
func (r TruthTableRow) Value(condition string) int {
	for i, name := range r.Conditions {
		if name == condition {
			return r.Combination[i]
		}
	}
	return -1
}

// Outcome returns the cell for an outcome
func (r TruthTableRow) Outcome(name string) (OutcomeCell, bool) {
	for _, cell := range r.Outcomes {
		if cell.Outcome == name {
			return cell, true
		}
	}
	return OutcomeCell{}, false
}

// Term returns the full conjunction describing this configuration
func (r TruthTableRow) Term() Term {
	return TermFromCombination(r.Conditions, r.Combination)
}

// Key renders the combination as a bit string like "10"
func (r TruthTableRow) Key() string {
	var sb strings.Builder
	for _, v := range r.Combination {
		fmt.Fprintf(&sb, "%d", v)
	}
	return sb.String()
}

// MarshalJSON writes the flat row shape with keys in condition/outcome order
func (r TruthTableRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key string, value interface{}) error {
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	for i, name := range r.Conditions {
		if err := write(name, r.Combination[i]); err != nil {
			return nil, err
		}
	}
	if err := write("frequency", r.Frequency); err != nil {
		return nil, err
	}
	caseIDs := r.CaseIDs
	if caseIDs == nil {
		caseIDs = []string{}
	}
	if err := write("case_ids", caseIDs); err != nil {
		return nil, err
	}
	for _, cell := range r.Outcomes {
		if err := write(cell.Outcome+"_consistency", cell.Consistency); err != nil {
			return nil, err
		}
		if err := write(cell.Outcome+"_outcome", cell.Bit); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the flat row shape. Conditions and outcomes come back
// in name order; Results.UnmarshalJSON restores run order from metadata.
func (r *TruthTableRow) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["frequency"]; ok {
		if err := json.Unmarshal(v, &r.Frequency); err != nil {
			return fmt.Errorf("truth table frequency: %w", err)
		}
		delete(raw, "frequency")
	}
	if v, ok := raw["case_ids"]; ok {
		if err := json.Unmarshal(v, &r.CaseIDs); err != nil {
			return fmt.Errorf("truth table case_ids: %w", err)
		}
		delete(raw, "case_ids")
	}

	var outcomes []string
	for key := range raw {
		name := strings.TrimSuffix(key, "_consistency")
		if name == key {
			continue
		}
		if _, ok := raw[name+"_outcome"]; ok {
			outcomes = append(outcomes, name)
		}
	}
	sort.Strings(outcomes)

	r.Outcomes = make([]OutcomeCell, 0, len(outcomes))
	for _, name := range outcomes {
		cell := OutcomeCell{Outcome: name}
		if err := json.Unmarshal(raw[name+"_consistency"], &cell.Consistency); err != nil {
			return fmt.Errorf("truth table %s_consistency: %w", name, err)
		}
		if err := json.Unmarshal(raw[name+"_outcome"], &cell.Bit); err != nil {
			return fmt.Errorf("truth table %s_outcome: %w", name, err)
		}
		delete(raw, name+"_consistency")
		delete(raw, name+"_outcome")
		r.Outcomes = append(r.Outcomes, cell)
	}

	conditions := make([]string, 0, len(raw))
	for key := range raw {
		conditions = append(conditions, key)
	}
	sort.Strings(conditions)
	r.Conditions = conditions
	r.Combination = make([]int, len(conditions))
	for i, name := range conditions {
		if err := json.Unmarshal(raw[name], &r.Combination[i]); err != nil {
			return fmt.Errorf("truth table condition %s: %w", name, err)
		}
	}
	return nil
}

// reorder aligns the row with the run's condition and outcome order
func (r *TruthTableRow) reorder(conditions, outcomes []string) {
	if len(conditions) == len(r.Conditions) {
		combination := make([]int, len(conditions))
		for i, name := range conditions {
			v := r.Value(name)
			if v < 0 {
				return
			}
			combination[i] = v
		}
		r.Conditions = conditions
		r.Combination = combination
	}
	if len(outcomes) == len(r.Outcomes) {
		cells := make([]OutcomeCell, 0, len(outcomes))
		for _, name := range outcomes {
			cell, ok := r.Outcome(name)
			if !ok {
				return
			}
			cells = append(cells, cell)
		}
		r.Outcomes = cells
	}
}
