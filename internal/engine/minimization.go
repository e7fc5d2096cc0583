package engine

import (
	"qcalab/domain/qca"
)

// Minimize derives the solution for one outcome from its sufficient rows.
// Every sufficient configuration becomes one full conjunction; no absorption
// or consensus pass is applied, so the result can hold redundant terms.
func Minimize(table *TruthTable, outcome string) qca.MinimizationResult {
	rows := table.SufficientRows(outcome)
	if len(rows) == 0 {
		return qca.MinimizationResult{
			MinimalFormula:  qca.NoSufficientConditions,
			PrimeImplicants: []qca.PrimeImplicant{},
		}
	}

	terms := make([]qca.Term, len(rows))
	implicants := make([]qca.PrimeImplicant, len(rows))
	for i, row := range rows {
		cell, _ := row.Outcome(outcome)
		term := row.Term()
		terms[i] = term
		implicants[i] = qca.PrimeImplicant{
			Formula:     term.String(),
			Consistency: cell.Consistency,
			Frequency:   row.Frequency,
			CaseIDs:     append([]string(nil), row.CaseIDs...),
			Term:        term,
		}
	}

	return qca.MinimizationResult{
		MinimalFormula:  qca.JoinTerms(terms),
		PrimeImplicants: implicants,
	}
}

// MinimizeReduced runs Minimize and adds a Quine-McCluskey reduction of the
// same sufficient rows, checked for logical equivalence with a SAT solver.
func MinimizeReduced(table *TruthTable, outcome string) (qca.MinimizationResult, error) {
	result := Minimize(table, outcome)
	if !result.HasSolution() {
		return result, nil
	}

	rows := table.SufficientRows(outcome)
	minterms := make([][]int, len(rows))
	enumerated := make([]qca.Term, len(rows))
	for i, row := range rows {
		minterms[i] = row.Combination
		enumerated[i] = row.Term()
	}

	reduced := Reduce(table.Conditions, minterms)
	equivalent, err := Equivalent(table.Conditions, enumerated, reduced)
	if err != nil {
		return result, err
	}

	result.ReducedFormula = qca.JoinTerms(reduced)
	result.ReductionVerified = equivalent
	return result, nil
}
