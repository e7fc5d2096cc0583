package engine

import (
	"qcalab/domain/qca"
)

// AnalyzeNecessity computes necessity of every condition for one outcome.
// Returns nil when no case has the outcome: necessity over an empty base is
// undefined, so nothing is emitted for that outcome.
func AnalyzeNecessity(matrix qca.CaseMatrix, conditions []string, outcome string) []qca.NecessityResult {
	outcomeCount := 0
	for _, row := range matrix {
		if row.Value(outcome) == 1 {
			outcomeCount++
		}
	}
	if outcomeCount == 0 {
		return nil
	}

	results := make([]qca.NecessityResult, 0, len(conditions))
	for _, condition := range conditions {
		both, conditionCount := 0, 0
		for _, row := range matrix {
			c := row.Value(condition) == 1
			if c {
				conditionCount++
				if row.Value(outcome) == 1 {
					both++
				}
			}
		}

		consistency := float64(both) / float64(outcomeCount)
		coverage := 0.0
		if conditionCount > 0 {
			coverage = float64(both) / float64(conditionCount)
		}

		results = append(results, qca.NecessityResult{
			Condition:   condition,
			Outcome:     outcome,
			Consistency: consistency,
			Coverage:    coverage,
			IsNecessary: consistency >= qca.NecessityThreshold,
		})
	}
	return results
}
