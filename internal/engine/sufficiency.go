package engine

import (
	"gonum.org/v1/gonum/stat/distuv"

	"qcalab/domain/qca"
)

// AnalyzeSufficiency computes sufficiency of every condition for one outcome.
// Conditions present in no case are skipped rather than reported as zero.
func AnalyzeSufficiency(matrix qca.CaseMatrix, conditions []string, outcome string, threshold float64) []qca.SufficiencyResult {
	outcomeCount := 0
	for _, row := range matrix {
		if row.Value(outcome) == 1 {
			outcomeCount++
		}
	}

	results := make([]qca.SufficiencyResult, 0, len(conditions))
	for _, condition := range conditions {
		both, conditionCount := 0, 0
		for _, row := range matrix {
			if row.Value(condition) == 1 {
				conditionCount++
				if row.Value(outcome) == 1 {
					both++
				}
			}
		}
		if conditionCount == 0 {
			continue
		}

		consistency := float64(both) / float64(conditionCount)
		coverage := 0.0
		if outcomeCount > 0 {
			coverage = float64(both) / float64(outcomeCount)
		}

		results = append(results, qca.SufficiencyResult{
			Condition:    condition,
			Outcome:      outcome,
			Consistency:  consistency,
			Coverage:     coverage,
			IsSufficient: consistency >= threshold,
			PValue:       binomialUpperTail(both, conditionCount, threshold),
		})
	}
	return results
}

// binomialUpperTail is P(X >= k) for X ~ Binomial(n, p). A small value means
// the observed consistency is unlikely if the true consistency were only p.
func binomialUpperTail(k, n int, p float64) float64 {
	if k <= 0 {
		return 1
	}
	if k > n {
		return 0
	}
	switch {
	case p <= 0:
		return 0
	case p >= 1:
		return 1
	}
	b := distuv.Binomial{N: float64(n), P: p}
	tail := b.Survival(float64(k - 1))
	if tail < 0 {
		return 0
	}
	if tail > 1 {
		return 1
	}
	return tail
}
