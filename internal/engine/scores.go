package engine

import (
	"github.com/montanaflynn/stats"

	"qcalab/domain/qca"
)

// outcomeScores returns the mean condition-wise sufficiency consistency and
// coverage for one outcome. Diagnostic only; 0 when nothing was computed.
func outcomeScores(results []qca.SufficiencyResult) (consistency, coverage float64) {
	if len(results) == 0 {
		return 0, 0
	}
	cons := make([]float64, len(results))
	covs := make([]float64, len(results))
	for i, r := range results {
		cons[i] = r.Consistency
		covs[i] = r.Coverage
	}
	consistency, _ = stats.Mean(cons)
	coverage, _ = stats.Mean(covs)
	return consistency, coverage
}

// BaseRates returns the share of cases with each variable present
func BaseRates(matrix qca.CaseMatrix, names []string) map[string]float64 {
	rates := make(map[string]float64, len(names))
	for _, name := range names {
		col := matrix.Column(name)
		values := make([]float64, len(col))
		for i, v := range col {
			values[i] = float64(v)
		}
		mean, err := stats.Mean(values)
		if err != nil {
			mean = 0
		}
		rates[name] = mean
	}
	return rates
}
