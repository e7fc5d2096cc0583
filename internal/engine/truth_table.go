package engine

import (
	"strings"

	"qcalab/domain/qca"
)

// TruthTable is the enumerated configuration space of one run
type TruthTable struct {
	Conditions []string
	Outcomes   []string

	// Rows holds configurations with frequency >= frequency threshold
	Rows []qca.TruthTableRow
	// Remainders holds the rest: logical remainders and rare configurations
	Remainders []qca.TruthTableRow

	Enumerated int
}

// SufficientRows returns published rows classified as sufficient for outcome
func (t *TruthTable) SufficientRows(outcome string) []qca.TruthTableRow {
	var rows []qca.TruthTableRow
	for _, row := range t.Rows {
		if cell, ok := row.Outcome(outcome); ok && cell.Bit == 1 {
			rows = append(rows, row)
		}
	}
	return rows
}

// BuildTruthTable enumerates every combination of the conditions over a
// normalized case matrix. Cost is O(2^n * (n + m)) after one grouping pass
// over the cases.
func BuildTruthTable(data qca.Data, cfg qca.Configuration) (*TruthTable, error) {
	combos, err := NewCombinations(len(data.Conditions), cfg.MaxConditions)
	if err != nil {
		return nil, err
	}

	// Group cases by their exact condition vector, keeping matrix order
	groups := make(map[string][]int, len(data.CaseMatrix))
	for i, row := range data.CaseMatrix {
		key := conditionKey(row, data.Conditions)
		groups[key] = append(groups[key], i)
	}

	table := &TruthTable{
		Conditions: data.Conditions,
		Outcomes:   data.Outcomes,
		Rows:       make([]qca.TruthTableRow, 0, len(groups)),
	}

	for combos.Next() {
		combination := combos.Combination()
		members := groups[combinationKey(combination)]

		row := qca.TruthTableRow{
			Conditions:  data.Conditions,
			Combination: combination,
			Frequency:   len(members),
			CaseIDs:     make([]string, len(members)),
			Outcomes:    make([]qca.OutcomeCell, len(data.Outcomes)),
		}
		for i, idx := range members {
			row.CaseIDs[i] = data.CaseMatrix[idx].CaseID
		}
		for j, outcome := range data.Outcomes {
			row.Outcomes[j] = classifyOutcome(data.CaseMatrix, members, outcome, cfg.TruthTableConsistencyThreshold)
		}

		if row.Frequency > 0 && row.Frequency >= cfg.TruthTableFrequencyThreshold {
			table.Rows = append(table.Rows, row)
		} else {
			table.Remainders = append(table.Remainders, row)
		}
	}
	table.Enumerated = combos.Seen()

	return table, nil
}

// classifyOutcome computes consistency and the threshold bit for one row.
// An empty row has consistency 0 and bit 0.
func classifyOutcome(matrix qca.CaseMatrix, members []int, outcome string, threshold float64) qca.OutcomeCell {
	cell := qca.OutcomeCell{Outcome: outcome}
	if len(members) == 0 {
		return cell
	}
	positive := 0
	for _, idx := range members {
		if matrix[idx].Value(outcome) == 1 {
			positive++
		}
	}
	cell.Consistency = float64(positive) / float64(len(members))
	if cell.Consistency >= threshold {
		cell.Bit = 1
	}
	return cell
}

func conditionKey(row qca.CaseRow, conditions []string) string {
	var sb strings.Builder
	sb.Grow(len(conditions))
	for _, name := range conditions {
		if row.Value(name) == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

func combinationKey(combination []int) string {
	var sb strings.Builder
	sb.Grow(len(combination))
	for _, v := range combination {
		if v == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
