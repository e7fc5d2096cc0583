package report

import (
	"fmt"
	"io"
	"strings"

	"qcalab/domain/qca"
)

// MarkdownRenderer writes a human-readable report
type MarkdownRenderer struct{}

func (MarkdownRenderer) Format() string      { return qca.OutputMarkdown }
func (MarkdownRenderer) ContentType() string { return "text/markdown; charset=utf-8" }

// Render writes the report sections in a fixed order
func (MarkdownRenderer) Render(w io.Writer, results *qca.Results) error {
	var b strings.Builder
	md := results.Metadata

	b.WriteString("# QCA Analysis Report\n\n")
	if md.RunID != "" {
		fmt.Fprintf(&b, "- Run: `%s`\n", md.RunID)
	}
	if !md.Timestamp.IsZero() {
		fmt.Fprintf(&b, "- Timestamp: %s\n", md.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	fmt.Fprintf(&b, "- Method: %s\n", md.AnalysisMethod)
	fmt.Fprintf(&b, "- Cases: %d, conditions: %d, outcomes: %d\n", md.TotalCases, md.TotalConditions, md.TotalOutcomes)
	fmt.Fprintf(&b, "- Consistency threshold: %.2f, frequency threshold: %d\n", md.ConsistencyThreshold, md.FrequencyThreshold)
	fmt.Fprintf(&b, "- Configurations: %d enumerated, %d logical remainders\n", md.CombinationsEnumerated, md.LogicalRemainders)
	if len(md.LowConfidence) > 0 {
		fmt.Fprintf(&b, "\n> Low-confidence calibration (text match): %s\n", strings.Join(md.LowConfidence, ", "))
	}

	b.WriteString("\n## Truth Table\n\n")
	writeTruthTable(&b, results)

	b.WriteString("\n## Necessary Conditions\n\n")
	if len(results.NecessaryConditions) == 0 {
		b.WriteString("No outcome occurs in any case.\n")
	} else {
		b.WriteString("| Outcome | Condition | Consistency | Coverage | Necessary |\n|---|---|---|---|---|\n")
		for _, n := range results.NecessaryConditions {
			fmt.Fprintf(&b, "| %s | %s | %.3f | %.3f | %s |\n", n.Outcome, n.Condition, n.Consistency, n.Coverage, yesNo(n.IsNecessary))
		}
	}

	b.WriteString("\n## Sufficient Conditions\n\n")
	b.WriteString("| Outcome | Condition | Consistency | Coverage | Sufficient | p |\n|---|---|---|---|---|---|\n")
	for _, s := range results.SufficientConditions {
		fmt.Fprintf(&b, "| %s | %s | %.3f | %.3f | %s | %.4f |\n", s.Outcome, s.Condition, s.Consistency, s.Coverage, yesNo(s.IsSufficient), s.PValue)
	}

	if len(results.MinimizationResults) > 0 {
		b.WriteString("\n## Solutions\n")
		for _, outcome := range md.Outcomes {
			m, ok := results.MinimizationResults[outcome]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "\n### %s\n\n", outcome)
			if !m.HasSolution() {
				fmt.Fprintf(&b, "%s.\n", m.MinimalFormula)
				continue
			}
			fmt.Fprintf(&b, "Solution: `%s`\n\n", m.MinimalFormula)
			if m.ReducedFormula != "" {
				verified := "not verified"
				if m.ReductionVerified {
					verified = "verified equivalent"
				}
				fmt.Fprintf(&b, "Reduced: `%s` (%s)\n\n", m.ReducedFormula, verified)
			}
			b.WriteString("| Configuration | Consistency | Cases |\n|---|---|---|\n")
			for _, pi := range m.PrimeImplicants {
				fmt.Fprintf(&b, "| `%s` | %.3f | %s |\n", pi.Formula, pi.Consistency, strings.Join(pi.CaseIDs, ", "))
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeTruthTable(b *strings.Builder, results *qca.Results) {
	conditions := results.Metadata.Conditions
	outcomes := results.Metadata.Outcomes
	if len(results.TruthTable) == 0 {
		b.WriteString("No configuration reaches the frequency threshold.\n")
		return
	}

	cols := append(append([]string{}, conditions...), "n")
	for _, o := range outcomes {
		cols = append(cols, o+" cons.", o)
	}
	b.WriteString("| " + strings.Join(cols, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat("---|", len(cols)) + "\n")

	for _, r := range results.TruthTable {
		cells := make([]string, 0, len(cols))
		for _, c := range conditions {
			cells = append(cells, fmt.Sprintf("%d", r.Value(c)))
		}
		cells = append(cells, fmt.Sprintf("%d", r.Frequency))
		for _, o := range outcomes {
			cell, _ := r.Outcome(o)
			cells = append(cells, fmt.Sprintf("%.3f", cell.Consistency), fmt.Sprintf("%d", cell.Bit))
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
