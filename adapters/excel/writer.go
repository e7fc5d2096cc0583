package excel

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"qcalab/domain/qca"
	"qcalab/ports"
)

// Workbook sheet names
const (
	SheetTruthTable   = "Truth Table"
	SheetNecessity    = "Necessity"
	SheetSufficiency  = "Sufficiency"
	SheetMinimization = "Minimization"
	SheetMetadata     = "Metadata"
)

// WorkbookRenderer writes results as an XLSX workbook, one sheet per section
type WorkbookRenderer struct{}

// NewWorkbookRenderer creates the XLSX renderer
func NewWorkbookRenderer() *WorkbookRenderer {
	return &WorkbookRenderer{}
}

func (WorkbookRenderer) Format() string { return qca.OutputXLSX }

func (WorkbookRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Render implements ports.ReportRenderer
func (wr WorkbookRenderer) Render(w io.Writer, results *qca.Results) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetTruthTable); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetNecessity, SheetSufficiency, SheetMinimization, SheetMetadata} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sections := []struct {
		sheet string
		rows  [][]interface{}
	}{
		{SheetTruthTable, truthTableRows(results)},
		{SheetNecessity, necessityRows(results)},
		{SheetSufficiency, sufficiencyRows(results)},
		{SheetMinimization, minimizationRows(results)},
		{SheetMetadata, metadataRows(results)},
	}
	for _, s := range sections {
		if err := writeSheet(f, s.sheet, s.rows, headerStyle); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, headerStyle)
}

func truthTableRows(results *qca.Results) [][]interface{} {
	conditions := results.Metadata.Conditions
	outcomes := results.Metadata.Outcomes

	header := make([]interface{}, 0, len(conditions)+2+2*len(outcomes))
	for _, c := range conditions {
		header = append(header, c)
	}
	header = append(header, "frequency", "case_ids")
	for _, o := range outcomes {
		header = append(header, o+"_consistency", o+"_outcome")
	}

	rows := [][]interface{}{header}
	for _, r := range results.TruthTable {
		row := make([]interface{}, 0, len(header))
		for _, c := range conditions {
			row = append(row, r.Value(c))
		}
		row = append(row, r.Frequency, strings.Join(r.CaseIDs, ", "))
		for _, o := range outcomes {
			cell, _ := r.Outcome(o)
			row = append(row, cell.Consistency, cell.Bit)
		}
		rows = append(rows, row)
	}
	return rows
}

func necessityRows(results *qca.Results) [][]interface{} {
	rows := [][]interface{}{{"outcome", "condition", "consistency", "coverage", "is_necessary"}}
	for _, n := range results.NecessaryConditions {
		rows = append(rows, []interface{}{n.Outcome, n.Condition, n.Consistency, n.Coverage, n.IsNecessary})
	}
	return rows
}

func sufficiencyRows(results *qca.Results) [][]interface{} {
	rows := [][]interface{}{{"outcome", "condition", "consistency", "coverage", "is_sufficient", "p_value"}}
	for _, s := range results.SufficientConditions {
		rows = append(rows, []interface{}{s.Outcome, s.Condition, s.Consistency, s.Coverage, s.IsSufficient, s.PValue})
	}
	return rows
}

func minimizationRows(results *qca.Results) [][]interface{} {
	rows := [][]interface{}{{"outcome", "minimal_formula", "reduced_formula", "implicant", "consistency", "frequency", "case_ids"}}
	for _, outcome := range orderedOutcomes(results) {
		m, ok := results.MinimizationResults[outcome]
		if !ok {
			continue
		}
		if !m.HasSolution() {
			rows = append(rows, []interface{}{outcome, m.MinimalFormula, m.ReducedFormula, "", "", "", ""})
			continue
		}
		for _, pi := range m.PrimeImplicants {
			rows = append(rows, []interface{}{outcome, m.MinimalFormula, m.ReducedFormula,
				pi.Formula, pi.Consistency, pi.Frequency, strings.Join(pi.CaseIDs, ", ")})
		}
	}
	return rows
}

func metadataRows(results *qca.Results) [][]interface{} {
	md := results.Metadata
	return [][]interface{}{
		{"key", "value"},
		{"run_id", md.RunID},
		{"timestamp", md.Timestamp.Format("2006-01-02T15:04:05Z07:00")},
		{"analysis_method", md.AnalysisMethod},
		{"total_cases", md.TotalCases},
		{"total_conditions", md.TotalConditions},
		{"total_outcomes", md.TotalOutcomes},
		{"consistency_threshold", md.ConsistencyThreshold},
		{"frequency_threshold", md.FrequencyThreshold},
		{"combinations_enumerated", md.CombinationsEnumerated},
		{"logical_remainders", md.LogicalRemainders},
		{"low_confidence_variables", strings.Join(md.LowConfidence, ", ")},
	}
}

// orderedOutcomes returns run order when known, else sorted keys
func orderedOutcomes(results *qca.Results) []string {
	if len(results.Metadata.Outcomes) > 0 {
		return results.Metadata.Outcomes
	}
	keys := make([]string, 0, len(results.MinimizationResults))
	for k := range results.MinimizationResults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ ports.ReportRenderer = (*WorkbookRenderer)(nil)
