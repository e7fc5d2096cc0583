package qca

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Reserved truth-table column names that variables may not use
var reservedColumns = map[string]bool{
	"case_id":   true,
	"case_ids":  true,
	"frequency": true,
}

// CaseRow holds one case's membership in every declared variable
type CaseRow struct {
	CaseID string
	Values map[string]int
}

// Value returns the membership of the case in name, 0 when absent
func (r CaseRow) Value(name string) int {
	return r.Values[name]
}

// MarshalJSON writes the flat {case_id, <variable>: 0|1} shape
func (r CaseRow) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(r.Values))
	for k := range r.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString(`{"case_id":`)
	id, err := json.Marshal(r.CaseID)
	if err != nil {
		return nil, err
	}
	buf.Write(id)
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		fmt.Fprintf(&buf, ":%d", r.Values[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts 0/1 numbers or booleans for variable values
func (r *CaseRow) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	idRaw, ok := raw["case_id"]
	if !ok {
		return NewCaseMatrixError("row without case_id")
	}
	if err := json.Unmarshal(idRaw, &r.CaseID); err != nil {
		return NewCaseMatrixError("case_id must be a string")
	}
	delete(raw, "case_id")

	r.Values = make(map[string]int, len(raw))
	for name, v := range raw {
		value, err := parseMembership(v)
		if err != nil {
			return NewCaseMatrixError("case %q variable %q: %v", r.CaseID, name, err)
		}
		r.Values[name] = value
	}
	return nil
}

func parseMembership(raw json.RawMessage) (int, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("value %s is not 0|1", string(raw))
	}
	switch f {
	case 0:
		return 0, nil
	case 1:
		return 1, nil
	}
	return 0, fmt.Errorf("value %s is not 0|1", string(raw))
}

// CaseMatrix is the case-by-variable boolean table, ordered by case
type CaseMatrix []CaseRow

// CaseIDs returns the case ids in matrix order
func (m CaseMatrix) CaseIDs() []string {
	ids := make([]string, len(m))
	for i, row := range m {
		ids[i] = row.CaseID
	}
	return ids
}

// Column returns the membership vector of one variable in case order
func (m CaseMatrix) Column(name string) []int {
	col := make([]int, len(m))
	for i, row := range m {
		col[i] = row.Value(name)
	}
	return col
}

// Data is the engine's input contract
type Data struct {
	CaseMatrix CaseMatrix `json:"case_matrix"`
	Conditions []string   `json:"conditions"`
	Outcomes   []string   `json:"outcomes"`
}

// Validate checks names, sufficiency of data and cell values.
// Missing cells are not an error here; Normalize fills them with 0.
func (d Data) Validate() error {
	if len(d.Conditions) < MinConditions || len(d.Outcomes) < MinOutcomes || len(d.CaseMatrix) < MinCases {
		return NewInsufficientDataError(len(d.Conditions), len(d.Outcomes), len(d.CaseMatrix))
	}

	declared := make(map[string]Role, len(d.Conditions)+len(d.Outcomes))
	for _, name := range d.Conditions {
		if err := checkVariableName(name); err != nil {
			return err
		}
		if _, dup := declared[name]; dup {
			return NewCaseMatrixError("duplicate condition %q", name)
		}
		declared[name] = RoleCondition
	}
	for _, name := range d.Outcomes {
		if err := checkVariableName(name); err != nil {
			return err
		}
		if role, dup := declared[name]; dup {
			if role == RoleCondition {
				return NewCaseMatrixError("%q is both a condition and an outcome", name)
			}
			return NewCaseMatrixError("duplicate outcome %q", name)
		}
		declared[name] = RoleOutcome
	}
	for _, outcome := range d.Outcomes {
		for _, suffix := range []string{"_consistency", "_outcome"} {
			if _, clash := declared[outcome+suffix]; clash {
				return NewCaseMatrixError("variable %q collides with truth table column of outcome %q", outcome+suffix, outcome)
			}
		}
	}

	seen := make(map[string]bool, len(d.CaseMatrix))
	for i, row := range d.CaseMatrix {
		if strings.TrimSpace(row.CaseID) == "" {
			return NewCaseMatrixError("row %d has empty case_id", i)
		}
		if seen[row.CaseID] {
			return NewCaseMatrixError("duplicate case_id %q", row.CaseID)
		}
		seen[row.CaseID] = true
		for name, v := range row.Values {
			if v != 0 && v != 1 {
				return NewCaseMatrixError("case %q variable %q has value %d", row.CaseID, name, v)
			}
		}
	}
	return nil
}

func checkVariableName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewCaseMatrixError("empty variable name")
	}
	if reservedColumns[name] {
		return NewCaseMatrixError("variable name %q is reserved", name)
	}
	return nil
}

// Normalize returns a copy restricted to declared variables with every
// missing cell set to 0, and the number of cells that were filled.
func (d Data) Normalize() (Data, int) {
	vars := make([]string, 0, len(d.Conditions)+len(d.Outcomes))
	vars = append(vars, d.Conditions...)
	vars = append(vars, d.Outcomes...)

	filled := 0
	matrix := make(CaseMatrix, len(d.CaseMatrix))
	for i, row := range d.CaseMatrix {
		values := make(map[string]int, len(vars))
		for _, name := range vars {
			v, ok := row.Values[name]
			if !ok {
				filled++
			}
			values[name] = v
		}
		matrix[i] = CaseRow{CaseID: row.CaseID, Values: values}
	}

	return Data{
		CaseMatrix: matrix,
		Conditions: append([]string(nil), d.Conditions...),
		Outcomes:   append([]string(nil), d.Outcomes...),
	}, filled
}
