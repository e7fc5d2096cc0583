package conversion

import (
	"strings"

	"qcalab/domain/qca"
	"qcalab/internal"
)

// BuildReport describes how membership values were calibrated
type BuildReport struct {
	Variables []qca.Variable `json:"variables"`
	// LowConfidence lists variables calibrated by text matching
	LowConfidence []string `json:"low_confidence_variables"`
	// Memberships counts cells set to 1 per variable
	Memberships map[string]int `json:"memberships"`
}

// MatrixBuilder computes binary case membership for selected variables
type MatrixBuilder struct {
	logger *internal.Logger
}

// NewMatrixBuilder creates a builder
func NewMatrixBuilder(logger *internal.Logger) *MatrixBuilder {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &MatrixBuilder{logger: logger.With("case_matrix")}
}

// Build produces a fully covered case matrix. Membership comes from the
// code's application record; a code without one falls back to a
// case-insensitive name search in the case text and is marked low confidence.
func (b *MatrixBuilder) Build(cases []qca.Case, codes []qca.Code, vars []qca.Variable) (qca.CaseMatrix, BuildReport, error) {
	if err := validateCases(cases); err != nil {
		return nil, BuildReport{}, err
	}

	byName := make(map[string]qca.Code, len(codes))
	for _, code := range codes {
		byName[code.Name] = code
	}

	report := BuildReport{
		Variables:     make([]qca.Variable, len(vars)),
		LowConfidence: []string{},
		Memberships:   make(map[string]int, len(vars)),
	}

	matrix := make(qca.CaseMatrix, len(cases))
	for i, c := range cases {
		matrix[i] = qca.CaseRow{CaseID: c.ID, Values: make(map[string]int, len(vars))}
	}

	for j, v := range vars {
		code, ok := byName[v.Source]
		if !ok {
			return nil, BuildReport{}, qca.NewCaseMatrixError("variable %q has no source code %q", v.Name, v.Source)
		}

		if code.HasApplications() {
			v.Calibration = qca.CalibrationApplications
		} else {
			v.Calibration = qca.CalibrationTextMatch
			report.LowConfidence = append(report.LowConfidence, v.Name)
			b.logger.Warn("[CaseMatrix] code %q has no application record; using text match for %s (low confidence)",
				code.Name, v.Name)
		}
		report.Variables[j] = v

		needle := strings.ToLower(code.Name)
		for i, c := range cases {
			member := 0
			switch v.Calibration {
			case qca.CalibrationApplications:
				if code.AppliedTo(c.ID) {
					member = 1
				}
			case qca.CalibrationTextMatch:
				if needle != "" && strings.Contains(strings.ToLower(c.Text), needle) {
					member = 1
				}
			}
			matrix[i].Values[v.Name] = member
			report.Memberships[v.Name] += member
		}
	}

	b.logger.Debug("[CaseMatrix] built %d cases x %d variables (%d text-matched)",
		len(cases), len(vars), len(report.LowConfidence))
	return matrix, report, nil
}

func validateCases(cases []qca.Case) error {
	seen := make(map[string]bool, len(cases))
	for i, c := range cases {
		if strings.TrimSpace(c.ID) == "" {
			return qca.NewCaseMatrixError("case %d has empty case_id", i)
		}
		if seen[c.ID] {
			return qca.NewCaseMatrixError("duplicate case_id %q", c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}
