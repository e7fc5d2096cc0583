package ports

import (
	"qcalab/domain/qca"
)

// MatrixSpec names the columns of a tabular case matrix. Empty Conditions
// means every non-outcome, non-id column is a condition.
type MatrixSpec struct {
	CaseIDColumn string
	Conditions   []string
	Outcomes     []string
}

// MatrixReader loads engine input from a file
type MatrixReader interface {
	ReadMatrix(path string, spec MatrixSpec) (qca.Data, error)
}

// CodebookReader loads coded interviews (codes and cases) from a file
type CodebookReader interface {
	ReadCodebook(path string) ([]qca.Code, []qca.Case, error)
}
