package run

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"qcalab/domain/core"
	"qcalab/domain/qca"
)

// CodeVersion is recorded with every run for replay
const CodeVersion = "1.0.0"

// Status of a persisted run
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Manifest identifies a run and everything needed to replay it
type Manifest struct {
	RunID       core.RunID  `json:"run_id"`
	Source      string      `json:"source"` // Input file or "api"
	Fingerprint Fingerprint `json:"fingerprint"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Fingerprint ensures deterministic replay: same matrix and configuration
// give the same fingerprint, and the engine gives the same results.
type Fingerprint struct {
	MatrixHash  core.Hash `json:"matrix_hash"`
	ConfigHash  core.Hash `json:"config_hash"`
	CodeVersion string    `json:"code_version"`
	Fingerprint core.Hash `json:"fingerprint"` // Hash of all above
}

// NewFingerprint hashes the input data and configuration
func NewFingerprint(data qca.Data, cfg qca.Configuration) Fingerprint {
	vars := make([]string, 0, len(data.Conditions)+len(data.Outcomes))
	vars = append(vars, data.Conditions...)
	vars = append(vars, data.Outcomes...)

	matrixHash := core.ComputeMatrixFingerprint(data.CaseMatrix.CaseIDs(), vars, func(row int, variable string) int {
		return data.CaseMatrix[row].Value(variable)
	})

	// Configuration has only scalar fields, so encoding is deterministic
	cfgJSON, _ := json.Marshal(cfg)
	configHash := core.NewHash(cfgJSON)

	return Fingerprint{
		MatrixHash:  matrixHash,
		ConfigHash:  configHash,
		CodeVersion: CodeVersion,
		Fingerprint: core.NewHash([]byte(fmt.Sprintf("matrix:%s|conditions:%s|outcomes:%s|config:%s|code:%s",
			matrixHash, strings.Join(data.Conditions, ","), strings.Join(data.Outcomes, ","), configHash, CodeVersion))),
	}
}

// NewManifest creates the manifest for a run that has just finished
func NewManifest(runID core.RunID, source string, data qca.Data, cfg qca.Configuration, createdAt time.Time) Manifest {
	return Manifest{
		RunID:       runID,
		Source:      source,
		Fingerprint: NewFingerprint(data, cfg),
		CreatedAt:   createdAt.UTC(),
	}
}

// Validate checks if the manifest is complete
func (m Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return fmt.Errorf("run manifest: run_id cannot be empty")
	}
	if m.Fingerprint.Fingerprint.IsEmpty() {
		return fmt.Errorf("run manifest: fingerprint cannot be empty")
	}
	if m.CreatedAt.IsZero() {
		return fmt.Errorf("run manifest: created_at cannot be empty")
	}
	return nil
}

// Record is a persisted analysis run
type Record struct {
	Manifest      Manifest          `json:"manifest"`
	Configuration qca.Configuration `json:"configuration"`
	Status        Status            `json:"status"`
	Results       *qca.Results      `json:"results,omitempty"`
}

// Summary is the list view of a run
type Summary struct {
	RunID       core.RunID `json:"run_id" db:"id"`
	Source      string     `json:"source" db:"source"`
	Status      Status     `json:"status" db:"status"`
	Fingerprint core.Hash  `json:"fingerprint" db:"fingerprint"`
	TotalCases  int        `json:"total_cases" db:"total_cases"`
	Conditions  int        `json:"total_conditions" db:"total_conditions"`
	Outcomes    int        `json:"total_outcomes" db:"total_outcomes"`
	CreatedAt   time.Time  `json:"created_at" db:"-"`
}

// Summarize builds the list view of a record
func (r Record) Summarize() Summary {
	s := Summary{
		RunID:       r.Manifest.RunID,
		Source:      r.Manifest.Source,
		Status:      r.Status,
		Fingerprint: r.Manifest.Fingerprint.Fingerprint,
		CreatedAt:   r.Manifest.CreatedAt,
	}
	if r.Results != nil {
		s.TotalCases = r.Results.Metadata.TotalCases
		s.Conditions = r.Results.Metadata.TotalConditions
		s.Outcomes = r.Results.Metadata.TotalOutcomes
	}
	return s
}
