package codebook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"qcalab/domain/qca"
	"qcalab/ports"
)

// Codebook is the file shape of a coded interview set
type Codebook struct {
	Codes []qca.Code `json:"codes" yaml:"codes"`
	Cases []qca.Case `json:"cases" yaml:"cases"`
}

// Loader reads codebooks and JSON case matrices from disk
type Loader struct{}

// NewLoader creates a file loader
func NewLoader() *Loader {
	return &Loader{}
}

// ReadCodebook implements ports.CodebookReader. The format follows the file
// extension: .yaml/.yml or JSON otherwise.
func (l *Loader) ReadCodebook(path string) ([]qca.Code, []qca.Case, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read codebook %s: %w", path, err)
	}
	cb, err := DecodeCodebook(raw, isYAML(path))
	if err != nil {
		return nil, nil, fmt.Errorf("codebook %s: %w", path, err)
	}
	return cb.Codes, cb.Cases, nil
}

// DecodeCodebook parses a codebook and validates its codes
func DecodeCodebook(raw []byte, asYAML bool) (*Codebook, error) {
	var cb Codebook
	if asYAML {
		if err := yaml.Unmarshal(raw, &cb); err != nil {
			return nil, qca.NewCaseMatrixError("invalid YAML: %v", err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cb); err != nil {
			return nil, qca.NewCaseMatrixError("invalid JSON: %v", err)
		}
	}
	if err := qca.ValidateCodes(cb.Codes); err != nil {
		return nil, err
	}
	return &cb, nil
}

// ReadMatrix implements ports.MatrixReader for JSON engine input
// ({case_matrix, conditions, outcomes}). A non-empty MatrixSpec narrows the variables.
func (l *Loader) ReadMatrix(path string, spec ports.MatrixSpec) (qca.Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return qca.Data{}, fmt.Errorf("failed to read case matrix %s: %w", path, err)
	}
	var data qca.Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return qca.Data{}, qca.NewCaseMatrixError("invalid JSON in %s: %v", path, err)
	}
	if len(spec.Conditions) > 0 {
		data.Conditions = spec.Conditions
	}
	if len(spec.Outcomes) > 0 {
		data.Outcomes = spec.Outcomes
	}
	return data, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

var (
	_ ports.CodebookReader = (*Loader)(nil)
	_ ports.MatrixReader   = (*Loader)(nil)
)
