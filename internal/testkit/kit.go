package testkit

import (
	"encoding/json"
	"fmt"
	"os"

	"qcalab/domain/qca"
	"qcalab/internal"
	"qcalab/internal/conversion"
)

// TestKit provides synthetic coded-interview fixtures
type TestKit struct {
	config InterviewGeneratorConfig
	codes  []qca.Code
	cases  []qca.Case
}

// NewTestKit creates a kit with the default generator configuration
func NewTestKit() (*TestKit, error) {
	return NewTestKitWithConfig(DefaultInterviewConfig())
}

// NewTestKitWithConfig generates the codebook once so every accessor sees the same data
func NewTestKitWithConfig(config InterviewGeneratorConfig) (*TestKit, error) {
	codes, cases, err := NewInterviewGenerator(config).Generate()
	if err != nil {
		return nil, err
	}
	return &TestKit{config: config, codes: codes, cases: cases}, nil
}

// Codebook returns copies of the generated codes and cases
func (k *TestKit) Codebook() ([]qca.Code, []qca.Case) {
	codes := make([]qca.Code, len(k.codes))
	copy(codes, k.codes)
	cases := make([]qca.Case, len(k.cases))
	copy(cases, k.cases)
	return codes, cases
}

// Data converts the codebook into engine input with the default policy
func (k *TestKit) Data() (qca.Data, error) {
	conv, err := conversion.NewConverter(nil, internal.NewNopLogger()).Convert(k.Codebook())
	if err != nil {
		return qca.Data{}, err
	}
	return conv.Data, nil
}

// WriteCodebook writes the codebook as JSON in the shape the codebook loader reads
func (k *TestKit) WriteCodebook(path string) error {
	codes, cases := k.Codebook()
	raw, err := json.MarshalIndent(struct {
		Codes []qca.Code `json:"codes"`
		Cases []qca.Case `json:"cases"`
	}{codes, cases}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write codebook: %w", err)
	}
	return nil
}
