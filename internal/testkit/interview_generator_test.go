package testkit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"qcalab/adapters/codebook"
	"qcalab/domain/qca"
	"qcalab/internal"
	"qcalab/internal/conversion"
	"qcalab/internal/engine"
)

func TestInterviewGenerator_Deterministic(t *testing.T) {
	cfg := DefaultInterviewConfig()
	codesA, casesA, err := NewInterviewGenerator(cfg).Generate()
	require.NoError(t, err)
	codesB, casesB, err := NewInterviewGenerator(cfg).Generate()
	require.NoError(t, err)

	assert.Equal(t, codesA, codesB)
	assert.Equal(t, casesA, casesB)
	assert.Len(t, casesA, cfg.InterviewCount)
	require.Len(t, codesA, len(ConditionCodes)+1)

	for _, code := range codesA {
		assert.Equal(t, len(code.Applications), code.Frequency, code.Name)
	}
	require.NoError(t, qca.ValidateCodes(codesA))
}

func TestInterviewGenerator_RejectsBadConfig(t *testing.T) {
	cfg := DefaultInterviewConfig()
	cfg.InterviewCount = 2
	_, _, err := NewInterviewGenerator(cfg).Generate()
	assert.Error(t, err)

	cfg = DefaultInterviewConfig()
	cfg.NoiseRate = 1.5
	_, _, err = NewInterviewGenerator(cfg).Generate()
	assert.Error(t, err)
}

func TestInterviewGenerator_RecoversPlantedRule(t *testing.T) {
	cfg := DefaultInterviewConfig()
	cfg.InterviewCount = 200
	cfg.NoiseRate = 0

	kit, err := NewTestKitWithConfig(cfg)
	require.NoError(t, err)
	data, err := kit.Data()
	require.NoError(t, err)
	assert.Equal(t, ConditionCodes, data.Conditions)
	assert.Equal(t, []string{qca.DefaultOutcomeTag + OutcomeCode}, data.Outcomes)

	e, err := engine.NewEngine(qca.DefaultConfiguration(), internal.NewNopLogger())
	require.NoError(t, err)
	results, err := e.RunAnalysis(context.Background(), data)
	require.NoError(t, err)
	require.NotEmpty(t, results.TruthTable)

	outcome := data.Outcomes[0]
	for _, row := range results.TruthTable {
		member := make(map[string]bool, len(ConditionCodes))
		for _, name := range ConditionCodes {
			member[name] = row.Value(name) == 1
		}
		cell, ok := row.Outcome(outcome)
		require.True(t, ok)

		want := 0
		if PlantedRule(member) {
			want = 1
		}
		assert.Equal(t, want, cell.Bit, "row %s", row.Key())
	}
}

func TestInterviewGenerator_TextOnlyMatchesApplications(t *testing.T) {
	cfg := DefaultInterviewConfig()
	withApps, err := NewTestKitWithConfig(cfg)
	require.NoError(t, err)
	cfg.TextOnly = true
	textOnly, err := NewTestKitWithConfig(cfg)
	require.NoError(t, err)

	codes, cases := textOnly.Codebook()
	for _, code := range codes {
		assert.Nil(t, code.Applications)
	}

	conv, err := conversion.NewConverter(nil, internal.NewNopLogger()).Convert(codes, cases)
	require.NoError(t, err)
	assert.Len(t, conv.Report.LowConfidence, len(ConditionCodes)+1)

	expected, err := withApps.Data()
	require.NoError(t, err)
	assert.Equal(t, expected.CaseMatrix, conv.Data.CaseMatrix)
}

func TestTestKit_WriteCodebook(t *testing.T) {
	kit, err := NewTestKit()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "codebook.json")
	require.NoError(t, kit.WriteCodebook(path))

	codes, cases, err := codebook.NewLoader().ReadCodebook(path)
	require.NoError(t, err)
	wantCodes, wantCases := kit.Codebook()
	assert.Equal(t, wantCodes, codes)
	assert.Equal(t, wantCases, cases)
}

func TestTestKit_EmptyRecordsKeepCalibration(t *testing.T) {
	cfg := DefaultInterviewConfig()
	cfg.ConditionRate = 0
	cfg.NoiseRate = 0
	cfg.Seed = 7
	kit, err := NewTestKitWithConfig(cfg)
	require.NoError(t, err)

	codes, cases := kit.Codebook()
	for _, code := range codes {
		require.True(t, code.HasApplications(), code.Name)
		require.Zero(t, code.Frequency, code.Name)
	}

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "codebook.json")
	require.NoError(t, kit.WriteCodebook(jsonPath))

	raw, err := yaml.Marshal(codebook.Codebook{Codes: codes, Cases: cases})
	require.NoError(t, err)
	yamlPath := filepath.Join(dir, "codebook.yaml")
	require.NoError(t, os.WriteFile(yamlPath, raw, 0o644))

	for _, path := range []string{jsonPath, yamlPath} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			loaded, loadedCases, err := codebook.NewLoader().ReadCodebook(path)
			require.NoError(t, err)
			for _, code := range loaded {
				assert.True(t, code.HasApplications(), code.Name)
			}

			conv, err := conversion.NewConverter(nil, internal.NewNopLogger()).Convert(loaded, loadedCases)
			require.NoError(t, err)
			assert.Empty(t, conv.Report.LowConfidence)
			for _, v := range conv.Report.Variables {
				assert.Equal(t, qca.CalibrationApplications, v.Calibration, v.Name)
				assert.Zero(t, conv.Report.Memberships[v.Name], v.Name)
			}
		})
	}
}
