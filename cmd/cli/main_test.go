package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcalab/domain/qca"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"DB_DRIVER", "DATABASE_URL", "QCA_CONFIG_FILE", "QCA_OUTPUT_FORMAT",
		"QCA_SELECTION_POLICY", "QCA_SELECTION_OUTCOMES", "QCA_CORE_MARKERS",
		"QCA_CONSISTENCY_THRESHOLD", "QCA_FREQUENCY_THRESHOLD", "QCA_REDUCE_FORMULA",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateConvertAnalyze(t *testing.T) {
	dir := isolateEnv(t)
	codebookPath := filepath.Join(dir, "codebook.json")
	matrixPath := filepath.Join(dir, "matrix.json")

	_, err := execute(t, "generate", "--interviews", "30", "--seed", "3", "-o", codebookPath)
	require.NoError(t, err)

	_, err = execute(t, "convert", codebookPath, "-o", matrixPath)
	require.NoError(t, err)

	raw, err := os.ReadFile(matrixPath)
	require.NoError(t, err)
	var data qca.Data
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, []string{"Funding", "Champion", "Training", "Resistance"}, data.Conditions)
	assert.Equal(t, []string{"outcome_Adoption"}, data.Outcomes)
	assert.Len(t, data.CaseMatrix, 30)

	out, err := execute(t, "analyze", matrixPath, "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "outcome_Adoption")

	out, err = execute(t, "run", codebookPath)
	require.NoError(t, err)
	var results qca.Results
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.Equal(t, 30, results.Metadata.TotalCases)
}

func TestAnalyzeCSV(t *testing.T) {
	dir := isolateEnv(t)
	path := filepath.Join(dir, "cases.csv")
	require.NoError(t, os.WriteFile(path, []byte("case_id,A,B,outcome_Y\nc1,1,1,1\nc2,1,0,1\nc3,0,1,0\nc4,0,0,0\n"), 0o644))

	out, err := execute(t, "analyze", path, "--reduce")
	require.NoError(t, err)

	var results qca.Results
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	m := results.MinimizationResults["outcome_Y"]
	assert.Equal(t, "A * B + A * ~B", m.MinimalFormula)
	assert.Equal(t, "A", m.ReducedFormula)

	xlsx := filepath.Join(dir, "report.xlsx")
	_, err = execute(t, "analyze", path, "--format", "xlsx", "-o", xlsx)
	require.NoError(t, err)
	info, err := os.Stat(xlsx)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	_, err = execute(t, "analyze", path, "--conditions", "A,B", "--outcomes", "A")
	assert.Error(t, err, "A cannot be both condition and outcome")
}

func TestConvert_ExplicitPolicy(t *testing.T) {
	dir := isolateEnv(t)
	codebookPath := filepath.Join(dir, "codebook.json")
	_, err := execute(t, "generate", "-o", codebookPath)
	require.NoError(t, err)

	out, err := execute(t, "convert", codebookPath, "--policy", "explicit", "--outcome-codes", "Resistance")
	require.NoError(t, err)
	var data qca.Data
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, []string{"outcome_Resistance"}, data.Outcomes)

	_, err = execute(t, "convert", codebookPath, "--policy", "explicit")
	assert.ErrorIs(t, err, qca.ErrInvalidConfiguration)
}

func TestSaveAndMigrate_SQLite(t *testing.T) {
	dir := isolateEnv(t)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", filepath.Join(dir, "runs.db"))

	codebookPath := filepath.Join(dir, "codebook.json")
	_, err := execute(t, "generate", "-o", codebookPath)
	require.NoError(t, err)

	_, err = execute(t, "run", codebookPath, "--save")
	require.NoError(t, err)

	out, err := execute(t, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "001\tapplied")

	out, err = execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "applied 0 migrations")
}

func TestConfigFlagDoesNotTouchEnvironment(t *testing.T) {
	dir := isolateEnv(t)
	cfgPath := filepath.Join(dir, "qca.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("qca:\n  output_format: markdown\n"), 0o644))
	path := filepath.Join(dir, "cases.csv")
	require.NoError(t, os.WriteFile(path, []byte("case_id,A,B,outcome_Y\nc1,1,1,1\nc2,1,0,1\nc3,0,1,0\n"), 0o644))

	out, err := execute(t, "--config", cfgPath, "analyze", path)
	require.NoError(t, err)
	assert.Contains(t, out, "# QCA Analysis Report")
	assert.Empty(t, os.Getenv("QCA_CONFIG_FILE"))

	out, err = execute(t, "analyze", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "# QCA Analysis Report", "the file applies only to the invocation that named it")
}
