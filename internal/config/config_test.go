package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcalab/internal/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DB_DRIVER", "DATABASE_URL", "PORT", "LOG_LEVEL", "LOG_FORMAT", "QCA_CONFIG_FILE",
		"QCA_ANALYSIS_METHOD", "QCA_CALIBRATION_METHOD", "QCA_OUTPUT_FORMAT",
		"QCA_CONSISTENCY_THRESHOLD", "QCA_FREQUENCY_THRESHOLD", "QCA_MAX_CONDITIONS",
		"QCA_PARALLELISM", "QCA_GENERATE_MINIMIZATION", "QCA_REDUCE_FORMULA",
		"QCA_SELECTION_POLICY", "QCA_SELECTION_OUTCOMES", "QCA_CORE_MARKERS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFrom_ExplicitFileWinsOverEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	envFile := filepath.Join(dir, "env.yaml")
	flagFile := filepath.Join(dir, "flag.yaml")
	require.NoError(t, os.WriteFile(envFile, []byte("server:\n  port: \"9001\"\n"), 0o644))
	require.NoError(t, os.WriteFile(flagFile, []byte("server:\n  port: \"9002\"\n"), 0o644))
	t.Setenv("QCA_CONFIG_FILE", envFile)

	cfg, err := LoadFrom(flagFile)
	require.NoError(t, err)
	assert.Equal(t, "9002", cfg.Server.Port)
	assert.Equal(t, envFile, os.Getenv("QCA_CONFIG_FILE"), "environment is left untouched")

	cfg, err = LoadFrom("")
	require.NoError(t, err)
	assert.Equal(t, "9001", cfg.Server.Port)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 0.8, cfg.QCA.TruthTableConsistencyThreshold)
	assert.Equal(t, 1, cfg.QCA.TruthTableFrequencyThreshold)
	assert.True(t, cfg.QCA.GenerateMinimization)
	assert.Error(t, cfg.RequireDatabase())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "qca.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: sqlite
  url: file:runs.db
qca:
  truth_table_consistency_threshold: 0.75
  truth_table_frequency_threshold: 2
  reduce_formula: true
selection:
  policy: explicit
  outcomes: [Adoption]
`), 0o644))

	t.Setenv("QCA_CONFIG_FILE", path)
	t.Setenv("QCA_FREQUENCY_THRESHOLD", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:runs.db", cfg.Database.URL)
	assert.Equal(t, 0.75, cfg.QCA.TruthTableConsistencyThreshold)
	assert.Equal(t, 3, cfg.QCA.TruthTableFrequencyThreshold, "environment wins over file")
	assert.True(t, cfg.QCA.ReduceFormula)
	assert.Equal(t, 12, cfg.QCA.MaxConditions, "keys absent from the file keep defaults")
	assert.NoError(t, cfg.RequireDatabase())

	assert.Equal(t, "explicit", cfg.Selection.Policy)
	assert.Equal(t, []string{"Adoption"}, cfg.Selection.Outcomes)
	policy, err := cfg.Selection.NewPolicy()
	require.NoError(t, err)
	assert.Equal(t, "explicit", policy.Name())
}

func TestLoad_SelectionFromEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("QCA_SELECTION_POLICY", "core_category")
	t.Setenv("QCA_CORE_MARKERS", " core , key ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "key"}, cfg.Selection.CoreMarkers)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("QCA_MAX_CONDITIONS=8\n"), 0o644))
	// godotenv never overrides a variable that is already set, even to ""
	os.Unsetenv("QCA_MAX_CONDITIONS")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.QCA.MaxConditions)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		code  string
	}{
		{"threshold out of range", "QCA_CONSISTENCY_THRESHOLD", "1.5", errors.CodeConfigInvalid},
		{"threshold not a number", "QCA_CONSISTENCY_THRESHOLD", "high", errors.CodeConfigInvalid},
		{"bad bool", "QCA_REDUCE_FORMULA", "maybe", errors.CodeConfigInvalid},
		{"bad driver", "DB_DRIVER", "mysql", errors.CodeConfigInvalid},
		{"bad log format", "LOG_FORMAT", "xml", errors.CodeConfigInvalid},
		{"explicit policy without outcomes", "QCA_SELECTION_POLICY", "explicit", errors.CodeConfigInvalid},
		{"unknown policy", "QCA_SELECTION_POLICY", "random", errors.CodeConfigInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}
