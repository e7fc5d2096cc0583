package codebook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcalab/domain/qca"
	"qcalab/ports"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCodebook_YAML(t *testing.T) {
	path := write(t, "codes.yaml", `
codes:
  - name: Adoption
    frequency: 3
    hierarchy_level: 0
    applications: [i1, i2]
  - name: Budget
    frequency: 2
    hierarchy_level: 1
    parent_id: Adoption
cases:
  - case_id: i1
    text: budget was tight
  - case_id: i2
`)
	codes, cases, err := NewLoader().ReadCodebook(path)
	require.NoError(t, err)
	require.Len(t, codes, 2)
	assert.Equal(t, []string{"i1", "i2"}, codes[0].Applications)
	assert.Nil(t, codes[1].Applications, "absent record stays nil")
	require.NotNil(t, codes[1].ParentID)
	assert.Equal(t, "Adoption", *codes[1].ParentID)
	assert.Equal(t, "budget was tight", cases[0].Text)
}

func TestReadCodebook_JSON(t *testing.T) {
	path := write(t, "codes.json", `{
  "codes": [{"name": "Trust", "frequency": 1, "hierarchy_level": 2, "applications": []}],
  "cases": [{"case_id": "a"}]
}`)
	codes, cases, err := NewLoader().ReadCodebook(path)
	require.NoError(t, err)
	assert.NotNil(t, codes[0].Applications)
	assert.Empty(t, codes[0].Applications)
	assert.Len(t, cases, 1)

	bad := write(t, "bad.json", `{"codes": [{"name": "", "frequency": 1}]}`)
	_, _, err = NewLoader().ReadCodebook(bad)
	assert.ErrorIs(t, err, qca.ErrInvalidCode)

	unknown := write(t, "unknown.json", `{"codez": []}`)
	_, _, err = NewLoader().ReadCodebook(unknown)
	assert.ErrorIs(t, err, qca.ErrInvalidCaseMatrix)
}

func TestReadMatrix_JSON(t *testing.T) {
	path := write(t, "matrix.json", `{
  "case_matrix": [
    {"case_id": "c1", "A": 1, "B": 1, "Y": 1},
    {"case_id": "c2", "A": true, "B": false, "Y": 1},
    {"case_id": "c3", "A": 0, "B": 1, "Y": 0}
  ],
  "conditions": ["A", "B"],
  "outcomes": ["Y"]
}`)
	data, err := NewLoader().ReadMatrix(path, ports.MatrixSpec{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, data.Conditions)
	assert.Equal(t, []int{1, 1, 0}, data.CaseMatrix.Column("A"))
	require.NoError(t, data.Validate())

	narrowed, err := NewLoader().ReadMatrix(path, ports.MatrixSpec{Conditions: []string{"B", "A"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, narrowed.Conditions)

	broken := write(t, "broken.json", `{"case_matrix": [{"A": 1}]}`)
	_, err = NewLoader().ReadMatrix(broken, ports.MatrixSpec{})
	assert.ErrorIs(t, err, qca.ErrInvalidCaseMatrix)
}
