package conversion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcalab/domain/qca"
	"qcalab/internal"
	"qcalab/internal/engine"
)

func names(codes []qca.Code) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = c.Name
	}
	return out
}

func threeCases() []qca.Case {
	return []qca.Case{
		{ID: "int-1", Text: "We talked about Budget constraints and trust."},
		{ID: "int-2", Text: "Leadership was strong."},
		{ID: "int-3", Text: "Nothing relevant here."},
	}
}

func TestCoreCategoryPolicy(t *testing.T) {
	codes := []qca.Code{
		{Name: "Budget", Frequency: 5, HierarchyLevel: 1},
		{Name: "Adoption", Frequency: 2, HierarchyLevel: 0},
		{Name: "Leadership", Frequency: 3, HierarchyLevel: 2},
		{Name: "Core Trust", Frequency: 1, HierarchyLevel: 1},
	}
	conditions, outcomes := CoreCategoryPolicy{}.Partition(codes)
	assert.Equal(t, []string{"Budget", "Leadership"}, names(conditions))
	assert.Equal(t, []string{"Adoption", "Core Trust"}, names(outcomes))

	conditions, outcomes = CoreCategoryPolicy{Markers: []string{"lead"}}.Partition(codes)
	assert.Equal(t, []string{"Budget", "Core Trust"}, names(conditions))
	assert.Equal(t, []string{"Adoption", "Leadership"}, names(outcomes))
}

func TestCoreCategoryPolicy_FallsBackToFrequency(t *testing.T) {
	codes := []qca.Code{
		{Name: "A", Frequency: 2, HierarchyLevel: 1},
		{Name: "B", Frequency: 7, HierarchyLevel: 1},
		{Name: "C", Frequency: 7, HierarchyLevel: 2},
		{Name: "D", Frequency: 1, HierarchyLevel: 1},
		{Name: "E", Frequency: 4, HierarchyLevel: 3},
	}
	conditions, outcomes := CoreCategoryPolicy{}.Partition(codes)
	assert.Equal(t, []string{"B", "C"}, names(outcomes))
	assert.Equal(t, []string{"A", "D", "E"}, names(conditions))

	fc, fo := FrequencyPolicy{}.Partition(codes)
	assert.Equal(t, conditions, fc)
	assert.Equal(t, outcomes, fo)
}

func TestFrequencyPolicy_TiesKeepInputOrder(t *testing.T) {
	codes := []qca.Code{
		{Name: "x", Frequency: 3},
		{Name: "y", Frequency: 3},
		{Name: "z", Frequency: 3},
		{Name: "w", Frequency: 3},
	}
	conditions, outcomes := FrequencyPolicy{}.Partition(codes)
	assert.Equal(t, []string{"x", "y"}, names(outcomes))
	assert.Equal(t, []string{"z", "w"}, names(conditions))

	_, outcomes = FrequencyPolicy{}.Partition(codes[:1])
	assert.Len(t, outcomes, 1)
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy("", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, PolicyCoreCategory, p.Name())

	p, err = NewPolicy(PolicyExplicit, nil, []string{"Adoption"})
	require.NoError(t, err)
	_, outcomes := p.Partition([]qca.Code{{Name: "Adoption"}, {Name: "Budget"}})
	assert.Equal(t, []string{"Adoption"}, names(outcomes))

	_, err = NewPolicy(PolicyExplicit, nil, nil)
	assert.ErrorIs(t, err, qca.ErrInvalidConfiguration)
	_, err = NewPolicy("random", nil, nil)
	assert.ErrorIs(t, err, qca.ErrInvalidConfiguration)
}

func TestSelector_InsufficientData(t *testing.T) {
	s := NewSelector(nil, internal.NewNopLogger())

	tests := []struct {
		name  string
		codes []qca.Code
		cases []qca.Case
	}{
		{
			name:  "one condition",
			codes: []qca.Code{{Name: "Out", HierarchyLevel: 0}, {Name: "A", HierarchyLevel: 1}},
			cases: threeCases(),
		},
		{
			name: "two cases",
			codes: []qca.Code{
				{Name: "Out", HierarchyLevel: 0}, {Name: "A", HierarchyLevel: 1}, {Name: "B", HierarchyLevel: 1},
			},
			cases: threeCases()[:2],
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.Select(tt.codes, tt.cases)
			assert.ErrorIs(t, err, qca.ErrInsufficientData)
		})
	}

	explicit := NewSelector(ExplicitPolicy{Outcomes: []string{"missing"}}, internal.NewNopLogger())
	_, _, err := explicit.Select([]qca.Code{{Name: "A"}, {Name: "B"}}, threeCases())
	assert.ErrorIs(t, err, qca.ErrInsufficientData, "no outcome selected")

	_, _, err = s.Select([]qca.Code{{Name: ""}}, threeCases())
	assert.ErrorIs(t, err, qca.ErrInvalidCode)
}

func TestSelector_Names(t *testing.T) {
	s := NewSelector(nil, internal.NewNopLogger())
	conditions, outcomes, err := s.Select([]qca.Code{
		{Name: "Budget constraints", HierarchyLevel: 1},
		{Name: "Leadership", HierarchyLevel: 1},
		{Name: "Adoption", HierarchyLevel: 0},
	}, threeCases())
	require.NoError(t, err)

	assert.Equal(t, []string{"Budget_constraints", "Leadership"}, qca.VariableNames(conditions))
	assert.Equal(t, []string{"outcome_Adoption"}, qca.VariableNames(outcomes))
	assert.Equal(t, "Budget constraints", conditions[0].Source)
	assert.Equal(t, qca.RoleOutcome, outcomes[0].Role)
}

func TestSelector_RejectsCollidingVariableNames(t *testing.T) {
	s := NewSelector(nil, internal.NewNopLogger())

	_, _, err := s.Select([]qca.Code{
		{Name: "Budget constraints", HierarchyLevel: 1},
		{Name: "Budget-constraints", HierarchyLevel: 1},
		{Name: "Leadership", HierarchyLevel: 1},
		{Name: "Adoption", HierarchyLevel: 0},
	}, threeCases())
	require.ErrorIs(t, err, qca.ErrInvalidCode)
	assert.Contains(t, err.Error(), `"Budget constraints"`)
	assert.Contains(t, err.Error(), `"Budget-constraints"`)

	_, _, err = s.Select([]qca.Code{
		{Name: "outcome_Adoption", HierarchyLevel: 1},
		{Name: "Leadership", HierarchyLevel: 1},
		{Name: "Adoption", HierarchyLevel: 0},
	}, threeCases())
	assert.ErrorIs(t, err, qca.ErrInvalidCode, "condition collides with a prefixed outcome")

	_, _, err = s.Select([]qca.Code{
		{Name: "~+*", HierarchyLevel: 1},
		{Name: "Leadership", HierarchyLevel: 1},
		{Name: "Adoption", HierarchyLevel: 0},
	}, threeCases())
	assert.ErrorIs(t, err, qca.ErrInvalidCode, "name with no usable characters")
}

func TestConvert_CollisionStopsBeforeMatrix(t *testing.T) {
	_, err := NewConverter(nil, internal.NewNopLogger()).Convert([]qca.Code{
		{Name: "Trust peers", HierarchyLevel: 1, Applications: []string{"int-1"}},
		{Name: "Trust/peers", HierarchyLevel: 1, Applications: []string{"int-2"}},
		{Name: "Leadership", HierarchyLevel: 1, Applications: []string{}},
		{Name: "Adoption", HierarchyLevel: 0, Applications: []string{"int-1"}},
	}, threeCases())
	require.ErrorIs(t, err, qca.ErrInvalidCode)
	assert.NotErrorIs(t, err, qca.ErrInvalidCaseMatrix)
}

func TestVariableName(t *testing.T) {
	assert.Equal(t, "Trust_in_peers", VariableName("  Trust in peers "))
	assert.Equal(t, "cost_benefit", VariableName("cost * benefit"))
	assert.Equal(t, "Ärger", VariableName("Ärger"))
	assert.Equal(t, "", VariableName("~+*"))
}

func TestMatrixBuilder(t *testing.T) {
	codes := []qca.Code{
		{Name: "Budget", Applications: []string{"int-1", "int-3"}},
		{Name: "leadership"},
		{Name: "Empty", Applications: []string{}},
	}
	vars := []qca.Variable{
		{Name: "Budget", Source: "Budget", Role: qca.RoleCondition},
		{Name: "leadership", Source: "leadership", Role: qca.RoleCondition},
		{Name: "outcome_Empty", Source: "Empty", Role: qca.RoleOutcome},
	}

	matrix, report, err := NewMatrixBuilder(internal.NewNopLogger()).Build(threeCases(), codes, vars)
	require.NoError(t, err)
	require.Len(t, matrix, 3)

	assert.Equal(t, []int{1, 0, 1}, matrix.Column("Budget"))
	assert.Equal(t, []int{0, 1, 0}, matrix.Column("leadership"), "case-insensitive text match")
	assert.Equal(t, []int{0, 0, 0}, matrix.Column("outcome_Empty"), "empty record is not a fallback")

	for _, row := range matrix {
		assert.Len(t, row.Values, 3, "every case has every variable")
	}

	assert.Equal(t, []string{"leadership"}, report.LowConfidence)
	assert.Equal(t, qca.CalibrationApplications, report.Variables[0].Calibration)
	assert.Equal(t, qca.CalibrationTextMatch, report.Variables[1].Calibration)
	assert.True(t, report.Variables[1].LowConfidence())
	assert.Equal(t, 2, report.Memberships["Budget"])
}

func TestMatrixBuilder_RejectsBadCases(t *testing.T) {
	b := NewMatrixBuilder(internal.NewNopLogger())
	cases := threeCases()
	cases[2].ID = "int-1"
	_, _, err := b.Build(cases, nil, nil)
	assert.ErrorIs(t, err, qca.ErrInvalidCaseMatrix)

	_, _, err = b.Build(threeCases(), nil, []qca.Variable{{Name: "x", Source: "unknown"}})
	assert.ErrorIs(t, err, qca.ErrInvalidCaseMatrix)
}

func TestConvert_FeedsEngine(t *testing.T) {
	codes := []qca.Code{
		{Name: "Funding", HierarchyLevel: 1, Frequency: 3, Applications: []string{"a", "b", "c"}},
		{Name: "Champion", HierarchyLevel: 1, Frequency: 2, Applications: []string{"a", "d"}},
		{Name: "Adoption", HierarchyLevel: 0, Frequency: 3, Applications: []string{"a", "b", "c"}},
	}
	cases := []qca.Case{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}

	conv, err := NewConverter(nil, internal.NewNopLogger()).Convert(codes, cases)
	require.NoError(t, err)
	assert.Equal(t, []string{"Funding", "Champion"}, conv.Data.Conditions)
	assert.Equal(t, []string{"outcome_Adoption"}, conv.Data.Outcomes)
	assert.Empty(t, conv.Report.LowConfidence)
	assert.Equal(t, qca.CalibrationApplications, conv.Outcomes[0].Calibration)

	e, err := engine.NewEngine(qca.DefaultConfiguration(), internal.NewNopLogger())
	require.NoError(t, err)
	results, err := e.RunAnalysis(context.Background(), conv.Data)
	require.NoError(t, err)

	nec, ok := results.Necessity("Funding", "outcome_Adoption")
	require.True(t, ok)
	assert.Equal(t, 1.0, nec.Consistency)
	assert.Equal(t, 1.0, nec.Coverage)
	assert.Equal(t, "Funding * Champion + Funding * ~Champion",
		results.MinimizationResults["outcome_Adoption"].MinimalFormula)
}
