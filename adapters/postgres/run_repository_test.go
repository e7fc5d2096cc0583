package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcalab/adapters/db/postgres/migrations"
	"qcalab/domain/core"
	"qcalab/domain/qca"
	"qcalab/domain/run"
	"qcalab/internal"
	"qcalab/internal/engine"
	"qcalab/ports"
)

func setupDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	applied, err := migrations.NewMigrator(db, internal.NewNopLogger()).Up(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, applied)
	return db
}

func analyzedRecord(t *testing.T, createdAt time.Time) *run.Record {
	t.Helper()
	data := qca.Data{
		CaseMatrix: qca.CaseMatrix{
			{CaseID: "c1", Values: map[string]int{"A": 1, "B": 1, "Y": 1}},
			{CaseID: "c2", Values: map[string]int{"A": 1, "B": 0, "Y": 1}},
			{CaseID: "c3", Values: map[string]int{"A": 0, "B": 1, "Y": 0}},
			{CaseID: "c4", Values: map[string]int{"A": 0, "B": 0, "Y": 0}},
		},
		Conditions: []string{"A", "B"},
		Outcomes:   []string{"Y"},
	}
	cfg := qca.DefaultConfiguration()
	e, err := engine.NewEngine(cfg, internal.NewNopLogger())
	require.NoError(t, err)
	results, err := e.RunAnalysis(context.Background(), data)
	require.NoError(t, err)

	return &run.Record{
		Manifest:      run.NewManifest(core.RunID(core.NewID()), "cases.csv", data, cfg, createdAt),
		Configuration: cfg,
		Status:        run.StatusCompleted,
		Results:       results,
	}
}

func TestRunRepository_SaveAndGet(t *testing.T) {
	repo := NewRunRepository(setupDB(t))
	ctx := context.Background()

	record := analyzedRecord(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, repo.SaveRun(ctx, record))

	got, err := repo.GetRun(ctx, record.Manifest.RunID)
	require.NoError(t, err)

	assert.Equal(t, record.Manifest, got.Manifest)
	assert.Equal(t, record.Configuration, got.Configuration)
	assert.Equal(t, run.StatusCompleted, got.Status)

	want, err := json.Marshal(record.Results)
	require.NoError(t, err)
	have, err := json.Marshal(got.Results)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(have))

	require.NotNil(t, got.Results)
	assert.Equal(t, "A * B + A * ~B", got.Results.MinimizationResults["Y"].MinimalFormula)
}

func TestRunRepository_SaveReplaces(t *testing.T) {
	repo := NewRunRepository(setupDB(t))
	ctx := context.Background()

	record := analyzedRecord(t, time.Now())
	require.NoError(t, repo.SaveRun(ctx, record))

	record.Status = run.StatusFailed
	record.Results = nil
	require.NoError(t, repo.SaveRun(ctx, record))

	got, err := repo.GetRun(ctx, record.Manifest.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.StatusFailed, got.Status)
	assert.Nil(t, got.Results)

	list, err := repo.ListRuns(ctx, ports.RunFilters{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRunRepository_NotFound(t *testing.T) {
	repo := NewRunRepository(setupDB(t))
	_, err := repo.GetRun(context.Background(), core.RunID(core.NewID()))
	assert.ErrorIs(t, err, core.ErrRunNotFound)
	assert.True(t, core.IsNotFoundError(err))
}

func TestRunRepository_RejectsIncompleteManifest(t *testing.T) {
	repo := NewRunRepository(setupDB(t))
	err := repo.SaveRun(context.Background(), &run.Record{Status: run.StatusCompleted})
	assert.Error(t, err)
}

func TestRunRepository_ListRuns(t *testing.T) {
	repo := NewRunRepository(setupDB(t))
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []core.RunID
	for i := 0; i < 3; i++ {
		record := analyzedRecord(t, base.Add(time.Duration(i)*time.Hour))
		if i == 1 {
			record.Status = run.StatusFailed
		}
		require.NoError(t, repo.SaveRun(ctx, record))
		ids = append(ids, record.Manifest.RunID)
	}

	all, err := repo.ListRuns(ctx, ports.RunFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []core.RunID{ids[2], ids[1], ids[0]}, []core.RunID{all[0].RunID, all[1].RunID, all[2].RunID})
	assert.Equal(t, 4, all[0].TotalCases)
	assert.Equal(t, 2, all[0].Conditions)
	assert.Equal(t, 1, all[0].Outcomes)
	assert.True(t, all[0].CreatedAt.Equal(base.Add(2*time.Hour)))

	failed := run.StatusFailed
	filtered, err := repo.ListRuns(ctx, ports.RunFilters{Status: &failed})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, ids[1], filtered[0].RunID)

	page, err := repo.ListRuns(ctx, ports.RunFilters{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].RunID)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "")
	assert.Error(t, err)
}
