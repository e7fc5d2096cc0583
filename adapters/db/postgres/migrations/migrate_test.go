package migrations

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"qcalab/internal"
)

func openSQLite(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrator_UpIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMigrator(openSQLite(t), internal.NewNopLogger())

	applied, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"001"}, applied)

	applied, err = m.Up(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	status, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.True(t, status[0].Applied)
	assert.Equal(t, "001_create_qca_runs.sql", status[0].Name)

	require.NoError(t, m.Verify(ctx))
}

func TestMigrator_OrderAndChecksum(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	m := NewMigrator(db, internal.NewNopLogger())
	m.files = fstest.MapFS{
		"002_second.sql": {Data: []byte("CREATE TABLE b (id TEXT);")},
		"001_first.sql":  {Data: []byte("CREATE TABLE a (id TEXT); CREATE TABLE c (id TEXT);")},
		"README.md":      {Data: []byte("ignored")},
	}

	applied, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"001", "002"}, applied)

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM schema_migrations"))
	assert.Equal(t, 2, count)

	m.files = fstest.MapFS{
		"001_first.sql":  {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"002_second.sql": {Data: []byte("CREATE TABLE b (id TEXT);")},
	}
	assert.Error(t, m.Verify(ctx))
}

func TestMigrator_FailedMigrationRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	m := NewMigrator(db, internal.NewNopLogger())
	m.files = fstest.MapFS{
		"001_bad.sql": {Data: []byte("CREATE TABLE ok (id TEXT); NOT SQL AT ALL;")},
	}

	_, err := m.Up(ctx)
	require.Error(t, err)

	status, err := m.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status[0].Applied)
}
