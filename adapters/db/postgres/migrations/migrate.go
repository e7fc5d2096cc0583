package migrations

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"qcalab/internal"
)

//go:embed *.sql
var migrationFiles embed.FS

// Migrator handles database schema migrations. Migration SQL is kept portable
// so the same files run on PostgreSQL and SQLite.
type Migrator struct {
	db     *sqlx.DB
	files  fs.FS
	logger *internal.Logger
}

// NewMigrator creates a migrator over the embedded migration files
func NewMigrator(db *sqlx.DB, logger *internal.Logger) *Migrator {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Migrator{db: db, files: migrationFiles, logger: logger.With("migrate")}
}

// MigrationFile represents a migration file
type MigrationFile struct {
	Version string
	Name    string
}

// MigrationStatus reports one migration and whether it is applied
type MigrationStatus struct {
	Version string
	Name    string
	Applied bool
}

// Up executes all pending migrations and returns the versions applied
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	files, err := m.findMigrationFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to find migration files: %w", err)
	}

	var done []string
	for _, file := range files {
		if _, ok := applied[file.Version]; ok {
			continue
		}
		if err := m.applyMigration(ctx, file); err != nil {
			return done, fmt.Errorf("failed to apply migration %s: %w", file.Version, err)
		}
		m.logger.Info("[Migrate] applied migration %s (%s)", file.Version, file.Name)
		done = append(done, file.Version)
	}
	return done, nil
}

// Status lists every migration with its applied state
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	files, err := m.findMigrationFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to find migration files: %w", err)
	}

	status := make([]MigrationStatus, len(files))
	for i, file := range files {
		_, ok := applied[file.Version]
		status[i] = MigrationStatus{Version: file.Version, Name: file.Name, Applied: ok}
	}
	return status, nil
}

// Verify fails when an applied migration's file content has changed
func (m *Migrator) Verify(ctx context.Context) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	files, err := m.findMigrationFiles()
	if err != nil {
		return err
	}
	for _, file := range files {
		recorded, ok := applied[file.Version]
		if !ok {
			continue
		}
		content, err := fs.ReadFile(m.files, file.Name)
		if err != nil {
			return err
		}
		if sum := calculateChecksum(content); sum != recorded {
			return fmt.Errorf("migration %s was modified after it was applied", file.Version)
		}
	}
	return nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// getAppliedMigrations returns applied versions with their checksums
func (m *Migrator) getAppliedMigrations(ctx context.Context) (map[string]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version, checksum FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, err
		}
		applied[version] = checksum
	}
	return applied, rows.Err()
}

// calculateChecksum computes SHA256 checksum of migration content
func calculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// findMigrationFiles lists NNN_name.sql files sorted by version
func (m *Migrator) findMigrationFiles() ([]MigrationFile, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, err
	}

	var files []MigrationFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		parts := strings.SplitN(e.Name(), "_", 2)
		if len(parts) < 2 {
			continue
		}
		files = append(files, MigrationFile{Version: parts[0], Name: e.Name()})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Version < files[j].Version
	})
	return files, nil
}

// applyMigration executes one file and records it in a single transaction.
// Statements are split on ";" since not every driver accepts several per Exec.
func (m *Migrator) applyMigration(ctx context.Context, file MigrationFile) error {
	content, err := fs.ReadFile(m.files, file.Name)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(string(content), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration SQL: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		tx.Rebind("INSERT INTO schema_migrations (version, checksum, applied_at) VALUES (?, ?, ?)"),
		file.Version, calculateChecksum(content), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil && err != sql.ErrTxDone {
		return err
	}
	return nil
}
