package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"qcalab/domain/core"
	"qcalab/domain/qca"
	"qcalab/domain/run"
	"qcalab/ports"
)

// Timestamps are stored as UTC text so both drivers sort them the same way
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// RunRepositoryImpl implements ports.RunRepository on PostgreSQL or SQLite
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

type runRow struct {
	ID              string         `db:"id"`
	Source          string         `db:"source"`
	Status          string         `db:"status"`
	Fingerprint     string         `db:"fingerprint"`
	MatrixHash      string         `db:"matrix_hash"`
	ConfigHash      string         `db:"config_hash"`
	CodeVersion     string         `db:"code_version"`
	TotalCases      int            `db:"total_cases"`
	TotalConditions int            `db:"total_conditions"`
	TotalOutcomes   int            `db:"total_outcomes"`
	Configuration   string         `db:"configuration"`
	Results         sql.NullString `db:"results"`
	CreatedAt       string         `db:"created_at"`
}

// SaveRun inserts a run, replacing any earlier record with the same id
func (r *RunRepositoryImpl) SaveRun(ctx context.Context, record *run.Record) error {
	if err := record.Manifest.Validate(); err != nil {
		return err
	}

	cfgJSON, err := json.Marshal(record.Configuration)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	var results sql.NullString
	if record.Results != nil {
		raw, err := json.Marshal(record.Results)
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		results = sql.NullString{String: string(raw), Valid: true}
	}

	summary := record.Summarize()
	fp := record.Manifest.Fingerprint

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM qca_runs WHERE id = ?`), summary.RunID.String()); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO qca_runs (id, source, status, fingerprint, matrix_hash, config_hash, code_version,
			total_cases, total_conditions, total_outcomes, configuration, results, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), summary.RunID.String(), summary.Source, string(summary.Status), fp.Fingerprint.String(),
		fp.MatrixHash.String(), fp.ConfigHash.String(), fp.CodeVersion,
		summary.TotalCases, summary.Conditions, summary.Outcomes,
		string(cfgJSON), results, summary.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return tx.Commit()
}

// GetRun retrieves a run with its results
func (r *RunRepositoryImpl) GetRun(ctx context.Context, runID core.RunID) (*run.Record, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT id, source, status, fingerprint, matrix_hash, config_hash, code_version,
			total_cases, total_conditions, total_outcomes, configuration, results, created_at
		FROM qca_runs
		WHERE id = ?
	`), runID.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toRecord()
}

// ListRuns returns run summaries, newest first
func (r *RunRepositoryImpl) ListRuns(ctx context.Context, filters ports.RunFilters) ([]run.Summary, error) {
	query := `
		SELECT id, source, status, fingerprint, matrix_hash, config_hash, code_version,
			total_cases, total_conditions, total_outcomes, configuration, created_at
		FROM qca_runs`
	var args []interface{}
	if filters.Status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*filters.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, filters.Offset)

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	summaries := make([]run.Summary, 0, len(rows))
	for _, row := range rows {
		createdAt, err := time.Parse(timeLayout, row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("run %s: bad created_at %q: %w", row.ID, row.CreatedAt, err)
		}
		summaries = append(summaries, run.Summary{
			RunID:       core.RunID(row.ID),
			Source:      row.Source,
			Status:      run.Status(row.Status),
			Fingerprint: core.Hash(row.Fingerprint),
			TotalCases:  row.TotalCases,
			Conditions:  row.TotalConditions,
			Outcomes:    row.TotalOutcomes,
			CreatedAt:   createdAt,
		})
	}
	return summaries, nil
}

func (row runRow) toRecord() (*run.Record, error) {
	createdAt, err := time.Parse(timeLayout, row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("run %s: bad created_at %q: %w", row.ID, row.CreatedAt, err)
	}

	record := &run.Record{
		Manifest: run.Manifest{
			RunID:  core.RunID(row.ID),
			Source: row.Source,
			Fingerprint: run.Fingerprint{
				MatrixHash:  core.Hash(row.MatrixHash),
				ConfigHash:  core.Hash(row.ConfigHash),
				CodeVersion: row.CodeVersion,
				Fingerprint: core.Hash(row.Fingerprint),
			},
			CreatedAt: createdAt,
		},
		Status: run.Status(row.Status),
	}
	if err := json.Unmarshal([]byte(row.Configuration), &record.Configuration); err != nil {
		return nil, fmt.Errorf("run %s: failed to decode configuration: %w", row.ID, err)
	}
	if row.Results.Valid {
		var results qca.Results
		if err := json.Unmarshal([]byte(row.Results.String), &results); err != nil {
			return nil, fmt.Errorf("run %s: failed to decode results: %w", row.ID, err)
		}
		record.Results = &results
	}
	return record, nil
}
