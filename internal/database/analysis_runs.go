package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/finfun/internal/models"
)

// CreateAnalysisRun inserts a run record
func (db *DB) CreateAnalysisRun(ctx context.Context, r *models.AnalysisRun) error {
	_, err := db.conn.ExecContext(ctx, db.rebind(`
		INSERT INTO analysis_runs (id, trigger_source, scope, status, started_at, stock_count, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), r.ID, r.Trigger, r.Scope, r.Status, r.StartedAt.UnixNano(), r.StockCount, r.Error)
	if err != nil {
		return fmt.Errorf("failed to create analysis run: %w", err)
	}
	return nil
}

// FinishAnalysisRun records the outcome of a run
func (db *DB) FinishAnalysisRun(ctx context.Context, r *models.AnalysisRun) error {
	finished := time.Now().UTC()
	if r.FinishedAt != nil {
		finished = *r.FinishedAt
	}

	result, err := db.conn.ExecContext(ctx, db.rebind(`
		UPDATE analysis_runs
		SET status = ?, finished_at = ?, stock_count = ?, error_message = ?
		WHERE id = ?
	`), r.Status, finished.UnixNano(), r.StockCount, r.Error, r.ID)
	if err != nil {
		return fmt.Errorf("failed to finish analysis run: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("analysis run %s: %w", r.ID, ErrNotFound)
	}
	r.FinishedAt = &finished
	return nil
}

// GetAnalysisRun retrieves a run by ID
func (db *DB) GetAnalysisRun(ctx context.Context, id string) (*models.AnalysisRun, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(`
		SELECT id, trigger_source, scope, status, started_at, finished_at, stock_count, error_message
		FROM analysis_runs
		WHERE id = ?
	`), id)

	r, err := scanAnalysisRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis run: %w", err)
	}
	return r, nil
}

// ListAnalysisRuns returns the most recent runs, newest first
func (db *DB) ListAnalysisRuns(ctx context.Context, limit int) ([]*models.AnalysisRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT id, trigger_source, scope, status, started_at, finished_at, stock_count, error_message
		FROM analysis_runs
		ORDER BY started_at DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.AnalysisRun
	for rows.Next() {
		r, err := scanAnalysisRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analysis runs: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnalysisRun(s rowScanner) (*models.AnalysisRun, error) {
	r := &models.AnalysisRun{}
	var started int64
	var finished sql.NullInt64
	if err := s.Scan(&r.ID, &r.Trigger, &r.Scope, &r.Status, &started, &finished, &r.StockCount, &r.Error); err != nil {
		return nil, err
	}
	r.StartedAt = time.Unix(0, started).UTC()
	if finished.Valid {
		t := time.Unix(0, finished.Int64).UTC()
		r.FinishedAt = &t
	}
	return r, nil
}
