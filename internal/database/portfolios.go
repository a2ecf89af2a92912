package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/finfun/internal/models"
)

// ReplacePortfolio atomically replaces the stored portfolio with p. Holding
// IDs and timestamps are filled in on success.
func (db *DB) ReplacePortfolio(ctx context.Context, p *models.Portfolio) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM portfolios`); err != nil {
		return fmt.Errorf("failed to clear portfolio: %w", err)
	}

	query := db.rebind(`
		INSERT INTO portfolios (portfolio_id, stock_symbol, allocation_percentage, last_updated)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)
	now := time.Now().UTC()
	for _, h := range p.Holdings {
		err := tx.QueryRowContext(ctx, query,
			p.ID, h.Symbol, h.AllocationPercentage.String(), now.UnixNano(),
		).Scan(&h.ID)
		if err != nil {
			return fmt.Errorf("failed to insert holding %s: %w", h.Symbol, err)
		}
		h.PortfolioID = p.ID
		h.LastUpdated = now
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetCurrentPortfolio returns the most recently imported portfolio, or
// ErrNotFound when none has been imported
func (db *DB) GetCurrentPortfolio(ctx context.Context) (*models.Portfolio, error) {
	var portfolioID string
	err := db.conn.QueryRowContext(ctx, `
		SELECT portfolio_id FROM portfolios
		ORDER BY last_updated DESC, id DESC
		LIMIT 1
	`).Scan(&portfolioID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current portfolio: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT id, portfolio_id, stock_symbol, allocation_percentage, last_updated
		FROM portfolios
		WHERE portfolio_id = ?
		ORDER BY id
	`), portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}
	defer rows.Close()

	p := &models.Portfolio{ID: portfolioID}
	for rows.Next() {
		h := &models.Holding{}
		var updated int64
		if err := rows.Scan(&h.ID, &h.PortfolioID, &h.Symbol, &h.AllocationPercentage, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		h.LastUpdated = time.Unix(0, updated).UTC()
		p.Holdings = append(p.Holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate holdings: %w", err)
	}
	return p, nil
}
