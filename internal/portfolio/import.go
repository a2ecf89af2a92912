package portfolio

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/finfun/internal/models"
)

// IDLayout formats the import timestamp used as portfolio id
const IDLayout = "20060102_150405"

// Store persists a portfolio, replacing the previous one
type Store interface {
	ReplacePortfolio(ctx context.Context, p *models.Portfolio) error
}

// Importer validates portfolio files and stores them
type Importer struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewImporter creates an importer writing to store
func NewImporter(store Store, logger zerolog.Logger) *Importer {
	return &Importer{
		store:  store,
		logger: logger.With().Str("component", "portfolio").Logger(),
		now:    time.Now,
	}
}

// NewID returns the portfolio id for an import at t
func NewID(t time.Time) string {
	return t.Format(IDLayout)
}

// Import parses the named file from r and replaces the stored portfolio
func (i *Importer) Import(ctx context.Context, filename string, r io.Reader) (*models.Portfolio, error) {
	holdings, err := Parse(filename, r)
	if err != nil {
		return nil, err
	}
	return i.ImportHoldings(ctx, holdings)
}

// ImportHoldings validates holdings and replaces the stored portfolio
func (i *Importer) ImportHoldings(ctx context.Context, holdings []*models.Holding) (*models.Portfolio, error) {
	if err := Validate(holdings); err != nil {
		return nil, err
	}

	p := &models.Portfolio{
		ID:       NewID(i.now()),
		Holdings: holdings,
	}
	if err := i.store.ReplacePortfolio(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to store portfolio: %w", err)
	}

	i.logger.Info().
		Str("portfolio_id", p.ID).
		Int("holdings", len(p.Holdings)).
		Msg("portfolio imported")
	return p, nil
}
