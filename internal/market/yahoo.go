package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/rs/zerolog"
	"github.com/trogers1052/finfun/internal/models"
)

// ErrSummaryUnavailable is returned when the fundamentals of a symbol could
// not be fetched
var ErrSummaryUnavailable = errors.New("quote summary unavailable")

// YahooProvider reads quotes and bars through finance-go and fills in the
// fundamentals finance-go does not expose from the quoteSummary API
type YahooProvider struct {
	summary *SummaryClient
	logger  zerolog.Logger

	equity func(symbol string) (*finance.Equity, error)
}

// NewYahooProvider creates a YahooProvider. A nil summary client leaves
// sector and balance sheet metrics missing.
func NewYahooProvider(summary *SummaryClient, logger zerolog.Logger) *YahooProvider {
	return &YahooProvider{
		summary: summary,
		logger:  logger.With().Str("component", "yahoo").Logger(),
		equity:  equity.Get,
	}
}

// Quote returns the latest quote merged with summary fundamentals
func (p *YahooProvider) Quote(ctx context.Context, symbol string) (*Quote, error) {
	eq, err := runWithContext(ctx, func() (*finance.Equity, error) {
		return p.equity(symbol)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get equity quote: %w", err)
	}
	if eq == nil {
		return nil, fmt.Errorf("no quote returned for %s", symbol)
	}

	q := &Quote{
		Symbol:           symbol,
		Name:             eq.ShortName,
		Price:            positive(eq.RegularMarketPrice),
		FiftyTwoWeekHigh: positive(eq.FiftyTwoWeekHigh),
		ForwardPE:        nonZero(eq.ForwardPE),
		TrailingPE:       nonZero(eq.TrailingPE),
		DividendYield:    nonZero(eq.TrailingAnnualDividendYield),
		MarketCap:        positive(float64(eq.MarketCap)),
	}
	if eq.LongName != "" {
		q.Name = eq.LongName
	}

	if p.summary == nil {
		return q, nil
	}
	s, err := p.summary.Get(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSummaryUnavailable, err)
	}
	q.Sector = s.Sector
	q.ProfitMargins = s.ProfitMargins
	q.DebtToEquity = s.DebtToEquity
	if s.DividendYield != nil {
		q.DividendYield = s.DividendYield
	}
	if q.ForwardPE == nil {
		q.ForwardPE = s.ForwardPE
	}
	if q.TrailingPE == nil {
		q.TrailingPE = s.TrailingPE
	}
	p.logger.Debug().Str("symbol", symbol).Str("sector", q.Sector).Msg("quote merged with summary")
	return q, nil
}

// History returns bars between start and end at the given interval
func (p *YahooProvider) History(ctx context.Context, symbol string, start, end time.Time, interval Interval) ([]models.PriceBar, error) {
	dtInterval := datetime.OneDay
	if interval == Monthly {
		dtInterval = datetime.OneMonth
	}

	return runWithContext(ctx, func() ([]models.PriceBar, error) {
		iter := chart.Get(&chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: dtInterval,
		})

		var bars []models.PriceBar
		for iter.Next() {
			b := iter.Bar()
			bars = append(bars, models.PriceBar{
				Symbol: symbol,
				Date:   time.Unix(int64(b.Timestamp), 0).UTC(),
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: int64(b.Volume),
			})
		}
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("failed to get chart: %w", err)
		}
		return bars, nil
	})
}

// runWithContext bounds a blocking call that takes no context.
// The call keeps running in the background after ctx is done.
func runWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func positive(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}

func nonZero(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}
