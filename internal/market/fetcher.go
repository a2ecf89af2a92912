package market

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/finfun/internal/models"
)

// Fetcher defaults
const (
	DefaultMinDelay       = 500 * time.Millisecond
	DefaultMaxDelay       = time.Second
	DefaultRequestTimeout = 15 * time.Second

	returnWindowYears = 5
	maxHistoryYears   = 60
)

var (
	ErrNoPrice   = errors.New("no current price")
	ErrNoHistory = errors.New("no price history")
)

// FetcherConfig controls pacing and timeouts
type FetcherConfig struct {
	MinDelay       time.Duration
	MaxDelay       time.Duration
	RequestTimeout time.Duration
}

// Fetcher retrieves StockRecords one symbol at a time
type Fetcher struct {
	provider Provider
	cfg      FetcherConfig
	logger   zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	rng   *rand.Rand
}

// NewFetcher creates a Fetcher. Zero config values take the defaults.
func NewFetcher(provider Provider, cfg FetcherConfig, logger zerolog.Logger) *Fetcher {
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = DefaultMinDelay
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	return &Fetcher{
		provider: provider,
		cfg:      cfg,
		logger:   logger.With().Str("component", "fetcher").Logger(),
		now:      time.Now,
		sleep:    sleepContext,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// FetchStocks fetches every symbol in order. Symbols that fail are logged
// and left out; the batch itself never fails unless ctx is cancelled.
func (f *Fetcher) FetchStocks(ctx context.Context, symbols []string) []models.StockRecord {
	records := make([]models.StockRecord, 0, len(symbols))

	for i, symbol := range symbols {
		if ctx.Err() != nil {
			f.logger.Warn().Err(ctx.Err()).Int("remaining", len(symbols)-i).Msg("fetch cancelled")
			break
		}
		if i > 0 {
			if err := f.sleep(ctx, f.delay()); err != nil {
				break
			}
		}

		record, err := f.FetchStock(ctx, symbol)
		if err != nil {
			f.logger.Warn().Err(err).Str("symbol", symbol).Msg("skipping symbol")
			continue
		}
		records = append(records, *record)
	}

	f.logger.Info().
		Int("requested", len(symbols)).
		Int("fetched", len(records)).
		Msg("fetch complete")
	return records
}

// FetchStock fetches one symbol under the configured request timeout
func (f *Fetcher) FetchStock(ctx context.Context, symbol string) (*models.StockRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.RequestTimeout)
	defer cancel()

	quote, err := f.provider.Quote(ctx, symbol)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Err: err}
	}
	if quote.Price == nil {
		return nil, &FetchError{Symbol: symbol, Err: ErrNoPrice}
	}

	now := f.now()
	daily, err := f.provider.History(ctx, symbol, now.AddDate(-1, 0, 0), now, Daily)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Err: fmt.Errorf("daily history: %w", err)}
	}
	monthly, err := f.provider.History(ctx, symbol, now.AddDate(-maxHistoryYears, 0, 0), now, Monthly)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Err: fmt.Errorf("monthly history: %w", err)}
	}
	if len(daily) == 0 && len(monthly) == 0 {
		return nil, &FetchError{Symbol: symbol, Err: ErrNoHistory}
	}

	record := &models.StockRecord{
		Symbol:           symbol,
		Name:             quote.Name,
		Sector:           quote.Sector,
		Price:            quote.Price,
		FiftyTwoWeekHigh: quote.FiftyTwoWeekHigh,
		PE:               quote.ForwardPE,
		ProfitMargins:    quote.ProfitMargins,
		DebtToEquity:     quote.DebtToEquity,
		MarketCap:        quote.MarketCap,
	}
	if record.PE == nil {
		record.PE = quote.TrailingPE
	}
	if quote.DividendYield != nil {
		record.DividendYield = *quote.DividendYield
	}

	ath := AllTimeHigh(*quote.Price, daily, monthly)
	record.AllTimeHigh = &ath
	record.DiscountAllTimeHigh = Discount(*quote.Price, ath)
	record.LastFiveYearsReturn = TrailingReturn(monthly, now.AddDate(-returnWindowYears, 0, 0))
	return record, nil
}

// GroupBySector buckets records by sector, using models.UnknownSector for
// records without one
func GroupBySector(records []models.StockRecord) map[string][]models.StockRecord {
	groups := make(map[string][]models.StockRecord)
	for _, r := range records {
		sector := r.SectorOrUnknown()
		r.Sector = sector
		groups[sector] = append(groups[sector], r)
	}
	return groups
}

// AllTimeHigh is the highest bar high across the histories, and at least price
func AllTimeHigh(price float64, histories ...[]models.PriceBar) float64 {
	high := decimal.NewFromFloat(price)
	for _, bars := range histories {
		for _, b := range bars {
			if b.High.GreaterThan(high) {
				high = b.High
			}
		}
	}
	return high.InexactFloat64()
}

// Discount returns 1 - price/ath, or nil when ath is not positive
func Discount(price, ath float64) *float64 {
	if ath <= 0 {
		return nil
	}
	d := 1 - price/ath
	return &d
}

// TrailingReturn is (close_end - close_start)/close_start where start is the
// first bar on or after since. It is nil unless the bars reach back to since.
func TrailingReturn(bars []models.PriceBar, since time.Time) *float64 {
	if len(bars) < 2 || bars[0].Date.After(since) {
		return nil
	}

	var start *models.PriceBar
	for i := range bars {
		if !bars[i].Date.Before(since) {
			start = &bars[i]
			break
		}
	}
	end := bars[len(bars)-1]
	if start == nil || start.Close.IsZero() || start == &bars[len(bars)-1] {
		return nil
	}

	r := end.Close.Sub(start.Close).Div(start.Close).InexactFloat64()
	return &r
}

func (f *Fetcher) delay() time.Duration {
	spread := f.cfg.MaxDelay - f.cfg.MinDelay
	if spread <= 0 {
		return f.cfg.MinDelay
	}
	return f.cfg.MinDelay + time.Duration(f.rng.Int63n(int64(spread)+1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
