// Package market fetches quotes, fundamentals and price history for a list
// of symbols and turns them into StockRecords.
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/trogers1052/finfun/internal/models"
)

// Interval is the bar size of a history request
type Interval string

const (
	Daily   Interval = "1d"
	Monthly Interval = "1mo"
)

// Quote holds the latest price and fundamentals of a symbol.
// Pointer fields are nil when the provider had no value.
type Quote struct {
	Symbol           string
	Name             string
	Sector           string
	Price            *float64
	FiftyTwoWeekHigh *float64
	ForwardPE        *float64
	TrailingPE       *float64
	DividendYield    *float64
	ProfitMargins    *float64
	DebtToEquity     *float64
	MarketCap        *float64
}

// Provider is a source of market data
type Provider interface {
	Quote(ctx context.Context, symbol string) (*Quote, error)
	History(ctx context.Context, symbol string, start, end time.Time, interval Interval) ([]models.PriceBar, error)
}

// FetchError reports a symbol that could not be fetched
type FetchError struct {
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
