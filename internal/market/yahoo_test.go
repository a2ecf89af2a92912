package market

import (
	"context"
	"errors"
	"testing"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestYahoo(t *testing.T) *YahooProvider {
	t.Helper()
	srv, _ := newSummaryServer(t)
	summary := NewSummaryClient(5*time.Second,
		WithSummaryURL(srv.URL),
		WithCookieURL(srv.URL+"/"),
		WithRateLimit(100),
	)

	p := NewYahooProvider(summary, zerolog.Nop())
	p.equity = func(symbol string) (*finance.Equity, error) {
		eq := &finance.Equity{}
		eq.Symbol = symbol
		eq.ShortName = symbol + " Inc."
		eq.RegularMarketPrice = 150
		eq.FiftyTwoWeekHigh = 180
		return eq, nil
	}
	return p
}

func TestYahooProvider_QuoteMergesSummary(t *testing.T) {
	p := newTestYahoo(t)

	q, err := p.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Technology", q.Sector)
	assert.Equal(t, 150.0, *q.Price)
	require.NotNil(t, q.ProfitMargins)
	assert.Equal(t, 0.24, *q.ProfitMargins)
	assert.Equal(t, 33.1, *q.TrailingPE)
}

func TestYahooProvider_SummaryFailureFailsQuote(t *testing.T) {
	p := newTestYahoo(t)

	_, err := p.Quote(context.Background(), "NOPE")
	require.ErrorIs(t, err, ErrSummaryUnavailable)
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))

	f, _ := newTestFetcher(p)
	f.cfg.RequestTimeout = 5 * time.Second
	records := f.FetchStocks(context.Background(), []string{"NOPE"})
	assert.Empty(t, records)
}

func TestYahooProvider_WithoutSummary(t *testing.T) {
	p := newTestYahoo(t)
	p.summary = nil

	q, err := p.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Empty(t, q.Sector)
	assert.Nil(t, q.ProfitMargins)
}
