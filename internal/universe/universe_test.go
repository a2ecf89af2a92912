package universe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/finfun/internal/models"
)

const constituentsPage = `<html><body>
<table class="wikitable sortable" id="constituents">
<tbody>
<tr><th>Symbol</th><th>Security</th><th>GICS Sector</th><th>GICS Sub-Industry</th></tr>
<tr><td><a href="#">MMM</a></td><td><a href="#">3M</a></td><td>Industrials</td><td>Industrial Conglomerates</td></tr>
<tr><td><a href="#">AAPL</a>
</td><td>Apple Inc.</td><td>Information Technology</td><td>Technology Hardware</td></tr>
<tr><td>BRK.B</td><td>Berkshire Hathaway</td><td>Financials</td><td>Multi-Sector Holdings</td></tr>
</tbody>
</table>
<table class="wikitable" id="changes"><tr><td>X</td><td>Y</td><td>Z</td></tr></table>
</body></html>`

func TestParseConstituents(t *testing.T) {
	tickers, err := ParseConstituents(strings.NewReader(constituentsPage))
	require.NoError(t, err)
	require.Len(t, tickers, 3)

	assert.Equal(t, models.Ticker{Symbol: "MMM", Security: "3M", Sector: "Industrials"}, tickers[0])
	assert.Equal(t, "AAPL", tickers[1].Symbol)
	assert.Equal(t, "Information Technology", tickers[1].Sector)
	assert.Equal(t, "BRK-B", tickers[2].Symbol)
}

func TestParseConstituents_NoTable(t *testing.T) {
	_, err := ParseConstituents(strings.NewReader("<html><p>nothing</p></html>"))
	require.Error(t, err)
}

func TestScraper_ScrapeSP500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(constituentsPage))
	}))
	defer srv.Close()

	s := NewScraper(srv.URL, time.Second, zerolog.Nop())
	tickers, err := s.ScrapeSP500(context.Background())
	require.NoError(t, err)
	assert.Len(t, tickers, 3)

	t.Run("non-200 fails", func(t *testing.T) {
		bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer bad.Close()

		_, err := NewScraper(bad.URL, time.Second, zerolog.Nop()).ScrapeSP500(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})
}

func TestParseNasdaqListed(t *testing.T) {
	listing := `Symbol|Security Name|Market Category|Test Issue|Financial Status|Round Lot Size|ETF|NextShares
AAPL|Apple Inc. - Common Stock|Q|N|N|100|N|N
QQQ|Invesco QQQ Trust, Series 1|G|N|N|100|Y|N
ZXZZT|NASDAQ TEST STOCK|G|Y|N|100|N|N
MSFT|Microsoft Corporation - Common Stock|Q|N|N|100|N|N
File Creation Time: 0302202612:00|||||||
`
	tickers, err := ParseNasdaqListed(strings.NewReader(listing))
	require.NoError(t, err)
	require.Len(t, tickers, 2)
	assert.Equal(t, "AAPL", tickers[0].Symbol)
	assert.Equal(t, "Microsoft Corporation - Common Stock", tickers[1].Security)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "stocks_list.json")
	in := []models.Ticker{
		{Symbol: "AAPL", Security: "Apple Inc.", Sector: "Information Technology"},
		{Symbol: "XOM", Security: "ExxonMobil", Sector: "Energy"},
	}

	require.NoError(t, Save(path, in))
	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestSymbols(t *testing.T) {
	tickers := []models.Ticker{{Symbol: "A"}, {Symbol: "B"}, {Symbol: "C"}}
	assert.Equal(t, []string{"A", "B", "C"}, Symbols(tickers, 0))
	assert.Equal(t, []string{"A", "B"}, Symbols(tickers, 2))
}

func TestIndex_Search(t *testing.T) {
	idx, err := NewIndex([]models.Ticker{
		{Symbol: "AAPL", Security: "Apple Inc.", Sector: "Information Technology"},
		{Symbol: "AAP", Security: "Advance Auto Parts", Sector: "Consumer Discretionary"},
		{Symbol: "MSFT", Security: "Microsoft Corp.", Sector: "Information Technology"},
		{Symbol: "msft", Security: "duplicate"},
	})
	require.NoError(t, err)
	defer idx.Close()

	assert.Equal(t, 3, idx.Len())

	t.Run("exact symbol ranks first", func(t *testing.T) {
		res, err := idx.Search("aap", 5)
		require.NoError(t, err)
		require.NotEmpty(t, res)
		assert.Equal(t, "AAP", res[0].Symbol)

		var symbols []string
		for _, r := range res {
			symbols = append(symbols, r.Symbol)
		}
		assert.Contains(t, symbols, "AAPL")
	})

	t.Run("matches security name", func(t *testing.T) {
		res, err := idx.Search("Microsoft", 5)
		require.NoError(t, err)
		require.NotEmpty(t, res)
		assert.Equal(t, "MSFT", res[0].Symbol)
	})

	t.Run("blank query", func(t *testing.T) {
		res, err := idx.Search("  ", 5)
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("get by symbol", func(t *testing.T) {
		ticker, ok := idx.Get("aapl")
		require.True(t, ok)
		assert.Equal(t, "Apple Inc.", ticker.Security)
	})
}
