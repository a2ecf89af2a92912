// Package universe builds and searches the list of tickers the pipeline
// scores: S&P 500 constituents scraped from Wikipedia, the Nasdaq listing
// file, or a cached JSON copy of either.
package universe

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/trogers1052/finfun/internal/models"
)

// DefaultSP500URL lists the S&P 500 constituents
const DefaultSP500URL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

// Scraper reads the constituents table from a Wikipedia page
type Scraper struct {
	url        string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewScraper creates a Scraper. An empty url uses DefaultSP500URL.
func NewScraper(url string, timeout time.Duration, logger zerolog.Logger) *Scraper {
	if url == "" {
		url = DefaultSP500URL
	}
	return &Scraper{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "universe").Logger(),
	}
}

// ScrapeSP500 downloads the page and parses the constituents table
func (s *Scraper) ScrapeSP500(ctx context.Context) ([]models.Ticker, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "finfun/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch constituents page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("constituents page returned status %d", resp.StatusCode)
	}

	tickers, err := ParseConstituents(resp.Body)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("tickers", len(tickers)).Msg("scraped S&P 500 constituents")
	return tickers, nil
}

// ParseConstituents extracts symbol, security and GICS sector from the
// first three columns of the constituents table. Dotted share classes are
// rewritten with a dash (BRK.B becomes BRK-B) to match quote symbols.
func ParseConstituents(r io.Reader) ([]models.Ticker, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create goquery document: %w", err)
	}

	table := doc.Find("table#constituents")
	if table.Length() == 0 {
		table = doc.Find("table.wikitable").First()
	}
	if table.Length() == 0 {
		return nil, fmt.Errorf("could not find S&P 500 table")
	}

	var tickers []models.Ticker
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		symbol := strings.TrimSpace(cells.Eq(0).Text())
		if symbol == "" {
			return
		}
		tickers = append(tickers, models.Ticker{
			Symbol:   strings.ReplaceAll(symbol, ".", "-"),
			Security: strings.TrimSpace(cells.Eq(1).Text()),
			Sector:   strings.TrimSpace(cells.Eq(2).Text()),
		})
	})

	if len(tickers) == 0 {
		return nil, fmt.Errorf("S&P 500 table has no rows")
	}
	return tickers, nil
}

// ParseNasdaqListed reads the pipe-delimited nasdaqlisted.txt format,
// skipping ETFs, test issues and the trailing file-creation line
func ParseNasdaqListed(r io.Reader) ([]models.Ticker, error) {
	scanner := bufio.NewScanner(r)

	var header map[string]int
	var tickers []models.Ticker
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "File Creation Time") {
			continue
		}
		fields := strings.Split(line, "|")

		if header == nil {
			header = make(map[string]int, len(fields))
			for i, f := range fields {
				header[strings.TrimSpace(f)] = i
			}
			if _, ok := header["Symbol"]; !ok {
				return nil, fmt.Errorf("nasdaq listing has no Symbol column")
			}
			continue
		}

		get := func(col string) string {
			i, ok := header[col]
			if !ok || i >= len(fields) {
				return ""
			}
			return strings.TrimSpace(fields[i])
		}
		if get("Test Issue") == "Y" || get("ETF") == "Y" {
			continue
		}
		tickers = append(tickers, models.Ticker{
			Symbol:   get("Symbol"),
			Security: get("Security Name"),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read nasdaq listing: %w", err)
	}
	return tickers, nil
}

// Save writes tickers to path as indented JSON
func Save(path string, tickers []models.Ticker) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create universe directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(tickers, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal tickers: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write universe file: %w", err)
	}
	return nil
}

// Load reads tickers previously written by Save
func Load(path string) ([]models.Ticker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file: %w", err)
	}
	var tickers []models.Ticker
	if err := json.Unmarshal(data, &tickers); err != nil {
		return nil, fmt.Errorf("failed to parse universe file: %w", err)
	}
	return tickers, nil
}

// Symbols returns the ticker symbols, truncated to limit when limit > 0
func Symbols(tickers []models.Ticker, limit int) []string {
	if limit > 0 && len(tickers) > limit {
		tickers = tickers[:limit]
	}
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, t.Symbol)
	}
	return out
}
