package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultSummaryURL is the base URL of the quoteSummary API
	DefaultSummaryURL = "https://query2.finance.yahoo.com"

	// DefaultCookieURL is the page visited to obtain a session cookie
	DefaultCookieURL = "https://finance.yahoo.com"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Summary is the subset of quoteSummary modules used for scoring
type Summary struct {
	Sector        string
	Industry      string
	ProfitMargins *float64
	DebtToEquity  *float64
	DividendYield *float64
	TrailingPE    *float64
	ForwardPE     *float64
}

// APIError is a non-200 response from the summary API
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("summary api %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// SummaryClient reads fundamentals from the quoteSummary endpoint. It
// performs the cookie and crumb handshake once and reuses the crumb.
type SummaryClient struct {
	baseURL    string
	cookieURL  string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu    sync.Mutex
	crumb string
}

// SummaryOption configures a SummaryClient
type SummaryOption func(*SummaryClient)

// WithSummaryURL sets the API base URL
func WithSummaryURL(baseURL string) SummaryOption {
	return func(c *SummaryClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithCookieURL sets the page used to obtain the session cookie
func WithCookieURL(cookieURL string) SummaryOption {
	return func(c *SummaryClient) {
		c.cookieURL = cookieURL
	}
}

// WithRateLimit caps requests per second
func WithRateLimit(requestsPerSecond float64) SummaryOption {
	return func(c *SummaryClient) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
}

// NewSummaryClient creates a SummaryClient with a cookie jar
func NewSummaryClient(timeout time.Duration, opts ...SummaryOption) *SummaryClient {
	jar, _ := cookiejar.New(nil)
	c := &SummaryClient{
		baseURL:   DefaultSummaryURL,
		cookieURL: DefaultCookieURL,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(2), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rawValue struct {
	Raw *float64 `json:"raw"`
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
			} `json:"assetProfile"`
			FinancialData struct {
				ProfitMargins rawValue `json:"profitMargins"`
				DebtToEquity  rawValue `json:"debtToEquity"`
			} `json:"financialData"`
			SummaryDetail struct {
				DividendYield rawValue `json:"dividendYield"`
				TrailingPE    rawValue `json:"trailingPE"`
				ForwardPE     rawValue `json:"forwardPE"`
			} `json:"summaryDetail"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// Get fetches the summary modules for symbol
func (c *SummaryClient) Get(ctx context.Context, symbol string) (*Summary, error) {
	crumb, err := c.ensureCrumb(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("modules", "assetProfile,financialData,summaryDetail")
	params.Set("crumb", crumb)
	endpoint := "/v10/finance/quoteSummary/" + url.PathEscape(symbol)

	var resp summaryResponse
	if err := c.get(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}

	qs := resp.QuoteSummary
	if qs.Error != nil {
		return nil, fmt.Errorf("summary api %s: %s", qs.Error.Code, qs.Error.Description)
	}
	if len(qs.Result) == 0 {
		return nil, fmt.Errorf("no summary returned for %s", symbol)
	}

	r := qs.Result[0]
	return &Summary{
		Sector:        r.AssetProfile.Sector,
		Industry:      r.AssetProfile.Industry,
		ProfitMargins: r.FinancialData.ProfitMargins.Raw,
		DebtToEquity:  r.FinancialData.DebtToEquity.Raw,
		DividendYield: r.SummaryDetail.DividendYield.Raw,
		TrailingPE:    r.SummaryDetail.TrailingPE.Raw,
		ForwardPE:     r.SummaryDetail.ForwardPE.Raw,
	}, nil
}

func (c *SummaryClient) ensureCrumb(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.crumb != "" {
		return c.crumb, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cookieURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create cookie request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get cookie: %w", err)
	}
	resp.Body.Close()

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/test/getcrumb", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create crumb request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err = c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get crumb: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(body))
	if resp.StatusCode != http.StatusOK || crumb == "" || strings.Contains(crumb, "html") {
		return "", fmt.Errorf("invalid crumb received (status %d)", resp.StatusCode)
	}

	c.crumb = crumb
	return crumb, nil
}

func (c *SummaryClient) resetCrumb() {
	c.mu.Lock()
	c.crumb = ""
	c.mu.Unlock()
}

func (c *SummaryClient) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			c.resetCrumb()
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   path,
			Message:    string(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
