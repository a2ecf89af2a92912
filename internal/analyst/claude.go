package analyst

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"github.com/trogers1052/finfun/internal/models"
)

const defaultModel = "claude-sonnet-4-5"

type messageClient interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// MarketSource supplies the latest fetched data for a symbol
type MarketSource interface {
	FetchStock(ctx context.Context, symbol string) (*models.StockRecord, error)
}

// ClaudeConfig configures the Claude analyst
type ClaudeConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
	Timeout   time.Duration
}

// Claude asks an Anthropic model for a JSON market outlook
type Claude struct {
	messages  messageClient
	market    MarketSource
	model     string
	maxTokens int64
	timeout   time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewClaude creates the analyst. market may be nil, in which case the
// prompt carries no fetched figures.
func NewClaude(cfg ClaudeConfig, market MarketSource, logger zerolog.Logger) (*Claude, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return newClaude(&client.Messages, cfg, market, logger), nil
}

func newClaude(messages messageClient, cfg ClaudeConfig, market MarketSource, logger zerolog.Logger) *Claude {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Claude{
		messages:  messages,
		market:    market,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		logger:    logger.With().Str("component", "analyst").Logger(),
		now:       time.Now,
	}
}

// Analyze runs one analysis and returns the validated report
func (c *Claude) Analyze(ctx context.Context, symbol, analysisType string) (*models.AnalystReport, error) {
	analysisType, err := NormalizeType(analysisType)
	if err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var record *models.StockRecord
	if c.market != nil {
		record, err = c.market.FetchStock(ctx, symbol)
		if err != nil {
			c.logger.Warn().Err(err).Str("symbol", symbol).Msg("market data unavailable, analyzing without it")
			record = nil
		}
	}

	date := c.now().UTC()
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(symbol, analysisType, date, record))),
		},
	}

	start := time.Now()
	resp, err := c.messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	report, err := ParseReport(text.String())
	if err != nil {
		return nil, err
	}
	report.Symbol = symbol
	report.AnalysisType = analysisType
	report.AnalysisDate = date
	if err := ValidateReport(report); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("symbol", symbol).
		Str("analysis_type", analysisType).
		Str("direction", report.Direction).
		Dur("elapsed", time.Since(start)).
		Msg("analysis complete")
	return report, nil
}

const systemPrompt = `You are a market analyst. Reply with a single JSON object and nothing else.
The object must have exactly these fields:
  "direction": one of "up", "down", "flat" (expected price movement next week)
  "expected_move": short range such as "up 2-3%"
  "confidence": integer from 1 (low) to 10 (high)
  "positive_factors": array of short strings
  "concerns": array of short strings
  "summary": a few sentences supporting the prediction`

// BuildPrompt returns the user prompt for one analysis
func BuildPrompt(symbol, analysisType string, date time.Time, record *models.StockRecord) string {
	var b strings.Builder
	day := date.Format("2006-01-02")

	switch analysisType {
	case TypeQuick:
		fmt.Fprintf(&b, "Analyze %s stock as of %s. Give a brief prediction for next week with 2-3 positive factors and 2-3 concerns.", symbol, day)
	case TypeDeep:
		fmt.Fprintf(&b, "Conduct a comprehensive analysis of %s stock as of %s covering company profile, financials and recent developments. "+
			"List 4-6 positive factors and 4-6 concerns, then give a detailed prediction for next week with a confidence level.", symbol, day)
	default:
		fmt.Fprintf(&b, "Analyze the positive developments and potential concerns of %s as of %s with the 2-4 most important factors each, kept concise. "+
			"Then make a rough prediction (e.g. up/down by 2-3%%) of the stock price movement for next week and summarize your reasoning.", symbol, day)
	}

	if record != nil {
		b.WriteString("\n\nLatest fetched data:\n")
		writeFigure(&b, "sector", record.SectorOrUnknown())
		writeNumber(&b, "price", record.Price)
		writeNumber(&b, "52 week high", record.FiftyTwoWeekHigh)
		writeNumber(&b, "all time high", record.AllTimeHigh)
		writeNumber(&b, "discount from all time high", record.DiscountAllTimeHigh)
		writeNumber(&b, "P/E", record.PE)
		writeFigure(&b, "dividend yield", strconv.FormatFloat(record.DividendYield, 'f', 4, 64))
		writeNumber(&b, "profit margins", record.ProfitMargins)
		writeNumber(&b, "debt to equity", record.DebtToEquity)
		writeNumber(&b, "5 year return", record.LastFiveYearsReturn)
	}
	return b.String()
}

func writeFigure(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "- %s: %s\n", name, value)
}

func writeNumber(b *strings.Builder, name string, v *float64) {
	if v == nil {
		return
	}
	writeFigure(b, name, strconv.FormatFloat(*v, 'f', 4, 64))
}

// ParseReport decodes the JSON object in a model reply. Code fences around
// the object are tolerated; anything else is an error.
func ParseReport(text string) (*models.AnalystReport, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidReport)
	}

	var report models.AnalystReport
	dec := json.NewDecoder(strings.NewReader(s))
	if err := dec.Decode(&report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing content after JSON object", ErrInvalidReport)
	}
	return &report, nil
}
