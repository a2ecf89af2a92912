package models

import "time"

// UnknownSector is the sector label used for records without one
const UnknownSector = "Unknown"

// ScoreEvent represents a Kafka event emitted for each scored stock
type ScoreEvent struct {
	EventType string        `json:"event_type"`
	RunID     string        `json:"run_id,omitempty"`
	Symbol    string        `json:"symbol"`
	Score     *ScoredRecord `json:"score,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// StockRecord represents the fetched market and fundamental data for one symbol.
// Pointer fields are nil when the provider had no value.
type StockRecord struct {
	Symbol              string   `json:"symbol"`
	Name                string   `json:"name,omitempty"`
	Sector              string   `json:"sector"`
	Price               *float64 `json:"price,omitempty"`
	FiftyTwoWeekHigh    *float64 `json:"fifty_two_week_high,omitempty"`
	AllTimeHigh         *float64 `json:"all_time_high,omitempty"`
	DiscountAllTimeHigh *float64 `json:"discount_all_time_high,omitempty"`
	PE                  *float64 `json:"pe,omitempty"`
	DividendYield       float64  `json:"dividend_yield"`
	ProfitMargins       *float64 `json:"profit_margins,omitempty"`
	DebtToEquity        *float64 `json:"debt_to_equity,omitempty"`
	MarketCap           *float64 `json:"market_cap,omitempty"`
	LastFiveYearsReturn *float64 `json:"last_5_years_return,omitempty"`
}

// SectorOrUnknown returns the record's sector, falling back to UnknownSector
func (s StockRecord) SectorOrUnknown() string {
	if s.Sector == "" {
		return UnknownSector
	}
	return s.Sector
}

// ScoredRecord is a StockRecord plus the normalized metrics, composite scores
// and ranks computed within its sector group
type ScoredRecord struct {
	StockRecord

	NormalizedDividendYield       *float64 `json:"normalized_dividend_yield,omitempty"`
	NormalizedDebtToEquity        *float64 `json:"normalized_debt_to_equity,omitempty"`
	NormalizedProfitMargins       *float64 `json:"normalized_profit_margins,omitempty"`
	NormalizedPE                  *float64 `json:"normalized_pe,omitempty"`
	NormalizedDiscountAllTimeHigh *float64 `json:"normalized_discount_all_time_high,omitempty"`

	HealthScore float64 `json:"health_score"`
	ValueScore  float64 `json:"value_score"`
	TotalScore  float64 `json:"total_score"`

	HealthScoreRank         int `json:"health_score_rank"`
	ValueScoreRank          int `json:"value_score_rank"`
	LastFiveYearsReturnRank int `json:"last_5_years_return_rank"`
	TotalRank               int `json:"total_rank"`

	Recommendation string `json:"recommendation,omitempty"`
}

// Float returns a pointer to v, for populating optional metrics
func Float(v float64) *float64 {
	return &v
}
