package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceBar represents one OHLCV bar of a symbol's price history
type PriceBar struct {
	Symbol string          `json:"symbol"`
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// Ticker is one entry of the stock universe
type Ticker struct {
	Symbol   string `json:"ticker"`
	Security string `json:"security_name"`
	Sector   string `json:"sector"`
}
