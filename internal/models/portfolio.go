package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding represents one line of an imported portfolio
type Holding struct {
	ID                   int             `json:"id"`
	PortfolioID          string          `json:"portfolio_id"`
	Symbol               string          `json:"stock_symbol" validate:"required,max=10"`
	AllocationPercentage decimal.Decimal `json:"allocation_percentage"`
	LastUpdated          time.Time       `json:"last_updated"`
}

// Portfolio is the set of holdings sharing one import id
type Portfolio struct {
	ID       string     `json:"id"`
	Holdings []*Holding `json:"holdings"`
}

// Symbols returns the holding symbols in import order
func (p *Portfolio) Symbols() []string {
	symbols := make([]string, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		symbols = append(symbols, h.Symbol)
	}
	return symbols
}

// PortfolioEvent is a portfolio snapshot received from Kafka
type PortfolioEvent struct {
	EventType string             `json:"event_type"`
	Source    string             `json:"source"`
	Timestamp string             `json:"timestamp"`
	Data      PortfolioEventData `json:"data"`
}

// PortfolioEventData holds the snapshot lines
type PortfolioEventData struct {
	Holdings []PortfolioEventHolding `json:"holdings"`
}

// PortfolioEventHolding is one snapshot line; allocation is a decimal string
type PortfolioEventHolding struct {
	Symbol               string `json:"stock_symbol"`
	AllocationPercentage string `json:"allocation_percentage"`
}
