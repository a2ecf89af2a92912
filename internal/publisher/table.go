package publisher

import (
	"github.com/trogers1052/finfun/internal/database"
	"github.com/trogers1052/finfun/internal/models"
)

// Columns is the fixed column order of a published score table
var Columns = []string{
	"symbol",
	"name",
	"sector",
	"price",
	"fifty_two_week_high",
	"all_time_high",
	"discount_all_time_high",
	"pe",
	"dividend_yield",
	"profit_margins",
	"debt_to_equity",
	"market_cap",
	"last_5_years_return",
	"normalized_dividend_yield",
	"normalized_debt_to_equity",
	"normalized_profit_margins",
	"normalized_pe",
	"normalized_discount_all_time_high",
	"health_score",
	"value_score",
	"total_score",
	"health_score_rank",
	"value_score_rank",
	"last_5_years_return_rank",
	"total_rank",
	"recommendation",
}

// Table is a named set of scored records ready to publish
type Table struct {
	Name    string
	Records []*models.ScoredRecord
}

// NewTable creates a table
func NewTable(name string, records []*models.ScoredRecord) *Table {
	return &Table{Name: name, Records: records}
}

// Rows returns one cell slice per record in Columns order. Missing values
// are nil.
func (t *Table) Rows() [][]interface{} {
	rows := make([][]interface{}, 0, len(t.Records))
	for _, r := range t.Records {
		rows = append(rows, []interface{}{
			r.Symbol,
			r.Name,
			r.SectorOrUnknown(),
			cell(r.Price),
			cell(r.FiftyTwoWeekHigh),
			cell(r.AllTimeHigh),
			cell(r.DiscountAllTimeHigh),
			cell(r.PE),
			r.DividendYield,
			cell(r.ProfitMargins),
			cell(r.DebtToEquity),
			cell(r.MarketCap),
			cell(r.LastFiveYearsReturn),
			cell(r.NormalizedDividendYield),
			cell(r.NormalizedDebtToEquity),
			cell(r.NormalizedProfitMargins),
			cell(r.NormalizedPE),
			cell(r.NormalizedDiscountAllTimeHigh),
			r.HealthScore,
			r.ValueScore,
			r.TotalScore,
			int64(r.HealthScoreRank),
			int64(r.ValueScoreRank),
			int64(r.LastFiveYearsReturnRank),
			int64(r.TotalRank),
			r.Recommendation,
		})
	}
	return rows
}

func cell(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// ResultTable converts t into a typed SQL result table. Column types follow
// the values: integers become INTEGER, floats REAL, everything else TEXT.
func (t *Table) ResultTable(name string) *database.ResultTable {
	rows := t.Rows()
	cols := make([]database.Column, len(Columns))
	for i, c := range Columns {
		cols[i] = database.Column{Name: c, Type: inferType(rows, i, fallbackType(c))}
	}
	return &database.ResultTable{Name: name, Columns: cols, Rows: rows}
}

// inferType looks at the first non-nil value of column i
func inferType(rows [][]interface{}, i int, fallback database.ColumnType) database.ColumnType {
	for _, row := range rows {
		switch row[i].(type) {
		case nil:
			continue
		case int, int32, int64:
			return database.ColumnInteger
		case float32, float64:
			return database.ColumnReal
		default:
			return database.ColumnText
		}
	}
	return fallback
}

// fallbackType types a column with no values at all
func fallbackType(name string) database.ColumnType {
	switch name {
	case "symbol", "name", "sector", "recommendation":
		return database.ColumnText
	case "health_score_rank", "value_score_rank", "last_5_years_return_rank", "total_rank":
		return database.ColumnInteger
	}
	return database.ColumnReal
}
