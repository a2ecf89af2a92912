package publisher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/trogers1052/finfun/internal/models"
)

// NullFloat is a float cell that is written empty when missing
type NullFloat struct {
	Value *float64
}

// MarshalCSV implements gocsv.TypeMarshaller
func (n NullFloat) MarshalCSV() (string, error) {
	if n.Value == nil {
		return "", nil
	}
	return strconv.FormatFloat(*n.Value, 'g', -1, 64), nil
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller
func (n *NullFloat) UnmarshalCSV(s string) error {
	if s == "" {
		n.Value = nil
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// csvRecord is the spreadsheet row; field order matches Columns
type csvRecord struct {
	Symbol                        string    `csv:"symbol"`
	Name                          string    `csv:"name"`
	Sector                        string    `csv:"sector"`
	Price                         NullFloat `csv:"price"`
	FiftyTwoWeekHigh              NullFloat `csv:"fifty_two_week_high"`
	AllTimeHigh                   NullFloat `csv:"all_time_high"`
	DiscountAllTimeHigh           NullFloat `csv:"discount_all_time_high"`
	PE                            NullFloat `csv:"pe"`
	DividendYield                 float64   `csv:"dividend_yield"`
	ProfitMargins                 NullFloat `csv:"profit_margins"`
	DebtToEquity                  NullFloat `csv:"debt_to_equity"`
	MarketCap                     NullFloat `csv:"market_cap"`
	LastFiveYearsReturn           NullFloat `csv:"last_5_years_return"`
	NormalizedDividendYield       NullFloat `csv:"normalized_dividend_yield"`
	NormalizedDebtToEquity        NullFloat `csv:"normalized_debt_to_equity"`
	NormalizedProfitMargins       NullFloat `csv:"normalized_profit_margins"`
	NormalizedPE                  NullFloat `csv:"normalized_pe"`
	NormalizedDiscountAllTimeHigh NullFloat `csv:"normalized_discount_all_time_high"`
	HealthScore                   float64   `csv:"health_score"`
	ValueScore                    float64   `csv:"value_score"`
	TotalScore                    float64   `csv:"total_score"`
	HealthScoreRank               int       `csv:"health_score_rank"`
	ValueScoreRank                int       `csv:"value_score_rank"`
	LastFiveYearsReturnRank       int       `csv:"last_5_years_return_rank"`
	TotalRank                     int       `csv:"total_rank"`
	Recommendation                string    `csv:"recommendation"`
}

func toCSV(r *models.ScoredRecord) *csvRecord {
	return &csvRecord{
		Symbol:                        r.Symbol,
		Name:                          r.Name,
		Sector:                        r.SectorOrUnknown(),
		Price:                         NullFloat{r.Price},
		FiftyTwoWeekHigh:              NullFloat{r.FiftyTwoWeekHigh},
		AllTimeHigh:                   NullFloat{r.AllTimeHigh},
		DiscountAllTimeHigh:           NullFloat{r.DiscountAllTimeHigh},
		PE:                            NullFloat{r.PE},
		DividendYield:                 r.DividendYield,
		ProfitMargins:                 NullFloat{r.ProfitMargins},
		DebtToEquity:                  NullFloat{r.DebtToEquity},
		MarketCap:                     NullFloat{r.MarketCap},
		LastFiveYearsReturn:           NullFloat{r.LastFiveYearsReturn},
		NormalizedDividendYield:       NullFloat{r.NormalizedDividendYield},
		NormalizedDebtToEquity:        NullFloat{r.NormalizedDebtToEquity},
		NormalizedProfitMargins:       NullFloat{r.NormalizedProfitMargins},
		NormalizedPE:                  NullFloat{r.NormalizedPE},
		NormalizedDiscountAllTimeHigh: NullFloat{r.NormalizedDiscountAllTimeHigh},
		HealthScore:                   r.HealthScore,
		ValueScore:                    r.ValueScore,
		TotalScore:                    r.TotalScore,
		HealthScoreRank:               r.HealthScoreRank,
		ValueScoreRank:                r.ValueScoreRank,
		LastFiveYearsReturnRank:       r.LastFiveYearsReturnRank,
		TotalRank:                     r.TotalRank,
		Recommendation:                r.Recommendation,
	}
}

func (c *csvRecord) scored() *models.ScoredRecord {
	return &models.ScoredRecord{
		StockRecord: models.StockRecord{
			Symbol:              c.Symbol,
			Name:                c.Name,
			Sector:              c.Sector,
			Price:               c.Price.Value,
			FiftyTwoWeekHigh:    c.FiftyTwoWeekHigh.Value,
			AllTimeHigh:         c.AllTimeHigh.Value,
			DiscountAllTimeHigh: c.DiscountAllTimeHigh.Value,
			PE:                  c.PE.Value,
			DividendYield:       c.DividendYield,
			ProfitMargins:       c.ProfitMargins.Value,
			DebtToEquity:        c.DebtToEquity.Value,
			MarketCap:           c.MarketCap.Value,
			LastFiveYearsReturn: c.LastFiveYearsReturn.Value,
		},
		NormalizedDividendYield:       c.NormalizedDividendYield.Value,
		NormalizedDebtToEquity:        c.NormalizedDebtToEquity.Value,
		NormalizedProfitMargins:       c.NormalizedProfitMargins.Value,
		NormalizedPE:                  c.NormalizedPE.Value,
		NormalizedDiscountAllTimeHigh: c.NormalizedDiscountAllTimeHigh.Value,
		HealthScore:                   c.HealthScore,
		ValueScore:                    c.ValueScore,
		TotalScore:                    c.TotalScore,
		HealthScoreRank:               c.HealthScoreRank,
		ValueScoreRank:                c.ValueScoreRank,
		LastFiveYearsReturnRank:       c.LastFiveYearsReturnRank,
		TotalRank:                     c.TotalRank,
		Recommendation:                c.Recommendation,
	}
}

// WriteCSV writes records to path, creating parent directories. An existing
// file is replaced.
func WriteCSV(path string, records []*models.ScoredRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	rows := make([]*csvRecord, 0, len(records))
	for _, r := range records {
		rows = append(rows, toCSV(r))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	err = gocsv.MarshalFile(&rows, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadCSV reads records previously written by WriteCSV
func ReadCSV(path string) ([]*models.ScoredRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var rows []*csvRecord
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	records := make([]*models.ScoredRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.scored())
	}
	return records, nil
}
