package scoring

import (
	"sort"

	"github.com/trogers1052/finfun/internal/models"
)

// MetricStats is the mean and population standard deviation of one metric.
// Scoring z-scores use the sample deviation instead.
type MetricStats struct {
	Mean  float64 `json:"mean"`
	Stdev float64 `json:"stdev"`
	Count int     `json:"count"`
}

// SectorStats summarizes the scoring inputs of one sector
type SectorStats struct {
	Sector              string      `json:"sector"`
	Stocks              int         `json:"stocks"`
	DividendYield       MetricStats `json:"dividend_yield"`
	ProfitMargins       MetricStats `json:"profit_margins"`
	DebtToEquity        MetricStats `json:"debt_to_equity"`
	PE                  MetricStats `json:"pe"`
	DiscountAllTimeHigh MetricStats `json:"discount_all_time_high"`
}

// ComputeSectorStats groups records by sector and summarizes each metric over
// the records that have it
func ComputeSectorStats(records []models.StockRecord) []SectorStats {
	bySector := make(map[string][]models.StockRecord)
	for _, r := range records {
		sector := r.SectorOrUnknown()
		bySector[sector] = append(bySector[sector], r)
	}

	out := make([]SectorStats, 0, len(bySector))
	for sector, group := range bySector {
		var dy, pm, de, pe, disc []float64
		for _, r := range group {
			dy = append(dy, r.DividendYield)
			pm = appendPresent(pm, r.ProfitMargins)
			de = appendPresent(de, r.DebtToEquity)
			pe = appendPresent(pe, r.PE)
			disc = appendPresent(disc, r.DiscountAllTimeHigh)
		}
		out = append(out, SectorStats{
			Sector:              sector,
			Stocks:              len(group),
			DividendYield:       metric(dy),
			ProfitMargins:       metric(pm),
			DebtToEquity:        metric(de),
			PE:                  metric(pe),
			DiscountAllTimeHigh: metric(disc),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sector < out[j].Sector })
	return out
}

func metric(xs []float64) MetricStats {
	mean, stdev := MeanPopulationStdev(xs)
	return MetricStats{Mean: mean, Stdev: stdev, Count: len(xs)}
}

func appendPresent(xs []float64, v *float64) []float64 {
	if v == nil {
		return xs
	}
	return append(xs, *v)
}
