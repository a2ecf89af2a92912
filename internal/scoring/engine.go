// Package scoring normalizes fundamentals within a sector and derives the
// health, value and total ranks used to compare stocks of that sector.
package scoring

import (
	"fmt"
	"sort"

	"github.com/trogers1052/finfun/internal/models"
)

// Composite weights
const (
	weightDividendYield = 1.0 / 3.0
	weightDebtToEquity  = -1.0 / 3.0
	weightProfitMargins = 1.0 / 3.0

	weightPE       = -0.6
	weightDiscount = 0.4
)

// Label policies
const (
	PolicyScoreBins = "score_bins"
	PolicyThreshold = "threshold"
	PolicyNone      = "none"
)

// Recommendation labels
const (
	LabelSell      = "Sell"
	LabelHold      = "Hold"
	LabelBuy       = "Buy"
	LabelStrongBuy = "Strong Buy"
)

// Engine scores sector groups. It holds no state between calls.
type Engine struct {
	policy string
}

// NewEngine creates an Engine using the given label policy
func NewEngine(policy string) (*Engine, error) {
	switch policy {
	case "":
		policy = PolicyScoreBins
	case PolicyScoreBins, PolicyThreshold, PolicyNone:
	default:
		return nil, fmt.Errorf("unknown label policy %q", policy)
	}
	return &Engine{policy: policy}, nil
}

// ScoreSectors scores every group independently and returns the scored
// groups keyed by the same sector labels
func (e *Engine) ScoreSectors(groups map[string][]models.StockRecord) map[string][]*models.ScoredRecord {
	out := make(map[string][]*models.ScoredRecord, len(groups))
	for sector, records := range groups {
		if len(records) == 0 {
			continue
		}
		out[sector] = e.ScoreGroup(records)
	}
	return out
}

// ScoreGroup computes normalized metrics, composites, ranks and labels for
// one group. The result preserves the input order.
func (e *Engine) ScoreGroup(records []models.StockRecord) []*models.ScoredRecord {
	n := len(records)
	scored := make([]*models.ScoredRecord, n)

	dividend := make([]*float64, n)
	debt := make([]*float64, n)
	margins := make([]*float64, n)
	pe := make([]*float64, n)
	discount := make([]*float64, n)
	fiveYear := make([]*float64, n)
	for i, r := range records {
		scored[i] = &models.ScoredRecord{StockRecord: r}
		dy := r.DividendYield
		dividend[i] = &dy
		debt[i] = r.DebtToEquity
		margins[i] = r.ProfitMargins
		pe[i] = r.PE
		discount[i] = r.DiscountAllTimeHigh
		fiveYear[i] = r.LastFiveYearsReturn
	}

	zDividend := ZScores(dividend)
	zDebt := ZScores(debt)
	zMargins := ZScores(margins)
	zPE := ZScores(pe)
	zDiscount := ZScores(discount)

	health := make([]*float64, n)
	value := make([]*float64, n)
	combined := make([]float64, n)
	for i, s := range scored {
		s.NormalizedDividendYield = zDividend[i]
		s.NormalizedDebtToEquity = zDebt[i]
		s.NormalizedProfitMargins = zMargins[i]
		s.NormalizedPE = zPE[i]
		s.NormalizedDiscountAllTimeHigh = zDiscount[i]

		// a missing normalized metric contributes zero
		s.HealthScore = weightDividendYield*orZero(zDividend[i]) +
			weightDebtToEquity*orZero(zDebt[i]) +
			weightProfitMargins*orZero(zMargins[i])
		s.ValueScore = weightPE*orZero(zPE[i]) + weightDiscount*orZero(zDiscount[i])

		health[i] = models.Float(s.HealthScore)
		value[i] = models.Float(s.ValueScore)
		combined[i] = (s.HealthScore + s.ValueScore) / 2
	}

	healthRanks := RankDescending(health)
	valueRanks := RankDescending(value)
	returnRanks := RankDescending(fiveYear)

	rankSums := make([]*float64, n)
	for i := range scored {
		sum := float64(healthRanks[i] + valueRanks[i] + returnRanks[i])
		rankSums[i] = &sum
	}
	totalRanks := RankAscending(rankSums)
	totalScores := ScaleScores(combined)

	for i, s := range scored {
		s.HealthScoreRank = healthRanks[i]
		s.ValueScoreRank = valueRanks[i]
		s.LastFiveYearsReturnRank = returnRanks[i]
		s.TotalRank = totalRanks[i]
		s.TotalScore = totalScores[i]
		s.Recommendation = e.Recommend(s)
	}
	return scored
}

// ScaleScores maps xs onto a 0-100 style scale centered on 50:
// 50 + (x-mean)/(max-min)*50, or 50 everywhere when max equals min
func ScaleScores(xs []float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}

	lo, hi := xs[0], xs[0]
	var sum float64
	for _, x := range xs {
		sum += x
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	mean := sum / float64(len(xs))

	for i, x := range xs {
		if hi == lo {
			out[i] = 50
			continue
		}
		out[i] = 50 + (x-mean)/(hi-lo)*50
	}
	return out
}

// Recommend labels a scored record according to the engine's policy
func (e *Engine) Recommend(s *models.ScoredRecord) string {
	switch e.policy {
	case PolicyThreshold:
		return thresholdLabel(s)
	case PolicyNone:
		return ""
	default:
		return scoreBinLabel(s.TotalScore)
	}
}

// scoreBinLabel bins the scaled total score with right-closed intervals
// (-inf,30], (30,45], (45,65], (65,inf)
func scoreBinLabel(score float64) string {
	switch {
	case score <= 30:
		return LabelSell
	case score <= 45:
		return LabelHold
	case score <= 65:
		return LabelBuy
	default:
		return LabelStrongBuy
	}
}

const (
	rankBuyThreshold      = 10
	rankSellThreshold     = 10
	discountBuyThreshold  = 0.25
	discountSellThreshold = 0.1
)

func thresholdLabel(s *models.ScoredRecord) string {
	z := s.NormalizedDiscountAllTimeHigh
	if z == nil {
		return ""
	}
	label := ""
	if s.TotalRank < rankBuyThreshold && *z > discountBuyThreshold {
		label = LabelBuy
	}
	if s.ValueScoreRank > rankSellThreshold && *z < discountSellThreshold {
		label = LabelSell
	}
	return label
}

// SortByTotalRank orders records by total rank, then symbol
func SortByTotalRank(records []*models.ScoredRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].TotalRank != records[j].TotalRank {
			return records[i].TotalRank < records[j].TotalRank
		}
		return records[i].Symbol < records[j].Symbol
	})
}

// TopRanked returns up to r records per sector with the best health rank.
// Sectors are emitted in name order.
func TopRanked(groups map[string][]*models.ScoredRecord, r int) []*models.ScoredRecord {
	sectors := make([]string, 0, len(groups))
	for sector := range groups {
		sectors = append(sectors, sector)
	}
	sort.Strings(sectors)

	var out []*models.ScoredRecord
	for _, sector := range sectors {
		group := append([]*models.ScoredRecord(nil), groups[sector]...)
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].HealthScoreRank < group[j].HealthScoreRank
		})
		if r > 0 && len(group) > r {
			group = group[:r]
		}
		out = append(out, group...)
	}
	return out
}

// Flatten concatenates scored groups in sector name order, each group
// ordered by health rank
func Flatten(groups map[string][]*models.ScoredRecord) []*models.ScoredRecord {
	return TopRanked(groups, 0)
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
