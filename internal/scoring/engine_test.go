package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/finfun/internal/models"
)

func threeStockSector() []models.StockRecord {
	return []models.StockRecord{
		{
			Symbol: "AAA", Sector: "Technology",
			DividendYield:       0.02,
			DebtToEquity:        models.Float(1.0),
			ProfitMargins:       models.Float(0.2),
			PE:                  models.Float(10),
			DiscountAllTimeHigh: models.Float(0.3),
			LastFiveYearsReturn: models.Float(0.5),
		},
		{
			Symbol: "BBB", Sector: "Technology",
			DividendYield:       0.03,
			DebtToEquity:        models.Float(0.5),
			ProfitMargins:       models.Float(0.1),
			PE:                  models.Float(20),
			DiscountAllTimeHigh: models.Float(0.1),
			LastFiveYearsReturn: models.Float(1.0),
		},
		{
			Symbol: "CCC", Sector: "Technology",
			DividendYield:       0.01,
			DebtToEquity:        models.Float(1.5),
			ProfitMargins:       models.Float(0.3),
			PE:                  models.Float(30),
			DiscountAllTimeHigh: models.Float(0.2),
			LastFiveYearsReturn: models.Float(0.2),
		},
	}
}

func TestNewEngine(t *testing.T) {
	t.Run("defaults to score bins", func(t *testing.T) {
		e, err := NewEngine("")
		require.NoError(t, err)
		assert.Equal(t, PolicyScoreBins, e.policy)
	})

	t.Run("rejects unknown policy", func(t *testing.T) {
		_, err := NewEngine("coin_flip")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "coin_flip")
	})
}

func TestScoreGroup_HandComputedSector(t *testing.T) {
	e, err := NewEngine(PolicyScoreBins)
	require.NoError(t, err)

	scored := e.ScoreGroup(threeStockSector())
	require.Len(t, scored, 3)
	a, b, c := scored[0], scored[1], scored[2]

	t.Run("normalized metrics", func(t *testing.T) {
		assert.InDelta(t, 0, *a.NormalizedDividendYield, 1e-9)
		assert.InDelta(t, 1, *b.NormalizedDividendYield, 1e-9)
		assert.InDelta(t, -1, *c.NormalizedDividendYield, 1e-9)
		assert.InDelta(t, -1, *a.NormalizedPE, 1e-9)
		assert.InDelta(t, 1, *a.NormalizedDiscountAllTimeHigh, 1e-9)
	})

	t.Run("health and value composites", func(t *testing.T) {
		assert.InDelta(t, 0, a.HealthScore, 1e-9)
		assert.InDelta(t, 1.0/3.0, b.HealthScore, 1e-9)
		assert.InDelta(t, -1.0/3.0, c.HealthScore, 1e-9)

		assert.InDelta(t, 1.0, a.ValueScore, 1e-9)
		assert.InDelta(t, -0.4, b.ValueScore, 1e-9)
		assert.InDelta(t, -0.6, c.ValueScore, 1e-9)
	})

	t.Run("ranks", func(t *testing.T) {
		assert.Equal(t, []int{2, 1, 3}, []int{a.HealthScoreRank, b.HealthScoreRank, c.HealthScoreRank})
		assert.Equal(t, []int{1, 2, 3}, []int{a.ValueScoreRank, b.ValueScoreRank, c.ValueScoreRank})
		assert.Equal(t, []int{2, 1, 3}, []int{a.LastFiveYearsReturnRank, b.LastFiveYearsReturnRank, c.LastFiveYearsReturnRank})
		assert.Equal(t, []int{2, 1, 3}, []int{a.TotalRank, b.TotalRank, c.TotalRank})
	})

	t.Run("total score and labels", func(t *testing.T) {
		spread := 0.5 + (1.0/3.0+0.6)/2
		assert.InDelta(t, 50+0.5/spread*50, a.TotalScore, 1e-9)
		assert.Equal(t, LabelStrongBuy, a.Recommendation)
		assert.Equal(t, LabelBuy, b.Recommendation)
		assert.Equal(t, LabelSell, c.Recommendation)
	})
}

func TestScoreGroup_MissingPE(t *testing.T) {
	records := threeStockSector()
	records[2].PE = nil

	e, err := NewEngine(PolicyNone)
	require.NoError(t, err)
	scored := e.ScoreGroup(records)

	assert.Nil(t, scored[2].NormalizedPE)
	require.NotNil(t, scored[0].NormalizedPE)
	require.NotNil(t, scored[1].NormalizedPE)
	assert.NotNil(t, scored[2].NormalizedDiscountAllTimeHigh)

	assert.InDelta(t, weightDiscount*(*scored[2].NormalizedDiscountAllTimeHigh), scored[2].ValueScore, 1e-12)
	assert.Empty(t, scored[2].Recommendation)
}

func TestScoreGroup_MissingReturnRanksLast(t *testing.T) {
	records := threeStockSector()
	records[1].LastFiveYearsReturn = nil

	e, err := NewEngine(PolicyScoreBins)
	require.NoError(t, err)
	scored := e.ScoreGroup(records)

	assert.Equal(t, 1, scored[0].LastFiveYearsReturnRank)
	assert.Equal(t, 3, scored[1].LastFiveYearsReturnRank)
	assert.Equal(t, 2, scored[2].LastFiveYearsReturnRank)
}

func TestScoreGroup_ConstantSector(t *testing.T) {
	records := []models.StockRecord{
		{Symbol: "X", DividendYield: 0.01, PE: models.Float(15)},
		{Symbol: "Y", DividendYield: 0.01, PE: models.Float(15)},
	}
	e, err := NewEngine(PolicyScoreBins)
	require.NoError(t, err)
	scored := e.ScoreGroup(records)

	for _, s := range scored {
		assert.Equal(t, 0.0, *s.NormalizedPE)
		assert.Nil(t, s.NormalizedDebtToEquity)
		assert.Equal(t, 50.0, s.TotalScore)
		assert.Equal(t, 1, s.TotalRank)
		assert.Equal(t, LabelBuy, s.Recommendation)
	}
}

func TestScoreSectors_GroupsAreIndependent(t *testing.T) {
	e, err := NewEngine(PolicyScoreBins)
	require.NoError(t, err)

	tech := threeStockSector()
	groups := map[string][]models.StockRecord{
		"Technology": tech,
		"Energy": {
			{Symbol: "OIL", Sector: "Energy", DividendYield: 0.05, PE: models.Float(8)},
		},
		"Empty": nil,
	}

	scored := e.ScoreSectors(groups)
	require.Len(t, scored, 2)
	alone := e.ScoreGroup(tech)
	for i := range alone {
		assert.Equal(t, alone[i].TotalRank, scored["Technology"][i].TotalRank)
		assert.InDelta(t, alone[i].TotalScore, scored["Technology"][i].TotalScore, 1e-12)
	}
	assert.Equal(t, 1, scored["Energy"][0].TotalRank)
}

func TestThresholdPolicy(t *testing.T) {
	e, err := NewEngine(PolicyThreshold)
	require.NoError(t, err)

	buy := &models.ScoredRecord{TotalRank: 2, ValueScoreRank: 3, NormalizedDiscountAllTimeHigh: models.Float(0.8)}
	sell := &models.ScoredRecord{TotalRank: 14, ValueScoreRank: 12, NormalizedDiscountAllTimeHigh: models.Float(-0.5)}
	none := &models.ScoredRecord{TotalRank: 2, ValueScoreRank: 3, NormalizedDiscountAllTimeHigh: models.Float(0.2)}
	missing := &models.ScoredRecord{TotalRank: 1}

	assert.Equal(t, LabelBuy, e.Recommend(buy))
	assert.Equal(t, LabelSell, e.Recommend(sell))
	assert.Empty(t, e.Recommend(none))
	assert.Empty(t, e.Recommend(missing))
}

func TestScoreBinLabel(t *testing.T) {
	assert.Equal(t, LabelSell, scoreBinLabel(30))
	assert.Equal(t, LabelHold, scoreBinLabel(30.01))
	assert.Equal(t, LabelHold, scoreBinLabel(45))
	assert.Equal(t, LabelBuy, scoreBinLabel(65))
	assert.Equal(t, LabelStrongBuy, scoreBinLabel(65.5))
}

func TestTopRankedAndSort(t *testing.T) {
	e, err := NewEngine(PolicyScoreBins)
	require.NoError(t, err)
	groups := map[string][]*models.ScoredRecord{
		"Technology": e.ScoreGroup(threeStockSector()),
	}

	top := TopRanked(groups, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "BBB", top[0].Symbol)
	assert.Equal(t, "AAA", top[1].Symbol)

	all := Flatten(groups)
	require.Len(t, all, 3)
	SortByTotalRank(all)
	assert.Equal(t, []string{"BBB", "AAA", "CCC"}, []string{all[0].Symbol, all[1].Symbol, all[2].Symbol})
}

func TestComputeSectorStats(t *testing.T) {
	records := threeStockSector()
	records = append(records, models.StockRecord{Symbol: "ZZZ", DividendYield: 0.04})

	stats := ComputeSectorStats(records)
	require.Len(t, stats, 2)
	assert.Equal(t, "Technology", stats[0].Sector)
	assert.Equal(t, 3, stats[0].Stocks)
	assert.InDelta(t, 20, stats[0].PE.Mean, 1e-9)
	// population deviation of 10, 20, 30
	assert.InDelta(t, 8.164965809277260, stats[0].PE.Stdev, 1e-9)

	assert.Equal(t, models.UnknownSector, stats[1].Sector)
	assert.Equal(t, 0, stats[1].PE.Count)
}
