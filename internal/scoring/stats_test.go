package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/finfun/internal/models"
)

func floats(vs ...float64) []*float64 {
	out := make([]*float64, len(vs))
	for i, v := range vs {
		out[i] = models.Float(v)
	}
	return out
}

func TestZScores(t *testing.T) {
	t.Run("mean zero and unit sample deviation", func(t *testing.T) {
		z := ZScores(floats(1.5, 3, 7.25, 10, 42))

		var xs []float64
		for _, v := range z {
			require.NotNil(t, v)
			xs = append(xs, *v)
		}
		mean, stdev := MeanStdev(xs)
		assert.InDelta(t, 0, mean, 1e-9)
		assert.InDelta(t, 1, stdev, 1e-9)
	})

	t.Run("uses n-1 deviation", func(t *testing.T) {
		// mean 2, sample stdev 1
		z := ZScores(floats(1, 2, 3))
		assert.InDelta(t, -1, *z[0], 1e-12)
		assert.InDelta(t, 0, *z[1], 1e-12)
		assert.InDelta(t, 1, *z[2], 1e-12)
	})

	t.Run("constant metric normalizes to zero", func(t *testing.T) {
		z := ZScores(floats(4, 4, 4, 4))
		for _, v := range z {
			require.NotNil(t, v)
			assert.Equal(t, 0.0, *v)
		}
	})

	t.Run("single value is centered", func(t *testing.T) {
		z := ZScores(floats(12))
		require.NotNil(t, z[0])
		assert.Equal(t, 0.0, *z[0])
	})

	t.Run("missing values stay missing", func(t *testing.T) {
		values := []*float64{models.Float(10), nil, models.Float(20), models.Float(30)}

		z := ZScores(values)
		require.Len(t, z, 4)
		assert.Nil(t, z[1])
		assert.InDelta(t, -1, *z[0], 1e-12)
		assert.InDelta(t, 0, *z[2], 1e-12)
		assert.InDelta(t, 1, *z[3], 1e-12)
	})

	t.Run("all missing", func(t *testing.T) {
		z := ZScores([]*float64{nil, nil})
		assert.Nil(t, z[0])
		assert.Nil(t, z[1])
	})
}

func TestRankDescending(t *testing.T) {
	t.Run("competition ranking for ties", func(t *testing.T) {
		assert.Equal(t, []int{1, 1, 3}, RankDescending(floats(5, 5, 2)))
	})

	t.Run("orders largest first", func(t *testing.T) {
		assert.Equal(t, []int{3, 1, 2, 4}, RankDescending(floats(0.2, 0.9, 0.5, -1)))
	})

	t.Run("missing values rank last and tie", func(t *testing.T) {
		values := []*float64{nil, models.Float(1), nil, models.Float(3)}
		assert.Equal(t, []int{3, 2, 3, 1}, RankDescending(values))
	})

	t.Run("tie in the middle skips", func(t *testing.T) {
		assert.Equal(t, []int{1, 2, 2, 4}, RankDescending(floats(9, 7, 7, 1)))
	})
}

func TestRankAscending(t *testing.T) {
	assert.Equal(t, []int{2, 1, 2}, RankAscending(floats(6, 3, 6)))
}

func TestMeanStdev(t *testing.T) {
	mean, stdev := MeanStdev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5, mean, 1e-12)
	assert.InDelta(t, math.Sqrt(32.0/7.0), stdev, 1e-12)

	mean, stdev = MeanStdev(nil)
	assert.Zero(t, mean)
	assert.Zero(t, stdev)
}

func TestMeanPopulationStdev(t *testing.T) {
	mean, stdev := MeanPopulationStdev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5, mean, 1e-12)
	assert.InDelta(t, 2, stdev, 1e-12)

	mean, stdev = MeanPopulationStdev([]float64{3})
	assert.InDelta(t, 3, mean, 1e-12)
	assert.Zero(t, stdev)

	mean, stdev = MeanPopulationStdev(nil)
	assert.Zero(t, mean)
	assert.Zero(t, stdev)
}
