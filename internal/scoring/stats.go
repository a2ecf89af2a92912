package scoring

import (
	"math"
	"sort"
)

// ZScores normalizes values to (x-mean)/stdev using the sample standard
// deviation. Nil entries stay nil. When the deviation is zero or undefined
// the result is x-mean.
func ZScores(values []*float64) []*float64 {
	out := make([]*float64, len(values))

	var present []float64
	for _, v := range values {
		if v != nil {
			present = append(present, *v)
		}
	}
	if len(present) == 0 {
		return out
	}

	mean, stdev := MeanStdev(present)
	for i, v := range values {
		if v == nil {
			continue
		}
		z := *v - mean
		if stdev > 0 {
			z /= stdev
		}
		out[i] = &z
	}
	return out
}

// MeanStdev returns the mean and sample (n-1) standard deviation of xs.
// The deviation is 0 for fewer than two values.
func MeanStdev(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}

	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	if len(xs) < 2 {
		return mean, 0
	}

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)-1))
}

// MeanPopulationStdev returns the mean and population (n) standard deviation
// of xs. An empty slice yields zeros.
func MeanPopulationStdev(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	mean, _ := MeanStdev(xs)
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}

// RankDescending assigns competition ("min") ranks with the largest value
// ranked 1. Tied values share the lowest rank of the tie; the next distinct
// value skips accordingly (1, 1, 3). Nil values rank after every present
// value and tie with each other.
func RankDescending(values []*float64) []int {
	return competitionRank(values, func(a, b float64) bool { return a > b })
}

// RankAscending is RankDescending with the smallest value ranked 1.
func RankAscending(values []*float64) []int {
	return competitionRank(values, func(a, b float64) bool { return a < b })
}

func competitionRank(values []*float64, better func(a, b float64) bool) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}

	less := func(a, b int) bool {
		va, vb := values[a], values[b]
		switch {
		case va == nil:
			return false
		case vb == nil:
			return true
		default:
			return better(*va, *vb)
		}
	}
	sort.SliceStable(idx, func(i, j int) bool { return less(idx[i], idx[j]) })

	ranks := make([]int, len(values))
	for pos, i := range idx {
		if pos > 0 {
			prev := idx[pos-1]
			if !less(prev, i) && !less(i, prev) {
				ranks[i] = ranks[prev]
				continue
			}
		}
		ranks[i] = pos + 1
	}
	return ranks
}
