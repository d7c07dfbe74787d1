package analysis

import (
	"fmt"
)

// KruskalWallisResult holds the tie-corrected H statistic
type KruskalWallisResult struct {
	H      float64
	PValue float64
	DF     int
	N      int
	Tied   bool // every observation has the same value
}

// rankedGroups is the shared rank state used by Kruskal-Wallis and Dunn
type rankedGroups struct {
	sizes     []int
	rankSums  []float64
	n         int
	tieSum    float64
	allEquals bool
}

func rankGroups(groups [][]float64) rankedGroups {
	var pooled []float64
	for _, g := range groups {
		pooled = append(pooled, g...)
	}
	ranks, ties := rankAverage(pooled)

	rg := rankedGroups{
		sizes:    make([]int, len(groups)),
		rankSums: make([]float64, len(groups)),
		n:        len(pooled),
		tieSum:   tieSum(ties),
	}
	offset := 0
	for i, g := range groups {
		rg.sizes[i] = len(g)
		for k := range g {
			rg.rankSums[i] += ranks[offset+k]
		}
		offset += len(g)
	}
	rg.allEquals = len(ties) == 1 && ties[0] == rg.n
	return rg
}

func (rg rankedGroups) meanRank(i int) float64 {
	return rg.rankSums[i] / float64(rg.sizes[i])
}

// KruskalWallis runs the rank-based omnibus test over two or more groups.
// Groups must already be free of missing values.
func KruskalWallis(groups [][]float64) (KruskalWallisResult, error) {
	if len(groups) < 2 {
		return KruskalWallisResult{}, fmt.Errorf("kruskal-wallis needs at least 2 groups, got %d", len(groups))
	}
	for i, g := range groups {
		if len(g) == 0 {
			return KruskalWallisResult{}, fmt.Errorf("kruskal-wallis group %d is empty", i)
		}
	}

	rg := rankGroups(groups)
	df := len(groups) - 1
	result := KruskalWallisResult{DF: df, N: rg.n}

	if rg.allEquals {
		result.H = 0
		result.PValue = 1
		result.Tied = true
		return result, nil
	}

	n := float64(rg.n)
	sum := 0.0
	for i := range groups {
		sum += rg.rankSums[i] * rg.rankSums[i] / float64(rg.sizes[i])
	}
	h := 12/(n*(n+1))*sum - 3*(n+1)
	h /= 1 - rg.tieSum/(n*n*n-n)

	result.H = h
	result.PValue = NewDistributions().ChiSquarePValue(h, df)
	return result, nil
}
