package analysis

import (
	"fmt"
	"math"

	"tumorexpr/domain/stats"
)

// Dunn computes pairwise rank comparisons with the tie-corrected variance and
// a Bonferroni adjustment over all k(k-1)/2 pairs. names labels the groups
// in matrix order.
func Dunn(names []string, groups [][]float64) (*stats.PosthocMatrix, error) {
	k := len(groups)
	if k < 2 {
		return nil, fmt.Errorf("dunn test needs at least 2 groups, got %d", k)
	}
	if len(names) != k {
		return nil, fmt.Errorf("dunn test got %d names for %d groups", len(names), k)
	}

	rg := rankGroups(groups)
	n := float64(rg.n)
	a := n * (n + 1) / 12
	tieAdj := rg.tieSum / (12 * (n - 1))
	comparisons := k * (k - 1) / 2
	dist := NewDistributions()

	matrix := &stats.PosthocMatrix{
		Method:      stats.MethodDunnBonferroni,
		Groups:      append([]string(nil), names...),
		Adjusted:    square(k, 1),
		Raw:         square(k, 1),
		Z:           square(k, 0),
		Comparisons: comparisons,
	}

	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			diff := math.Abs(rg.meanRank(i) - rg.meanRank(j))
			b := 1/float64(rg.sizes[i]) + 1/float64(rg.sizes[j])
			variance := (a - tieAdj) * b

			var z, p float64
			if variance > 0 {
				z = diff / math.Sqrt(variance)
				p = dist.TwoSidedNormalPValue(z)
			} else {
				p = 1
			}
			adjusted := math.Min(1, p*float64(comparisons))

			matrix.Z[i][j], matrix.Z[j][i] = z, z
			matrix.Raw[i][j], matrix.Raw[j][i] = p, p
			matrix.Adjusted[i][j], matrix.Adjusted[j][i] = adjusted, adjusted
		}
	}
	return matrix, nil
}

func square(k int, diagonal float64) [][]float64 {
	m := make([][]float64, k)
	for i := range m {
		m[i] = make([]float64, k)
		m[i][i] = diagonal
	}
	return m
}
