package stats

import (
	"math"
	"sort"
)

// Quantile interpolates linearly between closest ranks at position (n-1)·q
// of the sorted values, matching numpy's default. Empty input gives NaN.
func Quantile(values []float64, q float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	pos := float64(n-1) * q
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}
