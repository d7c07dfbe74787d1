package analysis

import "sort"

// rankAverage assigns 1-based ranks, giving tied values the mean of the ranks
// they span. It also returns the size of every tie block with more than one
// member, which the tie corrections need.
func rankAverage(values []float64) ([]float64, []int) {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	ranks := make([]float64, n)
	var ties []int
	for i := 0; i < n; {
		j := i + 1
		for j < n && values[order[j]] == values[order[i]] {
			j++
		}
		// positions i..j-1 hold ranks i+1..j
		avg := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		if j-i > 1 {
			ties = append(ties, j-i)
		}
		i = j
	}
	return ranks, ties
}

// tieSum returns Σ(t³ - t) over tie blocks
func tieSum(ties []int) float64 {
	sum := 0.0
	for _, t := range ties {
		ft := float64(t)
		sum += ft*ft*ft - ft
	}
	return sum
}
