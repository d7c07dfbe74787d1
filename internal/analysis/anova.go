package analysis

import (
	"fmt"

	"tumorexpr/domain/core"
	"tumorexpr/domain/stats"

	"gonum.org/v1/gonum/mat"
)

// OneWayAnova fits value ~ C(group) by ordinary least squares with treatment
// coding (first group as reference) and reports the type-II table. With a
// single factor the type-II sum of squares for the factor equals the drop in
// residual sum of squares against the intercept-only model.
func OneWayAnova(valueColumn, groupColumn string, groups [][]float64) (*stats.AnovaTable, error) {
	k := len(groups)
	if k < 2 {
		return nil, core.NewInsufficientGroupsError(groupColumn, k)
	}

	n := 0
	for _, g := range groups {
		n += len(g)
	}
	dfResid := n - k
	if dfResid <= 0 {
		return nil, fmt.Errorf("%w: anova on %s needs more observations than groups (n=%d, k=%d)",
			core.ErrInsufficientData, groupColumn, n, k)
	}

	x := mat.NewDense(n, k, nil)
	y := mat.NewVecDense(n, nil)
	row := 0
	for gi, g := range groups {
		for _, v := range g {
			x.Set(row, 0, 1)
			if gi > 0 {
				x.Set(row, gi, 1)
			}
			y.SetVec(row, v)
			row++
		}
	}

	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		return nil, fmt.Errorf("anova least squares on %s: %w", groupColumn, err)
	}

	var fitted, resid mat.VecDense
	fitted.MulVec(x, &beta)
	resid.SubVec(y, &fitted)
	rss := mat.Dot(&resid, &resid)

	mean := mat.Sum(y) / float64(n)
	tss := 0.0
	for i := 0; i < n; i++ {
		d := y.AtVec(i) - mean
		tss += d * d
	}

	ssFactor := tss - rss
	if ssFactor < 0 {
		ssFactor = 0
	}
	dfFactor := k - 1

	f := (ssFactor / float64(dfFactor)) / (rss / float64(dfResid))
	p := NewDistributions().FTestPValue(f, dfFactor, dfResid)

	return &stats.AnovaTable{
		Formula: fmt.Sprintf("%s ~ C(%s)", valueColumn, groupColumn),
		N:       n,
		Rows: []stats.AnovaRow{
			{
				Source: fmt.Sprintf("C(%s)", groupColumn),
				SumSq:  stats.Float(ssFactor),
				DF:     stats.Float(dfFactor),
				F:      stats.Float(f),
				PValue: stats.Float(p),
			},
			{
				Source: "Residual",
				SumSq:  stats.Float(rss),
				DF:     stats.Float(dfResid),
				F:      stats.NaN(),
				PValue: stats.NaN(),
			},
		},
	}, nil
}
