package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// StatisticalDistributions provides unified access to the reference
// distributions behind every p-value in the cascade
type StatisticalDistributions struct{}

// NewDistributions creates a new distributions utility
func NewDistributions() *StatisticalDistributions {
	return &StatisticalDistributions{}
}

// FTestPValue computes the upper-tail p-value of an F statistic (ANOVA)
func (sd *StatisticalDistributions) FTestPValue(fStatistic float64, df1, df2 int) float64 {
	if df1 <= 0 || df2 <= 0 || math.IsNaN(fStatistic) {
		return math.NaN()
	}
	if math.IsInf(fStatistic, 1) {
		return 0
	}

	fDist := distuv.F{D1: float64(df1), D2: float64(df2)}
	return fDist.Survival(fStatistic)
}

// ChiSquarePValue computes the upper-tail p-value of a chi-square statistic
func (sd *StatisticalDistributions) ChiSquarePValue(chiSquare float64, degreesOfFreedom int) float64 {
	if degreesOfFreedom <= 0 {
		return 1.0
	}
	if chiSquare <= 0 {
		return 1.0
	}

	chiDist := distuv.ChiSquared{K: float64(degreesOfFreedom)}
	return chiDist.Survival(chiSquare)
}

// NormalCDF computes cumulative distribution function for standard normal
func (sd *StatisticalDistributions) NormalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// NormalQuantile computes quantile function for standard normal (inverse CDF)
func (sd *StatisticalDistributions) NormalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// NormalUpperTail returns P(X > x) for X ~ N(mu, sigma)
func (sd *StatisticalDistributions) NormalUpperTail(x, mu, sigma float64) float64 {
	return distuv.Normal{Mu: mu, Sigma: sigma}.Survival(x)
}

// TwoSidedNormalPValue returns 2·P(Z > |z|)
func (sd *StatisticalDistributions) TwoSidedNormalPValue(z float64) float64 {
	if math.IsNaN(z) {
		return math.NaN()
	}
	return 2 * distuv.UnitNormal.Survival(math.Abs(z))
}
