package analysis

import (
	"fmt"
	"math"
	"sort"
)

// Shapiro-Wilk bounds for the Royston approximation
const (
	shapiroMinN = 3
	shapiroMaxN = 5000
)

// Polynomial coefficients of Royston (1995), algorithm AS R94
var (
	swC1 = []float64{0, 0.221157, -0.147981, -2.07119, 4.434685, -2.706056}
	swC2 = []float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swC3 = []float64{0.544, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
	swG  = []float64{-2.273, 0.459}
)

// ShapiroWilkResult is the W statistic and its p-value
type ShapiroWilkResult struct {
	W      float64
	PValue float64
	N      int
	Note   string // set when the result is degenerate or approximate
}

// ShapiroWilk tests the pooled sample for normality. NaN values are ignored.
// It returns an error only when fewer than three observations remain.
func ShapiroWilk(sample []float64) (ShapiroWilkResult, error) {
	x := finite(sample)
	n := len(x)
	if n < shapiroMinN {
		return ShapiroWilkResult{W: math.NaN(), PValue: math.NaN(), N: n},
			fmt.Errorf("shapiro-wilk needs at least %d observations, got %d", shapiroMinN, n)
	}
	sort.Float64s(x)

	if x[n-1]-x[0] < 1e-19 {
		return ShapiroWilkResult{W: 1, PValue: 1, N: n, Note: "input has zero range"}, nil
	}

	a := shapiroCoefficients(n)
	w := shapiroW(x, a)
	result := ShapiroWilkResult{W: w, PValue: shapiroPValue(w, n), N: n}
	if n > shapiroMaxN {
		result.Note = fmt.Sprintf("p-value may be inaccurate for n > %d", shapiroMaxN)
	}
	return result, nil
}

// shapiroCoefficients returns the upper half of the antisymmetric weights:
// a[i] pairs with the (i+1)-th largest and smallest observations.
func shapiroCoefficients(n int) []float64 {
	nn2 := n / 2
	a := make([]float64, nn2)
	if n == 3 {
		a[0] = math.Sqrt(0.5)
		return a
	}

	dist := NewDistributions()
	an25 := float64(n) + 0.25
	m := make([]float64, nn2)
	summ2 := 0.0
	for i := range m {
		// expected normal order statistics, smallest first so m[i] < 0
		m[i] = dist.NormalQuantile((float64(i+1) - 0.375) / an25)
		summ2 += m[i] * m[i]
	}
	summ2 *= 2
	ssumm2 := math.Sqrt(summ2)
	rsn := 1 / math.Sqrt(float64(n))

	a1 := poly(swC1, rsn) - m[0]/ssumm2
	first := 1
	var fac float64
	if n > 5 {
		a2 := -m[1]/ssumm2 + poly(swC2, rsn)
		fac = math.Sqrt((summ2 - 2*m[0]*m[0] - 2*m[1]*m[1]) / (1 - 2*a1*a1 - 2*a2*a2))
		a[1] = a2
		first = 2
	} else {
		fac = math.Sqrt((summ2 - 2*m[0]*m[0]) / (1 - 2*a1*a1))
	}
	a[0] = a1
	for i := first; i < nn2; i++ {
		a[i] = -m[i] / fac
	}
	return a
}

// shapiroW computes W as the squared correlation between the sorted sample
// and the full antisymmetric coefficient vector
func shapiroW(x, half []float64) float64 {
	n := len(x)
	coef := make([]float64, n)
	for i, ai := range half {
		coef[n-1-i] = ai
		coef[i] = -ai
	}

	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= float64(n)

	var sax, ssa, ssx float64
	for i, v := range x {
		d := v - mean
		sax += coef[i] * d
		ssa += coef[i] * coef[i]
		ssx += d * d
	}
	w := sax * sax / (ssa * ssx)
	if w > 1 {
		w = 1
	}
	return w
}

func shapiroPValue(w float64, n int) float64 {
	if n == 3 {
		const pi6 = 6 / math.Pi
		const stqr = math.Pi / 3
		p := pi6 * (math.Asin(math.Sqrt(w)) - stqr)
		return math.Max(0, math.Min(1, p))
	}

	w1 := 1 - w
	if w1 <= 0 {
		return 1
	}
	y := math.Log(w1)
	an := float64(n)

	var m, s float64
	if n <= 11 {
		gamma := poly(swG, an)
		if y >= gamma {
			return 1e-99
		}
		y = -math.Log(gamma - y)
		m = poly(swC3, an)
		s = math.Exp(poly(swC4, an))
	} else {
		xx := math.Log(an)
		m = poly(swC5, xx)
		s = math.Exp(poly(swC6, xx))
	}
	return NewDistributions().NormalUpperTail(y, m, s)
}

// poly evaluates c[0] + c[1]x + c[2]x² + ...
func poly(c []float64, x float64) float64 {
	result := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		result = result*x + c[i]
	}
	return result
}

// finite copies the non-NaN, non-infinite values of a slice
func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
