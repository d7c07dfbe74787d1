package survival

import (
	"fmt"
	"math"
	"sort"

	"tumorexpr/domain/core"
	"tumorexpr/domain/stats"

	"gonum.org/v1/gonum/stat/distuv"
)

// CoxFitter fits a single-covariate proportional-hazards model by
// Newton-Raphson on the Efron partial likelihood
type CoxFitter struct {
	MaxIterations int
	Tolerance     float64
}

// NewCoxFitter returns a fitter with the default iteration limits
func NewCoxFitter() *CoxFitter {
	return &CoxFitter{MaxIterations: 50, Tolerance: 1e-9}
}

// subject is one observation, with the covariate centred for stability
type subject struct {
	time  float64
	x     float64
	event bool
}

// tieBlock groups subjects sharing an observed time, sorted ascending
type tieBlock struct {
	time   float64
	start  int // first index into the sorted subjects
	end    int // one past the last index
	events int
}

type coxData struct {
	subjects []subject
	blocks   []tieBlock
	center   float64
	events   int
}

func prepare(times, covariate []float64, events []bool) (*coxData, error) {
	n := len(times)
	if len(covariate) != n || len(events) != n {
		return nil, fmt.Errorf("cox fit: %d times, %d covariate values and %d events", n, len(covariate), len(events))
	}

	d := &coxData{subjects: make([]subject, n)}
	for i := range times {
		d.center += covariate[i]
	}
	if n > 0 {
		d.center /= float64(n)
	}
	for i := range times {
		d.subjects[i] = subject{time: times[i], x: covariate[i] - d.center, event: events[i]}
		if events[i] {
			d.events++
		}
	}
	if n < 2 || d.events == 0 {
		return nil, fmt.Errorf("%w: cox fit needs at least 2 subjects and 1 event (n=%d, events=%d)",
			core.ErrInsufficientData, n, d.events)
	}

	sort.SliceStable(d.subjects, func(a, b int) bool {
		return d.subjects[a].time < d.subjects[b].time
	})
	for i := 0; i < n; {
		j := i
		block := tieBlock{time: d.subjects[i].time, start: i}
		for j < n && d.subjects[j].time == block.time {
			if d.subjects[j].event {
				block.events++
			}
			j++
		}
		block.end = j
		d.blocks = append(d.blocks, block)
		i = j
	}
	return d, nil
}

// efron evaluates log-likelihood, score and information at beta
func (d *coxData) efron(beta float64) (loglik, score, info float64) {
	// risk set sums over subjects with time >= current block, built from the back
	var s0, s1, s2 float64
	for b := len(d.blocks) - 1; b >= 0; b-- {
		block := d.blocks[b]
		var t0, t1, t2, sumX float64
		for _, s := range d.subjects[block.start:block.end] {
			r := math.Exp(beta * s.x)
			s0 += r
			s1 += r * s.x
			s2 += r * s.x * s.x
			if s.event {
				t0 += r
				t1 += r * s.x
				t2 += r * s.x * s.x
				sumX += s.x
			}
		}
		if block.events == 0 {
			continue
		}

		loglik += beta * sumX
		score += sumX
		dn := float64(block.events)
		for l := 0; l < block.events; l++ {
			f := float64(l) / dn
			a0 := s0 - f*t0
			a1 := s1 - f*t1
			a2 := s2 - f*t2
			mean := a1 / a0
			loglik -= math.Log(a0)
			score -= mean
			info += a2/a0 - mean*mean
		}
	}
	return loglik, score, info
}

// Fit estimates the coefficient for covariate. events marks observed deaths;
// censored subjects stay in risk sets until their time.
func (f *CoxFitter) Fit(name string, times, covariate []float64, events []bool) (*stats.CoxModelSummary, error) {
	d, err := prepare(times, covariate, events)
	if err != nil {
		return nil, err
	}

	beta := 0.0
	ll, score, info := d.efron(beta)
	nullLL := ll
	if info <= 0 {
		return nil, fmt.Errorf("%w: covariate %s has no variance within risk sets", core.ErrInsufficientData, name)
	}

	converged := false
	iterations := 0

	for iterations < f.MaxIterations {
		iterations++
		if info <= 0 {
			break
		}
		step := score / info
		next := beta + step
		nextLL, nextScore, nextInfo := d.efron(next)

		// step halving keeps the likelihood from decreasing
		for halvings := 0; (nextLL < ll || math.IsNaN(nextLL)) && halvings < 30; halvings++ {
			step /= 2
			next = beta + step
			nextLL, nextScore, nextInfo = d.efron(next)
		}

		delta := math.Abs(next - beta)
		beta, ll, score, info = next, nextLL, nextScore, nextInfo
		if delta < f.Tolerance || math.Abs(score) < f.Tolerance {
			converged = true
			break
		}
	}

	se := math.NaN()
	if info > 0 {
		se = 1 / math.Sqrt(info)
	}
	z := beta / se
	lr := 2 * (ll - nullLL)
	if lr < 0 {
		lr = 0
	}

	summary := &stats.CoxModelSummary{
		Method:            stats.MethodCoxPH,
		Covariate:         name,
		Coefficient:       stats.Float(beta),
		HazardRatio:       stats.Float(math.Exp(beta)),
		StandardError:     stats.Float(se),
		Z:                 stats.Float(z),
		PValue:            stats.Float(2 * distuv.UnitNormal.Survival(math.Abs(z))),
		HRLower95:         stats.Float(math.Exp(beta - 1.959963984540054*se)),
		HRUpper95:         stats.Float(math.Exp(beta + 1.959963984540054*se)),
		LogLikelihood:     stats.Float(ll),
		NullLogLikelihood: stats.Float(nullLL),
		LikelihoodRatio:   stats.Float(lr),
		LRPValue:          stats.Float(distuv.ChiSquared{K: 1}.Survival(lr)),
		Concordance:       stats.Float(concordance(times, covariate, events, beta)),
		N:                 len(d.subjects),
		Events:            d.events,
		Iterations:        iterations,
		Converged:         converged,
		Baseline:          d.breslow(beta),
	}
	return summary, nil
}

// breslow returns the cumulative baseline hazard at covariate value 0 at each
// distinct event time
func (d *coxData) breslow(beta float64) []stats.HazardPoint {
	// exp(beta*x) = exp(beta*xc) * exp(beta*center)
	shift := math.Exp(beta * d.center)
	var points []stats.HazardPoint
	cumulative := 0.0
	riskSum := 0.0
	hazards := make([]float64, len(d.blocks))
	for b := len(d.blocks) - 1; b >= 0; b-- {
		block := d.blocks[b]
		for _, s := range d.subjects[block.start:block.end] {
			riskSum += math.Exp(beta * s.x)
		}
		if block.events > 0 {
			hazards[b] = float64(block.events) / (riskSum * shift)
		}
	}
	for b, block := range d.blocks {
		if block.events == 0 {
			continue
		}
		cumulative += hazards[b]
		points = append(points, stats.HazardPoint{Time: block.time, CumulativeHazard: cumulative})
	}
	return points
}

// concordance is Harrell's C: among comparable pairs (the shorter time is an
// observed event), the share where the shorter-lived subject has the higher
// predicted risk. Risk ties count one half.
func concordance(times, covariate []float64, events []bool, beta float64) float64 {
	var concordant, comparable float64
	for i := range times {
		if !events[i] {
			continue
		}
		ri := beta * covariate[i]
		for j := range times {
			if times[i] >= times[j] {
				continue
			}
			rj := beta * covariate[j]
			comparable++
			switch {
			case ri > rj:
				concordant++
			case ri == rj:
				concordant += 0.5
			}
		}
	}
	if comparable == 0 {
		return math.NaN()
	}
	return concordant / comparable
}
