package stats

import (
	"math"

	"tumorexpr/domain/dataset"
)

// Stratum is the median-split expression label
type Stratum string

const (
	StratumHigh Stratum = "High"
	StratumLow  Stratum = "Low"
)

// Code returns the binary encoding used as the Cox covariate
func (s Stratum) Code() float64 {
	if s == StratumHigh {
		return 1
	}
	return 0
}

// HazardPoint is one step of the Breslow cumulative baseline hazard
type HazardPoint struct {
	Time             float64 `json:"time"`
	CumulativeHazard float64 `json:"cumulative_hazard"`
}

// SurvivalPoint is one step of a survival curve
type SurvivalPoint struct {
	Time     float64 `json:"time"`
	Survival float64 `json:"survival"`
}

// SurvivalCurve is S(t) for a fixed covariate value
type SurvivalCurve struct {
	Label     string          `json:"label"`
	Covariate float64         `json:"covariate"`
	Points    []SurvivalPoint `json:"points"`
}

// CoxModelSummary describes a single-covariate proportional-hazards fit.
// Baseline is the cumulative hazard at covariate value 0.
type CoxModelSummary struct {
	Method            Method        `json:"method"`
	Covariate         string        `json:"covariate"`
	Coefficient       Float         `json:"coef"`
	HazardRatio       Float         `json:"exp_coef"`
	StandardError     Float         `json:"se_coef"`
	Z                 Float         `json:"z"`
	PValue            Float         `json:"p"`
	HRLower95         Float         `json:"exp_coef_lower_95"`
	HRUpper95         Float         `json:"exp_coef_upper_95"`
	LogLikelihood     Float         `json:"log_likelihood"`
	NullLogLikelihood Float         `json:"null_log_likelihood"`
	LikelihoodRatio   Float         `json:"log_likelihood_ratio_test"`
	LRPValue          Float         `json:"log_likelihood_ratio_p"`
	Concordance       Float         `json:"concordance"`
	N                 int           `json:"n"`
	Events            int           `json:"events"`
	Iterations        int           `json:"iterations"`
	Converged         bool          `json:"converged"`
	Baseline          []HazardPoint `json:"baseline"`
}

// CurveAt evaluates S(t | x) = exp(-H0(t)·exp(β·x)) on the baseline grid
func (m *CoxModelSummary) CurveAt(label string, x float64) SurvivalCurve {
	risk := math.Exp(float64(m.Coefficient) * x)
	points := make([]SurvivalPoint, 0, len(m.Baseline)+1)
	points = append(points, SurvivalPoint{Time: 0, Survival: 1})
	for _, h := range m.Baseline {
		points = append(points, SurvivalPoint{Time: h.Time, Survival: math.Exp(-h.CumulativeHazard * risk)})
	}
	return SurvivalCurve{Label: label, Covariate: x, Points: points}
}

// StratificationResult is the output of the median split and Cox fit
type StratificationResult struct {
	TimeColumn      string            `json:"time_column"`
	CovariateColumn string            `json:"covariate_column"`
	Median          float64           `json:"median"`
	Strata          map[int]Stratum   `json:"strata"`
	HighCount       int               `json:"high_count"`
	LowCount        int               `json:"low_count"`
	Model           CoxModelSummary   `json:"model"`
	Curves          []SurvivalCurve   `json:"curves"`
	Warnings        []dataset.Warning `json:"warnings,omitempty"`
}

// ContinuousFit is the Cox model on the raw covariate, with partial-effect
// curves across the observed covariate range
type ContinuousFit struct {
	TimeColumn      string            `json:"time_column"`
	CovariateColumn string            `json:"covariate_column"`
	Model           CoxModelSummary   `json:"model"`
	Curves          []SurvivalCurve   `json:"curves"`
	Warnings        []dataset.Warning `json:"warnings,omitempty"`
}
