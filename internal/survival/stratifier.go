// Package survival splits samples into High and Low expression strata at the
// median and fits a proportional-hazards model on the stratum indicator.
//
// Every sample is treated as an observed death: the inputs carry no censoring
// column, so the event indicator is fixed at 1.
package survival

import (
	"fmt"
	"log"
	"math"

	"tumorexpr/adapters/datareadiness/coercer"
	"tumorexpr/domain/core"
	"tumorexpr/domain/dataset"
	"tumorexpr/domain/stats"

	mstats "github.com/montanaflynn/stats"
)

// EventColumn is the name of the derived event indicator column
const EventColumn = "event"

// Stratifier performs the median split and Cox fit. It holds no mutable state.
type Stratifier struct {
	fitter  *CoxFitter
	coercer *coercer.TypeCoercer
}

// NewStratifier creates a stratifier. Nil arguments take defaults.
func NewStratifier(fitter *CoxFitter, c *coercer.TypeCoercer) *Stratifier {
	if fitter == nil {
		fitter = NewCoxFitter()
	}
	if c == nil {
		c = coercer.Default()
	}
	return &Stratifier{fitter: fitter, coercer: c}
}

// observations are the rows retained for survival analysis
type observations struct {
	rows      []int
	times     []float64
	covariate []float64
	warnings  []dataset.Warning
}

func (o *observations) events() []bool {
	events := make([]bool, len(o.rows))
	for i := range events {
		events[i] = true
	}
	return events
}

// collect drops rows whose time is not a non-negative number or whose
// covariate is missing
func (s *Stratifier) collect(table *dataset.Table, timeColumn, covariateColumn string) (*observations, error) {
	if err := table.RequireColumns(timeColumn, covariateColumn); err != nil {
		return nil, err
	}
	timeCol, _ := table.Column(timeColumn)
	covCol, _ := table.Column(covariateColumn)

	times, _ := s.coercer.Numeric(timeCol)
	covariate, _ := s.coercer.Numeric(covCol)

	obs := &observations{}
	for i := range times {
		t, x := times[i], covariate[i]
		switch {
		case math.IsNaN(t):
			obs.warnings = append(obs.warnings, dataset.DroppedRowWarning(i, timeColumn,
				fmt.Sprintf("%s %q is not a number", timeColumn, timeCol.Text[i])))
		case t < 0:
			obs.warnings = append(obs.warnings, dataset.DroppedRowWarning(i, timeColumn,
				fmt.Sprintf("%s %g is negative", timeColumn, t)))
		case math.IsNaN(x):
			obs.warnings = append(obs.warnings, dataset.DroppedRowWarning(i, covariateColumn,
				fmt.Sprintf("%s is missing", covariateColumn)))
		default:
			obs.rows = append(obs.rows, i)
			obs.times = append(obs.times, t)
			obs.covariate = append(obs.covariate, x)
		}
	}

	if len(obs.rows) == 0 {
		return nil, fmt.Errorf("%w: no rows with a valid %s and %s", core.ErrInsufficientData, timeColumn, covariateColumn)
	}
	if len(obs.warnings) > 0 {
		log.Printf("[Stratifier] Dropped %d of %d rows before survival fit", len(obs.warnings), table.RowCount())
	}
	return obs, nil
}

// StratifyAndFit labels each retained row High (covariate >= median) or Low,
// then fits the Cox model on the 1/0 stratum code.
func (s *Stratifier) StratifyAndFit(table *dataset.Table, timeColumn, covariateColumn string) (*stats.StratificationResult, error) {
	obs, err := s.collect(table, timeColumn, covariateColumn)
	if err != nil {
		return nil, err
	}

	median, err := mstats.Median(obs.covariate)
	if err != nil {
		return nil, fmt.Errorf("%w: median of %s: %v", core.ErrInsufficientData, covariateColumn, err)
	}

	result := &stats.StratificationResult{
		TimeColumn:      timeColumn,
		CovariateColumn: covariateColumn,
		Median:          median,
		Strata:          make(map[int]stats.Stratum, len(obs.rows)),
		Warnings:        obs.warnings,
	}

	codes := make([]float64, len(obs.rows))
	for i, row := range obs.rows {
		stratum := stats.StratumLow
		if obs.covariate[i] >= median {
			stratum = stats.StratumHigh
			result.HighCount++
		} else {
			result.LowCount++
		}
		result.Strata[row] = stratum
		codes[i] = stratum.Code()
	}
	if result.HighCount == 0 || result.LowCount == 0 {
		return nil, core.NewDegenerateStratificationError(covariateColumn, median)
	}

	model, err := s.fitter.Fit(covariateColumn+"_Group", obs.times, codes, obs.events())
	if err != nil {
		return nil, err
	}
	result.Model = *model
	if !model.Converged {
		result.Warnings = append(result.Warnings, dataset.NewWarning(dataset.WarnConvergence,
			"cox model on %s stratum did not converge after %d iterations", covariateColumn, model.Iterations))
	}
	result.Curves = []stats.SurvivalCurve{
		model.CurveAt(string(stats.StratumLow), stats.StratumLow.Code()),
		model.CurveAt(string(stats.StratumHigh), stats.StratumHigh.Code()),
	}

	log.Printf("[Stratifier] %s split at median %.4f: %d High, %d Low, HR=%.4f p=%.4g",
		covariateColumn, median, result.HighCount, result.LowCount, float64(model.HazardRatio), float64(model.PValue))
	return result, nil
}

// FitContinuous fits the Cox model on the raw covariate and evaluates
// survival curves at its quartiles
func (s *Stratifier) FitContinuous(table *dataset.Table, timeColumn, covariateColumn string) (*stats.ContinuousFit, error) {
	obs, err := s.collect(table, timeColumn, covariateColumn)
	if err != nil {
		return nil, err
	}

	model, err := s.fitter.Fit(covariateColumn, obs.times, obs.covariate, obs.events())
	if err != nil {
		return nil, err
	}

	fit := &stats.ContinuousFit{
		TimeColumn:      timeColumn,
		CovariateColumn: covariateColumn,
		Model:           *model,
		Warnings:        obs.warnings,
	}
	if !model.Converged {
		fit.Warnings = append(fit.Warnings, dataset.NewWarning(dataset.WarnConvergence,
			"cox model on %s did not converge after %d iterations", covariateColumn, model.Iterations))
	}

	at := []float64{
		stats.Quantile(obs.covariate, 0.25),
		stats.Quantile(obs.covariate, 0.5),
		stats.Quantile(obs.covariate, 0.75),
	}
	fit.Curves = CurvesAt(model, covariateColumn, at)
	return fit, nil
}

// CurvesAt evaluates partial-effect survival curves for each covariate value
func CurvesAt(model *stats.CoxModelSummary, covariateColumn string, values []float64) []stats.SurvivalCurve {
	curves := make([]stats.SurvivalCurve, 0, len(values))
	for _, v := range values {
		curves = append(curves, model.CurveAt(fmt.Sprintf("%s=%s", covariateColumn, dataset.FormatFloat(v)), v))
	}
	return curves
}

// WithStratumColumns returns a copy of table with the derived
// "<covariate>_Group" label and the event indicator. Dropped rows get empty
// cells.
func WithStratumColumns(table *dataset.Table, result *stats.StratificationResult) (*dataset.Table, error) {
	n := table.RowCount()
	labels := make([]string, n)
	events := make([]float64, n)
	for i := 0; i < n; i++ {
		stratum, ok := result.Strata[i]
		if !ok {
			events[i] = math.NaN()
			continue
		}
		labels[i] = string(stratum)
		events[i] = 1
	}

	out, err := table.WithColumn(dataset.NewCategoricalColumn(result.CovariateColumn+"_Group", labels))
	if err != nil {
		return nil, err
	}
	return out.WithColumn(dataset.NewNumericColumn(EventColumn, events))
}
