package survival

import (
	"testing"

	"tumorexpr/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allEvents(n int) []bool {
	events := make([]bool, n)
	for i := range events {
		events[i] = true
	}
	return events
}

func TestCoxFitBinaryCovariate(t *testing.T) {
	times := []float64{5, 8, 12, 15, 20, 22, 30, 35}
	x := []float64{1, 1, 1, 0, 1, 0, 0, 0}

	model, err := NewCoxFitter().Fit("Gene_Group", times, x, allEvents(len(times)))
	require.NoError(t, err)

	assert.True(t, model.Converged)
	assert.InDelta(t, 2.155858951, float64(model.Coefficient), 1e-6)
	assert.InDelta(t, 8.635304293, float64(model.HazardRatio), 1e-5)
	assert.InDelta(t, 1.140141227, float64(model.StandardError), 1e-6)
	assert.InDelta(t, 0.05864168724, float64(model.PValue), 1e-6)
	assert.InDelta(t, -8.265973143, float64(model.LogLikelihood), 1e-6)
	assert.InDelta(t, -10.60460290, float64(model.NullLogLikelihood), 1e-6)
	assert.InDelta(t, 4.677259520, float64(model.LikelihoodRatio), 1e-5)
	assert.InDelta(t, 0.03056447053, float64(model.LRPValue), 1e-6)
	assert.InDelta(t, 0.75, float64(model.Concordance), 1e-12)
	assert.Equal(t, 8, model.Events)

	require.Len(t, model.Baseline, 8)
	assert.Equal(t, 5.0, model.Baseline[0].Time)
	assert.InDelta(t, 0.02594624854, model.Baseline[0].CumulativeHazard, 1e-6)
	assert.InDelta(t, 0.1063976814, model.Baseline[2].CumulativeHazard, 1e-6)
	assert.Less(t, float64(model.HRLower95), float64(model.HazardRatio))
	assert.Greater(t, float64(model.HRUpper95), float64(model.HazardRatio))
}

func TestCoxFitEfronTies(t *testing.T) {
	times := []float64{5, 5, 8, 12, 12, 12, 20, 22, 30, 30}
	x := []float64{1, 0, 1, 1, 0, 1, 0, 0, 1, 0}

	model, err := NewCoxFitter().Fit("Gene_Group", times, x, allEvents(len(times)))
	require.NoError(t, err)

	assert.InDelta(t, 0.3192002689, float64(model.Coefficient), 1e-6)
	assert.InDelta(t, 0.6433533681, float64(model.StandardError), 1e-6)
	assert.InDelta(t, -14.98174051, float64(model.LogLikelihood), 1e-6)
	assert.InDelta(t, 0.5875, float64(model.Concordance), 1e-12)
	require.Len(t, model.Baseline, 6)
	assert.InDelta(t, 0.1683482643, model.Baseline[0].CumulativeHazard, 1e-6)
}

func TestCoxFitContinuousCovariate(t *testing.T) {
	times := []float64{6, 7, 10, 15, 19, 25}
	x := []float64{3.5, 2.9, 3.1, 1.2, 2.0, 0.7}

	model, err := NewCoxFitter().Fit("Gene", times, x, allEvents(len(times)))
	require.NoError(t, err)

	assert.InDelta(t, 1.858771107, float64(model.Coefficient), 1e-6)
	assert.InDelta(t, 1.079425173, float64(model.StandardError), 1e-6)
	assert.InDelta(t, 0.8666666667, float64(model.Concordance), 1e-9)
	assert.InDelta(t, 0.0007933815526, model.Baseline[0].CumulativeHazard, 1e-8)
}

func TestCoxFitRejectsDegenerateInput(t *testing.T) {
	fitter := NewCoxFitter()

	_, err := fitter.Fit("Gene", []float64{1}, []float64{1}, []bool{true})
	assert.ErrorIs(t, err, core.ErrInsufficientData)

	_, err = fitter.Fit("Gene", []float64{1, 2, 3}, []float64{4, 4, 4}, allEvents(3))
	assert.ErrorIs(t, err, core.ErrInsufficientData)

	_, err = fitter.Fit("Gene", []float64{1, 2}, []float64{0, 1}, []bool{false, false})
	assert.ErrorIs(t, err, core.ErrInsufficientData)

	_, err = fitter.Fit("Gene", []float64{1, 2}, []float64{0}, allEvents(2))
	assert.Error(t, err)
}

func TestCoxFitCensoring(t *testing.T) {
	times := []float64{5, 8, 12, 15, 20, 22, 30, 35}
	x := []float64{1, 1, 1, 0, 1, 0, 0, 0}
	events := []bool{true, false, true, true, true, false, true, false}

	model, err := NewCoxFitter().Fit("Gene_Group", times, x, events)
	require.NoError(t, err)

	assert.Equal(t, 5, model.Events)
	assert.Len(t, model.Baseline, 5)
	assert.Greater(t, float64(model.Coefficient), 0.0)
}
