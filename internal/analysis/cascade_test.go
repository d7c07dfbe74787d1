package analysis

import (
	"math"
	"testing"

	"tumorexpr/domain/core"
	"tumorexpr/domain/dataset"
	"tumorexpr/domain/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTable(t *testing.T, groups []string, values []float64) *dataset.Table {
	t.Helper()
	table, err := dataset.NewTable(
		dataset.NewCategoricalColumn("structure_color", groups),
		dataset.NewNumericColumn("Gene", values),
	)
	require.NoError(t, err)
	return table
}

func TestAnalyzeTwoRegionScenario(t *testing.T) {
	table := buildTable(t,
		[]string{"218FA5", "218FA5", "218FA5", "D104D0", "D104D0", "D104D0"},
		[]float64{1, 2, 3, 10, 11, 12})

	result, err := NewCascade(Options{}, nil).Analyze(table, "Gene", "structure_color")
	require.NoError(t, err)

	assert.Equal(t, stats.MethodKruskalWallis, result.Omnibus.Method)
	assert.InDelta(t, 3.857142857, float64(result.Omnibus.Statistic), 1e-6)
	assert.InDelta(t, 0.0495346134, float64(result.Omnibus.PValue), 1e-6)
	assert.Equal(t, 1.0, result.Omnibus.DF)
	assert.True(t, result.Significant())

	require.NotNil(t, result.Posthoc)
	assert.Equal(t, []string{"218FA5", "D104D0"}, result.Posthoc.Groups)
	assert.Equal(t, 1, result.Posthoc.Comparisons)
	assert.InDelta(t, 1.963961012, result.Posthoc.Z[0][1], 1e-6)
	assert.InDelta(t, 0.0495346134, result.Posthoc.Adjusted[0][1], 1e-6)
	assert.Equal(t, 1.0, result.Posthoc.Adjusted[0][0])

	assert.InDelta(t, 0.8317473536, float64(result.Normality.Statistic), 1e-6)
	assert.InDelta(t, 0.1112101285, float64(result.Normality.PValue), 1e-6)

	require.Len(t, result.Groups, 2)
	assert.Equal(t, "Leading Edge", result.Groups[0].Label)
	assert.Equal(t, 2.0, result.Groups[0].Median)
	assert.Equal(t, 1.0, result.ValueMin)
	assert.Equal(t, 12.0, result.ValueMax)
}

func TestAnalyzeSkipsPosthocWhenNotSignificant(t *testing.T) {
	table := buildTable(t,
		[]string{"A", "B", "A", "B", "A", "B"},
		[]float64{1, 2, 3, 4, 5, 6})

	result, err := NewCascade(Options{}, nil).Analyze(table, "Gene", "structure_color")
	require.NoError(t, err)

	assert.False(t, result.Significant())
	assert.Nil(t, result.Posthoc)
}

func TestAnalyzeThreeGroupsWithTies(t *testing.T) {
	groups := []string{"A", "A", "A", "A", "B", "B", "B", "B", "C", "C", "C", "C", "C"}
	values := []float64{1.2, 2.3, 2.3, 3.1, 4.5, 5.0, 2.3, 6.1, 7.7, 8.1, 9.0, 6.1, 8.8}

	result, err := NewCascade(Options{}, nil).Analyze(buildTable(t, groups, values), "Gene", "structure_color")
	require.NoError(t, err)

	assert.InDelta(t, 9.567409471, float64(result.Omnibus.Statistic), 1e-6)
	assert.InDelta(t, 0.008364951560, float64(result.Omnibus.PValue), 1e-8)

	require.NotNil(t, result.Posthoc)
	assert.Equal(t, 3, result.Posthoc.Comparisons)
	assert.InDelta(t, 0.7595183968, result.Posthoc.Adjusted[0][1], 1e-6)
	assert.InDelta(t, 0.006981721985, result.Posthoc.Adjusted[0][2], 1e-8)
	assert.InDelta(t, 0.1971038126, result.Posthoc.Adjusted[2][1], 1e-6)

	for _, pair := range result.Posthoc.Pairs() {
		assert.GreaterOrEqual(t, pair.Adjusted, pair.Raw)
		assert.LessOrEqual(t, pair.Adjusted, 1.0)
	}
}

func TestAnalyzeExcludesSingletonGroups(t *testing.T) {
	table := buildTable(t,
		[]string{"A", "A", "A", "B", "B", "B", "C"},
		[]float64{1, 2, 3, 10, 11, 12, 50})

	result, err := NewCascade(Options{}, nil).Analyze(table, "Gene", "structure_color")
	require.NoError(t, err)

	assert.Equal(t, []string{"C"}, result.Excluded)
	assert.Equal(t, []string{"A", "B"}, result.GroupOrder)
	assert.Equal(t, 1, dataset.CountWarnings(result.Warnings, dataset.WarnExcludedGroup))
	assert.Equal(t, 6, result.Omnibus.N)
	assert.Equal(t, 1.0, result.ValueMin)
	assert.Equal(t, 50.0, result.ValueMax)
}

func TestAnalyzeInsufficientGroups(t *testing.T) {
	cascade := NewCascade(Options{}, nil)

	single := buildTable(t, []string{"A", "A", "A"}, []float64{1, 2, 3})
	_, err := cascade.Analyze(single, "Gene", "structure_color")
	assert.ErrorIs(t, err, core.ErrInsufficientGroups)

	afterExclusion := buildTable(t, []string{"A", "A", "B"}, []float64{1, 2, 3})
	_, err = cascade.Analyze(afterExclusion, "Gene", "structure_color")
	assert.ErrorIs(t, err, core.ErrInsufficientGroups)
}

func TestAnalyzeMissingColumn(t *testing.T) {
	table := buildTable(t, []string{"A", "B"}, []float64{1, 2})

	_, err := NewCascade(Options{}, nil).Analyze(table, "Gene", "tumor_region")
	assert.ErrorIs(t, err, core.ErrMissingColumn)
}

func TestAnalyzeIdenticalValues(t *testing.T) {
	table := buildTable(t, []string{"A", "A", "B", "B"}, []float64{5, 5, 5, 5})

	result, err := NewCascade(Options{}, nil).Analyze(table, "Gene", "structure_color")
	require.NoError(t, err)

	assert.Equal(t, 1.0, float64(result.Omnibus.PValue))
	assert.Nil(t, result.Posthoc)
	assert.Equal(t, 1, dataset.CountWarnings(result.Warnings, dataset.WarnTies))
}

func TestAnalyzeDropsMissingValues(t *testing.T) {
	table := buildTable(t,
		[]string{"A", "A", "A", "", "B", "B", "B"},
		[]float64{1, 2, math.NaN(), 4, 10, 11, 12})

	result, err := NewCascade(Options{}, nil).Analyze(table, "Gene", "structure_color")
	require.NoError(t, err)

	assert.Equal(t, 5, result.Omnibus.N)
	assert.Equal(t, 2, dataset.CountWarnings(result.Warnings, dataset.WarnDroppedRow))
}

func TestNormalitySkippedBelowThreeValues(t *testing.T) {
	table := buildTable(t, []string{"A", "B"}, []float64{1, 2})

	result, err := NewCascade(Options{MinGroupSize: 1}, nil).Analyze(table, "Gene", "structure_color")
	require.NoError(t, err)

	assert.True(t, result.Normality.Skipped)
	assert.True(t, result.Normality.Statistic.IsMissing())
	assert.Equal(t, 1, dataset.CountWarnings(result.Warnings, dataset.WarnNormality))
}

func TestAnova(t *testing.T) {
	cascade := NewCascade(Options{}, nil)

	table := buildTable(t,
		[]string{"A", "A", "A", "B", "B", "B"},
		[]float64{1, 2, 3, 10, 11, 12})
	anova, err := cascade.Anova(table, "Gene", "structure_color")
	require.NoError(t, err)

	require.Len(t, anova.Rows, 2)
	factor := anova.Factor()
	assert.Equal(t, "C(structure_color)", factor.Source)
	assert.InDelta(t, 121.5, float64(factor.SumSq), 1e-9)
	assert.InDelta(t, 121.5, float64(factor.F), 1e-9)
	assert.InDelta(t, 0.000385067711, float64(factor.PValue), 1e-9)

	residual := anova.Rows[1]
	assert.Equal(t, "Residual", residual.Source)
	assert.InDelta(t, 4.0, float64(residual.SumSq), 1e-9)
	assert.Equal(t, stats.Float(4), residual.DF)
	assert.True(t, residual.F.IsMissing())
	assert.True(t, residual.PValue.IsMissing())
}

func TestAnovaThreeGroups(t *testing.T) {
	groups := []string{"A", "A", "A", "A", "B", "B", "B", "B", "C", "C", "C", "C", "C"}
	values := []float64{1.2, 2.3, 2.3, 3.1, 4.5, 5.0, 2.3, 6.1, 7.7, 8.1, 9.0, 6.1, 8.8}

	anova, err := NewCascade(Options{}, nil).Anova(buildTable(t, groups, values), "Gene", "structure_color")
	require.NoError(t, err)

	factor := anova.Factor()
	assert.InDelta(t, 74.94992308, float64(factor.SumSq), 1e-6)
	assert.InDelta(t, 14.807, float64(anova.Rows[1].SumSq), 1e-6)
	assert.InDelta(t, 25.30894951, float64(factor.F), 1e-6)
	assert.InDelta(t, 0.0001221787283, float64(factor.PValue), 1e-9)
	assert.Equal(t, 13, anova.N)
}

func TestDescribe(t *testing.T) {
	table, err := dataset.NewTable(
		dataset.NewCategoricalColumn("structure_color", []string{"A", "A", "A", "B", "B", "B"}),
		dataset.NewCategoricalColumn("survival_days", []string{"10", "20", "", "40", "50", "60"}),
		dataset.NewNumericColumn("Gene", []float64{1, 2, 3, 10, 11, 12}),
	)
	require.NoError(t, err)

	summary := NewCascade(Options{}, nil).Describe(table)
	require.Len(t, summary.Columns, 2)
	assert.Equal(t, "survival_days", summary.Columns[0].Column)
	assert.Equal(t, 5, summary.Columns[0].Count)

	gene := summary.Columns[1]
	assert.Equal(t, 6, gene.Count)
	assert.InDelta(t, 6.5, float64(gene.Mean), 1e-12)
	assert.InDelta(t, math.Sqrt(25.1), float64(gene.Std), 1e-12)
	assert.InDelta(t, 2.25, float64(gene.Q25), 1e-12)
	assert.InDelta(t, 6.5, float64(gene.Median), 1e-12)
	assert.InDelta(t, 10.75, float64(gene.Q75), 1e-12)
	assert.Equal(t, stats.Float(12), gene.Max)
}
