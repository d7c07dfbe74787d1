package report

import (
	"math"
	"testing"

	"tumorexpr/domain/dataset"
	"tumorexpr/domain/run"
	"tumorexpr/domain/stats"

	"github.com/stretchr/testify/assert"
)

func sampleReport() *run.Report {
	return &run.Report{
		Manifest: &run.Manifest{RunID: "0190b6e4-0000-7000-8000-000000000001", Metadata: "meta.csv", Expression: "expr.csv"},
		Gene:     "EGFR",
		Samples:  6,
		Summary: stats.SummaryStatistics{Columns: []stats.ColumnSummary{
			{Column: "Gene", Count: 6, Mean: 6.5, Std: 5.01, Min: 1, Q25: 2.25, Median: 6.5, Q75: 10.75, Max: 12},
		}},
		Cascade: &stats.CascadeResult{
			ValueColumn: "Gene",
			GroupColumn: "structure_color",
			Alpha:       0.05,
			Normality:   stats.GroupTestResult{Method: stats.MethodShapiroWilk, Statistic: 0.83, PValue: 0.11, N: 6},
			Omnibus:     stats.GroupTestResult{Method: stats.MethodKruskalWallis, Statistic: 3.857, PValue: 0.0495, N: 6},
			Posthoc: &stats.PosthocMatrix{
				Method:   stats.MethodDunnBonferroni,
				Groups:   []string{"218FA5", "D104D0"},
				Adjusted: [][]float64{{1, 0.0495}, {0.0495, 1}},
				Raw:      [][]float64{{1, 0.0495}, {0.0495, 1}},
				Z:        [][]float64{{0, 1.964}, {1.964, 0}},
			},
			Groups: []stats.GroupSummary{
				{Group: "218FA5", Label: "Leading Edge", N: 3, Mean: 2, Median: 2, Min: 1, Max: 3},
				{Group: "D104D0", Label: "Infiltrating Tumour", N: 3, Mean: 11, Median: 11, Min: 10, Max: 12},
			},
		},
		Anova: &stats.AnovaTable{Formula: "Gene ~ C(structure_color)", Rows: []stats.AnovaRow{
			{Source: "C(structure_color)", SumSq: 121.5, DF: 1, F: 121.5, PValue: 0.000385},
			{Source: "Residual", SumSq: 4, DF: 4, F: stats.NaN(), PValue: stats.NaN()},
		}},
		Survival: &stats.StratificationResult{
			CovariateColumn: "Gene",
			Median:          6.5,
			HighCount:       3,
			LowCount:        3,
			Model:           stats.CoxModelSummary{Covariate: "Gene_Group", Coefficient: 2.1, HazardRatio: 8.2, Converged: true, Concordance: stats.Float(math.NaN())},
		},
		Annotations: []stats.Annotation{{GroupA: "218FA5", GroupB: "D104D0", PValue: 0.0495, Marker: "*"}},
		Warnings: []dataset.Warning{
			dataset.CoercionWarning(2, "Gene", "abc"),
		},
	}
}

func TestMarkdownSections(t *testing.T) {
	md := NewRenderer().Markdown(sampleReport())

	assert.Contains(t, md, "# Expression analysis: EGFR")
	assert.Contains(t, md, "| Gene | 6 | 6.5000 |")
	assert.Contains(t, md, "| 218FA5 | Leading Edge | 3 |")
	assert.Contains(t, md, "| Leading Edge | Infiltrating Tumour | 1.9640 | 0.0495 | 0.0495 | * |")
	assert.Contains(t, md, "| Residual | 4.0000 | 4.0000 | NA | NA |")
	assert.Contains(t, md, "3 High, 3 Low")
	assert.Contains(t, md, "Concordance NA")
	assert.Contains(t, md, "- coercion: 1")
}

func TestMarkdownWithoutPosthoc(t *testing.T) {
	rep := sampleReport()
	rep.Cascade.Posthoc = nil
	rep.Cascade.Omnibus.PValue = 0.3

	md := NewRenderer().Markdown(rep)
	assert.Contains(t, md, "no post-hoc comparisons")
}

func TestHTMLIsCompletePage(t *testing.T) {
	page := string(NewRenderer().HTML(sampleReport()))

	assert.Contains(t, page, "<title>Expression analysis: EGFR</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "Leading Edge")
}

func TestPValueFormatting(t *testing.T) {
	assert.Equal(t, "0.0495", pval(0.0495))
	assert.Equal(t, "3.85e-05", pval(0.0000385))
	assert.Equal(t, "NA", pval(math.NaN()))
	assert.Equal(t, "NA", num(math.Inf(1)))
}
