package stats

import (
	"math"

	"tumorexpr/domain/dataset"
)

// Method names a statistical procedure in result tables
type Method string

const (
	MethodShapiroWilk    Method = "Shapiro-Wilk"
	MethodKruskalWallis  Method = "Kruskal-Wallis"
	MethodDunnBonferroni Method = "Dunn (Bonferroni)"
	MethodAnovaTypeII    Method = "OLS ANOVA (type II)"
	MethodCoxPH          Method = "Cox proportional hazards (Efron)"
)

// DefaultAlpha gates the post-hoc test and the significance annotations
const DefaultAlpha = 0.05

// GroupTestResult is produced by each cascade stage and never mutated
type GroupTestResult struct {
	Method    Method  `json:"method"`
	Statistic Float   `json:"statistic"`
	PValue    Float   `json:"p_value"`
	DF        float64 `json:"df,omitempty"`
	N         int     `json:"n"`
	Skipped   bool    `json:"skipped,omitempty"`
}

// PosthocMatrix holds pairwise comparisons between every pair of retained
// groups. Both matrices are symmetric with the diagonal set to 1.
type PosthocMatrix struct {
	Method      Method      `json:"method"`
	Groups      []string    `json:"groups"`
	Adjusted    [][]float64 `json:"adjusted"`
	Raw         [][]float64 `json:"raw"`
	Z           [][]float64 `json:"z"`
	Comparisons int         `json:"comparisons"`
}

// PairComparison is one off-diagonal cell of a PosthocMatrix
type PairComparison struct {
	GroupA   string  `json:"group_a"`
	GroupB   string  `json:"group_b"`
	Z        float64 `json:"z"`
	Raw      float64 `json:"raw_p"`
	Adjusted float64 `json:"adjusted_p"`
}

// Index returns the matrix position of a group, or -1
func (m *PosthocMatrix) Index(group string) int {
	for i, g := range m.Groups {
		if g == group {
			return i
		}
	}
	return -1
}

// PValue returns the adjusted p-value for an unordered pair
func (m *PosthocMatrix) PValue(a, b string) (float64, bool) {
	i, j := m.Index(a), m.Index(b)
	if i < 0 || j < 0 || i == j {
		return 0, false
	}
	return cell(m.Adjusted, i, j), true
}

// Pairs lists every unordered pair i<j in matrix order
func (m *PosthocMatrix) Pairs() []PairComparison {
	var out []PairComparison
	for i := range m.Groups {
		for j := i + 1; j < len(m.Groups); j++ {
			out = append(out, PairComparison{
				GroupA:   m.Groups[i],
				GroupB:   m.Groups[j],
				Z:        cell(m.Z, i, j),
				Raw:      cell(m.Raw, i, j),
				Adjusted: cell(m.Adjusted, i, j),
			})
		}
	}
	return out
}

// cell reads m[i][j], or NaN when the matrix was not filled that far
func cell(m [][]float64, i, j int) float64 {
	if i >= len(m) || j >= len(m[i]) {
		return math.NaN()
	}
	return m[i][j]
}

// GroupSummary describes one partition of the value column
type GroupSummary struct {
	Group  string  `json:"group"`
	Label  string  `json:"label"`
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// CascadeResult is the output of the normality → omnibus → post-hoc cascade
type CascadeResult struct {
	ValueColumn string            `json:"value_column"`
	GroupColumn string            `json:"group_column"`
	Alpha       float64           `json:"alpha"`
	Normality   GroupTestResult   `json:"normality"`
	Omnibus     GroupTestResult   `json:"omnibus"`
	Posthoc     *PosthocMatrix    `json:"posthoc,omitempty"`
	GroupOrder  []string          `json:"group_order"`
	Groups      []GroupSummary    `json:"groups"`
	Excluded    []string          `json:"excluded_groups,omitempty"`
	ValueMin    float64           `json:"value_min"`
	ValueMax    float64           `json:"value_max"`
	Warnings    []dataset.Warning `json:"warnings,omitempty"`
}

// Significant reports whether the omnibus test rejected at Alpha
func (r *CascadeResult) Significant() bool {
	return float64(r.Omnibus.PValue) < r.Alpha
}

// AnovaRow is one line of a type-II ANOVA table. F and PValue are missing on
// the residual row.
type AnovaRow struct {
	Source string `json:"source"`
	SumSq  Float  `json:"sum_sq"`
	DF     Float  `json:"df"`
	F      Float  `json:"F"`
	PValue Float  `json:"PR(>F)"`
}

// AnovaTable is the supplementary parametric omnibus test
type AnovaTable struct {
	Formula string     `json:"formula"`
	N       int        `json:"n"`
	Rows    []AnovaRow `json:"rows"`
}

// Factor returns the row for the grouping factor
func (a *AnovaTable) Factor() AnovaRow {
	if len(a.Rows) == 0 {
		return AnovaRow{}
	}
	return a.Rows[0]
}

// ColumnSummary is one column of the describe() style summary table
type ColumnSummary struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
	Mean   Float  `json:"mean"`
	Std    Float  `json:"std"`
	Min    Float  `json:"min"`
	Q25    Float  `json:"25%"`
	Median Float  `json:"50%"`
	Q75    Float  `json:"75%"`
	Max    Float  `json:"max"`
}

// SummaryStatistics covers every numeric column of a merged table
type SummaryStatistics struct {
	Columns []ColumnSummary `json:"columns"`
}

// Annotation is one significance bracket to draw between two categories
type Annotation struct {
	PairIndexA int     `json:"pair_index_a"`
	PairIndexB int     `json:"pair_index_b"`
	GroupA     string  `json:"group_a"`
	GroupB     string  `json:"group_b"`
	PValue     float64 `json:"p_value"`
	Height     float64 `json:"bracket_height"`
	Marker     string  `json:"marker"`
}
