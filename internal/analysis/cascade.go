// Package analysis runs the group-comparison cascade on a merged table:
// Shapiro-Wilk normality, Kruskal-Wallis omnibus, and Dunn post-hoc gated on
// the omnibus p-value, plus the parametric ANOVA path and summary statistics.
package analysis

import (
	"log"
	"math"
	"strings"

	"tumorexpr/adapters/datareadiness/coercer"
	"tumorexpr/domain/core"
	"tumorexpr/domain/dataset"
	"tumorexpr/domain/region"
	"tumorexpr/domain/stats"
)

// Options configures the cascade
type Options struct {
	Alpha        float64 // post-hoc gate; defaults to stats.DefaultAlpha
	MinGroupSize int     // groups with fewer observations are excluded; defaults to 2
}

// Cascade runs the group comparison tests. It holds no mutable state and is
// safe for concurrent use.
type Cascade struct {
	alpha        float64
	minGroupSize int
	coercer      *coercer.TypeCoercer
}

// NewCascade creates a cascade. A nil coercer uses the default rules.
func NewCascade(opts Options, c *coercer.TypeCoercer) *Cascade {
	if opts.Alpha <= 0 || opts.Alpha >= 1 {
		opts.Alpha = stats.DefaultAlpha
	}
	if opts.MinGroupSize <= 0 {
		opts.MinGroupSize = 2
	}
	if c == nil {
		c = coercer.Default()
	}
	return &Cascade{alpha: opts.Alpha, minGroupSize: opts.MinGroupSize, coercer: c}
}

// groupedValues is a value column partitioned by a group column, in order of
// first appearance
type groupedValues struct {
	order    []string
	values   map[string][]float64
	warnings []dataset.Warning
}

func (g *groupedValues) slices(names []string) [][]float64 {
	out := make([][]float64, len(names))
	for i, name := range names {
		out[i] = g.values[name]
	}
	return out
}

// partition drops rows with a missing value or group and buckets the rest
func (c *Cascade) partition(table *dataset.Table, valueColumn, groupColumn string) (*groupedValues, error) {
	if err := table.RequireColumns(valueColumn, groupColumn); err != nil {
		return nil, err
	}
	valueCol, _ := table.Column(valueColumn)
	groupCol, _ := table.Column(groupColumn)

	values, warnings := c.coercer.Numeric(valueCol)
	g := &groupedValues{values: make(map[string][]float64), warnings: warnings}

	for i, v := range values {
		group := strings.TrimSpace(groupCol.Text[i])
		switch {
		case group == "":
			g.warnings = append(g.warnings, dataset.DroppedRowWarning(i, groupColumn, "missing group"))
			continue
		case math.IsNaN(v) || math.IsInf(v, 0):
			g.warnings = append(g.warnings, dataset.DroppedRowWarning(i, valueColumn, "missing value"))
			continue
		}
		if _, seen := g.values[group]; !seen {
			g.order = append(g.order, group)
		}
		g.values[group] = append(g.values[group], v)
	}

	if len(g.order) < 2 {
		return nil, core.NewInsufficientGroupsError(groupColumn, len(g.order))
	}
	return g, nil
}

// Analyze runs normality, omnibus and (when significant) post-hoc tests of
// valueColumn across the groups of groupColumn.
func (c *Cascade) Analyze(table *dataset.Table, valueColumn, groupColumn string) (*stats.CascadeResult, error) {
	g, err := c.partition(table, valueColumn, groupColumn)
	if err != nil {
		return nil, err
	}

	result := &stats.CascadeResult{
		ValueColumn: valueColumn,
		GroupColumn: groupColumn,
		Alpha:       c.alpha,
		Warnings:    g.warnings,
	}

	for _, name := range g.order {
		if n := len(g.values[name]); n < c.minGroupSize {
			result.Excluded = append(result.Excluded, name)
			result.Warnings = append(result.Warnings, dataset.NewWarning(dataset.WarnExcludedGroup,
				"group %s has %d observation(s), excluded from testing", name, n))
			continue
		}
		result.GroupOrder = append(result.GroupOrder, name)
	}
	if len(result.GroupOrder) < 2 {
		return nil, core.NewInsufficientGroupsError(groupColumn, len(result.GroupOrder))
	}

	// bounds span every plotted value, excluded groups included
	var all []float64
	for _, v := range g.slices(g.order) {
		all = append(all, v...)
	}
	result.ValueMin, result.ValueMax = bounds(all)

	groups := g.slices(result.GroupOrder)
	var pooled []float64
	for i, name := range result.GroupOrder {
		pooled = append(pooled, groups[i]...)
		result.Groups = append(result.Groups, summarizeGroup(name, region.Label(name), groups[i]))
	}

	result.Normality = c.normality(pooled, result)

	kw, err := KruskalWallis(groups)
	if err != nil {
		return nil, err
	}
	result.Omnibus = stats.GroupTestResult{
		Method:    stats.MethodKruskalWallis,
		Statistic: stats.Float(kw.H),
		PValue:    stats.Float(kw.PValue),
		DF:        float64(kw.DF),
		N:         kw.N,
	}
	if kw.Tied {
		result.Warnings = append(result.Warnings, dataset.NewWarning(dataset.WarnTies,
			"all %d values of %s are identical, omnibus test is uninformative", kw.N, valueColumn))
	}

	if result.Significant() {
		posthoc, err := Dunn(result.GroupOrder, groups)
		if err != nil {
			return nil, err
		}
		result.Posthoc = posthoc
	}

	log.Printf("[Cascade] %s by %s: %d groups, H=%.4f p=%.4g, posthoc=%t",
		valueColumn, groupColumn, len(result.GroupOrder), kw.H, kw.PValue, result.Posthoc != nil)
	return result, nil
}

func (c *Cascade) normality(pooled []float64, result *stats.CascadeResult) stats.GroupTestResult {
	sw, err := ShapiroWilk(pooled)
	test := stats.GroupTestResult{
		Method:    stats.MethodShapiroWilk,
		Statistic: stats.Float(sw.W),
		PValue:    stats.Float(sw.PValue),
		N:         sw.N,
	}
	if err != nil {
		test.Skipped = true
		result.Warnings = append(result.Warnings, dataset.NewWarning(dataset.WarnNormality, "%s", err.Error()))
		return test
	}
	if sw.Note != "" {
		result.Warnings = append(result.Warnings, dataset.NewWarning(dataset.WarnNormality, "shapiro-wilk: %s", sw.Note))
	}
	return test
}

// Anova runs the parametric path on every complete row. Singleton groups are
// kept since the OLS fit does not need within-group variance per group.
func (c *Cascade) Anova(table *dataset.Table, valueColumn, groupColumn string) (*stats.AnovaTable, error) {
	g, err := c.partition(table, valueColumn, groupColumn)
	if err != nil {
		return nil, err
	}
	return OneWayAnova(valueColumn, groupColumn, g.slices(g.order))
}

// Describe returns summary statistics for every numeric column
func (c *Cascade) Describe(table *dataset.Table) stats.SummaryStatistics {
	return Describe(table, c.coercer)
}

func bounds(values []float64) (float64, float64) {
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	return min, max
}
