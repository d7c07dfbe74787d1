// Package report renders a run report as Markdown and, through gomarkdown,
// as a standalone HTML page.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"tumorexpr/domain/dataset"
	"tumorexpr/domain/region"
	"tumorexpr/domain/run"
	"tumorexpr/domain/stats"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// maxListedWarnings caps the per-row warnings printed in the report
const maxListedWarnings = 20

// Renderer turns reports into documents
type Renderer struct{}

// NewRenderer creates a report renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// HTML renders the Markdown report as a complete HTML page
func (r *Renderer) HTML(rep *run.Report) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: fmt.Sprintf("Expression analysis: %s", rep.Gene),
	})
	return markdown.ToHTML([]byte(r.Markdown(rep)), p, renderer)
}

// Markdown renders every section of the report
func (r *Renderer) Markdown(rep *run.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Expression analysis: %s\n\n", rep.Gene)
	if m := rep.Manifest; m != nil {
		fmt.Fprintf(&b, "- Run: `%s`\n", m.RunID)
		fmt.Fprintf(&b, "- Created: %s\n", m.CreatedAt)
		fmt.Fprintf(&b, "- Inputs: %s, %s\n", m.Metadata, m.Expression)
		fmt.Fprintf(&b, "- Fingerprint: `%s`\n", m.Fingerprint)
	}
	fmt.Fprintf(&b, "- Samples: %d\n\n", rep.Samples)

	writeSummary(&b, rep.Summary)
	if rep.Cascade != nil {
		writeCascade(&b, rep.Cascade, rep.Annotations)
	}
	if rep.Anova != nil {
		writeAnova(&b, rep.Anova)
	}
	if rep.Survival != nil {
		writeSurvival(&b, rep.Survival)
	}
	if rep.Continuous != nil {
		writeContinuous(&b, rep.Continuous)
	}
	writeWarnings(&b, rep.Warnings)
	return b.String()
}

func writeSummary(b *strings.Builder, s stats.SummaryStatistics) {
	if len(s.Columns) == 0 {
		return
	}
	b.WriteString("## Summary statistics\n\n")
	b.WriteString("| column | count | mean | std | min | 25% | 50% | 75% | max |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|\n")
	for _, c := range s.Columns {
		fmt.Fprintf(b, "| %s | %d | %s | %s | %s | %s | %s | %s | %s |\n",
			c.Column, c.Count, num(float64(c.Mean)), num(float64(c.Std)), num(float64(c.Min)),
			num(float64(c.Q25)), num(float64(c.Median)), num(float64(c.Q75)), num(float64(c.Max)))
	}
	b.WriteString("\n")
}

func writeCascade(b *strings.Builder, c *stats.CascadeResult, anns []stats.Annotation) {
	fmt.Fprintf(b, "## %s by %s\n\n", c.ValueColumn, c.GroupColumn)

	b.WriteString("| group | region | n | mean | median | min | max |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, g := range c.Groups {
		fmt.Fprintf(b, "| %s | %s | %d | %s | %s | %s | %s |\n",
			g.Group, g.Label, g.N, num(g.Mean), num(g.Median), num(g.Min), num(g.Max))
	}
	b.WriteString("\n")
	if len(c.Excluded) > 0 {
		fmt.Fprintf(b, "Excluded groups (fewer than 2 observations): %s\n\n", strings.Join(labelled(c.Excluded), ", "))
	}

	b.WriteString("| test | statistic | p-value | n |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, t := range []stats.GroupTestResult{c.Normality, c.Omnibus} {
		fmt.Fprintf(b, "| %s | %s | %s | %d |\n", t.Method, num(float64(t.Statistic)), pval(float64(t.PValue)), t.N)
	}
	b.WriteString("\n")

	if c.Posthoc == nil {
		fmt.Fprintf(b, "Omnibus p-value is not below %.2f; no post-hoc comparisons.\n\n", c.Alpha)
		return
	}

	fmt.Fprintf(b, "### %s\n\n", c.Posthoc.Method)
	b.WriteString("| group A | group B | z | p (raw) | p (adjusted) | |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, p := range c.Posthoc.Pairs() {
		marker := ""
		if p.Adjusted < c.Alpha {
			marker = markerFor(anns, p.GroupA, p.GroupB)
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s |\n",
			region.Label(p.GroupA), region.Label(p.GroupB), num(p.Z), pval(p.Raw), pval(p.Adjusted), marker)
	}
	b.WriteString("\n")
}

func writeAnova(b *strings.Builder, a *stats.AnovaTable) {
	fmt.Fprintf(b, "## ANOVA (type II): `%s`\n\n", a.Formula)
	b.WriteString("| source | sum_sq | df | F | PR(>F) |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range a.Rows {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n",
			r.Source, num(float64(r.SumSq)), num(float64(r.DF)), num(float64(r.F)), pval(float64(r.PValue)))
	}
	b.WriteString("\n")
}

func writeSurvival(b *strings.Builder, s *stats.StratificationResult) {
	fmt.Fprintf(b, "## Survival by %s stratum\n\n", s.CovariateColumn)
	fmt.Fprintf(b, "Median %s = %s: %d High, %d Low. Every sample is treated as an observed event.\n\n",
		s.CovariateColumn, num(s.Median), s.HighCount, s.LowCount)
	writeCox(b, &s.Model)
}

func writeContinuous(b *strings.Builder, c *stats.ContinuousFit) {
	fmt.Fprintf(b, "## Survival by continuous %s\n\n", c.CovariateColumn)
	writeCox(b, &c.Model)
}

func writeCox(b *strings.Builder, m *stats.CoxModelSummary) {
	b.WriteString("| covariate | coef | exp(coef) | se(coef) | z | p | exp(coef) lower 95% | exp(coef) upper 95% |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n\n",
		m.Covariate, num(float64(m.Coefficient)), num(float64(m.HazardRatio)), num(float64(m.StandardError)),
		num(float64(m.Z)), pval(float64(m.PValue)), num(float64(m.HRLower95)), num(float64(m.HRUpper95)))
	fmt.Fprintf(b, "Concordance %s, log-likelihood ratio test %s on 1 df (p=%s), %d events over %d samples",
		num(float64(m.Concordance)), num(float64(m.LikelihoodRatio)), pval(float64(m.LRPValue)), m.Events, m.N)
	if !m.Converged {
		fmt.Fprintf(b, ", **not converged** after %d iterations", m.Iterations)
	}
	b.WriteString(".\n\n")
}

func writeWarnings(b *strings.Builder, warnings []dataset.Warning) {
	if len(warnings) == 0 {
		return
	}
	b.WriteString("## Warnings\n\n")

	counts := make(map[dataset.WarningKind]int)
	for _, w := range warnings {
		counts[w.Kind]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(b, "- %s: %d\n", k, counts[dataset.WarningKind(k)])
	}
	b.WriteString("\n")

	for i, w := range warnings {
		if i == maxListedWarnings {
			fmt.Fprintf(b, "- ... %d more\n", len(warnings)-maxListedWarnings)
			break
		}
		fmt.Fprintf(b, "- %s\n", w.Message)
	}
	b.WriteString("\n")
}

func markerFor(anns []stats.Annotation, a, b string) string {
	for _, ann := range anns {
		if (ann.GroupA == a && ann.GroupB == b) || (ann.GroupA == b && ann.GroupB == a) {
			return ann.Marker
		}
	}
	return ""
}

func labelled(codes []string) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = region.Label(c)
	}
	return out
}

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NA"
	}
	return fmt.Sprintf("%.4f", v)
}

func pval(p float64) string {
	if math.IsNaN(p) {
		return "NA"
	}
	if p > 0 && p < 1e-4 {
		return fmt.Sprintf("%.2e", p)
	}
	return fmt.Sprintf("%.4f", p)
}
