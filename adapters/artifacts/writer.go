// Package artifacts writes the per-run CSV tables and rendered reports to a
// directory, one subdirectory per run.
package artifacts

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"tumorexpr/adapters/report"
	"tumorexpr/domain/dataset"
	"tumorexpr/domain/region"
	"tumorexpr/domain/run"
	"tumorexpr/domain/stats"
	apperrors "tumorexpr/internal/errors"
	"tumorexpr/ports"
)

// Artifact file names
const (
	MergedFile      = "merged.csv"
	SummaryFile     = "summary_statistics.csv"
	OmnibusFile     = "omnibus.csv"
	AnovaFile       = "anova.csv"
	PosthocFile     = "posthoc_dunn.csv"
	CoxFile         = "survival_cox.csv"
	StrataFile      = "survival_strata.csv"
	AnnotationsFile = "annotations.csv"
	MarkdownFile    = "report.md"
	HTMLFile        = "report.html"
)

// Writer writes reports below baseDir
type Writer struct {
	baseDir  string
	renderer *report.Renderer
}

// NewWriter creates an artifact writer rooted at baseDir
func NewWriter(baseDir string) ports.ArtifactWriter {
	return &Writer{baseDir: baseDir, renderer: report.NewRenderer()}
}

// WriteReport writes every artifact the report has data for into
// baseDir/<run id>/ and returns the paths written
func (w *Writer) WriteReport(ctx context.Context, rep *run.Report) ([]string, error) {
	dir := filepath.Join(w.baseDir, rep.ID().String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.IOError(dir, err)
	}

	type job struct {
		name    string
		records [][]string
		raw     []byte
	}
	var jobs []job
	if rep.Merged != nil {
		jobs = append(jobs, job{name: MergedFile, records: rep.Merged.Records()})
	}
	jobs = append(jobs, job{name: SummaryFile, records: summaryRecords(rep.Summary)})
	if rep.Cascade != nil {
		jobs = append(jobs, job{name: OmnibusFile, records: omnibusRecords(rep.Cascade, rep.Anova)})
		if rep.Cascade.Posthoc != nil {
			jobs = append(jobs, job{name: PosthocFile, records: posthocRecords(rep.Cascade.Posthoc)})
		}
		jobs = append(jobs, job{name: AnnotationsFile, records: annotationRecords(rep.Annotations)})
	}
	if rep.Anova != nil {
		jobs = append(jobs, job{name: AnovaFile, records: anovaRecords(rep.Anova)})
	}
	if rep.Survival != nil {
		jobs = append(jobs, job{name: CoxFile, records: coxRecords(rep)})
		jobs = append(jobs, job{name: StrataFile, records: curveRecords(rep.Survival.Curves)})
	}
	jobs = append(jobs,
		job{name: MarkdownFile, raw: []byte(w.renderer.Markdown(rep))},
		job{name: HTMLFile, raw: w.renderer.HTML(rep)},
	)

	paths := make([]string, 0, len(jobs))
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		path := filepath.Join(dir, j.name)
		var err error
		if j.raw != nil {
			err = os.WriteFile(path, j.raw, 0o644)
		} else {
			err = writeCSV(path, j.records)
		}
		if err != nil {
			return paths, apperrors.IOError(path, err)
		}
		paths = append(paths, path)
	}

	log.Printf("[ArtifactWriter] Wrote %d artifacts for run %s to %s", len(paths), rep.ID(), dir)
	return paths, nil
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(f)
	if err := cw.WriteAll(records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func f4(v float64) string {
	return dataset.FormatFloat(v)
}

func summaryRecords(s stats.SummaryStatistics) [][]string {
	records := [][]string{{"column", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}}
	for _, c := range s.Columns {
		records = append(records, []string{
			c.Column, strconv.Itoa(c.Count), f4(float64(c.Mean)), f4(float64(c.Std)), f4(float64(c.Min)),
			f4(float64(c.Q25)), f4(float64(c.Median)), f4(float64(c.Q75)), f4(float64(c.Max)),
		})
	}
	return records
}

func omnibusRecords(c *stats.CascadeResult, anova *stats.AnovaTable) [][]string {
	records := [][]string{{"test", "statistic", "p_value", "df", "n"}}
	for _, t := range []stats.GroupTestResult{c.Normality, c.Omnibus} {
		df := ""
		if t.DF > 0 {
			df = f4(t.DF)
		}
		records = append(records, []string{
			string(t.Method), f4(float64(t.Statistic)), f4(float64(t.PValue)), df, strconv.Itoa(t.N),
		})
	}
	if anova != nil {
		factor := anova.Factor()
		records = append(records, []string{
			string(stats.MethodAnovaTypeII), f4(float64(factor.F)), f4(float64(factor.PValue)), f4(float64(factor.DF)), strconv.Itoa(anova.N),
		})
	}
	return records
}

func anovaRecords(a *stats.AnovaTable) [][]string {
	records := [][]string{{"", "sum_sq", "df", "F", "PR(>F)"}}
	for _, r := range a.Rows {
		records = append(records, []string{
			r.Source, f4(float64(r.SumSq)), f4(float64(r.DF)), f4(float64(r.F)), f4(float64(r.PValue)),
		})
	}
	return records
}

// posthocRecords writes the adjusted matrix with region labels as headers
func posthocRecords(m *stats.PosthocMatrix) [][]string {
	header := []string{""}
	for _, g := range m.Groups {
		header = append(header, region.Label(g))
	}
	records := [][]string{header}
	for i, g := range m.Groups {
		row := []string{region.Label(g)}
		for j := range m.Groups {
			row = append(row, f4(m.Adjusted[i][j]))
		}
		records = append(records, row)
	}
	return records
}

func annotationRecords(anns []stats.Annotation) [][]string {
	records := [][]string{{"pair_index_a", "pair_index_b", "group_a", "group_b", "p_value", "bracket_height", "marker"}}
	for _, a := range anns {
		records = append(records, []string{
			strconv.Itoa(a.PairIndexA), strconv.Itoa(a.PairIndexB),
			region.Label(a.GroupA), region.Label(a.GroupB),
			f4(a.PValue), f4(a.Height), a.Marker,
		})
	}
	return records
}

func coxRecords(rep *run.Report) [][]string {
	records := [][]string{{
		"model", "covariate", "coef", "exp(coef)", "se(coef)", "z", "p",
		"exp(coef) lower 95%", "exp(coef) upper 95%", "concordance",
		"log_likelihood_ratio_test", "log_likelihood_ratio_p", "n", "events", "converged",
	}}
	add := func(model string, m *stats.CoxModelSummary) {
		records = append(records, []string{
			model, m.Covariate, f4(float64(m.Coefficient)), f4(float64(m.HazardRatio)), f4(float64(m.StandardError)),
			f4(float64(m.Z)), f4(float64(m.PValue)), f4(float64(m.HRLower95)), f4(float64(m.HRUpper95)),
			f4(float64(m.Concordance)), f4(float64(m.LikelihoodRatio)), f4(float64(m.LRPValue)),
			strconv.Itoa(m.N), strconv.Itoa(m.Events), strconv.FormatBool(m.Converged),
		})
	}
	add("stratified", &rep.Survival.Model)
	if rep.Continuous != nil {
		add("continuous", &rep.Continuous.Model)
	}
	return records
}

func curveRecords(curves []stats.SurvivalCurve) [][]string {
	records := [][]string{{"stratum", "covariate", "time", "survival"}}
	for _, c := range curves {
		for _, p := range c.Points {
			records = append(records, []string{c.Label, fmt.Sprintf("%g", c.Covariate), f4(p.Time), f4(p.Survival)})
		}
	}
	return records
}
