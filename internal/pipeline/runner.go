// Package pipeline composes the merge, group comparison, survival and
// annotation stages into a single run over one metadata table and one
// expression matrix.
package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"tumorexpr/adapters/datareadiness/coercer"
	"tumorexpr/domain/core"
	domainDataset "tumorexpr/domain/dataset"
	"tumorexpr/domain/run"
	"tumorexpr/internal"
	"tumorexpr/internal/analysis"
	"tumorexpr/internal/annotation"
	"tumorexpr/internal/dataset"
	apperrors "tumorexpr/internal/errors"
	"tumorexpr/internal/survival"
	"tumorexpr/ports"

	"golang.org/x/sync/errgroup"
)

// Options configures a Runner
type Options struct {
	Parameters   run.Parameters
	MinGroupSize int // defaults to 2
	Workers      int // batch concurrency; defaults to GOMAXPROCS
	Annotation   annotation.Options
	Logger       *internal.Logger // defaults to LOG_LEVEL
}

// DefaultOptions returns the standard parameters with default thresholds
func DefaultOptions() Options {
	return Options{
		Parameters:   run.DefaultParameters(),
		MinGroupSize: 2,
		Workers:      runtime.GOMAXPROCS(0),
		Annotation:   annotation.DefaultOptions(),
	}
}

// Runner executes analysis runs. Stages share no mutable state, so one
// Runner may serve concurrent calls.
type Runner struct {
	opts       Options
	coercer    *coercer.TypeCoercer
	cascade    *analysis.Cascade
	stratifier *survival.Stratifier
	artifacts  ports.ArtifactWriter
	repository ports.RunRepository
}

// NewRunner validates the options and builds the stage components
func NewRunner(opts Options) (*Runner, error) {
	if err := opts.Parameters.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Annotation.StepFactor <= 0 || opts.Annotation.OffsetRatio <= 0 {
		opts.Annotation = annotation.DefaultOptions()
	}
	opts.Annotation.Alpha = opts.Parameters.Alpha
	if opts.Logger == nil {
		opts.Logger = internal.NewDefaultLogger("Runner")
	}

	c := coercer.Default()
	return &Runner{
		opts:    opts,
		coercer: c,
		cascade: analysis.NewCascade(analysis.Options{
			Alpha:        opts.Parameters.Alpha,
			MinGroupSize: opts.MinGroupSize,
		}, c),
		stratifier: survival.NewStratifier(survival.NewCoxFitter(), c),
	}, nil
}

// WithArtifacts attaches a writer that receives every completed report
func (r *Runner) WithArtifacts(w ports.ArtifactWriter) *Runner {
	r.artifacts = w
	return r
}

// WithRepository attaches a store that receives every completed report
func (r *Runner) WithRepository(repo ports.RunRepository) *Runner {
	r.repository = repo
	return r
}

// Parameters returns the parameters every run uses
func (r *Runner) Parameters() run.Parameters {
	return r.opts.Parameters
}

// WithParameters returns a copy of the runner using params, keeping the
// attached artifact writer and repository
func (r *Runner) WithParameters(params run.Parameters) (*Runner, error) {
	opts := r.opts
	opts.Parameters = params
	clone, err := NewRunner(opts)
	if err != nil {
		return nil, err
	}
	clone.artifacts = r.artifacts
	clone.repository = r.repository
	return clone, nil
}

// Run analyzes the gene selected by Parameters.GeneLabel, or the first gene
// row when no label is set
func (r *Runner) Run(ctx context.Context, meta, expr *domainDataset.RawTable) (*run.Report, error) {
	params := r.opts.Parameters
	merger := r.merger(params)

	merged, err := merger.Merge(meta, expr, params.MetadataColumns)
	if err != nil {
		return nil, err
	}
	return r.analyze(ctx, params, meta, expr, merged)
}

// RunFiles reads both tables and runs the analysis
func (r *Runner) RunFiles(ctx context.Context, metaReader, exprReader ports.TableReader) (*run.Report, error) {
	meta, expr, err := readPair(metaReader, exprReader)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, meta, expr)
}

// RunBatch analyzes every gene row of expr independently. A failing gene is
// recorded in its BatchItem and does not stop the others. The returned error
// is non-nil only for problems shared by every gene, or cancellation.
func (r *Runner) RunBatch(ctx context.Context, meta, expr *domainDataset.RawTable) ([]run.BatchItem, error) {
	genes := dataset.GeneLabels(expr)
	if len(genes) == 0 {
		return nil, core.NewSchemaError("expression matrix has no gene rows")
	}
	r.opts.Logger.Info("Batch over %d genes with %d workers", len(genes), r.opts.Workers)

	items := make([]run.BatchItem, len(genes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for i, gene := range genes {
		i, gene := i, gene
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i] = r.runGene(gctx, meta, expr, i, gene)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return items, err
	}

	failed := 0
	for _, item := range items {
		if item.Failed() {
			failed++
		}
	}
	r.opts.Logger.Info("Batch finished: %d succeeded, %d failed", len(items)-failed, failed)
	return items, nil
}

func (r *Runner) runGene(ctx context.Context, meta, expr *domainDataset.RawTable, index int, gene string) run.BatchItem {
	item := run.BatchItem{GeneIndex: index, Gene: gene}

	params := r.opts.Parameters
	params.GeneLabel = gene
	merged, err := r.merger(params).MergeGene(meta, expr, params.MetadataColumns, index)
	if err == nil {
		item.Report, err = r.analyze(ctx, params, meta, expr, merged)
	}
	if err != nil {
		item.Report = nil
		item.Error = err.Error()
		item.ErrorCode = apperrors.Classify(err)
		r.opts.Logger.Warn("Gene %s (row %d) failed: %v", gene, index, err)
	}
	return item
}

func (r *Runner) merger(params run.Parameters) *dataset.Merger {
	return dataset.NewMerger(r.coercer, dataset.MergeOptions{
		GeneLabel:   params.GeneLabel,
		ValueColumn: params.ValueColumn,
	})
}

// analyze runs every stage after the merge. Any stage error fails the run.
func (r *Runner) analyze(ctx context.Context, params run.Parameters, meta, expr *domainDataset.RawTable, merged *dataset.MergeResult) (*run.Report, error) {
	report := &run.Report{
		Manifest:  run.NewManifest(params, meta, expr),
		Gene:      merged.Gene,
		GeneIndex: merged.GeneIndex,
		Samples:   merged.Table.RowCount(),
		Warnings:  append([]domainDataset.Warning(nil), merged.Warnings...),
	}
	r.opts.Logger.Debug("Run %s: gene %s over %d samples", report.ID(), report.Gene, report.Samples)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report.Summary = r.cascade.Describe(merged.Table)

	cascade, err := r.cascade.Analyze(merged.Table, params.ValueColumn, params.GroupColumn)
	if err != nil {
		return nil, fmt.Errorf("group comparison: %w", err)
	}
	report.Cascade = cascade
	report.Warnings = append(report.Warnings, cascade.Warnings...)

	anova, err := r.cascade.Anova(merged.Table, params.ValueColumn, params.GroupColumn)
	if err != nil {
		return nil, fmt.Errorf("anova: %w", err)
	}
	report.Anova = anova

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	strata, err := r.stratifier.StratifyAndFit(merged.Table, params.TimeColumn, params.ValueColumn)
	if err != nil {
		return nil, fmt.Errorf("survival stratification: %w", err)
	}
	report.Survival = strata
	report.Warnings = append(report.Warnings, strata.Warnings...)

	report.Merged, err = survival.WithStratumColumns(merged.Table, strata)
	if err != nil {
		return nil, err
	}

	continuous, err := r.stratifier.FitContinuous(merged.Table, params.TimeColumn, params.ValueColumn)
	if err != nil {
		return nil, fmt.Errorf("continuous survival fit: %w", err)
	}
	report.Continuous = continuous
	for _, w := range continuous.Warnings {
		if w.Kind == domainDataset.WarnConvergence {
			report.Warnings = append(report.Warnings, w)
		}
	}

	report.Annotations = annotation.Annotate(cascade.Posthoc, cascade.GroupOrder,
		annotation.Bounds{Min: cascade.ValueMin, Max: cascade.ValueMax}, r.opts.Annotation)

	if err := r.persist(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (r *Runner) persist(ctx context.Context, report *run.Report) error {
	if r.artifacts != nil {
		paths, err := r.artifacts.WriteReport(ctx, report)
		if err != nil {
			return err
		}
		r.opts.Logger.Info("Run %s wrote %d artifacts", report.ID(), len(paths))
	}
	if r.repository != nil {
		if err := r.repository.Save(ctx, report); err != nil {
			return err
		}
	}
	return nil
}

func readPair(metaReader, exprReader ports.TableReader) (*domainDataset.RawTable, *domainDataset.RawTable, error) {
	meta, err := metaReader.ReadTable()
	if err != nil {
		return nil, nil, err
	}
	expr, err := exprReader.ReadTable()
	if err != nil {
		return nil, nil, err
	}
	return meta, expr, nil
}
