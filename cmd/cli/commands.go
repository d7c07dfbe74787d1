package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"tumorexpr/adapters/artifacts"
	"tumorexpr/adapters/datareadiness/coercer"
	"tumorexpr/adapters/excel"
	"tumorexpr/adapters/postgres"
	domainDataset "tumorexpr/domain/dataset"
	"tumorexpr/domain/region"
	"tumorexpr/domain/run"
	"tumorexpr/internal/analysis"
	"tumorexpr/internal/annotation"
	"tumorexpr/internal/config"
	"tumorexpr/internal/dataset"
	apperrors "tumorexpr/internal/errors"
	"tumorexpr/internal/pipeline"
	"tumorexpr/internal/survival"

	"github.com/spf13/cobra"
)

func newMergeCmd(flags *globalFlags) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge metadata with one gene's expression vector and write CSV",
		Long: `Merge selects the configured metadata columns and appends the chosen
gene's expression values, aligned by sample position.

Example: tumorexpr merge --metadata meta.csv --expression expr.csv --out merged.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, merged, err := loadMerged(flags)
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), merged.Warnings)

			if out == "" {
				return writeRecords(cmd.OutOrStdout(), merged.Table.Records())
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := writeRecords(f, merged.Table.Records()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %d samples x %d columns (gene %s) into %s\n",
				merged.Table.RowCount(), merged.Table.ColumnCount(), merged.Gene, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "output CSV path (default stdout)")
	return cmd
}

func newRegionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List the structure_color codes and their region names",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tREGION")
			for _, r := range region.All() {
				fmt.Fprintf(w, "%s\t%s\n", r.Code, r.Label)
			}
			return w.Flush()
		},
	}
}

func newGroupsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "Run normality, Kruskal-Wallis, Dunn and ANOVA across groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, merged, err := loadMerged(flags)
			if err != nil {
				return err
			}
			params := cfg.Parameters()
			cascade := analysis.NewCascade(analysis.Options{
				Alpha:        params.Alpha,
				MinGroupSize: cfg.Analysis.MinGroupSize,
			}, coercer.Default())

			result, err := cascade.Analyze(merged.Table, params.ValueColumn, params.GroupColumn)
			if err != nil {
				return err
			}
			anova, err := cascade.Anova(merged.Table, params.ValueColumn, params.GroupColumn)
			if err != nil {
				return err
			}
			opts := annotation.DefaultOptions()
			opts.Alpha = params.Alpha
			annotations := annotation.Annotate(result.Posthoc, result.GroupOrder,
				annotation.Bounds{Min: result.ValueMin, Max: result.ValueMax}, opts)

			printWarnings(cmd.ErrOrStderr(), result.Warnings)
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"gene":        merged.Gene,
				"cascade":     result,
				"anova":       anova,
				"annotations": annotations,
			})
		},
	}
}

func newSurvivalCmd(flags *globalFlags) *cobra.Command {
	var continuous bool

	cmd := &cobra.Command{
		Use:   "survival",
		Short: "Median-split the gene and fit a Cox proportional-hazards model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, merged, err := loadMerged(flags)
			if err != nil {
				return err
			}
			params := cfg.Parameters()
			stratifier := survival.NewStratifier(survival.NewCoxFitter(), coercer.Default())

			result, err := stratifier.StratifyAndFit(merged.Table, params.TimeColumn, params.ValueColumn)
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), result.Warnings)

			output := map[string]interface{}{"gene": merged.Gene, "stratified": result}
			if continuous {
				fit, err := stratifier.FitContinuous(merged.Table, params.TimeColumn, params.ValueColumn)
				if err != nil {
					return err
				}
				output["continuous"] = fit
			}
			return printJSON(cmd.OutOrStdout(), output)
		},
	}

	cmd.Flags().BoolVar(&continuous, "continuous", false, "also fit the raw covariate")
	return cmd
}

// runFlags configure where run and batch send their results
type runFlags struct {
	outDir      string
	noArtifacts bool
	store       bool
	timeout     time.Duration
}

func (rf *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&rf.outDir, "out", "", "artifact directory (overrides config)")
	cmd.Flags().BoolVar(&rf.noArtifacts, "no-artifacts", false, "skip writing CSV and report files")
	cmd.Flags().BoolVar(&rf.store, "store", false, "save runs to the database at DATABASE_URL")
	cmd.Flags().DurationVar(&rf.timeout, "timeout", 0, "abort after this long (0 waits indefinitely)")
}

// buildRunner wires the runner with the artifact writer and result store the
// flags ask for. The returned cleanup closes the database.
func (rf *runFlags) buildRunner(ctx context.Context, cfg *config.Config) (*pipeline.Runner, func(), error) {
	runner, err := pipeline.NewRunner(pipeline.OptionsFromConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	if !rf.noArtifacts {
		dir := cfg.Paths.OutputDir
		if rf.outDir != "" {
			dir = rf.outDir
		}
		runner.WithArtifacts(artifacts.NewWriter(dir))
	}

	cleanup := func() {}
	if rf.store {
		db, err := postgres.Connect(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns)
		if err != nil {
			return nil, nil, err
		}
		runner.WithRepository(postgres.NewRunRepository(db))
		cleanup = func() { db.Close() }
	}
	return runner, cleanup, nil
}

func (rf *runFlags) newContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if rf.timeout > 0 {
		return context.WithTimeout(parent, rf.timeout)
	}
	return context.WithCancel(parent)
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	rf := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline for one gene",
		Long: `Run merges the tables, compares expression across regions, stratifies
survival by the gene's median, and writes every artifact.

Example: tumorexpr run --metadata meta.csv --expression expr.csv --gene EGFR --out results`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if flags.metadata == "" || flags.expression == "" {
				return apperrors.InvalidInput("--metadata and --expression are required")
			}

			ctx, cancel := rf.newContext(cmd.Context())
			defer cancel()
			runner, cleanup, err := rf.buildRunner(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			rep, err := runner.RunFiles(ctx,
				excel.NewDataReader(flags.metadata).WithSheet(cfg.Paths.Sheet),
				excel.NewDataReader(flags.expression).WithSheet(cfg.Paths.Sheet))
			if err != nil {
				return err
			}

			printWarnings(cmd.ErrOrStderr(), rep.Warnings)
			printSummaries(cmd.OutOrStdout(), []run.Summary{rep.Summarize()})
			return nil
		},
	}

	rf.register(cmd)
	return cmd
}

func newBatchCmd(flags *globalFlags) *cobra.Command {
	rf := &runFlags{}

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run the full pipeline for every gene row",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			meta, expr, err := flags.readInputs(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := rf.newContext(cmd.Context())
			defer cancel()
			runner, cleanup, err := rf.buildRunner(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			items, err := runner.RunBatch(ctx, meta, expr)
			if err != nil {
				return err
			}
			printBatch(cmd.OutOrStdout(), items)
			return nil
		},
	}

	rf.register(cmd)
	return cmd
}

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the effective configuration to a YAML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			path := "tumorexpr.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cfg)
		},
	})
	return cmd
}

// loadMerged reads both inputs and merges the configured gene
func loadMerged(flags *globalFlags) (*config.Config, *dataset.MergeResult, error) {
	cfg, err := flags.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	meta, expr, err := flags.readInputs(cfg)
	if err != nil {
		return nil, nil, err
	}
	params := cfg.Parameters()
	merger := dataset.NewMerger(coercer.Default(), dataset.MergeOptions{
		GeneLabel:   params.GeneLabel,
		ValueColumn: params.ValueColumn,
	})
	merged, err := merger.Merge(meta, expr, params.MetadataColumns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, merged, nil
}

func writeRecords(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}

func printWarnings(w io.Writer, warnings []domainDataset.Warning) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "warning [%s]: %s\n", warn.Kind, warn.Message)
	}
}

func printSummaries(w io.Writer, summaries []run.Summary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tGENE\tSAMPLES\tOMNIBUS_P\tHAZARD_RATIO")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", s.ID, s.Gene, s.Samples,
			formatStat(float64(s.OmnibusP), s.OmnibusP.IsMissing()),
			formatStat(float64(s.HazardRatio), s.HazardRatio.IsMissing()))
	}
	tw.Flush()
}

func printBatch(w io.Writer, items []run.BatchItem) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GENE\tSTATUS\tOMNIBUS_P\tHAZARD_RATIO\tERROR")
	failed := 0
	for _, item := range items {
		if item.Failed() {
			failed++
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t%s: %s\n", item.Gene, run.StatusFailed, item.ErrorCode, item.Error)
			continue
		}
		s := item.Report.Summarize()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", item.Gene, s.Status,
			formatStat(float64(s.OmnibusP), s.OmnibusP.IsMissing()),
			formatStat(float64(s.HazardRatio), s.HazardRatio.IsMissing()))
	}
	tw.Flush()
	fmt.Fprintf(w, "%d genes, %d failed\n", len(items), failed)
}

func formatStat(v float64, missing bool) string {
	if missing {
		return "NA"
	}
	return fmt.Sprintf("%.4g", v)
}
