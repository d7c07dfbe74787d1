package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"tumorexpr/adapters/excel"
	domainDataset "tumorexpr/domain/dataset"
	"tumorexpr/internal/config"
	apperrors "tumorexpr/internal/errors"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	cfgFile    string
	metadata   string
	expression string
	sheet      string
	gene       string
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", apperrors.Classify(err), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "tumorexpr",
		Short:         "Gene expression by tumor region: group comparison and survival analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.cfgFile, "config", "", "config file (default ./tumorexpr.yaml)")
	pf.StringVar(&flags.metadata, "metadata", "", "metadata table (CSV or XLSX)")
	pf.StringVar(&flags.expression, "expression", "", "expression matrix (CSV or XLSX)")
	pf.StringVar(&flags.sheet, "sheet", "", "worksheet for XLSX input (overrides config)")
	pf.StringVar(&flags.gene, "gene", "", "gene row to analyze (default: first row)")

	rootCmd.AddCommand(
		newMergeCmd(flags),
		newRegionsCmd(),
		newGroupsCmd(flags),
		newSurvivalCmd(flags),
		newRunCmd(flags),
		newBatchCmd(flags),
		newConfigCmd(flags),
	)
	return rootCmd
}

// loadConfig reads the config and applies flag overrides
func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.cfgFile)
	if err != nil {
		return nil, err
	}
	if f.sheet != "" {
		cfg.Paths.Sheet = f.sheet
	}
	if f.gene != "" {
		cfg.Analysis.GeneLabel = f.gene
	}
	return cfg, nil
}

// readInputs reads the metadata and expression tables named by the flags
func (f *globalFlags) readInputs(cfg *config.Config) (*domainDataset.RawTable, *domainDataset.RawTable, error) {
	if f.metadata == "" || f.expression == "" {
		return nil, nil, apperrors.InvalidInput("--metadata and --expression are required")
	}
	meta, err := excel.NewDataReader(f.metadata).WithSheet(cfg.Paths.Sheet).ReadTable()
	if err != nil {
		return nil, nil, err
	}
	expr, err := excel.NewDataReader(f.expression).WithSheet(cfg.Paths.Sheet).ReadTable()
	if err != nil {
		return nil, nil, err
	}
	return meta, expr, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
