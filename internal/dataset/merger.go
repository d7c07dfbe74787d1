// Package dataset merges per-sample tumor metadata with a gene-expression
// matrix. Samples are aligned by position: metadata row i describes the
// sample in expression column i+1. There is no join key.
package dataset

import (
	"fmt"
	"log"

	"tumorexpr/adapters/datareadiness/coercer"
	"tumorexpr/domain/core"
	domainDataset "tumorexpr/domain/dataset"
)

// DefaultValueColumn is the name given to the expression column of the merged table
const DefaultValueColumn = "Gene"

// MergeOptions controls which gene row is merged and how it is named
type MergeOptions struct {
	GeneLabel   string // matrix row to merge; empty picks the first row
	ValueColumn string // defaults to DefaultValueColumn
}

// MergeResult contains the merged table plus every recoverable problem seen
type MergeResult struct {
	Table     *domainDataset.Table
	Gene      string
	GeneIndex int
	Warnings  []domainDataset.Warning
}

// Merger builds MergedDataset tables from raw metadata and expression tables
type Merger struct {
	coercer *coercer.TypeCoercer
	opts    MergeOptions
}

// NewMerger creates a merger. A nil coercer uses the default permissive rules.
func NewMerger(c *coercer.TypeCoercer, opts MergeOptions) *Merger {
	if c == nil {
		c = coercer.Default()
	}
	if opts.ValueColumn == "" {
		opts.ValueColumn = DefaultValueColumn
	}
	return &Merger{coercer: c, opts: opts}
}

// Merge selects columns from meta and appends the chosen gene's expression
// vector. The result has meta.RowCount() rows and len(columns)+1 columns.
func (m *Merger) Merge(meta, expr *domainDataset.RawTable, columns []string) (*MergeResult, error) {
	if err := m.validate(meta, expr, columns); err != nil {
		return nil, err
	}

	geneIndex := 0
	var warnings []domainDataset.Warning
	if m.opts.GeneLabel != "" {
		geneIndex = findGene(expr, m.opts.GeneLabel)
		if geneIndex < 0 {
			return nil, core.NewSchemaError(fmt.Sprintf("gene %q not found in expression matrix", m.opts.GeneLabel))
		}
	} else if expr.RowCount() > 1 {
		warnings = append(warnings, domainDataset.NewWarning(domainDataset.WarnExtraGenes,
			"expression matrix has %d gene rows, merging the first (%s)", expr.RowCount(), geneLabel(expr, 0)))
	}

	result, err := m.mergeRow(meta, expr, columns, geneIndex)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(warnings, result.Warnings...)
	return result, nil
}

// MergeGene merges the gene at geneIndex, zero-based over matrix data rows
func (m *Merger) MergeGene(meta, expr *domainDataset.RawTable, columns []string, geneIndex int) (*MergeResult, error) {
	if err := m.validate(meta, expr, columns); err != nil {
		return nil, err
	}
	if geneIndex < 0 || geneIndex >= expr.RowCount() {
		return nil, core.NewSchemaError(fmt.Sprintf("gene index %d out of range [0, %d)", geneIndex, expr.RowCount()))
	}
	return m.mergeRow(meta, expr, columns, geneIndex)
}

// GeneLabels lists the first-column labels of the expression matrix in order
func GeneLabels(expr *domainDataset.RawTable) []string {
	labels := make([]string, expr.RowCount())
	for i := range labels {
		labels[i] = geneLabel(expr, i)
	}
	return labels
}

func (m *Merger) validate(meta, expr *domainDataset.RawTable, columns []string) error {
	if expr.ColumnCount() < 2 {
		return core.NewSchemaError(fmt.Sprintf("expression matrix needs a label column and at least one sample column, got %d columns", expr.ColumnCount()))
	}
	if expr.RowCount() == 0 {
		return core.NewSchemaError("expression matrix has no gene rows")
	}

	var missing []string
	for _, col := range columns {
		if meta.ColumnIndex(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return core.NewMissingColumnError("metadata", missing...)
	}

	if samples := expr.ColumnCount() - 1; meta.RowCount() != samples {
		return core.NewRowCountMismatchError(meta.RowCount(), samples)
	}
	return nil
}

func (m *Merger) mergeRow(meta, expr *domainDataset.RawTable, columns []string, geneIndex int) (*MergeResult, error) {
	samples := expr.ColumnCount() - 1

	// Transposing one gene row gives a vector indexed by sample
	text := make([]string, samples)
	for s := 0; s < samples; s++ {
		text[s] = expr.Cell(geneIndex, s+1)
	}
	values, warnings := m.coercer.CoerceColumn(m.opts.ValueColumn, text)

	cols := make([]domainDataset.Column, 0, len(columns)+1)
	for _, name := range columns {
		cols = append(cols, domainDataset.NewCategoricalColumn(name, meta.ColumnText(meta.ColumnIndex(name))))
	}
	cols = append(cols, domainDataset.NewNumericColumn(m.opts.ValueColumn, values))

	table, err := domainDataset.NewTable(cols...)
	if err != nil {
		return nil, err
	}

	gene := geneLabel(expr, geneIndex)
	if len(warnings) > 0 {
		log.Printf("[Merger] %d non-numeric expression cells for gene %s treated as missing", len(warnings), gene)
	}
	log.Printf("[Merger] Merged %d samples x %d columns (gene %s)", table.RowCount(), table.ColumnCount(), gene)

	return &MergeResult{
		Table:     table,
		Gene:      gene,
		GeneIndex: geneIndex,
		Warnings:  warnings,
	}, nil
}

func findGene(expr *domainDataset.RawTable, label string) int {
	for i := 0; i < expr.RowCount(); i++ {
		if expr.Cell(i, 0) == label {
			return i
		}
	}
	return -1
}

func geneLabel(expr *domainDataset.RawTable, row int) string {
	if label := expr.Cell(row, 0); label != "" {
		return label
	}
	return fmt.Sprintf("row_%d", row)
}
