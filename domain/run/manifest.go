package run

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"tumorexpr/domain/core"
	"tumorexpr/domain/dataset"
)

// Parameters names the columns and thresholds a run was executed with
type Parameters struct {
	MetadataColumns []string `json:"metadata_columns"`
	GroupColumn     string   `json:"group_column"`
	TimeColumn      string   `json:"time_column"`
	ValueColumn     string   `json:"value_column"`
	GeneLabel       string   `json:"gene_label,omitempty"`
	Alpha           float64  `json:"alpha"`
}

// DefaultParameters is the standard tumor-region analysis: group by
// structure_color and stratify survival_days on the merged gene column
func DefaultParameters() Parameters {
	return Parameters{
		MetadataColumns: []string{"structure_color", "survival_days"},
		GroupColumn:     "structure_color",
		TimeColumn:      "survival_days",
		ValueColumn:     "Gene",
		Alpha:           0.05,
	}
}

// Validate checks that the parameters can drive a run
func (p Parameters) Validate() error {
	if p.GroupColumn == "" {
		return core.NewValidationError("group_column", "cannot be empty")
	}
	if p.TimeColumn == "" {
		return core.NewValidationError("time_column", "cannot be empty")
	}
	if p.ValueColumn == "" {
		return core.NewValidationError("value_column", "cannot be empty")
	}
	if p.Alpha <= 0 || p.Alpha >= 1 {
		return core.NewValidationError("alpha", fmt.Sprintf("%g is outside (0, 1)", p.Alpha))
	}
	if !contains(p.MetadataColumns, p.GroupColumn) {
		return core.NewValidationError("metadata_columns", fmt.Sprintf("must include group column %s", p.GroupColumn))
	}
	if !contains(p.MetadataColumns, p.TimeColumn) {
		return core.NewValidationError("metadata_columns", fmt.Sprintf("must include time column %s", p.TimeColumn))
	}
	return nil
}

// Fingerprint identifies a run's inputs: same tables and parameters, same
// fingerprint
type Fingerprint string

// Manifest records what a run was asked to do, before any stage executes
type Manifest struct {
	RunID       core.RunID     `json:"run_id"`
	Parameters  Parameters     `json:"parameters"`
	Fingerprint Fingerprint    `json:"fingerprint"`
	Metadata    string         `json:"metadata_source"`
	Expression  string         `json:"expression_source"`
	CreatedAt   core.Timestamp `json:"created_at"`
}

// NewManifest creates a manifest for a fresh run over the given tables
func NewManifest(params Parameters, meta, expr *dataset.RawTable) *Manifest {
	return &Manifest{
		RunID:       core.NewRunID(),
		Parameters:  params,
		Fingerprint: NewFingerprint(params, meta, expr),
		Metadata:    meta.Source,
		Expression:  expr.Source,
		CreatedAt:   core.Now(),
	}
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewValidationError("run_manifest", "run_id cannot be empty")
	}
	if m.Fingerprint == "" {
		return core.NewValidationError("run_manifest", "fingerprint cannot be empty")
	}
	return m.Parameters.Validate()
}

// NewFingerprint hashes parameters and table contents deterministically
func NewFingerprint(params Parameters, meta, expr *dataset.RawTable) Fingerprint {
	h := sha256.New()
	fmt.Fprintf(h, "columns:%s|group:%s|time:%s|value:%s|gene:%s|alpha:%g\n",
		strings.Join(params.MetadataColumns, ","), params.GroupColumn, params.TimeColumn,
		params.ValueColumn, params.GeneLabel, params.Alpha)
	writeTable(h, meta)
	writeTable(h, expr)
	return Fingerprint(fmt.Sprintf("%x", h.Sum(nil)))
}

func writeTable(w io.Writer, t *dataset.RawTable) {
	if t == nil {
		io.WriteString(w, "<nil>\n")
		return
	}
	fmt.Fprintf(w, "%d|%s\n", len(t.Header), strings.Join(t.Header, "\x1f"))
	for _, row := range t.Rows {
		fmt.Fprintf(w, "%d|%s\n", len(row), strings.Join(row, "\x1f"))
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
