package run

import (
	"tumorexpr/domain/core"
	"tumorexpr/domain/dataset"
	"tumorexpr/domain/stats"
)

// Status is the outcome of a run
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Report is everything one run produced. The merged table is kept in memory
// for artifact writers and is not part of the JSON payload.
type Report struct {
	Manifest    *Manifest                   `json:"manifest"`
	Gene        string                      `json:"gene"`
	GeneIndex   int                         `json:"gene_index"`
	Samples     int                         `json:"samples"`
	Merged      *dataset.Table              `json:"-"`
	Summary     stats.SummaryStatistics     `json:"summary"`
	Cascade     *stats.CascadeResult        `json:"cascade"`
	Anova       *stats.AnovaTable           `json:"anova,omitempty"`
	Survival    *stats.StratificationResult `json:"survival"`
	Continuous  *stats.ContinuousFit        `json:"continuous,omitempty"`
	Annotations []stats.Annotation          `json:"annotations"`
	Warnings    []dataset.Warning           `json:"warnings,omitempty"`
}

// ID returns the run identifier
func (r *Report) ID() core.RunID {
	if r.Manifest == nil {
		return ""
	}
	return r.Manifest.RunID
}

// Summary is the listing view of a stored run
type Summary struct {
	ID          core.RunID     `json:"id"`
	Gene        string         `json:"gene"`
	Status      Status         `json:"status"`
	Samples     int            `json:"samples"`
	OmnibusP    stats.Float    `json:"omnibus_p"`
	HazardRatio stats.Float    `json:"hazard_ratio"`
	Fingerprint Fingerprint    `json:"fingerprint"`
	CreatedAt   core.Timestamp `json:"created_at"`
}

// Summarize builds the listing view of a report
func (r *Report) Summarize() Summary {
	s := Summary{
		ID:          r.ID(),
		Gene:        r.Gene,
		Status:      StatusCompleted,
		Samples:     r.Samples,
		OmnibusP:    stats.NaN(),
		HazardRatio: stats.NaN(),
	}
	if r.Manifest != nil {
		s.Fingerprint = r.Manifest.Fingerprint
		s.CreatedAt = r.Manifest.CreatedAt
	}
	if r.Cascade != nil {
		s.OmnibusP = r.Cascade.Omnibus.PValue
	}
	if r.Survival != nil {
		s.HazardRatio = r.Survival.Model.HazardRatio
	}
	return s
}

// BatchItem is the outcome of one gene in a batch run. Exactly one of Report
// and Error is set.
type BatchItem struct {
	GeneIndex int     `json:"gene_index"`
	Gene      string  `json:"gene"`
	Report    *Report `json:"report,omitempty"`
	Error     string  `json:"error,omitempty"`
	ErrorCode string  `json:"error_code,omitempty"`
}

// Failed reports whether the gene's run returned an error
func (b BatchItem) Failed() bool {
	return b.Error != ""
}
