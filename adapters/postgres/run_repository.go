package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"tumorexpr/domain/core"
	"tumorexpr/domain/run"
	"tumorexpr/domain/stats"
	apperrors "tumorexpr/internal/errors"
	"tumorexpr/ports"

	"github.com/jmoiron/sqlx"
)

// runRepository implements the RunRepository interface
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &runRepository{db: db}
}

// runRow mirrors the analysis_runs table
type runRow struct {
	ID          string          `db:"id"`
	Fingerprint string          `db:"fingerprint"`
	Gene        string          `db:"gene"`
	Status      string          `db:"status"`
	Samples     int             `db:"samples"`
	OmnibusP    sql.NullFloat64 `db:"omnibus_p"`
	HazardRatio sql.NullFloat64 `db:"hazard_ratio"`
	Payload     string          `db:"payload"`
	CreatedAt   time.Time       `db:"created_at"`
}

func toRow(report *run.Report) (*runRow, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	summary := report.Summarize()

	createdAt := summary.CreatedAt.Time()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &runRow{
		ID:          summary.ID.String(),
		Fingerprint: string(summary.Fingerprint),
		Gene:        summary.Gene,
		Status:      string(summary.Status),
		Samples:     summary.Samples,
		OmnibusP:    nullFloat(summary.OmnibusP),
		HazardRatio: nullFloat(summary.HazardRatio),
		Payload:     string(payload),
		CreatedAt:   createdAt,
	}, nil
}

func (r *runRow) summary() run.Summary {
	return run.Summary{
		ID:          core.RunID(r.ID),
		Gene:        r.Gene,
		Status:      run.Status(r.Status),
		Samples:     r.Samples,
		OmnibusP:    fromNull(r.OmnibusP),
		HazardRatio: fromNull(r.HazardRatio),
		Fingerprint: run.Fingerprint(r.Fingerprint),
		CreatedAt:   core.NewTimestamp(r.CreatedAt),
	}
}

func nullFloat(f stats.Float) sql.NullFloat64 {
	if f.IsMissing() {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: float64(f), Valid: true}
}

func fromNull(n sql.NullFloat64) stats.Float {
	if !n.Valid {
		return stats.Float(math.NaN())
	}
	return stats.Float(n.Float64)
}

// Save inserts a completed run, replacing any previous row with the same ID
func (r *runRepository) Save(ctx context.Context, report *run.Report) error {
	row, err := toRow(report)
	if err != nil {
		return err
	}

	query := `INSERT INTO analysis_runs (
		id, fingerprint, gene, status, samples, omnibus_p, hazard_ratio, payload, created_at
	) VALUES (
		:id, :fingerprint, :gene, :status, :samples, :omnibus_p, :hazard_ratio, :payload, :created_at
	)
	ON CONFLICT (id) DO UPDATE SET
		status = EXCLUDED.status,
		payload = EXCLUDED.payload,
		omnibus_p = EXCLUDED.omnibus_p,
		hazard_ratio = EXCLUDED.hazard_ratio`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return apperrors.Wrap(apperrors.DatabaseError(err.Error()), "failed to save analysis run")
	}
	return nil
}

// GetByID loads a stored report. The merged table is not stored.
func (r *runRepository) GetByID(ctx context.Context, id core.RunID) (*run.Report, error) {
	var payload []byte
	err := r.db.QueryRowxContext(ctx, `SELECT payload FROM analysis_runs WHERE id = $1`, id.String()).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound(fmt.Sprintf("analysis run %s", id))
		}
		return nil, apperrors.Wrap(apperrors.DatabaseError(err.Error()), "failed to get analysis run")
	}

	var report run.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// List returns run summaries, newest first
func (r *runRepository) List(ctx context.Context, limit, offset int) ([]run.Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rows []runRow
	query := `SELECT id, fingerprint, gene, status, samples, omnibus_p, hazard_ratio, created_at
		FROM analysis_runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, apperrors.Wrap(apperrors.DatabaseError(err.Error()), "failed to list analysis runs")
	}

	summaries := make([]run.Summary, len(rows))
	for i := range rows {
		summaries[i] = rows[i].summary()
	}
	return summaries, nil
}
