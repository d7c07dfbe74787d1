package postgres

import (
	"context"
	"os"
	"testing"

	"tumorexpr/adapters/db/postgres/migrations"
	"tumorexpr/domain/core"
	"tumorexpr/domain/dataset"
	"tumorexpr/domain/run"
	"tumorexpr/domain/stats"
	apperrors "tumorexpr/internal/errors"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *run.Report {
	meta := &dataset.RawTable{Source: "meta.csv", Header: []string{"structure_color"}}
	expr := &dataset.RawTable{Source: "expr.csv", Header: []string{"", "s1"}}
	params := run.Parameters{
		MetadataColumns: []string{"structure_color", "survival_days"},
		GroupColumn:     "structure_color",
		TimeColumn:      "survival_days",
		ValueColumn:     "Gene",
		Alpha:           0.05,
	}
	return &run.Report{
		Manifest: run.NewManifest(params, meta, expr),
		Gene:     "EGFR",
		Samples:  6,
		Cascade:  &stats.CascadeResult{Omnibus: stats.GroupTestResult{Statistic: 3.857, PValue: 0.0495}},
	}
}

func TestToRowMapsSummaryColumns(t *testing.T) {
	report := sampleReport()

	row, err := toRow(report)
	require.NoError(t, err)

	assert.Equal(t, report.ID().String(), row.ID)
	assert.Equal(t, "EGFR", row.Gene)
	assert.Equal(t, "completed", row.Status)
	assert.True(t, row.OmnibusP.Valid)
	assert.InDelta(t, 0.0495, row.OmnibusP.Float64, 1e-12)
	assert.False(t, row.HazardRatio.Valid)
	assert.Contains(t, row.Payload, `"gene":"EGFR"`)

	back := row.summary()
	assert.Equal(t, report.ID(), back.ID)
	assert.True(t, back.HazardRatio.IsMissing())
}

// Runs against a real database only when TEST_DATABASE_URL is set
func TestRunRepositoryRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping database test: TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, migrations.NewMigrator(db.DB).Up(ctx))

	repo := NewRunRepository(db)
	report := sampleReport()
	require.NoError(t, repo.Save(ctx, report))

	loaded, err := repo.GetByID(ctx, report.ID())
	require.NoError(t, err)
	assert.Equal(t, "EGFR", loaded.Gene)
	assert.Equal(t, stats.Float(0.0495), loaded.Cascade.Omnibus.PValue)

	list, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, list)

	_, err = repo.GetByID(ctx, core.NewRunID())
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(err))
}
