package config

import (
	"os"
	"path/filepath"
	"testing"

	"tumorexpr/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"structure_color", "survival_days"}, cfg.Analysis.MetadataColumns)
	assert.Equal(t, "structure_color", cfg.Analysis.GroupColumn)
	assert.Equal(t, 0.05, cfg.Analysis.Alpha)
	assert.Equal(t, "results", cfg.Paths.OutputDir)
	assert.False(t, cfg.HasDatabase())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tumorexpr?sslmode=disable")
	t.Setenv("PORT", "9090")
	t.Setenv("ANALYSIS_ALPHA", "0.01")
	t.Setenv("ANALYSIS_METADATA_COLUMNS", "region, days")
	t.Setenv("ANALYSIS_GROUP_COLUMN", "region")
	t.Setenv("ANALYSIS_TIME_COLUMN", "days")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.HasDatabase())
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 0.01, cfg.Analysis.Alpha)
	assert.Equal(t, []string{"region", "days"}, cfg.Analysis.MetadataColumns)

	params := cfg.Parameters()
	assert.Equal(t, "region", params.GroupColumn)
	assert.NoError(t, params.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tumorexpr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
analysis:
  gene_label: EGFR
  workers: 4
paths:
  output_dir: /tmp/out
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "EGFR", cfg.Analysis.GeneLabel)
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.Equal(t, "/tmp/out", cfg.Paths.OutputDir)
	assert.Equal(t, "structure_color", cfg.Analysis.GroupColumn)
}

func TestLoadRejectsInvalidAlpha(t *testing.T) {
	t.Setenv("ANALYSIS_ALPHA", "1.5")

	_, err := Load("")
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestLoadRejectsGroupOutsideMetadata(t *testing.T) {
	t.Setenv("ANALYSIS_GROUP_COLUMN", "tissue")

	_, err := Load("")
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Analysis.GeneLabel = "PTEN"

	path := filepath.Join(t.TempDir(), "conf", "tumorexpr.yaml")
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "PTEN", loaded.Analysis.GeneLabel)
	assert.Equal(t, cfg.Analysis.MetadataColumns, loaded.Analysis.MetadataColumns)
}

func TestLoadLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Logger("Test").Level().String())

	t.Setenv("LOG_LEVEL", "chatty")
	_, err = Load("")
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.Classify(err))
}
