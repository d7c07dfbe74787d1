package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tumorexpr/domain/run"
	"tumorexpr/internal"
	"tumorexpr/internal/errors"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Analysis  AnalysisConfig  `mapstructure:"analysis" yaml:"analysis"`
	Paths     PathConfig      `mapstructure:"paths" yaml:"paths"`
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// DatabaseConfig holds database connection settings. An empty URL disables
// the result store.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" yaml:"url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port        string `mapstructure:"port" yaml:"port"`
	GinMode     string `mapstructure:"gin_mode" yaml:"gin_mode"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

// AnalysisConfig holds the default run parameters
type AnalysisConfig struct {
	MetadataColumns []string `mapstructure:"metadata_columns" yaml:"metadata_columns"`
	GroupColumn     string   `mapstructure:"group_column" yaml:"group_column"`
	TimeColumn      string   `mapstructure:"time_column" yaml:"time_column"`
	ValueColumn     string   `mapstructure:"value_column" yaml:"value_column"`
	GeneLabel       string   `mapstructure:"gene_label" yaml:"gene_label"`
	Alpha           float64  `mapstructure:"alpha" yaml:"alpha"`
	MinGroupSize    int      `mapstructure:"min_group_size" yaml:"min_group_size"`
	Workers         int      `mapstructure:"workers" yaml:"workers"`
}

// PathConfig holds file system paths
type PathConfig struct {
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
	Sheet     string `mapstructure:"sheet" yaml:"sheet"`
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string `mapstructure:"port" yaml:"port"`
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

// LoggingConfig holds log verbosity: error, warn, info or debug
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// envBindings maps config keys to the environment variables that override them
var envBindings = map[string]string{
	"database.url":              "DATABASE_URL",
	"database.max_open_conns":   "DB_MAX_OPEN_CONNS",
	"server.port":               "PORT",
	"server.gin_mode":           "GIN_MODE",
	"server.max_upload_mb":      "MAX_UPLOAD_MB",
	"analysis.metadata_columns": "ANALYSIS_METADATA_COLUMNS",
	"analysis.group_column":     "ANALYSIS_GROUP_COLUMN",
	"analysis.time_column":      "ANALYSIS_TIME_COLUMN",
	"analysis.value_column":     "ANALYSIS_VALUE_COLUMN",
	"analysis.gene_label":       "ANALYSIS_GENE_LABEL",
	"analysis.alpha":            "ANALYSIS_ALPHA",
	"analysis.min_group_size":   "ANALYSIS_MIN_GROUP_SIZE",
	"analysis.workers":          "ANALYSIS_WORKERS",
	"paths.output_dir":          "OUTPUT_DIR",
	"paths.sheet":               "EXCEL_SHEET",
	"profiling.port":            "PPROF_PORT",
	"profiling.enabled":         "PPROF_ENABLED",
	"logging.level":             "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	params := run.DefaultParameters()

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.gin_mode", "debug")
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("analysis.metadata_columns", params.MetadataColumns)
	v.SetDefault("analysis.group_column", params.GroupColumn)
	v.SetDefault("analysis.time_column", params.TimeColumn)
	v.SetDefault("analysis.value_column", params.ValueColumn)
	v.SetDefault("analysis.gene_label", "")
	v.SetDefault("analysis.alpha", params.Alpha)
	v.SetDefault("analysis.min_group_size", 2)
	v.SetDefault("analysis.workers", 0)
	v.SetDefault("paths.output_dir", "results")
	v.SetDefault("paths.sheet", "Sheet1")
	v.SetDefault("profiling.port", "6060")
	v.SetDefault("profiling.enabled", false)
	v.SetDefault("logging.level", "info")
}

// Load reads configuration from defaults, an optional YAML file, and
// environment variables, in increasing precedence, and validates it.
// An empty cfgFile looks for tumorexpr.yaml in the working directory.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.Wrap(err, "failed to bind environment")
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), fmt.Sprintf("failed to read config file %s", cfgFile))
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("tumorexpr")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to read config file")
			}
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to decode configuration")
	}
	config.Analysis.MetadataColumns = splitColumns(config.Analysis.MetadataColumns)

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Save writes the configuration as YAML, creating the parent directory
func Save(c *Config, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.IOError(dir, err)
		}
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.IOError(path, err)
	}
	return nil
}

// Parameters returns the run parameters described by the analysis section
func (c *Config) Parameters() run.Parameters {
	return run.Parameters{
		MetadataColumns: append([]string(nil), c.Analysis.MetadataColumns...),
		GroupColumn:     c.Analysis.GroupColumn,
		TimeColumn:      c.Analysis.TimeColumn,
		ValueColumn:     c.Analysis.ValueColumn,
		GeneLabel:       c.Analysis.GeneLabel,
		Alpha:           c.Analysis.Alpha,
	}
}

// Logger returns a logger for component at the configured level
func (c *Config) Logger(component string) *internal.Logger {
	level, _ := internal.ParseLevel(c.Logging.Level)
	return internal.NewLogger(level, component)
}

// HasDatabase reports whether the result store is configured
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// splitColumns accepts both list entries and comma-separated strings
func splitColumns(cols []string) []string {
	var out []string
	for _, c := range cols {
		for _, part := range strings.Split(c, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	if config.Server.MaxUploadMB <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	if config.Analysis.Alpha <= 0 || config.Analysis.Alpha >= 1 {
		return errors.ConfigInvalid(fmt.Sprintf("ANALYSIS_ALPHA must be in (0, 1), got %g", config.Analysis.Alpha))
	}
	if config.Analysis.Workers < 0 {
		return errors.ConfigInvalid("ANALYSIS_WORKERS cannot be negative")
	}
	if _, ok := internal.ParseLevel(config.Logging.Level); !ok {
		return errors.ConfigInvalid(fmt.Sprintf("LOG_LEVEL %q is not one of error, warn, info, debug", config.Logging.Level))
	}
	if err := config.Parameters().Validate(); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	return nil
}
