package pipeline

import (
	"tumorexpr/internal/annotation"
	"tumorexpr/internal/config"
)

// OptionsFromConfig builds runner options from the analysis section
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.Parameters = cfg.Parameters()
	opts.MinGroupSize = cfg.Analysis.MinGroupSize
	if cfg.Analysis.Workers > 0 {
		opts.Workers = cfg.Analysis.Workers
	}
	opts.Annotation = annotation.DefaultOptions()
	opts.Logger = cfg.Logger("Runner")
	return opts
}
