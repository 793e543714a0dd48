package config

import "time"

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() *Config {
	return &Config{
		Loop: LoopConfig{
			MaxIterations: 20,
			ToolTimeout:   30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Output: OutputConfig{
			ReportPath: "execution_audit.json",
		},
	}
}

// applyDefaults fills zero-valued fields from the default configuration.
func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Loop.MaxIterations == 0 {
		cfg.Loop.MaxIterations = defaults.Loop.MaxIterations
	}
	if cfg.Loop.ToolTimeout == 0 {
		cfg.Loop.ToolTimeout = defaults.Loop.ToolTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
	if cfg.Output.ReportPath == "" {
		cfg.Output.ReportPath = defaults.Output.ReportPath
	}
}
