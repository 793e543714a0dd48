package config

import "time"

// Config is the root configuration for the loop runner.
type Config struct {
	Loop    LoopConfig    `mapstructure:"loop" yaml:"loop" validate:"required"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
}

// LoopConfig bounds a single orchestration run.
type LoopConfig struct {
	// MaxIterations is the ceiling on cognition invocations per run.
	MaxIterations int `mapstructure:"max_iterations" yaml:"max_iterations" validate:"min=1,max=1000"`

	// ToolTimeout bounds each tool dispatch.
	ToolTimeout time.Duration `mapstructure:"tool_timeout" yaml:"tool_timeout" validate:"min=1ms"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`

	// Format is text or json.
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}

// OutputConfig controls where the audit report is written.
type OutputConfig struct {
	// ReportPath is the file the audit report JSON is written to.
	// Empty writes the report to stdout.
	ReportPath string `mapstructure:"report_path" yaml:"report_path"`
}
