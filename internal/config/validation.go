package config

import (
	"time"

	"git.home.luguber.info/inful/docschema/internal/foundation"
)

var configValidator = foundation.NewValidatorChain[*Config](
	foundation.Field(func(c *Config) string { return c.Input.Root }, foundation.NotEmpty("input.root")),
	foundation.Field(func(c *Config) string { return c.Schemas.Directory }, foundation.NotEmpty("schemas.directory")),
	foundation.Field(func(c *Config) string { return c.Output.Directory }, foundation.NotEmpty("output.directory")),
	foundation.Field(func(c *Config) int { return c.Build.Concurrency }, foundation.Positive("build.concurrency")),
	foundation.Field(func(c *Config) int { return c.Markdown.MaxIncludeDepth }, foundation.Positive("markdown.max_include_depth")),
	foundation.Field(func(c *Config) []string { return c.Input.Include }, foundation.Each[string]("input.include", validGlob)),
	foundation.Field(func(c *Config) []string { return c.Input.Exclude }, foundation.Each[string]("input.exclude", validGlob)),
	foundation.Field(func(c *Config) []string { return c.Input.Overwrites }, foundation.Each[string]("input.overwrites", validGlob)),
	foundation.Field(func(c *Config) LogLevel { return c.Logging.Level },
		foundation.OneOf("logging.level", []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError})),
	foundation.Field(func(c *Config) LogFormat { return c.Logging.Format },
		foundation.OneOf("logging.format", []LogFormat{LogFormatText, LogFormatJSON})),
	validateDebounce,
	validateOutputSeparation,
)

// ValidateConfig validates the complete configuration structure.
func ValidateConfig(cfg *Config) error {
	return configValidator.Validate(cfg).ToError()
}

func validGlob(pattern string) foundation.ValidationResult {
	if _, err := globSyntax(pattern); err != nil {
		return foundation.Invalid(foundation.NewValidationError("", "glob", err.Error()))
	}
	return foundation.Valid()
}

func validateDebounce(c *Config) foundation.ValidationResult {
	if c.Build.WatchDebounce == "" {
		return foundation.Valid()
	}
	if d, err := time.ParseDuration(c.Build.WatchDebounce); err != nil || d <= 0 {
		return foundation.Invalid(foundation.NewValidationError("build.watch_debounce", "duration",
			"field must be a positive duration such as 500ms"))
	}
	return foundation.Valid()
}

// validateOutputSeparation rejects an output directory equal to the input
// root: cleaning it would delete the sources.
func validateOutputSeparation(c *Config) foundation.ValidationResult {
	if c.Output.Clean && samePath(c.Output.Directory, c.Input.Root) {
		return foundation.Invalid(foundation.NewValidationError("output.directory", "overlap",
			"output directory must differ from input root when clean is enabled"))
	}
	return foundation.Valid()
}
