package config

import (
	"runtime"
	"time"
)

const (
	defaultInputRoot       = "."
	defaultSchemaDir       = "schemas"
	defaultOutputDir       = "_site"
	defaultMaxIncludeDepth = 8
	defaultWatchDebounce   = 500 * time.Millisecond
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// InputDefaultApplier handles Input and Schemas defaults.
type InputDefaultApplier struct{}

func (InputDefaultApplier) Domain() string { return "input" }

func (InputDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Input.Root == "" {
		cfg.Input.Root = defaultInputRoot
	}
	if cfg.Schemas.Directory == "" {
		cfg.Schemas.Directory = defaultSchemaDir
	}
	return nil
}

// OutputDefaultApplier handles Output defaults.
type OutputDefaultApplier struct{}

func (OutputDefaultApplier) Domain() string { return "output" }

func (OutputDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = defaultOutputDir
	}
	return nil
}

// MarkdownDefaultApplier handles Markdown defaults.
type MarkdownDefaultApplier struct{}

func (MarkdownDefaultApplier) Domain() string { return "markdown" }

func (MarkdownDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Markdown.MaxIncludeDepth == 0 {
		cfg.Markdown.MaxIncludeDepth = defaultMaxIncludeDepth
	}
	return nil
}

// BuildDefaultApplier handles Build defaults.
type BuildDefaultApplier struct{}

func (BuildDefaultApplier) Domain() string { return "build" }

func (BuildDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Build.Concurrency <= 0 {
		cfg.Build.Concurrency = runtime.GOMAXPROCS(0)
	}
	if cfg.Build.WatchDebounce == "" {
		cfg.Build.WatchDebounce = defaultWatchDebounce.String()
	}
	return nil
}

// LoggingDefaultApplier handles Logging defaults.
type LoggingDefaultApplier struct{}

func (LoggingDefaultApplier) Domain() string { return "logging" }

func (LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
	return nil
}

// CompositeDefaultApplier runs domain appliers in order.
type CompositeDefaultApplier struct {
	appliers []DefaultApplier
}

// NewDefaultApplier returns the applier for every configuration domain.
func NewDefaultApplier() *CompositeDefaultApplier {
	return &CompositeDefaultApplier{appliers: []DefaultApplier{
		InputDefaultApplier{},
		OutputDefaultApplier{},
		MarkdownDefaultApplier{},
		BuildDefaultApplier{},
		LoggingDefaultApplier{},
	}}
}

// ApplyDefaults applies every domain's defaults.
func (c *CompositeDefaultApplier) ApplyDefaults(cfg *Config) error {
	for _, a := range c.appliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

// Defaults returns a configuration with every default applied.
func Defaults() *Config {
	cfg := &Config{Version: CurrentVersion}
	_ = NewDefaultApplier().ApplyDefaults(cfg)
	return cfg
}
