// Package config loads the docschema build configuration.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
)

// CurrentVersion is the configuration format this build understands.
const CurrentVersion = "1.0"

// Config is the complete build configuration.
type Config struct {
	Version  string         `yaml:"version"`
	Input    InputConfig    `yaml:"input"`
	Schemas  SchemasConfig  `yaml:"schemas"`
	Output   OutputConfig   `yaml:"output"`
	Markdown MarkdownConfig `yaml:"markdown"`
	Build    BuildConfig    `yaml:"build"`
	Store    StoreConfig    `yaml:"store"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InputConfig selects the documents of a build.
type InputConfig struct {
	Root    string   `yaml:"root"`
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
	// Overwrites are globs selecting the markdown files that are overwrite documents.
	Overwrites []string `yaml:"overwrites,omitempty"`
}

// SchemasConfig locates the document schemas.
type SchemasConfig struct {
	Directory string `yaml:"directory"`
}

// OutputConfig represents output configuration
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Clean     bool   `yaml:"clean"` // Clean output directory before build
}

// MarkdownConfig configures the markdown renderer.
type MarkdownConfig struct {
	Extensions []string `yaml:"extensions,omitempty"`
	Unsafe     bool     `yaml:"unsafe,omitempty"`
	// DeferRendering renders markdown written in base documents after
	// overwrites were merged, so overwritten text is never rendered.
	DeferRendering  *bool `yaml:"defer_rendering,omitempty"`
	MaxIncludeDepth int   `yaml:"max_include_depth,omitempty"`
}

// Deferred reports whether base document markdown is rendered after reconciliation.
func (m MarkdownConfig) Deferred() bool {
	return m.DeferRendering == nil || *m.DeferRendering
}

// BuildConfig holds build tuning knobs.
type BuildConfig struct {
	Concurrency int `yaml:"concurrency,omitempty"`
	// WatchDebounce is the quiet period before the watch command rebuilds.
	WatchDebounce string `yaml:"watch_debounce,omitempty"`
	// FailOnWarnings turns a build with diagnostics into a failed build.
	FailOnWarnings bool `yaml:"fail_on_warnings,omitempty"`
}

// Debounce returns WatchDebounce as a duration.
func (b BuildConfig) Debounce() time.Duration {
	d, err := time.ParseDuration(b.WatchDebounce)
	if err != nil || d <= 0 {
		return defaultWatchDebounce
	}
	return d
}

// StoreConfig configures the cross-reference database. An empty path
// disables persistence.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"`
}

// MetricsConfig configures metrics export. An empty textfile path
// disables the export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads, normalizes, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", path).
				UserAction().
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read config file").
			WithContext("path", path).
			Build()
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.Resolve(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes configuration YAML. ${VAR} references are expanded from
// the environment first.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").
			Build()
	}
	if cfg.Version != CurrentVersion {
		return nil, errors.ConfigError("unsupported configuration version").
			WithContext("version", cfg.Version).
			WithContext("expected", CurrentVersion).
			Build()
	}

	if nres, nerr := NormalizeConfig(&cfg); nerr != nil {
		return nil, nerr
	} else if len(nres.Warnings) > 0 {
		for _, w := range nres.Warnings {
			slog.Warn("Config normalization", "detail", w)
		}
	}
	if err := NewDefaultApplier().ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			UserAction().
			Build()
	}

	deferred := true
	example := Config{
		Version: CurrentVersion,
		Input: InputConfig{
			Root:       "./docs",
			Exclude:    []string{"**/_*"},
			Overwrites: []string{"overwrites/**/*.md"},
		},
		Schemas: SchemasConfig{Directory: "./schemas"},
		Output:  OutputConfig{Directory: "./_site", Clean: true},
		Markdown: MarkdownConfig{
			Extensions:      []string{"gfm", "footnote"},
			DeferRendering:  &deferred,
			MaxIncludeDepth: 8,
		},
		Build:   BuildConfig{Concurrency: 4, WatchDebounce: "500ms"},
		Store:   StoreConfig{Path: "./.docschema/xref.db"},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}
	data, err := yaml.Marshal(&example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal example config").Build()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", path).
			Build()
	}
	return nil
}
