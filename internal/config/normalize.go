package config

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
)

// NormalizationResult captures adjustments & warnings from normalization pass.
type NormalizationResult struct{ Warnings []string }

// NormalizeConfig performs canonicalization on enumerated and bounded fields prior to default application.
// It mutates the provided config in-place and returns a result describing any coercions.
func NormalizeConfig(c *Config) (*NormalizationResult, error) {
	if c == nil {
		return nil, errors.InternalError("config nil").Build()
	}
	res := &NormalizationResult{}
	normalizeLogging(&c.Logging, res)
	normalizeMarkdown(&c.Markdown, res)
	c.Input.Include = normalizeStringSlice("input.include", c.Input.Include, res)
	c.Input.Exclude = normalizeStringSlice("input.exclude", c.Input.Exclude, res)
	c.Input.Overwrites = normalizeStringSlice("input.overwrites", c.Input.Overwrites, res)
	if c.Build.Concurrency < 0 {
		res.Warnings = append(res.Warnings, warnChanged("build.concurrency", c.Build.Concurrency, 0))
		c.Build.Concurrency = 0
	}
	return res, nil
}

func normalizeLogging(l *LoggingConfig, res *NormalizationResult) {
	if raw := string(l.Level); strings.TrimSpace(raw) != "" {
		lvl, err := logLevelNormalizer.Parse(raw)
		switch {
		case err != nil:
			res.Warnings = append(res.Warnings, warnUnknown("logging.level", raw, string(LogLevelInfo)))
			l.Level = LogLevelInfo
		case lvl != l.Level:
			res.Warnings = append(res.Warnings, warnChanged("logging.level", l.Level, lvl))
			l.Level = lvl
		}
	}
	if raw := string(l.Format); strings.TrimSpace(raw) != "" {
		f, err := logFormatNormalizer.Parse(raw)
		switch {
		case err != nil:
			res.Warnings = append(res.Warnings, warnUnknown("logging.format", raw, string(LogFormatText)))
			l.Format = LogFormatText
		case f != l.Format:
			res.Warnings = append(res.Warnings, warnChanged("logging.format", l.Format, f))
			l.Format = f
		}
	}
}

func normalizeMarkdown(m *MarkdownConfig, res *NormalizationResult) {
	m.Extensions = normalizeStringSlice("markdown.extensions", m.Extensions, res)
	for i, ext := range m.Extensions {
		if lower := strings.ToLower(ext); lower != ext {
			m.Extensions[i] = lower
		}
	}
	if m.MaxIncludeDepth < 0 {
		res.Warnings = append(res.Warnings, warnChanged("markdown.max_include_depth", m.MaxIncludeDepth, 0))
		m.MaxIncludeDepth = 0
	}
}

// normalizeStringSlice trims entries and drops empty and duplicate ones.
func normalizeStringSlice(label string, in []string, res *NormalizationResult) []string {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		t := strings.TrimSpace(v)
		if t == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("dropped empty entry from %s", label))
			continue
		}
		if seen[t] {
			res.Warnings = append(res.Warnings, fmt.Sprintf("dropped duplicate %s entry '%s'", label, t))
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func warnChanged(field string, from, to any) string {
	return fmt.Sprintf("normalized %s from '%v' to '%v'", field, from, to)
}

func warnUnknown(field, value, def string) string {
	return fmt.Sprintf("unknown %s '%s', defaulting to %s", field, value, def)
}
