// Package diagnostics collects non-fatal issues raised while interpreting and
// merging documents. Every diagnostic names the uid, tree path and source
// file it concerns.
package diagnostics

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"git.home.luguber.info/inful/docschema/internal/logfields"
)

// Code is a stable, machine-parseable identifier. Codes are append-only.
type Code string

const (
	CodeOverwriteItemUnmatched Code = "OVERWRITE_ITEM_UNMATCHED"
	CodeFragmentNotEditable    Code = "FRAGMENT_NOT_EDITABLE"
	CodeFragmentNotMarkdown    Code = "FRAGMENT_NOT_MARKDOWN"
	CodeXrefPropertyNotString  Code = "XREF_PROPERTY_NOT_STRING"
	CodeXrefResolverUnknown    Code = "XREF_RESOLVER_UNKNOWN"
	CodeUIDNotString           Code = "UID_NOT_STRING"
	CodeIncludeNotFound        Code = "INCLUDE_NOT_FOUND"
	CodeFragmentUnused         Code = "FRAGMENT_UNUSED"
	CodeDocumentFailed         Code = "DOCUMENT_FAILED"
)

// Severity of a diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is a single reported issue.
type Diagnostic struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	UID      string   `json:"uid,omitempty"`
	Path     string   `json:"path,omitempty"`
	File     string   `json:"file,omitempty"`
}

// Sink receives diagnostics.
type Sink interface {
	Report(d Diagnostic)
}

// Discard drops every diagnostic.
var Discard Sink = discard{}

type discard struct{}

func (discard) Report(Diagnostic) {}

// Collector is a Sink that keeps every diagnostic and logs it. It is safe
// for concurrent use.
type Collector struct {
	mu     sync.Mutex
	items  []Diagnostic
	logger *slog.Logger
}

// NewCollector returns a collector logging to logger (slog.Default when nil).
func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{logger: logger}
}

// Report records d and logs it at warn or error level.
func (c *Collector) Report(d Diagnostic) {
	if d.Severity == "" {
		d.Severity = SeverityWarning
	}
	c.mu.Lock()
	c.items = append(c.items, d)
	c.mu.Unlock()

	level := slog.LevelWarn
	if d.Severity == SeverityError {
		level = slog.LevelError
	}
	attrs := []slog.Attr{logfields.Code(string(d.Code))}
	if d.UID != "" {
		attrs = append(attrs, logfields.UID(d.UID))
	}
	if d.Path != "" {
		attrs = append(attrs, logfields.Path(d.Path))
	}
	if d.File != "" {
		attrs = append(attrs, logfields.File(d.File))
	}
	c.logger.LogAttrs(context.Background(), level, d.Message, attrs...)
}

// Items returns a copy of the recorded diagnostics ordered by file, path and code.
func (c *Collector) Items() []Diagnostic {
	c.mu.Lock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	c.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// Count returns how many diagnostics carry code.
func (c *Collector) Count(code Code) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.items {
		if d.Code == code {
			n++
		}
	}
	return n
}

// Len returns the number of recorded diagnostics.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(d Diagnostic)

// Report calls f(d).
func (f SinkFunc) Report(d Diagnostic) { f(d) }

// Tee forwards every diagnostic to all sinks.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(d Diagnostic) {
		for _, s := range sinks {
			s.Report(d)
		}
	})
}
