package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/docschema/internal/config"
	"git.home.luguber.info/inful/docschema/internal/diagnostics"
)

// BuildService is the canonical interface for executing builds.
type BuildService interface {
	// Run executes a complete build. Problems confined to single documents
	// are reported in the result; the error is reserved for failures that
	// stop the whole build.
	Run(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// BuildRequest contains all inputs required to execute a build.
type BuildRequest struct {
	// Config is the loaded configuration for this build.
	Config *config.Config

	// Options provides optional build behavior modifiers.
	Options BuildOptions
}

// BuildOptions provides optional configuration for build behavior.
type BuildOptions struct {
	// DryRun interprets and reconciles every document without writing
	// outputs or persisting cross references.
	DryRun bool

	// Concurrency overrides build.concurrency when positive.
	Concurrency int
}

// BuildResult contains the outcome of a build execution.
type BuildResult struct {
	// BuildID identifies the build in logs and in the xref store.
	BuildID string

	// Status indicates overall build outcome.
	Status BuildStatus

	// OutputPath is the output directory.
	OutputPath string

	// Documents is the number of content and conceptual documents loaded.
	Documents int

	// Overwrites is the number of overwrite documents loaded.
	Overwrites int

	// OverwritesApplied counts the overwrite entries merged into documents.
	OverwritesApplied int

	// Failures holds the error of every document that produced no output,
	// keyed by document key.
	Failures map[string]error

	// Diagnostics are the warnings and document errors reported.
	Diagnostics []diagnostics.Diagnostic

	// Written lists the output files relative to OutputPath.
	Written []string

	// Duration is the total build execution time.
	Duration time.Duration

	// StartTime is when the build started.
	StartTime time.Time

	// EndTime is when the build completed.
	EndTime time.Time
}

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	// BuildStatusSuccess indicates every document built without diagnostics.
	BuildStatusSuccess BuildStatus = "success"

	// BuildStatusWarning indicates every document built but diagnostics were reported.
	BuildStatusWarning BuildStatus = "warning"

	// BuildStatusFailed indicates a document failed or the build stopped.
	BuildStatusFailed BuildStatus = "failed"

	// BuildStatusCancelled indicates the build was cancelled.
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsTerminal returns true if the status represents a final state.
func (s BuildStatus) IsTerminal() bool {
	return s == BuildStatusSuccess || s == BuildStatusWarning ||
		s == BuildStatusFailed || s == BuildStatusCancelled
}

// IsSuccess returns true if the build produced every output.
func (s BuildStatus) IsSuccess() bool {
	return s == BuildStatusSuccess || s == BuildStatusWarning
}
