// Package commands implements the docschema command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docschema/internal/build"
	"git.home.luguber.info/inful/docschema/internal/config"
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
	"git.home.luguber.info/inful/docschema/internal/logfields"
)

// Global carries state shared by all subcommands.
type Global struct {
	// Stdout receives user-facing output. Defaults to os.Stdout.
	Stdout io.Writer
	// Logger is set once the configuration is loaded.
	Logger *slog.Logger
}

func (g *Global) out() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

func (g *Global) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"docschema.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build  BuildCmd  `cmd:"" help:"Build document models and the cross-reference map"`
	Watch  WatchCmd  `cmd:"" help:"Build, then rebuild whenever inputs change"`
	Schema SchemaCmd `cmd:"" help:"List the document types of the schema directory"`
	Init   InitCmd   `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; sets up logging until the
// configuration selects a level and format.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(config.LoggingConfig{}.NewLogger(os.Stderr, c.Verbose))
	return nil
}

// loadConfig loads the configuration and installs its logger.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	g.Logger = cfg.Logging.NewLogger(os.Stderr, root.Verbose)
	slog.SetDefault(g.Logger)
	return cfg, nil
}

// runBuild runs one build and prints its summary. A failed build is
// returned as an error so the process exits non-zero.
func runBuild(ctx context.Context, g *Global, svc build.BuildService, req build.BuildRequest) (*build.BuildResult, error) {
	result, err := svc.Run(ctx, req)
	if err != nil {
		return result, err
	}
	printSummary(g.out(), result)
	if result.Status == build.BuildStatusFailed {
		return result, errors.BuildError("build failed").
			WithContext("build_id", result.BuildID).
			WithContext("failures", len(result.Failures)).
			WithContext("diagnostics", len(result.Diagnostics)).
			Build()
	}
	return result, nil
}

func printSummary(w io.Writer, r *build.BuildResult) {
	_, _ = fmt.Fprintf(w, "Build %s: %s\n", r.BuildID, r.Status)
	_, _ = fmt.Fprintf(w, "  documents: %d (overwrites: %d, applied: %d)\n", r.Documents, r.Overwrites, r.OverwritesApplied)
	if len(r.Failures) > 0 {
		_, _ = fmt.Fprintf(w, "  failed: %d\n", len(r.Failures))
	}
	for _, d := range r.Diagnostics {
		if d.File != "" {
			_, _ = fmt.Fprintf(w, "  %s %s: %s (%s)\n", d.Severity, d.Code, d.Message, d.File)
			continue
		}
		_, _ = fmt.Fprintf(w, "  %s %s: %s\n", d.Severity, d.Code, d.Message)
	}
	if len(r.Written) > 0 {
		_, _ = fmt.Fprintf(w, "  wrote %d files to %s\n", len(r.Written), r.OutputPath)
	}
	_, _ = fmt.Fprintf(w, "  took %s\n", r.Duration.Round(time.Millisecond))
}

func logResult(logger *slog.Logger, r *build.BuildResult, err error) {
	if err != nil {
		logger.Error("Build failed", logfields.Error(err))
		return
	}
	logger.Info("Build finished", logfields.BuildID(r.BuildID), logfields.Outcome(string(r.Status)))
}
