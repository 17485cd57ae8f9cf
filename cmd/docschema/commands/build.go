package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/docschema/internal/build"
	"git.home.luguber.info/inful/docschema/internal/config"
	"git.home.luguber.info/inful/docschema/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output      string `short:"o" help:"Override output.directory" type:"path"`
	DryRun      bool   `name:"dry-run" help:"Interpret and reconcile without writing outputs or persisting cross references"`
	Concurrency int    `help:"Override build.concurrency"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if b.Output != "" {
		cfg.Output.Directory = b.Output
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = runBuild(ctx, g, newBuildService(g, cfg), build.BuildRequest{
		Config:  cfg,
		Options: build.BuildOptions{DryRun: b.DryRun, Concurrency: b.Concurrency},
	})
	return err
}

// newBuildService returns the build service for cfg. Prometheus metrics are
// only collected when a textfile export is configured.
func newBuildService(g *Global, cfg *config.Config) *build.DefaultBuildService {
	svc := build.NewBuildService().WithLogger(g.logger())
	if cfg.Metrics.Textfile != "" {
		svc.WithRecorder(metrics.NewPrometheusRecorder(nil))
	}
	return svc
}
