package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"git.home.luguber.info/inful/docschema/internal/build"
	"git.home.luguber.info/inful/docschema/internal/config"
	"git.home.luguber.info/inful/docschema/internal/logfields"
	"git.home.luguber.info/inful/docschema/internal/metrics"
	"git.home.luguber.info/inful/docschema/internal/xrefstore"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	MetricsListen string `name:"metrics-listen" help:"Serve Prometheus metrics on this address, e.g. :9464"`
	Concurrency   int    `help:"Override build.concurrency"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.NewPrometheusRecorder(nil)
	if w.MetricsListen != "" {
		srv := &http.Server{
			Addr:              w.MetricsListen,
			Handler:           metricsMux(recorder),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				g.logger().Error("Metrics server failed", logfields.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		g.logger().Info("Serving metrics", "addr", w.MetricsListen)
	}

	s := &watchSession{
		global:      g,
		configPath:  root.Config,
		cfg:         cfg,
		concurrency: w.Concurrency,
		svc:         build.NewBuildService().WithRecorder(recorder).WithLogger(g.logger()),
	}
	s.build(ctx)

	watcher, err := build.NewWatcher(
		[]string{cfg.Input.Root, cfg.Schemas.Directory},
		[]string{cfg.Output.Directory},
		cfg.Build.Debounce(),
		s.rebuild,
	)
	if err != nil {
		return err
	}
	watcher.WithFiles(root.Config)
	return watcher.Run(ctx)
}

func metricsMux(recorder *metrics.PrometheusRecorder) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(recorder.Registry()))
	return mux
}

// watchSession holds the state carried between rebuilds.
type watchSession struct {
	global      *Global
	configPath  string
	cfg         *config.Config
	concurrency int
	svc         *build.DefaultBuildService
	lastBuildID string
}

func (s *watchSession) build(ctx context.Context) {
	result, err := runBuild(ctx, s.global, s.svc, build.BuildRequest{
		Config:  s.cfg,
		Options: build.BuildOptions{Concurrency: s.concurrency},
	})
	if result != nil && result.Status != build.BuildStatusCancelled {
		s.lastBuildID = result.BuildID
	}
	logResult(s.global.logger(), result, err)
}

func (s *watchSession) rebuild(ctx context.Context, changed []string) {
	logger := s.global.logger()
	if s.configChanged(changed) {
		cfg, err := config.Load(s.configPath)
		if err != nil {
			logger.Error("Keeping previous configuration", logfields.Error(err))
		} else {
			s.cfg = cfg
			logger.Info("Configuration reloaded", logfields.File(s.configPath))
		}
	}
	s.logAffected(ctx, changed)
	s.build(ctx)
}

func (s *watchSession) configChanged(changed []string) bool {
	abs, err := filepath.Abs(s.configPath)
	if err != nil {
		return false
	}
	for _, p := range changed {
		if p == abs {
			return true
		}
	}
	return false
}

// logAffected reports which documents of the previous build depend on
// the changed files.
func (s *watchSession) logAffected(ctx context.Context, changed []string) {
	logger := s.global.logger()
	if s.lastBuildID == "" || s.cfg.Store.Path == "" {
		logger.Info("Rebuilding", logfields.Count(len(changed)))
		return
	}
	store, err := xrefstore.NewSQLiteStore(s.cfg.Store.Path)
	if err != nil {
		logger.Warn("Cannot open xref store", logfields.Error(err))
		return
	}
	defer func() { _ = store.Close() }()

	root, err := filepath.Abs(s.cfg.Input.Root)
	if err != nil {
		return
	}
	for _, p := range changed {
		key, ok := documentKey(root, p)
		if !ok {
			continue
		}
		deps, err := store.Dependents(ctx, s.lastBuildID, key)
		if err != nil {
			logger.Warn("Dependents lookup failed", logfields.Error(err))
			continue
		}
		if len(deps) > 0 {
			logger.Info("Change affects documents", logfields.File(key), "documents", deps)
		}
	}
	logger.Info("Rebuilding", logfields.Count(len(changed)))
}

// documentKey returns the slash-separated key of p below root.
func documentKey(root, p string) (string, bool) {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
