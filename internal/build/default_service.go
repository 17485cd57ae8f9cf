package build

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docschema/internal/diagnostics"
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
	"git.home.luguber.info/inful/docschema/internal/interpret"
	"git.home.luguber.info/inful/docschema/internal/logfields"
	"git.home.luguber.info/inful/docschema/internal/metrics"
	"git.home.luguber.info/inful/docschema/internal/xrefstore"
)

// Store persists the cross-reference records of a build.
type Store interface {
	BeginBuild(ctx context.Context, buildID string, started time.Time) error
	SaveDocument(ctx context.Context, buildID string, rec xrefstore.DocumentRecord) error
	SaveDiagnostics(ctx context.Context, buildID string, items []diagnostics.Diagnostic) error
	FinishBuild(ctx context.Context, buildID, outcome string, documents int, finished time.Time) error
	Prune(ctx context.Context, keep int) (int, error)
	Close() error
}

// StoreFactory opens the store at path.
type StoreFactory func(path string) (Store, error)

// keepBuilds is how many builds the store retains.
const keepBuilds = 10

// DefaultBuildService is the standard implementation of BuildService.
type DefaultBuildService struct {
	recorder     metrics.Recorder
	storeFactory StoreFactory
	tags         []interpret.TagInterpreter
	logger       *slog.Logger
}

// NewBuildService creates a new DefaultBuildService persisting to SQLite.
func NewBuildService() *DefaultBuildService {
	return &DefaultBuildService{
		recorder: metrics.NoopRecorder{},
		storeFactory: func(path string) (Store, error) {
			s, err := xrefstore.NewSQLiteStore(path)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
	}
}

// WithRecorder sets the metrics recorder. A PrometheusRecorder is also
// exported to metrics.textfile after every build.
func (s *DefaultBuildService) WithRecorder(r metrics.Recorder) *DefaultBuildService {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	s.recorder = r
	return s
}

// WithStoreFactory replaces how the xref store is opened (for testing).
func (s *DefaultBuildService) WithStoreFactory(f StoreFactory) *DefaultBuildService {
	s.storeFactory = f
	return s
}

// WithTagInterpreters registers handlers for schema tags.
func (s *DefaultBuildService) WithTagInterpreters(tags ...interpret.TagInterpreter) *DefaultBuildService {
	s.tags = append(s.tags, tags...)
	return s
}

// WithLogger sets the logger builds log to. Defaults to slog.Default.
func (s *DefaultBuildService) WithLogger(l *slog.Logger) *DefaultBuildService {
	s.logger = l
	return s
}

// Run executes the complete build pipeline.
func (s *DefaultBuildService) Run(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	startTime := time.Now()
	result := &BuildResult{
		BuildID:   uuid.NewString(),
		StartTime: startTime,
		Failures:  make(map[string]error),
	}

	if req.Config == nil {
		result.Status = BuildStatusFailed
		s.finish(result, nil)
		return result, errors.ConfigError("config required").Build()
	}
	result.OutputPath = req.Config.Output.Directory

	logger := s.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(logfields.BuildID(result.BuildID))

	r, err := newRun(s, req, result, logger)
	if err != nil {
		result.Status = BuildStatusFailed
		s.finish(result, nil)
		return result, err
	}

	logger.Info("Starting build",
		slog.String("input", req.Config.Input.Root),
		slog.String("output", req.Config.Output.Directory),
		slog.Bool("dry_run", req.Options.DryRun))

	err = r.execute(ctx)
	result.Status = r.status(ctx, err)
	if ferr := r.closeStore(ctx); ferr != nil && err == nil {
		err = stageError(StagePersist, ferr)
		result.Status = BuildStatusFailed
	}
	result.Diagnostics = r.sink.Items()
	s.finish(result, r)
	s.exportMetrics(req, logger)

	logger.Info("Build complete",
		logfields.Outcome(string(result.Status)),
		slog.Int("documents", result.Documents),
		slog.Int("failed", len(result.Failures)),
		slog.Int("diagnostics", len(result.Diagnostics)),
		slog.Int("overwrites_applied", result.OverwritesApplied),
		logfields.DurationMS(float64(result.Duration.Milliseconds())))

	if result.Status == BuildStatusCancelled {
		return result, ctx.Err()
	}
	return result, err
}

func (s *DefaultBuildService) finish(result *BuildResult, r *run) {
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	if r != nil {
		for _, d := range r.docs {
			res := metrics.ResultSuccess
			if d.Err != nil {
				res = metrics.ResultFatal
			}
			s.recorder.IncDocumentResult(string(d.Kind), res)
		}
		for _, d := range result.Diagnostics {
			s.recorder.IncDiagnostic(string(d.Code))
		}
		s.recorder.AddOverwritesApplied(result.OverwritesApplied)
	}
	s.recorder.IncBuildOutcome(outcomeLabel(result.Status))
	s.recorder.ObserveBuildDuration(result.Duration)
}

func (s *DefaultBuildService) exportMetrics(req BuildRequest, logger *slog.Logger) {
	path := req.Config.Metrics.Textfile
	if path == "" || req.Options.DryRun {
		return
	}
	pr, ok := s.recorder.(*metrics.PrometheusRecorder)
	if !ok {
		return
	}
	if err := metrics.WriteTextfile(path, pr.Registry()); err != nil {
		logger.Warn("Failed to write metrics textfile", logfields.File(path), logfields.Error(err))
	}
}

func outcomeLabel(status BuildStatus) metrics.BuildOutcomeLabel {
	switch status {
	case BuildStatusSuccess:
		return metrics.BuildOutcomeSuccess
	case BuildStatusWarning:
		return metrics.BuildOutcomeWarning
	case BuildStatusCancelled:
		return metrics.BuildOutcomeCanceled
	default:
		return metrics.BuildOutcomeFailed
	}
}
