package build

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/docschema/internal/config"
	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/diagnostics"
	"git.home.luguber.info/inful/docschema/internal/docset"
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
	"git.home.luguber.info/inful/docschema/internal/interpret"
	"git.home.luguber.info/inful/docschema/internal/logfields"
	"git.home.luguber.info/inful/docschema/internal/markdown"
	"git.home.luguber.info/inful/docschema/internal/overwrite"
	"git.home.luguber.info/inful/docschema/internal/schema"
	"git.home.luguber.info/inful/docschema/internal/xref"
	"git.home.luguber.info/inful/docschema/internal/xrefstore"
)

// run is the state of one build.
type run struct {
	svc    *DefaultBuildService
	cfg    *config.Config
	opts   BuildOptions
	result *BuildResult
	logger *slog.Logger
	sink   *diagnostics.Collector

	schemas  *schema.Registry
	paths    *docset.PathMap
	renderer *markdown.Renderer
	anchors  *markdown.AnchorParser
	collab   interpret.Collaborators
	store    Store

	files     []docset.File
	docs      []*docset.Document
	byKey     map[string]*docset.Document
	fragments []*docset.Document
	resources []docset.File
	// fragmentSources maps a document key to the pointers that received a
	// fragment and the fragment file each came from.
	fragmentSources map[string]map[string]string

	mu sync.Mutex
}

func newRun(svc *DefaultBuildService, req BuildRequest, result *BuildResult, logger *slog.Logger) (*run, error) {
	cfg := req.Config
	r := &run{
		svc:             svc,
		cfg:             cfg,
		opts:            req.Options,
		result:          result,
		logger:          logger,
		sink:            diagnostics.NewCollector(logger),
		paths:           docset.NewPathMap(),
		byKey:           make(map[string]*docset.Document),
		fragmentSources: make(map[string]map[string]string),
	}

	files := docset.DirReader{Root: cfg.Input.Root}
	renderer, err := markdown.NewRenderer(markdown.Options{
		Extensions:      cfg.Markdown.Extensions,
		Unsafe:          cfg.Markdown.Unsafe,
		MaxIncludeDepth: cfg.Markdown.MaxIncludeDepth,
	}, markdown.WithFiles(files), markdown.WithPathResolver(r.paths), markdown.WithSink(r.sink))
	if err != nil {
		return nil, err
	}
	r.renderer = renderer
	r.collab = interpret.Collaborators{
		Renderer: renderer,
		Paths:    r.paths,
		Files:    files,
		Sink:     r.sink,
	}
	if cfg.Markdown.Deferred() {
		r.anchors = markdown.NewAnchorParser()
		r.collab.Anchors = r.anchors
	}
	return r, nil
}

type stage struct {
	name string
	fn   func(context.Context) error
}

func (r *run) execute(ctx context.Context) error {
	stages := []stage{
		{StageSchemas, r.loadSchemas},
		{StageDiscovery, r.discover},
		{StageLoad, r.load},
		{StageFragments, r.applyFragments},
		{StageInterpret, r.interpret},
		{StageReconcile, r.reconcile},
		{StageRender, r.render},
		{StagePersist, r.persist},
		{StageOutput, r.writeOutputs},
	}
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		err := st.fn(ctx)
		r.svc.recorder.ObserveStageDuration(st.name, time.Since(start))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return stageError(st.name, err)
		}
		r.logger.Debug("Stage complete",
			slog.String("stage", st.name),
			logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	}
	return nil
}

func (r *run) status(ctx context.Context, err error) BuildStatus {
	switch {
	case ctx.Err() != nil:
		return BuildStatusCancelled
	case err != nil, len(r.result.Failures) > 0:
		return BuildStatusFailed
	case r.sink.Len() > 0 && r.cfg.Build.FailOnWarnings:
		return BuildStatusFailed
	case r.sink.Len() > 0:
		return BuildStatusWarning
	default:
		return BuildStatusSuccess
	}
}

// fail records that doc produces no output. Only the first error of a
// document is kept.
func (r *run) fail(doc *docset.Document, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.Err == nil {
		doc.Err = err
	}
	if _, seen := r.result.Failures[doc.Key]; seen {
		return
	}
	r.result.Failures[doc.Key] = err
	r.sink.Report(diagnostics.Diagnostic{
		Code:     diagnostics.CodeDocumentFailed,
		Severity: diagnostics.SeverityError,
		Message:  err.Error(),
		File:     doc.Key,
	})
}

func (r *run) loadSchemas(context.Context) error {
	reg, err := schema.LoadDir(r.cfg.Schemas.Directory)
	if err != nil {
		return err
	}
	r.schemas = reg
	r.logger.Info("Loaded schemas", logfields.Count(len(reg.Types())))
	return nil
}

func (r *run) discover(context.Context) error {
	exclude := append([]string(nil), r.cfg.Input.Exclude...)
	if rel, ok := outputBelowInput(r.cfg.Input.Root, r.cfg.Output.Directory); ok {
		exclude = append(exclude, rel+"/**")
	}
	files, err := docset.Discover(docset.Options{
		Root:       r.cfg.Input.Root,
		Include:    r.cfg.Input.Include,
		Exclude:    exclude,
		Overwrites: r.cfg.Input.Overwrites,
	})
	if err != nil {
		return err
	}
	r.files = files
	r.logger.Info("Discovered input files", logfields.Count(len(files)))
	return nil
}

// outputBelowInput returns the output directory relative to the input
// root when it lies inside it.
func outputBelowInput(root, out string) (string, bool) {
	absRoot, err1 := filepath.Abs(root)
	absOut, err2 := filepath.Abs(out)
	if err1 != nil || err2 != nil {
		return "", false
	}
	rel, err := filepath.Rel(absRoot, absOut)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (r *run) load(context.Context) error {
	loader := docset.NewLoader(r.schemas, r.cfg.Input.Overwrites)
	for _, f := range r.files {
		// #nosec G304 -- path comes from walking the configured input root.
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to read input file").
				WithContext("file", f.Key).
				Build()
		}
		doc, ok := loader.Load(f.Key, data)
		if !ok {
			r.paths.AddResource(f.Key)
			r.resources = append(r.resources, f)
			continue
		}
		switch doc.Kind {
		case docset.KindFragment:
			r.fragments = append(r.fragments, doc)
			continue
		case docset.KindOverwrite:
			r.result.Overwrites++
		default:
			r.paths.AddDocument(doc.Key)
			r.result.Documents++
		}
		r.docs = append(r.docs, doc)
		r.byKey[doc.Key] = doc
		if doc.Err != nil {
			r.fail(doc, doc.Err)
		}
	}
	r.logger.Info("Loaded documents",
		slog.Int("documents", r.result.Documents),
		slog.Int("overwrites", r.result.Overwrites),
		slog.Int("fragments", len(r.fragments)),
		slog.Int("resources", len(r.resources)))
	return nil
}

func (r *run) applyFragments(context.Context) error {
	for _, f := range r.fragments {
		target := r.byKey[docset.FragmentTarget(f.Key)]
		if target == nil || target.Kind != docset.KindContent {
			r.sink.Report(diagnostics.Diagnostic{
				Code:    diagnostics.CodeFragmentUnused,
				Message: "fragment file has no matching content document",
				File:    f.Key,
			})
			continue
		}
		if target.Err != nil {
			continue
		}
		frags, err := overwrite.ParseFragments(r.renderer, f.Source, f.Key)
		if err != nil {
			r.fail(f, err)
			continue
		}
		applied := overwrite.ApplyFragments(target, frags, r.renderer, r.sink)
		target.Fragments = append(target.Fragments, frags...)
		sources := r.fragmentSources[target.Key]
		if sources == nil {
			sources = make(map[string]string)
			r.fragmentSources[target.Key] = sources
		}
		for _, p := range applied {
			sources[p] = f.Key
		}
		r.logger.Debug("Applied fragments",
			logfields.Document(target.Key),
			logfields.File(f.Key),
			logfields.Count(len(applied)))
	}
	return nil
}

func (r *run) workers() int {
	n := r.cfg.Build.Concurrency
	if r.opts.Concurrency > 0 {
		n = r.opts.Concurrency
	}
	if n < 1 {
		n = 1
	}
	return n
}

// interpret runs every content and conceptual document through its
// pipeline on a bounded pool of workers, one Context per document.
func (r *run) interpret(ctx context.Context) error {
	base := interpret.NewProcessor(interpret.DefaultInterpreters(r.svc.tags...)...)
	withFragments := interpret.NewProcessor(interpret.OverwriteInterpreters(r.svc.tags...)...)

	workers := r.workers()
	r.svc.recorder.SetWorkers(workers)
	defer r.svc.recorder.SetWorkers(0)

	jobs := make(chan *docset.Document)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				r.interpretDocument(doc, base, withFragments)
			}
		}()
	}

feed:
	for _, d := range r.docs {
		if d.Err != nil || (d.Kind != docset.KindContent && d.Kind != docset.KindConceptual) {
			continue
		}
		select {
		case <-ctx.Done():
			break feed
		case jobs <- d:
		}
	}
	close(jobs)
	wg.Wait()
	return ctx.Err()
}

func (r *run) interpretDocument(doc *docset.Document, base, withFragments *interpret.Processor) {
	start := time.Now()
	var err error
	switch doc.Kind {
	case docset.KindContent:
		err = r.interpretContent(doc, base, withFragments)
	case docset.KindConceptual:
		err = r.interpretConceptual(doc)
	}

	docType := doc.DocType
	if docType == "" {
		docType = string(doc.Kind)
	}
	r.svc.recorder.ObserveDocumentDuration(docType, time.Since(start))
	if err != nil {
		r.fail(doc, err)
		return
	}
	r.logger.Debug("Interpreted document",
		logfields.Document(doc.Key),
		logfields.DocType(docType),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
}

func (r *run) interpretContent(doc *docset.Document, base, withFragments *interpret.Processor) error {
	ctx := interpret.NewContext(doc.Key, r.collab)
	p := base
	if sources := r.fragmentSources[doc.Key]; len(sources) > 0 {
		p = withFragments
		for path, file := range sources {
			ctx.MarkFragment(path)
			ctx.SetOriginalSourceFile(path, file)
			ctx.Dependency.Add(file)
		}
	}
	out, err := p.Process(doc.Content, doc.Schema, ctx)
	if err != nil {
		return err
	}
	doc.Content = out
	doc.Context = ctx
	return nil
}

// interpretConceptual registers the topic uid and renders its body, or
// defers the body behind an anchor token so an overwrite can replace it
// unrendered.
func (r *run) interpretConceptual(doc *docset.Document) error {
	ctx := interpret.NewContext(doc.Key, r.collab)
	c := doc.Conceptual
	if c.UID != "" {
		ctx.AddUid(xref.UidDefinition{UID: c.UID, File: doc.Key, Path: "/uid"})
		spec := xref.NewXRefSpec(c.UID)
		if c.Title != "" {
			spec.Set("name", c.Title)
		}
		ctx.UpsertXRefSpec(spec, true)
	}
	if r.anchors != nil {
		c.Conceptual = r.anchors.Parse(doc.Body, doc.Key)
	} else {
		res, err := r.renderer.RenderDocument(r.renderer.Parse(doc.Body, doc.Key, doc.BodyLine))
		if err != nil {
			return errors.WrapError(err, errors.CategoryMarkdown, "failed to render topic").
				Fatal().
				WithContext("file", doc.Key).
				Build()
		}
		ctx.AddResult(res)
		c.Conceptual = res.HTML
	}
	doc.Context = ctx
	return nil
}

func (r *run) reconcile(context.Context) error {
	rec := overwrite.NewReconciler(interpret.NewProcessor(interpret.OverwriteInterpreters(r.svc.tags...)...), r.collab)
	r.failAll(rec.Apply(r.docs))
	r.failAll(rec.ApplyTyped(r.docs))
	r.result.OverwritesApplied = rec.Applied()
	r.logger.Info("Reconciled overwrites", logfields.Count(rec.Applied()))
	return nil
}

func (r *run) failAll(failures map[string]error) {
	keys := make([]string, 0, len(failures))
	for k := range failures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if doc := r.byKey[k]; doc != nil {
			r.fail(doc, failures[k])
		}
	}
}

// render expands the markdown deferred during interpretation and completes
// the exported xref specs.
func (r *run) render(context.Context) error {
	for _, d := range r.docs {
		if !d.IsBase() {
			continue
		}
		var err error
		switch d.Kind {
		case docset.KindContent:
			var out content.Value
			out, err = interpret.ExpandAnchors(d.Content, d.Context)
			if err == nil {
				d.Content = out
			}
		case docset.KindConceptual:
			err = r.expandConceptual(d)
		}
		if err != nil {
			r.fail(d, err)
			continue
		}
		completeXRefSpecs(d.Context)
	}
	return nil
}

func (r *run) expandConceptual(d *docset.Document) error {
	if r.anchors == nil {
		return nil
	}
	a, ok := r.anchors.Lookup(d.Conceptual.Conceptual)
	if !ok {
		return nil
	}
	res, err := r.renderer.RenderDocument(r.renderer.Parse(a.Source, a.File, d.BodyLine))
	if err != nil {
		return errors.WrapError(err, errors.CategoryMarkdown, "failed to render topic").
			Fatal().
			WithContext("file", d.Key).
			Build()
	}
	d.Context.AddResult(res)
	d.Conceptual.Conceptual = res.HTML
	return nil
}

// completeXRefSpecs gives every uid defined by the document an href: the
// page itself for the root object, a fragment of the page otherwise.
func completeXRefSpecs(ctx *interpret.Context) {
	page := ctx.OutputPath()
	for _, def := range ctx.Uids {
		for _, spec := range ctx.XRefSpecs {
			if spec.UID != def.UID || spec.Href() != "" {
				continue
			}
			href := page
			if content.Parent(def.Path) != "" {
				href += "#" + anchorID(def.UID)
			}
			spec.Set("href", href)
		}
	}
}

// anchorID lowercases uid and replaces every character outside [a-z0-9_-]
// with '-'.
func anchorID(uid string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, uid)
}

func (r *run) persist(ctx context.Context) error {
	if r.opts.DryRun || r.cfg.Store.Path == "" {
		return nil
	}
	store, err := r.svc.storeFactory(r.cfg.Store.Path)
	if err != nil {
		return err
	}
	r.store = store
	if err := store.BeginBuild(ctx, r.result.BuildID, r.result.StartTime); err != nil {
		return err
	}
	saved := 0
	for _, d := range r.docs {
		if !d.IsBase() {
			continue
		}
		if err := store.SaveDocument(ctx, r.result.BuildID, xrefstore.RecordFromContext(d.Context)); err != nil {
			return err
		}
		saved++
	}
	r.logger.Info("Persisted cross references", logfields.Count(saved), logfields.File(r.cfg.Store.Path))
	return nil
}

// closeStore records the outcome and diagnostics of the build and prunes
// old builds. It runs even when the build was cancelled.
func (r *run) closeStore(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	defer func() {
		if err := r.store.Close(); err != nil {
			r.logger.Warn("Failed to close xref store", logfields.Error(err))
		}
	}()
	if err := r.store.SaveDiagnostics(ctx, r.result.BuildID, r.sink.Items()); err != nil {
		return err
	}
	if err := r.store.FinishBuild(ctx, r.result.BuildID, string(r.result.Status), r.result.Documents, time.Now()); err != nil {
		return err
	}
	if n, err := r.store.Prune(ctx, keepBuilds); err != nil {
		r.logger.Warn("Failed to prune old builds", logfields.Error(err))
	} else if n > 0 {
		r.logger.Debug("Pruned old builds", logfields.Count(n))
	}
	return nil
}
