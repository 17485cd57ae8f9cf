package overwrite

import (
	"log/slog"
	"sort"

	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/diagnostics"
	"git.home.luguber.info/inful/docschema/internal/docset"
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
	"git.home.luguber.info/inful/docschema/internal/interpret"
	"git.home.luguber.info/inful/docschema/internal/logfields"
	"git.home.luguber.info/inful/docschema/internal/merge"
	"git.home.luguber.info/inful/docschema/internal/viewmodel"
)

// Reconciler merges overwrite documents into the base documents sharing
// their uids.
type Reconciler struct {
	processor *interpret.Processor
	collab    interpret.Collaborators
	applied   int
}

// NewReconciler returns a reconciler interpreting overwrite entries with
// processor. Overwrite markdown is rendered immediately, so collab.Anchors
// is ignored.
func NewReconciler(processor *interpret.Processor, collab interpret.Collaborators) *Reconciler {
	collab.Anchors = nil
	if collab.Sink == nil {
		collab.Sink = diagnostics.Discard
	}
	return &Reconciler{processor: processor, collab: collab}
}

// Applied returns the number of overwrite entries merged by the last Apply
// and ApplyTyped calls.
func (r *Reconciler) Applied() int { return r.applied }

type target struct {
	doc  *docset.Document
	path string
}

// Apply merges the overwrite entries of docs into the content documents of
// docs. The returned map holds the failure of each base document that
// could not be reconciled, keyed by document key.
func (r *Reconciler) Apply(docs []*docset.Document) map[string]error {
	r.applied = 0
	failures := make(map[string]error)

	entries := overwriteEntries(docs)
	bases := make(map[string][]target)
	for _, d := range docs {
		if !d.IsBase() || d.Kind != docset.KindContent {
			continue
		}
		for _, def := range d.Context.Uids {
			if _, ok := entries[def.UID]; ok {
				bases[def.UID] = append(bases[def.UID], target{doc: d, path: content.Parent(def.Path)})
			}
		}
	}

	uids := make([]string, 0, len(bases))
	for uid := range bases {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	for _, uid := range uids {
		targets := bases[uid]
		if err := r.reconcile(uid, entries[uid], targets); err != nil {
			for _, t := range targets {
				if _, seen := failures[t.doc.Key]; !seen {
					failures[t.doc.Key] = err
				}
			}
		}
	}
	return failures
}

func (r *Reconciler) reconcile(uid string, raw []docset.OverwriteEntry, targets []target) error {
	first := targets[0]
	s := first.doc.Schema.At(first.path)

	interpreted := make([]Entry, 0, len(raw))
	for _, e := range raw {
		ctx := interpret.NewContext(e.File, r.collab)
		v := SubstitutePlaceholder(content.Clone(e.Value), e.Body)
		out, err := r.processor.Process(v, s, ctx)
		if err != nil {
			return wrapFoldError(err, uid, e.File)
		}
		interpreted = append(interpreted, Entry{UID: uid, File: e.File, Value: out, Context: ctx})
	}

	folded, err := Fold(uid, interpreted, s, r.collab.Sink)
	if err != nil {
		return err
	}

	last := interpreted[len(interpreted)-1].File
	// Targets are merged into copies and committed together, so a failed
	// target leaves every document of the uid untouched.
	staged := make(map[*docset.Document]content.Value)
	var order []*docset.Document
	for _, t := range targets {
		v, ok := staged[t.doc]
		if !ok {
			v = content.Clone(t.doc.Content)
			order = append(order, t.doc)
		}
		m := merge.NewMerger(r.collab.Sink, last)
		err := content.Update(&v, t.path, func(base content.Value) (content.Value, error) {
			if err := m.Merge(&base, content.Clone(folded), uid, t.path, s); err != nil {
				return nil, err
			}
			return base, nil
		})
		if err != nil {
			return wrapFoldError(err, uid, last)
		}
		staged[t.doc] = v
	}

	for _, d := range order {
		d.Content = staged[d]
		for _, e := range interpreted {
			d.Context.Absorb(e.Context)
			d.Context.Dependency.Add(e.File)
		}
		slog.Debug("Applied overwrite",
			logfields.UID(uid),
			logfields.Document(d.Key),
			logfields.Count(len(interpreted)))
	}
	r.applied += len(interpreted)
	return nil
}

// ApplyTyped folds the overwrite entries of each conceptual topic's uid,
// left to right starting from the first entry, and merges the result into
// the topic with the typed conceptual merger. Overwrite bodies are rendered
// as the conceptual text.
func (r *Reconciler) ApplyTyped(docs []*docset.Document) map[string]error {
	failures := make(map[string]error)
	entries := overwriteEntries(docs)

	for _, d := range docs {
		if !d.IsBase() || d.Kind != docset.KindConceptual || d.Conceptual == nil {
			continue
		}
		uid := d.Conceptual.UID
		if len(entries[uid]) == 0 {
			continue
		}
		folded, contexts, err := r.foldTyped(uid, entries[uid])
		if err != nil {
			failures[d.Key] = err
			continue
		}
		viewmodel.ConceptualMerger.Merge(d.Conceptual, folded, r.unmatched(uid, entries[uid][len(entries[uid])-1].File))
		for i, ctx := range contexts {
			d.Context.Absorb(ctx)
			d.Context.Dependency.Add(entries[uid][i].File)
		}
		r.applied += len(contexts)
	}
	return failures
}

func (r *Reconciler) foldTyped(uid string, raw []docset.OverwriteEntry) (*viewmodel.Conceptual, []*interpret.Context, error) {
	var acc *viewmodel.Conceptual
	contexts := make([]*interpret.Context, 0, len(raw))
	for _, e := range raw {
		ov, ctx, err := r.conceptualEntry(e)
		if err != nil {
			return nil, nil, wrapFoldError(err, uid, e.File)
		}
		if acc == nil {
			acc = ov.Clone()
		} else {
			viewmodel.ConceptualMerger.Merge(acc, ov, r.unmatched(uid, e.File))
		}
		contexts = append(contexts, ctx)
	}
	return acc, contexts, nil
}

func (r *Reconciler) unmatched(uid, file string) func(field, detail string) {
	return func(field, detail string) {
		r.collab.Sink.Report(diagnostics.Diagnostic{
			Code:    diagnostics.CodeOverwriteItemUnmatched,
			Message: "overwrite " + field + ": " + detail,
			UID:     uid,
			Path:    "/" + field,
			File:    file,
		})
	}
}

func (r *Reconciler) conceptualEntry(e docset.OverwriteEntry) (*viewmodel.Conceptual, *interpret.Context, error) {
	ctx := interpret.NewContext(e.File, r.collab)
	header := SubstitutePlaceholder(content.Clone(e.Value), e.Body)
	obj, ok := content.AsObject(header)
	if !ok {
		return nil, nil, errors.OverwriteError("overwrite header is not an object").
			WithContext("file", e.File).
			Build()
	}
	ov, err := viewmodel.ConceptualFromHeader(obj)
	if err != nil {
		return nil, nil, errors.WrapError(err, errors.CategoryOverwrite, "invalid conceptual overwrite").
			Fatal().
			Build()
	}
	if ov.Conceptual != "" && r.collab.Renderer != nil {
		res, err := r.collab.Renderer.Render(ov.Conceptual, e.File)
		if err != nil {
			return nil, nil, err
		}
		ctx.AddResult(res)
		ov.Conceptual = res.HTML
	}
	return ov, ctx, nil
}

// overwriteEntries indexes the entries of valid overwrite documents by uid,
// in document order.
func overwriteEntries(docs []*docset.Document) map[string][]docset.OverwriteEntry {
	out := make(map[string][]docset.OverwriteEntry)
	for _, d := range docs {
		if d.Kind != docset.KindOverwrite || d.Err != nil {
			continue
		}
		for _, e := range d.Overwrites {
			out[e.UID] = append(out[e.UID], e)
		}
	}
	return out
}
