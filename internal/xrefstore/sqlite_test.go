package xrefstore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docschema/internal/diagnostics"
	"git.home.luguber.info/inful/docschema/internal/interpret"
	"git.home.luguber.info/inful/docschema/internal/xref"
)

const testBuildID = "build-1"

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRecord() DocumentRecord {
	files := xref.LinkSources{}
	files.Add(xref.LinkSourceInfo{Target: "api/b.md", SourceFile: "api/a.yml"})
	uids := xref.LinkSources{}
	uids.Add(xref.LinkSourceInfo{Target: "B", SourceFile: "api/a.yml", Anchor: "#x"})
	uids.Add(xref.LinkSourceInfo{Target: "B", SourceFile: "overwrites/a.md"})

	spec := xref.NewXRefSpec("A")
	spec.Set("href", "api/a.json")
	spec.Set("name", "Alpha")
	external := xref.NewXRefSpec("Ext")
	external.Set("href", "https://example.com/ext")

	return DocumentRecord{
		Document:          "api/a.yml",
		OutputPath:        "api/a.json",
		Uids:              []xref.UidDefinition{{UID: "A", File: "api/a.yml", Path: "/uid"}},
		XRefSpecs:         []*xref.XRefSpec{spec},
		ExternalXRefSpecs: []*xref.XRefSpec{external},
		FileLinkSources:   files,
		UidLinkSources:    uids,
		Dependencies:      []string{"api/b.md", "overwrites/a.md"},
	}
}

func TestSQLiteStore_BuildLifecycle(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	started := time.UnixMilli(1_700_000_000_000)
	require.NoError(t, store.BeginBuild(ctx, testBuildID, started))
	require.NoError(t, store.FinishBuild(ctx, testBuildID, "success", 3, started.Add(2*time.Second)))

	b, err := store.GetBuild(ctx, testBuildID)
	require.NoError(t, err)
	assert.Equal(t, "success", b.Outcome)
	assert.Equal(t, 3, b.Documents)
	assert.True(t, b.StartedAt.Equal(started))
	assert.Equal(t, 2*time.Second, b.FinishedAt.Sub(b.StartedAt))

	require.NoError(t, store.BeginBuild(ctx, "build-2", started.Add(time.Minute)))
	latest, err := store.LatestBuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, "build-2", latest.ID)
	assert.True(t, latest.FinishedAt.IsZero())
}

func TestSQLiteStore_UnknownBuild(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	_, err := store.GetBuild(ctx, "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBuildNotFound))

	err = store.FinishBuild(ctx, "missing", "failed", 0, time.Now())
	assert.True(t, errors.Is(err, ErrBuildNotFound))

	_, err = store.LatestBuild(ctx)
	assert.True(t, errors.Is(err, ErrBuildNotFound))
}

func TestSQLiteStore_SaveDocumentAndQuery(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()
	require.NoError(t, store.BeginBuild(ctx, testBuildID, time.Now()))
	require.NoError(t, store.SaveDocument(ctx, testBuildID, sampleRecord()))

	specs, err := store.XRefMap(ctx, testBuildID)
	require.NoError(t, err)
	require.Len(t, specs, 1, "external specs are not part of the xref map")
	assert.Equal(t, "A", specs[0].UID)
	assert.Equal(t, "api/a.json", specs[0].Href())
	assert.Equal(t, "Alpha", specs[0].Properties["name"])

	uids, err := store.DefinedUids(ctx, testBuildID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, uids)

	refs, err := store.Referrers(ctx, testBuildID, "B")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "#x", refs[0].Anchor)
	assert.Equal(t, "overwrites/a.md", refs[1].SourceFile)

	deps, err := store.Dependents(ctx, testBuildID, "overwrites/a.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"api/a.yml"}, deps)

	deps, err = store.Dependents(ctx, "other-build", "overwrites/a.md")
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestSQLiteStore_XRefMapCombinesDuplicateUids(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	first := xref.NewXRefSpec("A")
	first.Set("href", "a.json")
	second := xref.NewXRefSpec("A")
	second.Set("name", "Alpha")

	require.NoError(t, store.SaveDocument(ctx, testBuildID, DocumentRecord{Document: "a.yml", XRefSpecs: []*xref.XRefSpec{first}}))
	require.NoError(t, store.SaveDocument(ctx, testBuildID, DocumentRecord{Document: "b.yml", XRefSpecs: []*xref.XRefSpec{second}}))

	specs, err := store.XRefMap(ctx, testBuildID)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, map[string]string{"href": "a.json", "name": "Alpha"}, specs[0].Properties)
}

func TestSQLiteStore_Diagnostics(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	items := []diagnostics.Diagnostic{
		{Code: diagnostics.CodeFragmentUnused, Severity: diagnostics.SeverityWarning, Message: "unused", File: "a.yml.md"},
		{Code: diagnostics.CodeDocumentFailed, Severity: diagnostics.SeverityError, Message: "failed", UID: "A", Path: "/x"},
	}
	require.NoError(t, store.SaveDiagnostics(ctx, testBuildID, items))

	got, err := store.Diagnostics(ctx, testBuildID)
	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestSQLiteStore_Prune(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	base := time.Now()
	for i, id := range []string{"b1", "b2", "b3"} {
		require.NoError(t, store.BeginBuild(ctx, id, base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, store.SaveDocument(ctx, id, sampleRecord()))
	}

	removed, err := store.Prune(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = store.GetBuild(ctx, "b1")
	assert.True(t, errors.Is(err, ErrBuildNotFound))
	specs, err := store.XRefMap(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, specs)

	specs, err = store.XRefMap(ctx, "b3")
	require.NoError(t, err)
	assert.Len(t, specs, 1)
}

func TestSQLiteStore_FileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "xref.db")
	ctx := t.Context()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.BeginBuild(ctx, testBuildID, time.Now()))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	b, err := reopened.LatestBuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, testBuildID, b.ID)
}

func TestRecordFromContext(t *testing.T) {
	c := interpret.NewContext("api/a.yml", interpret.Collaborators{})
	c.AddUid(xref.UidDefinition{UID: "A", File: "api/a.yml", Path: "/uid"})
	c.Dependency.Add("z.md", "b.md")

	rec := RecordFromContext(c)
	assert.Equal(t, "api/a.yml", rec.Document)
	assert.Equal(t, "api/a.yml", rec.OutputPath)
	assert.Equal(t, []string{"b.md", "z.md"}, rec.Dependencies)
	assert.Len(t, rec.Uids, 1)
}
