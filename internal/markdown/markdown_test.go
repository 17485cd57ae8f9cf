package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docschema/internal/diagnostics"
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
)

type mapFiles map[string]string

func (m mapFiles) ReadFile(p string) (string, bool) {
	s, ok := m[p]
	return s, ok
}

type htmlPaths struct{}

func (htmlPaths) ResolvePath(p string) (string, bool) {
	if len(p) > 3 && p[len(p)-3:] == ".md" {
		return p[:len(p)-3] + ".html", true
	}
	return "", false
}

func newRenderer(t *testing.T, opts ...RendererOption) *Renderer {
	t.Helper()
	r, err := NewRenderer(Options{Extensions: []string{"gfm"}}, opts...)
	require.NoError(t, err)
	return r
}

func TestRenderCollectsFileLinks(t *testing.T) {
	r := newRenderer(t)
	res, err := r.Render("See [C](../c.md#frag), [ext](https://x/y), [root](/z) and [self](#top).\n\n![img](img/a.png)", "a/b/d.md")
	require.NoError(t, err)

	assert.Equal(t, []string{"a/c.md", "a/b/img/a.png"}, []string{
		res.FileLinkSources["a/c.md"][0].Target,
		res.FileLinkSources["a/b/img/a.png"][0].Target,
	})
	assert.Equal(t, "#frag", res.FileLinkSources["a/c.md"][0].Anchor)
	assert.Equal(t, "a/b/d.md", res.FileLinkSources["a/c.md"][0].SourceFile)
	assert.Equal(t, 2, res.FileLinkSources.Count())
	assert.Empty(t, res.UidLinkSources)
	assert.Contains(t, res.HTML, `href="../c.md#frag"`)
}

func TestRenderCollectsXrefs(t *testing.T) {
	r := newRenderer(t)
	res, err := r.Render("Use [Foo](xref:M.Foo#ctor) or <xref:M.Bar%601>.", "a.md")
	require.NoError(t, err)

	require.Len(t, res.UidLinkSources["M.Foo"], 1)
	assert.Equal(t, "#ctor", res.UidLinkSources["M.Foo"][0].Anchor)
	require.Len(t, res.UidLinkSources["M.Bar`1"], 1)
	assert.Empty(t, res.FileLinkSources)
}

func TestRenderRewritesLinksWithoutMutatingDocument(t *testing.T) {
	r := newRenderer(t, WithPathResolver(htmlPaths{}))
	doc := r.Parse("[C](c.md?x=1#frag)", "a/b.md", 1)

	first, err := r.RenderDocument(doc)
	require.NoError(t, err)
	assert.Contains(t, first.HTML, `href="c.html?x=1#frag"`)

	second, err := r.RenderDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, "a/c.md", second.FileLinkSources["a/c.md"][0].Target)
}

func TestRenderExpandsIncludes(t *testing.T) {
	files := mapFiles{
		"a/inc/part.md":  "Included [link](other.md)\n[!include[n](nested.md)]\n",
		"a/inc/nested.md": "Nested text\n",
	}
	r := newRenderer(t, WithFiles(files))

	res, err := r.Render("Intro\n\n[!include[part](inc/part.md)]\n\n`[!include[x](inc/part.md)]`", "a/index.md")
	require.NoError(t, err)

	assert.Contains(t, res.HTML, "Nested text")
	assert.True(t, res.Dependency.Has("a/inc/part.md"))
	assert.True(t, res.Dependency.Has("a/inc/nested.md"))
	assert.Contains(t, res.HTML, "<code>[!include[x](inc/part.md)]</code>")
}

func TestRenderIncludeProblems(t *testing.T) {
	c := diagnostics.NewCollector(nil)
	r := newRenderer(t, WithFiles(mapFiles{"loop.md": "[!include[x](loop.md)]"}), WithSink(c))

	_, err := r.Render("[!include[x](missing.md)]", "a.md")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Count(diagnostics.CodeIncludeNotFound))

	_, err = r.Render("[!include[x](loop.md)]", "a.md")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryMarkdown))
}

func TestNewRendererRejectsUnknownExtension(t *testing.T) {
	_, err := NewRenderer(Options{Extensions: []string{"mermaid"}})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestParseXref(t *testing.T) {
	uid, anchor, ok := ParseXref("xref:System.String?displayProperty=fullName#x")
	assert.True(t, ok)
	assert.Equal(t, "System.String", uid)
	assert.Equal(t, "#x", anchor)

	_, _, ok = ParseXref("https://x")
	assert.False(t, ok)
}

func TestApplyEdits(t *testing.T) {
	out, err := applyEdits("abcdef", []edit{{start: 4, end: 5, replacement: "E"}, {start: 0, end: 1, replacement: "AA"}})
	require.NoError(t, err)
	assert.Equal(t, "AAbcdEf", out)

	_, err = applyEdits("abcdef", []edit{{start: 1, end: 4}, {start: 3, end: 5}})
	assert.Error(t, err)
}
