package interpret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/diagnostics"
	"git.home.luguber.info/inful/docschema/internal/markdown"
	"git.home.luguber.info/inful/docschema/internal/schema"
	"git.home.luguber.info/inful/docschema/internal/xref"
)

func TestUidInterpreterAddsDefinitionAndPlaceholderSpec(t *testing.T) {
	ctx := NewContext("api/M.Foo.yml", Collaborators{})
	s := &schema.Schema{Type: schema.TypeString, ContentType: schema.ContentTypeUid}

	out, err := UidInterpreter{}.Interpret(s, content.String("M.Foo"), ctx, "/uid")
	require.NoError(t, err)

	assert.Equal(t, content.String("M.Foo"), out)
	assert.Equal(t, []xref.UidDefinition{{UID: "M.Foo", File: "api/M.Foo.yml", Path: "/uid"}}, ctx.Uids)
	require.Len(t, ctx.XRefSpecs, 1)
	assert.Equal(t, "M.Foo", ctx.XRefSpecs[0].UID)
	assert.Empty(t, ctx.XRefSpecs[0].Properties)
	assert.Empty(t, ctx.ExternalXRefSpecs)
}

func TestHrefInterpreter(t *testing.T) {
	s := &schema.Schema{Type: schema.TypeString, ContentType: schema.ContentTypeHref}

	t.Run("relative path resolves against the originating file", func(t *testing.T) {
		ctx := NewContext("a/b.md", Collaborators{})
		out, err := HrefInterpreter{}.Interpret(s, content.String("../c.md#frag"), ctx, "/href")
		require.NoError(t, err)

		require.Len(t, ctx.FileLinkSources["a/c.md"], 1)
		assert.Equal(t, xref.LinkSourceInfo{Target: "a/c.md", SourceFile: "a/b.md", Anchor: "#frag"}, ctx.FileLinkSources["a/c.md"][0])
		assert.Equal(t, content.String("a/c.md#frag"), out)
	})

	t.Run("each further parent segment climbs one directory", func(t *testing.T) {
		ctx := NewContext("a/b/d.md", Collaborators{})
		_, err := HrefInterpreter{}.Interpret(s, content.String("../../c.md"), ctx, "/href")
		require.NoError(t, err)
		require.Len(t, ctx.FileLinkSources["a/c.md"], 1)
	})

	for _, value := range []string{"https://x/y", "/z", "#top"} {
		t.Run(value+" is left alone", func(t *testing.T) {
			ctx := NewContext("a/b.md", Collaborators{})
			out, err := HrefInterpreter{}.Interpret(s, content.String(value), ctx, "/href")
			require.NoError(t, err)
			assert.Equal(t, content.String(value), out)
			assert.Empty(t, ctx.FileLinkSources)
		})
	}

	t.Run("resolved output href keeps query and fragment", func(t *testing.T) {
		ctx := NewContext("api/a.yml", Collaborators{Paths: htmlPaths{}})
		out, err := HrefInterpreter{}.Interpret(s, content.String("../../guide/c.md?tabs=go#frag"), ctx, "/href")
		require.NoError(t, err)
		assert.Equal(t, content.String("../guide/c.html?tabs=go#frag"), out)
		assert.Equal(t, "guide/c.md", ctx.FileLinkSources["guide/c.md"][0].Target)
	})

	t.Run("transcluded subtree resolves against the included file", func(t *testing.T) {
		ctx := NewContext("api/a.yml", Collaborators{})
		ctx.SetOriginalSourceFile("/remarks", "shared/remarks.md")
		_, err := HrefInterpreter{}.Interpret(s, content.String("img.png"), ctx, "/remarks/href")
		require.NoError(t, err)
		assert.Equal(t, "shared/remarks.md", ctx.FileLinkSources["shared/img.png"][0].SourceFile)
	})
}

func TestXrefInterpreterRecordsUidLink(t *testing.T) {
	ctx := NewContext("a.yml", Collaborators{})
	s := &schema.Schema{ContentType: schema.ContentTypeXref}

	out, err := XrefInterpreter{}.Interpret(s, content.String("System.String"), ctx, "/type")
	require.NoError(t, err)
	assert.Equal(t, content.String("System.String"), out)
	assert.Equal(t, []xref.LinkSourceInfo{{Target: "System.String", SourceFile: "a.yml"}}, ctx.UidLinkSources["System.String"])
}

const referenceSchema = `{
	"type": "object",
	"properties": {
		"uid": {"type": "string", "contentType": "uid"},
		"name": {"type": "string"},
		"summary": {"type": "string", "contentType": "markdown"},
		"children": {"type": "array", "items": {"type": "string", "contentType": "xref"}},
		"references": {
			"type": "array",
			"items": {
				"type": "object",
				"xrefProperties": ["name", "fullName", "href"],
				"properties": {"uid": {"type": "string"}}
			}
		}
	},
	"xrefProperties": ["name", "rank"]
}`

func TestXrefPropertiesInternalAndExternal(t *testing.T) {
	s := mustParseSchema(t, referenceSchema)
	v := mustParseContent(t, `uid: M.Foo
name: Foo
rank: 3
summary: Hello
children: [M.Foo.Bar]
references:
  - uid: System.String
    name: String
    fullName: System.String
  - name: no uid
`)
	ctx, sink := newTestContext(t, "api/M.Foo.yml", nil)
	ctx.Paths = htmlPaths{}

	_, err := NewProcessor(DefaultInterpreters()...).Process(v, s, ctx)
	require.NoError(t, err)

	require.Len(t, ctx.Uids, 1)
	assert.Equal(t, "/uid", ctx.Uids[0].Path)

	require.Len(t, ctx.XRefSpecs, 1)
	assert.Equal(t, map[string]string{"name": "Foo", "href": "api/M.Foo.html"}, ctx.XRefSpecs[0].Properties)

	require.Len(t, ctx.ExternalXRefSpecs, 1)
	assert.Equal(t, "System.String", ctx.ExternalXRefSpecs[0].UID)
	assert.Equal(t, map[string]string{"name": "String", "fullName": "System.String"}, ctx.ExternalXRefSpecs[0].Properties)

	assert.Equal(t, 1, sink.Count(diagnostics.CodeXrefPropertyNotString))
	d := sink.Items()[0]
	assert.Equal(t, "/rank", d.Path)
	assert.Equal(t, "M.Foo", d.UID)
	assert.Equal(t, "api/M.Foo.yml", d.File)

	assert.Len(t, ctx.UidLinkSources["M.Foo.Bar"], 1)
}

func TestXrefResolverDirectives(t *testing.T) {
	s := mustParseSchema(t, `{
		"properties": {"uid": {"contentType": "uid"}},
		"xrefResolver": "strings"
	}`)
	v := mustParseContent(t, "uid: U\nname: N\ncount: 2\n")
	ctx := NewContext("u.yml", Collaborators{})

	_, err := NewProcessor(DefaultInterpreters()...).Process(v, s, ctx)
	require.NoError(t, err)
	require.Len(t, ctx.XRefSpecs, 1)
	assert.Equal(t, map[string]string{"name": "N", "href": "u.yml"}, ctx.XRefSpecs[0].Properties)

	s.XrefResolver = "bogus"
	s.XrefProperties = []string{"name"}
	sink := diagnostics.NewCollector(nil)
	ctx = NewContext("u.yml", Collaborators{Sink: sink})
	_, err = NewProcessor(DefaultInterpreters()...).Process(mustParseContent(t, "uid: U\nname: N\n"), s, ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sink.Count(diagnostics.CodeXrefResolverUnknown))
	assert.Equal(t, "N", ctx.XRefSpecs[0].Properties["name"])
}

func TestFileIncludeTranscludesAndAttributes(t *testing.T) {
	s := mustParseSchema(t, `{
		"properties": {
			"remarks": {"type": "string", "reference": "file", "contentType": "markdown"},
			"missing": {"type": "string", "reference": "file", "contentType": "markdown"}
		}
	}`)
	files := mapFiles{"docs/shared/remarks.md": "See [guide](guide.md).\n"}
	ctx, _ := newTestContext(t, "docs/api/a.yml", files)
	ctx.Anchors = markdown.NewAnchorParser()

	out, err := NewProcessor(DefaultInterpreters()...).Process(mustParseContent(t, "remarks: ../../shared/remarks.md\n"), s, ctx)
	require.NoError(t, err)

	html, _ := out.(*content.Object).GetString("remarks")
	assert.Contains(t, html, `sourcefile="docs/shared/remarks.md"`)
	assert.Contains(t, html, `href="guide.md"`)
	assert.True(t, ctx.Dependency.Has("docs/shared/remarks.md"))
	require.Len(t, ctx.FileLinkSources["docs/shared/guide.md"], 1)
	assert.Equal(t, "docs/shared/remarks.md", ctx.FileLinkSources["docs/shared/guide.md"][0].SourceFile)

	_, err = NewProcessor(DefaultInterpreters()...).Process(mustParseContent(t, "missing: nope.md\n"), s, NewContext("docs/api/a.yml", Collaborators{Files: files}))
	require.Error(t, err)
}

func TestMarkdownRenderingAndAnchors(t *testing.T) {
	s := mustParseSchema(t, `{"properties": {"summary": {"type": "string", "contentType": "markdown"}, "remarks": {"contentType": "markdown"}}}`)

	t.Run("renders immediately without an anchor parser", func(t *testing.T) {
		ctx, _ := newTestContext(t, "a.yml", nil)
		out, err := NewProcessor(DefaultInterpreters()...).Process(mustParseContent(t, "summary: Use <xref:M.Bar>\n"), s, ctx)
		require.NoError(t, err)
		html, _ := out.(*content.Object).GetString("summary")
		assert.Contains(t, html, `<p sourcefile="a.yml">`)
		assert.Len(t, ctx.UidLinkSources["M.Bar"], 1)
	})

	t.Run("defers behind anchors until expanded", func(t *testing.T) {
		ctx, _ := newTestContext(t, "a.yml", nil)
		ctx.Anchors = markdown.NewAnchorParser()
		out, err := NewProcessor(DefaultInterpreters()...).Process(mustParseContent(t, "summary: Use <xref:M.Bar>\n"), s, ctx)
		require.NoError(t, err)

		token, _ := out.(*content.Object).GetString("summary")
		assert.True(t, markdown.IsAnchorToken(token))
		assert.Empty(t, ctx.UidLinkSources)

		out, err = ExpandAnchors(out, ctx)
		require.NoError(t, err)
		html, _ := out.(*content.Object).GetString("summary")
		assert.Contains(t, html, `href="xref:M.Bar"`)
		assert.Len(t, ctx.UidLinkSources["M.Bar"], 1)
	})

	t.Run("parsed documents render without a second parse", func(t *testing.T) {
		ctx, _ := newTestContext(t, "a.yml", nil)
		r := ctx.Renderer.(*markdown.Renderer)
		v := content.NewObject().Set("remarks", r.Parse("**bold**", "a.yml.md", 7))
		out, err := NewProcessor(OverwriteInterpreters()...).Process(v, s, ctx)
		require.NoError(t, err)
		html, _ := out.(*content.Object).GetString("remarks")
		assert.Equal(t, `<p sourcefile="a.yml.md" sourcestartlinenumber="7"><strong>bold</strong></p>`+"\n", html)
	})
}

func TestFragmentValidationIsLenient(t *testing.T) {
	s := mustParseSchema(t, `{
		"properties": {
			"uid": {"contentType": "uid", "mergeType": "key"},
			"name": {"type": "string"},
			"title": {"type": "string", "tags": ["editable"]},
			"summary": {"type": "string", "contentType": "markdown"},
			"syntax": {"type": "object"}
		}
	}`)
	doc := &content.Document{Source: []byte("x"), File: "f.md"}
	tests := []struct {
		name  string
		value content.Value
		code  diagnostics.Code
	}{
		{"uid", content.String("U"), ""},
		{"name", content.String("n"), diagnostics.CodeFragmentNotEditable},
		{"title", content.String("t"), ""},
		{"summary", doc, ""},
		{"name", doc, diagnostics.CodeFragmentNotMarkdown},
		{"syntax", content.NewObject(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := diagnostics.NewCollector(nil)
			ctx := NewContext("a.yml", Collaborators{Sink: sink})
			path := content.Join("", tt.name)
			ctx.MarkFragment(path)

			out, err := FragmentValidationInterpreter{}.Interpret(s.Property(tt.name), tt.value, ctx, path)
			require.NoError(t, err)
			assert.Equal(t, tt.value, out)
			if tt.code == "" {
				assert.Zero(t, sink.Len())
				return
			}
			assert.Equal(t, 1, sink.Count(tt.code))
		})
	}

	t.Run("values not supplied by fragments are not checked", func(t *testing.T) {
		sink := diagnostics.NewCollector(nil)
		ctx := NewContext("a.yml", Collaborators{Sink: sink})
		_, err := FragmentValidationInterpreter{}.Interpret(s.Property("name"), content.String("n"), ctx, "/name")
		require.NoError(t, err)
		assert.Zero(t, sink.Len())
	})
}

type suffixTag struct {
	tag, suffix string
	order       int
}

func (h suffixTag) Matches(tag string) bool { return tag == h.tag }
func (h suffixTag) Order() int              { return h.order }
func (h suffixTag) Interpret(_ string, _ *schema.Schema, v content.Value, _ *Context, _ string) (content.Value, error) {
	s, _ := content.AsString(v)
	return content.String(s + h.suffix), nil
}

func TestTagsInterpreterRunsHandlersInOrder(t *testing.T) {
	tags := NewTagsInterpreter(
		suffixTag{tag: "upper", suffix: "-late", order: 10},
		suffixTag{tag: "upper", suffix: "-early", order: 1},
		suffixTag{tag: "other", suffix: "-other"},
	)
	s := &schema.Schema{Tags: []string{"upper"}}
	assert.True(t, tags.CanInterpret(s))
	assert.False(t, tags.CanInterpret(&schema.Schema{}))
	assert.False(t, NewTagsInterpreter().CanInterpret(s))

	out, err := tags.Interpret(s, content.String("v"), NewContext("a.yml", Collaborators{}), "/x")
	require.NoError(t, err)
	assert.Equal(t, content.String("v-early-late"), out)
}
