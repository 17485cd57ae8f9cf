package interpret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
	"git.home.luguber.info/inful/docschema/internal/schema"
)

// recorder appends a marker to string values and logs visited paths.
type recorder struct {
	marker string
	paths  *[]string
}

func (r recorder) CanInterpret(s *schema.Schema) bool { return s.Type == schema.TypeString }

func (r recorder) Interpret(_ *schema.Schema, v content.Value, _ *Context, path string) (content.Value, error) {
	*r.paths = append(*r.paths, r.marker+path)
	s, _ := content.AsString(v)
	return content.String(s + r.marker), nil
}

func TestProcessorPipelineAndPassthrough(t *testing.T) {
	s := mustParseSchema(t, `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"items": {"type": "array", "items": {"type": "object", "properties": {"id": {"type": "string"}}}}
		}
	}`)
	v := mustParseContent(t, "name: n\nextra: keep\nitems:\n  - id: a\n    other: x\n  - id: b\n")

	var paths []string
	p := NewProcessor(recorder{marker: "1", paths: &paths}, recorder{marker: "2", paths: &paths})
	ctx := NewContext("a.yml", Collaborators{})

	out, err := p.Process(v, s, ctx)
	require.NoError(t, err)

	obj := out.(*content.Object)
	name, _ := obj.GetString("name")
	assert.Equal(t, "n12", name)
	extra, _ := obj.GetString("extra")
	assert.Equal(t, "keep", extra)

	first := obj.Fields["items"].(*content.Array).Items[0].(*content.Object)
	id, _ := first.GetString("id")
	other, _ := first.GetString("other")
	assert.Equal(t, "a12", id)
	assert.Equal(t, "x", other)

	assert.Equal(t, []string{"1/items/0/id", "2/items/0/id", "1/items/1/id", "2/items/1/id", "1/name", "2/name"}, paths)
	assert.Same(t, out, ctx.Root)
}

func TestProcessorWithoutSchemaIsPassthrough(t *testing.T) {
	v := mustParseContent(t, "uid: M.Foo\n")
	out, err := NewProcessor(DefaultInterpreters()...).Process(v, nil, NewContext("a.yml", Collaborators{}))
	require.NoError(t, err)
	assert.True(t, content.Equal(v, out))
}

func TestProcessorStringInterpreterRejectsObjects(t *testing.T) {
	s := mustParseSchema(t, `{"properties": {"href": {"contentType": "href"}}}`)
	v := mustParseContent(t, "href:\n  nested: true\n")

	_, err := NewProcessor(DefaultInterpreters()...).Process(v, s, NewContext("a.yml", Collaborators{}))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryContent))
	assert.True(t, errors.HasSeverity(err, errors.SeverityFatal))
	assert.Contains(t, err.Error(), "path=/href")
}

func TestGetOriginalSourceFile(t *testing.T) {
	ctx := NewContext("a.yml", Collaborators{})
	ctx.SetOriginalSourceFile("/sections/1", "inc/s.md")

	assert.Equal(t, "a.yml", ctx.GetOriginalSourceFile(""))
	assert.Equal(t, "a.yml", ctx.GetOriginalSourceFile("/sections/0"))
	assert.Equal(t, "inc/s.md", ctx.GetOriginalSourceFile("/sections/1"))
	assert.Equal(t, "inc/s.md", ctx.GetOriginalSourceFile("/sections/1/body"))
	assert.Equal(t, "a.yml", ctx.GetOriginalSourceFile("/sections/10"))
	assert.True(t, ctx.IsTranscluded("/sections/1/body"))
}

func TestStampLocation(t *testing.T) {
	assert.Equal(t, `<p sourcefile="a.md" sourcestartlinenumber="3">x</p>`+"\n", stampLocation("<p>x</p>\n", "a.md", 3))
	assert.Equal(t, `<h1 id="t" sourcefile="a.md">T</h1><p>y</p>`, stampLocation(`<h1 id="t">T</h1><p>y</p>`, "a.md", 0))
	assert.Equal(t, "plain", stampLocation("plain", "a.md", 1))
	assert.Equal(t, "", stampLocation("", "a.md", 1))
}
