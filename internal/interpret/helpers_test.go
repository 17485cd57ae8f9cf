package interpret

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/diagnostics"
	"git.home.luguber.info/inful/docschema/internal/markdown"
	"git.home.luguber.info/inful/docschema/internal/schema"
)

type mapFiles map[string]string

func (m mapFiles) ReadFile(p string) (string, bool) {
	s, ok := m[p]
	return s, ok
}

// htmlPaths maps .yml and .md sources to .html outputs.
type htmlPaths struct{}

func (htmlPaths) ResolvePath(p string) (string, bool) {
	for _, ext := range []string{".yml", ".md"} {
		if strings.HasSuffix(p, ext) {
			return strings.TrimSuffix(p, ext) + ".html", true
		}
	}
	return "", false
}

func newTestContext(t *testing.T, doc string, files mapFiles) (*Context, *diagnostics.Collector) {
	t.Helper()
	sink := diagnostics.NewCollector(nil)
	r, err := markdown.NewRenderer(markdown.Options{}, markdown.WithFiles(files), markdown.WithSink(sink))
	require.NoError(t, err)
	return NewContext(doc, Collaborators{Renderer: r, Files: files, Sink: sink}), sink
}

func mustParseSchema(t *testing.T, src string) *schema.Schema {
	t.Helper()
	s, err := schema.Parse("test.schema.json", []byte(src))
	require.NoError(t, err)
	return s
}

func mustParseContent(t *testing.T, src string) content.Value {
	t.Helper()
	v, err := content.ParseYAML([]byte(src))
	require.NoError(t, err)
	return v
}
