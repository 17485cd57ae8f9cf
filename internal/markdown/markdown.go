// Package markdown renders markdown with goldmark and reports what the
// rendered text references: relative file links, uid cross references and
// transcluded files.
package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/diagnostics"
	"git.home.luguber.info/inful/docschema/internal/docpath"
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
	"git.home.luguber.info/inful/docschema/internal/foundation/normalization"
	"git.home.luguber.info/inful/docschema/internal/util/sets"
	"git.home.luguber.info/inful/docschema/internal/xref"
)

var extensionNormalizer = normalization.NewNormalizer("markdown extension", map[string]goldmark.Extender{
	"gfm":            extension.GFM,
	"table":          extension.Table,
	"strikethrough":  extension.Strikethrough,
	"linkify":        extension.Linkify,
	"tasklist":       extension.TaskList,
	"footnote":       extension.Footnote,
	"definitionlist": extension.DefinitionList,
	"typographer":    extension.Typographer,
}, nil)

// Options configures the goldmark instance shared by a Renderer.
type Options struct {
	// Extensions names goldmark extensions, e.g. "gfm" or "footnote".
	Extensions []string
	// Unsafe passes raw HTML through.
	Unsafe bool
	// MaxIncludeDepth bounds nested includes. Zero selects 8.
	MaxIncludeDepth int
}

// FileReader reads build files by logical path.
type FileReader interface {
	ReadFile(logical string) (string, bool)
}

// PathResolver maps a logical source path to its output path.
type PathResolver interface {
	ResolvePath(logical string) (string, bool)
}

// Result is what rendering one markdown text produced.
type Result struct {
	HTML            string
	FileLinkSources xref.LinkSources
	UidLinkSources  xref.LinkSources
	Dependency      sets.Set[string]
}

func newResult() *Result {
	return &Result{
		FileLinkSources: xref.LinkSources{},
		UidLinkSources:  xref.LinkSources{},
		Dependency:      sets.New[string](),
	}
}

// Renderer renders markdown. It is built once per build and is safe for
// concurrent use.
type Renderer struct {
	md       goldmark.Markdown
	files    FileReader
	paths    PathResolver
	sink     diagnostics.Sink
	maxDepth int
}

// RendererOption customizes a Renderer.
type RendererOption func(*Renderer)

// WithFiles enables include expansion against files.
func WithFiles(files FileReader) RendererOption {
	return func(r *Renderer) { r.files = files }
}

// WithPathResolver rewrites relative file links to output locations.
func WithPathResolver(paths PathResolver) RendererOption {
	return func(r *Renderer) { r.paths = paths }
}

// WithSink reports include problems to sink.
func WithSink(sink diagnostics.Sink) RendererOption {
	return func(r *Renderer) { r.sink = sink }
}

// NewRenderer builds a renderer from opts.
func NewRenderer(opts Options, options ...RendererOption) (*Renderer, error) {
	exts := make([]goldmark.Extender, 0, len(opts.Extensions))
	for _, name := range opts.Extensions {
		ext, err := extensionNormalizer.Parse(name)
		if err != nil {
			return nil, errors.ConfigError(err.Error()).WithContext("extension", name).Build()
		}
		if ext != nil {
			exts = append(exts, ext)
		}
	}
	var rendererOpts []goldmark.Option
	if opts.Unsafe {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(html.WithUnsafe()))
	}
	r := &Renderer{
		md: goldmark.New(append(rendererOpts,
			goldmark.WithExtensions(exts...),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		)...),
		sink:     diagnostics.Discard,
		maxDepth: opts.MaxIncludeDepth,
	}
	if r.maxDepth <= 0 {
		r.maxDepth = 8
	}
	for _, o := range options {
		o(r)
	}
	return r, nil
}

// Parse parses src into a document attributed to file, starting at line.
func (r *Renderer) Parse(src, file string, line int) *content.Document {
	source := []byte(src)
	return &content.Document{
		Source: source,
		Root:   r.md.Parser().Parse(text.NewReader(source)),
		File:   file,
		Line:   line,
	}
}

// Render expands includes in src, renders it and reports its references.
func (r *Renderer) Render(src, file string) (*Result, error) {
	res := newResult()
	expanded, err := r.expandIncludes(src, file, res, []string{file})
	if err != nil {
		return nil, err
	}
	return r.render(r.Parse(expanded, file, 1), res)
}

// RenderDocument renders an already parsed document.
func (r *Renderer) RenderDocument(doc *content.Document) (*Result, error) {
	if doc == nil || doc.Root == nil {
		return newResult(), nil
	}
	return r.render(doc, newResult())
}

func (r *Renderer) render(doc *content.Document, res *Result) (*Result, error) {
	restore := r.collectLinks(doc, res)
	defer restore()

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, doc.Source, doc.Root); err != nil {
		return nil, errors.MarkdownError("failed to render markdown").
			WithCause(err).
			WithContext("file", doc.File).
			Build()
	}
	res.HTML = buf.String()
	return res, nil
}

// collectLinks records the references of doc in res and temporarily
// rewrites resolvable file links. The returned func undoes the rewrite so
// the shared AST is left as parsed.
func (r *Renderer) collectLinks(doc *content.Document, res *Result) func() {
	type rewrite struct {
		dest *[]byte
		orig []byte
	}
	var rewrites []rewrite
	record := func(dest *[]byte) {
		raw := string(*dest)
		if uid, anchor, ok := ParseXref(raw); ok {
			res.UidLinkSources.Add(xref.LinkSourceInfo{Target: uid, SourceFile: doc.File, Anchor: anchor})
			return
		}
		if !docpath.IsLocal(raw) {
			return
		}
		p, query, fragment := docpath.SplitRef(raw)
		if p == "" {
			return
		}
		target := docpath.Resolve(doc.File, p)
		res.FileLinkSources.Add(xref.LinkSourceInfo{Target: target, SourceFile: doc.File, Anchor: fragment})
		if href, ok := r.outputHref(doc.File, target); ok {
			rewrites = append(rewrites, rewrite{dest: dest, orig: *dest})
			*dest = []byte(href + query + fragment)
		}
	}

	_ = gmast.Walk(doc.Root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Link:
			record(&node.Destination)
		case *gmast.Image:
			record(&node.Destination)
		case *gmast.AutoLink:
			if uid, anchor, ok := ParseXref(string(node.URL(doc.Source))); ok {
				res.UidLinkSources.Add(xref.LinkSourceInfo{Target: uid, SourceFile: doc.File, Anchor: anchor})
			}
		}
		return gmast.WalkContinue, nil
	})

	return func() {
		for _, rw := range rewrites {
			*rw.dest = rw.orig
		}
	}
}

func (r *Renderer) outputHref(from, target string) (string, bool) {
	if r.paths == nil {
		return "", false
	}
	out, ok := r.paths.ResolvePath(target)
	if !ok {
		return "", false
	}
	fromOut, ok := r.paths.ResolvePath(from)
	if !ok {
		fromOut = from
	}
	return docpath.Relative(fromOut, out), true
}

// ParseXref extracts the uid and anchor of an "xref:" reference.
func ParseXref(ref string) (uid, anchor string, ok bool) {
	if !strings.HasPrefix(strings.ToLower(ref), "xref:") {
		return "", "", false
	}
	p, _, fragment := docpath.SplitRef(ref[len("xref:"):])
	if p == "" {
		return "", "", false
	}
	return unescapeUID(p), fragment, true
}
