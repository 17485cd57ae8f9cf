package interpret

import (
	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/diagnostics"
	"git.home.luguber.info/inful/docschema/internal/markdown"
	"git.home.luguber.info/inful/docschema/internal/util/sets"
	"git.home.luguber.info/inful/docschema/internal/xref"
)

// MarkupRenderer renders markdown and reports what it references.
type MarkupRenderer interface {
	Render(src, file string) (*markdown.Result, error)
	RenderDocument(doc *content.Document) (*markdown.Result, error)
}

// PathResolver maps a logical source path to its output path.
type PathResolver interface {
	ResolvePath(logical string) (string, bool)
}

// ContentAnchorParser defers markdown rendering behind opaque tokens.
type ContentAnchorParser interface {
	Parse(src, file string) string
	Lookup(token string) (markdown.Anchor, bool)
}

// FileReader reads build files by logical path.
type FileReader interface {
	ReadFile(logical string) (string, bool)
}

// Collaborators are the services an interpretation may call. They are
// built once by the host and shared by every Context.
type Collaborators struct {
	Renderer MarkupRenderer
	Paths    PathResolver
	Anchors  ContentAnchorParser
	Files    FileReader
	Sink     diagnostics.Sink
}

// Context accumulates everything interpreting one document produces. A
// Context belongs to exactly one document and one build.
type Context struct {
	// Document is the logical path of the document being interpreted.
	Document string
	// Root is the tree currently being processed.
	Root content.Value

	Uids              []xref.UidDefinition
	FileLinkSources   xref.LinkSources
	UidLinkSources    xref.LinkSources
	Dependency        sets.Set[string]
	XRefSpecs         []*xref.XRefSpec
	ExternalXRefSpecs []*xref.XRefSpec

	Collaborators

	originalSources map[string]string
	fragmentPaths   sets.Set[string]
}

// NewContext returns an empty context for document.
func NewContext(document string, c Collaborators) *Context {
	if c.Sink == nil {
		c.Sink = diagnostics.Discard
	}
	return &Context{
		Document:        document,
		FileLinkSources: xref.LinkSources{},
		UidLinkSources:  xref.LinkSources{},
		Dependency:      sets.New[string](),
		Collaborators:   c,
		originalSources: make(map[string]string),
		fragmentPaths:   sets.New[string](),
	}
}

// GetOriginalSourceFile returns the file the subtree at path came from: the
// closest recorded ancestor, else the document itself.
func (c *Context) GetOriginalSourceFile(path string) string {
	for p := path; ; p = content.Parent(p) {
		if file, ok := c.originalSources[p]; ok {
			return file
		}
		if p == "" {
			return c.Document
		}
	}
}

// SetOriginalSourceFile records that the subtree at path came from file.
func (c *Context) SetOriginalSourceFile(path, file string) {
	c.originalSources[path] = file
}

// IsTranscluded reports whether the subtree at path was read from another file.
func (c *Context) IsTranscluded(path string) bool {
	return c.GetOriginalSourceFile(path) != c.Document
}

// MarkFragment records that the value at path was supplied by a markdown fragment.
func (c *Context) MarkFragment(path string) { c.fragmentPaths.Add(path) }

// IsFragment reports whether the value at path was supplied by a fragment.
func (c *Context) IsFragment(path string) bool { return c.fragmentPaths.Has(path) }

// AddUid records a uid definition unless the same uid is already defined at path.
func (c *Context) AddUid(def xref.UidDefinition) {
	for _, existing := range c.Uids {
		if existing.UID == def.UID && existing.Path == def.Path {
			return
		}
	}
	c.Uids = append(c.Uids, def)
}

// UpsertXRefSpec adds spec to the internal or external list. A spec with
// the same uid already in that list absorbs the properties of spec.
func (c *Context) UpsertXRefSpec(spec *xref.XRefSpec, internal bool) {
	list := &c.ExternalXRefSpecs
	if internal {
		list = &c.XRefSpecs
	}
	for _, existing := range *list {
		if existing.UID == spec.UID {
			for k, v := range spec.Properties {
				existing.Set(k, v)
			}
			return
		}
	}
	*list = append(*list, spec)
}

// AddResult merges what a render reported into the context.
func (c *Context) AddResult(res *markdown.Result) {
	if res == nil {
		return
	}
	c.FileLinkSources.Merge(res.FileLinkSources)
	c.UidLinkSources.Merge(res.UidLinkSources)
	c.Dependency.Union(res.Dependency)
}

// Absorb unions the link sources and dependencies of other into c.
func (c *Context) Absorb(other *Context) {
	c.FileLinkSources.Merge(other.FileLinkSources)
	c.UidLinkSources.Merge(other.UidLinkSources)
	c.Dependency.Union(other.Dependency)
}

// OutputPath returns where the document is written, falling back to its
// logical path when no resolver is configured.
func (c *Context) OutputPath() string {
	if c.Paths != nil {
		if out, ok := c.Paths.ResolvePath(c.Document); ok {
			return out
		}
	}
	return c.Document
}

func (c *Context) report(code diagnostics.Code, msg, path string) {
	c.Sink.Report(diagnostics.Diagnostic{
		Code:    code,
		Message: msg,
		UID:     c.uidFor(path),
		Path:    path,
		File:    c.GetOriginalSourceFile(path),
	})
}

// uidFor returns the uid defined closest above path, if any.
func (c *Context) uidFor(path string) string {
	best, bestLen := "", -1
	for _, def := range c.Uids {
		if len(def.Path) > bestLen && isAncestorOrSelf(content.Parent(def.Path), path) {
			best, bestLen = def.UID, len(def.Path)
		}
	}
	return best
}

func isAncestorOrSelf(ancestor, path string) bool {
	if ancestor == "" {
		return true
	}
	return path == ancestor || (len(path) > len(ancestor) && path[:len(ancestor)] == ancestor && path[len(ancestor)] == '/')
}
