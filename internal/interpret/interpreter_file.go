package interpret

import (
	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/docpath"
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
	"git.home.luguber.info/inful/docschema/internal/schema"
	"git.home.luguber.info/inful/docschema/internal/xref"
)

// FileInterpreter resolves file references and records them as file links.
type FileInterpreter struct{}

func (FileInterpreter) CanInterpret(s *schema.Schema) bool {
	return s != nil && s.ContentType == schema.ContentTypeFile
}

func (FileInterpreter) Interpret(s *schema.Schema, value content.Value, ctx *Context, path string) (content.Value, error) {
	return resolveLink(s, value, ctx, path)
}

// HrefInterpreter resolves relative hrefs. Absolute and root-relative
// hrefs are left alone.
type HrefInterpreter struct{}

func (HrefInterpreter) CanInterpret(s *schema.Schema) bool {
	return s != nil && s.ContentType == schema.ContentTypeHref
}

func (HrefInterpreter) Interpret(s *schema.Schema, value content.Value, ctx *Context, path string) (content.Value, error) {
	return resolveLink(s, value, ctx, path)
}

func resolveLink(s *schema.Schema, value content.Value, ctx *Context, path string) (content.Value, error) {
	ref, ok, err := stringValue(s, value, ctx, path)
	if err != nil || !ok || !docpath.IsLocal(ref) {
		return value, err
	}
	p, query, fragment := docpath.SplitRef(ref)
	if p == "" {
		return value, nil
	}
	origin := ctx.GetOriginalSourceFile(path)
	target := docpath.ResolveFromFile(origin, p)
	ctx.FileLinkSources.Add(xref.LinkSourceInfo{Target: target, SourceFile: origin, Anchor: fragment})

	if ctx.Paths == nil {
		return content.String(target + query + fragment), nil
	}
	out, ok := ctx.Paths.ResolvePath(target)
	if !ok {
		return content.String(target + query + fragment), nil
	}
	return content.String(docpath.Relative(ctx.OutputPath(), out) + query + fragment), nil
}

// FileIncludeInterpreter replaces a path with the text of the file it
// names. Everything under the node is then attributed to that file.
type FileIncludeInterpreter struct{}

func (FileIncludeInterpreter) CanInterpret(s *schema.Schema) bool {
	return s != nil && s.Reference == schema.ReferenceFile
}

func (FileIncludeInterpreter) Interpret(s *schema.Schema, value content.Value, ctx *Context, path string) (content.Value, error) {
	ref, ok, err := stringValue(s, value, ctx, path)
	if err != nil || !ok || ctx.Files == nil || !docpath.IsLocal(ref) {
		return value, err
	}
	p, _, _ := docpath.SplitRef(ref)
	target := docpath.ResolveFromFile(ctx.GetOriginalSourceFile(path), p)
	text, found := ctx.Files.ReadFile(target)
	if !found {
		return nil, errors.ContentError("included file not found").
			WithContext("target", target).
			WithContext("path", pathOrRoot(path)).
			WithContext("file", ctx.GetOriginalSourceFile(path)).
			Build()
	}
	ctx.SetOriginalSourceFile(path, target)
	ctx.Dependency.Add(target)
	return content.String(text), nil
}
