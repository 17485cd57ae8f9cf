package interpret

import (
	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
	"git.home.luguber.info/inful/docschema/internal/schema"
)

// MarkdownInterpreter renders markdown strings to HTML. It is not
// idempotent: every run adds the rendered links again, so a node must be
// interpreted once.
type MarkdownInterpreter struct{}

func (MarkdownInterpreter) CanInterpret(s *schema.Schema) bool {
	return s != nil && s.ContentType == schema.ContentTypeMarkdown
}

func (MarkdownInterpreter) Interpret(s *schema.Schema, value content.Value, ctx *Context, path string) (content.Value, error) {
	src, ok, err := stringValue(s, value, ctx, path)
	if err != nil || !ok {
		return value, err
	}
	if ctx.Renderer == nil {
		return value, nil
	}
	file := ctx.GetOriginalSourceFile(path)
	res, err := ctx.Renderer.Render(src, file)
	if err != nil {
		return nil, wrapRenderError(err, ctx, path)
	}
	ctx.AddResult(res)
	return content.String(stampLocation(res.HTML, file, 0)), nil
}

// MarkdownASTInterpreter renders documents that are already parsed and
// hands everything else to Inner.
type MarkdownASTInterpreter struct {
	Inner Interpreter
}

func (MarkdownASTInterpreter) CanInterpret(*schema.Schema) bool { return true }

func (m MarkdownASTInterpreter) Interpret(s *schema.Schema, value content.Value, ctx *Context, path string) (content.Value, error) {
	doc, ok := value.(*content.Document)
	if !ok {
		if m.Inner.CanInterpret(s) {
			return m.Inner.Interpret(s, value, ctx, path)
		}
		return value, nil
	}
	if ctx.Renderer == nil {
		return content.String(string(doc.Source)), nil
	}
	res, err := ctx.Renderer.RenderDocument(doc)
	if err != nil {
		return nil, wrapRenderError(err, ctx, path)
	}
	ctx.AddResult(res)
	file := doc.File
	if file == "" {
		file = ctx.GetOriginalSourceFile(path)
	}
	return content.String(stampLocation(res.HTML, file, doc.Line)), nil
}

// MarkdownWithContentAnchorInterpreter swaps markdown written in the
// document itself for an anchor token so rendering can happen after
// overwrites are merged. Transcluded markdown is rendered right away.
type MarkdownWithContentAnchorInterpreter struct {
	Inner Interpreter
}

func (MarkdownWithContentAnchorInterpreter) CanInterpret(*schema.Schema) bool { return true }

func (m MarkdownWithContentAnchorInterpreter) Interpret(s *schema.Schema, value content.Value, ctx *Context, path string) (content.Value, error) {
	if ctx.Anchors != nil && s.ContentType == schema.ContentTypeMarkdown && !ctx.IsTranscluded(path) {
		if src, ok := value.(content.String); ok {
			return content.String(ctx.Anchors.Parse(string(src), ctx.Document)), nil
		}
	}
	if m.Inner.CanInterpret(s) {
		return m.Inner.Interpret(s, value, ctx, path)
	}
	return value, nil
}

func wrapRenderError(err error, ctx *Context, path string) error {
	return errors.WrapError(err, errors.CategoryMarkdown, "failed to render markdown").
		Fatal().
		WithContext("path", pathOrRoot(path)).
		WithContext("file", ctx.GetOriginalSourceFile(path)).
		Build()
}

// ExpandAnchors renders every anchor token left in value by
// MarkdownWithContentAnchorInterpreter.
func ExpandAnchors(value content.Value, ctx *Context) (content.Value, error) {
	if ctx.Anchors == nil || ctx.Renderer == nil {
		return value, nil
	}
	return content.Walk(value, "", func(path string, v content.Value) (content.Value, error) {
		token, ok := content.AsString(v)
		if !ok {
			return v, nil
		}
		anchor, found := ctx.Anchors.Lookup(token)
		if !found {
			return v, nil
		}
		res, err := ctx.Renderer.Render(anchor.Source, anchor.File)
		if err != nil {
			return nil, wrapRenderError(err, ctx, path)
		}
		ctx.AddResult(res)
		return content.String(stampLocation(res.HTML, anchor.File, 0)), nil
	})
}
