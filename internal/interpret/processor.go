// Package interpret walks a content tree in lock-step with its schema and
// runs an ordered pipeline of content-type aware interpreters over every
// node that has a schema.
package interpret

import (
	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
	"git.home.luguber.info/inful/docschema/internal/schema"
)

// Interpreter rewrites a single node. Side effects are limited to the
// Context passed in.
type Interpreter interface {
	CanInterpret(s *schema.Schema) bool
	Interpret(s *schema.Schema, value content.Value, ctx *Context, path string) (content.Value, error)
}

// Processor drives interpreters over a content tree. It holds no per-document
// state and may be shared between goroutines.
type Processor struct {
	interpreters []Interpreter
}

// NewProcessor returns a processor running interpreters in the given order.
func NewProcessor(interpreters ...Interpreter) *Processor {
	return &Processor{interpreters: interpreters}
}

// Process interprets value against s and returns the rewritten tree.
func (p *Processor) Process(value content.Value, s *schema.Schema, ctx *Context) (content.Value, error) {
	ctx.Root = value
	out, err := p.process(value, s, ctx, "")
	if err != nil {
		return nil, err
	}
	ctx.Root = out
	return out, nil
}

func (p *Processor) process(value content.Value, s *schema.Schema, ctx *Context, path string) (content.Value, error) {
	if s == nil {
		return value, nil
	}

	switch v := value.(type) {
	case *content.Object:
		if v != nil && len(s.Properties) > 0 {
			for _, key := range v.Keys() {
				child := s.Properties[key]
				if child == nil {
					continue
				}
				nv, err := p.process(v.Fields[key], child, ctx, content.Join(path, key))
				if err != nil {
					return nil, err
				}
				v.Fields[key] = nv
			}
		}
	case *content.Array:
		if v != nil && s.Items != nil {
			for i, item := range v.Items {
				nv, err := p.process(item, s.Items, ctx, content.JoinIndex(path, i))
				if err != nil {
					return nil, err
				}
				v.Items[i] = nv
			}
		}
	}

	for _, in := range p.interpreters {
		if !in.CanInterpret(s) {
			continue
		}
		nv, err := in.Interpret(s, value, ctx, path)
		if err != nil {
			return nil, err
		}
		value = nv
	}
	return value, nil
}

// DefaultInterpreters returns the pipeline for base documents. The order
// is significant: wrapper interpreters must stay adjacent to the
// interpreter they wrap.
func DefaultInterpreters(tags ...TagInterpreter) []Interpreter {
	return []Interpreter{
		UidInterpreter{},
		XrefPropertiesInterpreter{},
		FileIncludeInterpreter{},
		markdownChain(),
		FileInterpreter{},
		HrefInterpreter{},
		XrefInterpreter{},
		NewTagsInterpreter(tags...),
	}
}

// OverwriteInterpreters returns the pipeline for documents that received
// markdown fragments or overwrite entries: the default pipeline with
// fragment validation ahead of markdown rendering.
func OverwriteInterpreters(tags ...TagInterpreter) []Interpreter {
	return []Interpreter{
		UidInterpreter{},
		XrefPropertiesInterpreter{},
		FileIncludeInterpreter{},
		FragmentValidationInterpreter{},
		markdownChain(),
		FileInterpreter{},
		HrefInterpreter{},
		XrefInterpreter{},
		NewTagsInterpreter(tags...),
	}
}

func markdownChain() Interpreter {
	return MarkdownWithContentAnchorInterpreter{
		Inner: MarkdownASTInterpreter{Inner: MarkdownInterpreter{}},
	}
}

// stringValue extracts the string payload of a string-typed node. Null
// values and parsed documents are skipped; any other shape is fatal for the
// document.
func stringValue(s *schema.Schema, value content.Value, ctx *Context, path string) (string, bool, error) {
	switch v := value.(type) {
	case content.String:
		return string(v), true, nil
	case nil, content.Null, *content.Document:
		return "", false, nil
	default:
		return "", false, errors.ContentError("value does not match its content type").
			WithContext("content_type", s.ContentType.String()).
			WithContext("kind", content.KindOf(value).String()).
			WithContext("path", pathOrRoot(path)).
			WithContext("file", ctx.GetOriginalSourceFile(path)).
			Build()
	}
}

func pathOrRoot(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
