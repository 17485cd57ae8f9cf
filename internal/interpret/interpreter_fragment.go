package interpret

import (
	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/diagnostics"
	"git.home.luguber.info/inful/docschema/internal/schema"
)

// FragmentValidationInterpreter warns when a markdown fragment overwrites a
// node that does not allow it. The value is kept either way.
type FragmentValidationInterpreter struct{}

func (FragmentValidationInterpreter) CanInterpret(*schema.Schema) bool { return true }

func (FragmentValidationInterpreter) Interpret(s *schema.Schema, value content.Value, ctx *Context, path string) (content.Value, error) {
	if !ctx.IsFragment(path) {
		return value, nil
	}
	switch value.(type) {
	case *content.Object, *content.Array:
		return value, nil
	case *content.Document:
		if s.ContentType != schema.ContentTypeMarkdown {
			ctx.report(diagnostics.CodeFragmentNotMarkdown,
				"markdown fragment targets a "+s.ContentType.String()+" property", path)
			return value, nil
		}
	}
	if s.MergeType == schema.MergeTypeKey {
		return value, nil
	}
	if !s.HasTag(schema.TagEditable) && s.ContentType != schema.ContentTypeMarkdown {
		ctx.report(diagnostics.CodeFragmentNotEditable, "fragment overwrites a property that is not editable", path)
	}
	return value, nil
}
