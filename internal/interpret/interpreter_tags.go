package interpret

import (
	"sort"

	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/schema"
)

// TagInterpreter handles nodes carrying a schema tag.
type TagInterpreter interface {
	// Matches reports whether the handler applies to tag.
	Matches(tag string) bool
	// Order sorts handlers for the same tag, lowest first.
	Order() int
	Interpret(tag string, s *schema.Schema, value content.Value, ctx *Context, path string) (content.Value, error)
}

// TagsInterpreter runs registered tag handlers for every tag a node declares.
type TagsInterpreter struct {
	handlers []TagInterpreter
}

// NewTagsInterpreter returns a tags interpreter over handlers.
func NewTagsInterpreter(handlers ...TagInterpreter) *TagsInterpreter {
	sorted := make([]TagInterpreter, len(handlers))
	copy(sorted, handlers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order() < sorted[j].Order() })
	return &TagsInterpreter{handlers: sorted}
}

func (t *TagsInterpreter) CanInterpret(s *schema.Schema) bool {
	return s != nil && len(s.Tags) > 0 && len(t.handlers) > 0
}

func (t *TagsInterpreter) Interpret(s *schema.Schema, value content.Value, ctx *Context, path string) (content.Value, error) {
	for _, tag := range s.Tags {
		for _, h := range t.handlers {
			if !h.Matches(tag) {
				continue
			}
			nv, err := h.Interpret(tag, s, value, ctx, path)
			if err != nil {
				return nil, err
			}
			value = nv
		}
	}
	return value, nil
}
