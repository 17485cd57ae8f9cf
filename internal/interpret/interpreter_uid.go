package interpret

import (
	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/schema"
	"git.home.luguber.info/inful/docschema/internal/xref"
)

// UidInterpreter records uid definitions. The exported spec it adds is a
// placeholder carrying only the uid.
type UidInterpreter struct{}

func (UidInterpreter) CanInterpret(s *schema.Schema) bool {
	return s != nil && s.ContentType == schema.ContentTypeUid
}

func (UidInterpreter) Interpret(s *schema.Schema, value content.Value, ctx *Context, path string) (content.Value, error) {
	uid, ok, err := stringValue(s, value, ctx, path)
	if err != nil || !ok || uid == "" {
		return value, err
	}
	ctx.AddUid(xref.UidDefinition{UID: uid, File: ctx.Document, Path: path})
	ctx.UpsertXRefSpec(xref.NewXRefSpec(uid), true)
	return value, nil
}
