package interpret

import (
	"sort"
	"strings"

	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/diagnostics"
	"git.home.luguber.info/inful/docschema/internal/schema"
	"git.home.luguber.info/inful/docschema/internal/xref"
)

// Resolver directives accepted in xrefResolver.
const (
	ResolverProperties = "properties"
	ResolverStrings    = "strings"
)

// XrefInterpreter records references to other uids.
type XrefInterpreter struct{}

func (XrefInterpreter) CanInterpret(s *schema.Schema) bool {
	return s != nil && s.ContentType == schema.ContentTypeXref
}

func (XrefInterpreter) Interpret(s *schema.Schema, value content.Value, ctx *Context, path string) (content.Value, error) {
	uid, ok, err := stringValue(s, value, ctx, path)
	if err != nil || !ok || uid == "" {
		return value, err
	}
	ctx.UidLinkSources.Add(xref.LinkSourceInfo{Target: uid, SourceFile: ctx.GetOriginalSourceFile(path)})
	return value, nil
}

// XrefPropertiesInterpreter exports a populated reference spec for objects
// carrying a uid.
type XrefPropertiesInterpreter struct{}

func (XrefPropertiesInterpreter) CanInterpret(s *schema.Schema) bool {
	if s == nil || !s.IsObject() {
		return false
	}
	if len(s.XrefProperties) > 0 || s.XrefResolver != "" {
		return true
	}
	_, ok := uidProperty(s)
	return ok
}

func (XrefPropertiesInterpreter) Interpret(s *schema.Schema, value content.Value, ctx *Context, path string) (content.Value, error) {
	obj, ok := content.AsObject(value)
	if !ok {
		return value, nil
	}
	name, internal := uidProperty(s)
	uid, ok := obj.GetString(name)
	if !ok || uid == "" {
		return value, nil
	}

	spec := xref.NewXRefSpec(uid)
	for _, prop := range exportedProperties(s, obj, ctx, path) {
		if prop == name {
			continue
		}
		propPath := content.Join(path, prop)
		v, found := content.Lookup(ctx.Root, propPath)
		if !found {
			v, found = obj.Get(prop)
		}
		if !found || content.IsNull(v) {
			continue
		}
		str, isString := content.AsString(v)
		if !isString {
			ctx.report(diagnostics.CodeXrefPropertyNotString,
				"xref property "+prop+" is a "+content.KindOf(v).String()+", not a string", propPath)
			continue
		}
		spec.Set(prop, str)
	}

	if internal {
		ctx.AddUid(xref.UidDefinition{UID: uid, File: ctx.Document, Path: content.Join(path, name)})
		spec.Set("href", ctx.OutputPath())
	}
	ctx.UpsertXRefSpec(spec, internal)
	return value, nil
}

// uidProperty returns the property holding the uid of objects described by
// s and whether that property defines the uid (as opposed to referencing a
// uid defined elsewhere).
func uidProperty(s *schema.Schema) (string, bool) {
	if p := s.Property("uid"); p != nil && p.ContentType == schema.ContentTypeUid {
		return "uid", true
	}
	for _, name := range propertyNames(s) {
		if s.Properties[name].ContentType == schema.ContentTypeUid {
			return name, true
		}
	}
	return "uid", false
}

func exportedProperties(s *schema.Schema, obj *content.Object, ctx *Context, path string) []string {
	directive := strings.ToLower(strings.TrimSpace(s.XrefResolver))
	switch directive {
	case "", ResolverProperties:
		return s.XrefProperties
	case ResolverStrings:
		var out []string
		for _, k := range obj.Keys() {
			if _, ok := obj.GetString(k); ok {
				out = append(out, k)
			}
		}
		return out
	default:
		ctx.report(diagnostics.CodeXrefResolverUnknown, "unknown xref resolver "+s.XrefResolver+", using properties", path)
		return s.XrefProperties
	}
}

func propertyNames(s *schema.Schema) []string {
	names := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
