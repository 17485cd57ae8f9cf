// Package schema describes the expected shape of content documents and the
// per-node semantics (content type, merge policy, tags, reference export)
// that drive interpretation and overwrite merging.
package schema

import (
	"sort"
	"strconv"

	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/foundation/normalization"
)

// Type is the JSON type a schema node expects.
type Type string

const (
	TypeUnknown Type = ""
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeNull    Type = "null"
)

// ContentType selects the interpreters that apply to a string node.
type ContentType int

const (
	ContentTypeNone ContentType = iota
	ContentTypeUid
	ContentTypeHref
	ContentTypeFile
	ContentTypeMarkdown
	ContentTypeXref
)

func (c ContentType) String() string {
	switch c {
	case ContentTypeUid:
		return "uid"
	case ContentTypeHref:
		return "href"
	case ContentTypeFile:
		return "file"
	case ContentTypeMarkdown:
		return "markdown"
	case ContentTypeXref:
		return "xref"
	default:
		return "none"
	}
}

// MergeType is the overwrite policy of a node.
type MergeType int

const (
	MergeTypeMerge MergeType = iota
	MergeTypeReplace
	MergeTypeKey
	MergeTypeIgnore
)

func (m MergeType) String() string {
	switch m {
	case MergeTypeReplace:
		return "replace"
	case MergeTypeKey:
		return "key"
	case MergeTypeIgnore:
		return "ignore"
	default:
		return "merge"
	}
}

// ReferenceType marks nodes whose value names another file.
type ReferenceType int

const (
	ReferenceNone ReferenceType = iota
	// ReferenceFile nodes hold a path whose text is transcluded in place.
	ReferenceFile
)

// TagEditable marks a node that markdown fragments may overwrite.
const TagEditable = "editable"

var (
	typeNormalizer = normalization.NewNormalizer("type", map[string]Type{
		"object":  TypeObject,
		"array":   TypeArray,
		"string":  TypeString,
		"number":  TypeNumber,
		"integer": TypeInteger,
		"boolean": TypeBoolean,
		"null":    TypeNull,
	}, TypeUnknown)

	contentTypeNormalizer = normalization.NewNormalizer("contentType", map[string]ContentType{
		"default":  ContentTypeNone,
		"none":     ContentTypeNone,
		"uid":      ContentTypeUid,
		"href":     ContentTypeHref,
		"file":     ContentTypeFile,
		"markdown": ContentTypeMarkdown,
		"xref":     ContentTypeXref,
	}, ContentTypeNone)

	mergeTypeNormalizer = normalization.NewNormalizer("mergeType", map[string]MergeType{
		"merge":   MergeTypeMerge,
		"replace": MergeTypeReplace,
		"key":     MergeTypeKey,
		"ignore":  MergeTypeIgnore,
	}, MergeTypeMerge)

	referenceNormalizer = normalization.NewNormalizer("reference", map[string]ReferenceType{
		"none": ReferenceNone,
		"file": ReferenceFile,
	}, ReferenceNone)
)

// Schema is one node of a schema tree. Schemas are read-only once loaded
// and may be shared between goroutines.
type Schema struct {
	// Title, Description and Version are informational; Title names the
	// document type on root schemas.
	Title       string
	Description string
	Version     string

	Type        Type
	ContentType ContentType
	MergeType   MergeType
	Reference   ReferenceType

	Properties map[string]*Schema
	Items      *Schema

	Tags []string

	// XrefProperties lists sibling properties exported with the uid of
	// this object, in declaration order.
	XrefProperties []string
	// XrefResolver names how the exported reference spec is assembled.
	XrefResolver string
}

// Property returns the schema declared for a child property.
func (s *Schema) Property(name string) *Schema {
	if s == nil || s.Properties == nil {
		return nil
	}
	return s.Properties[name]
}

// HasTag reports whether the node carries tag.
func (s *Schema) HasTag(tag string) bool {
	if s == nil {
		return false
	}
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// IsObject reports whether the node describes an object.
func (s *Schema) IsObject() bool {
	return s != nil && (s.Type == TypeObject || (s.Type == TypeUnknown && s.Properties != nil))
}

// IsArray reports whether the node describes an array.
func (s *Schema) IsArray() bool {
	return s != nil && (s.Type == TypeArray || (s.Type == TypeUnknown && s.Items != nil))
}

// KeyProperties returns the names of child properties whose merge type is
// Key, sorted. Array items are identified by these properties when merging.
func (s *Schema) KeyProperties() []string {
	if s == nil {
		return nil
	}
	var keys []string
	for name, p := range s.Properties {
		if p != nil && p.MergeType == MergeTypeKey {
			keys = append(keys, name)
		}
	}
	sort.Strings(keys)
	return keys
}

// At returns the schema governing the node at a JSON pointer below s, or
// nil when the schema does not describe that path.
func (s *Schema) At(pointer string) *Schema {
	cur := s
	for _, seg := range content.Split(pointer) {
		if cur == nil {
			return nil
		}
		if cur.IsArray() {
			if _, err := strconv.Atoi(seg); err != nil {
				return nil
			}
			cur = cur.Items
			continue
		}
		cur = cur.Property(seg)
	}
	return cur
}
