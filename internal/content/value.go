// Package content defines the dynamically shaped content tree that documents
// are parsed into: a closed union of null, boolean, number, string, ordered
// array, string-keyed object and parsed markdown document values.
package content

import (
	"sort"

	gmast "github.com/yuin/goldmark/ast"
)

// Kind identifies the runtime shape of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindDocument:
		return "document"
	default:
		return "unknown"
	}
}

// Value is a node of the content tree. The set of implementations is closed.
type Value interface {
	Kind() Kind
	value()
}

type (
	Null   struct{}
	Bool   bool
	Number float64
	String string
)

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (Number) Kind() Kind { return KindNumber }
func (String) Kind() Kind { return KindString }

func (Null) value()   {}
func (Bool) value()   {}
func (Number) value() {}
func (String) value() {}

// Array is an ordered list of values.
type Array struct {
	Items []Value
}

// NewArray returns an array holding items.
func NewArray(items ...Value) *Array {
	return &Array{Items: items}
}

func (*Array) Kind() Kind { return KindArray }
func (*Array) value()     {}

// Len returns the number of items; nil arrays are empty.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Items)
}

// Object is a string-keyed map of values. Key order carries no meaning.
type Object struct {
	Fields map[string]Value
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{Fields: make(map[string]Value)}
}

func (*Object) Kind() Kind { return KindObject }
func (*Object) value()     {}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil || o.Fields == nil {
		return nil, false
	}
	v, ok := o.Fields[key]
	return v, ok
}

// Set stores v under key and returns the object for chaining.
func (o *Object) Set(key string, v Value) *Object {
	if o.Fields == nil {
		o.Fields = make(map[string]Value)
	}
	o.Fields[key] = v
	return o
}

// GetString returns the string stored under key, if any.
func (o *Object) GetString(key string) (string, bool) {
	v, ok := o.Get(key)
	if !ok {
		return "", false
	}
	return AsString(v)
}

// Keys returns the object keys in ascending order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, 0, len(o.Fields))
	for k := range o.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Document is a markdown text already parsed into an AST. It is left in the
// tree by transclusion and fragment steps so that rendering can skip a
// second parse.
type Document struct {
	Source []byte
	Root   gmast.Node
	// File is the physical file the markdown came from.
	File string
	// Line is the 1-based line of Source within File.
	Line int
}

func (*Document) Kind() Kind { return KindDocument }
func (*Document) value()     {}

// IsNull reports whether v is absent or the null value.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	return v.Kind() == KindNull
}

// KindOf returns the kind of v, treating nil as null.
func KindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	return v.Kind()
}

// AsString returns the string payload of v.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}

// AsObject returns v as an object.
func AsObject(v Value) (*Object, bool) {
	o, ok := v.(*Object)
	return o, ok && o != nil
}

// AsArray returns v as an array.
func AsArray(v Value) (*Array, bool) {
	a, ok := v.(*Array)
	return a, ok && a != nil
}
