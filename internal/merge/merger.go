// Package merge folds overwrite content into base content. Merger is driven
// by a schema; Entity merges strongly typed view models field by field.
package merge

import (
	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/diagnostics"
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
	"git.home.luguber.info/inful/docschema/internal/schema"
)

// Merger applies overwrite trees to base trees under the policy of their
// schema. A Merger is cheap; create one per overwrite source file.
type Merger struct {
	sink diagnostics.Sink
	file string
}

// NewMerger returns a merger reporting warnings to sink on behalf of the
// overwrite file.
func NewMerger(sink diagnostics.Sink, file string) *Merger {
	if sink == nil {
		sink = diagnostics.Discard
	}
	return &Merger{sink: sink, file: file}
}

// Merge folds overwrite into *base. base is mutated in place or replaced.
// Keys only present in base are never removed and arrays are never
// appended to: overwrite items that match no base item by their Key
// properties are dropped with a warning.
func (m *Merger) Merge(base *content.Value, overwrite content.Value, uid, path string, s *schema.Schema) error {
	mergeType := schema.MergeTypeMerge
	if s != nil {
		mergeType = s.MergeType
	}
	switch mergeType {
	case schema.MergeTypeReplace:
		*base = content.Clone(overwrite)
		return nil
	case schema.MergeTypeKey, schema.MergeTypeIgnore:
		return nil
	}

	if content.IsNull(overwrite) {
		*base = content.Null{}
		return nil
	}
	if content.IsNull(*base) {
		*base = content.Clone(overwrite)
		return nil
	}

	switch b := (*base).(type) {
	case *content.Object:
		o, ok := overwrite.(*content.Object)
		if !ok {
			return m.shapeError(uid, path, *base, overwrite)
		}
		return m.mergeObject(b, o, uid, path, s)
	case *content.Array:
		o, ok := overwrite.(*content.Array)
		if !ok {
			return m.shapeError(uid, path, *base, overwrite)
		}
		var items *schema.Schema
		if s != nil {
			items = s.Items
		}
		return m.mergeArray(b, o, uid, path, items)
	default:
		*base = content.Clone(overwrite)
		return nil
	}
}

func (m *Merger) mergeObject(base, overwrite *content.Object, uid, path string, s *schema.Schema) error {
	for _, key := range overwrite.Keys() {
		ov := overwrite.Fields[key]
		bv, exists := base.Get(key)
		if !exists {
			base.Set(key, content.Clone(ov))
			continue
		}
		if err := m.Merge(&bv, ov, uid, content.Join(path, key), s.Property(key)); err != nil {
			return err
		}
		base.Set(key, bv)
	}
	return nil
}

func (m *Merger) mergeArray(base, overwrite *content.Array, uid, path string, items *schema.Schema) error {
	keys := items.KeyProperties()
	for i, oi := range overwrite.Items {
		matched := false
		if len(keys) > 0 {
			for j := range base.Items {
				if !matchKeys(base.Items[j], oi, keys) {
					continue
				}
				matched = true
				if err := m.Merge(&base.Items[j], oi, uid, content.JoinIndex(path, j), items); err != nil {
					return err
				}
			}
		}
		if !matched {
			m.sink.Report(diagnostics.Diagnostic{
				Code:    diagnostics.CodeOverwriteItemUnmatched,
				Message: "overwrite array item matches no base item and was dropped",
				UID:     uid,
				Path:    content.JoinIndex(path, i),
				File:    m.file,
			})
		}
	}
	return nil
}

// matchKeys reports whether every key property is set on the overwrite item
// and equal on both items.
func matchKeys(base, overwrite content.Value, keys []string) bool {
	b, ok := content.AsObject(base)
	if !ok {
		return false
	}
	o, ok := content.AsObject(overwrite)
	if !ok {
		return false
	}
	for _, k := range keys {
		ov, ok := o.Get(k)
		if !ok || content.IsNull(ov) {
			return false
		}
		bv, ok := b.Get(k)
		if !ok || !content.Equal(bv, ov) {
			return false
		}
	}
	return true
}

func (m *Merger) shapeError(uid, path string, base, overwrite content.Value) error {
	if path == "" {
		path = "/"
	}
	return errors.OverwriteError("overwrite does not match the shape of the base content").
		WithContext("uid", uid).
		WithContext("path", path).
		WithContext("file", m.file).
		WithContext("expected", content.KindOf(base).String()).
		WithContext("actual", content.KindOf(overwrite).String()).
		Build()
}
