package content

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Clone returns a deep copy of v. Documents are shared: their AST is treated
// as immutable once parsed.
func Clone(v Value) Value {
	switch t := v.(type) {
	case nil:
		return Null{}
	case *Array:
		if t == nil {
			return Null{}
		}
		items := make([]Value, len(t.Items))
		for i, item := range t.Items {
			items[i] = Clone(item)
		}
		return &Array{Items: items}
	case *Object:
		if t == nil {
			return Null{}
		}
		out := &Object{Fields: make(map[string]Value, len(t.Fields))}
		for k, item := range t.Fields {
			out.Fields[k] = Clone(item)
		}
		return out
	default:
		return v
	}
}

// Equal reports deep equality of two values. Documents compare by source text.
func Equal(a, b Value) bool {
	if KindOf(a) != KindOf(b) {
		return false
	}
	switch ta := a.(type) {
	case nil, Null:
		return true
	case Bool, Number, String:
		return a == b
	case *Array:
		tb := b.(*Array)
		if ta.Len() != tb.Len() {
			return false
		}
		if ta.Len() == 0 {
			return true
		}
		for i := range ta.Items {
			if !Equal(ta.Items[i], tb.Items[i]) {
				return false
			}
		}
		return true
	case *Object:
		tb := b.(*Object)
		if ta == nil || tb == nil {
			return ta == tb
		}
		if len(ta.Fields) != len(tb.Fields) {
			return false
		}
		for k, va := range ta.Fields {
			vb, ok := tb.Fields[k]
			if !ok || !Equal(va, vb) {
				return false
			}
		}
		return true
	case *Document:
		return string(ta.Source) == string(b.(*Document).Source)
	default:
		return false
	}
}

// FromAny converts decoded YAML/JSON data into a Value.
func FromAny(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Number(t), nil
	case int64:
		return Number(t), nil
	case uint64:
		return Number(t), nil
	case float64:
		return Number(t), nil
	case time.Time:
		return String(t.Format(time.RFC3339)), nil
	case []any:
		arr := &Array{Items: make([]Value, 0, len(t))}
		for i, item := range t {
			cv, err := FromAny(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			arr.Items = append(arr.Items, cv)
		}
		return arr, nil
	case []string:
		arr := &Array{Items: make([]Value, 0, len(t))}
		for _, item := range t {
			arr.Items = append(arr.Items, String(item))
		}
		return arr, nil
	case map[string]any:
		obj := &Object{Fields: make(map[string]Value, len(t))}
		for k, item := range t {
			cv, err := FromAny(item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			obj.Fields[k] = cv
		}
		return obj, nil
	case map[any]any:
		obj := &Object{Fields: make(map[string]Value, len(t))}
		for k, item := range t {
			cv, err := FromAny(item)
			if err != nil {
				return nil, fmt.Errorf("key %v: %w", k, err)
			}
			obj.Fields[fmt.Sprint(k)] = cv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported content value of type %T", v)
	}
}

// ToAny converts a Value into plain Go data suitable for encoding/json or
// yaml.v3. Whole numbers become int64; documents become their markdown text.
func ToAny(v Value) any {
	switch t := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(t)
	case Number:
		f := float64(t)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case String:
		return string(t)
	case *Array:
		out := make([]any, 0, t.Len())
		if t != nil {
			for _, item := range t.Items {
				out = append(out, ToAny(item))
			}
		}
		return out
	case *Object:
		if t == nil {
			return nil
		}
		out := make(map[string]any, len(t.Fields))
		for k, item := range t.Fields {
			out[k] = ToAny(item)
		}
		return out
	case *Document:
		return string(t.Source)
	default:
		return nil
	}
}

// Walk visits v and all of its descendants depth-first, pre-order. Object keys
// are visited in ascending order so walks are deterministic. The callback may
// return a replacement for the visited node; returning the input keeps it.
func Walk(v Value, path string, fn func(path string, v Value) (Value, error)) (Value, error) {
	replaced, err := fn(path, v)
	if err != nil {
		return nil, err
	}
	switch t := replaced.(type) {
	case *Array:
		if t == nil {
			return replaced, nil
		}
		for i, item := range t.Items {
			nv, err := Walk(item, JoinIndex(path, i), fn)
			if err != nil {
				return nil, err
			}
			t.Items[i] = nv
		}
	case *Object:
		if t == nil {
			return replaced, nil
		}
		keys := make([]string, 0, len(t.Fields))
		for k := range t.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			nv, err := Walk(t.Fields[k], Join(path, k), fn)
			if err != nil {
				return nil, err
			}
			t.Fields[k] = nv
		}
	}
	return replaced, nil
}
