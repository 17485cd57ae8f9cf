package content

import (
	"fmt"
	"strconv"
	"strings"
)

var (
	pointerEscaper   = strings.NewReplacer("~", "~0", "/", "~1")
	pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

// Escape encodes an object key as a JSON pointer segment.
func Escape(key string) string { return pointerEscaper.Replace(key) }

// Unescape decodes a JSON pointer segment.
func Unescape(segment string) string { return pointerUnescaper.Replace(segment) }

// Join appends an object key to a pointer path. The root path is "".
func Join(parent, key string) string { return parent + "/" + Escape(key) }

// JoinIndex appends an array index to a pointer path.
func JoinIndex(parent string, i int) string { return parent + "/" + strconv.Itoa(i) }

// Split breaks a pointer path into unescaped segments.
func Split(pointer string) []string {
	if pointer == "" || pointer == "/" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	for i, p := range parts {
		parts[i] = Unescape(p)
	}
	return parts
}

// Parent returns the pointer of the node containing pointer.
func Parent(pointer string) string {
	idx := strings.LastIndex(pointer, "/")
	if idx <= 0 {
		return ""
	}
	return pointer[:idx]
}

// Lookup resolves a JSON pointer against root.
func Lookup(root Value, pointer string) (Value, bool) {
	cur := root
	for _, seg := range Split(pointer) {
		switch t := cur.(type) {
		case *Object:
			v, ok := t.Get(seg)
			if !ok {
				return nil, false
			}
			cur = v
		case *Array:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= t.Len() {
				return nil, false
			}
			cur = t.Items[i]
		default:
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// Update replaces the node at pointer with the result of fn. The container
// of the node must already exist; a missing object key is created.
func Update(root *Value, pointer string, fn func(v Value) (Value, error)) error {
	segs := Split(pointer)
	if len(segs) == 0 {
		nv, err := fn(*root)
		if err != nil {
			return err
		}
		*root = nv
		return nil
	}
	parentPtr := Parent(pointer)
	parent, ok := Lookup(*root, parentPtr)
	if !ok {
		return fmt.Errorf("pointer %q: parent %q not found", pointer, parentPtr)
	}
	last := segs[len(segs)-1]
	switch t := parent.(type) {
	case *Object:
		cur, _ := t.Get(last)
		nv, err := fn(cur)
		if err != nil {
			return err
		}
		t.Set(last, nv)
		return nil
	case *Array:
		i, err := strconv.Atoi(last)
		if err != nil || i < 0 || i >= t.Len() {
			return fmt.Errorf("pointer %q: index %q out of range", pointer, last)
		}
		nv, err := fn(t.Items[i])
		if err != nil {
			return err
		}
		t.Items[i] = nv
		return nil
	default:
		return fmt.Errorf("pointer %q: parent is a %s", pointer, KindOf(parent))
	}
}
