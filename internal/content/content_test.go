package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYAML(t *testing.T) {
	v, err := ParseYAML([]byte(`
uid: M.Foo
count: 3
ratio: 0.5
enabled: true
date: 2024-01-02
nothing: ~
items:
  - id: x
  - id: y
`))
	require.NoError(t, err)

	obj, ok := AsObject(v)
	require.True(t, ok)

	uid, _ := obj.GetString("uid")
	assert.Equal(t, "M.Foo", uid)
	assert.Equal(t, Number(3), obj.Fields["count"])
	assert.Equal(t, Number(0.5), obj.Fields["ratio"])
	assert.Equal(t, Bool(true), obj.Fields["enabled"])
	assert.Equal(t, String("2024-01-02"), obj.Fields["date"])
	assert.True(t, IsNull(obj.Fields["nothing"]))

	items, ok := AsArray(obj.Fields["items"])
	require.True(t, ok)
	assert.Equal(t, 2, items.Len())
}

func TestParseYAMLMergeKey(t *testing.T) {
	v, err := ParseYAML([]byte(`
base: &b
  a: 1
  b: 2
derived:
  <<: *b
  b: 3
`))
	require.NoError(t, err)
	derived, ok := Lookup(v, "/derived")
	require.True(t, ok)
	obj := derived.(*Object)
	assert.Equal(t, Number(1), obj.Fields["a"])
	assert.Equal(t, Number(3), obj.Fields["b"])
}

func TestParseYAMLEmpty(t *testing.T) {
	v, err := ParseYAML(nil)
	require.NoError(t, err)
	assert.True(t, IsNull(v))
}

func TestCloneIsDeep(t *testing.T) {
	orig := NewObject().Set("list", NewArray(NewObject().Set("v", Number(1))))
	cp := Clone(orig).(*Object)

	inner := cp.Fields["list"].(*Array).Items[0].(*Object)
	inner.Set("v", Number(2))

	assert.Equal(t, Number(1), orig.Fields["list"].(*Array).Items[0].(*Object).Fields["v"])
	assert.True(t, Equal(Clone(Null{}), Null{}))
}

func TestEqual(t *testing.T) {
	a := NewObject().Set("x", NewArray(String("a"), Number(1)))
	b := NewObject().Set("x", NewArray(String("a"), Number(1)))
	c := NewObject().Set("x", NewArray(String("a"), Number(2)))

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.False(t, Equal(String("1"), Number(1)))
	assert.True(t, Equal(nil, Null{}))
	assert.True(t, Equal(NewArray(), &Array{}))
}

func TestFromAnyToAnyRoundTrip(t *testing.T) {
	in := map[string]any{
		"name":  "Foo",
		"count": 2,
		"tags":  []any{"a", "b"},
		"inner": map[any]any{"k": 1.5},
		"none":  nil,
	}
	v, err := FromAny(in)
	require.NoError(t, err)

	out := ToAny(v).(map[string]any)
	assert.Equal(t, "Foo", out["name"])
	assert.Equal(t, int64(2), out["count"])
	assert.Equal(t, []any{"a", "b"}, out["tags"])
	assert.Equal(t, map[string]any{"k": 1.5}, out["inner"])
	assert.Nil(t, out["none"])

	_, err = FromAny(struct{}{})
	assert.Error(t, err)
}

func TestPointers(t *testing.T) {
	assert.Equal(t, "/a~1b/c~0d", Join(Join("", "a/b"), "c~d"))
	assert.Equal(t, []string{"a/b", "c~d"}, Split("/a~1b/c~0d"))
	assert.Equal(t, "/items/0", JoinIndex("/items", 0))
	assert.Equal(t, "/items", Parent("/items/0"))
	assert.Equal(t, "", Parent("/uid"))
	assert.Nil(t, Split(""))
}

func TestLookupAndUpdate(t *testing.T) {
	root, err := ParseYAML([]byte(`
items:
  - uid: A
    name: a
  - uid: B
`))
	require.NoError(t, err)

	v, ok := Lookup(root, "/items/1/uid")
	require.True(t, ok)
	assert.Equal(t, String("B"), v)

	_, ok = Lookup(root, "/items/5")
	assert.False(t, ok)
	_, ok = Lookup(root, "/items/0/name/deeper")
	assert.False(t, ok)

	err = Update(&root, "/items/0/name", func(Value) (Value, error) { return String("renamed"), nil })
	require.NoError(t, err)
	v, _ = Lookup(root, "/items/0/name")
	assert.Equal(t, String("renamed"), v)

	err = Update(&root, "/items/0/summary", func(cur Value) (Value, error) {
		assert.Nil(t, cur)
		return String("new"), nil
	})
	require.NoError(t, err)
	v, _ = Lookup(root, "/items/0/summary")
	assert.Equal(t, String("new"), v)

	err = Update(&root, "/missing/x", func(v Value) (Value, error) { return v, nil })
	assert.Error(t, err)

	err = Update(&root, "", func(Value) (Value, error) { return Null{}, nil })
	require.NoError(t, err)
	assert.True(t, IsNull(root))
}

func TestWalkReplaces(t *testing.T) {
	root := NewObject().
		Set("a", String("x")).
		Set("b", NewArray(String("x"), String("y")))

	var visited []string
	out, err := Walk(root, "", func(path string, v Value) (Value, error) {
		visited = append(visited, path)
		if s, ok := AsString(v); ok && s == "x" {
			return String("X"), nil
		}
		return v, nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"", "/a", "/b", "/b/0", "/b/1"}, visited)
	assert.Equal(t, String("X"), out.(*Object).Fields["a"])
	assert.Equal(t, String("X"), out.(*Object).Fields["b"].(*Array).Items[0])
}

func TestDecode(t *testing.T) {
	v := NewObject().Set("uid", String("U")).Set("weight", Number(3))
	var out struct {
		UID    string `yaml:"uid"`
		Weight int    `yaml:"weight"`
	}
	require.NoError(t, Decode(v, &out))
	assert.Equal(t, "U", out.UID)
	assert.Equal(t, 3, out.Weight)
}
