package merge

// Reporter receives fields whose overwrite could not be applied.
type Reporter func(field, detail string)

// Field merges one field of T from overwrite into base.
type Field[T any] func(base, overwrite *T, report Reporter)

// Entity merges values of T with a fixed list of field mergers declared at
// compile time.
type Entity[T any] struct {
	fields []Field[T]
}

// NewEntity returns an entity merger over fields.
func NewEntity[T any](fields ...Field[T]) *Entity[T] {
	return &Entity[T]{fields: fields}
}

// Merge applies every field merger in declaration order.
func (e *Entity[T]) Merge(base, overwrite *T, report Reporter) {
	if report == nil {
		report = func(string, string) {}
	}
	for _, f := range e.fields {
		f(base, overwrite, report)
	}
}

// StringField replaces the base value with a non-empty overwrite value.
func StringField[T any](get func(*T) *string) Field[T] {
	return func(base, overwrite *T, _ Reporter) {
		if v := *get(overwrite); v != "" {
			*get(base) = v
		}
	}
}

// SliceField replaces the base slice with a non-nil overwrite slice.
func SliceField[T, E any](get func(*T) *[]E) Field[T] {
	return func(base, overwrite *T, _ Reporter) {
		if v := *get(overwrite); v != nil {
			*get(base) = append([]E(nil), v...)
		}
	}
}

// MapField sets every overwrite entry on the base map.
func MapField[T any, V any](get func(*T) *map[string]V) Field[T] {
	return func(base, overwrite *T, _ Reporter) {
		src := *get(overwrite)
		if len(src) == 0 {
			return
		}
		dst := get(base)
		if *dst == nil {
			*dst = make(map[string]V, len(src))
		}
		for k, v := range src {
			(*dst)[k] = v
		}
	}
}

// KeyedField merges overwrite elements into the base elements sharing
// their key. Elements matching nothing are reported and dropped.
func KeyedField[T, E any, K comparable](name string, get func(*T) *[]E, key func(E) K, merge func(base *E, overwrite E)) Field[T] {
	return func(base, overwrite *T, report Reporter) {
		dst := get(base)
		for _, o := range *get(overwrite) {
			k := key(o)
			matched := false
			for i := range *dst {
				if key((*dst)[i]) == k {
					merge(&(*dst)[i], o)
					matched = true
				}
			}
			if !matched {
				report(name, "no base element with the same key")
			}
		}
	}
}
