// Package overwrite applies overwrite documents and markdown fragments to
// the base documents that define the same uids.
package overwrite

import (
	"strings"

	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/diagnostics"
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
	"git.home.luguber.info/inful/docschema/internal/interpret"
	"git.home.luguber.info/inful/docschema/internal/merge"
	"git.home.luguber.info/inful/docschema/internal/schema"
)

// Placeholder is the value an overwrite header uses to stand for the
// markdown body following it.
const Placeholder = "*content"

// SubstitutePlaceholder replaces every string equal to Placeholder in v with
// body. v is modified in place and returned.
func SubstitutePlaceholder(v content.Value, body string) content.Value {
	out, _ := content.Walk(v, "", func(_ string, node content.Value) (content.Value, error) {
		if s, ok := node.(content.String); ok && strings.TrimSpace(string(s)) == Placeholder {
			return content.String(body), nil
		}
		return node, nil
	})
	return out
}

// Entry is an overwrite entry after interpretation.
type Entry struct {
	UID   string
	File  string
	Value content.Value
	// Context holds the link sources and dependencies interpretation found.
	Context *interpret.Context
}

// Fold merges entries left to right, starting from null, into a single
// overwrite tree for uid. Entries are cloned; the caller's values are not
// modified.
func Fold(uid string, entries []Entry, s *schema.Schema, sink diagnostics.Sink) (content.Value, error) {
	var acc content.Value = content.Null{}
	for _, e := range entries {
		m := merge.NewMerger(sink, e.File)
		if err := m.Merge(&acc, content.Clone(e.Value), uid, "", s); err != nil {
			return nil, wrapFoldError(err, uid, e.File)
		}
	}
	return acc, nil
}

func wrapFoldError(err error, uid, file string) error {
	if ce, ok := errors.AsClassified(err); ok {
		return ce.WithContext("uid", uid).WithContext("file", file)
	}
	return errors.WrapError(err, errors.CategoryOverwrite, "failed to fold overwrite").
		Fatal().
		WithContext("uid", uid).
		WithContext("file", file).
		Build()
}
