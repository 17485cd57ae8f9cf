// Package docset models the documents of one build: how they are
// discovered on disk, classified, loaded into content trees and addressed
// in the output.
package docset

import (
	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/interpret"
	"git.home.luguber.info/inful/docschema/internal/schema"
	"git.home.luguber.info/inful/docschema/internal/viewmodel"
)

// Kind classifies a document.
type Kind string

const (
	// KindContent is a YAML document typed by a schema.
	KindContent Kind = "content"
	// KindConceptual is a markdown topic with a YAML header.
	KindConceptual Kind = "conceptual"
	// KindOverwrite supplies replacement content for existing uids.
	KindOverwrite Kind = "overwrite"
	// KindFragment supplies markdown for properties of one content document.
	KindFragment Kind = "fragment"
)

// OverwriteEntry is one section of an overwrite document.
type OverwriteEntry struct {
	UID   string
	Value *content.Object
	// Body is the markdown following the section header. It replaces the
	// placeholder value inside Value.
	Body string
	File string
	Line int
}

// Fragment is one property section of a fragment file.
type Fragment struct {
	UID string
	// Path is a pointer relative to the object holding UID.
	Path  string
	Value content.Value
	File  string
	Line  int
}

// Document is one input file and everything the build learns about it.
type Document struct {
	Key     string
	Kind    Kind
	DocType string
	Schema  *schema.Schema

	Content    content.Value
	Conceptual *viewmodel.Conceptual
	// Body is the markdown body of a conceptual topic.
	Body     string
	BodyLine int

	Overwrites []OverwriteEntry
	Fragments  []Fragment
	// FragmentPaths lists the pointers fragments were applied to.
	FragmentPaths []string

	Context *interpret.Context
	// Source is the raw file content.
	Source []byte
	Err    error
}

// IsBase reports whether the document can receive overwrites.
func (d *Document) IsBase() bool {
	return d.Err == nil && d.Context != nil && (d.Kind == KindContent || d.Kind == KindConceptual)
}

// UIDs returns the uids the document defines or overwrites.
func (d *Document) UIDs() []string {
	switch d.Kind {
	case KindOverwrite:
		out := make([]string, 0, len(d.Overwrites))
		for _, e := range d.Overwrites {
			out = append(out, e.UID)
		}
		return out
	case KindConceptual:
		if d.Conceptual != nil && d.Conceptual.UID != "" {
			return []string{d.Conceptual.UID}
		}
	case KindContent:
		if d.Context != nil {
			out := make([]string, 0, len(d.Context.Uids))
			for _, u := range d.Context.Uids {
				out = append(out, u.UID)
			}
			return out
		}
	}
	return nil
}
