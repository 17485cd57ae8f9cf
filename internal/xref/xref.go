// Package xref holds the cross-reference records collected while
// interpreting documents: uid definitions, link sources and exported
// reference specs.
package xref

import "sort"

// UidDefinition records where a uid is defined.
type UidDefinition struct {
	UID  string `json:"uid"`
	File string `json:"file"`
	Path string `json:"path"`
}

// LinkSourceInfo records one reference to Target made from SourceFile.
type LinkSourceInfo struct {
	Target     string `json:"target"`
	SourceFile string `json:"source_file"`
	Anchor     string `json:"anchor,omitempty"`
}

// LinkSources maps a target to every source that references it, in the
// order they were recorded. Entries are never deduplicated.
type LinkSources map[string][]LinkSourceInfo

// Add appends info under its target.
func (l LinkSources) Add(info LinkSourceInfo) {
	l[info.Target] = append(l[info.Target], info)
}

// Merge appends every entry of other.
func (l LinkSources) Merge(other LinkSources) {
	for target, infos := range other {
		l[target] = append(l[target], infos...)
	}
}

// Targets returns the referenced targets in ascending order.
func (l LinkSources) Targets() []string {
	out := make([]string, 0, len(l))
	for t := range l {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Count returns the total number of recorded references.
func (l LinkSources) Count() int {
	n := 0
	for _, infos := range l {
		n += len(infos)
	}
	return n
}

// XRefSpec is the exported metadata other documents use to resolve a
// reference to UID.
type XRefSpec struct {
	UID        string            `json:"uid"`
	Properties map[string]string `json:"properties,omitempty"`
}

// NewXRefSpec returns a spec with an empty property bag.
func NewXRefSpec(uid string) *XRefSpec {
	return &XRefSpec{UID: uid, Properties: map[string]string{}}
}

// Href returns the href property.
func (s *XRefSpec) Href() string { return s.Properties["href"] }

// Set stores a property.
func (s *XRefSpec) Set(name, value string) {
	if s.Properties == nil {
		s.Properties = map[string]string{}
	}
	s.Properties[name] = value
}

// Clone returns a copy with its own property bag.
func (s *XRefSpec) Clone() *XRefSpec {
	out := NewXRefSpec(s.UID)
	for k, v := range s.Properties {
		out.Properties[k] = v
	}
	return out
}
