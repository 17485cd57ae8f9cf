// Package viewmodel holds strongly typed document models and their
// compile-time overwrite merge declarations.
package viewmodel

import (
	"sort"

	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/merge"
)

// Contributor is a person credited on a topic. Contributors are matched by Name.
type Contributor struct {
	Name string `yaml:"name" json:"name"`
	Role string `yaml:"role,omitempty" json:"role,omitempty"`
}

// Conceptual is a conceptual topic: a markdown file with a YAML header.
type Conceptual struct {
	UID          string         `yaml:"uid" json:"uid"`
	Title        string         `yaml:"title,omitempty" json:"title,omitempty"`
	Description  string         `yaml:"description,omitempty" json:"description,omitempty"`
	Conceptual   string         `yaml:"conceptual,omitempty" json:"conceptual"`
	Tags         []string       `yaml:"tags,omitempty" json:"tags,omitempty"`
	Contributors []Contributor  `yaml:"contributors,omitempty" json:"contributors,omitempty"`
	Metadata     map[string]any `yaml:"-" json:"metadata,omitempty"`
}

var knownFields = map[string]bool{
	"uid": true, "title": true, "description": true, "conceptual": true,
	"tags": true, "contributors": true,
}

// ConceptualMerger folds conceptual overwrites field by field.
var ConceptualMerger = merge.NewEntity(
	merge.StringField(func(c *Conceptual) *string { return &c.Title }),
	merge.StringField(func(c *Conceptual) *string { return &c.Description }),
	merge.StringField(func(c *Conceptual) *string { return &c.Conceptual }),
	merge.SliceField(func(c *Conceptual) *[]string { return &c.Tags }),
	merge.KeyedField("contributors",
		func(c *Conceptual) *[]Contributor { return &c.Contributors },
		func(p Contributor) string { return p.Name },
		func(b *Contributor, o Contributor) {
			if o.Role != "" {
				b.Role = o.Role
			}
		}),
	merge.MapField(func(c *Conceptual) *map[string]any { return &c.Metadata }),
)

// ConceptualFromHeader decodes a YAML header. Keys without a typed field
// are kept in Metadata.
func ConceptualFromHeader(header *content.Object) (*Conceptual, error) {
	c := &Conceptual{}
	if err := content.Decode(header, c); err != nil {
		return nil, err
	}
	for _, k := range header.Keys() {
		if knownFields[k] {
			continue
		}
		if c.Metadata == nil {
			c.Metadata = make(map[string]any)
		}
		c.Metadata[k] = content.ToAny(header.Fields[k])
	}
	return c, nil
}

// Clone returns a deep copy of c. Metadata values are shared.
func (c *Conceptual) Clone() *Conceptual {
	out := *c
	out.Tags = append([]string(nil), c.Tags...)
	out.Contributors = append([]Contributor(nil), c.Contributors...)
	if c.Metadata != nil {
		out.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// MetadataKeys returns the metadata keys in ascending order.
func (c *Conceptual) MetadataKeys() []string {
	keys := make([]string, 0, len(c.Metadata))
	for k := range c.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
