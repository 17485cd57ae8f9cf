package schema

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
)

// rawSchema mirrors the on-disk schema format (JSON or YAML).
type rawSchema struct {
	Title          string                `yaml:"title"`
	Description    string                `yaml:"description"`
	Version        string                `yaml:"version"`
	Type           string                `yaml:"type"`
	ContentType    string                `yaml:"contentType"`
	MergeType      string                `yaml:"mergeType"`
	Reference      string                `yaml:"reference"`
	Properties     map[string]*rawSchema `yaml:"properties"`
	Items          *rawSchema            `yaml:"items"`
	Tags           []string              `yaml:"tags"`
	XrefProperties []string              `yaml:"xrefProperties"`
	XrefResolver   string                `yaml:"xrefResolver"`
}

// Parse decodes and validates a schema document. file is used for diagnostics.
func Parse(file string, data []byte) (*Schema, error) {
	var raw rawSchema
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.WrapError(err, errors.CategorySchema, "failed to decode schema").
			WithContext("file", file).
			Fatal().
			Build()
	}
	s, err := convert(&raw, "")
	if err != nil {
		if classified, ok := errors.AsClassified(err); ok {
			return nil, classified.WithContext("file", file)
		}
		return nil, err
	}
	if s.Type == TypeUnknown {
		s.Type = TypeObject
	}
	return s, nil
}

func convert(raw *rawSchema, path string) (*Schema, error) {
	if raw == nil {
		return nil, nil
	}
	invalid := func(err error) error {
		return errors.WrapError(err, errors.CategorySchema, "invalid schema keyword").
			WithContext("path", pathOrRoot(path)).
			Fatal().
			Build()
	}

	typ, err := typeNormalizer.Parse(raw.Type)
	if err != nil {
		return nil, invalid(err)
	}
	ct, err := contentTypeNormalizer.Parse(raw.ContentType)
	if err != nil {
		return nil, invalid(err)
	}
	mt, err := mergeTypeNormalizer.Parse(raw.MergeType)
	if err != nil {
		return nil, invalid(err)
	}
	ref, err := referenceNormalizer.Parse(raw.Reference)
	if err != nil {
		return nil, invalid(err)
	}

	s := &Schema{
		Title:          raw.Title,
		Description:    raw.Description,
		Version:        raw.Version,
		Type:           typ,
		ContentType:    ct,
		MergeType:      mt,
		Reference:      ref,
		Tags:           append([]string(nil), raw.Tags...),
		XrefProperties: append([]string(nil), raw.XrefProperties...),
		XrefResolver:   strings.TrimSpace(raw.XrefResolver),
	}

	if len(raw.Properties) > 0 {
		if typ != TypeUnknown && typ != TypeObject {
			return nil, errors.SchemaError("properties declared on a non-object schema").
				WithContext("path", pathOrRoot(path)).
				WithContext("type", string(typ)).
				Build()
		}
		s.Properties = make(map[string]*Schema, len(raw.Properties))
		for name, child := range raw.Properties {
			cs, err := convert(child, content.Join(path, name))
			if err != nil {
				return nil, err
			}
			if cs != nil {
				s.Properties[name] = cs
			}
		}
	}
	if raw.Items != nil {
		if typ != TypeUnknown && typ != TypeArray {
			return nil, errors.SchemaError("items declared on a non-array schema").
				WithContext("path", pathOrRoot(path)).
				WithContext("type", string(typ)).
				Build()
		}
		items, err := convert(raw.Items, path+"/items")
		if err != nil {
			return nil, err
		}
		s.Items = items
	}
	if ct != ContentTypeNone && typ != TypeUnknown && typ != TypeString {
		return nil, errors.SchemaError("contentType requires a string schema").
			WithContext("path", pathOrRoot(path)).
			WithContext("contentType", ct.String()).
			Build()
	}
	if (len(s.XrefProperties) > 0 || s.XrefResolver != "") && !s.IsObject() {
		return nil, errors.SchemaError("xref export declared on a non-object schema").
			WithContext("path", pathOrRoot(path)).
			Build()
	}
	return s, nil
}

func pathOrRoot(path string) string {
	if path == "" {
		return "/"
	}
	return path
}

// Registry holds the schemas of a build, keyed by document type.
type Registry struct {
	schemas map[string]*Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// Register adds s under docType, replacing an existing entry.
func (r *Registry) Register(docType string, s *Schema) {
	r.schemas[docType] = s
}

// Get returns the schema of docType.
func (r *Registry) Get(docType string) (*Schema, bool) {
	s, ok := r.schemas[docType]
	return s, ok
}

// Types returns the registered document types in sorted order.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.schemas))
	for k := range r.schemas {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var schemaSuffixes = []string{".schema.json", ".schema.yml", ".schema.yaml"}

// LoadDir loads every *.schema.{json,yml,yaml} file in dir. The document type
// is the schema title, or the file name without its suffix.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read schema directory").
			WithContext("dir", dir).
			Fatal().
			Build()
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := trimSchemaSuffix(e.Name())
		if !ok {
			continue
		}
		path := filepath.Join(dir, e.Name())
		// #nosec G304 -- path comes from the configured schema directory listing.
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read schema").
				WithContext("file", path).
				Build()
		}
		s, err := Parse(path, data)
		if err != nil {
			return nil, err
		}
		docType := s.Title
		if docType == "" {
			docType = name
		}
		if _, dup := reg.Get(docType); dup {
			return nil, errors.SchemaError("duplicate schema for document type").
				WithContext("doc_type", docType).
				WithContext("file", path).
				Build()
		}
		reg.Register(docType, s)
	}
	return reg, nil
}

func trimSchemaSuffix(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, suffix := range schemaSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return name[:len(name)-len(suffix)], true
		}
	}
	return "", false
}
