package docset

import (
	"bufio"
	"bytes"
	"strings"

	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
	"git.home.luguber.info/inful/docschema/internal/frontmatter"
	"git.home.luguber.info/inful/docschema/internal/schema"
	"git.home.luguber.info/inful/docschema/internal/viewmodel"
)

// YamlMimePrefix starts the first line of a typed YAML document.
const YamlMimePrefix = "### YamlMime:"

// FragmentSuffix ends the key of a fragment file: the key of the content
// document it belongs to plus ".md".
const FragmentSuffix = ".md"

// Loader turns discovered files into documents.
type Loader struct {
	schemas    *schema.Registry
	overwrites []string
}

// NewLoader returns a loader typing YAML documents with schemas and treating
// markdown files matching overwrites as overwrite documents.
func NewLoader(schemas *schema.Registry, overwrites []string) *Loader {
	return &Loader{schemas: schemas, overwrites: overwrites}
}

// Classify returns the kind of the file at key, or false for files that are
// not documents (resources such as images or untyped YAML).
func (l *Loader) Classify(key string, data []byte) (Kind, bool) {
	lower := strings.ToLower(key)
	switch {
	case strings.HasSuffix(lower, ".yml.md"), strings.HasSuffix(lower, ".yaml.md"):
		return KindFragment, true
	case strings.HasSuffix(lower, ".md"):
		if MatchAny(l.overwrites, key) {
			return KindOverwrite, true
		}
		return KindConceptual, true
	case strings.HasSuffix(lower, ".yml"), strings.HasSuffix(lower, ".yaml"):
		if _, ok := DetectDocType(data); ok {
			return KindContent, true
		}
	}
	return "", false
}

// Load parses data into a document. Problems with the file itself are
// recorded in Document.Err so the rest of the build can continue.
func (l *Loader) Load(key string, data []byte) (*Document, bool) {
	kind, ok := l.Classify(key, data)
	if !ok {
		return nil, false
	}
	doc := &Document{Key: key, Kind: kind, Source: data}
	switch kind {
	case KindContent:
		doc.Err = l.loadContent(doc)
	case KindConceptual:
		doc.Err = loadConceptual(doc)
	case KindOverwrite:
		doc.Err = loadOverwrite(doc)
	}
	return doc, true
}

func (l *Loader) loadContent(doc *Document) error {
	docType, _ := DetectDocType(doc.Source)
	doc.DocType = docType
	s, ok := l.schemas.Get(docType)
	if !ok {
		return errors.SchemaError("no schema registered for document type").
			WithContext("doc_type", docType).
			WithContext("file", doc.Key).
			Build()
	}
	doc.Schema = s
	v, err := content.ParseYAML(doc.Source)
	if err != nil {
		return errors.WrapError(err, errors.CategoryContent, "failed to parse YAML document").
			Fatal().
			WithContext("file", doc.Key).
			Build()
	}
	doc.Content = v
	return nil
}

func loadConceptual(doc *Document) error {
	header, body, line, err := frontmatter.Parse(doc.Source)
	if err != nil {
		return errors.WrapError(err, errors.CategoryContent, "failed to parse topic header").
			Fatal().
			WithContext("file", doc.Key).
			Build()
	}
	c, err := viewmodel.ConceptualFromHeader(header)
	if err != nil {
		return errors.WrapError(err, errors.CategoryContent, "invalid topic header").
			Fatal().
			WithContext("file", doc.Key).
			Build()
	}
	doc.Conceptual = c
	doc.Body = body
	doc.BodyLine = line
	return nil
}

func loadOverwrite(doc *Document) error {
	sections, err := frontmatter.Sections(doc.Source, "uid")
	if err != nil {
		return errors.WrapError(err, errors.CategoryOverwrite, "failed to split overwrite document").
			Fatal().
			WithContext("file", doc.Key).
			Build()
	}
	for _, s := range sections {
		uid, ok := s.Header.GetString("uid")
		if !ok || uid == "" {
			return errors.OverwriteError("overwrite section uid is not a string").
				WithContext("file", doc.Key).
				WithContext("line", s.HeaderLine).
				Build()
		}
		doc.Overwrites = append(doc.Overwrites, OverwriteEntry{
			UID:   uid,
			Value: s.Header,
			Body:  s.Body,
			File:  doc.Key,
			Line:  s.BodyLine,
		})
	}
	return nil
}

// DetectDocType reads the document type from a "### YamlMime:<type>" first line.
func DetectDocType(data []byte) (string, bool) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	if !sc.Scan() {
		return "", false
	}
	line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
	if !strings.HasPrefix(line, YamlMimePrefix) {
		return "", false
	}
	docType := strings.TrimSpace(line[len(YamlMimePrefix):])
	return docType, docType != ""
}

// FragmentTarget returns the key of the content document a fragment file
// belongs to.
func FragmentTarget(key string) string {
	return strings.TrimSuffix(key, FragmentSuffix)
}
