package overwrite

import (
	"regexp"
	"strings"

	"git.home.luguber.info/inful/docschema/internal/content"
	"git.home.luguber.info/inful/docschema/internal/diagnostics"
	"git.home.luguber.info/inful/docschema/internal/docset"
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
	"git.home.luguber.info/inful/docschema/internal/markdown"
	"git.home.luguber.info/inful/docschema/internal/schema"
)

// MarkdownParser parses markdown without rendering it.
type MarkdownParser interface {
	Parse(src, file string, line int) *content.Document
}

var (
	uidHeading      = regexp.MustCompile("^#\\s+`([^`]+)`\\s*$")
	propertyHeading = regexp.MustCompile("^##\\s+`([^`]+)`\\s*$")
	yamlFence       = regexp.MustCompile("^(```|~~~)\\s*ya?ml\\s*$")
)

// ParseFragments reads a fragment file. A "# `uid`" heading selects an
// object; each following "## `/pointer`" heading starts the markdown for
// the property at that pointer below the object. A property section that
// consists of a single yaml code block supplies a YAML value instead.
// Headings inside fenced code blocks are ignored.
func ParseFragments(parser MarkdownParser, data []byte, file string) ([]docset.Fragment, error) {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")

	var (
		out   []docset.Fragment
		uid   string
		cur   *docset.Fragment
		body  []string
		start int
		fence string
	)
	flush := func() error {
		if cur == nil {
			return nil
		}
		f, err := buildFragment(parser, *cur, body, start, file)
		if err != nil {
			return err
		}
		out = append(out, f)
		cur, body = nil, nil
		return nil
	}

	for i, line := range lines {
		if fence == "" {
			if m := uidHeading.FindStringSubmatch(line); m != nil {
				if err := flush(); err != nil {
					return nil, err
				}
				uid = strings.TrimSpace(m[1])
				continue
			}
			if m := propertyHeading.FindStringSubmatch(line); m != nil {
				if err := flush(); err != nil {
					return nil, err
				}
				if uid == "" {
					continue
				}
				p := strings.TrimSpace(m[1])
				if !strings.HasPrefix(p, "/") {
					p = "/" + p
				}
				cur = &docset.Fragment{UID: uid, Path: p, File: file}
				start = i + 2
				continue
			}
		}
		fence = toggleFence(fence, line)
		if cur != nil {
			body = append(body, line)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// toggleFence tracks fenced code blocks: it returns the open fence marker
// after line, or "" outside a block.
func toggleFence(open, line string) string {
	trimmed := strings.TrimSpace(line)
	if open != "" {
		if strings.HasPrefix(trimmed, open) && strings.Trim(trimmed, open[:1]) == "" {
			return ""
		}
		return open
	}
	for _, marker := range []string{"```", "~~~"} {
		if strings.HasPrefix(trimmed, marker) {
			n := len(trimmed) - len(strings.TrimLeft(trimmed, marker[:1]))
			return strings.Repeat(marker[:1], n)
		}
	}
	return ""
}

func buildFragment(parser MarkdownParser, f docset.Fragment, body []string, start int, file string) (docset.Fragment, error) {
	for len(body) > 0 && strings.TrimSpace(body[0]) == "" {
		body = body[1:]
		start++
	}
	for len(body) > 0 && strings.TrimSpace(body[len(body)-1]) == "" {
		body = body[:len(body)-1]
	}
	f.Line = start

	if inner, ok := yamlBlock(body); ok {
		v, err := content.ParseYAML([]byte(inner))
		if err != nil {
			return f, errors.WrapError(err, errors.CategoryMarkdown, "invalid YAML in fragment").
				Fatal().
				WithContext("file", file).
				WithContext("uid", f.UID).
				WithContext("path", f.Path).
				Build()
		}
		f.Value = v
		return f, nil
	}
	f.Value = parser.Parse(strings.Join(body, "\n"), file, start)
	return f, nil
}

// yamlBlock returns the text of body when body is exactly one yaml code block.
func yamlBlock(body []string) (string, bool) {
	if len(body) < 2 || !yamlFence.MatchString(strings.TrimSpace(body[0])) {
		return "", false
	}
	open := toggleFence("", body[0])
	inner := body[1 : len(body)-1]
	for _, line := range inner {
		if toggleFence(open, line) == "" {
			return "", false
		}
	}
	if toggleFence(open, body[len(body)-1]) != "" {
		return "", false
	}
	return strings.Join(inner, "\n"), true
}

// ApplyFragments places frags into the content of doc, below the object
// defining each fragment's uid. A fragment containing a "*content" line
// keeps the markdown it replaces in place of that line. Fragments whose
// uid or path does not exist are reported and skipped. The pointers that
// received a fragment are returned in application order.
func ApplyFragments(doc *docset.Document, frags []docset.Fragment, parser MarkdownParser, sink diagnostics.Sink) []string {
	if sink == nil {
		sink = diagnostics.Discard
	}
	objects := make(map[string]string)
	uidObjects(doc.Content, doc.Schema, "", objects)

	var applied []string
	for _, f := range frags {
		obj, ok := objects[f.UID]
		if !ok {
			sink.Report(diagnostics.Diagnostic{
				Code:    diagnostics.CodeFragmentUnused,
				Message: "fragment uid is not defined in " + doc.Key,
				UID:     f.UID,
				Path:    f.Path,
				File:    f.File,
			})
			continue
		}
		p := obj + f.Path
		err := content.Update(&doc.Content, p, func(existing content.Value) (content.Value, error) {
			return spliceOriginal(parser, f, existing), nil
		})
		if err != nil {
			sink.Report(diagnostics.Diagnostic{
				Code:    diagnostics.CodeFragmentUnused,
				Message: "fragment path does not exist in " + doc.Key,
				UID:     f.UID,
				Path:    p,
				File:    f.File,
			})
			continue
		}
		applied = append(applied, p)
	}
	doc.FragmentPaths = append(doc.FragmentPaths, applied...)
	return applied
}

func spliceOriginal(parser MarkdownParser, f docset.Fragment, existing content.Value) content.Value {
	d, ok := f.Value.(*content.Document)
	if !ok {
		return content.Clone(f.Value)
	}
	original, ok := existing.(content.String)
	if !ok {
		return d
	}
	spliced, found := markdown.SpliceContentAnchor(string(d.Source), string(original))
	if !found {
		return d
	}
	return parser.Parse(spliced, f.File, f.Line)
}

// uidObjects records, for every uid-typed string below v, the pointer of
// the object holding it.
func uidObjects(v content.Value, s *schema.Schema, path string, out map[string]string) {
	if s == nil {
		return
	}
	switch t := v.(type) {
	case *content.Object:
		for _, key := range t.Keys() {
			child := s.Property(key)
			if child == nil {
				continue
			}
			if child.ContentType == schema.ContentTypeUid {
				if uid, ok := content.AsString(t.Fields[key]); ok {
					if _, seen := out[uid]; !seen {
						out[uid] = path
					}
				}
				continue
			}
			uidObjects(t.Fields[key], child, content.Join(path, key), out)
		}
	case *content.Array:
		for i, item := range t.Items {
			uidObjects(item, s.Items, content.JoinIndex(path, i), out)
		}
	}
}
