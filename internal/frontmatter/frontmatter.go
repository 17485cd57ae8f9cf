// Package frontmatter splits markdown files into YAML headers and markdown
// bodies: a single leading header for conceptual topics, or a sequence of
// header/body sections for overwrite documents.
package frontmatter

import (
	"bytes"
	"errors"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docschema/internal/content"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Split separates YAML frontmatter (`---` delimited) from the markdown body.
// bodyLine is the 1-based line the body starts on.
//
// If the document does not start with a frontmatter delimiter, had is false
// and body is the full input.
func Split(data []byte) (frontmatter []byte, body []byte, bodyLine int, had bool, err error) {
	nl := detectNewline(data)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(data, open) {
		return nil, data, 1, false, nil
	}

	start := len(open)
	if bytes.HasPrefix(data[start:], open) {
		return []byte{}, data[start+len(open):], 3, true, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(data[start:], closeSeq)
	if idx < 0 {
		if bytes.HasSuffix(data, []byte(nl+"---")) {
			idx = len(data) - start - len(nl) - 3
			fm := data[start : start+idx+len(nl)]
			return fm, []byte{}, bytes.Count(fm, []byte("\n")) + 3, true, nil
		}
		return nil, nil, 0, false, ErrMissingClosingDelimiter
	}

	fm := data[start : start+idx+len(nl)]
	bodyStart := start + idx + len(closeSeq)
	return fm, data[bodyStart:], bytes.Count(data[:bodyStart], []byte("\n")) + 1, true, nil
}

// Parse splits data and parses the header into a content tree. Documents
// without a header yield an empty object.
func Parse(data []byte) (header *content.Object, body string, bodyLine int, err error) {
	fm, b, line, _, err := Split(data)
	if err != nil {
		return nil, "", 0, err
	}
	header, err = parseHeader(fm)
	if err != nil {
		return nil, "", 0, err
	}
	return header, string(b), line, nil
}

// Section is one header/body pair of an overwrite document.
type Section struct {
	Header *content.Object
	Body   string
	// HeaderLine and BodyLine are 1-based.
	HeaderLine int
	BodyLine   int
}

// Sections splits an overwrite document into its sections. A `---` line
// opens a section only when the lines up to the next `---` parse as a YAML
// mapping declaring uidKey; any other `---` line is body text. Text before
// the first section is ignored.
func Sections(data []byte, uidKey string) ([]Section, error) {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")

	var out []Section
	var cur *Section
	var body []string
	flush := func() {
		if cur != nil {
			cur.Body = strings.Join(body, "\n")
			out = append(out, *cur)
		}
		body = nil
	}

	for i := 0; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t") == "---" {
			if end := closingDelimiter(lines, i+1); end > 0 {
				header, err := parseHeader([]byte(strings.Join(lines[i+1:end], "\n")))
				if err == nil {
					if _, ok := header.Get(uidKey); ok {
						flush()
						cur = &Section{Header: header, HeaderLine: i + 1, BodyLine: end + 2}
						i = end
						continue
					}
				}
			}
		}
		if cur != nil {
			body = append(body, lines[i])
		}
	}
	flush()

	for i := range out {
		out[i].Body = strings.TrimSpace(out[i].Body)
	}
	return out, nil
}

func closingDelimiter(lines []string, from int) int {
	for j := from; j < len(lines); j++ {
		if strings.TrimRight(lines[j], " \t") == "---" {
			return j
		}
	}
	return -1
}

func parseHeader(fm []byte) (*content.Object, error) {
	if len(bytes.TrimSpace(fm)) == 0 {
		return content.NewObject(), nil
	}
	var node yaml.Node
	if err := yaml.Unmarshal(fm, &node); err != nil {
		return nil, err
	}
	v, err := content.FromYAMLNode(&node)
	if err != nil {
		return nil, err
	}
	obj, ok := content.AsObject(v)
	if !ok {
		return nil, errors.New("yaml header is a " + content.KindOf(v).String() + ", not a mapping")
	}
	return obj, nil
}

func detectNewline(data []byte) string {
	if i := bytes.IndexByte(data, '\n'); i > 0 && data[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
