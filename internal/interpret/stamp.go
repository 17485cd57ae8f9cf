package interpret

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Location attributes stamped on the first element of rendered markdown.
const (
	AttrSourceFile      = "sourcefile"
	AttrSourceStartLine = "sourcestartlinenumber"
)

var bodyContext = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}

// stampLocation marks the first element of fragment with the file (and line,
// when known) it was rendered from. Fragments without elements, or that do
// not parse, are returned unchanged.
func stampLocation(fragment, file string, line int) string {
	if strings.TrimSpace(fragment) == "" {
		return fragment
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), bodyContext)
	if err != nil {
		return fragment
	}
	var first *html.Node
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			first = n
			break
		}
	}
	if first == nil || hasAttr(first, AttrSourceFile) {
		return fragment
	}
	first.Attr = append(first.Attr, html.Attribute{Key: AttrSourceFile, Val: file})
	if line > 0 {
		first.Attr = append(first.Attr, html.Attribute{Key: AttrSourceStartLine, Val: strconv.Itoa(line)})
	}

	var b strings.Builder
	for _, n := range nodes {
		if err := html.Render(&b, n); err != nil {
			return fragment
		}
	}
	return b.String()
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
