package markdown

import (
	"strconv"
	"strings"
	"sync"
)

// ContentAnchor is the line an overwrite fragment uses to keep the
// original markdown in place.
const ContentAnchor = "*content"

const tokenPrefix = "<!--docschema:anchor:"

// Anchor is markdown whose rendering was deferred.
type Anchor struct {
	Source string
	File   string
}

// AnchorParser swaps markdown for opaque tokens so rendering can wait until
// overwrite fragments have been merged. It is safe for concurrent use.
type AnchorParser struct {
	mu      sync.Mutex
	anchors map[string]Anchor
}

// NewAnchorParser returns an empty parser.
func NewAnchorParser() *AnchorParser {
	return &AnchorParser{anchors: make(map[string]Anchor)}
}

// Parse stores src and returns the token standing in for it.
func (p *AnchorParser) Parse(src, file string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	token := tokenPrefix + strconv.Itoa(len(p.anchors)) + "-->"
	p.anchors[token] = Anchor{Source: src, File: file}
	return token
}

// Lookup returns the markdown a token stands for.
func (p *AnchorParser) Lookup(token string) (Anchor, bool) {
	if !IsAnchorToken(token) {
		return Anchor{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.anchors[token]
	return a, ok
}

// Len returns the number of deferred texts.
func (p *AnchorParser) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.anchors)
}

// IsAnchorToken reports whether s is a token produced by Parse.
func IsAnchorToken(s string) bool {
	return strings.HasPrefix(s, tokenPrefix) && strings.HasSuffix(s, "-->")
}

// SpliceContentAnchor replaces every line of overlay consisting of the
// content anchor with original. It reports whether an anchor was found.
func SpliceContentAnchor(overlay, original string) (string, bool) {
	lines := strings.Split(overlay, "\n")
	found := false
	for i, line := range lines {
		if strings.TrimSpace(line) == ContentAnchor {
			lines[i] = strings.TrimRight(original, "\n")
			found = true
		}
	}
	if !found {
		return overlay, false
	}
	return strings.Join(lines, "\n"), true
}
