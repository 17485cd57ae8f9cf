package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnchorParser(t *testing.T) {
	p := NewAnchorParser()
	a := p.Parse("# A", "a.yml")
	b := p.Parse("# A", "a.yml")

	assert.NotEqual(t, a, b)
	assert.True(t, IsAnchorToken(a))
	got, ok := p.Lookup(b)
	assert.True(t, ok)
	assert.Equal(t, Anchor{Source: "# A", File: "a.yml"}, got)

	_, ok = p.Lookup("plain text")
	assert.False(t, ok)
	assert.Equal(t, 2, p.Len())
}

func TestSpliceContentAnchor(t *testing.T) {
	out, ok := SpliceContentAnchor("Intro\n*content\nOutro", "Original\n")
	assert.True(t, ok)
	assert.Equal(t, "Intro\nOriginal\nOutro", out)

	out, ok = SpliceContentAnchor("No anchor", "Original")
	assert.False(t, ok)
	assert.Equal(t, "No anchor", out)
}
