package frontmatter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	fm, body, line, had, err := Split(input)
	require.NoError(t, err)
	require.False(t, had)
	require.Empty(t, fm)
	require.Equal(t, input, body)
	require.Equal(t, 1, line)
}

func TestSplit_YAMLFrontmatter_SplitsFrontmatterAndBody(t *testing.T) {
	input := []byte("---\nkey: value\nother: 1\n---\n# Title\n")

	fm, body, line, had, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("key: value\nother: 1\n"), fm)
	require.Equal(t, []byte("# Title\n"), body)
	require.Equal(t, 5, line)
}

func TestSplit_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	_, _, _, had, err := Split([]byte("---\nkey: value\n# Title\n"))
	require.Error(t, err)
	require.False(t, had)
	require.True(t, errors.Is(err, ErrMissingClosingDelimiter))
}

func TestSplit_CRLF_SplitsFrontmatterAndBody(t *testing.T) {
	fm, body, _, had, err := Split([]byte("---\r\nkey: value\r\n---\r\n# Title\r\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("key: value\r\n"), fm)
	require.Equal(t, []byte("# Title\r\n"), body)
}

func TestSplit_HeaderOnly(t *testing.T) {
	fm, body, _, had, err := Split([]byte("---\nuid: a\n---"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("uid: a\n"), fm)
	require.Empty(t, body)
}

func TestParse(t *testing.T) {
	header, body, line, err := Parse([]byte("---\nuid: guide.intro\ntitle: Intro\ntags: [a, b]\n---\nHello\n"))
	require.NoError(t, err)
	uid, _ := header.GetString("uid")
	assert.Equal(t, "guide.intro", uid)
	assert.Equal(t, "Hello\n", body)
	assert.Equal(t, 6, line)

	_, _, _, err = Parse([]byte("---\n- a\n---\n"))
	require.Error(t, err)
}

func TestSections(t *testing.T) {
	src := "preamble\n" +
		"---\nuid: M.Foo\nsummary: A\n---\nFoo body\n\n---\n\nstill foo\n" +
		"---\nuid: M.Bar\n---\nBar body\n"

	sections, err := Sections([]byte(src), "uid")
	require.NoError(t, err)
	require.Len(t, sections, 2)

	uid, _ := sections[0].Header.GetString("uid")
	assert.Equal(t, "M.Foo", uid)
	assert.Equal(t, "Foo body\n\n---\n\nstill foo", sections[0].Body)
	assert.Equal(t, 2, sections[0].HeaderLine)
	assert.Equal(t, 6, sections[0].BodyLine)

	uid, _ = sections[1].Header.GetString("uid")
	assert.Equal(t, "M.Bar", uid)
	assert.Equal(t, "Bar body", sections[1].Body)
}

func TestSectionsWithoutHeaders(t *testing.T) {
	sections, err := Sections([]byte("# Just markdown\n---\n"), "uid")
	require.NoError(t, err)
	assert.Empty(t, sections)
}
