package markdown

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"sort"
	"strings"

	"git.home.luguber.info/inful/docschema/internal/diagnostics"
	"git.home.luguber.info/inful/docschema/internal/docpath"
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
)

// includePattern matches [!include[title](path)] and [!include(path)].
var includePattern = regexp.MustCompile(`\[!include(?:\[[^\]]*\])?\(\s*([^)\s]+)\s*\)\]`)

// edit is a byte-range replacement of source[start:end].
type edit struct {
	start, end  int
	replacement string
}

// applyEdits applies non-overlapping edits from the end of src toward the
// beginning so earlier offsets stay valid.
func applyEdits(src string, edits []edit) (string, error) {
	if len(edits) == 0 {
		return src, nil
	}
	sorted := slices.Clone(edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start > sorted[j].start })
	for i, e := range sorted {
		if e.start < 0 || e.end < e.start || e.end > len(src) {
			return "", fmt.Errorf("invalid edit[%d]: range %d-%d out of bounds", i, e.start, e.end)
		}
		if i > 0 && e.end > sorted[i-1].start {
			return "", fmt.Errorf("invalid edit[%d]: overlapping ranges", i)
		}
	}
	out := src
	for _, e := range sorted {
		out = out[:e.start] + e.replacement + out[e.end:]
	}
	return out, nil
}

// expandIncludes replaces include directives outside code with the text of
// the included file. Each included file becomes a dependency of res.
// stack holds the files currently being expanded.
func (r *Renderer) expandIncludes(src, file string, res *Result, stack []string) (string, error) {
	if r.files == nil || !strings.Contains(src, "[!include") {
		return src, nil
	}
	if len(stack) > r.maxDepth {
		return "", errors.MarkdownError("include depth exceeded").
			WithContext("file", file).
			WithContext("depth", len(stack)).
			Build()
	}

	code := codeRanges(src)
	var edits []edit
	for _, m := range includePattern.FindAllStringSubmatchIndex(src, -1) {
		if inRanges(code, m[0]) {
			continue
		}
		ref := src[m[2]:m[3]]
		if !docpath.IsLocal(ref) {
			continue
		}
		p, _, _ := docpath.SplitRef(ref)
		target := docpath.Resolve(file, p)
		if slices.Contains(stack, target) {
			return "", errors.MarkdownError("circular include").
				WithContext("file", file).
				WithContext("target", target).
				Build()
		}
		text, ok := r.files.ReadFile(target)
		if !ok {
			r.sink.Report(diagnostics.Diagnostic{
				Code:    diagnostics.CodeIncludeNotFound,
				Message: "included file not found: " + target,
				File:    file,
			})
			continue
		}
		res.Dependency.Add(target)
		nested, err := r.expandIncludes(text, target, res, append(stack, target))
		if err != nil {
			return "", err
		}
		edits = append(edits, edit{start: m[0], end: m[1], replacement: strings.TrimRight(nested, "\n")})
	}
	out, err := applyEdits(src, edits)
	if err != nil {
		return "", errors.MarkdownError("failed to expand includes").WithCause(err).WithContext("file", file).Build()
	}
	return out, nil
}

// codeRanges returns the byte ranges of fenced code blocks and inline code
// spans in src.
func codeRanges(src string) [][2]int {
	var ranges [][2]int
	inFence := false
	fence := ""
	fenceStart := 0
	offset := 0
	for _, line := range strings.SplitAfter(src, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case !inFence && (strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")):
			inFence, fence, fenceStart = true, trimmed[:3], offset
		case inFence && strings.HasPrefix(trimmed, fence):
			inFence = false
			ranges = append(ranges, [2]int{fenceStart, offset + len(line)})
		case !inFence:
			ranges = append(ranges, inlineCodeSpans(line, offset)...)
		}
		offset += len(line)
	}
	if inFence {
		ranges = append(ranges, [2]int{fenceStart, len(src)})
	}
	return ranges
}

func inlineCodeSpans(line string, offset int) [][2]int {
	var spans [][2]int
	open := -1
	for i := 0; i < len(line); i++ {
		if line[i] != '`' {
			continue
		}
		if open < 0 {
			open = i
			continue
		}
		spans = append(spans, [2]int{offset + open, offset + i + 1})
		open = -1
	}
	return spans
}

func inRanges(ranges [][2]int, pos int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}

func unescapeUID(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}
