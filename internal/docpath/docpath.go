// Package docpath resolves the logical, slash-separated paths used to
// address documents inside a build: links between documents, includes and
// output locations.
package docpath

import (
	"net/url"
	"path"
	"strings"
)

// IsAbsoluteURI reports whether ref carries a URI scheme or is
// protocol-relative. Single letter schemes are treated as drive letters.
func IsAbsoluteURI(ref string) bool {
	if strings.HasPrefix(ref, "//") {
		return true
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return len(u.Scheme) > 1
}

// IsRootRelative reports whether ref starts at the site root.
func IsRootRelative(ref string) bool {
	return strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//")
}

// IsLocal reports whether ref addresses another file of the build.
func IsLocal(ref string) bool {
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "?") {
		return false
	}
	return !IsAbsoluteURI(ref) && !IsRootRelative(ref)
}

// SplitRef splits ref into its path, query (with '?') and fragment (with '#').
func SplitRef(ref string) (p, query, fragment string) {
	p = ref
	if i := strings.IndexByte(p, '#'); i >= 0 {
		fragment = p[i:]
		p = p[:i]
	}
	if i := strings.IndexByte(p, '?'); i >= 0 {
		query = p[i:]
		p = p[:i]
	}
	return p, query, fragment
}

// Clean normalizes a logical path: forward slashes, no leading "./" or
// "/", no ".." escaping the root.
func Clean(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	c := path.Clean("/" + p)
	return strings.TrimPrefix(c, "/")
}

// Resolve resolves rel against the directory containing origin. A "~/"
// prefix addresses the build root.
func Resolve(origin, rel string) string {
	if unescaped, err := url.PathUnescape(rel); err == nil {
		rel = unescaped
	}
	if strings.HasPrefix(rel, "~/") {
		return Clean(rel[2:])
	}
	return Clean(path.Join(path.Dir(Clean(origin)), rel))
}

// ResolveFromFile resolves a schema reference value against the file
// origin. Leading ".." segments climb from origin itself, so the first one
// leaves the file: from "a/b.md", "../c.md" is "a/c.md" and "../../c.md" is
// "c.md". Other relative values resolve against the directory of origin,
// like Resolve.
func ResolveFromFile(origin, rel string) string {
	if unescaped, err := url.PathUnescape(rel); err == nil {
		rel = unescaped
	}
	if strings.HasPrefix(rel, "~/") {
		return Clean(rel[2:])
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return Clean(path.Join(Clean(origin), rel))
	}
	return Clean(path.Join(path.Dir(Clean(origin)), rel))
}

// Relative returns the path of target relative to the directory of from.
// Both are logical paths from the build root.
func Relative(from, target string) string {
	fromDir := strings.Split(path.Dir(Clean(from)), "/")
	if len(fromDir) == 1 && fromDir[0] == "." {
		fromDir = nil
	}
	to := strings.Split(Clean(target), "/")

	common := 0
	for common < len(fromDir) && common < len(to)-1 && fromDir[common] == to[common] {
		common++
	}
	parts := make([]string, 0, len(fromDir)-common+len(to)-common)
	for range fromDir[common:] {
		parts = append(parts, "..")
	}
	parts = append(parts, to[common:]...)
	return strings.Join(parts, "/")
}
