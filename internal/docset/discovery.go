package docset

import (
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
	"git.home.luguber.info/inful/docschema/internal/logfields"
)

// Options selects and classifies the input files of a build.
type Options struct {
	// Root is the input directory. Document keys are slash-separated paths
	// relative to Root.
	Root string
	// Include and Exclude filter keys by glob; "**" matches any number of
	// directories. An empty Include selects every file.
	Include []string
	Exclude []string
	// Overwrites selects the markdown files that are overwrite documents.
	Overwrites []string
}

// File is a discovered input file.
type File struct {
	Key  string
	Path string
}

// Discover walks opts.Root and returns the selected files in lexical key
// order, which is the discovery order overwrites are folded in.
func Discover(opts Options) ([]File, error) {
	var files []File
	err := filepath.WalkDir(opts.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && p != opts.Root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(opts.Root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !selected(opts, key) {
			return nil
		}
		files = append(files, File{Key: key, Path: p})
		slog.Debug("Discovered file", logfields.File(key))
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to discover input files").
			WithContext("root", opts.Root).
			Build()
	}
	return files, nil
}

func selected(opts Options, key string) bool {
	if len(opts.Include) > 0 && !MatchAny(opts.Include, key) {
		return false
	}
	return !MatchAny(opts.Exclude, key)
}

// MatchAny reports whether key matches one of patterns.
func MatchAny(patterns []string, key string) bool {
	for _, p := range patterns {
		if Match(p, key) {
			return true
		}
	}
	return false
}

// Match reports whether key matches the glob pattern. Segments follow
// path.Match; a "**" segment matches zero or more segments.
func Match(pattern, key string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(key, "/"))
}

func matchSegments(pattern, key []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			rest := pattern[1:]
			for i := 0; i <= len(key); i++ {
				if matchSegments(rest, key[i:]) {
					return true
				}
			}
			return false
		}
		if len(key) == 0 {
			return false
		}
		if ok, err := path.Match(pattern[0], key[0]); err != nil || !ok {
			return false
		}
		pattern, key = pattern[1:], key[1:]
	}
	return len(key) == 0
}
