package config

import (
	"path"
	"path/filepath"
	"strings"
)

// globSyntax checks every segment of a slash-separated glob with path.Match.
func globSyntax(pattern string) (bool, error) {
	for _, seg := range strings.Split(pattern, "/") {
		if seg == "**" {
			continue
		}
		if _, err := path.Match(seg, ""); err != nil {
			return false, err
		}
	}
	return true, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// Resolve makes the relative paths of cfg relative to dir, the directory of
// the configuration file.
func (c *Config) Resolve(dir string) {
	for _, p := range []*string{&c.Input.Root, &c.Schemas.Directory, &c.Output.Directory, &c.Store.Path, &c.Metrics.Textfile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}
