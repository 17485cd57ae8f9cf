package docset

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"git.home.luguber.info/inful/docschema/internal/docpath"
)

// PathMap maps logical source paths to output paths: documents become
// .html pages, resources keep their path.
type PathMap struct {
	mu        sync.RWMutex
	documents map[string]string
	resources map[string]bool
}

// NewPathMap returns an empty path map.
func NewPathMap() *PathMap {
	return &PathMap{documents: make(map[string]string), resources: make(map[string]bool)}
}

// AddDocument registers a page.
func (m *PathMap) AddDocument(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[key] = OutputPath(key)
}

// AddResource registers a file copied to the output unchanged.
func (m *PathMap) AddResource(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources[key] = true
}

// ResolvePath returns the output path of a registered file.
func (m *PathMap) ResolvePath(logical string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if out, ok := m.documents[logical]; ok {
		return out, true
	}
	if m.resources[logical] {
		return logical, true
	}
	return "", false
}

// OutputPath replaces the extension of key with .html.
func OutputPath(key string) string {
	return strings.TrimSuffix(key, path.Ext(key)) + ".html"
}

// DirReader reads build files from a directory.
type DirReader struct {
	Root string
}

// ReadFile returns the text of the file at logical below Root. Paths that
// would leave Root are cleaned back inside it.
func (r DirReader) ReadFile(logical string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(r.Root, filepath.FromSlash(docpath.Clean(logical))))
	if err != nil {
		return "", false
	}
	return string(data), true
}
