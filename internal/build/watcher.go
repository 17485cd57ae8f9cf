package build

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
	"git.home.luguber.info/inful/docschema/internal/logfields"
)

// RebuildFunc is called with the changed paths once the watched trees
// have been quiet for the debounce period.
type RebuildFunc func(ctx context.Context, changed []string)

// Watcher monitors directory trees and triggers debounced rebuilds.
// Rebuilds run on the watcher goroutine, so they never overlap.
type Watcher struct {
	roots    []string
	files    map[string]struct{}
	ignore   []string
	debounce time.Duration
	rebuild  RebuildFunc
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for roots. Paths below an ignore directory
// never trigger a rebuild.
func NewWatcher(roots, ignore []string, debounce time.Duration, rebuild RebuildFunc) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to create file watcher").Build()
	}
	w := &Watcher{
		debounce: debounce,
		rebuild:  rebuild,
		watcher:  watcher,
	}
	for _, p := range ignore {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		w.ignore = append(w.ignore, abs)
	}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			_ = watcher.Close()
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve watch path").
				WithContext("path", root).
				Build()
		}
		w.roots = append(w.roots, abs)
	}
	return w, nil
}

// WithFiles additionally watches single files such as the configuration.
// Only the files themselves trigger rebuilds, not their siblings.
func (w *Watcher) WithFiles(files ...string) *Watcher {
	if w.files == nil {
		w.files = make(map[string]struct{})
	}
	for _, f := range files {
		if abs, err := filepath.Abs(f); err == nil {
			w.files[abs] = struct{}{}
		}
	}
	return w
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", logfields.Error(err))
		}
	}()

	for _, root := range w.roots {
		if err := w.addTree(root); err != nil {
			return err
		}
	}
	for f := range w.files {
		if err := w.watcher.Add(filepath.Dir(f)); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to watch file").
				WithContext("path", f).
				Build()
		}
	}
	slog.Info("Watching for changes", slog.Any("paths", w.roots), slog.Duration("debounce", w.debounce))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create == fsnotify.Create && w.inTree(event.Name) {
				w.addIfDir(event.Name)
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			slog.Debug("Change detected", logfields.File(event.Name), slog.String("op", event.Op.String()))
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			if len(changed) > 0 {
				w.rebuild(ctx, changed)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

// addTree watches root and every directory below it except hidden and
// ignored ones.
func (w *Watcher) addTree(root string) error {
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && (strings.HasPrefix(d.Name(), ".") || w.ignored(p)) {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to watch directory").
			WithContext("path", root).
			Build()
	}
	return nil
}

func (w *Watcher) addIfDir(p string) {
	if err := w.addTree(p); err != nil {
		slog.Debug("Not watching created path", logfields.File(p), logfields.Error(err))
	}
}

func (w *Watcher) relevant(p string) bool {
	if _, ok := w.files[p]; ok {
		return true
	}
	return w.inTree(p) && !w.ignored(p)
}

func (w *Watcher) inTree(p string) bool {
	for _, root := range w.roots {
		if within(p, root) {
			return true
		}
	}
	return false
}

func (w *Watcher) ignored(p string) bool {
	for _, dir := range w.ignore {
		if within(p, dir) {
			return true
		}
	}
	return false
}

func within(p, dir string) bool {
	return p == dir || strings.HasPrefix(p, dir+string(filepath.Separator))
}
