package cache

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"spsl/internal/observability"
)

// watcher recursively watches the cache root and appends one timestamped
// dirty event per relevant write. It is the only writer of the dirty
// queue; the owning goroutine is the only reader.
type watcher struct {
	fsWatcher    *fsnotify.Watcher
	root         string
	events       chan<- dirtyEvent
	extFilters   map[string]bool
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
}

func newWatcher(root string, events chan<- dirtyEvent, extensions, excludeDirs, excludeFiles []string) (*watcher, error) {
	compiledDirs := make([]glob.Glob, 0, len(excludeDirs))
	for _, pattern := range excludeDirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		compiledDirs = append(compiledDirs, g)
	}

	compiledFiles := make([]glob.Glob, 0, len(excludeFiles))
	for _, pattern := range excludeFiles {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		compiledFiles = append(compiledFiles, g)
	}

	extFilter := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		extFilter[normalized] = true
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &watcher{
		fsWatcher:    fsw,
		root:         root,
		events:       events,
		extFilters:   extFilter,
		excludeDirs:  compiledDirs,
		excludeFiles: compiledFiles,
	}

	if err := w.watchRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	go w.run()
	return w, nil
}

func (w *watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if w.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}
		return nil
	})
}

func (w *watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.shouldExcludeDir(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						}
					}
					continue
				}
			}

			if w.shouldExcludeFile(event.Name) {
				continue
			}

			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {
				w.enqueue(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

// enqueue appends a dirty event without ever blocking the watcher
// goroutine; when the owner falls behind, events are dropped and
// counted.
func (w *watcher) enqueue(path string) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		slog.Warn("event outside cache root", "path", path, "error", err)
		return
	}

	select {
	case w.events <- dirtyEvent{path: filepath.ToSlash(rel), at: time.Now()}:
	default:
		observability.DirtyDroppedTotal.Inc()
		slog.Warn("dirty queue full, dropping event", "path", rel)
	}
}

func (w *watcher) shouldExcludeDir(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *watcher) shouldExcludeFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))

	if len(w.extFilters) > 0 {
		ext := strings.ToLower(filepath.Ext(base))
		if !w.extFilters[ext] {
			return true
		}
	}

	for _, g := range w.excludeFiles {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *watcher) Close() error {
	return w.fsWatcher.Close()
}
