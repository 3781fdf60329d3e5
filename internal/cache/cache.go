// Package cache implements a type-erased, dependency-aware resource
// cache over a filesystem root.
//
// Resources are loaded once per (type, path) pair and handed out as
// shared Res cells. A background watcher translates write events under
// the root into dirty-queue entries; Sync drains the queue on the owning
// goroutine, reloads stale resources in place after a debounce window,
// and cascades each successful reload to every resource that declared a
// dependency on the changed path.
package cache

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"spsl/internal/observability"
)

// DebounceWindow is the minimum elapsed time between a detected file
// change and the reload it triggers. Editors tend to emit bursts of
// write events for a single save; the window coalesces one burst into
// one reload.
const DebounceWindow = 100 * time.Millisecond

// defaultQueueSize bounds the dirty queue. The watcher drops (and
// counts) events when the owning goroutine falls this far behind.
const defaultQueueSize = 256

// Key resolves a resource identity to a path relative to the cache root.
type Key interface {
	ResourcePath() string
}

// PathKey is the identity Key: the key is the relative path itself.
type PathKey string

func (k PathKey) ResourcePath() string { return string(k) }

// NoArgs is the construction-argument type for resources that take none.
type NoArgs struct{}

// Loadable is implemented by resource types. Load reads the resource
// from path into the receiver and returns the root-relative paths of
// every file the resource depends on. The cache is passed through so
// loads may recursively load further resources.
type Loadable[A any] interface {
	Load(path string, c *Cache, args A) ([]string, error)
}

// LoadablePtr constrains PT to be a pointer to T implementing Loadable.
type LoadablePtr[T any, A any] interface {
	*T
	Loadable[A]
}

// Options configures cache construction.
type Options struct {
	// Debounce overrides DebounceWindow when positive.
	Debounce time.Duration
	// QueueSize overrides the dirty queue capacity when positive.
	QueueSize int
	// Extensions restricts watch events to the listed file extensions
	// (with leading dot). Empty means all files.
	Extensions []string
	// ExcludeDirs and ExcludeFiles are glob patterns matched against
	// base names, as in the watcher configuration.
	ExcludeDirs  []string
	ExcludeFiles []string
}

type dirtyEvent struct {
	path string // root-relative, slash-separated
	at   time.Time
}

// meta is the reload metadata for one (type, path) resource instance.
type meta struct {
	key        string
	path       string
	reload     func() error
	lastUpdate time.Time
}

// Reload reports one reload attempted during Sync.
type Reload struct {
	Path string
	Err  error
}

// Cache is the process-scoped resource store. All methods except the
// watcher's internal append must be called from a single owning
// goroutine.
type Cache struct {
	root      string
	debounce  time.Duration
	resources map[string]any     // cache key -> *Res[T]
	metas     map[string][]*meta // relative path -> typed entries at that path
	deps      map[string]map[string]struct{} // dependency path -> dependent paths
	dirty     chan dirtyEvent
	watcher   *watcher
}

// New canonicalizes root, spawns the filesystem watcher and returns an
// empty cache. The only construction failure is a root that cannot be
// resolved.
func New(root string, opts Options) (*Cache, error) {
	canonical, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, &rootError{root: root, err: err}
	}
	canonical, err = filepath.Abs(canonical)
	if err != nil {
		return nil, &rootError{root: root, err: err}
	}

	debounce := DebounceWindow
	if opts.Debounce > 0 {
		debounce = opts.Debounce
	}
	queueSize := defaultQueueSize
	if opts.QueueSize > 0 {
		queueSize = opts.QueueSize
	}

	c := &Cache{
		root:      canonical,
		debounce:  debounce,
		resources: make(map[string]any),
		metas:     make(map[string][]*meta),
		deps:      make(map[string]map[string]struct{}),
		dirty:     make(chan dirtyEvent, queueSize),
	}

	w, err := newWatcher(canonical, c.dirty, opts.Extensions, opts.ExcludeDirs, opts.ExcludeFiles)
	if err != nil {
		return nil, err
	}
	c.watcher = w

	return c, nil
}

// Close stops the watcher. Cached resources stay valid.
func (c *Cache) Close() error {
	if c.watcher == nil {
		return nil
	}
	return c.watcher.Close()
}

// Root returns the canonicalized cache root.
func (c *Cache) Root() string { return c.root }

// Rel converts an absolute path under the root to the root-relative,
// slash-separated form used for cache bookkeeping.
func (c *Cache) Rel(path string) string {
	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Get returns the resource of type T at key, loading it on first use.
// On any failure it logs, leaves the cache untouched and reports false.
func Get[T any, A any, PT LoadablePtr[T, A]](c *Cache, key Key, args A) (*Res[T], bool) {
	ck := cacheKey[T](key)
	if cached, ok := c.resources[ck]; ok {
		observability.CacheHitsTotal.Inc()
		return cached.(*Res[T]), true
	}
	observability.CacheMissesTotal.Inc()

	rel := key.ResourcePath()
	abs := filepath.Join(c.root, filepath.FromSlash(rel))
	if _, err := os.Stat(abs); err != nil {
		slog.Warn("resource file does not exist", "path", rel)
		return nil, false
	}

	val := new(T)
	deps, err := PT(val).Load(abs, c, args)
	if err != nil {
		slog.Warn("resource load failed", "path", rel, "error", err)
		return nil, false
	}

	res := newRes(val)
	c.inject(ck, rel, res, deps, reloadClosure[T, A, PT](c, abs, rel, args, res))
	return res, true
}

// GetProxied behaves like Get but substitutes proxy on any failure. The
// proxy is cached under the same key with no dependencies, so later Gets
// of the identical key observe the same instance; its reload closure
// still attempts a real load so a fixed file eventually replaces the
// proxy.
func GetProxied[T any, A any, PT LoadablePtr[T, A]](c *Cache, key Key, args A, proxy T) *Res[T] {
	if res, ok := Get[T, A, PT](c, key, args); ok {
		return res
	}

	ck := cacheKey[T](key)
	rel := key.ResourcePath()
	abs := filepath.Join(c.root, filepath.FromSlash(rel))
	slog.Info("substituting proxy value", "path", rel)

	val := new(T)
	*val = proxy
	res := newRes(val)
	c.inject(ck, rel, res, nil, reloadClosure[T, A, PT](c, abs, rel, args, res))
	return res
}

// reloadClosure captures everything needed to reload a resource in
// place with its original construction arguments.
func reloadClosure[T any, A any, PT LoadablePtr[T, A]](c *Cache, abs, rel string, args A, res *Res[T]) func() error {
	return func() error {
		fresh := new(T)
		deps, err := PT(fresh).Load(abs, c, args)
		if err != nil {
			return err
		}
		*res.val = *fresh
		// A reload may change the dependency list; stale registrations
		// would keep reloading this path on edits to former dependencies.
		c.unregisterDeps(rel)
		c.registerDeps(rel, deps)
		return nil
	}
}

// inject stores a freshly loaded resource with its reload metadata and
// dependency registrations.
func (c *Cache) inject(ck, rel string, res any, deps []string, reload func() error) {
	c.resources[ck] = res
	c.metas[rel] = append(c.metas[rel], &meta{
		key:        ck,
		path:       rel,
		reload:     reload,
		lastUpdate: time.Now(),
	})
	c.registerDeps(rel, deps)
}

// unregisterDeps removes rel from every dependent set, ahead of
// re-registration with a fresh dependency list.
func (c *Cache) unregisterDeps(rel string) {
	for dep, set := range c.deps {
		delete(set, rel)
		if len(set) == 0 {
			delete(c.deps, dep)
		}
	}
}

// registerDeps records rel as a dependent of every path in deps. A
// dependency path keeps the full set of its dependents, so independent
// resources sharing a dependency all get notified.
func (c *Cache) registerDeps(rel string, deps []string) {
	for _, dep := range deps {
		set, ok := c.deps[dep]
		if !ok {
			set = make(map[string]struct{})
			c.deps[dep] = set
		}
		set[rel] = struct{}{}
	}
}

// Sync drains the dirty queue and reloads every stale resource whose
// debounce window has elapsed, cascading successful reloads to
// dependents. Failures are logged and reported but never abort the
// cycle; the stale value stays in place.
func (c *Cache) Sync() []Reload {
	var report []Reload

	for {
		var ev dirtyEvent
		select {
		case ev = <-c.dirty:
		default:
			return report
		}

		metas := c.metas[ev.path]
		if len(metas) == 0 {
			// No resource lives at this path, but something may depend
			// on it (a file read during another resource's load).
			if _, ok := c.deps[ev.path]; ok {
				c.cascade(ev.path, &report, map[string]bool{ev.path: true})
			}
			continue
		}
		reloaded := false
		for _, m := range metas {
			if ev.at.Sub(m.lastUpdate) >= c.debounce {
				if err := m.reload(); err != nil {
					observability.ReloadFailuresTotal.Inc()
					slog.Warn("resource reload failed, keeping stale value", "path", m.path, "error", err)
					report = append(report, Reload{Path: m.path, Err: err})
				} else {
					observability.ResourceReloadsTotal.Inc()
					slog.Debug("resource reloaded", "path", m.path)
					report = append(report, Reload{Path: m.path})
					reloaded = true
				}
			}
			// The timestamp advances whether or not a reload fired, so
			// a burst of events coalesces into a single reload.
			m.lastUpdate = ev.at
		}
		// One cascade per drained event: several resources can live at
		// the same path, but their dependents reload at most once.
		if reloaded {
			c.cascade(ev.path, &report, map[string]bool{ev.path: true})
		}
	}
}

// cascade reloads every dependent registered for path, then their
// dependents in turn. The seen set guarantees each path reloads at most
// once per Sync call.
func (c *Cache) cascade(path string, report *[]Reload, seen map[string]bool) {
	for dependent := range c.deps[path] {
		if seen[dependent] {
			continue
		}
		seen[dependent] = true

		for _, m := range c.metas[dependent] {
			if err := m.reload(); err != nil {
				observability.ReloadFailuresTotal.Inc()
				slog.Warn("cascading reload failed", "path", m.path, "dependency", path, "error", err)
				*report = append(*report, Reload{Path: m.path, Err: err})
				continue
			}
			observability.ResourceReloadsTotal.Inc()
			slog.Debug("cascading reload", "path", m.path, "dependency", path)
			*report = append(*report, Reload{Path: m.path})
		}
		c.cascade(dependent, report, seen)
	}
}

// cacheKey builds the type-and-path cache key for T.
func cacheKey[T any](key Key) string {
	return reflect.TypeOf((*T)(nil)).Elem().String() + ":" + key.ResourcePath()
}

// rootError wraps the underlying canonicalization failure while
// matching ErrRootDoesNotExist.
type rootError struct {
	root string
	err  error
}

func (e *rootError) Error() string {
	return ErrRootDoesNotExist.Error() + ": " + e.root + ": " + e.err.Error()
}

func (e *rootError) Unwrap() error { return e.err }

func (e *rootError) Is(target error) bool { return target == ErrRootDoesNotExist }
