package module

import (
	"fmt"

	"spsl/internal/cache"
)

// Store supplies dependency modules during resolution. The cache-backed
// implementation below is the production one; tests use map-backed
// fakes.
type Store interface {
	Module(key Key) (*Module, bool)
}

// CycleError reports an import cycle. Importee is already on the DFS
// path when Importer imports it; a self-import is the length-1 case.
type CycleError struct {
	Importer Key
	Importee Key
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("import cycle: %s imports %s which is already being imported", e.Importer, e.Importee)
}

// DepLoadError reports a dependency module that could not be fetched
// from the store.
type DepLoadError struct {
	Key Key
}

func (e *DepLoadError) Error() string {
	return fmt.Sprintf("cannot load module %s", e.Key)
}

// Deps returns the transitive dependencies of the module, without
// duplicates, in dependency-before-dependent order.
func (m *Module) Deps(st Store, key Key) ([]Key, error) {
	var deps []Key
	if err := m.depsNoCycle(st, key, nil, &deps); err != nil {
		return nil, err
	}
	return deps, nil
}

// depsNoCycle walks the import graph depth-first. parents is the
// ancestor stack of the current DFS path; a key appended to deps only
// after its own dependencies guarantees topological order.
func (m *Module) depsNoCycle(st Store, key Key, parents []Key, deps *[]Key) error {
	parents = append(parents, key)

	for _, imp := range m.Imports {
		importee := Key(imp.Module)

		if containsKey(*deps, importee) {
			continue
		}
		if containsKey(parents, importee) {
			return &CycleError{Importer: key, Importee: importee}
		}

		dep, ok := st.Module(importee)
		if !ok {
			return &DepLoadError{Key: importee}
		}
		if err := dep.depsNoCycle(st, importee, parents, deps); err != nil {
			return err
		}

		*deps = append(*deps, importee)
	}

	return nil
}

// Gather flattens the module and its transitive dependencies into one
// import-free module: dependency declarations first, in resolution
// order, then the module's own. The dependency list is returned
// alongside. Gather on an import-free module returns its body unchanged
// with an empty dependency list.
func (m *Module) Gather(st Store, key Key) (*Module, []Key, error) {
	deps, err := m.Deps(st, key)
	if err != nil {
		return nil, nil, err
	}

	flat := &Module{}
	for _, dk := range deps {
		dep, ok := st.Module(dk)
		if !ok {
			return nil, nil, &DepLoadError{Key: dk}
		}
		flat.Decls = append(flat.Decls, dep.Decls...)
	}
	flat.Decls = append(flat.Decls, m.Decls...)

	return flat, deps, nil
}

func containsKey(keys []Key, key Key) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// CacheStore adapts the resource cache to the Store interface, so
// resolution pulls dependency modules through the cache (loading and
// registering them on first use).
type CacheStore struct {
	c *cache.Cache
}

func NewCacheStore(c *cache.Cache) *CacheStore {
	return &CacheStore{c: c}
}

func (s *CacheStore) Module(key Key) (*Module, bool) {
	res, ok := cache.Get[Module](s.c, key, cache.NoArgs{})
	if !ok {
		return nil, false
	}
	return res.Value(), true
}
