// Package shader builds renderable GLSL programs from SPSL modules.
package shader

import (
	"time"

	"spsl/internal/cache"
	"spsl/internal/glsl"
	"spsl/internal/module"
	"spsl/internal/observability"
)

// versionPragma heads every emitted program. The emitter targets the
// GLSL 330 core profile.
const versionPragma = "#version 330 core\n\n"

// Program is a compiled shader program: the module named by Key,
// flattened with its transitive imports and lowered to GLSL source.
//
// Program depends on every module in its import closure, so an edit to
// any of them recompiles the program on the next Sync.
type Program struct {
	GLSL string
	Key  module.Key
	Deps []module.Key
}

// Load implements the cache Load contract. The module itself comes
// through the cache, so the program shares parsed modules with every
// other program importing them.
func (p *Program) Load(path string, c *cache.Cache, _ cache.NoArgs) ([]string, error) {
	start := time.Now()

	key := module.KeyForPath(c.Rel(path))

	res, ok := cache.Get[module.Module](c, key, cache.NoArgs{})
	if !ok {
		return nil, cache.NewConversionFailed(path, &module.DepLoadError{Key: key})
	}
	root := res.Value()

	store := module.NewCacheStore(c)
	flat, deps, err := root.Gather(store, key)
	if err != nil {
		return nil, cache.NewConversionFailed(path, err)
	}
	observability.CompileDuration.WithLabelValues("gather").Observe(time.Since(start).Seconds())

	emitStart := time.Now()
	src, err := glsl.Emit(flat)
	if err != nil {
		return nil, cache.NewConversionFailed(path, err)
	}
	observability.CompileDuration.WithLabelValues("emit").Observe(time.Since(emitStart).Seconds())

	p.GLSL = versionPragma + src
	p.Key = key
	p.Deps = deps

	depPaths := make([]string, 0, len(deps))
	for _, dep := range deps {
		depPaths = append(depPaths, dep.ResourcePath())
	}
	return depPaths, nil
}
