package shader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spsl/internal/cache"
	"spsl/internal/module"
)

func writeModule(t *testing.T, root, rel, source string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
}

func newCache(t *testing.T, root string) *cache.Cache {
	t.Helper()
	c, err := cache.New(root, cache.Options{
		Extensions: []string{module.Extension},
		Debounce:   time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestProgramCompilesImportClosure(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "lib/util.spsl", `
float scale() {
  return 2.0;
}
`)
	writeModule(t, root, "main.spsl", `
from lib.util import (scale)

uniform mat4 proj;

struct V {
  vec4 gl_Position;
  vec3 color;
};

V map_vertex(vec3 pos, vec3 color) {
  V v;
  v.gl_Position = proj * vec4(pos * scale(), 1.0);
  v.color = color;
  return v;
}
`)

	c := newCache(t, root)
	res, ok := cache.Get[Program](c, module.Key("main"), cache.NoArgs{})
	require.True(t, ok, "program should compile")

	p := res.Value()
	assert.Equal(t, module.Key("main"), p.Key)
	assert.Equal(t, []module.Key{"lib.util"}, p.Deps)

	assert.Contains(t, p.GLSL, "#version 330 core\n\n")
	assert.Contains(t, p.GLSL, "float scale()")
	assert.Contains(t, p.GLSL, "uniform mat4 proj;")
	assert.Contains(t, p.GLSL, "layout (location = 0) in vec3 pos;")
	assert.Contains(t, p.GLSL, "out vec3 __v_color;")
	assert.Contains(t, p.GLSL, "void main() {")

	// Imported code lands before the importer's own.
	assert.Less(t,
		indexOf(t, p.GLSL, "float scale()"),
		indexOf(t, p.GLSL, "V map_vertex"))
}

func TestProgramWithoutVertexEntryFails(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "helpers.spsl", `
vec3 tint() {
  return vec3(1.0);
}
`)

	c := newCache(t, root)
	_, ok := cache.Get[Program](c, module.Key("helpers"), cache.NoArgs{})
	assert.False(t, ok, "a module without a vertex entry must not produce a program")
}

func TestProgramMissingImportFails(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "main.spsl", `
from lib.ghost import (nothing)

struct V {
  vec4 gl_Position;
};

V map_vertex() {
  V v;
  return v;
}
`)

	c := newCache(t, root)
	_, ok := cache.Get[Program](c, module.Key("main"), cache.NoArgs{})
	assert.False(t, ok)
}

func TestProgramImportCycleFails(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "a.spsl", `
from b import (fb)

struct V {
  vec4 gl_Position;
};

V map_vertex() {
  V v;
  return v;
}
`)
	writeModule(t, root, "b.spsl", `
from a import (map_vertex)

void fb() {}
`)

	c := newCache(t, root)
	_, ok := cache.Get[Program](c, module.Key("a"), cache.NoArgs{})
	assert.False(t, ok, "import cycles must fail compilation")
}

func TestProgramSharesModulesBetweenPrograms(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "common.spsl", `
float shared_scale() {
  return 1.5;
}
`)
	for _, name := range []string{"one", "two"} {
		writeModule(t, root, name+".spsl", `
from common import (shared_scale)

struct V {
  vec4 gl_Position;
};

V map_vertex() {
  V v;
  return v;
}
`)
	}

	c := newCache(t, root)
	one, ok := cache.Get[Program](c, module.Key("one"), cache.NoArgs{})
	require.True(t, ok)
	two, ok := cache.Get[Program](c, module.Key("two"), cache.NoArgs{})
	require.True(t, ok)

	assert.Equal(t, []module.Key{"common"}, one.Value().Deps)
	assert.Equal(t, []module.Key{"common"}, two.Value().Deps)
	assert.Contains(t, one.Value().GLSL, "shared_scale")
	assert.Contains(t, two.Value().GLSL, "shared_scale")
}

func indexOf(t *testing.T, haystack, needle string) int {
	t.Helper()
	i := strings.Index(haystack, needle)
	require.NotEqual(t, -1, i, "missing %q", needle)
	return i
}
