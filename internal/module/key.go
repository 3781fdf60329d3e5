package module

import (
	"path"
	"strings"
)

// Extension is the fixed SPSL module file extension.
const Extension = ".spsl"

// Key identifies a module by its dotted path. Keys are bijective with
// file paths under the cache root: `a.b.c` resolves to `a/b/c.spsl`.
type Key string

// ResourcePath implements cache.Key.
func (k Key) ResourcePath() string {
	return strings.ReplaceAll(string(k), ".", "/") + Extension
}

func (k Key) String() string { return string(k) }

// KeyForPath inverts ResourcePath for a root-relative, slash-separated
// file path.
func KeyForPath(rel string) Key {
	rel = strings.TrimSuffix(path.Clean(rel), Extension)
	return Key(strings.ReplaceAll(rel, "/", "."))
}
