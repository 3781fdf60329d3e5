package cache

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// doc is the test resource: file content plus dependency paths handed in
// as construction arguments.
type doc struct {
	Content string
}

func (d *doc) Load(path string, _ *Cache, deps []string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewFileNotFound(path, err)
	}
	d.Content = string(data)
	return deps, nil
}

// note is a second resource type for tests where one path hosts more
// than one resource.
type note struct {
	Content string
}

func (n *note) Load(path string, _ *Cache, deps []string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewFileNotFound(path, err)
	}
	n.Content = string(data)
	return deps, nil
}

// linkDoc derives its dependency list from its own content: every
// whitespace-separated field names a dependency path.
type linkDoc struct {
	Content string
}

func (d *linkDoc) Load(path string, _ *Cache, _ NoArgs) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewFileNotFound(path, err)
	}
	d.Content = string(data)
	return strings.Fields(string(data)), nil
}

// newTestCache builds a cache whose watcher filters out everything, so
// tests drive the dirty queue by hand and stay deterministic.
func newTestCache(t *testing.T, root string) *Cache {
	t.Helper()
	c, err := New(root, Options{Extensions: []string{".never"}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), Options{})
	if !errors.Is(err, ErrRootDoesNotExist) {
		t.Fatalf("expected ErrRootDoesNotExist, got %v", err)
	}
}

func TestGetCachesInstance(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "one")
	c := newTestCache(t, root)

	first, ok := Get[doc](c, PathKey("a.txt"), []string(nil))
	if !ok {
		t.Fatal("expected load to succeed")
	}
	if first.Value().Content != "one" {
		t.Errorf("unexpected content %q", first.Value().Content)
	}

	second, ok := Get[doc](c, PathKey("a.txt"), []string(nil))
	if !ok {
		t.Fatal("expected cache hit")
	}
	if first != second {
		t.Error("cache hit must return the same Res instance")
	}
}

func TestGetMissingFile(t *testing.T) {
	c := newTestCache(t, t.TempDir())

	if _, ok := Get[doc](c, PathKey("ghost.txt"), []string(nil)); ok {
		t.Fatal("expected failure for a missing file")
	}
}

func TestGetProxied(t *testing.T) {
	c := newTestCache(t, t.TempDir())

	res := GetProxied[doc](c, PathKey("ghost.txt"), []string(nil), doc{Content: "proxy"})
	if res.Value().Content != "proxy" {
		t.Errorf("expected proxy value, got %q", res.Value().Content)
	}

	again, ok := Get[doc](c, PathKey("ghost.txt"), []string(nil))
	if !ok || again != res {
		t.Error("the proxy must be cached under the real key")
	}
}

func TestSyncReloadsInPlace(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "one")
	c := newTestCache(t, root)

	res, _ := Get[doc](c, PathKey("a.txt"), []string(nil))
	writeFile(t, root, "a.txt", "two")

	c.dirty <- dirtyEvent{path: "a.txt", at: time.Now().Add(time.Second)}
	report := c.Sync()

	if len(report) != 1 || report[0].Err != nil {
		t.Fatalf("unexpected report: %+v", report)
	}
	if res.Value().Content != "two" {
		t.Errorf("the shared cell must see the fresh value, got %q", res.Value().Content)
	}
}

func TestSyncDebounceCoalesces(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "one")
	c := newTestCache(t, root)

	res, _ := Get[doc](c, PathKey("a.txt"), []string(nil))
	writeFile(t, root, "a.txt", "two")

	// Within the window: consumed, but no reload.
	c.dirty <- dirtyEvent{path: "a.txt", at: time.Now()}
	if report := c.Sync(); len(report) != 0 {
		t.Fatalf("expected no reload inside the debounce window, got %+v", report)
	}
	if res.Value().Content != "one" {
		t.Errorf("value must stay stale inside the window, got %q", res.Value().Content)
	}

	// Past the window: reload fires.
	c.dirty <- dirtyEvent{path: "a.txt", at: time.Now().Add(2 * time.Second)}
	if report := c.Sync(); len(report) != 1 {
		t.Fatalf("expected one reload past the window, got %+v", report)
	}
	if res.Value().Content != "two" {
		t.Errorf("expected fresh value, got %q", res.Value().Content)
	}
}

func TestSyncReloadFailureKeepsStale(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "one")
	c := newTestCache(t, root)

	res, _ := Get[doc](c, PathKey("a.txt"), []string(nil))
	if err := os.Remove(filepath.Join(root, "a.txt")); err != nil {
		t.Fatal(err)
	}

	c.dirty <- dirtyEvent{path: "a.txt", at: time.Now().Add(time.Second)}
	report := c.Sync()

	if len(report) != 1 || report[0].Err == nil {
		t.Fatalf("expected a failed reload in the report, got %+v", report)
	}
	if res.Value().Content != "one" {
		t.Errorf("stale value must survive a failed reload, got %q", res.Value().Content)
	}
}

func TestSyncCascadesToAllDependents(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "x.txt", "x1")
	writeFile(t, root, "y.txt", "y1")
	writeFile(t, root, "shared.txt", "s1")
	c := newTestCache(t, root)

	// Two independent resources declare the same dependency; the file
	// they depend on is not itself a resource.
	x, _ := Get[doc](c, PathKey("x.txt"), []string{"shared.txt"})
	y, _ := Get[doc](c, PathKey("y.txt"), []string{"shared.txt"})

	writeFile(t, root, "x.txt", "x2")
	writeFile(t, root, "y.txt", "y2")

	c.dirty <- dirtyEvent{path: "shared.txt", at: time.Now().Add(time.Second)}
	report := c.Sync()

	counts := map[string]int{}
	for _, r := range report {
		if r.Err != nil {
			t.Fatalf("unexpected reload failure: %+v", r)
		}
		counts[r.Path]++
	}
	if counts["x.txt"] != 1 || counts["y.txt"] != 1 {
		t.Fatalf("both dependents must reload exactly once, got %+v", counts)
	}
	if x.Value().Content != "x2" || y.Value().Content != "y2" {
		t.Errorf("dependents not refreshed: %q, %q", x.Value().Content, y.Value().Content)
	}
}

func TestReloadDropsStaleDependencies(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "shared.txt")
	writeFile(t, root, "shared.txt", "s1")
	c := newTestCache(t, root)

	a, ok := Get[linkDoc](c, PathKey("a.txt"), NoArgs{})
	if !ok {
		t.Fatal("expected load to succeed")
	}

	// While the dependency is declared, edits to it cascade.
	c.dirty <- dirtyEvent{path: "shared.txt", at: time.Now().Add(time.Second)}
	if report := c.Sync(); len(report) != 1 || report[0].Path != "a.txt" {
		t.Fatalf("expected a cascading reload of a.txt, got %+v", report)
	}

	// The reload rewrites the dependency list from file content.
	writeFile(t, root, "a.txt", "")
	c.dirty <- dirtyEvent{path: "a.txt", at: time.Now().Add(2 * time.Second)}
	if report := c.Sync(); len(report) != 1 || report[0].Err != nil {
		t.Fatalf("expected a clean direct reload, got %+v", report)
	}
	if a.Value().Content != "" {
		t.Fatalf("expected reloaded content, got %q", a.Value().Content)
	}

	// The former dependency must not reach a.txt anymore.
	c.dirty <- dirtyEvent{path: "shared.txt", at: time.Now().Add(3 * time.Second)}
	if report := c.Sync(); len(report) != 0 {
		t.Errorf("stale dependency registration survived the reload: %+v", report)
	}
}

func TestSyncCascadesOncePerEvent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "a1")
	writeFile(t, root, "b.txt", "b1")
	c := newTestCache(t, root)

	// Two resources of different types share one path; a third resource
	// depends on that path.
	Get[doc](c, PathKey("a.txt"), []string(nil))
	Get[note](c, PathKey("a.txt"), []string(nil))
	b, _ := Get[doc](c, PathKey("b.txt"), []string{"a.txt"})

	writeFile(t, root, "a.txt", "a2")
	writeFile(t, root, "b.txt", "b2")

	c.dirty <- dirtyEvent{path: "a.txt", at: time.Now().Add(time.Second)}
	report := c.Sync()

	counts := map[string]int{}
	for _, r := range report {
		if r.Err != nil {
			t.Fatalf("unexpected reload failure: %+v", r)
		}
		counts[r.Path]++
	}
	if counts["a.txt"] != 2 {
		t.Errorf("both resources at the changed path must reload, got %+v", counts)
	}
	if counts["b.txt"] != 1 {
		t.Errorf("the dependent must reload exactly once, got %+v", counts)
	}
	if b.Value().Content != "b2" {
		t.Errorf("dependent not refreshed, got %q", b.Value().Content)
	}
}

func TestSyncCascadesTransitively(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "a1")
	writeFile(t, root, "b.txt", "b1")
	writeFile(t, root, "c.txt", "c1")
	c := newTestCache(t, root)

	a, _ := Get[doc](c, PathKey("a.txt"), []string(nil))
	b, _ := Get[doc](c, PathKey("b.txt"), []string{"a.txt"})
	cc, _ := Get[doc](c, PathKey("c.txt"), []string{"b.txt"})

	writeFile(t, root, "a.txt", "a2")
	writeFile(t, root, "b.txt", "b2")
	writeFile(t, root, "c.txt", "c2")

	c.dirty <- dirtyEvent{path: "a.txt", at: time.Now().Add(time.Second)}
	report := c.Sync()

	if len(report) != 3 {
		t.Fatalf("expected 3 reloads, got %+v", report)
	}
	if a.Value().Content != "a2" || b.Value().Content != "b2" || cc.Value().Content != "c2" {
		t.Errorf("chain not refreshed: %q, %q, %q",
			a.Value().Content, b.Value().Content, cc.Value().Content)
	}
}
