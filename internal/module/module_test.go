package module

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"spsl/internal/cache"
	"spsl/internal/parser"
)

func parseModule(t *testing.T, source string) *Module {
	t.Helper()
	ast, err := parser.ParseModule(source)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return &Module{Imports: ast.Imports, Decls: ast.Decls}
}

func TestKeyRoundTrip(t *testing.T) {
	key := Key("lib.color.srgb")
	path := key.ResourcePath()
	if path != "lib/color/srgb.spsl" {
		t.Errorf("unexpected resource path %q", path)
	}
	if back := KeyForPath(path); back != key {
		t.Errorf("round trip produced %q", back)
	}
}

func TestUniformsExpandDeclaratorLists(t *testing.T) {
	m := parseModule(t, `
uniform mat4 proj, view;
uniform float t;
const float PI = 3.14;
`)

	uniforms := m.Uniforms()
	if len(uniforms) != 3 {
		t.Fatalf("expected 3 uniforms, got %d", len(uniforms))
	}
	wantNames := []string{"proj", "view", "t"}
	for i, u := range uniforms {
		if len(u.Names) != 1 {
			t.Fatalf("expanded uniform must carry one declarator, got %d", len(u.Names))
		}
		if u.Names[0].Name != wantNames[i] {
			t.Errorf("uniform %d: expected %q, got %q", i, wantNames[i], u.Names[0].Name)
		}
	}
	// Head and tail of the list share the declared type.
	if uniforms[0].Type.Spec.Name != "mat4" || uniforms[1].Type.Spec.Name != "mat4" {
		t.Error("expanded uniforms must share the head's type")
	}
}

func TestStructsAndBlocksAndFunctions(t *testing.T) {
	m := parseModule(t, `
struct V {
  vec4 gl_Position;
};

uniform Matrices {
  mat4 proj;
} mats;

vec3 helper() {
  return vec3(0.0);
}
`)

	structs := m.Structs()
	if len(structs) != 1 || structs[0].Name != "V" {
		t.Errorf("unexpected structs: %+v", structs)
	}
	blocks := m.Blocks()
	if len(blocks) != 1 || blocks[0].Name != "Matrices" {
		t.Errorf("unexpected blocks: %+v", blocks)
	}
	functions := m.Functions()
	if len(functions) != 1 || functions[0].Name != "helper" {
		t.Errorf("unexpected functions: %+v", functions)
	}
}

func TestLoadDeclaresImportDeps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.spsl")
	src := `
from lib.color import (rgb)
from noise import (simplex)

void f() {}
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	m := &Module{}
	deps, err := m.Load(path, nil, cache.NoArgs{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []string{"lib/color.spsl", "noise.spsl"}
	if len(deps) != len(want) {
		t.Fatalf("expected %v, got %v", want, deps)
	}
	for i := range want {
		if deps[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, deps)
		}
	}
	if len(m.Imports) != 2 || len(m.Decls) != 1 {
		t.Errorf("unexpected module shape: %d imports, %d decls", len(m.Imports), len(m.Decls))
	}
}

func TestLoadMissingFile(t *testing.T) {
	m := &Module{}
	_, err := m.Load(filepath.Join(t.TempDir(), "ghost.spsl"), nil, cache.NoArgs{})

	var lerr *cache.LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected *cache.LoadError, got %v", err)
	}
	if lerr.Failure != cache.FileNotFound {
		t.Errorf("expected FileNotFound, got %v", lerr.Failure)
	}
}

func TestLoadParseFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.spsl")
	if err := os.WriteFile(path, []byte("uniform mat4 proj"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := &Module{}
	_, err := m.Load(path, nil, cache.NoArgs{})

	var lerr *cache.LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected *cache.LoadError, got %v", err)
	}
	if lerr.Failure != cache.ParseFailed {
		t.Errorf("expected ParseFailed, got %v", lerr.Failure)
	}
}
