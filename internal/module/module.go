// Package module implements SPSL shader modules: loading, dependency
// resolution and flattening into a single import-free translation unit.
package module

import (
	"os"

	"spsl/internal/cache"
	"spsl/internal/parser"
	"spsl/internal/syntax"
)

// Module is one SPSL source unit: an ordered list of declarations plus
// the import statements naming the modules it depends on. A Module is
// immutable once parsed; Gather produces a new value instead of
// mutating.
type Module struct {
	Imports []syntax.Import
	Decls   []syntax.Decl
}

// Load implements the cache Load contract: parse the file at path and
// declare one dependency per imported module so edits to imports
// cascade a reload.
func (m *Module) Load(path string, _ *cache.Cache, _ cache.NoArgs) ([]string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, cache.NewFileNotFound(path, err)
	}

	ast, err := parser.ParseModule(string(src))
	if err != nil {
		return nil, cache.NewParseFailed(path, err)
	}

	m.Imports = ast.Imports
	m.Decls = ast.Decls

	deps := make([]string, 0, len(ast.Imports))
	for _, imp := range ast.Imports {
		deps = append(deps, Key(imp.Module).ResourcePath())
	}
	return deps, nil
}

// Uniforms returns every uniform-qualified declaration, in declaration
// order. A multi-declarator line expands into one entry per name, each
// sharing the head's type and qualifiers.
func (m *Module) Uniforms() []*syntax.VarDecl {
	var uniforms []*syntax.VarDecl

	for _, decl := range m.Decls {
		v, ok := decl.(*syntax.VarDecl)
		if !ok || !v.Type.HasStorage(syntax.StorageUniform) {
			continue
		}
		for _, name := range v.Names {
			uniforms = append(uniforms, &syntax.VarDecl{
				Type:  v.Type,
				Names: []syntax.Declarator{name},
				Span:  v.Span,
			})
		}
	}

	return uniforms
}

// Blocks returns every interface block, in declaration order.
func (m *Module) Blocks() []*syntax.BlockDecl {
	var blocks []*syntax.BlockDecl
	for _, decl := range m.Decls {
		if b, ok := decl.(*syntax.BlockDecl); ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// Structs returns every struct definition appearing as the type of a
// declaration, in declaration order.
func (m *Module) Structs() []*syntax.StructSpec {
	var structs []*syntax.StructSpec
	for _, decl := range m.Decls {
		if v, ok := decl.(*syntax.VarDecl); ok && v.Type.Spec.IsStruct() {
			structs = append(structs, v.Type.Spec.Struct)
		}
	}
	return structs
}

// Functions returns every function definition, in declaration order.
func (m *Module) Functions() []*syntax.FuncDecl {
	var functions []*syntax.FuncDecl
	for _, decl := range m.Decls {
		if f, ok := decl.(*syntax.FuncDecl); ok {
			functions = append(functions, f)
		}
	}
	return functions
}
