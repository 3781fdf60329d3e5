package glsl

import (
	"strings"

	"spsl/internal/module"
)

// Emit lowers a flattened, import-free module into GLSL vertex shader
// source. The common prelude is grouped by kind: uniforms first, then
// interface blocks, then struct definitions, then every function except
// the vertex entry, which is specialized with its synthesized stage
// interface and `main`.
//
// Returns ErrNoVertexShader when the module defines no vertex entry.
// Non-uniform global variables are dropped: the language has no place
// for mutable module-level state, and constants belong inside
// functions.
func Emit(m *module.Module) (string, error) {
	var common, vertex strings.Builder

	structs := m.Structs()

	for _, u := range m.Uniforms() {
		writeVarDecl(&common, u)
	}
	for _, b := range m.Blocks() {
		writeBlock(&common, b)
	}
	for _, s := range structs {
		writeStructDecl(&common, s)
	}
	for _, fn := range m.Functions() {
		if fn.Name == VertexEntry {
			if err := sinkVertexShader(&vertex, fn, structs); err != nil {
				return "", err
			}
			continue
		}
		writeFunc(&common, fn)
	}

	if vertex.Len() == 0 {
		return "", ErrNoVertexShader
	}

	return common.String() + vertex.String(), nil
}
