// Package syntax defines the abstract syntax tree for SPSL modules.
//
// SPSL is a GLSL superset: a module is a list of ordinary GLSL top-level
// declarations preceded by any number of import statements. Only the
// top-level structure is modeled; function bodies are kept as raw source
// and re-emitted verbatim.
package syntax

// Module represents one SPSL translation unit.
//
// Order among declarations is semantically significant (declare-before-use)
// and is preserved through every transformation.
type Module struct {
	Imports []Import
	Decls   []Decl
}

// Import represents a `from a.b.c import (x, y)` statement. The symbol
// list is informational only; all symbols of the imported module are
// visible regardless.
type Import struct {
	Module  string // dotted module path
	Symbols []string
	Span    Span
}

// Span locates a node in its source file.
type Span struct {
	Line int
	Col  int
}

// Decl is the interface for top-level declarations.
type Decl interface {
	Pos() Span
	declNode()
}

// VarDecl represents a variable or type declaration: one head declarator
// plus any number of tail declarators sharing the same type and
// qualifiers. A bare `struct S { ... };` statement is a VarDecl with a
// struct type and no names.
type VarDecl struct {
	Type  FullType
	Names []Declarator
	Span  Span
}

func (d *VarDecl) Pos() Span { return d.Span }
func (d *VarDecl) declNode() {}

// BlockDecl represents an interface block, e.g.
// `layout (std140) uniform Matrices { mat4 proj; } mats;`.
type BlockDecl struct {
	Qualifiers []Qualifier
	Name       string
	Fields     []StructField
	Instance   *Declarator // nil when the block has no instance name
	Span       Span
}

func (d *BlockDecl) Pos() Span { return d.Span }
func (d *BlockDecl) declNode() {}

// FuncDecl represents a function definition. The body is the raw GLSL
// source between the outer braces, braces not included.
type FuncDecl struct {
	Name       string
	ReturnType FullType
	Params     []Param
	Body       string
	Span       Span
}

func (d *FuncDecl) Pos() Span { return d.Span }
func (d *FuncDecl) declNode() {}

// Param represents a function parameter. Name is empty for unnamed
// parameters.
type Param struct {
	Qualifiers []Qualifier
	Type       TypeSpec
	Name       string
	Array      *ArraySpec
}

// Declarator is one declared name with its optional array specifier and
// initializer (raw source).
type Declarator struct {
	Name  string
	Array *ArraySpec
	Init  string
}

// ArraySpec is an array suffix. Size is the raw size expression, empty
// for unsized arrays.
type ArraySpec struct {
	Size string
}

// FullType is a type specifier together with its leading qualifiers.
type FullType struct {
	Qualifiers []Qualifier
	Spec       TypeSpec
}

// Qualified reports whether any qualifier is present.
func (t FullType) Qualified() bool { return len(t.Qualifiers) > 0 }

// HasStorage reports whether the qualifier list contains the given
// storage qualifier.
func (t FullType) HasStorage(s Storage) bool {
	for _, q := range t.Qualifiers {
		if sq, ok := q.(StorageQualifier); ok && sq.Storage == s {
			return true
		}
	}
	return false
}

// TypeSpec names a type, either by identifier or by an inline struct
// definition.
type TypeSpec struct {
	Name   string      // "vec4", "float", "Vertex"; struct name when Struct is set
	Struct *StructSpec // non-nil for an inline struct definition
	Array  *ArraySpec
}

// IsStruct reports whether the specifier is an inline struct definition.
func (t TypeSpec) IsStruct() bool { return t.Struct != nil }

// StructSpec is a struct type definition.
type StructSpec struct {
	Name   string
	Fields []StructField
}

// StructField is one field line of a struct or block: an optional
// qualifier, a type, and one or more identifiers sharing both.
type StructField struct {
	Qualifiers []Qualifier
	Type       TypeSpec
	Names      []Declarator
}

// Qualifier is the interface for type qualifiers.
type Qualifier interface {
	qualifierNode()
}

// Storage enumerates storage qualifiers.
type Storage uint8

const (
	StorageConst Storage = iota
	StorageIn
	StorageOut
	StorageUniform
	StorageBuffer
	StorageShared
)

func (s Storage) String() string {
	switch s {
	case StorageConst:
		return "const"
	case StorageIn:
		return "in"
	case StorageOut:
		return "out"
	case StorageUniform:
		return "uniform"
	case StorageBuffer:
		return "buffer"
	case StorageShared:
		return "shared"
	}
	return "unknown"
}

// StorageQualifier wraps a storage qualifier.
type StorageQualifier struct {
	Storage Storage
}

func (StorageQualifier) qualifierNode() {}

// LayoutQualifier represents `layout (id [= value], ...)`.
type LayoutQualifier struct {
	IDs []LayoutID
}

func (LayoutQualifier) qualifierNode() {}

// LayoutID is one layout entry. Value is the raw expression text, empty
// when the identifier stands alone.
type LayoutID struct {
	Name  string
	Value string
}

// InterpQualifier is an interpolation qualifier (flat, smooth,
// noperspective).
type InterpQualifier struct {
	Kind string
}

func (InterpQualifier) qualifierNode() {}

// PrecisionQualifier is a precision qualifier (highp, mediump, lowp).
type PrecisionQualifier struct {
	Kind string
}

func (PrecisionQualifier) qualifierNode() {}
