// Package glsl turns flattened SPSL modules into GLSL source text.
package glsl

import (
	"strings"

	"spsl/internal/syntax"
)

// writeVarDecl writes a variable or type declaration, terminated with a
// semicolon and newline.
func writeVarDecl(sb *strings.Builder, d *syntax.VarDecl) {
	writeQualifiers(sb, d.Type.Qualifiers)
	writeTypeSpec(sb, d.Type.Spec)
	for i, name := range d.Names {
		if i == 0 {
			sb.WriteString(" ")
		} else {
			sb.WriteString(", ")
		}
		writeDeclarator(sb, name)
	}
	sb.WriteString(";\n")
}

func writeDeclarator(sb *strings.Builder, d syntax.Declarator) {
	sb.WriteString(d.Name)
	writeArraySpec(sb, d.Array)
	if d.Init != "" {
		sb.WriteString(" = ")
		sb.WriteString(d.Init)
	}
}

func writeArraySpec(sb *strings.Builder, arr *syntax.ArraySpec) {
	if arr == nil {
		return
	}
	sb.WriteString("[")
	sb.WriteString(arr.Size)
	sb.WriteString("]")
}

// writeQualifiers writes qualifiers in order, each followed by a space.
func writeQualifiers(sb *strings.Builder, quals []syntax.Qualifier) {
	for _, q := range quals {
		switch q := q.(type) {
		case syntax.StorageQualifier:
			sb.WriteString(q.Storage.String())
		case syntax.LayoutQualifier:
			sb.WriteString("layout (")
			for i, id := range q.IDs {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(id.Name)
				if id.Value != "" {
					sb.WriteString(" = ")
					sb.WriteString(id.Value)
				}
			}
			sb.WriteString(")")
		case syntax.InterpQualifier:
			sb.WriteString(q.Kind)
		case syntax.PrecisionQualifier:
			sb.WriteString(q.Kind)
		}
		sb.WriteString(" ")
	}
}

func writeTypeSpec(sb *strings.Builder, ty syntax.TypeSpec) {
	if ty.Struct != nil {
		writeStructSpec(sb, ty.Struct)
	} else {
		sb.WriteString(ty.Name)
	}
	writeArraySpec(sb, ty.Array)
}

func writeStructSpec(sb *strings.Builder, s *syntax.StructSpec) {
	sb.WriteString("struct")
	if s.Name != "" {
		sb.WriteString(" ")
		sb.WriteString(s.Name)
	}
	sb.WriteString(" {\n")
	for _, field := range s.Fields {
		sb.WriteString("  ")
		writeStructField(sb, field)
	}
	sb.WriteString("}")
}

// writeStructDecl writes a standalone struct definition statement.
func writeStructDecl(sb *strings.Builder, s *syntax.StructSpec) {
	writeStructSpec(sb, s)
	sb.WriteString(";\n")
}

func writeStructField(sb *strings.Builder, f syntax.StructField) {
	writeQualifiers(sb, f.Qualifiers)
	writeTypeSpec(sb, f.Type)
	for i, name := range f.Names {
		if i == 0 {
			sb.WriteString(" ")
		} else {
			sb.WriteString(", ")
		}
		writeDeclarator(sb, name)
	}
	sb.WriteString(";\n")
}

func writeBlock(sb *strings.Builder, b *syntax.BlockDecl) {
	writeQualifiers(sb, b.Qualifiers)
	sb.WriteString(b.Name)
	sb.WriteString(" {\n")
	for _, field := range b.Fields {
		sb.WriteString("  ")
		writeStructField(sb, field)
	}
	sb.WriteString("}")
	if b.Instance != nil {
		sb.WriteString(" ")
		writeDeclarator(sb, *b.Instance)
	}
	sb.WriteString(";\n")
}

// writeFunc writes a function definition, body verbatim.
func writeFunc(sb *strings.Builder, f *syntax.FuncDecl) {
	writeQualifiers(sb, f.ReturnType.Qualifiers)
	writeTypeSpec(sb, f.ReturnType.Spec)
	sb.WriteString(" ")
	sb.WriteString(f.Name)
	sb.WriteString("(")
	for i, param := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeParam(sb, param)
	}
	sb.WriteString(") {")
	sb.WriteString(f.Body)
	sb.WriteString("}\n\n")
}

func writeParam(sb *strings.Builder, p syntax.Param) {
	writeQualifiers(sb, p.Qualifiers)
	writeTypeSpec(sb, p.Type)
	if p.Name != "" {
		sb.WriteString(" ")
		sb.WriteString(p.Name)
		writeArraySpec(sb, p.Array)
	}
}
