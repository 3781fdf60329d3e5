package glsl

import (
	"strconv"
	"strings"

	"spsl/internal/syntax"
)

// Entry function names reserved by the pipeline. Only the vertex entry
// has a synthesis path; the fragment and primitive entries are named by
// the language design and left as an extension point.
const (
	VertexEntry    = "map_vertex"
	FragmentEntry  = "map_fragment"
	PrimitiveEntry = "concat_map_prim"
)

// ClipPosition is the built-in clip-space position identifier the
// output struct's first field must carry.
const ClipPosition = "gl_Position"

// outputPrefix keeps synthesized out variables from colliding with user
// identifiers.
const outputPrefix = "__v_"

// VertexInterface is the derived stage interface of a vertex entry
// function: one `in` declaration per parameter and one `out`
// declaration per output-struct field after the clip position.
type VertexInterface struct {
	Inputs  []*syntax.VarDecl
	Outputs []*syntax.VarDecl
}

// VertexShaderInterface derives the stage interface from the entry
// function's signature and the module's struct catalog.
func VertexShaderInterface(fn *syntax.FuncDecl, structs []*syntax.StructSpec) (VertexInterface, error) {
	inputs, err := vertexInputs(fn.Params)
	if err != nil {
		return VertexInterface{}, err
	}
	outputs, err := vertexOutputs(fn.ReturnType, structs)
	if err != nil {
		return VertexInterface{}, err
	}
	return VertexInterface{Inputs: inputs, Outputs: outputs}, nil
}

// vertexInputs synthesizes one `in` declaration per parameter. The
// parameter's position becomes an explicit `location` layout qualifier,
// matching the vertex buffer attribute order by convention.
func vertexInputs(params []syntax.Param) ([]*syntax.VarDecl, error) {
	var inputs []*syntax.VarDecl

	for i, param := range params {
		if param.Name == "" {
			return nil, &InterfaceError{Kind: UnnamedInput}
		}

		quals := []syntax.Qualifier{
			syntax.LayoutQualifier{IDs: []syntax.LayoutID{{Name: "location", Value: strconv.Itoa(i)}}},
			syntax.StorageQualifier{Storage: syntax.StorageIn},
		}
		quals = append(quals, param.Qualifiers...)

		inputs = append(inputs, &syntax.VarDecl{
			Type:  syntax.FullType{Qualifiers: quals, Spec: param.Type},
			Names: []syntax.Declarator{{Name: param.Name, Array: param.Array}},
		})
	}

	return inputs, nil
}

// vertexOutputs synthesizes one `out` declaration per output-struct
// field after the clip position.
func vertexOutputs(ret syntax.FullType, structs []*syntax.StructSpec) ([]*syntax.VarDecl, error) {
	spec, err := outputStruct(ret, structs)
	if err != nil {
		return nil, err
	}

	var outputs []*syntax.VarDecl
	for i, field := range spec.Fields[1:] {
		if field.Type.IsStruct() {
			return nil, &InterfaceError{Kind: OutputFieldCannotBeStruct, Type: field.Type.Name, FieldIndex: i}
		}
		if len(field.Names) > 1 {
			return nil, &InterfaceError{Kind: OutputFieldCannotHaveSeveralIdentifiers, FieldIndex: i}
		}

		quals := append([]syntax.Qualifier{}, field.Qualifiers...)
		quals = append(quals, syntax.StorageQualifier{Storage: syntax.StorageOut})

		outputs = append(outputs, &syntax.VarDecl{
			Type: syntax.FullType{Qualifiers: quals, Spec: field.Type},
			Names: []syntax.Declarator{{
				Name:  outputPrefix + field.Names[0].Name,
				Array: field.Names[0].Array,
			}},
		})
	}

	return outputs, nil
}

// outputStruct resolves the entry function's return type against the
// struct catalog and enforces the constrained output shape: no
// qualifier on the return type, and an unqualified `vec4 gl_Position`
// as the very first field.
func outputStruct(ret syntax.FullType, structs []*syntax.StructSpec) (*syntax.StructSpec, error) {
	if ret.Qualified() {
		return nil, &InterfaceError{Kind: OutputHasMainQualifier}
	}
	if ret.Spec.Name == "" || ret.Spec.IsStruct() || ret.Spec.Array != nil {
		return nil, &InterfaceError{Kind: OutputTypeMustBeAStruct, Type: ret.Spec.Name}
	}

	var spec *syntax.StructSpec
	for _, s := range structs {
		if s.Name == ret.Spec.Name {
			spec = s
			break
		}
	}
	if spec == nil {
		return nil, &InterfaceError{Kind: OutputTypeMustBeAStruct, Type: ret.Spec.Name}
	}

	if len(spec.Fields) == 0 {
		return nil, &InterfaceError{Kind: WrongOutputFirstField}
	}
	first := spec.Fields[0]
	if len(first.Qualifiers) > 0 ||
		first.Type.Name != "vec4" ||
		first.Type.IsStruct() ||
		first.Type.Array != nil ||
		len(first.Names) != 1 ||
		first.Names[0].Name != ClipPosition ||
		first.Names[0].Array != nil {
		return nil, &InterfaceError{Kind: WrongOutputFirstField}
	}

	return spec, nil
}

// sinkVertexShader writes the specialized vertex stage: synthesized
// inputs and outputs, the entry function verbatim, and a `main` that
// calls it and fans the result out to the stage outputs.
func sinkVertexShader(sb *strings.Builder, fn *syntax.FuncDecl, structs []*syntax.StructSpec) error {
	iface, err := VertexShaderInterface(fn, structs)
	if err != nil {
		return err
	}

	for _, input := range iface.Inputs {
		writeVarDecl(sb, input)
	}
	for _, output := range iface.Outputs {
		writeVarDecl(sb, output)
	}

	spec, err := outputStruct(fn.ReturnType, structs)
	if err != nil {
		return err
	}

	writeFunc(sb, fn)

	sb.WriteString("void main() {\n")
	sb.WriteString("  ")
	sb.WriteString(spec.Name)
	sb.WriteString(" v = ")
	sb.WriteString(fn.Name)
	sb.WriteString("(")
	for i, param := range fn.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(param.Name)
	}
	sb.WriteString(");\n")

	sb.WriteString("  ")
	sb.WriteString(ClipPosition)
	sb.WriteString(" = v.")
	sb.WriteString(ClipPosition)
	sb.WriteString(";\n")

	for _, field := range spec.Fields[1:] {
		for _, name := range field.Names {
			sb.WriteString("  ")
			sb.WriteString(outputPrefix)
			sb.WriteString(name.Name)
			sb.WriteString(" = v.")
			sb.WriteString(name.Name)
			sb.WriteString(";\n")
		}
	}

	sb.WriteString("}\n")
	return nil
}
