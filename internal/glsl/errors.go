package glsl

import (
	"errors"
	"fmt"
)

// Conversion failures for entry points that are absent from the module.
var (
	ErrNoVertexShader   = errors.New("no vertex shader entry function")
	ErrNoFragmentShader = errors.New("no fragment shader entry function")
)

// InterfaceErrorKind classifies vertex shader interface failures.
type InterfaceErrorKind uint8

const (
	UnnamedInput InterfaceErrorKind = iota
	OutputHasMainQualifier
	OutputTypeMustBeAStruct
	WrongOutputFirstField
	OutputFieldCannotBeStruct
	OutputFieldCannotHaveSeveralIdentifiers
)

// InterfaceError reports why a vertex entry function's signature cannot
// be turned into a stage interface. FieldIndex is the 0-based index
// among the output struct's fields after the clip-position field, for
// the two kinds that report one.
type InterfaceError struct {
	Kind       InterfaceErrorKind
	Type       string // offending type name, when known
	FieldIndex int
}

func (e *InterfaceError) Error() string {
	switch e.Kind {
	case UnnamedInput:
		return "vertex shader interface: entry function parameters must be named"
	case OutputHasMainQualifier:
		return "vertex shader interface: the output type cannot carry a qualifier"
	case OutputTypeMustBeAStruct:
		if e.Type != "" {
			return fmt.Sprintf("vertex shader interface: output type %q must be a declared struct", e.Type)
		}
		return "vertex shader interface: output type must be a declared struct"
	case WrongOutputFirstField:
		return fmt.Sprintf("vertex shader interface: the first output field must be exactly `vec4 %s`", ClipPosition)
	case OutputFieldCannotBeStruct:
		return fmt.Sprintf("vertex shader interface: output field %d cannot be a struct", e.FieldIndex)
	case OutputFieldCannotHaveSeveralIdentifiers:
		return fmt.Sprintf("vertex shader interface: output field %d cannot declare several identifiers", e.FieldIndex)
	}
	return "vertex shader interface: unknown error"
}
