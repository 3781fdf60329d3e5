package cache

import (
	"errors"
	"fmt"
)

// ErrRootDoesNotExist is returned by New when the cache root cannot be
// canonicalized. It is the only failure mode of cache construction.
var ErrRootDoesNotExist = errors.New("cache root does not exist")

// LoadFailure classifies resource loading failures.
type LoadFailure uint8

const (
	FileNotFound LoadFailure = iota
	ParseFailed
	ConversionFailed
)

func (f LoadFailure) String() string {
	switch f {
	case FileNotFound:
		return "file not found"
	case ParseFailed:
		return "parse failed"
	case ConversionFailed:
		return "conversion failed"
	}
	return "unknown"
}

// LoadError is returned by Load implementations. It degrades the specific
// resource only; the cache logs it and keeps running.
type LoadError struct {
	Path    string
	Failure LoadFailure
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Path, e.Failure, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Path, e.Failure)
}

func (e *LoadError) Unwrap() error { return e.Err }

// NewFileNotFound wraps err as a file-not-found load error.
func NewFileNotFound(path string, err error) *LoadError {
	return &LoadError{Path: path, Failure: FileNotFound, Err: err}
}

// NewParseFailed wraps err as a parse-failed load error.
func NewParseFailed(path string, err error) *LoadError {
	return &LoadError{Path: path, Failure: ParseFailed, Err: err}
}

// NewConversionFailed wraps err as a conversion-failed load error.
func NewConversionFailed(path string, err error) *LoadError {
	return &LoadError{Path: path, Failure: ConversionFailed, Err: err}
}
