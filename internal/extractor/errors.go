package extractor

import "fmt"

// StructuralError reports a descriptor set that is not internally
// consistent. It is always fatal.
type StructuralError struct {
	File   string
	Entity string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("malformed descriptor %s: %s: %s", e.File, e.Entity, e.Reason)
}

func structural(file, entity, format string, args ...any) error {
	return &StructuralError{File: file, Entity: entity, Reason: fmt.Sprintf(format, args...)}
}
