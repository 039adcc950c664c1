package gitbook

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidOperation is returned when enumerating the children of a leaf.
var ErrInvalidOperation = errors.New("invalid operation")

// SchemaError reports an entry that lacks a required field for its kind
// or carries a field of the wrong shape.
type SchemaError struct {
	Path   string
	Depth  int
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error at %s (depth %d): %s", displayPath(e.Path), e.Depth, e.Reason)
}

// KeyMissingError reports an element or mark type that has no registry entry.
type KeyMissingError struct {
	Registry string
	Key      string
	Path     string
	Depth    int
}

func (e *KeyMissingError) Error() string {
	return fmt.Sprintf("no %s mapping for %q at %s (depth %d)", e.Registry, e.Key, displayPath(e.Path), e.Depth)
}

// TooDeepError reports a document nested deeper than the loader allows.
type TooDeepError struct {
	Path  string
	Depth int
	Limit int
}

func (e *TooDeepError) Error() string {
	return fmt.Sprintf("document too deep at %s: depth %d exceeds limit %d", displayPath(e.Path), e.Depth, e.Limit)
}

func schemaErrorf(path string, depth int, format string, args ...interface{}) error {
	return errors.WithStack(&SchemaError{Path: path, Depth: depth, Reason: fmt.Sprintf(format, args...)})
}

func displayPath(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}

// childPath builds the gjson path of a child entry, e.g. "nodes.0.leaves.2".
func childPath(parent, collection string, index int) string {
	if parent == "" {
		return fmt.Sprintf("%s.%d", collection, index)
	}
	return fmt.Sprintf("%s.%s.%d", parent, collection, index)
}
