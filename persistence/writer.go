// Package persistence stores snapshots of a collection on the local
// filesystem.
package persistence

import (
	"os"

	"github.com/google/renameio/v2"
)

// Writer replaces the whole content of a file. Implementations must leave
// the previous content in place when they fail.
type Writer interface {
	WriteFile(filename string, data []byte, perm os.FileMode) error
}

// AtomicWriter writes to a temporary file in the same directory, syncs it
// and renames it over the target.
type AtomicWriter struct{}

func (AtomicWriter) WriteFile(filename string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(filename, data, perm)
}

// WriterFunc adapts a function to the Writer interface.
type WriterFunc func(filename string, data []byte, perm os.FileMode) error

func (f WriterFunc) WriteFile(filename string, data []byte, perm os.FileMode) error {
	return f(filename, data, perm)
}
