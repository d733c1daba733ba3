package store

import "errors"

// Store defines the persistence operations for a hierarchical result store.
//
// Error handling conventions:
//   - Return ErrNotFound if the store file doesn't exist (for Read)
//   - Return *IOError for filesystem and serialization failures
type Store interface {
	// Read loads the whole tree.
	Read() (*Tree, error)

	// Write replaces the store contents with t. The implementation writes
	// a temp file and renames it so readers never see a partial file.
	Write(t *Tree) error

	// Append merges batch into the store using the temp-file protocol:
	// serialize batch to a uniquely named temp file, merge the temp file
	// into the store (creating it if absent), then delete the temp file on
	// every exit path. It returns the leaf paths that collided.
	Append(batch *Tree) ([]string, error)

	// Reset deletes the store so the next write starts fresh.
	Reset() error
}

// ErrNotFound is returned when a store file does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing store file.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	if e.Path != "" {
		return "store not found: " + e.Path
	}
	return "store not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// IOError wraps a failure to read, write, or merge a store file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return "store " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsIOError reports whether err is (or wraps) an *IOError.
func IsIOError(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr)
}
