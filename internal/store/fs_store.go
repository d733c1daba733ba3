package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FileStore implements the Store interface with a single file.
// Paths ending in ".zst" are zstd-compressed.
//
// A FileStore is meant for one writer at a time; parallel runs should
// write separate files and merge them afterwards.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by path.
// The parent directory will be created if it doesn't exist.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &IOError{Op: "create directory", Path: path, Err: err}
	}
	return &FileStore{path: path}, nil
}

// Path returns the final store file path.
func (fs *FileStore) Path() string {
	return fs.path
}

// tempPath returns a fresh, collision-free temp file name next to the store.
func (fs *FileStore) tempPath() string {
	return fs.path + tempMarker + uuid.NewString()
}

// Read loads the store.
func (fs *FileStore) Read() (*Tree, error) {
	t, err := readFile(fs.path, compressed(fs.path))
	if err != nil {
		return nil, err
	}
	slog.Debug("Store loaded", "path", fs.path, "results", t.Len())
	return t, nil
}

// Write atomically replaces the store with t.
// Uses temp file + rename pattern to ensure atomicity.
func (fs *FileStore) Write(t *Tree) error {
	if t == nil {
		return fmt.Errorf("tree cannot be nil")
	}

	tempPath := fs.tempPath()
	if err := writeFile(tempPath, t, compressed(fs.path)); err != nil {
		os.Remove(tempPath)
		return err
	}

	// Atomic rename to final location
	if err := os.Rename(tempPath, fs.path); err != nil {
		// Clean up temp file on failure
		os.Remove(tempPath)
		return &IOError{Op: "rename", Path: fs.path, Err: err}
	}

	slog.Debug("Store written", "path", fs.path, "results", t.Len())
	return nil
}

// Append merges batch into the store through a temp file.
func (fs *FileStore) Append(batch *Tree) (collisions []string, err error) {
	if batch == nil {
		return nil, fmt.Errorf("batch cannot be nil")
	}

	tempPath := fs.tempPath()
	defer func() {
		if rmErr := os.Remove(tempPath); rmErr != nil && !os.IsNotExist(rmErr) {
			slog.Warn("Failed to remove temp store file", "path", tempPath, "error", rmErr)
		}
	}()

	if err := writeFile(tempPath, batch, compressed(fs.path)); err != nil {
		return nil, err
	}

	src, err := readFile(tempPath, compressed(fs.path))
	if err != nil {
		return nil, err
	}

	dst, err := fs.Read()
	if errors.Is(err, ErrNotFound) {
		dst = NewTree()
	} else if err != nil {
		return nil, err
	}

	collisions = dst.Merge(src)
	if err := fs.Write(dst); err != nil {
		return nil, err
	}

	slog.Debug("Batch appended", "path", fs.path, "batch_results", src.Len(), "collisions", len(collisions))
	return collisions, nil
}

// Reset deletes the store file. A missing file is not an error.
func (fs *FileStore) Reset() error {
	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return &IOError{Op: "remove", Path: fs.path, Err: err}
	}
	return nil
}

// MergeFiles merges the stores at srcs, in order, into dst.
func MergeFiles(dst *FileStore, srcs ...string) ([]string, error) {
	var collisions []string
	for _, src := range srcs {
		t, err := readFile(src, compressed(src))
		if err != nil {
			return collisions, err
		}
		c, err := dst.Append(t)
		if err != nil {
			return collisions, err
		}
		collisions = append(collisions, c...)
	}
	return collisions, nil
}

func writeFile(path string, t *Tree, zst bool) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}

	if err := encode(f, t, zst); err != nil {
		f.Close()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return &IOError{Op: "sync", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &IOError{Op: "close", Path: path, Err: err}
	}
	return nil
}

func readFile(path string, zst bool) (*Tree, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{Path: path}
	} else if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	t, err := decode(f, zst)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return t, nil
}
