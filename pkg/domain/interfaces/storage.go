package interfaces

import "context"

// Storage is the key-value persistence collaborator for layouts, catalog
// settings and overlay manifests. Paths are slash separated and built with Join.
type Storage interface {
	// Read fails with an error wrapping model.ErrStorageNotFound for a missing path
	Read(ctx context.Context, path string) ([]byte, error)
	// Write replaces the content at path; it returns once the write is durable
	Write(ctx context.Context, path string, data []byte) error
	Exists(ctx context.Context, path string) (bool, error)
	// ListFiles returns the base names of files directly under dir, sorted.
	// A missing dir yields an empty list.
	ListFiles(ctx context.Context, dir string) ([]string, error)
	// ListDirs returns the base names of directories directly under dir, sorted
	ListDirs(ctx context.Context, dir string) ([]string, error)
	// Delete removes path and reports whether something was deleted
	Delete(ctx context.Context, path string) (bool, error)
	Join(elem ...string) string
}
