// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/muninn/internal/models"

// Provider is the FileStore consumed by the index, the tools, and the
// approval executor. All paths are vault-relative and use forward slashes.
type Provider interface {
	// List enumerates every non-ignored file in the vault.
	List() ([]models.FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Stat returns modification time and size; the error wraps os.ErrNotExist
	// when the file is absent.
	Stat(path string) (models.FileStat, error)
	// Write atomically writes content, creating parent folders.
	Write(path string, content []byte) error
	// Create writes a new file and fails with apperr.ErrAlreadyExists if one exists.
	Create(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Root returns the absolute vault directory.
	Root() string
}
