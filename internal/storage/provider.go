// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/vaultgraph/internal/models"

// Provider is the interface for vault file operations. All paths are
// forward-slash and relative to the vault root.
type Provider interface {
	// Root returns the absolute vault directory.
	Root() string
	// List returns metadata for every note file under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the text of the note at path.
	Read(path string) (string, error)
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}
