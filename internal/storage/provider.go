// Package storage defines the rooted file-system abstraction used for the
// designs and exports directories.
package storage

import "time"

// FileInfo is a lightweight description of a stored file.
type FileInfo struct {
	Name      string
	Checksum  string
	UpdatedAt time.Time
}

// Provider is the interface for directory-rooted file operations. All paths
// are relative to the provider's root.
type Provider interface {
	// List returns metadata for every file under the root whose name has the
	// given suffix (empty suffix matches everything).
	List(suffix string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at name.
	Read(name string) ([]byte, error)
	// Write atomically writes content to name.
	Write(name string, content []byte) error
	// Delete removes the file at name.
	Delete(name string) error
}
