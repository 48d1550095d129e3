package fsops

import "os"

// Deleter abstracts filesystem delete operations so tests can prove that
// dry runs and protected paths never reach the filesystem.
type Deleter interface {
	// Remove deletes a file or an empty directory.
	Remove(path string) error
	// RemoveAll deletes path and everything below it.
	RemoveAll(path string) error
}

// OSDeleter deletes through the os package and classifies failures into
// the typed entry errors.
type OSDeleter struct{}

func (OSDeleter) Remove(path string) error {
	return Classify("remove", path, os.Remove(path))
}

func (OSDeleter) RemoveAll(path string) error {
	// os.RemoveAll reports success for a missing path; keep that visible so
	// callers can tell a vanished entry from a removed one.
	if _, err := os.Lstat(path); err != nil {
		return Classify("remove", path, err)
	}
	return Classify("remove", path, os.RemoveAll(path))
}
