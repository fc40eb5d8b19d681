package preprocess

import "os"

// Loader abstracts reading included files so file-system IO stays a
// collaborator of the preprocessor rather than part of it. Implementations
// receive the already-resolved path of the file to read.
type Loader interface {
	ReadFile(path string) ([]byte, error)
}

// OSLoader reads files from the local file system.
type OSLoader struct{}

// ReadFile reads the file at path from disk.
func (OSLoader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// MapLoader serves file contents from an in-memory map keyed by path.
// Intended for tests and embedded sources.
type MapLoader map[string]string

// ReadFile returns the mapped contents for path.
func (m MapLoader) ReadFile(path string) ([]byte, error) {
	if text, ok := m[path]; ok {
		return []byte(text), nil
	}
	return nil, os.ErrNotExist
}
