package compose

import (
	"path"
	"sort"
	"time"
)

// VirtualFile is one file of a workspace as seen by the resolver.
type VirtualFile struct {
	ID       string    `json:"id"`
	Path     string    `json:"path"` // absolute workspace path, e.g. /scenes/main.usda
	Name     string    `json:"name"`
	Content  string    `json:"content"`
	Active   bool      `json:"active"` // inactive files are skipped by every arc
	Modified time.Time `json:"modified"`
}

// FileSource looks up files by absolute path. Implementations must present
// a stable snapshot for the duration of a resolve call.
type FileSource interface {
	Lookup(absPath string) (VirtualFile, bool)
}

// FileMap is an in-memory FileSource keyed by absolute path.
type FileMap map[string]VirtualFile

// NewFileMap indexes files by their cleaned path.
func NewFileMap(files ...VirtualFile) FileMap {
	m := make(FileMap, len(files))
	for _, f := range files {
		m.Add(f)
	}
	return m
}

// Add inserts or replaces a file, filling Name from the path when empty.
func (m FileMap) Add(f VirtualFile) {
	f.Path = path.Clean("/" + f.Path)
	if f.Name == "" {
		f.Name = path.Base(f.Path)
	}
	m[f.Path] = f
}

// Lookup implements FileSource.
func (m FileMap) Lookup(absPath string) (VirtualFile, bool) {
	f, ok := m[path.Clean(absPath)]
	return f, ok
}

// Paths returns every file path in sorted order.
func (m FileMap) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
