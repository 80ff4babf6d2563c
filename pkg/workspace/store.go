// Package workspace stores the scene files of a project and hands the
// resolver stable snapshots of them.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	osfs "github.com/hack-pad/hackpadfs/os"
	"go.uber.org/zap"

	"github.com/chazu/usdlive/pkg/compose"
)

var (
	// ErrNotFound is returned for paths with no stored file.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidPath is returned for paths outside the scene file set.
	ErrInvalidPath = errors.New("invalid workspace path")
)

// Extensions lists the file extensions the store treats as scene files.
var Extensions = []string{".usda", ".usd"}

// Store is a set of scene files with per-file metadata, kept on a
// hackpadfs filesystem. It is safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	fsys hackpadfs.FS
	dir  string // OS directory for directory-backed stores
	meta *manifest
	log  *zap.Logger
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides time.Now for modification stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewMemStore returns an empty in-memory store.
func NewMemStore(opts ...Option) (*Store, error) {
	fsys, err := mem.NewFS()
	if err != nil {
		return nil, fmt.Errorf("create memory fs: %w", err)
	}
	return newStore(fsys, "", opts...)
}

// NewDirStore opens the OS directory dir as a workspace, creating it when
// missing. Files already in the directory are picked up as active.
func NewDirStore(dir string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("workspace dir %s: %w", dir, err)
	}
	root := osfs.NewFS()
	rootPath, err := root.FromOSPath(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace dir %s: %w", dir, err)
	}
	if err := hackpadfs.MkdirAll(root, rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir %s: %w", dir, err)
	}
	sub, err := root.Sub(rootPath)
	if err != nil {
		return nil, fmt.Errorf("open workspace dir %s: %w", dir, err)
	}
	return newStore(sub, abs, opts...)
}

func newStore(fsys hackpadfs.FS, dir string, opts ...Option) (*Store, error) {
	s := &Store{
		fsys: fsys,
		dir:  dir,
		log:  zap.NewNop(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	m, err := loadManifest(fsys)
	if err != nil {
		return nil, err
	}
	s.meta = m
	return s, nil
}

// Dir returns the OS directory behind the store, or "" when the store is
// not directory-backed.
func (s *Store) Dir() string {
	return s.dir
}

// CleanPath normalizes a workspace path to its absolute form, e.g.
// "scenes//a.usda" to "/scenes/a.usda". It rejects the manifest and files
// without a scene extension.
func CleanPath(p string) (string, error) {
	clean := path.Clean("/" + p)
	if path.Base(clean) == ManifestName {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, p)
	}
	if !IsSceneFile(clean) {
		return "", fmt.Errorf("%w: %s: not a scene file", ErrInvalidPath, p)
	}
	return clean, nil
}

// IsSceneFile reports whether p has one of Extensions.
func IsSceneFile(p string) bool {
	ext := path.Ext(p)
	for _, e := range Extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// fsPath maps an absolute workspace path to the rootless form io/fs uses.
func fsPath(p string) string {
	return strings.TrimPrefix(p, "/")
}

// Put stores content at p, creating parent directories. New files start
// active.
func (s *Store) Put(p, content string) (compose.VirtualFile, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return compose.VirtualFile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := path.Dir(clean); dir != "/" {
		if err := hackpadfs.MkdirAll(s.fsys, fsPath(dir), 0o755); err != nil {
			return compose.VirtualFile{}, fmt.Errorf("put %s: %w", clean, err)
		}
	}
	if err := hackpadfs.WriteFullFile(s.fsys, fsPath(clean), []byte(content), 0o644); err != nil {
		return compose.VirtualFile{}, fmt.Errorf("put %s: %w", clean, err)
	}
	meta, created := s.meta.entry(clean)
	meta.Modified = s.now().UTC()
	if err := saveManifest(s.fsys, s.meta); err != nil {
		return compose.VirtualFile{}, err
	}
	s.log.Debug("file stored", zap.String("path", clean), zap.Bool("created", created), zap.Int("bytes", len(content)))
	return s.record(clean, content, meta), nil
}

// Get returns the file at p.
func (s *Store) Get(p string) (compose.VirtualFile, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return compose.VirtualFile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(clean)
}

func (s *Store) get(clean string) (compose.VirtualFile, error) {
	data, err := hackpadfs.ReadFile(s.fsys, fsPath(clean))
	if errors.Is(err, fs.ErrNotExist) {
		return compose.VirtualFile{}, fmt.Errorf("%w: %s", ErrNotFound, clean)
	}
	if err != nil {
		return compose.VirtualFile{}, fmt.Errorf("get %s: %w", clean, err)
	}
	meta, ok := s.meta.Files[clean]
	if !ok {
		// Written behind the store's back; tracked from now on.
		meta, _ = s.meta.entry(clean)
		if info, err := hackpadfs.Stat(s.fsys, fsPath(clean)); err == nil {
			meta.Modified = info.ModTime().UTC()
		}
	}
	return s.record(clean, string(data), meta), nil
}

func (s *Store) record(clean, content string, meta *fileMeta) compose.VirtualFile {
	return compose.VirtualFile{
		ID:       meta.ID,
		Path:     clean,
		Name:     path.Base(clean),
		Content:  content,
		Active:   meta.Active,
		Modified: meta.Modified,
	}
}

// Delete removes the file at p and its metadata.
func (s *Store) Delete(p string) error {
	clean, err := CleanPath(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err = hackpadfs.Remove(s.fsys, fsPath(clean))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, clean)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", clean, err)
	}
	delete(s.meta.Files, clean)
	s.log.Debug("file deleted", zap.String("path", clean))
	return saveManifest(s.fsys, s.meta)
}

// SetActive toggles whether arcs may pull in the file at p.
func (s *Store) SetActive(p string, active bool) error {
	clean, err := CleanPath(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := hackpadfs.Stat(s.fsys, fsPath(clean)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, clean)
		}
		return fmt.Errorf("set active %s: %w", clean, err)
	}
	meta, _ := s.meta.entry(clean)
	meta.Active = active
	s.log.Debug("file active flag set", zap.String("path", clean), zap.Bool("active", active))
	return saveManifest(s.fsys, s.meta)
}

// List returns every scene file sorted by path.
func (s *Store) List() ([]compose.VirtualFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths, err := s.scan(".")
	if err != nil {
		return nil, err
	}
	files := make([]compose.VirtualFile, 0, len(paths))
	for _, p := range paths {
		f, err := s.get(p)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// scan lists scene files below dir as absolute workspace paths.
func (s *Store) scan(dir string) ([]string, error) {
	entries, err := hackpadfs.ReadDir(s.fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		name := path.Join(dir, e.Name())
		if e.IsDir() {
			if strings.HasPrefix(e.Name(), ".") {
				continue
			}
			sub, err := s.scan(name)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		if IsSceneFile(name) {
			out = append(out, "/"+name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Snapshot copies every file into a FileMap for one resolve call. Later
// writes to the store do not affect the snapshot.
func (s *Store) Snapshot() (compose.FileMap, error) {
	files, err := s.List()
	if err != nil {
		return nil, err
	}
	return compose.NewFileMap(files...), nil
}
