package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/hack-pad/hackpadfs"
	"gopkg.in/yaml.v3"
)

// ManifestName is the workspace-root file holding per-file metadata.
const ManifestName = ".usdlive.yaml"

type fileMeta struct {
	ID       string    `yaml:"id"`
	Active   bool      `yaml:"active"`
	Modified time.Time `yaml:"modified,omitempty"`
}

type manifest struct {
	Version int                  `yaml:"version"`
	Files   map[string]*fileMeta `yaml:"files"`
}

func newManifest() *manifest {
	return &manifest{Version: 1, Files: map[string]*fileMeta{}}
}

// entry returns the metadata for p, creating an active entry with a fresh
// id when p is not tracked yet.
func (m *manifest) entry(p string) (meta *fileMeta, created bool) {
	if meta, ok := m.Files[p]; ok {
		return meta, false
	}
	meta = &fileMeta{ID: uuid.NewString(), Active: true}
	m.Files[p] = meta
	return meta, true
}

func loadManifest(fsys hackpadfs.FS) (*manifest, error) {
	data, err := hackpadfs.ReadFile(fsys, ManifestName)
	if errors.Is(err, fs.ErrNotExist) {
		return newManifest(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m := newManifest()
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Files == nil {
		m.Files = map[string]*fileMeta{}
	}
	return m, nil
}

func saveManifest(fsys hackpadfs.FS, m *manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := hackpadfs.WriteFullFile(fsys, ManifestName, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
