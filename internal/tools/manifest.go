package tools

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestStore reads and writes the local tool manifest. Every mutation is a
// full read-modify-atomic-write cycle; readers never observe a partially
// written file.
type ManifestStore struct {
	path string
}

// NewManifestStore builds a store over the given manifest file path.
func NewManifestStore(path string) *ManifestStore {
	return &ManifestStore{path: path}
}

// Load returns the manifest, or an empty one when the file is absent or
// unparsable. Corrupt local state must not block tool usage; it only forces
// re-verification and reinstallation.
func (s *ManifestStore) Load() Manifest {
	empty := Manifest{Tools: map[string]Record{}}

	contents, err := os.ReadFile(s.path)
	if err != nil {
		return empty
	}

	var manifest Manifest
	if err := json.Unmarshal(contents, &manifest); err != nil {
		return empty
	}
	if manifest.Tools == nil {
		manifest.Tools = map[string]Record{}
	}
	return manifest
}

// Save serializes the manifest to a temporary file in the same directory and
// atomically renames it over the canonical path.
func (s *ManifestStore) Save(m Manifest) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("prepare manifest directory: %w", err)
	}

	buf, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "manifest-*.json")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close manifest temp: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}
