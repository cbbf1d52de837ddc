package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LoadSnapshot decodes a snapshot document written by a non-esbuild host
func LoadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// LoadSnapshotFile reads a snapshot document from disk
func LoadSnapshotFile(path string) (*Snapshot, error) {
	f, err := os.Open(path) //nolint:gosec // user-supplied snapshot path
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	snap, err := LoadSnapshot(f)
	if err != nil {
		return nil, err
	}
	if snap.Context == "" {
		snap.Context = filepath.Dir(path)
	}
	return snap, nil
}

// LoadMetafileFile reads an esbuild metafile from disk and adapts it
func LoadMetafileFile(path string, opts MetafileOptions) (*Snapshot, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied metafile path
	if err != nil {
		return nil, fmt.Errorf("failed to read metafile: %w", err)
	}
	meta, err := ParseMetafile(data)
	if err != nil {
		return nil, err
	}
	if opts.WorkingDir == "" {
		opts.WorkingDir = filepath.Dir(path)
	}
	return FromMetafile(meta, opts), nil
}

// Validate checks snapshot invariants
func (s *Snapshot) Validate() error {
	seen := make(map[string]string, len(s.Modules))
	for _, m := range s.Modules {
		if m.SizeBytes < 0 {
			return fmt.Errorf("module %s has negative size %d", m.ID, m.SizeBytes)
		}
		if !m.HasPath() {
			continue
		}
		path := filepath.Clean(*m.ResourcePath)
		if other, ok := seen[path]; ok {
			return fmt.Errorf("modules %s and %s share resource path %s", other, m.ID, path)
		}
		seen[path] = m.ID
	}
	for _, a := range s.Assets {
		if a.SizeBytes < 0 {
			return fmt.Errorf("asset %s has negative size %d", a.Name, a.SizeBytes)
		}
	}
	return nil
}
