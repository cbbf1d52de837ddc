package buildstats

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// FileStore keeps the snapshot in a JSON file
type FileStore struct {
	path string
}

// NewFileStore creates a file store at dir/file
func NewFileStore(dir, file string) *FileStore {
	return &FileStore{path: filepath.Join(dir, file)}
}

// Read implements Store
func (s *FileStore) Read(_ context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to read build stats: %w", err)
	}
	return Decode(data)
}

// Write implements Store
func (s *FileStore) Write(_ context.Context, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create build stats directory: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write build stats: %w", err)
	}

	log.Debug().Str("path", s.path).Uint64("build_number", snap.BuildNumber).Msg("Build stats written")
	return nil
}

// Delete implements Store
func (s *FileStore) Delete(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete build stats: %w", err)
	}
	return nil
}

// Location implements Store
func (s *FileStore) Location() string {
	return s.path
}

// Close implements Store
func (s *FileStore) Close() error {
	return nil
}
