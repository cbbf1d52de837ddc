package buildstats

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Store.Read when no snapshot has been written yet
var ErrNotFound = errors.New("build stats snapshot not found")

// Store reads and writes the persisted snapshot.
// Implementations read fully and write fully; no locking is done.
type Store interface {
	// Read returns the persisted snapshot. A missing snapshot is ErrNotFound.
	Read(ctx context.Context) (*Snapshot, error)

	// Write replaces the persisted snapshot, creating its location if needed
	Write(ctx context.Context, snap *Snapshot) error

	// Delete removes the persisted snapshot. Deleting a missing one is not an error.
	Delete(ctx context.Context) error

	// Location describes where the snapshot lives
	Location() string

	Close() error
}

// Encode renders a snapshot as pretty-printed JSON
func Encode(snap *Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode build stats: %w", err)
	}
	return append(data, '\n'), nil
}

// requiredFields must be present in a stored snapshot
var requiredFields = []string{"totalAssetSizeKiB", "buildNumber"}

// Decode parses and validates a snapshot document. Unknown fields and
// missing required fields make the document invalid.
func Decode(data []byte) (*Snapshot, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode build stats: %w", err)
	}
	if fields == nil {
		return nil, errors.New("invalid build stats: empty document")
	}
	for _, name := range requiredFields {
		if _, ok := fields[name]; !ok {
			return nil, fmt.Errorf("invalid build stats: missing %s", name)
		}
	}

	var snap Snapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode build stats: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("invalid build stats: %w", err)
	}
	return &snap, nil
}
