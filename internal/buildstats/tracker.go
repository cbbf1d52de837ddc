package buildstats

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/buildtrace/internal/report"
)

// Result describes one Record call
type Result struct {
	// Previous is nil on a cold start
	Previous *Snapshot
	Current  *Snapshot

	// DeltaKiB is the asset size change against Previous, zero on a cold start
	DeltaKiB float64
}

// ColdStart reports whether no usable previous snapshot existed
func (r *Result) ColdStart() bool {
	return r.Previous == nil
}

// Grew reports whether the assets grew against the previous build
func (r *Result) Grew() bool {
	return r.DeltaKiB > 0
}

// Tracker compares each build against the persisted snapshot and replaces it
type Tracker struct {
	store Store
	sink  report.Sink
}

// NewTracker creates a tracker over store
func NewTracker(store Store, sink report.Sink) *Tracker {
	return &Tracker{store: store, sink: sink}
}

// Record diffs current against the persisted snapshot and writes the new one.
// A missing or corrupt snapshot re-baselines at build number 0. A write
// failure is returned.
func (t *Tracker) Record(ctx context.Context, current *Snapshot) (*Result, error) {
	next := *current
	result := &Result{Current: &next}

	previous, err := t.store.Read(ctx)
	if err != nil {
		log.Info().Err(err).Str("location", t.store.Location()).Msg("Could not read build stats, creating a new snapshot")
		report.Infof(t.sink, "Could not read build stats: %v. Creating a new snapshot", err)
		next.BuildNumber = 0
	} else {
		result.Previous = previous
		result.DeltaKiB = round(next.TotalAssetSizeKiB-previous.TotalAssetSizeKiB, 2)
		if next.TotalAssetSizeKiB > previous.TotalAssetSizeKiB {
			report.Warnf(t.sink, "Assets size has increased about: %.2f KB", result.DeltaKiB)
		} else {
			report.Successf(t.sink, "Assets size is normal")
		}
		next.BuildNumber = previous.BuildNumber + 1
	}

	if err := t.store.Write(ctx, &next); err != nil {
		return result, fmt.Errorf("failed to persist build stats to %s: %w", t.store.Location(), err)
	}

	report.Successf(t.sink, "Build stats #%d generated in %s", next.BuildNumber, t.store.Location())
	return result, nil
}
