// Package buildstats persists aggregate build metrics and diffs them across builds.
package buildstats

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/fluxbase-eu/buildtrace/internal/graph"
)

// DefaultEnvironment is recorded when the environment variable is unset
const DefaultEnvironment = "production"

// Snapshot is the persisted record of one build
type Snapshot struct {
	TotalAssetSizeKiB float64 `json:"totalAssetSizeKiB"`
	BuildNumber       uint64  `json:"buildNumber"`
	ElapsedSeconds    float64 `json:"elapsedSeconds"`
	ContentHash       string  `json:"contentHash"`
	HasErrors         bool    `json:"hasErrors"`
	HasWarnings       bool    `json:"hasWarnings"`
	Environment       string  `json:"environment"`
}

// Validate rejects snapshots that cannot come from a real build
func (s *Snapshot) Validate() error {
	if s.TotalAssetSizeKiB < 0 || math.IsNaN(s.TotalAssetSizeKiB) {
		return fmt.Errorf("totalAssetSizeKiB must be a non-negative number, got %v", s.TotalAssetSizeKiB)
	}
	if s.ElapsedSeconds < 0 {
		return fmt.Errorf("elapsedSeconds must not be negative, got %v", s.ElapsedSeconds)
	}
	return nil
}

// BuildInfo is what the host reports about a finished build
type BuildInfo struct {
	Assets      []graph.AssetRecord
	Elapsed     time.Duration
	Hash        string
	HasErrors   bool
	HasWarnings bool
}

// Collect builds the snapshot of the current build. BuildNumber is left at
// zero; the Tracker assigns it. environmentVariable names the variable whose
// value is recorded as the environment.
func Collect(info BuildInfo, environmentVariable string) *Snapshot {
	var total int64
	for _, a := range info.Assets {
		total += a.SizeBytes
	}

	hash := info.Hash
	if hash == "" {
		hash = ContentHash(info.Assets)
	}

	return &Snapshot{
		TotalAssetSizeKiB: round(float64(total)/1024, 2),
		ElapsedSeconds:    round(info.Elapsed.Seconds(), 3),
		ContentHash:       hash,
		HasErrors:         info.HasErrors,
		HasWarnings:       info.HasWarnings,
		Environment:       Environment(environmentVariable),
	}
}

// Environment returns the value of variable, or DefaultEnvironment when it
// is unset or empty
func Environment(variable string) string {
	if variable == "" {
		return DefaultEnvironment
	}
	if v := os.Getenv(variable); v != "" {
		return v
	}
	return DefaultEnvironment
}

// ContentHash hashes the asset names and sizes independent of their order
func ContentHash(list []graph.AssetRecord) string {
	sorted := make([]graph.AssetRecord, len(list))
	copy(sorted, list)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	d := xxhash.New()
	for _, a := range sorted {
		_, _ = d.WriteString(a.Name)
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(strconv.FormatInt(a.SizeBytes, 10))
		_, _ = d.WriteString("\n")
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
