// Package classify holds the module graph classifiers.
//
// Every classifier is a pure function over an immutable snapshot. Results are
// built in a fresh slice on each call, so running a classifier twice over the
// same snapshot yields the same findings.
package classify

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fluxbase-eu/buildtrace/internal/graph"
	"github.com/fluxbase-eu/buildtrace/internal/report"
)

// Analyzer names used for reporting, metrics and spans
const (
	NameLargeModule         = "large_module"
	NameUnusedModule        = "unused_module"
	NameOrphanScan          = "orphan_scan"
	NameSuspectedDependency = "suspected_dependency"
	NameAliasUsage          = "alias_usage"
)

// Finding is one reportable classification result
type Finding interface {
	// Analyzer returns the name of the analyzer that produced the finding
	Analyzer() string

	// Row renders the finding as a table row
	Row() []string
}

// Classifier runs over a module graph snapshot
type Classifier interface {
	Name() string
	Classify(snap *graph.Snapshot) ([]Finding, error)

	// Report pushes the findings of one Classify call to the sink
	Report(sink report.Sink, snap *graph.Snapshot, findings []Finding)
}

// toTable renders findings with the given headers
func toTable(headers []string, findings []Finding) report.Table {
	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		rows = append(rows, f.Row())
	}
	return report.Table{Headers: headers, Rows: rows}
}

// relativePath shortens path against the build context for display
func relativePath(context, path string) string {
	if context == "" || path == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(context, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return "./" + filepath.ToSlash(rel)
}

// formatKiB renders a byte count as KiB with two decimals
func formatKiB(bytes int64) string {
	return fmt.Sprintf("%.2f KB", float64(bytes)/1024)
}

func wrap[T Finding](items []T) []Finding {
	out := make([]Finding, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
