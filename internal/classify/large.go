package classify

import (
	"strconv"

	"github.com/fluxbase-eu/buildtrace/internal/config"
	"github.com/fluxbase-eu/buildtrace/internal/graph"
	"github.com/fluxbase-eu/buildtrace/internal/match"
	"github.com/fluxbase-eu/buildtrace/internal/report"
)

// LargeModuleHeaders are the table headers of LargeModuleFinding rows
var LargeModuleHeaders = []string{"NAME", "TYPE", "DEPENDENCIES", "SIZE"}

// LargeModuleFinding is a module above the size threshold
type LargeModuleFinding struct {
	Path            string `json:"path"`
	Name            string `json:"name"`
	Kind            string `json:"kind"`
	SizeBytes       int64  `json:"sizeBytes"`
	DependencyCount int    `json:"dependencyCount"`
}

// Analyzer implements Finding
func (f LargeModuleFinding) Analyzer() string { return NameLargeModule }

// Row implements Finding
func (f LargeModuleFinding) Row() []string {
	return []string{f.Name, f.Kind, strconv.Itoa(f.DependencyCount), formatKiB(f.SizeBytes)}
}

// LargeModules returns every module with a resource path under cfg.Directory,
// outside node_modules and strictly larger than cfg.MaxSizeBytes
func LargeModules(context string, modules []graph.ModuleRecord, cfg config.LargeModuleConfig) []LargeModuleFinding {
	findings := []LargeModuleFinding{}
	for _, m := range modules {
		if !m.HasPath() {
			continue
		}
		path := m.Path()
		if m.SizeBytes <= cfg.MaxSizeBytes ||
			!match.MatchesDirectory(path, cfg.Directory) ||
			match.IsNodeModule(path) {
			continue
		}
		findings = append(findings, LargeModuleFinding{
			Path:            path,
			Name:            relativePath(context, path),
			Kind:            m.Kind,
			SizeBytes:       m.SizeBytes,
			DependencyCount: len(m.Dependencies),
		})
	}
	return findings
}

// LargeModule is the Classifier for LargeModules
type LargeModule struct {
	cfg config.LargeModuleConfig
}

// NewLargeModule creates a large module classifier
func NewLargeModule(cfg config.LargeModuleConfig) *LargeModule {
	return &LargeModule{cfg: cfg}
}

// Name implements Classifier
func (c *LargeModule) Name() string { return NameLargeModule }

// Classify implements Classifier
func (c *LargeModule) Classify(snap *graph.Snapshot) ([]Finding, error) {
	return wrap(LargeModules(snap.Context, snap.Modules, c.cfg)), nil
}

// Report implements Classifier
func (c *LargeModule) Report(sink report.Sink, _ *graph.Snapshot, findings []Finding) {
	if len(findings) == 0 {
		report.Successf(sink, "Build has 0 large modules")
		return
	}
	report.Warnf(sink, "Build has %d large modules", len(findings))
	sink.Table("Large modules", toTable(LargeModuleHeaders, findings))
}
