package classify

import (
	"strconv"
	"strings"

	"github.com/fluxbase-eu/buildtrace/internal/config"
	"github.com/fluxbase-eu/buildtrace/internal/graph"
	"github.com/fluxbase-eu/buildtrace/internal/match"
	"github.com/fluxbase-eu/buildtrace/internal/report"
)

// Rules reported by SuspectedDependencyFinding
const (
	RuleSuspectCategory = "category"
	RuleCritical        = "critical"
)

// SuspectedDependencyHeaders are the table headers of SuspectedDependencyFinding rows
var SuspectedDependencyHeaders = []string{"CRITICAL", "DEPENDENCY CATEGORY", "REQUEST", "MODULE NAME", "RULES"}

// SuspectedDependencyFinding is one suspect outgoing edge of a module
type SuspectedDependencyFinding struct {
	Path     string   `json:"path"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Critical bool     `json:"critical"`
	Request  string   `json:"request,omitempty"`
	Rules    []string `json:"rules"`
}

// Analyzer implements Finding
func (f SuspectedDependencyFinding) Analyzer() string { return NameSuspectedDependency }

// Row implements Finding
func (f SuspectedDependencyFinding) Row() []string {
	return []string{
		strconv.FormatBool(f.Critical),
		f.Category,
		f.Request,
		f.Name,
		strings.Join(f.Rules, ","),
	}
}

// IsSuspectCategory reports whether category is in graph.SuspectCategories
func IsSuspectCategory(category string) bool {
	for _, c := range graph.SuspectCategories {
		if c == category {
			return true
		}
	}
	return false
}

// SuspectedDependencies returns one finding per suspect edge of every module
// under cfg.Directory with an extension in cfg.FileExtensions and outside
// node_modules. An edge is suspect when its category is suspect or it is
// critical; an edge matching both rules is reported once.
func SuspectedDependencies(context string, modules []graph.ModuleRecord, cfg config.SuspectedDependencyConfig) []SuspectedDependencyFinding {
	findings := []SuspectedDependencyFinding{}
	for _, m := range modules {
		if !m.HasPath() {
			continue
		}
		path := m.Path()
		if !match.MatchesDirectory(path, cfg.Directory) ||
			!match.HasExtension(path, cfg.FileExtensions) ||
			match.IsNodeModule(path) {
			continue
		}

		for _, dep := range m.Dependencies {
			var rules []string
			if IsSuspectCategory(dep.Category) {
				rules = append(rules, RuleSuspectCategory)
			}
			if dep.Critical {
				rules = append(rules, RuleCritical)
			}
			if len(rules) == 0 {
				continue
			}
			findings = append(findings, SuspectedDependencyFinding{
				Path:     path,
				Name:     relativePath(context, path),
				Category: dep.Category,
				Critical: dep.Critical,
				Request:  dep.Request,
				Rules:    rules,
			})
		}
	}
	return findings
}

// SuspectedDependency is the Classifier for SuspectedDependencies
type SuspectedDependency struct {
	cfg config.SuspectedDependencyConfig
}

// NewSuspectedDependency creates a suspected dependency classifier
func NewSuspectedDependency(cfg config.SuspectedDependencyConfig) *SuspectedDependency {
	return &SuspectedDependency{cfg: cfg}
}

// Name implements Classifier
func (c *SuspectedDependency) Name() string { return NameSuspectedDependency }

// Classify implements Classifier
func (c *SuspectedDependency) Classify(snap *graph.Snapshot) ([]Finding, error) {
	return wrap(SuspectedDependencies(snap.Context, snap.Modules, c.cfg)), nil
}

// Report implements Classifier
func (c *SuspectedDependency) Report(sink report.Sink, _ *graph.Snapshot, findings []Finding) {
	if len(findings) == 0 {
		report.Successf(sink, "Build has 0 suspected dependencies")
		return
	}
	report.Warnf(sink, "Build has %d suspected dependencies in modules", len(findings))
	sink.Table("Suspected dependencies", toTable(SuspectedDependencyHeaders, findings))
}
