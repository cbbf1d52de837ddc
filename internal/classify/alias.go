package classify

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/fluxbase-eu/buildtrace/internal/config"
	"github.com/fluxbase-eu/buildtrace/internal/graph"
	"github.com/fluxbase-eu/buildtrace/internal/report"
)

// AliasUsageHeaders are the table headers of AliasUsageFinding rows
var AliasUsageHeaders = []string{"ALIAS", "USAGES"}

// AliasUsageFinding is one entry of the alias histogram
type AliasUsageFinding struct {
	Alias string `json:"alias"`
	Count int    `json:"count"`
}

// Analyzer implements Finding
func (f AliasUsageFinding) Analyzer() string { return NameAliasUsage }

// Row implements Finding
func (f AliasUsageFinding) Row() []string {
	return []string{f.Alias, strconv.Itoa(f.Count)}
}

// AliasPattern returns the regexp matching prefix followed by word characters
func AliasPattern(prefix string) (*regexp.Regexp, error) {
	if !config.IsSupportedAliasPrefix(prefix) {
		return nil, fmt.Errorf("%w: %q", config.ErrUnsupportedAliasPrefix, prefix)
	}
	return regexp.Compile(regexp.QuoteMeta(prefix) + `[\w-]+`)
}

// AliasUsage builds the alias histogram over each module's identifying path.
// Each distinct alias counts once per module. The result is sorted by count,
// highest first, then by alias.
func AliasUsage(modules []graph.ModuleRecord, cfg config.AliasUsageConfig) ([]AliasUsageFinding, error) {
	pattern, err := AliasPattern(cfg.AliasPrefix)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, m := range modules {
		path := m.IdentifyingPath()
		if path == "" {
			continue
		}
		seen := make(map[string]struct{})
		for _, alias := range pattern.FindAllString(path, -1) {
			if _, ok := seen[alias]; ok {
				continue
			}
			seen[alias] = struct{}{}
			counts[alias]++
		}
	}

	findings := make([]AliasUsageFinding, 0, len(counts))
	for alias, count := range counts {
		findings = append(findings, AliasUsageFinding{Alias: alias, Count: count})
	}
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Count != findings[j].Count {
			return findings[i].Count > findings[j].Count
		}
		return findings[i].Alias < findings[j].Alias
	})
	return findings, nil
}

// AliasTracker is the Classifier for AliasUsage
type AliasTracker struct {
	cfg config.AliasUsageConfig
}

// NewAliasTracker creates an alias usage classifier
func NewAliasTracker(cfg config.AliasUsageConfig) *AliasTracker {
	return &AliasTracker{cfg: cfg}
}

// Name implements Classifier
func (c *AliasTracker) Name() string { return NameAliasUsage }

// Classify implements Classifier. It is a no-op when the host defines no
// alias mapping.
func (c *AliasTracker) Classify(snap *graph.Snapshot) ([]Finding, error) {
	if !snap.HasAliases() {
		return []Finding{}, nil
	}
	findings, err := AliasUsage(snap.Modules, c.cfg)
	if err != nil {
		return nil, err
	}
	return wrap(findings), nil
}

// Report implements Classifier
func (c *AliasTracker) Report(sink report.Sink, snap *graph.Snapshot, findings []Finding) {
	if !snap.HasAliases() {
		return
	}
	if len(findings) == 0 {
		report.Infof(sink, "No %s aliases used by modules", c.cfg.AliasPrefix)
		return
	}
	report.Infof(sink, "Alias stats by usage")
	sink.Table("Alias usage", toTable(AliasUsageHeaders, findings))
}
