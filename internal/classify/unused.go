package classify

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fluxbase-eu/buildtrace/internal/config"
	"github.com/fluxbase-eu/buildtrace/internal/graph"
	"github.com/fluxbase-eu/buildtrace/internal/match"
	"github.com/fluxbase-eu/buildtrace/internal/report"
)

// Rules reported by UnusedModuleFinding
const (
	RuleNoIncomingConnections = "no-incoming-connections"
	RuleOrphanFile            = "orphan-file"
)

// UnusedModuleHeaders are the table headers of UnusedModuleFinding rows
var UnusedModuleHeaders = []string{"NAME", "RULE"}

// UnusedModuleFinding is a module or file nothing depends on
type UnusedModuleFinding struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Rule string `json:"rule"`
}

// Analyzer implements Finding
func (f UnusedModuleFinding) Analyzer() string {
	if f.Rule == RuleOrphanFile {
		return NameOrphanScan
	}
	return NameUnusedModule
}

// Row implements Finding
func (f UnusedModuleFinding) Row() []string {
	return []string{f.Name, f.Rule}
}

// UnusedModules returns every module under cfg.Directory with no incoming
// connections. Entry points have none either and are reported too.
func UnusedModules(context string, modules []graph.ModuleRecord, cfg config.UnusedModuleConfig) []UnusedModuleFinding {
	findings := []UnusedModuleFinding{}
	for _, m := range modules {
		if !m.HasPath() || m.IncomingConnectionCount > 0 {
			continue
		}
		if !match.MatchesDirectory(m.Path(), cfg.Directory) {
			continue
		}
		findings = append(findings, UnusedModuleFinding{
			Path: m.Path(),
			Name: relativePath(context, m.Path()),
			Rule: RuleNoIncomingConnections,
		})
	}
	return findings
}

// OrphanFiles walks cfg.Dir and returns every file that is not a module
// resource path. Entries whose name matches cfg.SkipPatterns are skipped,
// directories included. A relative cfg.Dir is resolved against context.
func OrphanFiles(context string, modules []graph.ModuleRecord, cfg config.OrphanScanConfig) ([]UnusedModuleFinding, error) {
	root := resolve(context, cfg.Dir)

	used := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		if !m.HasPath() {
			continue
		}
		used[resolve(context, m.Path())] = struct{}{}
	}

	findings := []UnusedModuleFinding{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if match.IsExcludedPath(d.Name(), cfg.SkipPatterns) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := used[filepath.Clean(path)]; ok {
			return nil
		}
		findings = append(findings, UnusedModuleFinding{
			Path: path,
			Name: relativePath(context, path),
			Rule: RuleOrphanFile,
		})
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return []UnusedModuleFinding{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return findings, nil
}

// resolve makes path absolute against context and cleans it
func resolve(context, path string) string {
	if !filepath.IsAbs(path) && context != "" {
		path = filepath.Join(context, path)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return filepath.Clean(path)
}

// UnusedModule is the Classifier for UnusedModules
type UnusedModule struct {
	cfg config.UnusedModuleConfig
}

// NewUnusedModule creates an unused module classifier
func NewUnusedModule(cfg config.UnusedModuleConfig) *UnusedModule {
	return &UnusedModule{cfg: cfg}
}

// Name implements Classifier
func (c *UnusedModule) Name() string { return NameUnusedModule }

// Classify implements Classifier
func (c *UnusedModule) Classify(snap *graph.Snapshot) ([]Finding, error) {
	return wrap(UnusedModules(snap.Context, snap.Modules, c.cfg)), nil
}

// Report implements Classifier
func (c *UnusedModule) Report(sink report.Sink, _ *graph.Snapshot, findings []Finding) {
	if len(findings) == 0 {
		report.Successf(sink, "Build has 0 modules without incoming connections in %s", c.cfg.Directory)
		return
	}
	report.Warnf(sink, "Build has %d modules without incoming connections in %s", len(findings), c.cfg.Directory)
	sink.Table("Unused modules", toTable(UnusedModuleHeaders, findings))
}

// OrphanScan is the Classifier for OrphanFiles
type OrphanScan struct {
	cfg config.OrphanScanConfig
}

// NewOrphanScan creates an orphan file classifier
func NewOrphanScan(cfg config.OrphanScanConfig) *OrphanScan {
	return &OrphanScan{cfg: cfg}
}

// Name implements Classifier
func (c *OrphanScan) Name() string { return NameOrphanScan }

// Classify implements Classifier
func (c *OrphanScan) Classify(snap *graph.Snapshot) ([]Finding, error) {
	findings, err := OrphanFiles(snap.Context, snap.Modules, c.cfg)
	if err != nil {
		return nil, err
	}
	return wrap(findings), nil
}

// Report implements Classifier
func (c *OrphanScan) Report(sink report.Sink, _ *graph.Snapshot, findings []Finding) {
	if len(findings) == 0 {
		report.Successf(sink, "No unused files in %s", c.cfg.Dir)
		return
	}
	report.Warnf(sink, "%d unused files in %s", len(findings), c.cfg.Dir)
	sink.Table("Unused files", toTable(UnusedModuleHeaders, findings))
}
