package graph

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Metafile represents the esbuild metafile JSON structure
type Metafile struct {
	Inputs  map[string]MetafileInput  `json:"inputs"`
	Outputs map[string]MetafileOutput `json:"outputs"`
}

// MetafileInput represents an input file in the metafile
type MetafileInput struct {
	Bytes   int64            `json:"bytes"`
	Imports []MetafileImport `json:"imports"`
	Format  string           `json:"format,omitempty"` // "cjs" or "esm"
}

// MetafileImport represents an import in the metafile
type MetafileImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
	Original string `json:"original,omitempty"`
}

// MetafileOutput represents an output file in the metafile
type MetafileOutput struct {
	Bytes      int64                   `json:"bytes"`
	Inputs     map[string]InputContrib `json:"inputs"`
	Imports    []MetafileImport        `json:"imports"`
	Exports    []string                `json:"exports"`
	EntryPoint string                  `json:"entryPoint,omitempty"`
}

// InputContrib represents the contribution of an input to an output
type InputContrib struct {
	BytesInOutput int64 `json:"bytesInOutput"`
}

// MetafileOptions describe the build that produced a metafile
type MetafileOptions struct {
	// WorkingDir is the directory metafile paths are relative to
	WorkingDir string
	// OutDir is trimmed from output paths to form asset names
	OutDir string
	// Aliases is the build's alias option
	Aliases map[string]string
}

// ParseMetafile decodes an esbuild metafile document
func ParseMetafile(data []byte) (*Metafile, error) {
	var meta Metafile
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}
	return &meta, nil
}

// FromMetafile builds a snapshot from an esbuild metafile
func FromMetafile(meta *Metafile, opts MetafileOptions) *Snapshot {
	snap := &Snapshot{
		Context: opts.WorkingDir,
		Aliases: opts.Aliases,
	}

	// Map iteration order is random; sort keys so snapshots are stable
	keys := make([]string, 0, len(meta.Inputs))
	for key := range meta.Inputs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	incoming := make(map[string]int, len(keys))
	for _, key := range keys {
		for _, imp := range meta.Inputs[key].Imports {
			if imp.External {
				continue
			}
			if _, ok := meta.Inputs[imp.Path]; ok && imp.Path != key {
				incoming[imp.Path]++
			}
		}
	}

	for _, key := range keys {
		input := meta.Inputs[key]

		record := ModuleRecord{
			ID:                      key,
			SizeBytes:               input.Bytes,
			Kind:                    moduleKind(key, input.Format),
			IncomingConnectionCount: incoming[key],
		}

		if !hasNamespace(key) {
			resource := key
			if !filepath.IsAbs(resource) && opts.WorkingDir != "" {
				resource = filepath.Join(opts.WorkingDir, resource)
			}
			resource = filepath.Clean(resource)
			record.ResourcePath = StringPtr(resource)
			record.Context = StringPtr(filepath.Dir(resource))
		}

		for _, imp := range input.Imports {
			category, critical := importCategory(imp.Kind)
			record.Dependencies = append(record.Dependencies, DependencyEdge{
				Category: category,
				Critical: critical,
				Request:  importRequest(imp),
			})
		}

		snap.Modules = append(snap.Modules, record)
	}

	outputs := make([]string, 0, len(meta.Outputs))
	for key := range meta.Outputs {
		outputs = append(outputs, key)
	}
	sort.Strings(outputs)

	for _, key := range outputs {
		snap.Assets = append(snap.Assets, AssetRecord{
			Name:      assetName(key, opts),
			SizeBytes: meta.Outputs[key].Bytes,
		})
	}

	return snap
}

// importCategory maps esbuild import kinds onto dependency categories
func importCategory(kind string) (string, bool) {
	switch kind {
	case "import-statement", "dynamic-import":
		return "esm", false
	case "require-call":
		return "commonjs", false
	case "require-resolve":
		// resolved at runtime, never statically proven
		return "commonjs", true
	case "import-rule", "composes-from", "url-token":
		return "css", false
	default:
		return "unknown", false
	}
}

func importRequest(imp MetafileImport) string {
	if imp.Original != "" {
		return imp.Original
	}
	return imp.Path
}

func moduleKind(key, format string) string {
	switch format {
	case "esm":
		return "javascript/esm"
	case "cjs":
		return "javascript/cjs"
	}
	switch strings.ToLower(filepath.Ext(key)) {
	case ".css":
		return "css"
	case ".json":
		return "json"
	}
	return "javascript/auto"
}

// hasNamespace reports whether an input key carries an esbuild namespace
// prefix such as "<stdin>" or "virtual:foo", which has no on-disk identity
func hasNamespace(key string) bool {
	if strings.HasPrefix(key, "<") {
		return true
	}
	idx := strings.Index(key, ":")
	if idx <= 0 {
		return false
	}
	// Windows drive letters ("C:\...") are not namespaces
	if idx == 1 && filepath.VolumeName(key) != "" {
		return false
	}
	return true
}

func assetName(key string, opts MetafileOptions) string {
	if opts.OutDir == "" {
		return filepath.ToSlash(key)
	}
	outDir := opts.OutDir
	if filepath.IsAbs(outDir) && opts.WorkingDir != "" {
		if rel, err := filepath.Rel(opts.WorkingDir, outDir); err == nil {
			outDir = rel
		}
	}
	rel, err := filepath.Rel(filepath.Clean(outDir), filepath.Clean(key))
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(key)
	}
	return filepath.ToSlash(rel)
}
