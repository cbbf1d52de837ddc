// Package graph holds the per-build module graph snapshot consumed by the analyzers.
package graph

// SuspectCategories are the dependency categories treated as suspect by default
var SuspectCategories = []string{"commonjs", "unknown"}

// DependencyEdge is one outgoing dependency of a module
type DependencyEdge struct {
	Category string `json:"category"`
	Critical bool   `json:"critical"`
	Request  string `json:"request,omitempty"`
}

// ModuleRecord is the normalized view of a host module.
// ResourcePath is nil for modules without an on-disk identity.
type ModuleRecord struct {
	ID                      string           `json:"id"`
	ResourcePath            *string          `json:"resourcePath"`
	Context                 *string          `json:"context"`
	SizeBytes               int64            `json:"sizeBytes"`
	Kind                    string           `json:"kind"`
	Dependencies            []DependencyEdge `json:"dependencies"`
	IncomingConnectionCount int              `json:"incomingConnectionCount"`
}

// Path returns the resource path, or "" when the module has none
func (m ModuleRecord) Path() string {
	if m.ResourcePath == nil {
		return ""
	}
	return *m.ResourcePath
}

// HasPath reports whether the module has a resolvable resource path
func (m ModuleRecord) HasPath() bool {
	return m.ResourcePath != nil && *m.ResourcePath != ""
}

// IdentifyingPath returns the resource path, falling back to the context directory
func (m ModuleRecord) IdentifyingPath() string {
	if m.HasPath() {
		return *m.ResourcePath
	}
	if m.Context != nil {
		return *m.Context
	}
	return ""
}

// AssetRecord is one emitted build artifact
type AssetRecord struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"sizeBytes"`
}

// Snapshot is the immutable module graph and asset list of one build
type Snapshot struct {
	// Context is the resolved build context directory
	Context string `json:"context"`

	// Aliases is the host's path-resolution alias mapping
	Aliases map[string]string `json:"aliases,omitempty"`

	Modules []ModuleRecord `json:"modules"`
	Assets  []AssetRecord  `json:"assets"`

	// Build status reported by the host
	Hash        string `json:"hash,omitempty"`
	HasErrors   bool   `json:"hasErrors,omitempty"`
	HasWarnings bool   `json:"hasWarnings,omitempty"`
}

// HasAliases reports whether the host defines any alias mapping
func (s *Snapshot) HasAliases() bool {
	return len(s.Aliases) > 0
}

// StringPtr returns a pointer to a string
func StringPtr(s string) *string {
	return &s
}
