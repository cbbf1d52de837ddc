// Package match provides the path and extension tests shared by the analyzers.
//
// Directory matching is a plain substring test, not a path-segment match: a
// directory of "src" also matches "other/src-like/file.ts". Callers rely on this
// looseness, so treat the result as a heuristic.
package match

import (
	"strings"
)

const nodeModules = "node_modules"

// MatchesDirectory reports whether substring occurs anywhere in path
func MatchesDirectory(path, substring string) bool {
	return strings.Contains(path, substring)
}

// IsNodeModule reports whether path lies under a node_modules directory
func IsNodeModule(path string) bool {
	return strings.Contains(path, nodeModules)
}

// FileExtension returns the last dot-delimited segment of the final path
// component, or "" when it has none
func FileExtension(path string) string {
	name := baseName(path)
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return name[idx+1:]
}

// HasExtension reports whether the extension of path is one of exts
func HasExtension(path string, exts []string) bool {
	ext := FileExtension(path)
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.TrimPrefix(e, ".") == ext {
			return true
		}
	}
	return false
}

// IsExcludedPath reports whether any token equals, is contained in, or is a
// prefix or suffix of the final path component
func IsExcludedPath(path string, tokens []string) bool {
	name := baseName(path)
	for _, token := range tokens {
		if token == "" {
			continue
		}
		if name == token ||
			strings.HasSuffix(name, token) ||
			strings.HasPrefix(name, token) ||
			strings.Contains(name, token) {
			return true
		}
	}
	return false
}

// baseName accepts both separators so host paths from other platforms work
func baseName(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimRight(path, "/")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
