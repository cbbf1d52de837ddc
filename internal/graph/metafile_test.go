package graph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMetafile = `{
  "inputs": {
    "src/index.ts": {
      "bytes": 120,
      "format": "esm",
      "imports": [
        {"path": "src/util.ts", "kind": "import-statement", "original": "./util"},
        {"path": "src/legacy.js", "kind": "require-call", "original": "./legacy"},
        {"path": "npm:zod", "kind": "import-statement", "external": true}
      ]
    },
    "src/util.ts": {"bytes": 40, "format": "esm", "imports": []},
    "src/legacy.js": {
      "bytes": 2048,
      "format": "cjs",
      "imports": [{"path": "src/util.ts", "kind": "require-resolve"}]
    },
    "src/styles.css": {"bytes": 10, "imports": []},
    "virtual:env": {"bytes": 5, "imports": []}
  },
  "outputs": {
    "dist/index.js": {"bytes": 2300, "inputs": {}, "imports": [], "exports": []},
    "dist/index.css": {"bytes": 10, "inputs": {}, "imports": [], "exports": []}
  }
}`

func findModule(t *testing.T, snap *Snapshot, id string) ModuleRecord {
	t.Helper()
	for _, m := range snap.Modules {
		if m.ID == id {
			return m
		}
	}
	t.Fatalf("module %s not found", id)
	return ModuleRecord{}
}

func TestFromMetafile(t *testing.T) {
	meta, err := ParseMetafile([]byte(sampleMetafile))
	require.NoError(t, err)

	snap := FromMetafile(meta, MetafileOptions{
		WorkingDir: "/work",
		OutDir:     "dist",
		Aliases:    map[string]string{"@app": "./src"},
	})

	t.Run("modules are sorted by id", func(t *testing.T) {
		require.Len(t, snap.Modules, 5)
		assert.Equal(t, "src/index.ts", snap.Modules[0].ID)
		assert.Equal(t, "virtual:env", snap.Modules[4].ID)
	})

	t.Run("resource paths are absolute", func(t *testing.T) {
		index := findModule(t, snap, "src/index.ts")
		require.True(t, index.HasPath())
		assert.Equal(t, filepath.Join("/work", "src/index.ts"), index.Path())
		assert.Equal(t, filepath.Join("/work", "src"), *index.Context)
	})

	t.Run("namespaced inputs have no resource path", func(t *testing.T) {
		virtual := findModule(t, snap, "virtual:env")
		assert.False(t, virtual.HasPath())
		assert.Nil(t, virtual.Context)
		assert.Empty(t, virtual.Path())
	})

	t.Run("incoming connections ignore externals", func(t *testing.T) {
		assert.Equal(t, 0, findModule(t, snap, "src/index.ts").IncomingConnectionCount)
		assert.Equal(t, 2, findModule(t, snap, "src/util.ts").IncomingConnectionCount)
		assert.Equal(t, 1, findModule(t, snap, "src/legacy.js").IncomingConnectionCount)
	})

	t.Run("import kinds map to categories", func(t *testing.T) {
		index := findModule(t, snap, "src/index.ts")
		require.Len(t, index.Dependencies, 3)
		assert.Equal(t, DependencyEdge{Category: "esm", Request: "./util"}, index.Dependencies[0])
		assert.Equal(t, DependencyEdge{Category: "commonjs", Request: "./legacy"}, index.Dependencies[1])

		legacy := findModule(t, snap, "src/legacy.js")
		require.Len(t, legacy.Dependencies, 1)
		assert.Equal(t, "commonjs", legacy.Dependencies[0].Category)
		assert.True(t, legacy.Dependencies[0].Critical)
	})

	t.Run("kinds follow format and extension", func(t *testing.T) {
		assert.Equal(t, "javascript/esm", findModule(t, snap, "src/index.ts").Kind)
		assert.Equal(t, "javascript/cjs", findModule(t, snap, "src/legacy.js").Kind)
		assert.Equal(t, "css", findModule(t, snap, "src/styles.css").Kind)
	})

	t.Run("assets are named relative to outdir", func(t *testing.T) {
		require.Len(t, snap.Assets, 2)
		assert.Equal(t, AssetRecord{Name: "index.css", SizeBytes: 10}, snap.Assets[0])
		assert.Equal(t, AssetRecord{Name: "index.js", SizeBytes: 2300}, snap.Assets[1])
	})

	t.Run("aliases are carried", func(t *testing.T) {
		assert.True(t, snap.HasAliases())
	})
}

func TestImportCategory(t *testing.T) {
	tests := []struct {
		kind         string
		wantCategory string
		wantCritical bool
	}{
		{"import-statement", "esm", false},
		{"dynamic-import", "esm", false},
		{"require-call", "commonjs", false},
		{"require-resolve", "commonjs", true},
		{"import-rule", "css", false},
		{"url-token", "css", false},
		{"entry-point", "unknown", false},
		{"", "unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			category, critical := importCategory(tt.kind)
			assert.Equal(t, tt.wantCategory, category)
			assert.Equal(t, tt.wantCritical, critical)
		})
	}
}

func TestParseMetafile_Invalid(t *testing.T) {
	_, err := ParseMetafile([]byte("{not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse metafile")
}

func TestLoadSnapshot(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		doc := `{
		  "context": "/work",
		  "modules": [
		    {"id": "a", "resourcePath": "/work/src/a.ts", "sizeBytes": 10, "kind": "javascript/auto",
		     "dependencies": [{"category": "commonjs", "critical": false}], "incomingConnectionCount": 1},
		    {"id": "b", "resourcePath": null, "sizeBytes": 0, "kind": "runtime"}
		  ],
		  "assets": [{"name": "main.js", "sizeBytes": 1024}]
		}`
		snap, err := LoadSnapshot(strings.NewReader(doc))
		require.NoError(t, err)
		require.Len(t, snap.Modules, 2)
		assert.Equal(t, "/work/src/a.ts", snap.Modules[0].Path())
		assert.False(t, snap.Modules[1].HasPath())
	})

	t.Run("duplicate resource paths are rejected", func(t *testing.T) {
		doc := `{"modules": [
		  {"id": "a", "resourcePath": "/src/a.ts"},
		  {"id": "b", "resourcePath": "/src/./a.ts"}
		]}`
		_, err := LoadSnapshot(strings.NewReader(doc))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "share resource path")
	})

	t.Run("negative sizes are rejected", func(t *testing.T) {
		doc := `{"assets": [{"name": "main.js", "sizeBytes": -1}]}`
		_, err := LoadSnapshot(strings.NewReader(doc))
		require.Error(t, err)
	})
}

func TestLoadMetafileFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleMetafile), 0600))

	snap, err := LoadMetafileFile(path, MetafileOptions{})
	require.NoError(t, err)
	assert.Equal(t, dir, snap.Context)
	assert.Equal(t, filepath.Join(dir, "src/util.ts"), findModule(t, snap, "src/util.ts").Path())
}
