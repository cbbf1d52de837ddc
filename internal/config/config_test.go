package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  BuildConfig
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			config:  BuildConfig{Format: "esm", Platform: "browser"},
			wantErr: false,
		},
		{
			name:    "empty values use esbuild defaults",
			config:  BuildConfig{},
			wantErr: false,
		},
		{
			name:    "invalid format",
			config:  BuildConfig{Format: "amd", Platform: "node"},
			wantErr: true,
			errMsg:  "invalid format: amd",
		},
		{
			name:    "invalid platform",
			config:  BuildConfig{Format: "cjs", Platform: "deno"},
			wantErr: true,
			errMsg:  "invalid platform: deno",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestBuildStatsConfig_Validate(t *testing.T) {
	valid := func() BuildStatsConfig {
		return Default().BuildStats
	}

	tests := []struct {
		name    string
		modify  func(c *BuildStatsConfig)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "defaults",
			modify:  func(c *BuildStatsConfig) {},
			wantErr: false,
		},
		{
			name:    "empty backend means file",
			modify:  func(c *BuildStatsConfig) { c.Backend = "" },
			wantErr: false,
		},
		{
			name:    "unknown backend",
			modify:  func(c *BuildStatsConfig) { c.Backend = "gcs" },
			wantErr: true,
			errMsg:  "invalid build stats backend: gcs",
		},
		{
			name:    "missing output file",
			modify:  func(c *BuildStatsConfig) { c.OutputFile = "" },
			wantErr: true,
			errMsg:  "output_file is required",
		},
		{
			name:    "s3 without bucket",
			modify:  func(c *BuildStatsConfig) { c.Backend = "s3"; c.S3.Endpoint = "localhost:9000" },
			wantErr: true,
			errMsg:  "s3.endpoint and s3.bucket are required",
		},
		{
			name:    "redis without url",
			modify:  func(c *BuildStatsConfig) { c.Backend = "redis" },
			wantErr: true,
			errMsg:  "redis_url is required",
		},
		{
			name:    "postgres without dsn",
			modify:  func(c *BuildStatsConfig) { c.Backend = "postgres" },
			wantErr: true,
			errMsg:  "postgres_dsn is required",
		},
		{
			name: "complete redis config",
			modify: func(c *BuildStatsConfig) {
				c.Backend = "redis"
				c.RedisURL = "redis://localhost:6379/0"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.modify(&c)
			err := c.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAnalyzerConfig_Validate(t *testing.T) {
	t.Run("negative large module threshold", func(t *testing.T) {
		c := LargeModuleConfig{MaxSizeBytes: -1}
		require.Error(t, c.Validate())
	})

	t.Run("orphan scan needs a directory", func(t *testing.T) {
		c := OrphanScanConfig{Active: true, Dir: "  "}
		require.Error(t, c.Validate())
	})

	t.Run("suspected dependency needs extensions", func(t *testing.T) {
		c := SuspectedDependencyConfig{Directory: "src"}
		require.Error(t, c.Validate())
	})

	t.Run("env validator needs variables", func(t *testing.T) {
		c := EnvValidatorConfig{}
		require.Error(t, c.Validate())
		c.Required = []string{"API_URL"}
		require.NoError(t, c.Validate())
	})

	t.Run("alias prefix", func(t *testing.T) {
		for _, prefix := range SupportedAliasPrefixes {
			c := AliasUsageConfig{AliasPrefix: prefix}
			require.NoError(t, c.Validate(), prefix)
		}

		c := AliasUsageConfig{AliasPrefix: "%"}
		err := c.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupportedAliasPrefix))
	})
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.False(t, cfg.LargeModule.Active)
	assert.False(t, cfg.UnusedModule.Active)
	assert.False(t, cfg.SuspectedDependency.Active)
	assert.False(t, cfg.AliasUsage.Active)
	assert.False(t, cfg.AssetSize.Active)
	assert.False(t, cfg.BuildStats.Active)
	assert.False(t, cfg.EnvValidator.Active)

	assert.Equal(t, "src", cfg.LargeModule.Directory)
	assert.Equal(t, []string{"js", "ts", "jsx", "tsx"}, cfg.SuspectedDependency.FileExtensions)
	assert.Equal(t, []string{"test", "__tests__", "types.ts"}, cfg.UnusedModule.OrphanScan.SkipPatterns)
	assert.Equal(t, "@", cfg.AliasUsage.AliasPrefix)
	assert.Equal(t, "NODE_ENV", cfg.BuildStats.EnvironmentVariable)
}

func TestLoad(t *testing.T) {
	t.Run("file values override defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "buildtrace.yaml")
		content := `
large_module:
  active: true
  max_size_bytes: 2048
suspected_dependency:
  active: true
  file_extensions: [ts]
build_stats:
  active: true
  output_dir: .stats
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.True(t, cfg.LargeModule.Active)
		assert.Equal(t, int64(2048), cfg.LargeModule.MaxSizeBytes)
		assert.Equal(t, "src", cfg.LargeModule.Directory)
		assert.Equal(t, []string{"ts"}, cfg.SuspectedDependency.FileExtensions)
		assert.Equal(t, ".stats", cfg.BuildStats.OutputDir)
		assert.Equal(t, "stats.json", cfg.BuildStats.OutputFile)
		assert.False(t, cfg.AliasUsage.Active)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "buildtrace.yaml")
		require.NoError(t, os.WriteFile(path, []byte("large_module:\n  directory: src\n"), 0600))
		t.Setenv("BUILDTRACE_LARGE_MODULE_DIRECTORY", "app")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "app", cfg.LargeModule.Directory)
	})

	t.Run("invalid build section fails", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "buildtrace.yaml")
		require.NoError(t, os.WriteFile(path, []byte("build:\n  format: amd\n"), 0600))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "buildtrace.yaml")

	cfg := Default()
	cfg.LargeModule.Active = true
	cfg.LargeModule.MaxSizeBytes = 4096
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.LargeModule.Active)
	assert.Equal(t, int64(4096), loaded.LargeModule.MaxSizeBytes)
	assert.Equal(t, cfg.SuspectedDependency.FileExtensions, loaded.SuspectedDependency.FileExtensions)
}
