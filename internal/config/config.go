package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fluxbase-eu/buildtrace/internal/observability"
)

// DefaultConfigName is the config file name searched for without extension
const DefaultConfigName = "buildtrace"

// Config represents the buildtrace configuration
type Config struct {
	Build               BuildConfig                `mapstructure:"build" yaml:"build"`
	LargeModule         LargeModuleConfig          `mapstructure:"large_module" yaml:"large_module"`
	UnusedModule        UnusedModuleConfig         `mapstructure:"unused_module" yaml:"unused_module"`
	SuspectedDependency SuspectedDependencyConfig  `mapstructure:"suspected_dependency" yaml:"suspected_dependency"`
	AliasUsage          AliasUsageConfig           `mapstructure:"alias_usage" yaml:"alias_usage"`
	AssetSize           AssetSizeConfig            `mapstructure:"asset_size" yaml:"asset_size"`
	BuildStats          BuildStatsConfig           `mapstructure:"build_stats" yaml:"build_stats"`
	EnvValidator        EnvValidatorConfig         `mapstructure:"env_validator" yaml:"env_validator"`
	Metrics             MetricsConfig              `mapstructure:"metrics" yaml:"metrics"`
	Tracing             observability.TracerConfig `mapstructure:"tracing" yaml:"tracing"`
	Debug               bool                       `mapstructure:"debug" yaml:"debug"`
}

// BuildConfig contains the esbuild options used by `buildtrace build`
type BuildConfig struct {
	EntryPoints []string          `mapstructure:"entry_points" yaml:"entry_points"`
	OutDir      string            `mapstructure:"outdir" yaml:"outdir"`
	Format      string            `mapstructure:"format" yaml:"format"`     // esm, cjs or iife
	Platform    string            `mapstructure:"platform" yaml:"platform"` // browser, node or neutral
	Bundle      bool              `mapstructure:"bundle" yaml:"bundle"`
	Minify      bool              `mapstructure:"minify" yaml:"minify"`
	Sourcemap   bool              `mapstructure:"sourcemap" yaml:"sourcemap"`
	Write       bool              `mapstructure:"write" yaml:"write"`
	External    []string          `mapstructure:"external" yaml:"external,omitempty"`
	Alias       map[string]string `mapstructure:"alias" yaml:"alias,omitempty"`
}

// MetricsConfig controls Prometheus metric export
type MetricsConfig struct {
	// Textfile is a node_exporter textfile collector path; empty disables export
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// Default returns the configuration with every default applied
func Default() *Config {
	return &Config{
		Build: BuildConfig{
			OutDir:   "dist",
			Format:   "esm",
			Platform: "browser",
			Bundle:   true,
			Write:    true,
		},
		LargeModule: LargeModuleConfig{
			Directory:    "src",
			MaxSizeBytes: 100 * 1024,
		},
		UnusedModule: UnusedModuleConfig{
			Directory: "src",
			OrphanScan: OrphanScanConfig{
				Dir:          "src",
				SkipPatterns: []string{"test", "__tests__", "types.ts"},
			},
		},
		SuspectedDependency: SuspectedDependencyConfig{
			Directory:      "src",
			FileExtensions: []string{"js", "ts", "jsx", "tsx"},
		},
		AliasUsage: AliasUsageConfig{
			AliasPrefix: "@",
		},
		BuildStats: BuildStatsConfig{
			Backend:             "file",
			OutputDir:           "build-stats",
			OutputFile:          "stats.json",
			EnvironmentVariable: "NODE_ENV",
			RedisKey:            "buildtrace:stats",
			ProjectKey:          "default",
		},
		EnvValidator: EnvValidatorConfig{
			EnvFiles: []string{".env", ".env.local"},
		},
		Tracing: observability.DefaultTracerConfig(),
	}
}

// Load loads configuration from file and environment variables.
// An empty path searches the working directory and ./config.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("BUILDTRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("No config file found, using environment variables and defaults")
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("Config file loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers the values from Default with viper
func setDefaults(v *viper.Viper) {
	d := Default()

	// Build defaults
	v.SetDefault("build.outdir", d.Build.OutDir)
	v.SetDefault("build.format", d.Build.Format)
	v.SetDefault("build.platform", d.Build.Platform)
	v.SetDefault("build.bundle", d.Build.Bundle)
	v.SetDefault("build.write", d.Build.Write)

	// Analyzer defaults (all inactive)
	v.SetDefault("large_module.active", false)
	v.SetDefault("large_module.directory", d.LargeModule.Directory)
	v.SetDefault("large_module.max_size_bytes", d.LargeModule.MaxSizeBytes)

	v.SetDefault("unused_module.active", false)
	v.SetDefault("unused_module.directory", d.UnusedModule.Directory)
	v.SetDefault("unused_module.orphan_scan.active", false)
	v.SetDefault("unused_module.orphan_scan.dir", d.UnusedModule.OrphanScan.Dir)
	v.SetDefault("unused_module.orphan_scan.skip_patterns", d.UnusedModule.OrphanScan.SkipPatterns)

	v.SetDefault("suspected_dependency.active", false)
	v.SetDefault("suspected_dependency.directory", d.SuspectedDependency.Directory)
	v.SetDefault("suspected_dependency.file_extensions", d.SuspectedDependency.FileExtensions)

	v.SetDefault("alias_usage.active", false)
	v.SetDefault("alias_usage.alias_prefix", d.AliasUsage.AliasPrefix)

	v.SetDefault("asset_size.active", false)

	// Build stats defaults
	v.SetDefault("build_stats.active", false)
	v.SetDefault("build_stats.backend", d.BuildStats.Backend)
	v.SetDefault("build_stats.output_dir", d.BuildStats.OutputDir)
	v.SetDefault("build_stats.output_file", d.BuildStats.OutputFile)
	v.SetDefault("build_stats.environment_variable", d.BuildStats.EnvironmentVariable)
	v.SetDefault("build_stats.redis_key", d.BuildStats.RedisKey)
	v.SetDefault("build_stats.project_key", d.BuildStats.ProjectKey)
	v.SetDefault("build_stats.s3.use_ssl", true)

	v.SetDefault("env_validator.active", false)
	v.SetDefault("env_validator.env_files", d.EnvValidator.EnvFiles)

	v.SetDefault("metrics.textfile", "")

	// Tracing defaults
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.environment", d.Tracing.Environment)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.insecure", d.Tracing.Insecure)

	v.SetDefault("debug", false)
}

// Validate checks settings that would break every analyzer. Analyzer-specific
// problems are reported by each analyzer config's own Validate.
func (c *Config) Validate() error {
	if err := c.Build.Validate(); err != nil {
		return fmt.Errorf("build configuration error: %w", err)
	}
	return nil
}

// Validate checks the esbuild options
func (bc *BuildConfig) Validate() error {
	switch bc.Format {
	case "", "esm", "cjs", "iife":
	default:
		return fmt.Errorf("invalid format: %s (must be one of: esm, cjs, iife)", bc.Format)
	}
	switch bc.Platform {
	case "", "browser", "node", "neutral":
	default:
		return fmt.Errorf("invalid platform: %s (must be one of: browser, node, neutral)", bc.Platform)
	}
	return nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultConfigName + ".yaml"
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
