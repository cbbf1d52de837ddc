package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedAliasPrefix is returned for an alias prefix outside SupportedAliasPrefixes
var ErrUnsupportedAliasPrefix = errors.New("alias prefix is not supported")

// SupportedAliasPrefixes are the alias prefix characters the alias tracker understands
var SupportedAliasPrefixes = []string{"@", "&", "~", "#"}

// LargeModuleConfig configures the large module analyzer
type LargeModuleConfig struct {
	Active       bool   `mapstructure:"active" yaml:"active"`
	Directory    string `mapstructure:"directory" yaml:"directory"`
	MaxSizeBytes int64  `mapstructure:"max_size_bytes" yaml:"max_size_bytes"`
}

// Validate checks the large module settings
func (c *LargeModuleConfig) Validate() error {
	if c.MaxSizeBytes < 0 {
		return fmt.Errorf("max_size_bytes must not be negative")
	}
	return nil
}

// UnusedModuleConfig configures the unused module analyzer
type UnusedModuleConfig struct {
	Active     bool             `mapstructure:"active" yaml:"active"`
	Directory  string           `mapstructure:"directory" yaml:"directory"`
	OrphanScan OrphanScanConfig `mapstructure:"orphan_scan" yaml:"orphan_scan"`
}

// OrphanScanConfig configures the filesystem walk that finds files never
// pulled into the graph
type OrphanScanConfig struct {
	Active       bool     `mapstructure:"active" yaml:"active"`
	Dir          string   `mapstructure:"dir" yaml:"dir"`
	SkipPatterns []string `mapstructure:"skip_patterns" yaml:"skip_patterns"`
}

// Validate checks the orphan scan settings
func (c *OrphanScanConfig) Validate() error {
	if strings.TrimSpace(c.Dir) == "" {
		return fmt.Errorf("orphan_scan.dir is required when the orphan scan is active")
	}
	return nil
}

// SuspectedDependencyConfig configures the suspected dependency analyzer
type SuspectedDependencyConfig struct {
	Active         bool     `mapstructure:"active" yaml:"active"`
	Directory      string   `mapstructure:"directory" yaml:"directory"`
	FileExtensions []string `mapstructure:"file_extensions" yaml:"file_extensions"`
}

// Validate checks the suspected dependency settings
func (c *SuspectedDependencyConfig) Validate() error {
	if len(c.FileExtensions) == 0 {
		return fmt.Errorf("file_extensions must list at least one extension")
	}
	return nil
}

// AliasUsageConfig configures the alias usage tracker
type AliasUsageConfig struct {
	Active      bool   `mapstructure:"active" yaml:"active"`
	AliasPrefix string `mapstructure:"alias_prefix" yaml:"alias_prefix"`
}

// Validate checks the alias prefix
func (c *AliasUsageConfig) Validate() error {
	if !IsSupportedAliasPrefix(c.AliasPrefix) {
		return fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedAliasPrefix, c.AliasPrefix, strings.Join(SupportedAliasPrefixes, ", "))
	}
	return nil
}

// IsSupportedAliasPrefix reports whether prefix is one of SupportedAliasPrefixes
func IsSupportedAliasPrefix(prefix string) bool {
	for _, p := range SupportedAliasPrefixes {
		if p == prefix {
			return true
		}
	}
	return false
}

// AssetSizeConfig configures the asset size classifier
type AssetSizeConfig struct {
	Active bool `mapstructure:"active" yaml:"active"`
}

// BuildStatsConfig configures the cross-build statistics tracker
type BuildStatsConfig struct {
	Active     bool   `mapstructure:"active" yaml:"active"`
	Backend    string `mapstructure:"backend" yaml:"backend"` // file, memory, s3, redis or postgres
	OutputDir  string `mapstructure:"output_dir" yaml:"output_dir"`
	OutputFile string `mapstructure:"output_file" yaml:"output_file"`

	// EnvironmentVariable names the variable recorded as the build environment
	EnvironmentVariable string `mapstructure:"environment_variable" yaml:"environment_variable"`

	S3 S3Config `mapstructure:"s3" yaml:"s3,omitempty"`

	RedisURL string `mapstructure:"redis_url" yaml:"redis_url,omitempty"`
	RedisKey string `mapstructure:"redis_key" yaml:"redis_key,omitempty"`

	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn,omitempty"`
	ProjectKey  string `mapstructure:"project_key" yaml:"project_key,omitempty"`
}

// S3Config contains S3-compatible storage settings for build stats
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key,omitempty"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key,omitempty"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Region    string `mapstructure:"region" yaml:"region,omitempty"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix,omitempty"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl,omitempty"`
}

// Validate checks the build stats settings
func (c *BuildStatsConfig) Validate() error {
	validBackends := []string{"file", "memory", "s3", "redis", "postgres"}
	backend := c.Backend
	if backend == "" {
		backend = "file"
	}

	valid := false
	for _, b := range validBackends {
		if b == backend {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid build stats backend: %s (must be one of: %v)", c.Backend, validBackends)
	}

	if c.OutputFile == "" {
		return fmt.Errorf("output_file is required")
	}

	switch backend {
	case "s3":
		if c.S3.Endpoint == "" || c.S3.Bucket == "" {
			return fmt.Errorf("s3.endpoint and s3.bucket are required when using the s3 backend")
		}
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("redis_url is required when using the redis backend")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres_dsn is required when using the postgres backend")
		}
	}

	return nil
}

// EnvValidatorConfig configures the required environment variable check
type EnvValidatorConfig struct {
	Active   bool     `mapstructure:"active" yaml:"active"`
	Required []string `mapstructure:"required" yaml:"required"`
	EnvFiles []string `mapstructure:"env_files" yaml:"env_files"`
}

// Validate checks the env validator settings
func (c *EnvValidatorConfig) Validate() error {
	if len(c.Required) == 0 {
		return fmt.Errorf("required must list at least one environment variable")
	}
	return nil
}
