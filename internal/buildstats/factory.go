package buildstats

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/buildtrace/internal/config"
)

// NewStore creates the snapshot store selected by cfg.Backend.
//
// Backend options:
// - "file": JSON file under the build context (default)
// - "memory": in-process, nothing survives the process
// - "s3": object in S3-compatible storage
// - "redis": string key in a Redis-compatible backend
// - "postgres": row in the buildtrace_stats table
//
// A relative output directory for the file backend is resolved against contextDir.
func NewStore(ctx context.Context, cfg config.BuildStatsConfig, contextDir string) (Store, error) {
	switch cfg.Backend {
	case "file", "":
		dir := cfg.OutputDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(contextDir, dir)
		}
		log.Debug().Str("dir", dir).Msg("Using file build stats store")
		return NewFileStore(dir, cfg.OutputFile), nil

	case "memory":
		log.Debug().Msg("Using in-memory build stats store")
		return NewMemoryStore(), nil

	case "s3":
		if cfg.S3.Endpoint == "" || cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("s3.endpoint and s3.bucket are required for s3 build stats backend")
		}
		return NewS3Store(cfg.S3, cfg.OutputFile)

	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis_url is required for redis build stats backend")
		}
		return NewRedisStore(ctx, cfg.RedisURL, cfg.RedisKey)

	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres_dsn is required for postgres build stats backend")
		}
		return NewPostgresStore(ctx, cfg.PostgresDSN, cfg.ProjectKey)

	default:
		return nil, fmt.Errorf("unknown build stats backend: %s (valid options: file, memory, s3, redis, postgres)", cfg.Backend)
	}
}
