package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	cliconfig "github.com/fluxbase-eu/buildtrace/cli/config"
	"github.com/fluxbase-eu/buildtrace/internal/buildstats"
	"github.com/fluxbase-eu/buildtrace/internal/config"
	"github.com/fluxbase-eu/buildtrace/internal/observability"
	"github.com/fluxbase-eu/buildtrace/internal/plugin"
	"github.com/fluxbase-eu/buildtrace/internal/report"
)

// session owns the plugin of one command run and the resources behind it
type session struct {
	plugin  *plugin.Plugin
	store   buildstats.Store
	tracer  *observability.Tracer
	workDir string
}

// newSession wires the plugin with its stats store, metrics and tracer. A
// store that cannot be opened disables the stats tracker only.
func newSession(ctx context.Context, c *config.Config, sink report.Sink) (*session, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	s := &session{workDir: workDir}

	if c.BuildStats.Active {
		c = withKeychainCredentials(c)
		s.store, err = buildstats.NewStore(ctx, c.BuildStats, workDir)
		if err != nil {
			log.Error().Err(err).Str("backend", c.BuildStats.Backend).Msg("Failed to open build stats store")
			report.Errorf(sink, "%s: %v", plugin.NameBuildStats, err)

			disabled := *c
			disabled.BuildStats.Active = false
			c = &disabled
		}
	}

	s.tracer, err = observability.NewTracer(ctx, c.Tracing)
	if err != nil {
		s.closeStore()
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	s.plugin = plugin.New(c, sink, s.store,
		plugin.WithMetrics(observability.NewMetrics()),
		plugin.WithTracer(s.tracer),
		plugin.WithContextDir(workDir),
	)

	log.Debug().
		Str("session_id", s.plugin.SessionID()).
		Strs("classifiers", s.plugin.Classifiers()).
		Msg("Session ready")

	return s, nil
}

// Close flushes spans and releases the stats store
func (s *session) Close(ctx context.Context) {
	if err := s.tracer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to shut down tracer")
	}
	s.closeStore()
}

func (s *session) closeStore() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close build stats store")
	}
}

// openStore opens the configured stats store whether or not the tracker is
// active
func openStore(ctx context.Context, c *config.Config) (buildstats.Store, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	if err := c.BuildStats.Validate(); err != nil {
		return nil, fmt.Errorf("invalid build_stats configuration: %w", err)
	}
	c = withKeychainCredentials(c)
	return buildstats.NewStore(ctx, c.BuildStats, workDir)
}

// withKeychainCredentials returns c with the stats store secrets missing from
// the config filled from the system keychain. c itself is not modified.
func withKeychainCredentials(c *config.Config) *config.Config {
	if !cliconfig.NeedsCredentials(c.BuildStats) {
		return c
	}

	resolved := *c
	if err := cliconfig.ResolveCredentials(cliconfig.NewKeychainStore(), &resolved.BuildStats); err != nil {
		log.Debug().Err(err).Msg("Keychain credentials unavailable")
		return c
	}
	return &resolved
}
