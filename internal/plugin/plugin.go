// Package plugin runs the analyzers at the host's lifecycle points.
//
// The host raises Initialize before a build, ModulesFinalized once the module
// graph is complete and BuildDone once the assets are emitted. ESBuild adapts
// those signals to an esbuild plugin.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fluxbase-eu/buildtrace/internal/assets"
	"github.com/fluxbase-eu/buildtrace/internal/buildstats"
	"github.com/fluxbase-eu/buildtrace/internal/classify"
	"github.com/fluxbase-eu/buildtrace/internal/config"
	"github.com/fluxbase-eu/buildtrace/internal/envcheck"
	"github.com/fluxbase-eu/buildtrace/internal/graph"
	"github.com/fluxbase-eu/buildtrace/internal/observability"
	"github.com/fluxbase-eu/buildtrace/internal/report"
)

// Analyzer names of the build-done and initialize steps
const (
	NameAssetSize    = "asset_size"
	NameBuildStats   = "build_stats"
	NameEnvValidator = "env_validator"
)

// BuildResult is what the host reports at build done
type BuildResult struct {
	Assets      []graph.AssetRecord
	Hash        string
	HasErrors   bool
	HasWarnings bool

	// Elapsed overrides the time measured since Initialize
	Elapsed time.Duration
}

// Option configures a Plugin
type Option func(*Plugin)

// WithMetrics records analyzer metrics
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Plugin) { p.metrics = m }
}

// WithTracer wraps every callback and analyzer in a span
func WithTracer(t *observability.Tracer) Option {
	return func(p *Plugin) { p.tracer = t }
}

// WithContextDir sets the directory env files are read from
func WithContextDir(dir string) Option {
	return func(p *Plugin) { p.contextDir = dir }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(p *Plugin) { p.now = now }
}

// Plugin holds the analyzers of one build session
type Plugin struct {
	cfg         *config.Config
	sink        report.Sink
	store       buildstats.Store
	classifiers []classify.Classifier
	metrics     *observability.Metrics
	tracer      *observability.Tracer
	contextDir  string
	now         func() time.Time

	assetSize  bool
	buildStats bool
	envCheck   bool

	mu        sync.Mutex
	startedAt time.Time
	sessionID string
}

// New creates a plugin. Analyzer configuration errors are reported to sink
// and disable that analyzer; they never fail construction. store may be nil
// when build stats are inactive.
func New(cfg *config.Config, sink report.Sink, store buildstats.Store, opts ...Option) *Plugin {
	if cfg == nil {
		cfg = config.Default()
	}
	if sink == nil {
		sink = report.Discard
	}

	p := &Plugin{
		cfg:   cfg,
		sink:  sink,
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.tracer == nil {
		p.tracer, _ = observability.NewTracer(context.Background(), observability.TracerConfig{})
	}
	if p.contextDir == "" {
		p.contextDir, _ = os.Getwd()
	}

	p.classifiers = p.buildClassifiers()

	p.assetSize = cfg.AssetSize.Active
	if cfg.BuildStats.Active {
		switch {
		case store == nil:
			p.configError(NameBuildStats, errors.New("no snapshot store configured"))
		default:
			p.buildStats = p.enable(NameBuildStats, cfg.BuildStats.Validate())
		}
	}
	if cfg.EnvValidator.Active {
		p.envCheck = p.enable(NameEnvValidator, cfg.EnvValidator.Validate())
	}

	return p
}

// buildClassifiers returns the active classifiers in reporting order
func (p *Plugin) buildClassifiers() []classify.Classifier {
	cfg := p.cfg
	var out []classify.Classifier

	if cfg.LargeModule.Active && p.enable(classify.NameLargeModule, cfg.LargeModule.Validate()) {
		out = append(out, classify.NewLargeModule(cfg.LargeModule))
	}
	if cfg.UnusedModule.Active {
		out = append(out, classify.NewUnusedModule(cfg.UnusedModule))
	}
	if cfg.UnusedModule.OrphanScan.Active && p.enable(classify.NameOrphanScan, cfg.UnusedModule.OrphanScan.Validate()) {
		out = append(out, classify.NewOrphanScan(cfg.UnusedModule.OrphanScan))
	}
	if cfg.SuspectedDependency.Active && p.enable(classify.NameSuspectedDependency, cfg.SuspectedDependency.Validate()) {
		out = append(out, classify.NewSuspectedDependency(cfg.SuspectedDependency))
	}
	if cfg.AliasUsage.Active && p.enable(classify.NameAliasUsage, cfg.AliasUsage.Validate()) {
		out = append(out, classify.NewAliasTracker(cfg.AliasUsage))
	}
	return out
}

// enable reports err as a configuration error and returns whether the
// analyzer stays enabled
func (p *Plugin) enable(analyzer string, err error) bool {
	if err != nil {
		p.configError(analyzer, err)
		return false
	}
	return true
}

func (p *Plugin) configError(analyzer string, err error) {
	log.Error().Err(err).Str("analyzer", analyzer).Msg("Invalid analyzer configuration, analyzer disabled")
	report.Errorf(p.sink, "%s: invalid configuration, analyzer disabled: %v", analyzer, err)
}

// Classifiers returns the names of the enabled classifiers in run order
func (p *Plugin) Classifiers() []string {
	names := make([]string, 0, len(p.classifiers))
	for _, c := range p.classifiers {
		names = append(names, c.Name())
	}
	return names
}

// SessionID returns the current session ID, starting a session if needed
func (p *Plugin) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessionID == "" {
		p.sessionID = uuid.NewString()
	}
	return p.sessionID
}

func (p *Plugin) logger() zerolog.Logger {
	return log.With().Str("session_id", p.SessionID()).Logger()
}

// Initialize starts a build session and runs the env validator
func (p *Plugin) Initialize(ctx context.Context) error {
	p.mu.Lock()
	p.sessionID = uuid.NewString()
	p.startedAt = p.now()
	p.mu.Unlock()

	ctx, span := p.tracer.StartLifecycleSpan(ctx, "initialize", p.SessionID())
	logger := p.logger()
	logger.Debug().Msg("Build session started")

	if !p.envCheck {
		observability.EndSpan(span, nil)
		return nil
	}

	err := p.runStep(ctx, NameEnvValidator, func(context.Context) (int, error) {
		result, err := envcheck.Check(p.contextDir, p.cfg.EnvValidator)
		if err != nil {
			return 0, err
		}
		envcheck.Report(p.sink, result)
		return len(result.Invalid), nil
	})
	if err != nil {
		report.Errorf(p.sink, "%s: %v", NameEnvValidator, err)
	}
	observability.EndSpan(span, err)
	return err
}

// ModulesFinalized runs every enabled classifier over snap. A failing
// classifier is reported and the others still run; the failures are returned
// joined.
func (p *Plugin) ModulesFinalized(ctx context.Context, snap *graph.Snapshot) error {
	ctx, span := p.tracer.StartLifecycleSpan(ctx, "modules_finalized", p.SessionID())
	logger := p.logger()
	logger.Debug().Int("modules", len(snap.Modules)).Msg("Modules finalized")

	var errs []error
	for _, c := range p.classifiers {
		err := p.runStep(ctx, c.Name(), func(context.Context) (int, error) {
			findings, err := c.Classify(snap)
			if err != nil {
				return 0, err
			}
			c.Report(p.sink, snap, findings)
			return len(findings), nil
		})
		if err != nil {
			logger.Error().Err(err).Str("analyzer", c.Name()).Msg("Analyzer failed")
			report.Errorf(p.sink, "%s: %v", c.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
		}
	}

	err := errors.Join(errs...)
	observability.EndSpan(span, err)
	return err
}

// BuildDone runs the asset classifier and the stats tracker. A stats write
// failure is returned; the asset report stands. A failed build without
// output leaves the stored snapshot untouched.
func (p *Plugin) BuildDone(ctx context.Context, result BuildResult) error {
	ctx, span := p.tracer.StartLifecycleSpan(ctx, "build_done", p.SessionID())
	logger := p.logger()

	if result.HasErrors && len(result.Assets) == 0 {
		logger.Warn().Msg("Build failed without output, skipping build done analyzers")
		if p.assetSize || p.buildStats {
			report.Warnf(p.sink, "Build failed without output, build stats not recorded")
		}
		observability.EndSpan(span, nil)
		return nil
	}

	elapsed := result.Elapsed
	if elapsed == 0 {
		p.mu.Lock()
		if !p.startedAt.IsZero() {
			elapsed = p.now().Sub(p.startedAt)
		}
		p.mu.Unlock()
	}

	current := buildstats.Collect(buildstats.BuildInfo{
		Assets:      result.Assets,
		Elapsed:     elapsed,
		Hash:        result.Hash,
		HasErrors:   result.HasErrors,
		HasWarnings: result.HasWarnings,
	}, p.cfg.BuildStats.EnvironmentVariable)

	if p.metrics != nil {
		p.metrics.RecordAssets(len(result.Assets), current.TotalAssetSizeKiB)
	}

	if p.assetSize {
		_ = p.runStep(ctx, NameAssetSize, func(context.Context) (int, error) {
			return len(assets.Report(p.sink, result.Assets)), nil
		})
	}

	var err error
	if p.buildStats {
		err = p.runStep(ctx, NameBuildStats, func(ctx context.Context) (int, error) {
			res, err := buildstats.NewTracker(p.store, p.sink).Record(ctx, current)
			if err != nil {
				return 0, err
			}
			if p.metrics != nil {
				p.metrics.RecordBuild(res.Current.BuildNumber, elapsed, res.DeltaKiB, res.Current.HasErrors)
			}
			observability.SetSpanAttributes(ctx, attribute.Int64("buildtrace.build_number", int64(res.Current.BuildNumber)))
			if res.Grew() {
				return 1, nil
			}
			return 0, nil
		})
		if err != nil {
			logger.Error().Err(err).Msg("Failed to persist build stats")
			report.Errorf(p.sink, "%s: %v", NameBuildStats, err)
		}
	}

	if p.metrics != nil && p.cfg.Metrics.Textfile != "" {
		if werr := p.metrics.WriteTextfile(p.cfg.Metrics.Textfile); werr != nil {
			logger.Warn().Err(werr).Str("path", p.cfg.Metrics.Textfile).Msg("Failed to write metrics textfile")
		}
	}

	logger.Debug().Dur("elapsed", elapsed).Int("assets", len(result.Assets)).Msg("Build done")
	observability.EndSpan(span, err)
	return err
}

// Analyze raises ModulesFinalized then BuildDone for a snapshot produced
// outside esbuild
func (p *Plugin) Analyze(ctx context.Context, snap *graph.Snapshot) error {
	finalizeErr := p.ModulesFinalized(ctx, snap)
	doneErr := p.BuildDone(ctx, BuildResult{
		Assets:      snap.Assets,
		Hash:        snap.Hash,
		HasErrors:   snap.HasErrors,
		HasWarnings: snap.HasWarnings,
	})
	return errors.Join(finalizeErr, doneErr)
}

// runStep runs fn inside an analyzer span and records its metrics. fn returns
// the number of findings.
func (p *Plugin) runStep(ctx context.Context, name string, fn func(context.Context) (int, error)) error {
	ctx, span := p.tracer.StartAnalyzerSpan(ctx, name)
	start := time.Now()

	findings, err := fn(ctx)

	if p.metrics != nil {
		p.metrics.RecordAnalyzer(name, findings, time.Since(start), err)
	}
	span.SetAttributes(attribute.Int("buildtrace.findings", findings))
	observability.EndSpan(span, err)
	return err
}
