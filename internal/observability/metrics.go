package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the Prometheus metrics for one buildtrace process
type Metrics struct {
	registry *prometheus.Registry

	// Analyzer metrics
	findings         *prometheus.GaugeVec
	analyzerDuration *prometheus.HistogramVec
	analyzerErrors   *prometheus.CounterVec

	// Build stats metrics
	assetSizeKiB   prometheus.Gauge
	assetCount     prometheus.Gauge
	buildNumber    prometheus.Gauge
	sizeDeltaKiB   prometheus.Gauge
	buildsTotal    *prometheus.CounterVec
	buildElapsed   prometheus.Gauge
	lastBuildEpoch prometheus.Gauge
}

// NewMetrics creates the metrics on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := func(c prometheus.Collector) {
		registry.MustRegister(c)
	}

	m := &Metrics{
		registry: registry,

		findings: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "buildtrace_analyzer_findings",
				Help: "Number of findings reported by the last analyzer run",
			},
			[]string{"analyzer"},
		),
		analyzerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "buildtrace_analyzer_duration_seconds",
				Help:    "Analyzer run duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"analyzer"},
		),
		analyzerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buildtrace_analyzer_errors_total",
				Help: "Total number of analyzer runs that ended with an error",
			},
			[]string{"analyzer"},
		),

		assetSizeKiB: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "buildtrace_asset_size_kib",
				Help: "Total size of emitted assets in KiB",
			},
		),
		assetCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "buildtrace_assets",
				Help: "Number of emitted assets",
			},
		),
		buildNumber: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "buildtrace_build_number",
				Help: "Build number of the last persisted stats snapshot",
			},
		),
		sizeDeltaKiB: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "buildtrace_asset_size_delta_kib",
				Help: "Asset size change against the previous build in KiB",
			},
		),
		buildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buildtrace_builds_total",
				Help: "Total number of builds observed",
			},
			[]string{"status"},
		),
		buildElapsed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "buildtrace_build_elapsed_seconds",
				Help: "Wall time of the last build in seconds",
			},
		),
		lastBuildEpoch: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "buildtrace_last_build_timestamp_seconds",
				Help: "Unix time the last build finished",
			},
		),
	}

	factory(m.findings)
	factory(m.analyzerDuration)
	factory(m.analyzerErrors)
	factory(m.assetSizeKiB)
	factory(m.assetCount)
	factory(m.buildNumber)
	factory(m.sizeDeltaKiB)
	factory(m.buildsTotal)
	factory(m.buildElapsed)
	factory(m.lastBuildEpoch)
	factory(collectors.NewGoCollector())

	return m
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordAnalyzer records one analyzer run
func (m *Metrics) RecordAnalyzer(analyzer string, findings int, duration time.Duration, err error) {
	m.analyzerDuration.WithLabelValues(analyzer).Observe(duration.Seconds())
	if err != nil {
		m.analyzerErrors.WithLabelValues(analyzer).Inc()
		return
	}
	m.findings.WithLabelValues(analyzer).Set(float64(findings))
}

// RecordAssets records the emitted asset totals
func (m *Metrics) RecordAssets(count int, totalKiB float64) {
	m.assetCount.Set(float64(count))
	m.assetSizeKiB.Set(totalKiB)
}

// RecordBuild records a persisted stats snapshot
func (m *Metrics) RecordBuild(buildNumber uint64, elapsed time.Duration, deltaKiB float64, hasErrors bool) {
	status := "success"
	if hasErrors {
		status = "error"
	}
	m.buildsTotal.WithLabelValues(status).Inc()
	m.buildNumber.Set(float64(buildNumber))
	m.buildElapsed.Set(elapsed.Seconds())
	m.sizeDeltaKiB.Set(deltaKiB)
	m.lastBuildEpoch.SetToCurrentTime()
}

// WriteTextfile writes the registry in the node_exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
