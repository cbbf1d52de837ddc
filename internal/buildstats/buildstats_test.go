package buildstats

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/buildtrace/internal/config"
	"github.com/fluxbase-eu/buildtrace/internal/graph"
	"github.com/fluxbase-eu/buildtrace/internal/report"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		TotalAssetSizeKiB: 120.5,
		BuildNumber:       3,
		ElapsedSeconds:    1.25,
		ContentHash:       "abc123",
		HasErrors:         false,
		HasWarnings:       true,
		Environment:       "staging",
	}
}

func TestCollect(t *testing.T) {
	t.Run("sums and rounds asset sizes", func(t *testing.T) {
		t.Setenv("BUILDTRACE_TEST_ENV", "")
		snap := Collect(BuildInfo{
			Assets: []graph.AssetRecord{
				{Name: "main.js", SizeBytes: 1024},
				{Name: "main.css", SizeBytes: 1000},
			},
			Elapsed:     1234 * time.Millisecond,
			Hash:        "host-hash",
			HasWarnings: true,
		}, "BUILDTRACE_TEST_ENV")

		assert.Equal(t, 1.98, snap.TotalAssetSizeKiB)
		assert.Equal(t, 1.234, snap.ElapsedSeconds)
		assert.Equal(t, "host-hash", snap.ContentHash)
		assert.True(t, snap.HasWarnings)
		assert.False(t, snap.HasErrors)
		assert.Equal(t, DefaultEnvironment, snap.Environment)
		assert.Equal(t, uint64(0), snap.BuildNumber)
	})

	t.Run("environment from variable", func(t *testing.T) {
		t.Setenv("BUILDTRACE_TEST_ENV", "development")
		snap := Collect(BuildInfo{}, "BUILDTRACE_TEST_ENV")
		assert.Equal(t, "development", snap.Environment)
	})

	t.Run("content hash fallback ignores order", func(t *testing.T) {
		a := []graph.AssetRecord{{Name: "a.js", SizeBytes: 1}, {Name: "b.css", SizeBytes: 2}}
		b := []graph.AssetRecord{{Name: "b.css", SizeBytes: 2}, {Name: "a.js", SizeBytes: 1}}
		c := []graph.AssetRecord{{Name: "a.js", SizeBytes: 3}, {Name: "b.css", SizeBytes: 2}}

		snap := Collect(BuildInfo{Assets: a}, "")
		assert.Len(t, snap.ContentHash, 16)
		assert.Equal(t, snap.ContentHash, ContentHash(b))
		assert.NotEqual(t, snap.ContentHash, ContentHash(c))
	})
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "build-stats"), "stats.json")
		want := sampleSnapshot()

		require.NoError(t, store.Write(ctx, want))
		got, err := store.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("pretty printed with field names", func(t *testing.T) {
		store := NewFileStore(t.TempDir(), "stats.json")
		require.NoError(t, store.Write(ctx, sampleSnapshot()))

		data, err := os.ReadFile(store.Location())
		require.NoError(t, err)
		assert.Contains(t, string(data), "\n  \"totalAssetSizeKiB\": 120.5,")

		var fields map[string]any
		require.NoError(t, json.Unmarshal(data, &fields))
		for _, key := range []string{"totalAssetSizeKiB", "buildNumber", "elapsedSeconds", "contentHash", "hasErrors", "hasWarnings", "environment"} {
			assert.Contains(t, fields, key)
		}
	})

	t.Run("missing file is ErrNotFound", func(t *testing.T) {
		store := NewFileStore(t.TempDir(), "stats.json")
		_, err := store.Read(ctx)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("corrupt file fails to decode", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "stats.json"), []byte("{not json"), 0600))

		_, err := NewFileStore(dir, "stats.json").Read(ctx)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrNotFound))
	})

	t.Run("negative size is invalid", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "stats.json"), []byte(`{"totalAssetSizeKiB": -1, "buildNumber": 2}`), 0600))

		_, err := NewFileStore(dir, "stats.json").Read(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid build stats")
	})

	t.Run("delete", func(t *testing.T) {
		store := NewFileStore(t.TempDir(), "stats.json")
		require.NoError(t, store.Delete(ctx))
		require.NoError(t, store.Write(ctx, sampleSnapshot()))
		require.NoError(t, store.Delete(ctx))

		_, err := store.Read(ctx)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name: "valid",
			doc:  `{"totalAssetSizeKiB": 19.58, "buildNumber": 4, "environment": "production"}`,
		},
		{name: "null", doc: `null`, wantErr: "empty document"},
		{name: "empty object", doc: `{}`, wantErr: "missing totalAssetSizeKiB"},
		{name: "missing build number", doc: `{"totalAssetSizeKiB": 1}`, wantErr: "missing buildNumber"},
		{
			name:    "legacy plugin format",
			doc:     `{"assetsSize": 20050, "buildNumber": 3, "time": 1.2, "hash": "abc"}`,
			wantErr: "missing totalAssetSizeKiB",
		},
		{
			name:    "unknown field",
			doc:     `{"totalAssetSizeKiB": 1, "buildNumber": 0, "assetsSizeFormat": "1 KB"}`,
			wantErr: "unknown field",
		},
		{name: "array", doc: `[]`, wantErr: "failed to decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Decode([]byte(tt.doc))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint64(4), snap.BuildNumber)
			assert.Equal(t, 19.58, snap.TotalAssetSizeKiB)
		})
	}
}

func TestTracker_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("cold start writes build number zero", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "missing", "dir"), "stats.json")
		rec := report.NewRecorder()

		current := sampleSnapshot()
		result, err := NewTracker(store, rec).Record(ctx, current)
		require.NoError(t, err)

		assert.True(t, result.ColdStart())
		assert.Equal(t, uint64(0), result.Current.BuildNumber)
		assert.Equal(t, uint64(3), current.BuildNumber, "input must not be mutated")
		assert.True(t, rec.HasMessage(report.SeverityInfo, "Could not read build stats"))

		persisted, err := store.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), persisted.BuildNumber)
	})

	t.Run("growth warns and increments", func(t *testing.T) {
		store := NewMemoryStore()
		rec := report.NewRecorder()
		tracker := NewTracker(store, rec)

		first := &Snapshot{TotalAssetSizeKiB: 100, Environment: "production"}
		_, err := tracker.Record(ctx, first)
		require.NoError(t, err)

		second := &Snapshot{TotalAssetSizeKiB: 112.25, Environment: "production"}
		result, err := tracker.Record(ctx, second)
		require.NoError(t, err)

		assert.False(t, result.ColdStart())
		assert.True(t, result.Grew())
		assert.Equal(t, 12.25, result.DeltaKiB)
		assert.Equal(t, uint64(1), result.Current.BuildNumber)
		assert.True(t, rec.HasMessage(report.SeverityWarning, "increased about: 12.25 KB"))
	})

	t.Run("equal or smaller size is normal", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Write(ctx, &Snapshot{TotalAssetSizeKiB: 50, BuildNumber: 9}))
		rec := report.NewRecorder()

		result, err := NewTracker(store, rec).Record(ctx, &Snapshot{TotalAssetSizeKiB: 50, HasErrors: true})
		require.NoError(t, err)

		assert.False(t, result.Grew())
		assert.True(t, rec.HasMessage(report.SeveritySuccess, "Assets size is normal"))

		persisted, err := store.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), persisted.BuildNumber)
		assert.True(t, persisted.HasErrors)
	})

	t.Run("corrupt snapshot re-baselines", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "stats.json"), []byte("garbage"), 0600))
		store := NewFileStore(dir, "stats.json")

		result, err := NewTracker(store, report.Discard).Record(ctx, sampleSnapshot())
		require.NoError(t, err)
		assert.True(t, result.ColdStart())

		persisted, err := store.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), persisted.BuildNumber)
	})

	t.Run("foreign snapshot format re-baselines", func(t *testing.T) {
		dir := t.TempDir()
		legacy := `{"assetsSize": 20050, "buildNumber": 7, "time": 1.2, "hash": "abc"}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "stats.json"), []byte(legacy), 0600))
		store := NewFileStore(dir, "stats.json")
		rec := report.NewRecorder()

		result, err := NewTracker(store, rec).Record(ctx, sampleSnapshot())
		require.NoError(t, err)
		assert.True(t, result.ColdStart())
		assert.False(t, rec.HasMessage(report.SeverityWarning, "increased"))
		assert.Equal(t, uint64(0), result.Current.BuildNumber)
	})

	t.Run("write failure is returned", func(t *testing.T) {
		store := NewMemoryStore()
		store.WriteErr = errors.New("disk full")

		_, err := NewTracker(store, report.Discard).Record(ctx, sampleSnapshot())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})

	t.Run("unwritable directory fails", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "blocker")
		require.NoError(t, os.WriteFile(blocker, nil, 0600))
		store := NewFileStore(filepath.Join(blocker, "stats"), "stats.json")

		_, err := NewTracker(store, report.Discard).Record(ctx, sampleSnapshot())
		require.Error(t, err)
	})
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		modify   func(c *config.BuildStatsConfig)
		wantType Store
		wantErr  string
	}{
		{
			name:     "file default",
			modify:   func(c *config.BuildStatsConfig) { c.Backend = "" },
			wantType: &FileStore{},
		},
		{
			name:     "memory",
			modify:   func(c *config.BuildStatsConfig) { c.Backend = "memory" },
			wantType: &MemoryStore{},
		},
		{
			name: "s3",
			modify: func(c *config.BuildStatsConfig) {
				c.Backend = "s3"
				c.S3 = config.S3Config{Endpoint: "localhost:9000", Bucket: "stats", Prefix: "web"}
			},
			wantType: &S3Store{},
		},
		{
			name:    "s3 without bucket",
			modify:  func(c *config.BuildStatsConfig) { c.Backend = "s3" },
			wantErr: "s3.endpoint and s3.bucket are required",
		},
		{
			name:    "redis without url",
			modify:  func(c *config.BuildStatsConfig) { c.Backend = "redis" },
			wantErr: "redis_url is required",
		},
		{
			name: "redis with bad url",
			modify: func(c *config.BuildStatsConfig) {
				c.Backend = "redis"
				c.RedisURL = "http://not-redis"
			},
			wantErr: "invalid redis url",
		},
		{
			name:    "postgres without dsn",
			modify:  func(c *config.BuildStatsConfig) { c.Backend = "postgres" },
			wantErr: "postgres_dsn is required",
		},
		{
			name:    "unknown backend",
			modify:  func(c *config.BuildStatsConfig) { c.Backend = "gcs" },
			wantErr: "unknown build stats backend: gcs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default().BuildStats
			tt.modify(&cfg)

			store, err := NewStore(ctx, cfg, "/project")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, store)
			assert.NoError(t, store.Close())
		})
	}

	t.Run("file location under context", func(t *testing.T) {
		store, err := NewStore(ctx, config.Default().BuildStats, "/project")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/project", "build-stats", "stats.json"), store.Location())
	})

	t.Run("s3 location", func(t *testing.T) {
		store, err := NewS3Store(config.S3Config{Endpoint: "localhost:9000", Bucket: "stats", Prefix: "web/"}, "stats.json")
		require.NoError(t, err)
		assert.Equal(t, "s3://stats/web/stats.json", store.Location())
	})
}

type fakeRow struct {
	data []byte
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.data
	return nil
}

type fakeQuerier struct {
	rows  map[string][]byte
	execs []string
	err   error
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.execs = append(q.execs, sql)
	if q.err != nil {
		return pgconn.CommandTag{}, q.err
	}
	switch sql {
	case upsertSQL:
		q.rows[args[0].(string)] = args[1].([]byte)
	case deleteSQL:
		delete(q.rows, args[0].(string))
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (q *fakeQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	data, ok := q.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{data: data}
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	db := &fakeQuerier{rows: map[string][]byte{}}
	store := &PostgresStore{db: db, projectKey: "web"}

	require.NoError(t, store.migrate(ctx))
	assert.Equal(t, createTableSQL, db.execs[0])

	_, err := store.Read(ctx)
	assert.True(t, errors.Is(err, ErrNotFound))

	want := sampleSnapshot()
	require.NoError(t, store.Write(ctx, want))
	got, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, store.Delete(ctx))
	_, err = store.Read(ctx)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "postgres://buildtrace_stats/web", store.Location())

	db.err = errors.New("connection reset")
	assert.Error(t, store.Write(ctx, want))
	assert.NoError(t, store.Close())
}
