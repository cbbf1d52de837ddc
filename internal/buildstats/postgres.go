package buildstats

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// StatsTable is the table holding one snapshot row per project
const StatsTable = "buildtrace_stats"

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS ` + StatsTable + ` (
	project_key TEXT PRIMARY KEY,
	snapshot JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	selectSQL = `SELECT snapshot FROM ` + StatsTable + ` WHERE project_key = $1`
	upsertSQL = `INSERT INTO ` + StatsTable + ` (project_key, snapshot, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (project_key) DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = NOW()`
	deleteSQL = `DELETE FROM ` + StatsTable + ` WHERE project_key = $1`
)

// querier is the subset of pgxpool.Pool the store uses
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps one snapshot row per project key
type PostgresStore struct {
	db         querier
	pool       *pgxpool.Pool
	projectKey string
}

// NewPostgresStore connects to PostgreSQL and creates the stats table if needed
func NewPostgresStore(ctx context.Context, dsn, projectKey string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := &PostgresStore{db: pool, pool: pool, projectKey: projectKey}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Debug().Str("project_key", projectKey).Msg("PostgreSQL build stats store initialized")
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create %s table: %w", StatsTable, err)
	}
	return nil
}

// Read implements Store
func (s *PostgresStore) Read(ctx context.Context) (*Snapshot, error) {
	var data []byte
	if err := s.db.QueryRow(ctx, selectSQL, s.projectKey).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Location())
		}
		return nil, fmt.Errorf("failed to read build stats from postgres: %w", err)
	}
	return Decode(data)
}

// Write implements Store
func (s *PostgresStore) Write(ctx context.Context, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, upsertSQL, s.projectKey, data); err != nil {
		return fmt.Errorf("failed to write build stats to postgres: %w", err)
	}
	return nil
}

// Delete implements Store
func (s *PostgresStore) Delete(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, deleteSQL, s.projectKey); err != nil {
		return fmt.Errorf("failed to delete build stats from postgres: %w", err)
	}
	return nil
}

// Location implements Store
func (s *PostgresStore) Location() string {
	return "postgres://" + StatsTable + "/" + s.projectKey
}

// Close implements Store
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
