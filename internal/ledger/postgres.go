package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStoreConfig controls the Postgres connection pool used for the
// shared download history.
type PostgresStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresStore persists ledger state in Postgres so multiple hosts can share
// download history. Schema:
//
//	CREATE TABLE fetch_tried_urls (
//	    url TEXT PRIMARY KEY,
//	    created_at TIMESTAMPTZ DEFAULT NOW()
//	);
//	CREATE TABLE fetch_assets (
//	    fingerprint TEXT PRIMARY KEY,
//	    filename TEXT NOT NULL,
//	    created_at TIMESTAMPTZ DEFAULT NOW()
//	);
type PostgresStore struct {
	pool pgxPool
}

// NewPostgresStore creates a Postgres-backed Store using the provided config.
func NewPostgresStore(ctx context.Context, cfg PostgresStoreConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("ledger.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostgresStoreWithPool(pool pgxPool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Load reads the full history. An empty database is an empty state, never
// ErrNotFound: a shared ledger always exists once the schema does.
func (s *PostgresStore) Load(ctx context.Context) (State, error) {
	state := State{Assets: make(map[string]string)}

	rows, err := s.pool.Query(ctx, `SELECT url FROM fetch_tried_urls`)
	if err != nil {
		return State{}, fmt.Errorf("query tried urls: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return State{}, fmt.Errorf("scan tried url: %w", err)
		}
		state.TriedURLs = append(state.TriedURLs, u)
	}
	if err := rows.Err(); err != nil {
		return State{}, fmt.Errorf("iterate tried urls: %w", err)
	}

	assetRows, err := s.pool.Query(ctx, `SELECT fingerprint, filename FROM fetch_assets`)
	if err != nil {
		return State{}, fmt.Errorf("query assets: %w", err)
	}
	defer assetRows.Close()
	for assetRows.Next() {
		var fp, name string
		if err := assetRows.Scan(&fp, &name); err != nil {
			return State{}, fmt.Errorf("scan asset: %w", err)
		}
		state.Assets[fp] = name
	}
	if err := assetRows.Err(); err != nil {
		return State{}, fmt.Errorf("iterate assets: %w", err)
	}

	return state, nil
}

// Save upserts the current state. Existing rows are left untouched so
// concurrent sessions on other hosts cannot lose entries.
func (s *PostgresStore) Save(ctx context.Context, state State) error {
	for _, u := range state.TriedURLs {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO fetch_tried_urls (url) VALUES ($1) ON CONFLICT (url) DO NOTHING`, u,
		); err != nil {
			return fmt.Errorf("insert tried url: %w", err)
		}
	}
	for fp, name := range state.Assets {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO fetch_assets (fingerprint, filename) VALUES ($1, $2) ON CONFLICT (fingerprint) DO NOTHING`,
			fp, name,
		); err != nil {
			return fmt.Errorf("insert asset: %w", err)
		}
	}
	return nil
}
