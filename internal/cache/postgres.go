package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createCacheTable = `CREATE TABLE IF NOT EXISTS analysis_cache (
	key       TEXT PRIMARY KEY,
	kind      TEXT NOT NULL,
	payload   JSONB NOT NULL,
	stored_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps entries in the analysis_cache table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, pings and makes sure the table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, createCacheTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create analysis_cache table: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var (
		kind     string
		payload  []byte
		storedAt time.Time
	)
	err := p.pool.QueryRow(ctx,
		`SELECT kind, payload, stored_at FROM analysis_cache WHERE key = $1`, key,
	).Scan(&kind, &payload, &storedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("query cache entry: %w", err)
	}

	entry := Entry{Key: key, Kind: kind, StoredAt: storedAt}
	if err := json.Unmarshal(payload, &entry.Payload); err != nil {
		return Entry{}, false, fmt.Errorf("decode cache payload: %w", err)
	}
	return entry, true, nil
}

func (p *PostgresStore) Set(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("encode cache payload: %w", err)
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO analysis_cache (key, kind, payload, stored_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key) DO UPDATE SET kind = $2, payload = $3, stored_at = $4`,
		entry.Key, entry.Kind, payload, entry.StoredAt,
	)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

func (p *PostgresStore) Clear(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM analysis_cache`); err != nil {
		return fmt.Errorf("clear analysis_cache: %w", err)
	}
	return nil
}

func (p *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM analysis_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count analysis_cache: %w", err)
	}
	return n, nil
}

func (p *PostgresStore) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}
