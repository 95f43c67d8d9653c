package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/concierge/pkg/harvester"
)

// Pool is the subset of pgxpool.Pool the store uses, narrow enough for
// pgxmock to stand in during tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot cache operations.
var preparedStatements = map[string]string{
	"get_cached_scrape": `SELECT id, url, results, scraped_at, expires_at FROM scrape_cache WHERE url = $1 AND expires_at > now()`,
	"set_cached_scrape": `INSERT INTO scrape_cache (id, url, results, scraped_at, expires_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (url) DO UPDATE SET results = EXCLUDED.results, scraped_at = EXCLUDED.scraped_at, expires_at = EXCLUDED.expires_at`,
	"delete_expired_scrapes": `DELETE FROM scrape_cache WHERE expires_at <= now()`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare the hot statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scrape_cache (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	url        TEXT NOT NULL UNIQUE,
	results    JSONB NOT NULL,
	scraped_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scrape_cache_expires_at ON scrape_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_scrape_cache_url_expires ON scrape_cache(url, expires_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) GetCachedScrape(ctx context.Context, url string) (*CachedScrape, error) {
	var cs CachedScrape
	var resultsJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, url, results, scraped_at, expires_at FROM scrape_cache WHERE url = $1 AND expires_at > now()`,
		url,
	).Scan(&cs.ID, &cs.URL, &resultsJSON, &cs.ScrapedAt, &cs.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached scrape")
	}
	if err := json.Unmarshal(resultsJSON, &cs.Results); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached results")
	}
	return &cs, nil
}

func (s *PostgresStore) SetCachedScrape(ctx context.Context, url string, results []harvester.Result, ttl time.Duration) error {
	now := time.Now().UTC()

	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal results")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO scrape_cache (id, url, results, scraped_at, expires_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (url) DO UPDATE SET results = EXCLUDED.results, scraped_at = EXCLUDED.scraped_at, expires_at = EXCLUDED.expires_at`,
		uuid.New().String(), url, resultsJSON, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached scrape")
}

func (s *PostgresStore) DeleteExpiredScrapes(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM scrape_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired scrapes")
	}
	return int(tag.RowsAffected()), nil
}
