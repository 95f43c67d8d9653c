package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/concierge/pkg/harvester"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scrape_cache (
	id         TEXT PRIMARY KEY,
	url        TEXT NOT NULL UNIQUE,
	results    TEXT NOT NULL,
	scraped_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scrape_cache_expires_at ON scrape_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetCachedScrape(ctx context.Context, url string) (*CachedScrape, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, results, scraped_at, expires_at FROM scrape_cache
		 WHERE url = ? AND expires_at > ?`,
		url, time.Now().UTC(),
	)

	var cs CachedScrape
	var resultsJSON string
	err := row.Scan(&cs.ID, &cs.URL, &resultsJSON, &cs.ScrapedAt, &cs.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached scrape")
	}
	if err := json.Unmarshal([]byte(resultsJSON), &cs.Results); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached results")
	}
	return &cs, nil
}

func (s *SQLiteStore) SetCachedScrape(ctx context.Context, url string, results []harvester.Result, ttl time.Duration) error {
	now := time.Now().UTC()

	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal results")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scrape_cache (id, url, results, scraped_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
			results = excluded.results,
			scraped_at = excluded.scraped_at,
			expires_at = excluded.expires_at`,
		uuid.New().String(), url, string(resultsJSON), now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached scrape")
}

func (s *SQLiteStore) DeleteExpiredScrapes(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scrape_cache WHERE expires_at <= ?`,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired scrapes")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}
