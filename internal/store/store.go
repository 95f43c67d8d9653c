// Package store persists scraped content between chat requests.
package store

import (
	"context"
	"time"

	"github.com/sells-group/concierge/pkg/harvester"
)

// CachedScrape is one cache entry: the terminal results of a harvester job.
type CachedScrape struct {
	ID        string
	URL       string
	Results   []harvester.Result
	ScrapedAt time.Time
	ExpiresAt time.Time
}

// Store defines the persistence interface for the scrape cache.
type Store interface {
	// GetCachedScrape returns the unexpired entry for url, or nil on a miss.
	GetCachedScrape(ctx context.Context, url string) (*CachedScrape, error)
	// SetCachedScrape stores results for url, replacing any previous entry.
	SetCachedScrape(ctx context.Context, url string, results []harvester.Result, ttl time.Duration) error
	// DeleteExpiredScrapes removes expired entries and reports how many.
	DeleteExpiredScrapes(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
