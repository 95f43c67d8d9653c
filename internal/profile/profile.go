// Package profile loads the candidate profile text that grounds generated
// answers.
package profile

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Source loads the candidate profile as plain text.
type Source interface {
	Load(ctx context.Context) (string, error)
}

// Cached wraps a Source with an in-process TTL cache. The profile changes
// rarely; refetching it per chat request would put the profile backend on
// the hot path.
type Cached struct {
	src Source
	ttl time.Duration

	mu        sync.Mutex
	text      string
	fetchedAt time.Time

	now func() time.Time
}

// NewCached returns a caching wrapper around src with the given TTL.
func NewCached(src Source, ttl time.Duration) *Cached {
	return &Cached{src: src, ttl: ttl, now: time.Now}
}

// Load returns the cached profile text, refreshing it when stale. When a
// refresh fails and a previous copy exists, the stale copy is served.
func (c *Cached) Load(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.text != "" && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.text, nil
	}

	text, err := c.src.Load(ctx)
	if err != nil {
		if c.text != "" {
			zap.L().Warn("profile: refresh failed, serving stale copy", zap.Error(err))
			return c.text, nil
		}
		return "", eris.Wrap(err, "profile: load")
	}

	c.text = text
	c.fetchedAt = c.now()
	return c.text, nil
}
