package store

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Janitor prunes expired scrape cache entries in the background.
type Janitor struct {
	store    Store
	interval time.Duration
}

// NewJanitor creates a cache janitor. A non-positive interval defaults to
// one hour.
func NewJanitor(st Store, interval time.Duration) *Janitor {
	return &Janitor{store: st, interval: interval}
}

// Run starts the cleanup loop. It blocks until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	interval := j.interval
	if interval <= 0 {
		interval = time.Hour
	}

	log := zap.L().With(zap.String("component", "store.janitor"))
	log.Info("starting scrape cache janitor", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("scrape cache janitor stopped")
			return
		case <-ticker.C:
			n, err := j.store.DeleteExpiredScrapes(ctx)
			if err != nil {
				log.Error("store: delete expired scrapes", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("store: pruned expired scrapes", zap.Int("deleted", n))
			}
		}
	}
}
