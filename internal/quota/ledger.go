// Package quota counts requests per client per UTC day in a shared key-value
// ledger. The ledger's atomic increment is the only cross-request
// synchronization point in the service.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// minExpiry floors key TTLs so a key created moments before UTC midnight
// cannot expire before its first increment lands.
const minExpiry = 60 * time.Second

// Store is the slice of the redis client the ledger needs.
type Store interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Ledger tracks per-identity daily request counts.
type Ledger struct {
	store Store
	now   func() time.Time
}

// NewLedger creates a Ledger backed by store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// CheckAndIncrement atomically bumps identity's counter for the current UTC
// day and returns the post-increment value. The first hit of a day sets the
// key to expire at the next UTC midnight. Errors mean the ledger backend is
// unreachable; callers decide whether to fail open.
func (l *Ledger) CheckAndIncrement(ctx context.Context, identity string) (int64, error) {
	key := l.key(identity)

	count, err := l.store.Incr(ctx, key).Result()
	if err != nil {
		return 0, eris.Wrap(err, "quota: increment")
	}

	if count == 1 {
		ttl := UntilMidnightUTC(l.now())
		if ttl < minExpiry {
			ttl = minExpiry
		}
		if err := l.store.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, eris.Wrap(err, "quota: set expiry")
		}
	}

	return count, nil
}

// key scopes the counter to (identity, current UTC day).
func (l *Ledger) key(identity string) string {
	return fmt.Sprintf("quota:%s:%s", identity, l.now().UTC().Format("2006-01-02"))
}

// UntilMidnightUTC returns the time remaining until the next UTC midnight.
func UntilMidnightUTC(now time.Time) time.Duration {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return midnight.Sub(now)
}
