package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore implements Store in memory and records Expire calls.
type fakeStore struct {
	counts   map[string]int64
	expiries map[string]time.Duration
	incrErr  error
	expErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		counts:   make(map[string]int64),
		expiries: make(map[string]time.Duration),
	}
}

func (f *fakeStore) Incr(ctx context.Context, key string) *redis.IntCmd {
	if f.incrErr != nil {
		return redis.NewIntResult(0, f.incrErr)
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeStore) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if f.expErr != nil {
		return redis.NewBoolResult(false, f.expErr)
	}
	f.expiries[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func fixedLedger(store Store, at time.Time) *Ledger {
	l := NewLedger(store)
	l.now = func() time.Time { return at }
	return l
}

func TestCheckAndIncrement_CountsSequentially(t *testing.T) {
	store := newFakeStore()
	l := fixedLedger(store, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	for i := int64(1); i <= 5; i++ {
		count, err := l.CheckAndIncrement(context.Background(), "203.0.113.7")
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}
}

func TestCheckAndIncrement_ExpirySetOnFirstHitOnly(t *testing.T) {
	store := newFakeStore()
	at := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	l := fixedLedger(store, at)

	_, err := l.CheckAndIncrement(context.Background(), "client-a")
	require.NoError(t, err)
	require.Len(t, store.expiries, 1)

	var ttl time.Duration
	for _, v := range store.expiries {
		ttl = v
	}
	assert.Equal(t, 6*time.Hour, ttl)

	// Second hit must not reset the expiry.
	store.expiries = map[string]time.Duration{}
	_, err = l.CheckAndIncrement(context.Background(), "client-a")
	require.NoError(t, err)
	assert.Empty(t, store.expiries)
}

func TestCheckAndIncrement_ExpiryFlooredNearMidnight(t *testing.T) {
	store := newFakeStore()
	at := time.Date(2025, 6, 1, 23, 59, 30, 0, time.UTC)
	l := fixedLedger(store, at)

	_, err := l.CheckAndIncrement(context.Background(), "client-b")
	require.NoError(t, err)

	for _, ttl := range store.expiries {
		assert.Equal(t, time.Minute, ttl)
	}
}

func TestCheckAndIncrement_DayRollover(t *testing.T) {
	store := newFakeStore()
	dayOne := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	dayTwo := dayOne.AddDate(0, 0, 1)

	l := fixedLedger(store, dayOne)
	for i := 0; i < 3; i++ {
		_, err := l.CheckAndIncrement(context.Background(), "client-c")
		require.NoError(t, err)
	}

	l.now = func() time.Time { return dayTwo }
	count, err := l.CheckAndIncrement(context.Background(), "client-c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "a new UTC day starts a fresh counter")
	assert.Len(t, store.counts, 2, "day keys must not collide")
}

func TestCheckAndIncrement_BackendError(t *testing.T) {
	store := newFakeStore()
	store.incrErr = errors.New("connection refused")
	l := fixedLedger(store, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	_, err := l.CheckAndIncrement(context.Background(), "client-d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota: increment")
}

func TestCheckAndIncrement_ExpireError(t *testing.T) {
	store := newFakeStore()
	store.expErr = errors.New("connection reset")
	l := fixedLedger(store, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	_, err := l.CheckAndIncrement(context.Background(), "client-e")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota: set expiry")
}

func TestUntilMidnightUTC(t *testing.T) {
	at := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Hour, UntilMidnightUTC(at))

	// Never more than 24 hours.
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 24*time.Hour, UntilMidnightUTC(start))
}
