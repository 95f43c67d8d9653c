package store

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/concierge/pkg/harvester"
)

type fakeStore struct {
	deletes atomic.Int32
}

func (f *fakeStore) GetCachedScrape(context.Context, string) (*CachedScrape, error) {
	return nil, nil
}

func (f *fakeStore) SetCachedScrape(context.Context, string, []harvester.Result, time.Duration) error {
	return nil
}

func (f *fakeStore) DeleteExpiredScrapes(context.Context) (int, error) {
	f.deletes.Add(1)
	return 1, nil
}

func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

func TestJanitor_PrunesOnTick(t *testing.T) {
	fake := &fakeStore{}
	j := NewJanitor(fake, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return fake.deletes.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestJanitor_StopsOnCancel(t *testing.T) {
	fake := &fakeStore{}
	j := NewJanitor(fake, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop on context cancellation")
	}
}
