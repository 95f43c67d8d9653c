package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/concierge/pkg/harvester"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func samplePages() []harvester.Result {
	return []harvester.Result{
		{URL: "https://acme.com/careers", Title: "Careers", Content: "We are hiring."},
	}
}

func TestSQLite_ScrapeCache_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.SetCachedScrape(ctx, "https://acme.com/careers", samplePages(), time.Hour)
	require.NoError(t, err)

	cs, err := st.GetCachedScrape(ctx, "https://acme.com/careers")
	require.NoError(t, err)
	require.NotNil(t, cs)
	assert.Equal(t, "https://acme.com/careers", cs.URL)
	require.Len(t, cs.Results, 1)
	assert.Equal(t, "We are hiring.", cs.Results[0].Content)
}

func TestSQLite_ScrapeCache_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	cs, err := st.GetCachedScrape(context.Background(), "https://unknown.com")
	require.NoError(t, err)
	assert.Nil(t, cs)
}

func TestSQLite_ScrapeCache_Expired(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.SetCachedScrape(ctx, "https://acme.com", samplePages(), -time.Hour)
	require.NoError(t, err)

	cs, err := st.GetCachedScrape(ctx, "https://acme.com")
	require.NoError(t, err)
	assert.Nil(t, cs)
}

func TestSQLite_ScrapeCache_Overwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.SetCachedScrape(ctx, "https://acme.com", samplePages(), time.Hour)
	require.NoError(t, err)

	updated := []harvester.Result{{URL: "https://acme.com", Content: "Updated content."}}
	err = st.SetCachedScrape(ctx, "https://acme.com", updated, time.Hour)
	require.NoError(t, err)

	cs, err := st.GetCachedScrape(ctx, "https://acme.com")
	require.NoError(t, err)
	require.NotNil(t, cs)
	require.Len(t, cs.Results, 1)
	assert.Equal(t, "Updated content.", cs.Results[0].Content)
}

func TestSQLite_DeleteExpiredScrapes(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCachedScrape(ctx, "https://old.com", samplePages(), -time.Hour))
	require.NoError(t, st.SetCachedScrape(ctx, "https://fresh.com", samplePages(), time.Hour))

	n, err := st.DeleteExpiredScrapes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cs, err := st.GetCachedScrape(ctx, "https://fresh.com")
	require.NoError(t, err)
	assert.NotNil(t, cs)
}

func TestSQLite_DeleteExpiredScrapes_NoneExpired(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCachedScrape(ctx, "https://fresh.com", samplePages(), time.Hour))

	n, err := st.DeleteExpiredScrapes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
