package profile

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	loadFunc func(ctx context.Context) (string, error)
	calls    atomic.Int32
}

func (f *fakeSource) Load(ctx context.Context) (string, error) {
	f.calls.Add(1)
	return f.loadFunc(ctx)
}

const sampleYAML = `name: Jordan Reyes
headline: Backend Engineer
location: Austin, TX
summary: |
  Ten years building data-heavy services.
skills:
  - Go
  - Postgres
experience:
  - company: Acme
    role: Senior Engineer
    start: "2019"
    end: present
    highlights:
      - Led the billing rewrite
education:
  - school: UT Austin
    degree: BS Computer Science
    year: "2014"
links:
  github: https://github.com/jreyes
`

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileSource_RendersSections(t *testing.T) {
	src := NewFileSource(writeProfile(t, sampleYAML))

	text, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Contains(t, text, "Name: Jordan Reyes")
	assert.Contains(t, text, "Skills: Go, Postgres")
	assert.Contains(t, text, "- Senior Engineer, Acme (2019 - present)")
	assert.Contains(t, text, "  - Led the billing rewrite")
	assert.Contains(t, text, "- BS Computer Science, UT Austin (2014)")
	assert.Contains(t, text, "- github: https://github.com/jreyes")
}

func TestFileSource_OmitsEmptySections(t *testing.T) {
	src := NewFileSource(writeProfile(t, "name: Jordan Reyes\n"))

	text, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Name: Jordan Reyes", text)
}

func TestFileSource_MissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := src.Load(context.Background())
	assert.Error(t, err)
}

func TestFileSource_MalformedYAML(t *testing.T) {
	src := NewFileSource(writeProfile(t, "name: [unclosed"))

	_, err := src.Load(context.Background())
	assert.Error(t, err)
}

func TestCached_ServesWithinTTL(t *testing.T) {
	fake := &fakeSource{loadFunc: func(context.Context) (string, error) { return "profile v1", nil }}
	c := NewCached(fake, 15*time.Minute)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	text, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "profile v1", text)

	c.now = func() time.Time { return base.Add(10 * time.Minute) }
	_, err = c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestCached_RefreshesAfterTTL(t *testing.T) {
	fake := &fakeSource{loadFunc: func(context.Context) (string, error) { return "profile", nil }}
	c := NewCached(fake, 15*time.Minute)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	_, err := c.Load(context.Background())
	require.NoError(t, err)

	c.now = func() time.Time { return base.Add(16 * time.Minute) }
	_, err = c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), fake.calls.Load())
}

func TestCached_ServesStaleOnRefreshFailure(t *testing.T) {
	fake := &fakeSource{}
	fake.loadFunc = func(context.Context) (string, error) {
		if fake.calls.Load() > 1 {
			return "", eris.New("notion down")
		}
		return "profile v1", nil
	}
	c := NewCached(fake, 15*time.Minute)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	_, err := c.Load(context.Background())
	require.NoError(t, err)

	c.now = func() time.Time { return base.Add(time.Hour) }
	text, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "profile v1", text)
}

func TestCached_FirstLoadFailurePropagates(t *testing.T) {
	fake := &fakeSource{loadFunc: func(context.Context) (string, error) {
		return "", eris.New("notion down")
	}}
	c := NewCached(fake, 15*time.Minute)

	_, err := c.Load(context.Background())
	assert.Error(t, err)
}

type fakeNotion struct {
	childrenFunc func(ctx context.Context, blockID string, pagination *notionapi.Pagination) (*notionapi.GetChildrenResponse, error)
}

func (f *fakeNotion) BlockChildren(ctx context.Context, blockID string, pagination *notionapi.Pagination) (*notionapi.GetChildrenResponse, error) {
	return f.childrenFunc(ctx, blockID, pagination)
}

func TestNotionSource_RendersPage(t *testing.T) {
	fake := &fakeNotion{childrenFunc: func(_ context.Context, blockID string, _ *notionapi.Pagination) (*notionapi.GetChildrenResponse, error) {
		assert.Equal(t, "page-42", blockID)
		return &notionapi.GetChildrenResponse{
			Results: []notionapi.Block{
				&notionapi.ParagraphBlock{Paragraph: notionapi.Paragraph{
					RichText: []notionapi.RichText{{PlainText: "Jordan Reyes, Backend Engineer"}},
				}},
			},
		}, nil
	}}

	src := NewNotionSource(fake, "page-42")
	text, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Jordan Reyes, Backend Engineer", text)
}

func TestNotionSource_EmptyPage(t *testing.T) {
	fake := &fakeNotion{childrenFunc: func(context.Context, string, *notionapi.Pagination) (*notionapi.GetChildrenResponse, error) {
		return &notionapi.GetChildrenResponse{}, nil
	}}

	src := NewNotionSource(fake, "page-42")
	_, err := src.Load(context.Background())
	assert.Error(t, err)
}

func TestNotionSource_FetchError(t *testing.T) {
	fake := &fakeNotion{childrenFunc: func(context.Context, string, *notionapi.Pagination) (*notionapi.GetChildrenResponse, error) {
		return nil, eris.New("api error")
	}}

	src := NewNotionSource(fake, "page-42")
	_, err := src.Load(context.Background())
	assert.Error(t, err)
}
