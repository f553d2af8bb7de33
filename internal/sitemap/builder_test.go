package sitemap

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dacars/sitemapd/internal/cache"
	"github.com/dacars/sitemapd/internal/content"
	"github.com/dacars/sitemapd/internal/models"
)

type stubPages struct {
	pages []models.DiscoveredPage
	err   error
	calls atomic.Int32
}

func (s *stubPages) Discover(ctx context.Context) ([]models.DiscoveredPage, error) {
	s.calls.Add(1)
	return s.pages, s.err
}

type stubBlog struct {
	posts []models.BlogPost
	err   error
	calls atomic.Int32
}

func (s *stubBlog) GetBlogPosts(ctx context.Context, params content.BlogPostParams) ([]models.BlogPost, error) {
	s.calls.Add(1)
	return s.posts, s.err
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func newTestBuilder(t *testing.T, pages PageDiscoverer, blog content.BlogSource, static *content.Static, c *cache.Cache) *Builder {
	t.Helper()
	return NewBuilder(Options{
		Pages:     pages,
		Dynamic:   content.NewCollector(blog, static, nil),
		Overrides: []models.PageOverride{{Path: "/cars", ChangeFrequency: models.ChangeDaily, Priority: floatPtr(0.9)}},
		Fanout:    newTestFanout(t, "ro", "en"),
		Cache:     c,
	})
}

func scenarioPages() *stubPages {
	mod := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &stubPages{pages: []models.DiscoveredPage{
		{Path: "/", LastModified: mod},
		{Path: "/cars", LastModified: mod},
	}}
}

func TestBuildEndToEnd(t *testing.T) {
	blog := &stubBlog{posts: []models.BlogPost{{Slug: "guide", PublishedAt: strPtr("2024-01-01T00:00:00Z")}}}
	b := newTestBuilder(t, scenarioPages(), blog, &content.Static{}, nil)

	res, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceFetched, res.Source)
	assert.Equal(t, 3, res.EntryCount)
	assert.Equal(t, []string{
		"https://dacars.ro/",
		"https://dacars.ro/ro",
		"https://dacars.ro/en",
		"https://dacars.ro/cars",
		"https://dacars.ro/ro/cars",
		"https://dacars.ro/en/cars",
		"https://dacars.ro/blog/guide",
		"https://dacars.ro/ro/blog/guide",
		"https://dacars.ro/en/blog/guide",
	}, urls(res.Records))

	byURL := map[string]models.Record{}
	for _, r := range res.Records {
		byURL[r.URL] = r
	}
	roCars := byURL["https://dacars.ro/ro/cars"]
	assert.Equal(t, 0.9, roCars.Priority)
	assert.Equal(t, models.ChangeDaily, roCars.ChangeFrequency)
	assert.Equal(t, "2024-03-01T12:00:00Z", roCars.LastModified)

	guide := byURL["https://dacars.ro/en/blog/guide"]
	assert.Equal(t, "2024-01-01T00:00:00Z", guide.LastModified)
	assert.Equal(t, models.ChangeWeekly, guide.ChangeFrequency)
	assert.Equal(t, 0.6, guide.Priority)

	home := byURL["https://dacars.ro/ro"]
	assert.Equal(t, models.ChangeMonthly, home.ChangeFrequency)
	assert.Equal(t, 0.5, home.Priority)
}

func TestBuildFallsBackWhenBlogFails(t *testing.T) {
	blog := &stubBlog{err: errors.New("502 bad gateway")}
	static := &content.Static{FallbackPosts: []models.BlogPost{{Slug: "winter-driving", PublishedAt: strPtr("2023-12-01")}}}
	b := newTestBuilder(t, scenarioPages(), blog, static, nil)

	res, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceFallback, res.Source)
	assert.Contains(t, res.Cause, "502")
	assert.Contains(t, urls(res.Records), "https://dacars.ro/ro/blog/winter-driving")
}

func TestBuildFailsOnDiscoveryError(t *testing.T) {
	pages := &stubPages{err: errors.New("permission denied")}
	b := newTestBuilder(t, pages, &stubBlog{}, &content.Static{}, nil)

	_, err := b.Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discover pages")
}

func TestBuildMergesOverlappingSources(t *testing.T) {
	pages := &stubPages{pages: []models.DiscoveredPage{
		{Path: "/docs", LastModified: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Path: "/docs/faq", LastModified: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}
	static := &content.Static{Docs: []models.DocPage{{Slug: "faq", LastUpdated: "2024-04-01T00:00:00Z"}}}
	b := newTestBuilder(t, pages, &stubBlog{}, static, nil)

	set, err := b.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, set.Entries, 2)
	faq := set.Entries[1]
	assert.Equal(t, "/docs/faq", faq.Path)
	assert.Equal(t, "2024-04-01T00:00:00Z", faq.LastModified)
	assert.Equal(t, models.ChangeWeekly, faq.ChangeFrequency)
	assert.Equal(t, 0.7, faq.Priority)
}

func TestBuildReusesCachedTiers(t *testing.T) {
	pages := scenarioPages()
	blog := &stubBlog{posts: []models.BlogPost{{Slug: "guide", PublishedAt: strPtr("2024-01-01")}}}
	c := cache.New(cache.NewMemoryStore(nil), nil)
	b := newTestBuilder(t, pages, blog, &content.Static{}, c)
	ctx := context.Background()

	_, err := b.Build(ctx)
	require.NoError(t, err)
	_, err = b.Build(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pages.calls.Load())
	assert.EqualValues(t, 1, blog.calls.Load())

	c.Invalidate(TagDynamic)
	_, err = b.Build(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pages.calls.Load(), "static tier must survive a dynamic invalidation")
	assert.EqualValues(t, 2, blog.calls.Load())

	c.Invalidate(TagStatic)
	_, err = b.Build(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, pages.calls.Load())
	assert.EqualValues(t, 2, blog.calls.Load())

	c.Invalidate(TagEntries)
	_, err = b.Build(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, pages.calls.Load())
	assert.EqualValues(t, 2, blog.calls.Load())
}

func TestBuildDoesNotCacheDiscoveryErrors(t *testing.T) {
	pages := &stubPages{err: errors.New("boom")}
	c := cache.New(cache.NewMemoryStore(nil), nil)
	b := newTestBuilder(t, pages, &stubBlog{}, &content.Static{}, c)

	_, err := b.Build(context.Background())
	require.Error(t, err)

	pages.err = nil
	pages.pages = []models.DiscoveredPage{{Path: "/"}}
	res, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.EntryCount)
}

func TestMergedEntriesNeverOutliveDynamicTier(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	pages := scenarioPages()
	blog := &stubBlog{posts: []models.BlogPost{{Slug: "guide", PublishedAt: strPtr("2024-01-01")}}}
	c := cache.New(cache.NewMemoryStore(clock), nil)
	b := NewBuilder(Options{
		Pages:   pages,
		Dynamic: content.NewCollector(blog, &content.Static{}, nil),
		Fanout:  newTestFanout(t, "ro"),
		Cache:   c,
		TTL:     TTLs{Static: time.Hour, Dynamic: 10 * time.Minute, Merged: time.Hour},
	})
	b.now = clock
	ctx := context.Background()

	_, err := b.Build(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, blog.calls.Load())

	now = now.Add(5 * time.Minute)
	c.Invalidate(TagStatic)
	_, err = b.Build(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, pages.calls.Load())
	assert.EqualValues(t, 1, blog.calls.Load(), "dynamic tier is still fresh")

	now = now.Add(6 * time.Minute)
	_, err = b.Build(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, blog.calls.Load(), "merged set rebuilt at 5m must expire with the dynamic tier at 10m")
	assert.EqualValues(t, 2, pages.calls.Load())
}

func TestCapTTL(t *testing.T) {
	assert.Equal(t, 10*time.Minute, capTTL(time.Hour, 15*time.Minute, 5*time.Minute))
	assert.Equal(t, 5*time.Minute, capTTL(5*time.Minute, 15*time.Minute, 0))
	assert.Equal(t, time.Hour, capTTL(time.Hour, 0, time.Hour))
	assert.Equal(t, 15*time.Minute, capTTL(0, 15*time.Minute, 0))
	assert.Equal(t, time.Nanosecond, capTTL(time.Hour, time.Minute, 2*time.Minute))
}

func TestBuildCancelledContext(t *testing.T) {
	c := cache.New(cache.NewMemoryStore(nil), nil)
	blog := &stubBlog{}
	b := newTestBuilder(t, scenarioPages(), blog, &content.Static{}, c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Build(ctx)
	require.ErrorIs(t, err, context.Canceled)

	res, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceFetched, res.Source)
}

func TestIsTag(t *testing.T) {
	assert.True(t, IsTag(TagStatic))
	assert.True(t, IsTag(TagEntries))
	assert.False(t, IsTag("sitemap"))
}
