package content

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dacars/sitemapd/internal/models"
)

var now = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

type stubSource struct {
	posts  []models.BlogPost
	err    error
	panics bool
	params BlogPostParams
}

func (s *stubSource) GetBlogPosts(_ context.Context, params BlogPostParams) ([]models.BlogPost, error) {
	s.params = params
	if s.panics {
		panic("nil map")
	}
	return s.posts, s.err
}

func newTestCollector(src BlogSource, static *Static) *Collector {
	c := NewCollector(src, static, nil)
	c.now = func() time.Time { return now }
	return c
}

func TestBlogEntries(t *testing.T) {
	posts := []models.BlogPost{
		{Slug: "updated", PublishedAt: strPtr("2024-01-01"), UpdatedAt: strPtr("2024-02-02T10:00:00Z")},
		{Slug: "published-only", PublishedAt: strPtr("2024-01-01")},
		{Slug: "bad-updated", PublishedAt: strPtr("2024-01-03"), UpdatedAt: strPtr("not a date")},
		{Slug: "no-dates"},
		{Slug: "   "},
		{Slug: ""},
	}

	entries := BlogEntries(posts, now)
	require.Len(t, entries, 4)
	assert.Equal(t, models.Entry{Path: "/blog/updated", LastModified: "2024-02-02T10:00:00Z", ChangeFrequency: models.ChangeWeekly, Priority: 0.6}, entries[0])
	assert.Equal(t, "2024-01-01T00:00:00Z", entries[1].LastModified)
	assert.Equal(t, "2024-01-03T00:00:00Z", entries[2].LastModified)
	assert.Equal(t, "2024-06-01T08:00:00Z", entries[3].LastModified)
}

func TestDocEntries(t *testing.T) {
	entries := DocEntries([]models.DocPage{
		{Slug: "booking-guide", LastUpdated: "2024-03-01"},
		{Slug: "/insurance/", LastUpdated: "soon"},
		{Slug: ""},
	}, now)
	require.Len(t, entries, 2)
	assert.Equal(t, models.Entry{Path: "/docs/booking-guide", LastModified: "2024-03-01T00:00:00Z", ChangeFrequency: models.ChangeWeekly, Priority: 0.7}, entries[0])
	assert.Equal(t, "/docs/insurance", entries[1].Path)
	assert.Equal(t, "2024-06-01T08:00:00Z", entries[1].LastModified)
}

func TestCollectFetched(t *testing.T) {
	src := &stubSource{posts: []models.BlogPost{{Slug: "guide", PublishedAt: strPtr("2024-01-01")}}}
	res := newTestCollector(src, &Static{Docs: []models.DocPage{{Slug: "faq", LastUpdated: "2024-01-01"}}}).Collect(context.Background())

	assert.Equal(t, models.SourceFetched, res.Source)
	assert.False(t, res.Fallback())
	assert.Empty(t, res.Cause)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, "/docs/faq", res.Entries[0].Path)
	assert.Equal(t, "/blog/guide", res.Entries[1].Path)
	assert.Equal(t, DefaultBlogParams, src.params)
}

func TestCollectFallsBackOnError(t *testing.T) {
	static, err := LoadStatic("")
	require.NoError(t, err)
	src := &stubSource{err: errors.New("connection refused")}

	res := newTestCollector(src, static).Collect(context.Background())

	want := append(DocEntries(static.Docs, now), BlogEntries(static.FallbackPosts, now)...)
	assert.True(t, res.Fallback())
	assert.Equal(t, want, res.Entries)
	assert.Contains(t, res.Cause, "connection refused")
	for _, e := range res.Entries[len(static.Docs):] {
		assert.Equal(t, models.ChangeWeekly, e.ChangeFrequency)
		assert.Equal(t, 0.6, e.Priority)
	}
}

func TestCollectFallsBackOnPanicAndMissingSource(t *testing.T) {
	static := &Static{FallbackPosts: []models.BlogPost{{Slug: "offline", PublishedAt: strPtr("2023-01-01")}}}

	assert.NotPanics(t, func() {
		res := newTestCollector(&stubSource{panics: true}, static).Collect(context.Background())
		assert.True(t, res.Fallback())
		assert.Contains(t, res.Cause, "panicked")
	})

	res := newTestCollector(nil, static).Collect(context.Background())
	assert.True(t, res.Fallback())
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "/blog/offline", res.Entries[0].Path)
}

func TestClientGetBlogPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/blog-posts", r.URL.Path)
		assert.Equal(t, "published", r.URL.Query().Get("status"))
		assert.Equal(t, "-published_at,-id", r.URL.Query().Get("sort"))
		assert.Equal(t, "500", r.URL.Query().Get("limit"))
		assert.Equal(t, "slug,published_at,updated_at", r.URL.Query().Get("fields"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"slug": "guide", "published_at": "2024-01-01", "updated_at": nil},
			},
			"meta": map[string]any{"total": 1},
		})
	}))
	defer srv.Close()

	posts, err := NewClient(srv.URL+"/", "secret", time.Second).GetBlogPosts(context.Background(), DefaultBlogParams)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "guide", posts[0].Slug)
	require.NotNil(t, posts[0].PublishedAt)
	assert.Equal(t, "2024-01-01", *posts[0].PublishedAt)
	assert.Nil(t, posts[0].UpdatedAt)
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") == "broken" {
			_, _ = w.Write([]byte(`{"message":"ok"}`))
			return
		}
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.GetBlogPosts(context.Background(), DefaultBlogParams)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "502")

	_, err = c.GetBlogPosts(context.Background(), BlogPostParams{Status: "broken"})
	assert.ErrorIs(t, err, ErrUnusablePayload)
}

func TestExtractList(t *testing.T) {
	ok := []string{
		`[{"slug":"a"}]`,
		`{"data":[{"slug":"a"}]}`,
		`{"items":[{"slug":"a"}]}`,
		`{"results":[{"slug":"a"}]}`,
		`{"posts":[{"slug":"a"}]}`,
		`{"data":{"data":[{"slug":"a"}],"total":1}}`,
		`{"data":{"items":[{"slug":"a"}]}}`,
	}
	for _, body := range ok {
		items, err := ExtractList([]byte(body))
		require.NoError(t, err, body)
		assert.Len(t, items, 1, body)
	}

	bad := []string{``, `null`, `"x"`, `{"data":null}`, `{"data":{"data":{"data":[]}}}`, `[{`}
	for _, body := range bad {
		_, err := ExtractList([]byte(body))
		assert.ErrorIs(t, err, ErrUnusablePayload, body)
	}
}

func TestParseStatic(t *testing.T) {
	s, err := LoadStatic("")
	require.NoError(t, err)
	assert.NotEmpty(t, s.Pages)
	assert.NotEmpty(t, s.Docs)
	assert.NotEmpty(t, s.FallbackPosts)

	_, err = ParseStatic([]byte("pages:\n  - path: /x\n    changeFrequency: often\n"))
	assert.Error(t, err)
	_, err = ParseStatic([]byte("pages:\n  - path: /x\n    priority: 2\n"))
	assert.Error(t, err)

	s, err = ParseStatic([]byte("pages:\n  - path: /x\n    changeFrequency: daily\n  - path: /y\n    priority: 0\n"))
	require.NoError(t, err)
	require.Len(t, s.Pages, 2)
	assert.Nil(t, s.Pages[0].Priority)
	require.NotNil(t, s.Pages[1].Priority)
	assert.Equal(t, 0.0, *s.Pages[1].Priority)
}
