package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dacars/sitemapd/internal/models"
)

// BlogSource is the remote side of the collector. *Client implements it.
type BlogSource interface {
	GetBlogPosts(ctx context.Context, params BlogPostParams) ([]models.BlogPost, error)
}

// DefaultBlogParams is the request shape used for sitemap builds.
var DefaultBlogParams = BlogPostParams{
	Status: "published",
	Sort:   "-published_at,-id",
	Limit:  500,
	Fields: []string{"slug", "published_at", "updated_at"},
}

const (
	docChangeFrequency  = models.ChangeWeekly
	docPriority         = 0.7
	blogChangeFrequency = models.ChangeWeekly
	blogPriority        = 0.6
)

// DynamicResult is the outcome of one collection. Source tells whether the
// blog entries came from the API or from the static fallback; Cause carries
// the fetch error in the fallback case.
type DynamicResult struct {
	Entries []models.Entry     `json:"entries"`
	Source  models.EntrySource `json:"source"`
	Cause   string             `json:"cause,omitempty"`
}

func (r DynamicResult) Fallback() bool {
	return r.Source == models.SourceFallback
}

// Collector gathers the sitemap entries that cannot be found on disk.
type Collector struct {
	source BlogSource
	static *Static
	params BlogPostParams
	logger *zap.Logger
	now    func() time.Time
}

// NewCollector wires the collector. A nil source means every collection uses
// the fallback posts.
func NewCollector(source BlogSource, static *Static, logger *zap.Logger) *Collector {
	if static == nil {
		static = &Static{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		source: source,
		static: static,
		params: DefaultBlogParams,
		logger: logger,
		now:    time.Now,
	}
}

// Collect never fails: any problem with the content API degrades to the
// static fallback posts.
func (c *Collector) Collect(ctx context.Context) DynamicResult {
	now := c.now()
	entries := DocEntries(c.static.Docs, now)

	posts, err := c.fetch(ctx)
	if err != nil {
		c.logger.Warn("blog posts unavailable, using fallback list",
			zap.Error(err),
			zap.Int("fallbackPosts", len(c.static.FallbackPosts)),
		)
		return DynamicResult{
			Entries: append(entries, BlogEntries(c.static.FallbackPosts, now)...),
			Source:  models.SourceFallback,
			Cause:   err.Error(),
		}
	}

	c.logger.Debug("blog posts fetched", zap.Int("posts", len(posts)))
	return DynamicResult{
		Entries: append(entries, BlogEntries(posts, now)...),
		Source:  models.SourceFetched,
	}
}

func (c *Collector) fetch(ctx context.Context) (posts []models.BlogPost, err error) {
	if c.source == nil {
		return nil, fmt.Errorf("content API not configured")
	}
	defer func() {
		if r := recover(); r != nil {
			posts, err = nil, fmt.Errorf("blog source panicked: %v", r)
		}
	}()
	return c.source.GetBlogPosts(ctx, c.params)
}

// DocEntries maps the documentation list to /docs/<slug> entries.
func DocEntries(docs []models.DocPage, now time.Time) []models.Entry {
	out := make([]models.Entry, 0, len(docs))
	for _, d := range docs {
		slug := cleanSlug(d.Slug)
		if slug == "" {
			continue
		}
		lastMod := now
		if t, ok := models.ParseTimestamp(d.LastUpdated); ok {
			lastMod = t
		}
		out = append(out, models.Entry{
			Path:            "/docs/" + slug,
			LastModified:    models.FormatTimestamp(lastMod),
			ChangeFrequency: docChangeFrequency,
			Priority:        docPriority,
		})
	}
	return out
}

// BlogEntries maps posts to /blog/<slug> entries. Posts with a blank slug are
// dropped. lastModified prefers updated_at, then published_at, then now.
func BlogEntries(posts []models.BlogPost, now time.Time) []models.Entry {
	out := make([]models.Entry, 0, len(posts))
	for _, p := range posts {
		slug := cleanSlug(p.Slug)
		if slug == "" {
			continue
		}
		out = append(out, models.Entry{
			Path:            "/blog/" + slug,
			LastModified:    models.FormatTimestamp(postModified(p, now)),
			ChangeFrequency: blogChangeFrequency,
			Priority:        blogPriority,
		})
	}
	return out
}

func postModified(p models.BlogPost, now time.Time) time.Time {
	for _, candidate := range []*string{p.UpdatedAt, p.PublishedAt} {
		if candidate == nil {
			continue
		}
		if t, ok := models.ParseTimestamp(*candidate); ok {
			return t
		}
	}
	return now
}

func cleanSlug(s string) string {
	return strings.Trim(strings.TrimSpace(s), "/")
}
