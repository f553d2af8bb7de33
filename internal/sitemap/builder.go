package sitemap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dacars/sitemapd/internal/cache"
	"github.com/dacars/sitemapd/internal/content"
	"github.com/dacars/sitemapd/internal/models"
)

// Cache tags. The merged entry set carries all three, so dropping either
// source tier also drops the merge built from it.
const (
	TagStatic  = "sitemap-static"
	TagDynamic = "sitemap-dynamic"
	TagEntries = "sitemap-entries"
)

// Tags lists every tag a client may invalidate.
var Tags = []string{TagStatic, TagDynamic, TagEntries}

// IsTag reports whether tag is one of Tags.
func IsTag(tag string) bool {
	for _, t := range Tags {
		if t == tag {
			return true
		}
	}
	return false
}

const (
	keyStatic  = "sitemap:static-entries"
	keyDynamic = "sitemap:dynamic-entries"
	keyEntries = "sitemap:merged-entries"
)

type PageDiscoverer interface {
	Discover(ctx context.Context) ([]models.DiscoveredPage, error)
}

type EntryCollector interface {
	Collect(ctx context.Context) content.DynamicResult
}

// TTLs bound how stale each cached tier may get.
type TTLs struct {
	Static  time.Duration
	Dynamic time.Duration
	Merged  time.Duration
}

var DefaultTTLs = TTLs{
	Static:  time.Hour,
	Dynamic: 15 * time.Minute,
	Merged:  15 * time.Minute,
}

type Options struct {
	Pages     PageDiscoverer
	Dynamic   EntryCollector
	Overrides []models.PageOverride
	Fanout    *Fanout
	Cache     *cache.Cache
	TTL       TTLs
	Logger    *zap.Logger
}

// Builder runs the sitemap pipeline: discovery and content collection in
// parallel, then override, merge and locale fanout.
type Builder struct {
	pages     PageDiscoverer
	dynamic   EntryCollector
	overrides []models.PageOverride
	fanout    *Fanout
	cache     *cache.Cache
	ttl       TTLs
	logger    *zap.Logger
	now       func() time.Time
}

func NewBuilder(opts Options) *Builder {
	if opts.TTL == (TTLs{}) {
		opts.TTL = DefaultTTLs
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Builder{
		pages:     opts.Pages,
		dynamic:   opts.Dynamic,
		overrides: opts.Overrides,
		fanout:    opts.Fanout,
		cache:     opts.Cache,
		ttl:       opts.TTL,
		logger:    opts.Logger,
		now:       time.Now,
	}
}

// EntrySet is the deduplicated, un-localized result of one merge.
type EntrySet struct {
	Entries []models.Entry     `json:"entries"`
	Source  models.EntrySource `json:"source"`
	Cause   string             `json:"cause,omitempty"`
}

// Result is a finished build.
type Result struct {
	Records     []models.Record
	EntryCount  int
	Source      models.EntrySource
	Cause       string
	GeneratedAt time.Time
	Duration    time.Duration
}

// Build produces the sitemap records. Only page-tree errors fail a build.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := b.now()
	set, err := b.Entries(ctx)
	if err != nil {
		return nil, err
	}
	records := b.fanout.Expand(set.Entries)
	res := &Result{
		Records:     records,
		EntryCount:  len(set.Entries),
		Source:      set.Source,
		Cause:       set.Cause,
		GeneratedAt: start,
		Duration:    b.now().Sub(start),
	}
	b.logger.Info("sitemap built",
		zap.Int("entries", res.EntryCount),
		zap.Int("urls", len(records)),
		zap.String("blogSource", string(res.Source)),
		zap.Duration("took", res.Duration),
	)
	return res, nil
}

// Entries returns the merged entry set, from cache when fresh. The merged set
// never outlives the tiers it was built from.
func (b *Builder) Entries(ctx context.Context) (EntrySet, error) {
	p := cache.Policy{Key: keyEntries, TTL: b.ttl.Merged, Tags: []string{TagEntries, TagStatic, TagDynamic}}
	return cache.LoadTTL(ctx, b.cache, p, b.mergeEntries)
}

// staticTier and dynamicTier are the cached inputs of a merge, stamped with
// the time they were fetched.
type staticTier struct {
	Entries   []models.Entry `json:"entries"`
	FetchedAt time.Time      `json:"fetchedAt"`
}

type dynamicTier struct {
	Result    content.DynamicResult `json:"result"`
	FetchedAt time.Time             `json:"fetchedAt"`
}

func (b *Builder) mergeEntries(ctx context.Context) (EntrySet, time.Duration, error) {
	var (
		static  staticTier
		dynamic dynamicTier
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		static, err = b.staticEntries(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		dynamic, err = b.dynamicEntries(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return EntrySet{}, 0, err
	}

	all := make([]models.Entry, 0, len(static.Entries)+len(dynamic.Result.Entries))
	all = append(all, static.Entries...)
	all = append(all, dynamic.Result.Entries...)
	set := EntrySet{
		Entries: Deduplicate(all),
		Source:  dynamic.Result.Source,
		Cause:   dynamic.Result.Cause,
	}

	now := b.now()
	ttl := b.ttl.Merged
	ttl = capTTL(ttl, b.ttl.Static, now.Sub(static.FetchedAt))
	ttl = capTTL(ttl, b.ttl.Dynamic, now.Sub(dynamic.FetchedAt))
	return set, ttl, nil
}

// capTTL bounds ttl by what is left of a tier's lifetime. A ttl <= 0 means
// no expiry.
func capTTL(ttl, tierTTL, age time.Duration) time.Duration {
	if tierTTL <= 0 {
		return ttl
	}
	left := max(tierTTL-age, time.Nanosecond)
	if ttl <= 0 || left < ttl {
		return left
	}
	return ttl
}

func (b *Builder) staticEntries(ctx context.Context) (staticTier, error) {
	p := cache.Policy{Key: keyStatic, TTL: b.ttl.Static, Tags: []string{TagStatic}}
	return cache.Load(ctx, b.cache, p, func(ctx context.Context) (staticTier, error) {
		tier := staticTier{FetchedAt: b.now()}
		if b.pages == nil {
			return tier, nil
		}
		pages, err := b.pages.Discover(ctx)
		if err != nil {
			return staticTier{}, fmt.Errorf("discover pages: %w", err)
		}
		b.logger.Debug("pages discovered", zap.Int("pages", len(pages)))
		tier.Entries = ApplyOverrides(pages, b.overrides, tier.FetchedAt)
		return tier, nil
	})
}

func (b *Builder) dynamicEntries(ctx context.Context) (dynamicTier, error) {
	p := cache.Policy{Key: keyDynamic, TTL: b.ttl.Dynamic, Tags: []string{TagDynamic}}
	return cache.Load(ctx, b.cache, p, func(ctx context.Context) (dynamicTier, error) {
		tier := dynamicTier{FetchedAt: b.now()}
		if b.dynamic == nil {
			tier.Result = content.DynamicResult{Source: models.SourceFetched}
			return tier, nil
		}
		tier.Result = b.dynamic.Collect(ctx)
		return tier, nil
	})
}

// BuildRecord summarizes the result for the build history.
func (r *Result) BuildRecord() *models.BuildRecord {
	rec := models.NewBuildRecord(r.GeneratedAt)
	rec.DurationMs = r.Duration.Milliseconds()
	rec.EntryCount = r.EntryCount
	rec.URLCount = len(r.Records)
	rec.BlogSource = r.Source
	rec.FallbackCause = r.Cause
	return rec
}
