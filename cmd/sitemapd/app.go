package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/dacars/sitemapd/config"
	"github.com/dacars/sitemapd/internal/cache"
	"github.com/dacars/sitemapd/internal/content"
	"github.com/dacars/sitemapd/internal/discovery"
	"github.com/dacars/sitemapd/internal/locale"
	"github.com/dacars/sitemapd/internal/sitemap"
	"github.com/dacars/sitemapd/internal/storage"
)

// app holds the components shared by every command.
type app struct {
	registry locale.Registry
	cache    *cache.Cache
	builder  *sitemap.Builder
	store    storage.Store
	logger   *zap.Logger
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	registry, err := locale.NewRegistry(cfg.Site.Locales, cfg.Site.DefaultLocale)
	if err != nil {
		return nil, err
	}

	static, err := content.LoadStatic(cfg.Content.StaticFile)
	if err != nil {
		return nil, fmt.Errorf("load static content: %w", err)
	}

	var source content.BlogSource
	if cfg.Content.APIURL != "" {
		source = content.NewClient(cfg.Content.APIURL, cfg.Content.APIToken, cfg.ContentTimeout())
	} else {
		logger.Warn("content.apiurl not set, blog entries will come from the fallback list")
	}

	store, err := newCacheStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	c := cache.New(store, logger.Named("cache"))

	pages := discovery.New(os.DirFS(cfg.Pages.Root), discovery.Options{
		PageFiles:        cfg.Pages.Markers,
		ExcludedSegments: cfg.Pages.ExcludedSegments,
	})

	builder := sitemap.NewBuilder(sitemap.Options{
		Pages:     pages,
		Dynamic:   content.NewCollector(source, static, logger.Named("content")),
		Overrides: static.Pages,
		Fanout:    sitemap.NewFanout(cfg.Site.BaseURL, registry, locale.NewRewriter(registry.Locales(), cfg.Site.ExcludedPrefixes)),
		Cache:     c,
		TTL: sitemap.TTLs{
			Static:  cfg.StaticTTL(),
			Dynamic: cfg.DynamicTTL(),
			Merged:  cfg.MergedTTL(),
		},
		Logger: logger.Named("sitemap"),
	})

	a := &app{registry: registry, cache: c, builder: builder, logger: logger}

	if cfg.Database.Driver != "" {
		a.store, err = storage.Open(cfg.Database.Driver, cfg.Database.URL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
	}
	return a, nil
}

func newCacheStore(cfg *config.Config, logger *zap.Logger) (cache.Store, error) {
	switch cfg.Cache.Driver {
	case "", "memory":
		return cache.NewMemoryStore(nil), nil
	case "leveldb":
		s, err := cache.NewLevelDBStore(cfg.Cache.Path, logger.Named("leveldb"))
		if err != nil {
			return nil, fmt.Errorf("open cache %s: %w", cfg.Cache.Path, err)
		}
		return s, nil
	case "none":
		return cache.NoopStore{}, nil
	default:
		return nil, fmt.Errorf("unsupported cache driver: %q", cfg.Cache.Driver)
	}
}

// build runs one build and stores its record when a database is configured.
func (a *app) build(ctx context.Context) (*sitemap.Result, error) {
	res, err := a.builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	if a.store != nil {
		if err := a.store.SaveBuild(ctx, res.BuildRecord()); err != nil {
			a.logger.Error("failed to save build record", zap.Error(err))
		}
	}
	return res, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("close storage", zap.Error(err))
		}
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("close cache", zap.Error(err))
	}
}
