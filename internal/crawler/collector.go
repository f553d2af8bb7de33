package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/dacars/sitemapd/internal/models"
)

type AuditorConfig struct {
	UserAgent   string
	Parallelism int
	Timeout     time.Duration
	Locales     []string
}

// Auditor fetches sitemap URLs and checks each page's head for the tags a
// localized site needs.
type Auditor struct {
	config AuditorConfig
	logger *zap.Logger
}

func NewAuditor(config AuditorConfig, logger *zap.Logger) *Auditor {
	if config.Parallelism <= 0 {
		config.Parallelism = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{config: config, logger: logger}
}

func (a *Auditor) newCollector() *colly.Collector {
	opts := []colly.CollectorOption{
		colly.Async(true),
		colly.ParseHTTPErrorResponse(),
	}
	if a.config.UserAgent != "" {
		opts = append(opts, colly.UserAgent(a.config.UserAgent))
	}
	c := colly.NewCollector(opts...)
	c.SetRequestTimeout(a.config.Timeout)
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: a.config.Parallelism,
	})
	return c
}

// Audit visits every distinct URL once and returns results in input order.
// It stops queueing new URLs when ctx is done and returns ctx.Err() along
// with whatever finished.
func (a *Auditor) Audit(ctx context.Context, urls []string) ([]*models.AuditResult, error) {
	var (
		mu      sync.Mutex
		results = make(map[string]*models.AuditResult, len(urls))
	)
	record := func(r *models.AuditResult) {
		mu.Lock()
		results[r.URL] = r
		mu.Unlock()
	}

	c := a.newCollector()

	c.OnResponse(func(r *colly.Response) {
		target := r.Ctx.Get("target")
		res := models.NewAuditResult(target)
		res.StatusCode = r.StatusCode

		meta, err := ParsePageMeta(r.Body)
		if err != nil {
			a.logger.Warn("unparsable page", zap.String("url", target), zap.Error(err))
			res.Issues = append(Issues(target, r.StatusCode, nil, a.config.Locales), err.Error())
			record(res)
			return
		}
		res.Title = meta.Title
		res.Lang = meta.Lang
		res.Canonical = meta.Canonical
		res.Alternates = meta.Alternates
		res.Issues = Issues(target, r.StatusCode, meta, a.config.Locales)
		record(res)
	})

	c.OnError(func(r *colly.Response, err error) {
		target := r.Ctx.Get("target")
		res := models.NewAuditResult(target)
		res.StatusCode = r.StatusCode
		res.Issues = []string{fmt.Sprintf("fetch failed: %v", err)}
		a.logger.Warn("audit fetch failed", zap.String("url", target), zap.Error(err))
		record(res)
	})

	seen := make(map[string]bool, len(urls))
	ordered := make([]string, 0, len(urls))
	var visitErr error
	for _, u := range urls {
		if seen[u] {
			continue
		}
		if err := ctx.Err(); err != nil {
			visitErr = err
			break
		}
		seen[u] = true
		ordered = append(ordered, u)

		reqCtx := colly.NewContext()
		reqCtx.Put("target", u)
		if err := c.Request("GET", u, nil, reqCtx, nil); err != nil {
			res := models.NewAuditResult(u)
			res.Issues = []string{fmt.Sprintf("fetch failed: %v", err)}
			record(res)
		}
	}
	c.Wait()

	out := make([]*models.AuditResult, 0, len(ordered))
	failing := 0
	for _, u := range ordered {
		if r, ok := results[u]; ok {
			out = append(out, r)
			if !r.OK() {
				failing++
			}
		}
	}
	a.logger.Info("audit finished", zap.Int("urls", len(out)), zap.Int("failing", failing))
	return out, visitErr
}
