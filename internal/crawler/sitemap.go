package crawler

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/gocolly/colly/v2"

	"github.com/dacars/sitemapd/internal/models"
)

// LoadSitemapURLs returns the <loc> values of a sitemap given as an http(s)
// URL or a local file path.
func LoadSitemapURLs(ctx context.Context, source, userAgent string) ([]string, error) {
	var (
		body []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		body, err = fetchSitemap(ctx, source, userAgent)
	} else {
		body, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("load sitemap %s: %w", source, err)
	}
	return ParseSitemapURLs(body)
}

func ParseSitemapURLs(body []byte) ([]string, error) {
	var set models.URLSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("parse sitemap: %w", err)
	}
	for i := range set.URLs {
		set.URLs[i].Loc = strings.TrimSpace(set.URLs[i].Loc)
	}
	return set.Locs(), nil
}

func fetchSitemap(ctx context.Context, source, userAgent string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := colly.NewCollector()
	if userAgent != "" {
		c.UserAgent = userAgent
	}

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	if err := c.Visit(source); err != nil {
		return nil, err
	}
	return body, nil
}
