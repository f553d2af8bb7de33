package sitemap

import (
	"math"
	"strings"

	"github.com/dacars/sitemapd/internal/locale"
	"github.com/dacars/sitemapd/internal/models"
)

// Fanout expands canonical entries into one absolute URL per locale plus the
// unprefixed canonical URL.
type Fanout struct {
	baseURL  string
	locales  []string
	rewriter *locale.Rewriter
}

// NewFanout builds a fanout for baseURL (e.g. "https://dacars.ro"). A nil
// rewriter uses the default excluded prefixes.
func NewFanout(baseURL string, registry locale.Registry, rewriter *locale.Rewriter) *Fanout {
	locales := registry.Locales()
	if rewriter == nil {
		rewriter = locale.NewRewriter(locales, nil)
	}
	return &Fanout{
		baseURL:  strings.TrimRight(baseURL, "/"),
		locales:  locales,
		rewriter: rewriter,
	}
}

// Expand returns one record per distinct absolute URL in first-registration
// order. When two candidates share a URL the one with the strictly later
// lastModified wins, metadata included.
func (f *Fanout) Expand(entries []models.Entry) []models.Record {
	index := make(map[string]int, len(entries)*(len(f.locales)+1))
	out := make([]models.Record, 0, len(entries)*(len(f.locales)+1))

	register := func(path string, e models.Entry) {
		rec := models.Record{
			URL:             f.absolute(path),
			LastModified:    e.LastModified,
			ChangeFrequency: e.ChangeFrequency,
			Priority:        e.Priority,
		}
		i, ok := index[rec.URL]
		if !ok {
			index[rec.URL] = len(out)
			out = append(out, rec)
			return
		}
		if isFresher(rec.LastModified, out[i].LastModified) {
			out[i] = rec
		}
	}

	for _, e := range entries {
		canonical := NormalizePath(e.Path)
		register(canonical, e)
		for _, l := range f.locales {
			register(f.rewriter.Rewrite(canonical, l), e)
		}
	}

	for i := range out {
		out[i].Priority = ClampPriority(out[i].Priority)
	}
	return out
}

func (f *Fanout) absolute(path string) string {
	return f.baseURL + path
}

// isFresher reports whether candidate should replace existing: both must
// parse and candidate must be strictly later.
func isFresher(candidate, existing string) bool {
	tc, ok := models.ParseTimestamp(candidate)
	if !ok {
		return false
	}
	te, ok := models.ParseTimestamp(existing)
	if !ok {
		return false
	}
	return tc.After(te)
}

// ClampPriority bounds p to [0,1]; NaN and infinities become the default.
func ClampPriority(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return models.DefaultPriority
	}
	return math.Min(1, math.Max(0, p))
}
