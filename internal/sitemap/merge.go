// Package sitemap turns discovered pages and collected content into the
// final, locale-expanded list of sitemap URLs.
package sitemap

import (
	"strings"

	"github.com/dacars/sitemapd/internal/models"
)

// NormalizePath trims whitespace, maps the empty path to "/" and ensures a
// leading slash.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Deduplicate returns one entry per normalized path, in order of first
// appearance. Colliding entries are merged with mergeEntry.
func Deduplicate(entries []models.Entry) []models.Entry {
	index := make(map[string]int, len(entries))
	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		e.Path = NormalizePath(e.Path)
		if i, ok := index[e.Path]; ok {
			out[i] = mergeEntry(out[i], e)
			continue
		}
		index[e.Path] = len(out)
		out = append(out, e)
	}
	return out
}

// mergeEntry keeps the newer lastModified, the more frequent changeFrequency
// and the higher priority.
func mergeEntry(a, b models.Entry) models.Entry {
	return models.Entry{
		Path:            a.Path,
		LastModified:    newerTimestamp(a.LastModified, b.LastModified),
		ChangeFrequency: models.MoreFrequent(a.ChangeFrequency, b.ChangeFrequency),
		Priority:        max(a.Priority, b.Priority),
	}
}

// newerTimestamp prefers whichever value parses; when both parse the later
// instant wins and a tie keeps a.
func newerTimestamp(a, b string) string {
	ta, okA := models.ParseTimestamp(a)
	tb, okB := models.ParseTimestamp(b)
	switch {
	case okA && okB:
		if tb.After(ta) {
			return b
		}
		return a
	case okB:
		return b
	default:
		return a
	}
}
