package sitemap

import (
	"time"

	"github.com/dacars/sitemapd/internal/models"
)

// ApplyOverrides assigns frequency and priority to discovered pages from the
// override table, falling back to monthly/0.5. Pages without a timestamp get
// generatedAt.
func ApplyOverrides(pages []models.DiscoveredPage, overrides []models.PageOverride, generatedAt time.Time) []models.Entry {
	table := make(map[string]models.PageOverride, len(overrides))
	for _, o := range overrides {
		table[NormalizePath(o.Path)] = o
	}

	out := make([]models.Entry, 0, len(pages))
	for _, p := range pages {
		path := NormalizePath(p.Path)
		lastMod := p.LastModified
		if lastMod.IsZero() {
			lastMod = generatedAt
		}

		e := models.Entry{
			Path:            path,
			LastModified:    models.FormatTimestamp(lastMod),
			ChangeFrequency: models.DefaultChangeFrequency,
			Priority:        models.DefaultPriority,
		}
		if o, ok := table[path]; ok {
			if o.ChangeFrequency != "" {
				e.ChangeFrequency = o.ChangeFrequency
			}
			if o.Priority != nil {
				e.Priority = *o.Priority
			}
		}
		out = append(out, e)
	}
	return out
}
