package sitemap

import (
	"encoding/xml"
	"strconv"

	"github.com/dacars/sitemapd/internal/models"
)

// ToSitemap converts records to the urlset document model.
func ToSitemap(records []models.Record) models.URLSet {
	sm := models.URLSet{
		XMLNS: models.SitemapNamespace,
		URLs:  make([]models.SitemapURL, 0, len(records)),
	}
	for _, r := range records {
		sm.URLs = append(sm.URLs, models.SitemapURL{
			Loc:        r.URL,
			LastMod:    r.LastModified,
			ChangeFreq: string(r.ChangeFrequency),
			Priority:   strconv.FormatFloat(ClampPriority(r.Priority), 'f', 1, 64),
		})
	}
	return sm
}

// MarshalXML renders records as an indented sitemap document.
func MarshalXML(records []models.Record) ([]byte, error) {
	out, err := xml.MarshalIndent(ToSitemap(records), "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}
