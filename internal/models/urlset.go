// internal/models/urlset.go
package models

import "encoding/xml"

// SitemapNamespace is the urlset namespace of the sitemaps.org 0.9 protocol.
const SitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// URLSet is the root element of a sitemap document. The same type is used to
// render our own sitemap and to read third-party ones for auditing.
type URLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr,omitempty"`
	URLs    []SitemapURL `xml:"url"`
}

// SitemapURL is one <url> element. Priority is pre-formatted so the document
// controls its own precision.
type SitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// Locs returns the non-empty <loc> values in document order.
func (s URLSet) Locs() []string {
	locs := make([]string, 0, len(s.URLs))
	for _, u := range s.URLs {
		if u.Loc != "" {
			locs = append(locs, u.Loc)
		}
	}
	return locs
}
