// internal/crawler/parser.go
package crawler

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// PageMeta holds the SEO-relevant head data of a page.
type PageMeta struct {
	Title      string
	Lang       string
	Canonical  string
	Alternates map[string]string
}

// ParsePageMeta extracts title, document language, canonical link and
// hreflang alternates from raw HTML.
func ParsePageMeta(body []byte) (*PageMeta, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}
	stripNodes(root)
	doc := goquery.NewDocumentFromNode(root)

	meta := &PageMeta{Alternates: map[string]string{}}
	meta.Title = strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	meta.Lang = strings.TrimSpace(doc.Find("html").First().AttrOr("lang", ""))
	meta.Canonical = strings.TrimSpace(doc.Find("link[rel='canonical']").First().AttrOr("href", ""))

	doc.Find("link[rel='alternate'][hreflang]").Each(func(_ int, s *goquery.Selection) {
		lang := strings.ToLower(strings.TrimSpace(s.AttrOr("hreflang", "")))
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if lang != "" && href != "" {
			meta.Alternates[lang] = href
		}
	})

	return meta, nil
}

// stripNodes removes scripts, styles and comments so text extraction only
// sees rendered content.
func stripNodes(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.CommentNode,
			c.Type == html.ElementNode && (c.Data == "script" || c.Data == "style"):
			n.RemoveChild(c)
		default:
			stripNodes(c)
		}
		c = next
	}
}

// Issues lists what is wrong with a fetched page. locales are the site's
// locale codes; a URL whose first path segment is one of them must declare
// that language.
func Issues(pageURL string, status int, meta *PageMeta, locales []string) []string {
	var issues []string
	if status < 200 || status > 299 {
		issues = append(issues, fmt.Sprintf("unexpected status %d", status))
	}
	if meta == nil {
		return issues
	}
	if meta.Canonical == "" {
		issues = append(issues, "missing canonical link")
	}
	if want := pathLocale(pageURL, locales); want != "" {
		got := primaryLang(meta.Lang)
		if got != want {
			issues = append(issues, fmt.Sprintf("lang mismatch: want %s, got %q", want, meta.Lang))
		}
	}
	return issues
}

func pathLocale(pageURL string, locales []string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	first, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	for _, l := range locales {
		if strings.EqualFold(first, l) {
			return strings.ToLower(l)
		}
	}
	return ""
}

// primaryLang returns the primary subtag, e.g. "en" for "en-GB".
func primaryLang(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	return tag
}
