package content

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dacars/sitemapd/internal/models"
)

//go:embed default.yaml
var defaultStatic []byte

// Static is the hand-maintained sitemap content: frequency/priority
// overrides for discovered pages, the documentation pages, and the blog posts
// served when the content API cannot be reached.
type Static struct {
	Pages         []models.PageOverride `yaml:"pages"`
	Docs          []models.DocPage      `yaml:"docs"`
	FallbackPosts []models.BlogPost     `yaml:"fallbackPosts"`
}

// LoadStatic reads static content from path, or the embedded defaults when
// path is empty.
func LoadStatic(path string) (*Static, error) {
	if path == "" {
		return ParseStatic(defaultStatic)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseStatic(b)
}

func ParseStatic(b []byte) (*Static, error) {
	var s Static
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse static content: %w", err)
	}
	for i, p := range s.Pages {
		if p.ChangeFrequency != "" && !p.ChangeFrequency.Valid() {
			return nil, fmt.Errorf("pages[%d]: unknown changeFrequency %q", i, p.ChangeFrequency)
		}
		if p.Priority != nil && (*p.Priority < 0 || *p.Priority > 1) {
			return nil, fmt.Errorf("pages[%d]: priority %v out of [0,1]", i, *p.Priority)
		}
	}
	return &s, nil
}
