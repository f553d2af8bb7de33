package models

import (
	"time"

	"github.com/google/uuid"
)

// BlogPost is the subset of a content API post the sitemap needs.
type BlogPost struct {
	Slug        string  `json:"slug" yaml:"slug"`
	PublishedAt *string `json:"published_at" yaml:"published_at"`
	UpdatedAt   *string `json:"updated_at" yaml:"updated_at"`
}

// DocPage is a statically configured documentation page.
type DocPage struct {
	Slug        string `json:"slug" yaml:"slug"`
	LastUpdated string `json:"lastUpdated" yaml:"lastUpdated"`
}

// PageOverride pins the frequency and priority of a discovered page. Unset
// fields keep the defaults.
type PageOverride struct {
	Path            string          `json:"path" yaml:"path"`
	ChangeFrequency ChangeFrequency `json:"changeFrequency,omitempty" yaml:"changeFrequency,omitempty"`
	Priority        *float64        `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// EntrySource tells where the dynamic blog entries of a build came from.
type EntrySource string

const (
	SourceFetched  EntrySource = "fetched"
	SourceFallback EntrySource = "fallback"
)

type BuildRecord struct {
	ID            uuid.UUID   `json:"id"`
	StartedAt     time.Time   `json:"startedAt"`
	DurationMs    int64       `json:"durationMs"`
	EntryCount    int         `json:"entryCount"`
	URLCount      int         `json:"urlCount"`
	BlogSource    EntrySource `json:"blogSource"`
	FallbackCause string      `json:"fallbackCause,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

type AuditResult struct {
	ID         uuid.UUID         `json:"id"`
	URL        string            `json:"url"`
	StatusCode int               `json:"statusCode"`
	Title      string            `json:"title,omitempty"`
	Lang       string            `json:"lang,omitempty"`
	Canonical  string            `json:"canonical,omitempty"`
	Alternates map[string]string `json:"alternates,omitempty"`
	Issues     []string          `json:"issues,omitempty"`
	CheckedAt  time.Time         `json:"checkedAt"`
}

// OK reports whether the audit found nothing to fix.
func (r *AuditResult) OK() bool {
	return len(r.Issues) == 0
}
