package models

import "time"

// ChangeFrequency is the sitemap protocol hint for how often a page changes.
// The empty value means the frequency is unknown.
type ChangeFrequency string

const (
	ChangeAlways  ChangeFrequency = "always"
	ChangeHourly  ChangeFrequency = "hourly"
	ChangeDaily   ChangeFrequency = "daily"
	ChangeWeekly  ChangeFrequency = "weekly"
	ChangeMonthly ChangeFrequency = "monthly"
	ChangeYearly  ChangeFrequency = "yearly"
	ChangeNever   ChangeFrequency = "never"
)

var changeFrequencyRank = map[ChangeFrequency]int{
	ChangeAlways:  7,
	ChangeHourly:  6,
	ChangeDaily:   5,
	ChangeWeekly:  4,
	ChangeMonthly: 3,
	ChangeYearly:  2,
	ChangeNever:   1,
}

// Rank orders frequencies from never (1) to always (7). Unknown and empty
// values rank 0, below every defined frequency.
func (f ChangeFrequency) Rank() int {
	return changeFrequencyRank[f]
}

// Valid reports whether f is one of the protocol values.
func (f ChangeFrequency) Valid() bool {
	return f.Rank() > 0
}

// MoreFrequent returns whichever of a and b changes more often. On a tie a wins.
func MoreFrequent(a, b ChangeFrequency) ChangeFrequency {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Defaults applied to pages that have no override.
const (
	DefaultChangeFrequency = ChangeMonthly
	DefaultPriority        = 0.5
)

// Entry is one logical, un-localized page of the site.
type Entry struct {
	Path            string          `json:"path"`
	LastModified    string          `json:"lastModified"`
	ChangeFrequency ChangeFrequency `json:"changeFrequency,omitempty"`
	Priority        float64         `json:"priority"`
}

// DiscoveredPage is a concrete route found in the page tree, before
// frequency and priority are assigned.
type DiscoveredPage struct {
	Path         string    `json:"path"`
	LastModified time.Time `json:"lastModified"`
}

// Record is one emitted sitemap URL.
type Record struct {
	URL             string          `json:"url"`
	LastModified    string          `json:"lastModified"`
	ChangeFrequency ChangeFrequency `json:"changeFrequency,omitempty"`
	Priority        float64         `json:"priority"`
}
