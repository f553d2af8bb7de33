package locale

import (
	"regexp"
	"strings"
)

// DefaultExcludedPrefixes are never locale-prefixed.
var DefaultExcludedPrefixes = []string{"/admin", "/api", "/_next"}

// Kind classifies a link target for rewriting.
type Kind int

const (
	// KindRooted is a site path starting with a single "/"; the only kind
	// that gets rewritten.
	KindRooted Kind = iota
	// KindAbsolute covers "scheme:" URLs and protocol-relative "//host" URLs.
	KindAbsolute
	// KindFragment is an in-page "#anchor" reference.
	KindFragment
	// KindExcluded is a rooted path under an excluded prefix.
	KindExcluded
	// KindRelative is anything not rooted, e.g. "cars" or "?page=2".
	KindRelative
)

func (k Kind) String() string {
	switch k {
	case KindRooted:
		return "rooted"
	case KindAbsolute:
		return "absolute"
	case KindFragment:
		return "fragment"
	case KindExcluded:
		return "excluded"
	default:
		return "relative"
	}
}

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z\d+\-.]*:`)

// Rewriter prefixes site paths with a locale segment.
type Rewriter struct {
	locales  []string
	excluded []string
}

// NewRewriter builds a rewriter for the available locales. A nil excluded
// list means DefaultExcludedPrefixes.
func NewRewriter(locales []string, excluded []string) *Rewriter {
	if excluded == nil {
		excluded = DefaultExcludedPrefixes
	}
	ex := make([]string, 0, len(excluded))
	for _, p := range excluded {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		ex = append(ex, p)
	}
	return &Rewriter{locales: append([]string(nil), locales...), excluded: ex}
}

// Classify tells how Rewrite will treat p.
func (r *Rewriter) Classify(p string) Kind {
	switch {
	case strings.HasPrefix(p, "//"), schemeRe.MatchString(p):
		return KindAbsolute
	case strings.HasPrefix(p, "#"):
		return KindFragment
	case !strings.HasPrefix(p, "/"):
		return KindRelative
	case r.isExcluded(p):
		return KindExcluded
	default:
		return KindRooted
	}
}

// isExcluded matches prefixes as plain string prefixes, so "/admin" also
// covers "/administrator".
func (r *Rewriter) isExcluded(p string) bool {
	for _, prefix := range r.excluded {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// Rewrite returns p with its leading locale segment set to locale. Paths that
// already start with a known locale get that segment replaced; other rooted
// paths get the locale prepended. Non-rooted, absolute, fragment and excluded
// targets come back unchanged. Query and fragment are kept verbatim.
func (r *Rewriter) Rewrite(p, locale string) string {
	if locale == "" || r.Classify(p) != KindRooted {
		return p
	}

	pathname, suffix := splitSuffix(p)
	segments := make([]string, 0, 4)
	for _, s := range strings.Split(pathname, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	if len(segments) == 0 {
		return "/" + locale + suffix
	}

	if r.isLocale(segments[0], locale) {
		segments[0] = locale
	} else {
		segments = append([]string{locale}, segments...)
	}

	out := "/" + strings.Join(segments, "/")
	if strings.HasSuffix(pathname, "/") && !strings.HasSuffix(out, "/") {
		out += "/"
	}
	return out + suffix
}

func (r *Rewriter) isLocale(segment, target string) bool {
	if strings.EqualFold(segment, target) {
		return true
	}
	for _, l := range r.locales {
		if strings.EqualFold(segment, l) {
			return true
		}
	}
	return false
}

// splitSuffix separates the pathname from its "?query" and "#hash" tail.
func splitSuffix(p string) (pathname, suffix string) {
	i := strings.IndexAny(p, "?#")
	if i < 0 {
		return p, ""
	}
	return p[:i], p[i:]
}
