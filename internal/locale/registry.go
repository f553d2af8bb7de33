// Package locale holds the supported-language registry and the rule that
// rewrites site paths into their locale-prefixed form.
package locale

import (
	"fmt"
	"strings"
)

// Registry is the ordered set of supported locale codes and the fallback.
type Registry struct {
	locales  []string
	fallback string
}

// NewRegistry validates and normalizes the locale list. The default locale
// must be part of it.
func NewRegistry(locales []string, defaultLocale string) (Registry, error) {
	seen := make(map[string]struct{}, len(locales))
	out := make([]string, 0, len(locales))
	for _, l := range locales {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	if len(out) == 0 {
		return Registry{}, fmt.Errorf("no locales configured")
	}
	def := strings.ToLower(strings.TrimSpace(defaultLocale))
	if def == "" {
		def = out[0]
	}
	if _, ok := seen[def]; !ok {
		return Registry{}, fmt.Errorf("default locale %q is not in %v", def, out)
	}
	return Registry{locales: out, fallback: def}, nil
}

// Locales returns a copy of the supported codes in configured order.
func (r Registry) Locales() []string {
	out := make([]string, len(r.locales))
	copy(out, r.locales)
	return out
}

func (r Registry) Default() string { return r.fallback }

// Has reports whether code is supported, ignoring case.
func (r Registry) Has(code string) bool {
	for _, l := range r.locales {
		if strings.EqualFold(l, code) {
			return true
		}
	}
	return false
}
