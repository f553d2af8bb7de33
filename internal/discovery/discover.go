// Package discovery finds the concrete, statically resolvable routes of an
// app-router style page tree.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/dacars/sitemapd/internal/models"
)

var (
	DefaultPageFiles        = []string{"page.tsx", "page.ts", "page.jsx", "page.js", "page.mdx"}
	DefaultExcludedSegments = []string{"api", "admin"}
)

type Options struct {
	// PageFiles are the file names that mark a directory as a route.
	PageFiles []string
	// ExcludedSegments are top-level URL segments skipped with everything
	// below them.
	ExcludedSegments []string
}

// Discoverer walks a page tree. The tree is any fs.FS rooted at the page
// directory, so tests can hand it an in-memory tree.
type Discoverer struct {
	fsys     fs.FS
	markers  map[string]struct{}
	excluded map[string]struct{}
}

func New(fsys fs.FS, opts Options) *Discoverer {
	if len(opts.PageFiles) == 0 {
		opts.PageFiles = DefaultPageFiles
	}
	if opts.ExcludedSegments == nil {
		opts.ExcludedSegments = DefaultExcludedSegments
	}
	return &Discoverer{
		fsys:     fsys,
		markers:  toSet(opts.PageFiles),
		excluded: toSet(opts.ExcludedSegments),
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// Discover returns every concrete route of the tree sorted by path.
// Filesystem errors are returned as-is (wrapped), never skipped.
func (d *Discoverer) Discover(ctx context.Context) ([]models.DiscoveredPage, error) {
	pages, err := d.walk(ctx, ".", nil)
	if err != nil {
		return nil, err
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Path < pages[j].Path })
	return pages, nil
}

func (d *Discoverer) walk(ctx context.Context, dir string, segments []string) ([]models.DiscoveredPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(d.fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var (
		out       []models.DiscoveredPage
		latest    time.Time
		hasMarker bool
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := d.markers[e.Name()]; !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path.Join(dir, e.Name()), err)
		}
		hasMarker = true
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	if hasMarker && !hasDynamicSegment(segments) {
		out = append(out, models.DiscoveredPage{Path: routePath(segments), LastModified: latest})
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		next, ok := d.childSegments(segments, name)
		if !ok {
			continue
		}
		pages, err := d.walk(ctx, path.Join(dir, name), next)
		if err != nil {
			return nil, err
		}
		out = append(out, pages...)
	}
	return out, nil
}

// childSegments returns the accumulated segments for a subdirectory and
// whether it should be visited at all.
func (d *Discoverer) childSegments(segments []string, name string) ([]string, bool) {
	if len(segments) == 0 {
		if _, ok := d.excluded[name]; ok {
			return nil, false
		}
	}
	switch {
	case strings.HasPrefix(name, "@"), strings.HasPrefix(name, "_"), strings.Contains(name, "."):
		return nil, false
	case isDynamic(name):
		return nil, false
	case isGroup(name):
		return segments, true
	}
	next := make([]string, len(segments), len(segments)+1)
	copy(next, segments)
	return append(next, name), true
}

func isGroup(name string) bool {
	return strings.HasPrefix(name, "(") && strings.HasSuffix(name, ")")
}

func isDynamic(name string) bool {
	return strings.ContainsAny(name, "[]")
}

func hasDynamicSegment(segments []string) bool {
	for _, s := range segments {
		if isDynamic(s) {
			return true
		}
	}
	return false
}

func routePath(segments []string) string {
	if len(segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(segments, "/")
}
