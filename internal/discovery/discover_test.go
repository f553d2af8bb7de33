package discovery

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dacars/sitemapd/internal/models"
)

var (
	t1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
)

func pageTree() fstest.MapFS {
	return fstest.MapFS{
		"page.tsx":                          {ModTime: t1},
		"layout.tsx":                        {ModTime: t2},
		"cars/page.tsx":                     {ModTime: t1},
		"cars/page.mdx":                     {ModTime: t2},
		"cars/[id]/page.tsx":                {ModTime: t2},
		"cars/[id]/gallery/page.tsx":        {ModTime: t2},
		"(marketing)/about/page.jsx":        {ModTime: t1},
		"(marketing)/(legal)/terms/page.js": {ModTime: t1},
		"(marketing)/admin/page.tsx":        {ModTime: t1},
		"admin/page.tsx":                    {ModTime: t1},
		"admin/users/page.tsx":              {ModTime: t1},
		"api/health/route.ts":               {ModTime: t1},
		"@modal/login/page.tsx":             {ModTime: t1},
		"_components/page.tsx":              {ModTime: t1},
		"docs/page.tsx":                     {ModTime: t1},
		"docs/admin/page.tsx":               {ModTime: t1},
		"docs/v1.2/page.tsx":                {ModTime: t1},
		"contact/form.tsx":                  {ModTime: t1},
	}
}

func TestDiscover(t *testing.T) {
	d := New(pageTree(), Options{})
	pages, err := d.Discover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []models.DiscoveredPage{
		{Path: "/", LastModified: t1},
		{Path: "/about", LastModified: t1},
		{Path: "/cars", LastModified: t2},
		{Path: "/docs", LastModified: t1},
		{Path: "/docs/admin", LastModified: t1},
		{Path: "/terms", LastModified: t1},
	}, pages)
}

func TestDiscoverExcludesDynamicRoutes(t *testing.T) {
	fsys := fstest.MapFS{
		"cars/page.tsx":      {ModTime: t1},
		"cars/[id]/page.tsx": {ModTime: t1},
	}
	pages, err := New(fsys, Options{}).Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "/cars", pages[0].Path)
}

func TestDiscoverCustomOptions(t *testing.T) {
	fsys := fstest.MapFS{
		"index.html":     {ModTime: t1},
		"api/index.html": {ModTime: t1},
		"api/page.tsx":   {ModTime: t1},
	}
	pages, err := New(fsys, Options{PageFiles: []string{"index.html"}, ExcludedSegments: []string{}}).Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "/", pages[0].Path)
	assert.Equal(t, "/api", pages[1].Path)
}

type failingFS struct {
	fstest.MapFS
	fail string
}

func (f failingFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if name == f.fail {
		return nil, fs.ErrPermission
	}
	return f.MapFS.ReadDir(name)
}

func TestDiscoverPropagatesFilesystemErrors(t *testing.T) {
	fsys := failingFS{MapFS: pageTree(), fail: "cars"}
	_, err := New(fsys, Options{}).Discover(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrPermission))
	assert.Contains(t, err.Error(), "cars")
}

func TestDiscoverHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(pageTree(), Options{}).Discover(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
