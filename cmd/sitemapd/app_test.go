package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dacars/sitemapd/config"
	"github.com/dacars/sitemapd/internal/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"", "cars", "api/health", "[slug]"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, dir, "page.tsx"), []byte("export default function Page() {}"), 0o644))
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
site:
  locales: [ro, en]
pages:
  root: `+root+`
  watch: false
cache:
  driver: none
`), 0o644))

	c, err := config.LoadConfig(path)
	require.NoError(t, err)
	return c
}

func TestAppBuildWithoutContentAPI(t *testing.T) {
	a, err := newApp(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	res, err := a.build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceFallback, res.Source)
	assert.Len(t, res.Records, 3*res.EntryCount)

	byURL := map[string]models.Record{}
	for _, r := range res.Records {
		byURL[r.URL] = r
	}
	require.Contains(t, byURL, "https://dacars.ro/en/cars")
	assert.Equal(t, models.ChangeDaily, byURL["https://dacars.ro/en/cars"].ChangeFrequency)
	assert.Equal(t, 0.9, byURL["https://dacars.ro/en/cars"].Priority)
	assert.NotContains(t, byURL, "https://dacars.ro/api/health")
}

func TestRunBuildWritesSitemap(t *testing.T) {
	cfg = testConfig(t)
	logger = zap.NewNop()
	buildOut = filepath.Join(t.TempDir(), "public", "sitemap.xml")
	t.Cleanup(func() { buildOut = "" })

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	require.NoError(t, runBuild(cmd, nil))

	data, err := os.ReadFile(buildOut)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<?xml"))
	assert.Contains(t, string(data), "<loc>https://dacars.ro/ro/cars</loc>")
}

func TestNewCacheStoreRejectsUnknownDriver(t *testing.T) {
	c := testConfig(t)
	c.Cache.Driver = "redis"
	_, err := newCacheStore(c, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported cache driver")
}
