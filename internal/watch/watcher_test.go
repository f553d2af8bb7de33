package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu   sync.Mutex
	tags [][]string
}

func (r *recorder) Invalidate(tags ...string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags = append(r.tags, tags)
	return 1
}

func (r *recorder) calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.tags...)
}

func startWatcher(t *testing.T, root string, rec *recorder) *Watcher {
	t.Helper()
	w, err := New(root, rec, nil, "sitemap-static")
	require.NoError(t, err)
	w.SetDebounce(50 * time.Millisecond)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w
}

func TestWatcherInvalidatesOnWrite(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "cars"), 0o755))
	rec := &recorder{}
	w := startWatcher(t, root, rec)

	require.NoError(t, os.WriteFile(filepath.Join(root, "cars", "page.tsx"), []byte("x"), 0o644))

	assert.Eventually(t, func() bool { return len(rec.calls()) == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"sitemap-static"}, rec.calls()[0])
	assert.Equal(t, 1, w.Fired())
}

func TestWatcherDebouncesBursts(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	startWatcher(t, root, rec)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "page.tsx"), []byte{byte(i)}, 0o644))
	}

	assert.Eventually(t, func() bool { return len(rec.calls()) >= 1 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Len(t, rec.calls(), 1)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	startWatcher(t, root, rec)

	dir := filepath.Join(root, "offers")
	require.NoError(t, os.Mkdir(dir, 0o755))
	assert.Eventually(t, func() bool { return len(rec.calls()) == 1 }, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.tsx"), []byte("x"), 0o644))
	assert.Eventually(t, func() bool { return len(rec.calls()) == 2 }, 3*time.Second, 10*time.Millisecond)
}

func TestWatcherStartMissingRoot(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing"), &recorder{}, nil)
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
	w.Stop()
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), &recorder{}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
}
