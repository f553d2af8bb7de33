// Package watch invalidates cached sitemap tiers when the page tree changes
// on disk.
package watch

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Invalidator drops cache entries by tag. *cache.Cache implements it.
type Invalidator interface {
	Invalidate(tags ...string) int
}

const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a directory tree and, once changes settle for the debounce
// window, invalidates its tags.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	root     string
	tags     []string
	target   Invalidator
	logger   *zap.Logger
	debounce time.Duration
	pending  bool
	lastSeen time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	fired    int
}

// New creates a watcher for root. Nothing is watched until Start.
func New(root string, target Invalidator, logger *zap.Logger, tags ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		watcher:  w,
		root:     root,
		tags:     tags,
		target:   target,
		logger:   logger,
		debounce: DefaultDebounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// SetDebounce changes the quiet period. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// Start adds root and all its subdirectories, then runs the event loop in a
// goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addTree(w.root); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		w.watcher.Close()
		return err
	}
	w.logger.Info("watching page tree", zap.String("root", w.root), zap.Strings("tags", w.tags))

	go w.run(ctx)
	return nil
}

// Stop ends the loop and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Error("close watcher", zap.Error(err))
	}
}

// Fired returns how many invalidations the watcher has issued.
func (w *Watcher) Fired() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := time.NewTicker(w.tickInterval())
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", zap.Error(err))
		case <-tick.C:
			w.flush()
		}
	}
}

func (w *Watcher) tickInterval() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if d := w.debounce / 5; d > time.Millisecond {
		return d
	}
	return time.Millisecond
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	w.logger.Debug("page tree changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))

	// new directories are not watched recursively by fsnotify
	if event.Has(fsnotify.Create) {
		if err := w.addTree(event.Name); err != nil {
			w.logger.Debug("watch new path", zap.String("path", event.Name), zap.Error(err))
		}
	}

	w.mu.Lock()
	w.pending = true
	w.lastSeen = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.pending || time.Since(w.lastSeen) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.fired++
	w.mu.Unlock()

	removed := w.target.Invalidate(w.tags...)
	w.logger.Info("page tree settled, cache invalidated", zap.Int("removed", removed))
}
