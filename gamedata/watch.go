package gamedata

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watcher refreshes a cache when script files under its roots change.
type Watcher struct {
	cache    *Cache
	fs       *fsnotify.Watcher
	debounce time.Duration
	log      *zap.Logger

	// OnRefresh is called after each rebuild, with the error if it failed.
	OnRefresh func(changed []string, err error)
}

// NewWatcher watches every directory under roots.
func NewWatcher(c *Cache, roots []string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{cache: c, fs: fw, debounce: debounce, log: c.log.Named("watch")}

	for _, root := range roots {
		if err := w.addRecursive(root); err != nil {
			fw.Close()

			return nil, err
		}
	}

	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}

		return w.fs.Add(p)
	})
}

// Run processes events until ctx ends. Changes are batched until no event
// arrives for the debounce window, then the cache is refreshed once.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}

			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(ev.Name); err != nil {
						w.log.Warn("watch directory", zap.String("path", ev.Name), zap.Error(err))
					}
				}
			}

			if !w.relevant(ev) {
				continue
			}

			pending[filepath.Clean(ev.Name)] = true

			timer.Reset(w.debounce)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}

			w.log.Warn("watch error", zap.Error(err))
		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}

			clear(pending)

			w.log.Info("script files changed", zap.Int("files", len(changed)))

			err := w.cache.Refresh(ctx, changed...)
			if err != nil {
				w.log.Error("refresh failed", zap.Error(err))
			}

			if w.OnRefresh != nil {
				w.OnRefresh(changed, err)
			}
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}

	switch strings.ToLower(filepath.Ext(ev.Name)) {
	case ".txt", ".gui", ".gfx", ".asset":
		return true
	}

	return false
}

// Close stops watching.
func (w *Watcher) Close() error { return w.fs.Close() }
