// Package watch reruns a callback when files under a project change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hmjahid/build-studio/internal/logging"
)

// DefaultDebounce is how long the tree must be quiet before a rerun.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches a directory tree.
type Watcher struct {
	Root     string
	Debounce time.Duration
}

// New creates a Watcher for root.
func New(root string) *Watcher {
	return &Watcher{Root: root, Debounce: DefaultDebounce}
}

// Run calls fn after every burst of changes until ctx is done. Calls never
// overlap; changes during a call schedule exactly one more.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context)) error {
	root, err := filepath.Abs(w.Root)
	if err != nil {
		return fmt.Errorf("resolve watch root: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := addDirsRecursive(fw, root); err != nil {
		return err
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	requests, trigger := debouncer(debounce)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker(ctx, requests, fn)
	}()
	defer wg.Wait()

	logging.Debug("watching for changes", "root", root)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if Ignored(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = addDirsRecursive(fw, ev.Name)
				}
			}
			logging.Debug("file change detected", "path", ev.Name, "op", ev.Op.String())
			trigger()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.Warn("watcher error", "error", err)
		}
	}
}

// debouncer returns a request channel and a trigger that fires it once the
// trigger has been quiet for d.
func debouncer(d time.Duration) (chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	requests := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, func() {
			select {
			case requests <- struct{}{}:
			default:
			}
		})
	}
	return requests, trigger
}

// worker runs fn for each request. The request channel holds at most one
// pending request, so changes made during a run coalesce into one rerun.
func worker(ctx context.Context, requests <-chan struct{}, fn func(context.Context)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-requests:
			fn(ctx)
		}
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && Ignored(path) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			logging.Warn("watch add failed", "dir", path, "error", err)
		}
		return nil
	})
}

// Ignored reports whether a change to path should not trigger a rebuild.
// Hidden entries are skipped, which also covers build sandboxes.
func Ignored(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
