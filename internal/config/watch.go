package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to config files. It watches the containing
// directories so editors that replace files on save are noticed.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]struct{}
	debounce time.Duration
}

// NewWatcher watches the given config files. Files that do not exist yet
// are picked up once created.
func NewWatcher(files []string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	out := &Watcher{
		watcher:  w,
		files:    make(map[string]struct{}, len(files)),
		debounce: 250 * time.Millisecond,
	}
	dirs := make(map[string]struct{})
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to resolve %q: %w", f, err)
		}
		out.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return out, nil
}

// Run calls onChange once per burst of changes until ctx is done. Watcher
// errors go to onError, which may be nil.
func (w *Watcher) Run(ctx context.Context, onChange func(), onError func(error)) {
	var pending bool
	var last time.Time
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if _, ok := w.files[filepath.Clean(event.Name)]; !ok {
				continue
			}
			pending = true
			last = time.Now()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if onError != nil {
				onError(err)
			}
		case <-ticker.C:
			if pending && time.Since(last) >= w.debounce {
				pending = false
				onChange()
			}
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
