package fonts

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/nameplate"
)

// watchedOps are the file operations that make a loaded font stale.
const watchedOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// Watch invalidates file-backed families whose font file changes inside
// dir. It blocks until ctx is done.
func (r *Registry) Watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fonts: create watcher: %w", err)
	}
	defer func() {
		_ = w.Close()
	}()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("fonts: watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Op&watchedOps == 0 {
				continue
			}
			for _, name := range r.familiesForPath(event.Name) {
				r.Invalidate(name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			nameplate.Logger().Warn("fonts: watcher error", "dir", dir, "err", err)
		}
	}
}

func (r *Registry) familiesForPath(path string) []string {
	path = filepath.Clean(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for name, f := range r.families {
		if f.path != "" && filepath.Clean(f.path) == path {
			names = append(names, name)
		}
	}
	return names
}
