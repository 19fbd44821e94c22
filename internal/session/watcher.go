package session

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/gridwarp/internal/logger"
)

// DefaultDebounce is how long a file must stay quiet before a change is
// reported. Editors often write a file in several steps.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports changes to a fixed set of files. It watches the parent
// directories so that files replaced by rename are still seen.
type Watcher struct {
	fs      *fsnotify.Watcher
	files   map[string]struct{}
	changes chan string
	delay   time.Duration
}

// NewWatcher starts watching paths. A delay of 0 uses DefaultDebounce.
func NewWatcher(delay time.Duration, paths ...string) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fs:      fsw,
		files:   make(map[string]struct{}, len(paths)),
		changes: make(chan string),
		delay:   delay,
	}

	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	return w, nil
}

// Changes delivers the absolute path of each changed file. It is closed when
// Run returns.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Run forwards debounced changes until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.changes)

	timer := time.NewTimer(w.delay)
	timer.Stop()
	defer timer.Stop()

	pending := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case e, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(e) {
				continue
			}
			logger.Debug("watched file changed", zap.String("path", e.Name), zap.Stringer("op", e.Op))
			pending[filepath.Clean(e.Name)] = struct{}{}
			timer.Reset(w.delay)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", zap.Error(err))

		case <-timer.C:
			for p := range pending {
				delete(pending, p)
				select {
				case w.changes <- p:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

func (w *Watcher) relevant(e fsnotify.Event) bool {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return false
	}
	_, ok := w.files[filepath.Clean(e.Name)]
	return ok
}

// Close stops watching. A running Run returns shortly after.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
