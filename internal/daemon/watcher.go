package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Sachin-Mamoru/error-fix-engine/internal/logfields"
)

const defaultDebounce = 2 * time.Second

// catalogWatcher triggers a callback when the catalog file changes. It
// watches the containing directory rather than the file itself, so editors
// that replace the file via rename keep being observed.
type catalogWatcher struct {
	path     string // absolute
	debounce time.Duration
	onChange func()

	watcher *fsnotify.Watcher
	trigger chan struct{}
	done    chan struct{}
}

func newCatalogWatcher(path string, debounce time.Duration, onChange func()) (*catalogWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog path: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch catalog directory: %w", err)
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &catalogWatcher{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		watcher:  watcher,
		trigger:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

func (w *catalogWatcher) start(ctx context.Context) {
	slog.Info("Catalog watcher started", logfields.Path(w.path))
	go w.watchLoop(ctx)
	go w.debounceLoop(ctx)
}

func (w *catalogWatcher) stop() {
	close(w.done)
	if err := w.watcher.Close(); err != nil {
		slog.Warn("Catalog watcher close failed", logfields.Error(err))
	}
}

func (w *catalogWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				slog.Debug("Catalog change detected", logfields.Path(event.Name),
					slog.String("op", event.Op.String()))
				select {
				case w.trigger <- struct{}{}:
				default: // already pending
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Catalog watcher error", logfields.Error(err))
		}
	}
}

// debounceLoop collapses bursts of file events into one callback. Editors and
// sync tools frequently emit several writes for one save.
func (w *catalogWatcher) debounceLoop(ctx context.Context) {
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.trigger:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.onChange)
		}
	}
}
