package connectivity

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"petsync/internal/logging"
)

// stateWatcher watches the directory holding the connectivity state file so
// that atomic replacements (write to temp, rename) are seen as well as writes.
type stateWatcher struct {
	path     string
	logger   *slog.Logger
	onChange func()

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func newStateWatcher(path string, logger *slog.Logger, onChange func()) (*stateWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	clean := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(clean)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(clean), err)
	}
	return &stateWatcher{
		path:     clean,
		logger:   logger,
		onChange: onChange,
		watcher:  watcher,
		done:     make(chan struct{}),
	}, nil
}

func (w *stateWatcher) Start(ctx context.Context) {
	if w == nil {
		return
	}
	w.wg.Add(1)
	go w.processEvents(ctx)
}

func (w *stateWatcher) Stop() {
	if w == nil {
		return
	}
	w.once.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
		w.wg.Wait()
	})
}

func (w *stateWatcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
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
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("state file changed",
				logging.String("path", w.path),
				logging.String("op", event.Op.String()),
			)
			if w.onChange != nil {
				w.onChange()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Debug("state file watcher error", logging.Error(err))
		}
	}
}
