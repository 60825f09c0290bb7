package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"steward/pkg/logging"
)

// DirectoryWatcher implements Watcher for directory sources.
//
// It uses fsnotify to watch the manifest tree (including subdirectories) and
// debounces bursts of events; editors and git checkouts touch many files in
// quick succession, which must coalesce into a single reconciliation
// trigger.
type DirectoryWatcher struct {
	mu sync.Mutex

	application string
	path        string

	watcher          *fsnotify.Watcher
	debounceInterval time.Duration
	pending          *time.Timer

	stopCh  chan struct{}
	running bool
}

// NewDirectoryWatcher creates a watcher for one application's manifest
// directory.
func NewDirectoryWatcher(application, path string, debounceInterval time.Duration) *DirectoryWatcher {
	if debounceInterval == 0 {
		debounceInterval = 500 * time.Millisecond
	}
	return &DirectoryWatcher{
		application:      application,
		path:             path,
		debounceInterval: debounceInterval,
		stopCh:           make(chan struct{}),
	}
}

// Start begins watching for filesystem changes.
func (w *DirectoryWatcher) Start(ctx context.Context, events chan<- Event) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	if err := w.addWatchesRecursive(w.path); err != nil {
		w.Stop()
		return err
	}

	go w.processEvents(ctx, events)

	logging.Info("DirectoryWatcher", "Watching %s for application %s", w.path, w.application)
	return nil
}

// Stop gracefully stops the watcher.
func (w *DirectoryWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	close(w.stopCh)

	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

// addWatchesRecursive registers the directory and all non-hidden
// subdirectories with fsnotify. New subdirectories are picked up when their
// creation event arrives.
func (w *DirectoryWatcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// processEvents is the watch loop: filter to YAML changes, debounce, emit.
func (w *DirectoryWatcher) processEvents(ctx context.Context, events chan<- Event) {
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
			w.handleFsEvent(event, events)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("DirectoryWatcher", "Watch error for %s: %v", w.path, err)
		}
	}
}

func (w *DirectoryWatcher) handleFsEvent(event fsnotify.Event, events chan<- Event) {
	// New subdirectories need their own watch before their files do.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addWatchesRecursive(event.Name); err != nil {
				logging.Warn("DirectoryWatcher", "Failed to watch new directory %s: %v", event.Name, err)
			}
			return
		}
	}

	if !isYAMLFile(filepath.Base(event.Name)) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}

	// Debounce: restart the timer on every event, fire once the burst ends.
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounceInterval, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}

		logging.Debug("DirectoryWatcher", "Source change detected for application %s", w.application)
		select {
		case events <- Event{Application: w.application, Timestamp: time.Now()}:
		default:
			// The controller coalesces triggers; a full channel means one
			// is already pending.
		}
	})
}

func isYAMLFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
