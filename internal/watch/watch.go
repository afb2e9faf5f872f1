// Package watch notifies the daemon when its config file changes on disk.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to settle.
const DefaultDebounce = 100 * time.Millisecond

// Event reports that the watched file changed.
type Event struct {
	Path    string
	Removed bool
}

// FileWatcher monitors a single file through its parent directory so that
// editors replacing the file by rename are still noticed.
type FileWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	events  chan Event
	errors  chan error

	debounceDelay time.Duration
	timer         *time.Timer
	lastOp        fsnotify.Op
	timerMu       sync.Mutex

	stopCh    chan struct{}
	stoppedCh chan struct{}
	running   bool
	runningMu sync.Mutex
}

// New creates a watcher for path. A zero debounce selects DefaultDebounce.
func New(path string, debounce time.Duration) *FileWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &FileWatcher{
		path:          filepath.Clean(path),
		events:        make(chan Event, 16),
		errors:        make(chan error, 4),
		debounceDelay: debounce,
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
	}
}

// Path returns the watched file.
func (w *FileWatcher) Path() string {
	return w.path
}

// Start begins watching. The parent directory must exist; the file itself need not.
func (w *FileWatcher) Start() error {
	w.runningMu.Lock()
	defer w.runningMu.Unlock()

	if w.running {
		return nil
	}

	dir := filepath.Dir(w.path)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.watcher = watcher

	w.running = true
	go w.watchLoop()

	return nil
}

// Stop terminates the watcher and closes the events channel.
func (w *FileWatcher) Stop() {
	w.runningMu.Lock()
	if !w.running {
		w.runningMu.Unlock()
		return
	}
	w.running = false
	w.runningMu.Unlock()

	close(w.stopCh)
	<-w.stoppedCh

	w.watcher.Close()

	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.timerMu.Unlock()

	close(w.events)
}

// Events returns the channel of debounced change notifications.
func (w *FileWatcher) Events() <-chan Event {
	return w.events
}

// Errors returns watcher errors. Sends are dropped when nobody reads.
func (w *FileWatcher) Errors() <-chan error {
	return w.errors
}

func (w *FileWatcher) watchLoop() {
	defer close(w.stoppedCh)

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.debounce(event.Op)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *FileWatcher) debounce(op fsnotify.Op) {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.lastOp = op
	w.timer = time.AfterFunc(w.debounceDelay, w.fire)
}

func (w *FileWatcher) fire() {
	w.timerMu.Lock()
	op := w.lastOp
	w.timerMu.Unlock()

	removed := false
	if op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if _, err := os.Stat(w.path); os.IsNotExist(err) {
			removed = true
		}
	}

	w.runningMu.Lock()
	defer w.runningMu.Unlock()
	if !w.running {
		return
	}
	select {
	case w.events <- Event{Path: w.path, Removed: removed}:
	default:
		// Channel full, a reload is already pending
	}
}
