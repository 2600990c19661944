package approval

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"planforge/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a markdown plan file and re-parses it whenever it
// changes. Editors that save via rename-and-replace are handled by
// watching the containing directory rather than the file itself.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	source      Source
	onParse     func([]Aspect)
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a watcher for the given plan file. onParse is called
// with the freshly parsed forest after each settled change.
func NewWatcher(path string, source Source, onParse func([]Aspect)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		path:        filepath.Clean(path),
		source:      source,
		onParse:     onParse,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond, // Debounce rapid saves
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	logging.Parser("Watching plan file: %s", w.path)

	go w.run()
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
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
		logging.Get(logging.CategoryParser).Error("Watcher: error closing: %v", err)
	}
	logging.Parser("Watcher: stopped")
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

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
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.debounceMap[w.path] = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryParser).Error("Watcher error: %v", err)

		case <-debounceTicker.C:
			w.processDebounced()
		}
	}
}

// processDebounced re-parses the file once changes have settled.
func (w *Watcher) processDebounced() {
	w.mu.Lock()
	last, pending := w.debounceMap[w.path]
	if !pending || time.Since(last) < w.debounceDur {
		w.mu.Unlock()
		return
	}
	delete(w.debounceMap, w.path)
	w.mu.Unlock()

	data, err := os.ReadFile(w.path)
	if err != nil {
		logging.Get(logging.CategoryParser).Warn("Watcher: cannot read %s: %v", w.path, err)
		return
	}

	aspects := Parse(string(data), w.source)
	logging.ParserDebug("Watcher: re-parsed %s into %d aspects", w.path, len(aspects))
	w.onParse(aspects)
}
