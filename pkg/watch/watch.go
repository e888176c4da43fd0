// Package watch feeds workspace file changes into the telemetry pipeline
// for editors that do not push change notifications themselves. Changes are
// debounced per file and delivered sequentially, so per-file ordering holds.
package watch

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler receives the full text of a changed file.
type Handler func(uri, text string)

// Watcher monitors directories and delivers debounced file changes.
type Watcher struct {
	fs       *fsnotify.Watcher
	paths    []string
	debounce time.Duration
	handler  Handler
	log      *slog.Logger

	mu    sync.Mutex
	dirty map[string]time.Time

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher over paths. Each changed file is read and handed to
// handler once it has been quiet for the debounce interval.
func New(paths []string, debounce time.Duration, handler Handler, logger *slog.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	return &Watcher{
		fs:       fs,
		paths:    paths,
		debounce: debounce,
		handler:  handler,
		log:      logger,
		dirty:    make(map[string]time.Time),
		done:     make(chan struct{}),
	}, nil
}

// Start registers the watch paths and launches the event and flush loops.
func (w *Watcher) Start() error {
	for _, p := range w.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		if err := w.fs.Add(abs); err != nil {
			return err
		}
	}
	w.wg.Add(2)
	go w.eventLoop()
	go w.flushLoop()
	return nil
}

// Stop shuts the watcher down and waits for in-flight deliveries.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	return w.fs.Close()
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			info, err := os.Stat(ev.Name)
			if err != nil || info.IsDir() {
				continue
			}
			w.mu.Lock()
			w.dirty[ev.Name] = time.Now()
			w.mu.Unlock()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

// flushLoop delivers files that have been quiet for the debounce interval.
// Deliveries happen on this single goroutine, which keeps them ordered.
func (w *Watcher) flushLoop() {
	defer w.wg.Done()
	tick := w.debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case now := <-ticker.C:
			for _, path := range w.takeStable(now) {
				w.deliver(path)
			}
		}
	}
}

// takeStable removes and returns every dirty path quiet for the debounce
// interval, oldest first.
func (w *Watcher) takeStable(now time.Time) []string {
	threshold := now.Add(-w.debounce)
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for path, last := range w.dirty {
		if last.Before(threshold) {
			out = append(out, path)
		}
	}
	for _, path := range out {
		delete(w.dirty, path)
	}
	return out
}

func (w *Watcher) deliver(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		w.log.Warn("watch read failed", "path", path, "error", err)
		return
	}
	w.handler("file://"+path, string(data))
}
