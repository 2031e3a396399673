// Package signals lets an operator steer a running process by creating files
// in a signals directory.
//
//	simple-only  while present, complex queries skip the deep path
//	drain        when created, a running server shuts down gracefully
package signals

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Signal file names.
const (
	SimpleOnly = "simple-only"
	Drain      = "drain"
)

// pollInterval is used when fsnotify is unavailable.
const pollInterval = time.Second

// Watcher tracks signal files in a directory.
type Watcher struct {
	dir string

	mu         sync.RWMutex
	simpleOnly bool

	drainOnce sync.Once
	drainCh   chan struct{}

	watcher   *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
	debugLog  func(format string, args ...interface{})
}

// NewWatcher watches <dataDir>/signals, creating it if needed.
// If fsnotify cannot be started, it falls back to polling.
func NewWatcher(dataDir string, opts ...Option) (*Watcher, error) {
	dir := filepath.Join(dataDir, "signals")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create signals directory: %w", err)
	}

	w := &Watcher{
		dir:      dir,
		drainCh:  make(chan struct{}),
		done:     make(chan struct{}),
		debugLog: func(format string, args ...interface{}) {},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.refresh()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		go w.poll()
		return w, nil
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		go w.poll()
		return w, nil
	}
	w.watcher = watcher
	go w.watch()
	return w, nil
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebugLog sets the debug logging function.
func WithDebugLog(fn func(format string, args ...interface{})) Option {
	return func(w *Watcher) {
		if fn != nil {
			w.debugLog = fn
		}
	}
}

func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			base := filepath.Base(event.Name)
			present := event.Op&(fsnotify.Create|fsnotify.Write) != 0
			removed := event.Op&(fsnotify.Remove|fsnotify.Rename) != 0
			switch base {
			case SimpleOnly:
				if present || removed {
					w.setSimpleOnly(present)
				}
			case Drain:
				if present {
					w.triggerDrain()
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.debugLog("[signals] watcher error: %v", err)
		}
	}
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.refresh()
		}
	}
}

// refresh reads signal state from disk.
func (w *Watcher) refresh() {
	w.setSimpleOnly(w.exists(SimpleOnly))
	if w.exists(Drain) {
		w.triggerDrain()
	}
}

func (w *Watcher) setSimpleOnly(v bool) {
	w.mu.Lock()
	changed := w.simpleOnly != v
	w.simpleOnly = v
	w.mu.Unlock()
	if changed {
		w.debugLog("[signals] simple-only=%v", v)
	}
}

func (w *Watcher) triggerDrain() {
	w.drainOnce.Do(func() {
		w.debugLog("[signals] drain requested")
		close(w.drainCh)
	})
}

func (w *Watcher) exists(name string) bool {
	_, err := os.Stat(filepath.Join(w.dir, name))
	return err == nil
}

// SimpleOnlyActive reports whether the deep path is suspended.
// The file is checked directly in case the watcher missed an event.
func (w *Watcher) SimpleOnlyActive() bool {
	if w == nil {
		return false
	}
	w.setSimpleOnly(w.exists(SimpleOnly))
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.simpleOnly
}

// DrainRequested is closed once a drain signal is seen.
func (w *Watcher) DrainRequested() <-chan struct{} {
	return w.drainCh
}

// Send creates a signal file.
func (w *Watcher) Send(name string) error {
	path := filepath.Join(w.dir, name)
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// Clear removes a signal file. A drain that already fired stays fired.
func (w *Watcher) Clear(name string) error {
	err := os.Remove(filepath.Join(w.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if name == SimpleOnly {
		w.setSimpleOnly(false)
	}
	return nil
}

// Dir returns the signals directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Close stops watching.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		if w.watcher != nil {
			w.watcher.Close()
		}
	})
}
