package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads the section when its file changes and notifies listeners
type Watcher struct {
	path     string
	envFiles []string
	debounce time.Duration
	logger   *slog.Logger

	mu        sync.RWMutex
	current   *AssemblyRegistration
	callbacks []func(*AssemblyRegistration)

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewWatcher loads the section at path. Call Start to begin watching.
func NewWatcher(path string, logger *slog.Logger, envFiles ...string) (*Watcher, error) {
	if path == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	initial, err := Load(abs, envFiles...)
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:     abs,
		envFiles: envFiles,
		debounce: DefaultDebounce,
		logger:   logger,
		current:  initial,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// SetDebounce changes the settle delay. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Current returns the last section loaded successfully
func (w *Watcher) Current() *AssemblyRegistration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a listener called after each successful reload that changed the section
func (w *Watcher) OnChange(callback func(*AssemblyRegistration)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start watches the directory holding the file so that editors replacing it
// by rename are noticed too
func (w *Watcher) Start() error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		_ = fsWatcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}
	w.watcher = fsWatcher

	go w.watchLoop()
	w.logger.Info("Watching container configuration", "path", w.path)
	return nil
}

// Stop ends the watch loop and waits for it to exit
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.watcher != nil {
			<-w.done
		}
	})
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("Configuration file changed", "path", event.Name, "operation", event.Op.String())
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", "error", err)

		case <-w.stopCh:
			w.logger.Info("Stopping configuration watcher", "path", w.path)
			return
		}
	}
}

func (w *Watcher) reload() {
	next, err := Load(w.path, w.envFiles...)
	if err != nil {
		w.logger.Error("Invalid configuration after reload", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	if reflect.DeepEqual(w.current, next) {
		w.mu.Unlock()
		w.logger.Debug("Configuration unchanged after reload", "path", w.path)
		return
	}
	w.current = next
	callbacks := append([]func(*AssemblyRegistration){}, w.callbacks...)
	w.mu.Unlock()

	w.logger.Info("Configuration reloaded", "path", w.path, "assemblies", next.AssemblyNames())
	for i, callback := range callbacks {
		w.notify(i, callback, next)
	}
}

func (w *Watcher) notify(idx int, callback func(*AssemblyRegistration), section *AssemblyRegistration) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Configuration listener panicked", "listener", idx, "panic", r)
		}
	}()
	callback(section)
}
