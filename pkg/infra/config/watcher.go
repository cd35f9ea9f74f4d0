// Package config watches data files and notifies subscribers when they change.
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"
)

// DefaultDebounce 合并同一次保存产生的多个事件。
const DefaultDebounce = 500 * time.Millisecond

// ChangeHandler is invoked after the watched file settles. Returning an error
// keeps the previous state; the watcher only logs it.
type ChangeHandler func(ctx context.Context, path string) error

// Watcher watches a single file. The parent directory is watched so that
// editors and tools that replace the file by rename are still seen.
type Watcher struct {
	path     string
	debounce time.Duration

	mu       sync.RWMutex
	handlers map[string]ChangeHandler
	watching bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewWatcher creates a watcher for path. debounce <= 0 uses DefaultDebounce.
func NewWatcher(path string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		handlers: make(map[string]ChangeHandler),
	}
}

// Subscribe registers a handler under id, replacing any previous one.
func (w *Watcher) Subscribe(id string, handler ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[id] = handler
	logger.Infow("File watcher: handler subscribed", "id", id, "path", w.path)
}

// Unsubscribe removes a handler. Unknown ids are ignored.
func (w *Watcher) Unsubscribe(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.handlers, id)
}

// Start begins watching. It is idempotent and returns once the fsnotify
// watch is registered; events are handled until ctx ends or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watching {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.watching = true
	go w.loop(ctx, fw)

	logger.Infow("File watcher: started", "path", w.path)
	return nil
}

// Stop stops watching and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.watching {
		w.mu.Unlock()
		return
	}
	cancel, done := w.cancel, w.done
	w.watching = false
	w.mu.Unlock()

	cancel()
	<-done
	logger.Infow("File watcher: stopped", "path", w.path)
}

// IsWatching reports whether the event loop is running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// HandlerCount returns the number of registered handlers.
func (w *Watcher) HandlerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.handlers)
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	defer close(w.done)
	defer fw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			// 重置计时器，只在最后一个事件之后触发一次
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warnw("File watcher: error", "path", w.path, "error", err.Error())
		case <-fire:
			fire = nil
			w.notify(ctx)
		}
	}
}

func (w *Watcher) notify(ctx context.Context) {
	w.mu.RLock()
	handlers := make(map[string]ChangeHandler, len(w.handlers))
	for id, h := range w.handlers {
		handlers[id] = h
	}
	w.mu.RUnlock()

	logger.Infow("File changed", "path", w.path)
	for id, h := range handlers {
		if err := h(ctx, w.path); err != nil {
			logger.Errorw("File watcher: handler failed", "id", id, "error", err.Error())
		}
	}
}
