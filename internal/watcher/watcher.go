// Package watcher notifies when a single file (typically the settings
// file) is written, replaced or removed.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce coalesces bursts of events from editors that write a
// file in several steps.
const DefaultDebounce = 200 * time.Millisecond

// Watcher monitors a file and calls onChange after it changes.
// It watches the parent directory since editors often replace files by
// rename, which drops a watch placed on the file itself.
type Watcher struct {
	watcher    *fsnotify.Watcher
	ctx        context.Context
	onChange   func()
	cancel     context.CancelFunc
	timer      *time.Timer
	targetPath string
	parentPath string
	wg         sync.WaitGroup
	debounce   time.Duration
	mu         sync.Mutex
	running    bool
	closed     bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a new Watcher for the given target path.
func New(targetPath string, onChange func(), opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	target := filepath.Clean(targetPath)

	w := &Watcher{
		targetPath: target,
		parentPath: filepath.Dir(target),
		onChange:   onChange,
		watcher:    fsw,
		ctx:        ctx,
		cancel:     cancel,
		debounce:   DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. The parent directory must exist.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running || w.closed {
		return nil
	}

	if _, err := os.Stat(w.parentPath); err != nil {
		return err
	}
	if err := w.watcher.Add(w.parentPath); err != nil {
		return err
	}

	w.running = true
	w.wg.Add(1)
	go w.watchLoop()
	return nil
}

// Stop stops the watcher and waits for the event loop to exit. A pending
// debounced callback is dropped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.running = false
	w.cancel()
	if w.timer != nil {
		w.timer.Stop()
	}
	err := w.watcher.Close()
	w.mu.Unlock()

	w.wg.Wait()
	return err
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.targetPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug().Str("path", w.targetPath).Str("op", event.Op.String()).Msg("Watched file changed")
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()
	if !running || w.onChange == nil {
		return
	}
	log.Info().Str("path", w.targetPath).Msg("Triggering change callback")
	w.onChange()
}
