package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ChangeListener is notified when something inside a watched directory changes.
type ChangeListener interface {
	OnChanged(logger zerolog.Logger)
}

// ChangeListenerFunc adapts a function to ChangeListener.
type ChangeListenerFunc func(logger zerolog.Logger)

func (f ChangeListenerFunc) OnChanged(logger zerolog.Logger) { f(logger) }

const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Watcher fans out filesystem events for directories to registered listeners.
type Watcher struct {
	w *fsnotify.Watcher
	m map[string][]ChangeListener
	l zerolog.Logger

	mut sync.Mutex
}

// New creates a Watcher. Call Start to begin dispatching events.
func New(logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	return &Watcher{w: fsw, m: make(map[string][]ChangeListener), l: logger}, nil
}

// Add registers cl for changes of files directly inside dir.
func (w *Watcher) Add(dir string, cl ChangeListener) error {
	dir = filepath.Clean(dir)

	w.mut.Lock()
	defer w.mut.Unlock()

	list, ok := w.m[dir]
	if !ok {
		if err := w.w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}

		w.m[dir] = []ChangeListener{cl}
	} else {
		w.m[dir] = append(list, cl)
	}

	return nil
}

// Start dispatches events in the background until Stop is called.
func (w *Watcher) Start(_ context.Context) error {
	w.l.Debug().Msg("Starting watching template files for changes")

	go w.startWatching()

	return nil
}

// Stop closes the underlying fsnotify watcher.
func (w *Watcher) Stop(_ context.Context) error {
	w.l.Debug().Msg("Stopping watching template files for changes")

	return w.w.Close()
}

func (w *Watcher) startWatching() {
	for {
		select {
		case evt, ok := <-w.w.Events:
			if !ok {
				w.l.Debug().Msg("Template watcher closed")

				return
			}

			if evt.Op&relevantOps != 0 {
				w.fireOnChange(evt)
			}
		case err, ok := <-w.w.Errors:
			if !ok {
				w.l.Debug().Msg("Template watcher error channel closed")

				return
			}

			w.l.Warn().Err(err).Msg("Template watcher error received")
		}
	}
}

func (w *Watcher) fireOnChange(evt fsnotify.Event) {
	w.mut.Lock()
	listeners := w.m[filepath.Dir(evt.Name)]
	w.mut.Unlock()

	for _, listener := range listeners {
		go listener.OnChanged(w.l.With().Str("_file", evt.Name).Str("_op", evt.Op.String()).Logger())
	}
}
