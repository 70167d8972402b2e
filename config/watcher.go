package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports edits to a stack file. A stack is built once per process,
// so edits made while it runs only take effect on the next start; the
// watcher exists so that can be reported.
type Watcher struct {
	path     string
	onChange func(path string, op fsnotify.Op)
	onError  func(err error)
	fsw      *fsnotify.Watcher
}

// NewWatcher watches the directory holding path and calls onChange for every
// write, create, rename or remove of that file. onError may be nil.
func NewWatcher(path string, onChange func(path string, op fsnotify.Op), onError func(err error)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve stack file path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Editors often replace the file, so the directory is watched instead.
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{path: abs, onChange: onChange, onError: onError, fsw: fsw}, nil
}

// Run delivers events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || event.Op&relevant == 0 {
				continue
			}
			if w.onChange != nil {
				w.onChange(w.path, event.Op)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
