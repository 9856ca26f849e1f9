// Package fswatch provides the optional directory-watch ingestion
// trigger: a fsnotify-based ports.FileWatcher that feeds created/modified
// files into the orchestrator's scan phase as they appear, instead of
// requiring a manual scan_directory call (spec.md §4.3).
package fswatch

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/ingestgraph/corpus/internal/domain/ports"
)

// Watcher implements ports.FileWatcher using fsnotify, filtering to a set
// of watched extensions.
type Watcher struct {
	watcher    *fsnotify.Watcher
	extensions []string
}

// New creates a Watcher restricted to extensions (defaulting to the
// ingestion-supported set if empty).
func New(extensions []string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if len(extensions) == 0 {
		extensions = []string{".pdf", ".txt", ".md", ".docx", ".png", ".jpg", ".jpeg"}
	}
	return &Watcher{watcher: w, extensions: extensions}, nil
}

// Watch starts monitoring dir and emits events until ctx is canceled.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	events := make(chan ports.FileEvent, 100)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.isWatchedExtension(event.Name) {
					continue
				}

				var op ports.FileOperation
				switch {
				case event.Op&fsnotify.Create == fsnotify.Create:
					op = ports.FileCreated
				case event.Op&fsnotify.Write == fsnotify.Write:
					op = ports.FileModified
				case event.Op&fsnotify.Remove == fsnotify.Remove:
					op = ports.FileDeleted
				default:
					continue
				}

				select {
				case events <- ports.FileEvent{Path: event.Name, Operation: op}:
				case <-ctx.Done():
					return
				}
			case _, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return events, nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) isWatchedExtension(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
