package ports

import "context"

// FileWatcher monitors a directory for source-file changes so newly
// dropped or modified files can be scanned without a manual trigger
// (spec.md §4.3 "Pre-ingest (scan)" names hashing/scanning as the
// trigger-agnostic front door; FileWatcher is one such trigger).
type FileWatcher interface {
	// Watch starts monitoring dir and emits events until ctx is canceled.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)
	// Stop stops the watcher.
	Stop() error
}

// FileEvent is a file system change surfaced by a FileWatcher.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
