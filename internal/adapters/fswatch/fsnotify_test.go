package fswatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ingestgraph/corpus/internal/domain/ports"
)

func TestWatcher_Creation(t *testing.T) {
	watcher, err := New([]string{".txt", ".pdf"})
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer watcher.Stop()
}

func TestWatcher_DefaultExtensions(t *testing.T) {
	watcher, _ := New(nil)
	defer watcher.Stop()

	if len(watcher.extensions) != 7 {
		t.Errorf("expected 7 default extensions, got %d", len(watcher.extensions))
	}
}

func TestWatcher_WatchDirectory(t *testing.T) {
	dir, _ := os.MkdirTemp("", "watcher-test-*")
	defer os.RemoveAll(dir)

	watcher, _ := New([]string{".txt"})
	defer watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := watcher.Watch(ctx, dir)
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		os.WriteFile(filepath.Join(dir, "test.txt"), []byte("hi"), 0644)
	}()

	select {
	case event := <-events:
		if event.Operation != ports.FileCreated {
			t.Errorf("expected create event, got %v", event.Operation)
		}
	case <-ctx.Done():
		t.Error("timeout waiting for event")
	}
}

func TestWatcher_FiltersByExtension(t *testing.T) {
	dir, _ := os.MkdirTemp("", "watcher-test-*")
	defer os.RemoveAll(dir)

	watcher, _ := New([]string{".txt"})
	defer watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	events, _ := watcher.Watch(ctx, dir)

	os.WriteFile(filepath.Join(dir, "test.json"), []byte("{}"), 0644)

	select {
	case <-events:
		t.Error("should not receive event for .json")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_Stop(t *testing.T) {
	watcher, _ := New(nil)
	if err := watcher.Stop(); err != nil {
		t.Errorf("stop failed: %v", err)
	}
}
