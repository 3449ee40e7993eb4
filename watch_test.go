package rscript

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchDirectoryReportsNewFile(t *testing.T) {
	dir := t.TempDir()

	events, stop, err := WatchDirectory(dir)
	if err != nil {
		t.Fatalf("WatchDirectory: %v", err)
	}
	defer func() { _ = stop() }()

	target := filepath.Join(dir, "new-script")
	if err := os.WriteFile(target, []byte("x"), 0o755); err != nil {
		t.Fatalf("writing new file: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Path != target {
			t.Fatalf("got event for %q, want %q", ev.Path, target)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a directory event")
	}
}

func TestWatchDirectoryMissingDirectory(t *testing.T) {
	if _, _, err := WatchDirectory(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Fatal("expected an error watching a missing directory")
	}
}
