package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("telemetry:\n  logging:\n    level: info\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	levels := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(cfg *Config) {
			levels <- cfg.Telemetry.Logging.Level
		})
	}()

	// Give the watch loop a moment to start.
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte("telemetry:\n  logging:\n    level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case level := <-levels:
		if level != "debug" {
			t.Errorf("expected debug, got %q", level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_SkipsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	called := make(chan struct{}, 1)
	go w.Watch(ctx, func(*Config) { called <- struct{}{} })
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte("telemetry:\n  logging:\n    level: loud\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-called:
		t.Fatal("callback ran for an invalid file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNewWatcher_MissingDirectory(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "absent", "config.yaml"), 0, nil)
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
