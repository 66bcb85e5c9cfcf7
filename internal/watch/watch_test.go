package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func startWatcher(t *testing.T, files []string, onChange func(context.Context) error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	w := &Watcher{
		Files:    files,
		OnChange: onChange,
		Delay:    20 * time.Millisecond,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		ready:    func() { close(ready) },
	}
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})
	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("Run() returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not start")
	}
}

func TestWatcher_RunsOnChange(t *testing.T) {
	dir := t.TempDir()
	schema := filepath.Join(dir, "api.json")
	if err := os.WriteFile(schema, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	calls := make(chan struct{}, 10)
	startWatcher(t, []string{schema}, func(context.Context) error {
		calls <- struct{}{}
		return nil
	})

	if err := os.WriteFile(schema, []byte(`{"changed": true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("OnChange was not called after the file was written")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	schema := filepath.Join(dir, "api.json")
	if err := os.WriteFile(schema, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	startWatcher(t, []string{schema}, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("OnChange called %d times for an unrelated file", n)
	}
}

func TestWatcher_KeepsRunningAfterError(t *testing.T) {
	dir := t.TempDir()
	schema := filepath.Join(dir, "api.json")
	if err := os.WriteFile(schema, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	calls := make(chan struct{}, 10)
	startWatcher(t, []string{schema}, func(context.Context) error {
		calls <- struct{}{}
		return io.ErrUnexpectedEOF
	})

	for i := range 2 {
		if err := os.WriteFile(schema, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
		select {
		case <-calls:
		case <-time.After(5 * time.Second):
			t.Fatalf("OnChange not called for write %d", i+1)
		}
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := &Watcher{
		Files:    []string{filepath.Join(t.TempDir(), "missing", "api.json")},
		OnChange: func(context.Context) error { return nil },
	}
	if err := w.Run(context.Background()); err == nil {
		t.Error("Run() error = nil, want error for a missing directory")
	}
}
