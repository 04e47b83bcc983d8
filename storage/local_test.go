package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLocal(t *testing.T) {
	t.Run("creates directory if not exists", func(t *testing.T) {
		stageDir := filepath.Join(t.TempDir(), "staging", "deep")

		store, err := NewLocal(stageDir)
		if err != nil {
			t.Fatalf("NewLocal() error = %v", err)
		}

		if store.StageDir() != stageDir {
			t.Errorf("StageDir() = %v, want %v", store.StageDir(), stageDir)
		}

		info, err := os.Stat(stageDir)
		if err != nil {
			t.Fatalf("directory not created: %v", err)
		}
		if !info.IsDir() {
			t.Error("expected directory, got file")
		}
	})

	t.Run("uses default directory when empty", func(t *testing.T) {
		store, err := NewLocal("")
		if err != nil {
			t.Fatalf("NewLocal() error = %v", err)
		}

		expected := filepath.Join(os.TempDir(), "inoutils")
		if store.StageDir() != expected {
			t.Errorf("StageDir() = %v, want %v", store.StageDir(), expected)
		}
	})
}

func TestLocalStage(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	t.Run("writes data to staging file", func(t *testing.T) {
		ctx := context.Background()

		path, err := store.Stage(ctx, "clip", bytes.NewReader([]byte("test data")))
		if err != nil {
			t.Fatalf("Stage() error = %v", err)
		}

		if !strings.Contains(path, "clip_") {
			t.Errorf("path %s should contain 'clip_'", path)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read staged file: %v", err)
		}
		if string(content) != "test data" {
			t.Errorf("got %q, want %q", string(content), "test data")
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := store.Stage(ctx, "clip", bytes.NewReader([]byte("data")))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestLocalOpen(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	ctx := context.Background()

	t.Run("reads staged file", func(t *testing.T) {
		path, err := store.Stage(ctx, "read", bytes.NewReader([]byte("payload")))
		if err != nil {
			t.Fatalf("Stage() error = %v", err)
		}

		rc, err := store.Open(ctx, path)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer func() { _ = rc.Close() }()

		content, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(content) != "payload" {
			t.Errorf("got %q, want %q", string(content), "payload")
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		if _, err := store.Open(ctx, filepath.Join(store.StageDir(), "absent")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestLocalRemove(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	ctx := context.Background()

	t.Run("removes files and tolerates missing", func(t *testing.T) {
		p1, err := store.Stage(ctx, "rm", bytes.NewReader([]byte("a")))
		if err != nil {
			t.Fatalf("Stage() error = %v", err)
		}

		err = store.Remove(ctx, []string{p1, filepath.Join(store.StageDir(), "already-gone")})
		if err != nil {
			t.Errorf("Remove() error = %v", err)
		}

		if _, err := os.Stat(p1); !os.IsNotExist(err) {
			t.Error("file should be removed")
		}
	})
}

func TestLocalPublish(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	_, err = store.Publish(context.Background(), "key", bytes.NewReader([]byte("x")))
	if !errors.Is(err, ErrPublishNotConfigured) {
		t.Errorf("expected ErrPublishNotConfigured, got %v", err)
	}
}
