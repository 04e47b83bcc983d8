package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodevs/inoutils/inolog"
)

// publishRecorder wraps Local and records published keys instead of talking
// to a remote backend.
type publishRecorder struct {
	*Local
	published map[string]string
}

func newPublishRecorder(t *testing.T) *publishRecorder {
	t.Helper()
	local, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	return &publishRecorder{Local: local, published: make(map[string]string)}
}

func (p *publishRecorder) Publish(_ context.Context, key string, data io.Reader) (string, error) {
	content, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	p.published[key] = string(content)
	return "https://fake.example.com/" + key, nil
}

func writeSegment(t *testing.T, dir, name string, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
	return path
}

func TestShipClosedSegments(t *testing.T) {
	ctx := context.Background()

	t.Run("ships all but the active segment", func(t *testing.T) {
		logDir := t.TempDir()
		writeSegment(t, logDir, "app_00001"+inolog.Extension, "one")
		writeSegment(t, logDir, "app_00002"+inolog.Extension, "two")
		active := writeSegment(t, logDir, "app_00003"+inolog.Extension, "three")

		store := newPublishRecorder(t)
		urls, err := ShipClosedSegments(ctx, store, logDir, "app", ShipOptions{KeyPrefix: "archive"})
		require.NoError(t, err)

		assert.Len(t, urls, 2)
		assert.Equal(t, "one", store.published["archive/app_00001"+inolog.Extension])
		assert.Equal(t, "two", store.published["archive/app_00002"+inolog.Extension])
		_, ok := store.published["archive/app_00003"+inolog.Extension]
		assert.False(t, ok, "active segment must not be shipped")

		// Segments remain on disk without RemoveAfter.
		_, err = os.Stat(active)
		assert.NoError(t, err)
		_, err = os.Stat(filepath.Join(logDir, "app_00001"+inolog.Extension))
		assert.NoError(t, err)
	})

	t.Run("remove after publishing", func(t *testing.T) {
		logDir := t.TempDir()
		closed := writeSegment(t, logDir, "app_00001"+inolog.Extension, "one")
		active := writeSegment(t, logDir, "app_00002"+inolog.Extension, "two")

		store := newPublishRecorder(t)
		_, err := ShipClosedSegments(ctx, store, logDir, "app", ShipOptions{RemoveAfter: true})
		require.NoError(t, err)

		_, err = os.Stat(closed)
		assert.True(t, os.IsNotExist(err), "closed segment should be deleted")
		_, err = os.Stat(active)
		assert.NoError(t, err, "active segment must survive")
	})

	t.Run("single segment ships nothing", func(t *testing.T) {
		logDir := t.TempDir()
		writeSegment(t, logDir, "app_00001"+inolog.Extension, "only")

		store := newPublishRecorder(t)
		urls, err := ShipClosedSegments(ctx, store, logDir, "app", ShipOptions{})
		require.NoError(t, err)
		assert.Empty(t, urls)
	})

	t.Run("ignores foreign files", func(t *testing.T) {
		logDir := t.TempDir()
		writeSegment(t, logDir, "other_00001"+inolog.Extension, "x")
		writeSegment(t, logDir, "app_00001.txt", "x")
		writeSegment(t, logDir, "app_00001"+inolog.Extension, "one")
		writeSegment(t, logDir, "app_00002"+inolog.Extension, "two")

		store := newPublishRecorder(t)
		urls, err := ShipClosedSegments(ctx, store, logDir, "app", ShipOptions{})
		require.NoError(t, err)
		require.Len(t, urls, 1)
		assert.Contains(t, store.published, "app_00001"+inolog.Extension)
	})

	t.Run("widened suffixes sort after five-digit ones", func(t *testing.T) {
		logDir := t.TempDir()
		writeSegment(t, logDir, "app_99999"+inolog.Extension, "old")
		writeSegment(t, logDir, "app_100000"+inolog.Extension, "active")

		store := newPublishRecorder(t)
		urls, err := ShipClosedSegments(ctx, store, logDir, "app", ShipOptions{})
		require.NoError(t, err)
		require.Len(t, urls, 1)
		assert.Contains(t, store.published, "app_99999"+inolog.Extension)
	})

	t.Run("missing log directory", func(t *testing.T) {
		store := newPublishRecorder(t)
		_, err := ShipClosedSegments(ctx, store, filepath.Join(t.TempDir(), "absent"), "app", ShipOptions{})
		assert.Error(t, err)
	})
}
