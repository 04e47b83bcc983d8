package configutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("requires a path", func(t *testing.T) {
		_, err := Load("")
		if !errors.Is(err, ErrPathRequired) {
			t.Errorf("expected ErrPathRequired, got %v", err)
		}
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.ini"))
		require.NoError(t, err)
		assert.Equal(t, "fallback", cfg.Get("any", "key", "fallback"))
	})
}

func TestGet(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[media]
ffmpeg_path = /usr/bin/ffmpeg
padded =    spaced value
empty =
`))
	require.NoError(t, err)

	t.Run("returns stored value", func(t *testing.T) {
		assert.Equal(t, "/usr/bin/ffmpeg", cfg.Get("media", "ffmpeg_path", "ffmpeg"))
	})

	t.Run("trims whitespace", func(t *testing.T) {
		assert.Equal(t, "spaced value", cfg.Get("media", "padded", ""))
	})

	t.Run("empty value returns fallback", func(t *testing.T) {
		assert.Equal(t, "fb", cfg.Get("media", "empty", "fb"))
	})

	t.Run("missing key returns fallback", func(t *testing.T) {
		assert.Equal(t, "fb", cfg.Get("media", "missing", "fb"))
	})

	t.Run("missing section returns fallback", func(t *testing.T) {
		assert.Equal(t, "fb", cfg.Get("nope", "key", "fb"))
	})
}

func TestBool(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[flags]
t1 = true
t2 = YES
t3 = 1
f1 = False
f2 = no
f3 = 0
junk = maybe
`))
	require.NoError(t, err)

	for _, key := range []string{"t1", "t2", "t3"} {
		assert.True(t, cfg.Bool("flags", key, false), key)
	}
	for _, key := range []string{"f1", "f2", "f3"} {
		assert.False(t, cfg.Bool("flags", key, true), key)
	}

	t.Run("unparseable returns fallback", func(t *testing.T) {
		assert.True(t, cfg.Bool("flags", "junk", true))
		assert.False(t, cfg.Bool("flags", "junk", false))
	})

	t.Run("missing returns fallback", func(t *testing.T) {
		assert.True(t, cfg.Bool("flags", "missing", true))
	})
}

func TestSet(t *testing.T) {
	t.Run("persists and survives reload", func(t *testing.T) {
		path := writeConfig(t, "[media]\nquality = 80\n")
		cfg, err := Load(path)
		require.NoError(t, err)

		require.NoError(t, cfg.Set("media", "quality", 92))
		require.NoError(t, cfg.Set("thumbs", "crop", true))

		reloaded, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "92", reloaded.Get("media", "quality", ""))
		assert.True(t, reloaded.Bool("thumbs", "crop", false))
	})

	t.Run("creates file on first set", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "deep", "new.ini")
		cfg, err := Load(path)
		require.NoError(t, err)

		require.NoError(t, cfg.Set("core", "name", "batch"))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(data), "name"))
	})

	t.Run("save-as redirects writes", func(t *testing.T) {
		src := writeConfig(t, "[core]\nname = original\n")
		altPath := filepath.Join(t.TempDir(), "alt.ini")

		cfg, err := Load(src, WithSaveAs(altPath))
		require.NoError(t, err)
		require.NoError(t, cfg.Set("core", "name", "updated"))

		_, err = os.Stat(altPath)
		assert.NoError(t, err)

		// Original file content untouched.
		data, err := os.ReadFile(src)
		require.NoError(t, err)
		assert.Contains(t, string(data), "original")
	})
}

func TestSections(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[alpha]\nk = v\n\n[beta]\nk = v\n"))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"alpha", "beta"}, cfg.Sections())
}
