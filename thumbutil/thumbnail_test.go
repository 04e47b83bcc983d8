package thumbutil

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createImage(t *testing.T, path string, width, height int) {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 200, G: 60, B: 30, A: 255})
	require.NoError(t, imaging.Save(img, path))
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, []int{256, 512, 1024}, opts.Sizes)
	assert.Equal(t, 90, opts.Quality)
	assert.False(t, opts.Crop)
}

func TestSquareThumbnails(t *testing.T) {
	ctx := context.Background()

	t.Run("generates exact squares for wide input", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "pano.jpg")
		createImage(t, src, 4000, 2000)

		res := SquareThumbnails(ctx, src, tmpDir, Options{Sizes: []int{256, 512}, Quality: 90})
		require.True(t, res.Succeeded(), res.Message())
		require.Len(t, res.OutputPaths, 2)

		for i, size := range []int{256, 512} {
			want := filepath.Join(tmpDir, fmt.Sprintf("pano_ino_t_%d_.jpg", size))
			assert.Equal(t, want, res.OutputPaths[i])

			img, err := imaging.Open(res.OutputPaths[i])
			require.NoError(t, err)
			assert.Equal(t, size, img.Bounds().Dx())
			assert.Equal(t, size, img.Bounds().Dy())
		}
	})

	t.Run("crop mode also yields exact squares", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "tall.png")
		createImage(t, src, 300, 900)

		res := SquareThumbnails(ctx, src, tmpDir, Options{Sizes: []int{128}, Quality: 85, Crop: true})
		require.True(t, res.Succeeded(), res.Message())

		img, err := imaging.Open(res.OutputPaths[0])
		require.NoError(t, err)
		assert.Equal(t, 128, img.Bounds().Dx())
		assert.Equal(t, 128, img.Bounds().Dy())
	})

	t.Run("already square input", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "square.jpg")
		createImage(t, src, 400, 400)

		res := SquareThumbnails(ctx, src, tmpDir, Options{Sizes: []int{200}, Quality: 90})
		require.True(t, res.Succeeded(), res.Message())

		img, err := imaging.Open(res.OutputPaths[0])
		require.NoError(t, err)
		assert.Equal(t, 200, img.Bounds().Dx())
		assert.Equal(t, 200, img.Bounds().Dy())
	})

	t.Run("output is always jpeg", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "art.png")
		createImage(t, src, 500, 250)

		res := SquareThumbnails(ctx, src, tmpDir, Options{Sizes: []int{64}, Quality: 90})
		require.True(t, res.Succeeded(), res.Message())
		assert.Equal(t, filepath.Join(tmpDir, "art_ino_t_64_.jpg"), res.OutputPaths[0])
	})

	t.Run("empty output dir defaults to image directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "local.jpg")
		createImage(t, src, 300, 200)

		res := SquareThumbnails(ctx, src, "", Options{Sizes: []int{100}, Quality: 90})
		require.True(t, res.Succeeded(), res.Message())
		assert.Equal(t, filepath.Join(tmpDir, "local_ino_t_100_.jpg"), res.OutputPaths[0])
	})

	t.Run("duplicate sizes are dropped", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "dup.jpg")
		createImage(t, src, 300, 200)

		res := SquareThumbnails(ctx, src, tmpDir, Options{Sizes: []int{100, 100, 50}, Quality: 90})
		require.True(t, res.Succeeded(), res.Message())
		assert.Len(t, res.OutputPaths, 2)
	})

	t.Run("creates output directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "img.jpg")
		createImage(t, src, 300, 200)

		out := filepath.Join(tmpDir, "thumbs", "deep")
		res := SquareThumbnails(ctx, src, out, Options{Sizes: []int{80}, Quality: 90})
		require.True(t, res.Succeeded(), res.Message())
		_, err := os.Stat(res.OutputPaths[0])
		assert.NoError(t, err)
	})

	t.Run("missing input", func(t *testing.T) {
		res := SquareThumbnails(ctx, filepath.Join(t.TempDir(), "missing.jpg"), "", Options{Sizes: []int{64}, Quality: 90})
		assert.False(t, res.Succeeded())
		assert.Empty(t, res.OutputPaths)
	})

	t.Run("invalid options", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "img.jpg")
		createImage(t, src, 100, 100)

		for name, opts := range map[string]Options{
			"no sizes":      {Quality: 90},
			"negative size": {Sizes: []int{-10}, Quality: 90},
			"zero size":     {Sizes: []int{0}, Quality: 90},
			"quality high":  {Sizes: []int{64}, Quality: 99},
		} {
			res := SquareThumbnails(ctx, src, tmpDir, opts)
			assert.False(t, res.Succeeded(), name)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "img.jpg")
		createImage(t, src, 100, 100)

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		res := SquareThumbnails(cancelled, src, tmpDir, Options{Sizes: []int{64}, Quality: 90})
		assert.False(t, res.Succeeded())
	})
}
