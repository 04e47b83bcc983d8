package mediautil

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

// createImage writes a solid-color image; the format follows the extension.
func createImage(t *testing.T, path string, width, height int) {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 40, G: 90, B: 200, A: 255})
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("failed to create test image: %v", err)
	}
}

func TestPhotoMetadataArgs(t *testing.T) {
	t.Run("empty metadata yields no args", func(t *testing.T) {
		m := &PhotoMetadata{}
		if args := m.args(); len(args) != 0 {
			t.Errorf("expected no args, got %v", args)
		}
	})

	t.Run("rational fields are normalized", func(t *testing.T) {
		m := &PhotoMetadata{
			CameraMaker:  "Canon",
			CameraModel:  "EOS R5",
			FStop:        "f/2.8",
			ExposureTime: "1/125",
			FocalLength:  "50mm",
			ISOSpeed:     400,
		}
		joined := strings.Join(m.args(), " ")

		for _, want := range []string{
			"-metadata make=Canon",
			"-metadata model=EOS R5",
			"-metadata f_number=14/5",
			"-metadata exposure_time=1/125",
			"-metadata focal_length=50/1",
			"-metadata iso_speed=400",
		} {
			if !strings.Contains(joined, want) {
				t.Errorf("missing %q in %q", want, joined)
			}
		}
	})

	t.Run("order is deterministic", func(t *testing.T) {
		m := &PhotoMetadata{CameraMaker: "A", LensModel: "B"}
		first := strings.Join(m.args(), " ")
		second := strings.Join(m.args(), " ")
		if first != second {
			t.Error("args must be deterministic")
		}
		if !strings.HasPrefix(first, "-metadata make=A") {
			t.Errorf("make must come first: %q", first)
		}
	})
}

func TestValidateImage(t *testing.T) {
	ctx := context.Background()
	f := NewFFmpeg("", "")

	t.Run("missing input", func(t *testing.T) {
		res := f.ValidateImage(ctx, filepath.Join(t.TempDir(), "missing.png"), ValidateImageOptions{})
		if res.Succeeded() {
			t.Error("expected failure")
		}
		if res.OutputPath != "" {
			t.Error("payload must be empty on failure")
		}
	})

	t.Run("small jpeg is renamed not re-encoded", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "photo.jpeg")
		createImage(t, src, 100, 80)

		res := f.ValidateImage(ctx, src, ValidateImageOptions{})
		if !res.Succeeded() {
			t.Fatalf("validation failed: %s", res.Message())
		}
		if res.Resized || res.ConvertedToJPEG {
			t.Error("no pixel change expected")
		}
		if res.OutputPath != filepath.Join(tmpDir, "photo.jpg") {
			t.Errorf("unexpected output path %s", res.OutputPath)
		}
		if _, err := os.Stat(src); !os.IsNotExist(err) {
			t.Error("source must be renamed away")
		}
	})

	t.Run("png is converted and original removed", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "art.png")
		createImage(t, src, 120, 90)

		res := f.ValidateImage(ctx, src, ValidateImageOptions{})
		if !res.Succeeded() {
			t.Fatalf("validation failed: %s", res.Message())
		}
		if !res.ConvertedToJPEG {
			t.Error("expected conversion flag")
		}

		out := filepath.Join(tmpDir, "art.jpg")
		if format, err := detectFormatFor(t, out); err != nil || format != "jpeg" {
			t.Errorf("output format = %q (%v), want jpeg", format, err)
		}
		if _, err := os.Stat(src); !os.IsNotExist(err) {
			t.Error("png source must be deleted after conversion")
		}
	})

	t.Run("oversized image is downscaled preserving aspect", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "big.png")
		createImage(t, src, 800, 400)

		res := f.ValidateImage(ctx, src, ValidateImageOptions{MaxRes: 200})
		if !res.Succeeded() {
			t.Fatalf("validation failed: %s", res.Message())
		}
		if !res.Resized {
			t.Error("expected resize")
		}
		if res.NewWidth != 200 || res.NewHeight != 100 {
			t.Errorf("got %dx%d, want 200x100", res.NewWidth, res.NewHeight)
		}
		if res.OldWidth != 800 || res.OldHeight != 400 {
			t.Errorf("original dimensions %dx%d recorded wrong", res.OldWidth, res.OldHeight)
		}
	})

	t.Run("small image is never upscaled", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "tiny.png")
		createImage(t, src, 60, 40)

		res := f.ValidateImage(ctx, src, ValidateImageOptions{MaxRes: 3200})
		if !res.Succeeded() {
			t.Fatalf("validation failed: %s", res.Message())
		}
		if res.Resized || res.NewWidth != 60 || res.NewHeight != 40 {
			t.Errorf("dimensions changed: %dx%d", res.NewWidth, res.NewHeight)
		}
	})

	t.Run("explicit output path", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "in.png")
		createImage(t, src, 50, 50)

		out := filepath.Join(tmpDir, "nested", "final.png")
		res := f.ValidateImage(ctx, src, ValidateImageOptions{OutputPath: out})
		if !res.Succeeded() {
			t.Fatalf("validation failed: %s", res.Message())
		}
		want := filepath.Join(tmpDir, "nested", "final.jpg")
		if res.OutputPath != want {
			t.Errorf("output = %s, want %s", res.OutputPath, want)
		}
		if _, err := os.Stat(want); err != nil {
			t.Errorf("output file missing: %v", err)
		}
	})

	t.Run("metadata embedding", func(t *testing.T) {
		checkFFmpeg(t)

		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "meta.png")
		createImage(t, src, 80, 80)

		res := f.ValidateImage(ctx, src, ValidateImageOptions{
			Metadata: &PhotoMetadata{CameraMaker: "Canon", CameraModel: "EOS R5"},
		})
		if !res.Succeeded() {
			t.Fatalf("validation failed: %s", res.Message())
		}

		// The intermediate plain file must not survive.
		if _, err := os.Stat(filepath.Join(tmpDir, "meta_plain.jpg")); !os.IsNotExist(err) {
			t.Error("intermediate file left behind")
		}
		if _, err := os.Stat(res.OutputPath); err != nil {
			t.Errorf("output file missing: %v", err)
		}
	})
}

// detectFormatFor decodes just the header of the file at path.
func detectFormatFor(t *testing.T, path string) (string, error) {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()
	_, format, err := image.DecodeConfig(file)
	return format, err
}
