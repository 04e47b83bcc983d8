// Package thumbutil generates square JPEG thumbnails at multiple sizes.
// Thumbnails keep the original base filename with an "_ino_t_{size}_"
// suffix, are always encoded as JPEG, and carry no metadata or transparency.
package thumbutil

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/go-playground/validator/v10"

	"github.com/inodevs/inoutils/result"
)

// Options controls SquareThumbnails.
type Options struct {
	// Sizes are the square edge lengths to generate. Duplicates are dropped
	// while preserving order.
	Sizes []int `validate:"required,min=1,dive,gt=0"`
	// Quality is the JPEG quality in [1, 95].
	Quality int `validate:"gte=1,lte=95"`
	// Crop center-crops the image to a square of its short side. When
	// false, the image is padded to a square over a blurred cover-scaled
	// background instead.
	Crop bool
}

// DefaultOptions returns the default thumbnail options.
func DefaultOptions() Options {
	return Options{Sizes: []int{256, 512, 1024}, Quality: 90}
}

// Result reports the generated thumbnail paths. OutputPaths is empty on
// failure.
type Result struct {
	result.Status
	OutputPaths []string `json:"output_paths,omitempty"`
}

var validate = validator.New()

// SquareThumbnails creates 1:1 thumbnails of imagePath in outputDir (the
// image's own directory when empty). Orientation is corrected before any
// geometry. Each requested size produces "{stem}_ino_t_{size}_.jpg".
func SquareThumbnails(ctx context.Context, imagePath, outputDir string, opts Options) Result {
	if err := validate.Struct(opts); err != nil {
		return Result{Status: result.Err("invalid thumbnail options: %v", err)}
	}

	info, err := os.Stat(imagePath)
	if err != nil || info.IsDir() {
		return Result{Status: result.Err("input image not found: %s", imagePath)}
	}

	if outputDir == "" {
		outputDir = filepath.Dir(imagePath)
	}
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return Result{Status: result.Err("create output directory: %v", err)}
	}

	sizes := dedupe(opts.Sizes)

	img, err := imaging.Open(imagePath, imaging.AutoOrientation(true))
	if err != nil {
		return Result{Status: result.Err("error generating thumbnails: %v", err)}
	}

	square := squareImage(img, opts.Crop)

	stem := strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath))
	outputPaths := make([]string, 0, len(sizes))

	for _, size := range sizes {
		select {
		case <-ctx.Done():
			return Result{Status: result.Err("thumbnailing cancelled: %v", ctx.Err())}
		default:
		}

		resized := imaging.Resize(square, size, size, imaging.Lanczos)

		// A fresh canvas guarantees no source metadata or alpha survives
		// into the JPEG.
		clean := imaging.New(size, size, color.White)
		clean = imaging.Overlay(clean, resized, image.Pt(0, 0), 1.0)

		outPath := filepath.Join(outputDir, fmt.Sprintf("%s_ino_t_%d_.jpg", stem, size))
		if err := imaging.Save(clean, outPath, imaging.JPEGQuality(opts.Quality)); err != nil {
			return Result{Status: result.Err("error generating thumbnails: %v", err)}
		}
		outputPaths = append(outputPaths, outPath)
	}

	return Result{
		Status:      result.Ok("thumbnails generated"),
		OutputPaths: outputPaths,
	}
}

// squareImage produces a 1:1 version of img, either by center-cropping to
// the short side or by pasting the image centered onto a blurred
// cover-scaled background filling the long side.
func squareImage(img image.Image, crop bool) image.Image {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w == h {
		return img
	}

	if crop {
		side := w
		if h < side {
			side = h
		}
		return imaging.CropCenter(img, side, side)
	}

	side := w
	if h > side {
		side = h
	}

	// Cover-scale so the short side fills the square, center-crop, then
	// blur proportionally to the side length.
	bg := imaging.Fill(img, side, side, imaging.Center, imaging.Lanczos)
	radius := float64(side) * 0.02
	if radius < 2 {
		radius = 2
	}
	bg = imaging.Blur(bg, radius)

	return imaging.OverlayCenter(bg, img, 1.0)
}

func dedupe(sizes []int) []int {
	seen := make(map[int]struct{}, len(sizes))
	out := make([]int, 0, len(sizes))
	for _, s := range sizes {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
