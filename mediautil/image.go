package mediautil

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	"github.com/inodevs/inoutils/result"
)

// PhotoMetadata holds camera metadata to embed during image validation.
// Rational-valued fields accept photographic notations ("1/125", "f/2.8",
// "50mm", plain numbers) and are converted to num/den form before being
// handed to the external tool.
type PhotoMetadata struct {
	CameraCategory string
	CameraMaker    string
	CameraModel    string

	FStop           string
	ExposureTime    string
	ISOSpeed        int
	ExposureBias    string
	FocalLength     string
	MaxAperture     string
	SubjectDistance string

	LensMaker          string
	LensModel          string
	CameraSerialNumber string
}

// args renders the metadata as a deterministic "-metadata key=value"
// argument list. Empty fields are omitted.
func (m *PhotoMetadata) args() []string {
	var args []string
	add := func(key, value string) {
		if value != "" {
			args = append(args, "-metadata", key+"="+value)
		}
	}
	rational := func(key, value string) {
		if value != "" {
			add(key, ParseRational(value).String())
		}
	}

	add("make", m.CameraMaker)
	add("model", m.CameraModel)
	add("description", m.CameraCategory)
	rational("f_number", m.FStop)
	rational("exposure_time", m.ExposureTime)
	if m.ISOSpeed > 0 {
		add("iso_speed", fmt.Sprintf("%d", m.ISOSpeed))
	}
	rational("exposure_bias", m.ExposureBias)
	rational("focal_length", m.FocalLength)
	rational("max_aperture", m.MaxAperture)
	rational("subject_distance", m.SubjectDistance)
	add("lens_make", m.LensMaker)
	add("lens_model", m.LensModel)
	add("serial_number", m.CameraSerialNumber)
	return args
}

// ValidateImageOptions controls ValidateImage.
type ValidateImageOptions struct {
	// OutputPath is the target path; the extension is forced to .jpg. When
	// empty, the input path with a .jpg extension is used.
	OutputPath string
	// MaxRes is the maximum allowed dimension. Larger images are downscaled
	// preserving aspect ratio; smaller ones are never upscaled. Defaults to
	// 3200.
	MaxRes int
	// JPGQuality is the JPEG quality, clamped to [1, 95]. Defaults to 92.
	JPGQuality int
	// Metadata, when non-nil, is embedded into the output. Embedding forces
	// a re-encode even when no pixel change is needed.
	Metadata *PhotoMetadata
	// RemoveMetadata strips all metadata from the output. Stripping forces
	// a re-encode even when no pixel change is needed.
	RemoveMetadata bool
}

// ValidateImageResult reports the outcome of an image validation.
type ValidateImageResult struct {
	result.Status
	Resized         bool   `json:"resized"`
	ConvertedToJPEG bool   `json:"converted_to_jpeg"`
	OldWidth        int    `json:"old_width"`
	OldHeight       int    `json:"old_height"`
	NewWidth        int    `json:"new_width"`
	NewHeight       int    `json:"new_height"`
	OutputPath      string `json:"output_path,omitempty"`
}

// ValidateImage normalizes an image into a JPEG suitable for downstream
// consumers: orientation is corrected from EXIF before anything else, the
// image is downscaled only when a dimension exceeds MaxRes, and the output
// always carries a .jpg extension. A JPEG input needing no pixel change is
// renamed instead of re-encoded, unless metadata must be added or stripped.
// When a non-JPEG source is converted, the original is deleted only after
// the converted output is confirmed written.
func (f *FFmpeg) ValidateImage(ctx context.Context, input string, opts ValidateImageOptions) ValidateImageResult {
	if opts.MaxRes <= 0 {
		opts.MaxRes = 3200
	}
	quality := opts.JPGQuality
	if quality == 0 {
		quality = 92
	}
	if quality < 1 {
		quality = 1
	}
	if quality > 95 {
		quality = 95
	}

	if _, err := os.Stat(input); err != nil {
		return ValidateImageResult{Status: result.Err("input image not found: %s", input)}
	}

	finalOut := opts.OutputPath
	if finalOut == "" {
		finalOut = input
	}
	finalOut = replaceExt(finalOut, ".jpg")

	format, err := detectFormat(input)
	if err != nil {
		return ValidateImageResult{Status: result.Err("image validation failed: %s: %v", filepath.Base(input), err)}
	}
	isJPEGIn := format == "jpeg"

	orientationChanged := readOrientation(input) > 1

	img, err := imaging.Open(input, imaging.AutoOrientation(true))
	if err != nil {
		return ValidateImageResult{Status: result.Err("image validation failed: %s: %v", filepath.Base(input), err)}
	}

	oldW, oldH := img.Bounds().Dx(), img.Bounds().Dy()
	needResize := oldW > opts.MaxRes || oldH > opts.MaxRes
	newW, newH := oldW, oldH

	res := ValidateImageResult{
		OldWidth:  oldW,
		OldHeight: oldH,
	}

	needsMetadataPass := opts.Metadata != nil || opts.RemoveMetadata

	// JPEG input with no pixel change: cheap path unless metadata work
	// forces a re-encode.
	if isJPEGIn && !needResize && !orientationChanged && !needsMetadataPass {
		if sameFile(input, finalOut) {
			res.Status = result.Ok(fmt.Sprintf("no changes needed: %s", filepath.Base(input)))
			res.NewWidth, res.NewHeight = newW, newH
			res.OutputPath = finalOut
			return res
		}
		if err := os.MkdirAll(filepath.Dir(finalOut), 0o750); err != nil {
			return ValidateImageResult{Status: result.Err("image rename failed: %s: %v", filepath.Base(input), err)}
		}
		if err := os.Rename(input, finalOut); err != nil {
			return ValidateImageResult{Status: result.Err("image rename failed: %s: %v", filepath.Base(input), err)}
		}
		res.Status = result.Ok(fmt.Sprintf("renamed to .jpg: %s", filepath.Base(finalOut)))
		res.NewWidth, res.NewHeight = newW, newH
		res.OutputPath = finalOut
		return res
	}

	if needResize {
		img = imaging.Fit(img, opts.MaxRes, opts.MaxRes, imaging.Lanczos)
		newW, newH = img.Bounds().Dx(), img.Bounds().Dy()
	}

	// JPEG cannot carry alpha; flatten onto white.
	flat := imaging.New(newW, newH, color.White)
	flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)

	if err := os.MkdirAll(filepath.Dir(finalOut), 0o750); err != nil {
		return ValidateImageResult{Status: result.Err("image validation failed: %s: %v", filepath.Base(input), err)}
	}

	// Re-encoding through a fresh image drops all source metadata; a
	// trailing ffmpeg pass adds requested metadata back.
	writeTarget := finalOut
	if opts.Metadata != nil {
		writeTarget = strings.TrimSuffix(finalOut, ".jpg") + "_plain.jpg"
	}

	if err := imaging.Save(flat, writeTarget, imaging.JPEGQuality(quality)); err != nil {
		return ValidateImageResult{Status: result.Err("image validation failed: %s: %v", filepath.Base(input), err)}
	}

	if opts.Metadata != nil {
		args := []string{"-y", "-loglevel", "error", "-i", writeTarget, "-c", "copy"}
		args = append(args, opts.Metadata.args()...)
		args = append(args, finalOut)
		if _, stderr, err := f.run(ctx, nil, args); err != nil {
			_ = os.Remove(writeTarget)
			return ValidateImageResult{Status: result.Err("embed metadata (%s): %s", filepath.Base(input), strings.TrimSpace(string(stderr)))}
		}
		if err := os.Remove(writeTarget); err != nil && !os.IsNotExist(err) {
			return ValidateImageResult{Status: result.Err("image validation failed: %s: %v", filepath.Base(input), err)}
		}
	}

	converted := !isJPEGIn
	if converted && !sameFile(input, finalOut) {
		if err := os.Remove(input); err != nil && !os.IsNotExist(err) {
			return ValidateImageResult{Status: result.Err("remove original %s: %v", filepath.Base(input), err)}
		}
	}

	res.Status = result.Ok(fmt.Sprintf("validated %s", filepath.Base(input)))
	res.Resized = needResize
	res.ConvertedToJPEG = converted
	res.NewWidth, res.NewHeight = newW, newH
	res.OutputPath = finalOut
	return res
}

// detectFormat returns the registered image format name of the file.
func detectFormat(path string) (string, error) {
	file, err := os.Open(path) // #nosec G304 - caller-provided path, pre-checked
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	_, format, err := image.DecodeConfig(file)
	if err != nil {
		return "", fmt.Errorf("decode image header: %w", err)
	}
	return format, nil
}

// readOrientation returns the EXIF orientation tag, or 1 when the file has
// no usable EXIF block.
func readOrientation(path string) int {
	file, err := os.Open(path) // #nosec G304
	if err != nil {
		return 1
	}
	defer func() { _ = file.Close() }()

	x, err := exif.Decode(file)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
