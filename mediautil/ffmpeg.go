// Package mediautil wraps external transcoding tools (ffmpeg, ffprobe) and
// pure-Go image processing behind the shared result contract. Argument lists
// are built deterministically from documented parameters; success is
// classified purely by the external process's exit code, with stderr
// captured verbatim as diagnostics even on success.
package mediautil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/inodevs/inoutils/result"
)

// FFmpeg invokes the ffmpeg and ffprobe CLIs.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpeg creates an FFmpeg runner. Empty paths default to "ffmpeg" and
// "ffprobe" resolved via PATH.
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// FFmpegError represents a failed ffmpeg invocation, including the stderr
// output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// run executes ffmpeg with args, feeding stdin when non-nil. It returns
// stdout and stderr; a non-zero exit comes back as *FFmpegError.
func (f *FFmpeg) run(ctx context.Context, stdin []byte, args []string) (stdout, stderr []byte, err error) {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, errBuf.Bytes(), fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return nil, errBuf.Bytes(), &FFmpegError{Args: args, Stderr: errBuf.String(), Err: err}
	}
	return outBuf.Bytes(), errBuf.Bytes(), nil
}

// VideoConvertOptions controls ConvertVideo.
type VideoConvertOptions struct {
	// CapRes adds a scale filter limiting the larger dimension to MaxRes
	// without upscaling.
	CapRes bool
	// CapFPS adds an fps filter limiting the frame rate to MaxFPS.
	CapFPS bool
	// MaxRes is the cap for the larger of width or height. Defaults to 2560.
	MaxRes int
	// MaxFPS is the frame rate cap. Defaults to 30.
	MaxFPS int
}

func (o *VideoConvertOptions) applyDefaults() {
	if o.MaxRes <= 0 {
		o.MaxRes = 2560
	}
	if o.MaxFPS <= 0 {
		o.MaxFPS = 30
	}
}

// VideoConvertResult reports the outcome of a video conversion.
type VideoConvertResult struct {
	result.Status
	OutputPath      string `json:"output_path,omitempty"`
	OriginalSizeKB  int64  `json:"original_size"`
	ConvertedSizeKB int64  `json:"converted_size"`
	Diagnostics     string `json:"diagnostics,omitempty"`
}

// buildVideoArgs constructs the deterministic ffmpeg argument list for
// ConvertVideo. The scale expression caps the larger of width or height at
// MaxRes while keeping aspect ratio, and force_original_aspect_ratio
// prevents upscaling. When both caps are requested the scale expression is
// merged into the fps filter so a single -filter:v is emitted.
func buildVideoArgs(input, output string, opts VideoConvertOptions) []string {
	args := []string{
		"-y",
		"-loglevel", "error",
		"-i", input,
	}

	var filters []string
	if opts.CapFPS {
		filters = append(filters, fmt.Sprintf("fps=%d", opts.MaxFPS))
	}
	if opts.CapRes {
		scale := fmt.Sprintf(
			"scale='if(gte(iw,ih),min(iw,%d),-2)':'if(gte(ih,iw),min(ih,%d),-2)':force_original_aspect_ratio=decrease",
			opts.MaxRes, opts.MaxRes,
		)
		filters = append(filters, scale)
	}
	if len(filters) > 0 {
		args = append(args, "-filter:v", strings.Join(filters, ", "))
	}

	args = append(args,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-maxrate", "12M",
		"-bufsize", "24M",
		"-movflags", "+faststart",
		"-c:a", "aac", "-b:a", "192k",
		"-f", "mp4", output,
	)
	return args
}

// ConvertVideo transcodes input to an H.264/AAC MP4 at output (extension
// forced to .mp4), optionally capping resolution and frame rate. The
// conversion writes to a temporary file first; the source is deleted and the
// temporary moved into place only after the output is confirmed written. On
// failure the size fields are zeroed and stderr is carried in the message.
func (f *FFmpeg) ConvertVideo(ctx context.Context, input, output string, opts VideoConvertOptions) VideoConvertResult {
	opts.applyDefaults()

	if _, err := os.Stat(input); err != nil {
		return VideoConvertResult{Status: result.Err("input not found: %s", input)}
	}

	output = replaceExt(output, ".mp4")
	tempOutput := strings.TrimSuffix(output, ".mp4") + "_converted.mp4"

	args := buildVideoArgs(input, tempOutput, opts)
	_, stderr, err := f.run(ctx, nil, args)
	if err != nil {
		return VideoConvertResult{
			Status:      result.Err("conversion failed (%s): %s", filepath.Base(input), strings.TrimSpace(string(stderr))),
			Diagnostics: string(stderr),
		}
	}

	tempInfo, err := os.Stat(tempOutput)
	if err != nil {
		return VideoConvertResult{
			Status:      result.Err("conversion failed, converted file not found"),
			Diagnostics: string(stderr),
		}
	}
	inInfo, err := os.Stat(input)
	if err != nil {
		return VideoConvertResult{
			Status:      result.Err("conversion failed, source vanished: %s", input),
			Diagnostics: string(stderr),
		}
	}

	if err := os.Remove(input); err != nil {
		return VideoConvertResult{
			Status:      result.Err("remove original %s: %v", filepath.Base(input), err),
			Diagnostics: string(stderr),
		}
	}
	if err := os.Rename(tempOutput, output); err != nil {
		return VideoConvertResult{
			Status:      result.Err("finalize %s: %v", filepath.Base(output), err),
			Diagnostics: string(stderr),
		}
	}

	return VideoConvertResult{
		Status:          result.Ok(fmt.Sprintf("converted %s", filepath.Base(input))),
		OutputPath:      output,
		OriginalSizeKB:  inInfo.Size() / 1024,
		ConvertedSizeKB: tempInfo.Size() / 1024,
		Diagnostics:     string(stderr),
	}
}

// ImageConvertResult reports the outcome of an ffmpeg image conversion.
type ImageConvertResult struct {
	result.Status
	OutputPath  string `json:"output_path,omitempty"`
	Diagnostics string `json:"diagnostics,omitempty"`
}

// ConvertImage converts an image file to the format implied by output's
// extension. The source is deleted only after the conversion succeeds.
func (f *FFmpeg) ConvertImage(ctx context.Context, input, output string) ImageConvertResult {
	if _, err := os.Stat(input); err != nil {
		return ImageConvertResult{Status: result.Err("input not found: %s", input)}
	}

	args := []string{
		"-y",
		"-loglevel", "error",
		"-i", input,
		output,
	}
	_, stderr, err := f.run(ctx, nil, args)
	if err != nil {
		return ImageConvertResult{
			Status:      result.Err("conversion failed (%s): %s", filepath.Base(input), strings.TrimSpace(string(stderr))),
			Diagnostics: string(stderr),
		}
	}

	if err := os.Remove(input); err != nil {
		return ImageConvertResult{
			Status:      result.Err("remove original %s: %v", filepath.Base(input), err),
			Diagnostics: string(stderr),
		}
	}

	return ImageConvertResult{
		Status:      result.Ok(fmt.Sprintf("converted %s", filepath.Base(input))),
		OutputPath:  output,
		Diagnostics: string(stderr),
	}
}

// TranscodePCMOptions controls TranscodePCM. Zero values take the documented
// defaults.
type TranscodePCMOptions struct {
	// Format is the output container format. Defaults to "ogg".
	Format string
	// Codec is the audio codec. Defaults to "libopus".
	Codec string
	// Application is the opus application profile. Defaults to "voip".
	Application string
	// Rate is the input sample rate in Hz. Defaults to 16000.
	Rate int
	// Channels is the input channel count. Defaults to 1.
	Channels int
	// Bitrate is the target audio bitrate. Defaults to "24k".
	Bitrate string
	// GainDB, when non-nil, applies a volume filter of that many dB.
	GainDB *float64
	// Limit applies an alimiter filter after any gain to prevent clipping.
	Limit bool
}

func (o *TranscodePCMOptions) applyDefaults() {
	if o.Format == "" {
		o.Format = "ogg"
	}
	if o.Codec == "" {
		o.Codec = "libopus"
	}
	if o.Application == "" {
		o.Application = "voip"
	}
	if o.Rate <= 0 {
		o.Rate = 16000
	}
	if o.Channels <= 0 {
		o.Channels = 1
	}
	if o.Bitrate == "" {
		o.Bitrate = "24k"
	}
}

// TranscodePCMResult carries the encoded payload. Data is empty on failure.
type TranscodePCMResult struct {
	result.Status
	Data        []byte `json:"-"`
	Diagnostics string `json:"diagnostics,omitempty"`
}

// buildPCMArgs constructs the argument list for TranscodePCM. Input is raw
// signed 16-bit little-endian PCM on stdin; encoded output goes to stdout.
func buildPCMArgs(opts TranscodePCMOptions) []string {
	args := []string{
		"-f", "s16le",
		"-ar", strconv.Itoa(opts.Rate),
		"-ac", strconv.Itoa(opts.Channels),
		"-i", "pipe:0",
	}

	var filters []string
	if opts.GainDB != nil {
		filters = append(filters, fmt.Sprintf("volume=%gdB", *opts.GainDB))
	}
	if opts.Limit {
		filters = append(filters, "alimiter=limit=0.95")
	}
	if len(filters) > 0 {
		args = append(args, "-filter:a", strings.Join(filters, ","))
	}

	args = append(args,
		"-c:a", opts.Codec,
		"-b:a", opts.Bitrate,
		"-vbr", "on",
		"-application", opts.Application,
		"-f", opts.Format,
		"pipe:1",
	)
	return args
}

// TranscodePCM encodes raw s16le PCM bytes via ffmpeg stdin/stdout pipes.
// Diagnostics carry stderr verbatim in both outcomes, since ffmpeg emits
// non-fatal warnings there even on success.
func (f *FFmpeg) TranscodePCM(ctx context.Context, pcm []byte, opts TranscodePCMOptions) TranscodePCMResult {
	opts.applyDefaults()

	stdout, stderr, err := f.run(ctx, pcm, buildPCMArgs(opts))
	if err != nil {
		return TranscodePCMResult{
			Status:      result.Err("ffmpeg failed: %s", strings.TrimSpace(string(stderr))),
			Diagnostics: string(stderr),
		}
	}

	return TranscodePCMResult{
		Status:      result.Ok("transcode successful"),
		Data:        stdout,
		Diagnostics: string(stderr),
	}
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
