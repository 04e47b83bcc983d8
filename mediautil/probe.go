package mediautil

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/inodevs/inoutils/result"
)

// ProbeResult carries the video stream properties read by ffprobe.
type ProbeResult struct {
	result.Status
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`
}

// Probe reads width, height and frame rate of the first video stream using
// ffprobe.
func (f *FFmpeg) Probe(ctx context.Context, path string) ProbeResult {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate",
		"-of", "csv=s=,:p=0",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ProbeResult{Status: result.Err("probe cancelled: %v", ctx.Err())}
		}
		return ProbeResult{Status: result.Err("ffprobe failed to open %s: %s", filepath.Base(path), strings.TrimSpace(stderr.String()))}
	}

	width, height, fps, err := parseProbeLine(stdout.String())
	if err != nil {
		return ProbeResult{Status: result.Err("parse ffprobe output for %s: %v", filepath.Base(path), err)}
	}

	return ProbeResult{
		Status: result.Ok(fmt.Sprintf("probed %s", filepath.Base(path))),
		Width:  width,
		Height: height,
		FPS:    fps,
	}
}

// parseProbeLine parses "WIDTH,HEIGHT,NUM/DEN" as printed by ffprobe's csv
// writer.
func parseProbeLine(out string) (width, height int, fps float64, err error) {
	line := strings.TrimSpace(out)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}

	fields := strings.Split(line, ",")
	if len(fields) < 3 {
		return 0, 0, 0, fmt.Errorf("unexpected output %q", line)
	}

	width, err = strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("width: %w", err)
	}
	height, err = strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("height: %w", err)
	}

	fps, err = parseFrameRate(strings.TrimSpace(fields[2]))
	if err != nil {
		return 0, 0, 0, err
	}
	return width, height, fps, nil
}

// parseFrameRate parses ffprobe's rational frame rate ("30000/1001", "25/1"
// or a bare number).
func parseFrameRate(s string) (float64, error) {
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("frame rate: %w", err)
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil {
			return 0, fmt.Errorf("frame rate: %w", err)
		}
		if d == 0 {
			return 0, nil
		}
		return n / d, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("frame rate: %w", err)
	}
	return v, nil
}

// VideoCheckResult reports whether a video exceeds the configured caps.
type VideoCheckResult struct {
	result.Status
	NeedsConvert bool    `json:"needs_convert"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	FPS          float64 `json:"fps"`
}

// CheckVideo probes a video and classifies whether its resolution or frame
// rate exceeds the given caps. Non-positive caps take the ConvertVideo
// defaults.
func (f *FFmpeg) CheckVideo(ctx context.Context, path string, maxRes, maxFPS int) VideoCheckResult {
	if maxRes <= 0 {
		maxRes = 2560
	}
	if maxFPS <= 0 {
		maxFPS = 30
	}

	probe := f.Probe(ctx, path)
	if !probe.Success {
		return VideoCheckResult{Status: probe.Status}
	}

	check := VideoCheckResult{
		Width:  probe.Width,
		Height: probe.Height,
		FPS:    probe.FPS,
	}

	switch {
	case probe.Width > maxRes || probe.Height > maxRes:
		check.NeedsConvert = true
		check.Status = result.Ok(fmt.Sprintf("video res is too high: %s -> %dx%d", filepath.Base(path), probe.Width, probe.Height))
	case probe.FPS > float64(maxFPS):
		check.NeedsConvert = true
		check.Status = result.Ok(fmt.Sprintf("video fps is too high: %s -> %g", filepath.Base(path), probe.FPS))
	default:
		check.Status = result.Ok(fmt.Sprintf("video %s has a valid res and fps", filepath.Base(path)))
	}
	return check
}
