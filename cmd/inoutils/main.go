// Package main provides the inoutils command-line tool: thumbnail
// generation, media conversion, batch copy, archive extraction and log
// segment shipping on top of the library packages.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/inodevs/inoutils/bootstrap"
	"github.com/inodevs/inoutils/config"
	"github.com/inodevs/inoutils/fileutil"
	"github.com/inodevs/inoutils/mediautil"
	"github.com/inodevs/inoutils/storage"
	"github.com/inodevs/inoutils/thumbutil"
)

const usage = `usage: inoutils <command> [flags]

commands:
  thumb    generate square thumbnails for an image
  convert  convert a video to capped-resolution H.264 MP4
  copy     copy a directory of files with optional renaming
  unzip    extract a zip archive
  ship     publish rotated log segments to storage
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("missing command")
	}

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	// Initialize dependencies using bootstrap
	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "thumb":
		return cmdThumb(ctx, deps, logger, args[1:])
	case "convert":
		return cmdConvert(ctx, deps, logger, args[1:])
	case "copy":
		return cmdCopy(ctx, deps, logger, args[1:])
	case "unzip":
		return cmdUnzip(ctx, deps, logger, args[1:])
	case "ship":
		return cmdShip(ctx, cfg, deps, logger, args[1:])
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func cmdThumb(ctx context.Context, deps *bootstrap.Dependencies, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("thumb", flag.ContinueOnError)
	image := fs.String("image", "", "source image path")
	out := fs.String("out", ".", "output directory")
	sizes := fs.String("sizes", "256,512,1024", "comma-separated square sizes")
	quality := fs.Int("quality", 90, "JPEG quality (1-95)")
	crop := fs.Bool("crop", false, "center-crop instead of blur-pad")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *image == "" {
		return fmt.Errorf("thumb: -image is required")
	}

	parsed, err := parseSizes(*sizes)
	if err != nil {
		return fmt.Errorf("thumb: %w", err)
	}

	res := thumbutil.SquareThumbnails(ctx, *image, *out, thumbutil.Options{
		Sizes:   parsed,
		Quality: *quality,
		Crop:    *crop,
	})
	_ = deps.Log.Append(res, "thumbnail generation", "", "inoutils thumb")
	if !res.Succeeded() {
		return fmt.Errorf("thumb: %s", res.Message())
	}

	logger.Info("thumbnails generated",
		slog.String("image", *image),
		slog.Int("count", len(res.OutputPaths)),
	)
	return nil
}

func cmdConvert(ctx context.Context, deps *bootstrap.Dependencies, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	video := fs.String("video", "", "source video path")
	maxRes := fs.Int("max-res", 2560, "resolution cap for the longer side")
	maxFPS := fs.Int("max-fps", 30, "frame rate cap")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *video == "" {
		return fmt.Errorf("convert: -video is required")
	}

	check := deps.FFmpeg.CheckVideo(ctx, *video, *maxRes, *maxFPS)
	if !check.Succeeded() {
		return fmt.Errorf("convert: probe: %s", check.Message())
	}
	if !check.NeedsConvert {
		logger.Info("video already within limits",
			slog.String("video", *video),
			slog.Int("width", check.Width),
			slog.Int("height", check.Height),
		)
		return nil
	}

	res := deps.FFmpeg.ConvertVideo(ctx, *video, *video, mediautil.VideoConvertOptions{
		CapRes: true,
		CapFPS: true,
		MaxRes: *maxRes,
		MaxFPS: *maxFPS,
	})
	_ = deps.Log.Append(res, "video conversion", "", "inoutils convert")
	if !res.Succeeded() {
		return fmt.Errorf("convert: %s", res.Message())
	}

	logger.Info("video converted",
		slog.String("path", res.OutputPath),
		slog.Int64("original_size_kb", res.OriginalSizeKB),
		slog.Int64("converted_size_kb", res.ConvertedSizeKB),
	)
	return nil
}

func cmdCopy(ctx context.Context, deps *bootstrap.Dependencies, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("copy", flag.ContinueOnError)
	src := fs.String("src", "", "source directory")
	dst := fs.String("dst", "", "destination directory")
	recursive := fs.Bool("recursive", false, "copy subdirectories")
	rename := fs.Bool("rename", false, "rename files to a numbered sequence")
	prefix := fs.String("prefix", "File", "rename prefix")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *src == "" || *dst == "" {
		return fmt.Errorf("copy: -src and -dst are required")
	}

	res := fileutil.CopyBatch(ctx, *src, *dst, fileutil.CopyOptions{
		Recursive:   *recursive,
		RenameFiles: *rename,
		PrefixName:  *prefix,
	})
	_ = deps.Log.Append(res, "batch copy", "", "inoutils copy")
	if !res.Succeeded() {
		return fmt.Errorf("copy: %s", res.Message())
	}

	logger.Info("copy finished",
		slog.Int("copied", res.Copied),
		slog.Int("failed", res.Failed),
	)
	return nil
}

func cmdUnzip(ctx context.Context, deps *bootstrap.Dependencies, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("unzip", flag.ContinueOnError)
	archive := fs.String("archive", "", "zip archive path")
	out := fs.String("out", ".", "output directory")
	caseSensitive := fs.Bool("case-sensitive", false, "require a lowercase .zip extension")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *archive == "" {
		return fmt.Errorf("unzip: -archive is required")
	}

	res := fileutil.Unzip(ctx, *archive, *out, fileutil.UnzipOptions{
		CaseSensitive: *caseSensitive,
	})
	_ = deps.Log.Append(res, "archive extraction", "", "inoutils unzip")
	if !res.Succeeded() {
		return fmt.Errorf("unzip: %s", res.Message())
	}

	logger.Info("archive extracted",
		slog.String("archive", *archive),
		slog.Int("files", res.FilesExtracted),
	)
	return nil
}

func cmdShip(ctx context.Context, cfg *config.Config, deps *bootstrap.Dependencies, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("ship", flag.ContinueOnError)
	prefix := fs.String("prefix", "logs", "object key prefix")
	remove := fs.Bool("remove", false, "delete segments locally after publishing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	urls, err := storage.ShipClosedSegments(ctx, deps.Store, cfg.LogDir, cfg.LogName, storage.ShipOptions{
		KeyPrefix:   *prefix,
		RemoveAfter: *remove,
	})
	if err != nil {
		return fmt.Errorf("ship: %w", err)
	}

	logger.Info("segments shipped",
		slog.Int("count", len(urls)),
	)
	for _, u := range urls {
		fmt.Println(u)
	}
	return nil
}

func parseSizes(s string) ([]int, error) {
	var sizes []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid size %q", part)
		}
		sizes = append(sizes, n)
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no sizes given")
	}
	return sizes, nil
}
