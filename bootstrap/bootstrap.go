// Package bootstrap provides dependency initialization for the inoutils CLI.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/inodevs/inoutils/config"
	"github.com/inodevs/inoutils/inolog"
	"github.com/inodevs/inoutils/mediautil"
	"github.com/inodevs/inoutils/storage"
)

// Dependencies holds all initialized dependencies for the CLI commands.
type Dependencies struct {
	FFmpeg *mediautil.FFmpeg
	Store  storage.Store
	Log    *inolog.Logger
}

// NewDependencies creates and initializes all dependencies for the tool.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	stream, err := inolog.New(cfg.LogDir, cfg.LogName,
		inolog.WithMaxSegmentSize(int64(cfg.LogMaxMB)*1024*1024),
	)
	if err != nil {
		return nil, fmt.Errorf("create log stream: %w", err)
	}

	return &Dependencies{
		FFmpeg: mediautil.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath),
		Store:  store,
		Log:    stream,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocal(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}
