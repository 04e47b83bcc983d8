package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrPublishNotConfigured is returned when Publish is called on a store
// without a remote backend.
var ErrPublishNotConfigured = errors.New("remote storage is not configured")

// Local implements Store on local disk. It stages files in a configurable
// directory and does not support publishing unless wrapped with S3.
type Local struct {
	stageDir string
}

// NewLocal creates a Local store staging files under stageDir.
// If stageDir is empty, a directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocal(stageDir string) (*Local, error) {
	if stageDir == "" {
		stageDir = filepath.Join(os.TempDir(), "inoutils")
	}

	if err := os.MkdirAll(stageDir, 0750); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}

	return &Local{stageDir: stageDir}, nil
}

// StageDir returns the staging directory path.
func (s *Local) StageDir() string {
	return s.stageDir
}

// Stage writes data to a staging file and returns its path.
// The name is used as a base for the filename with a unique suffix.
func (s *Local) Stage(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.CreateTemp(s.stageDir, name+"_*")
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", fmt.Errorf("write staging file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("close staging file: %w", err)
	}

	return fileName, nil
}

// Open reads a staged file and returns a reader.
// The caller is responsible for closing the returned ReadCloser.
func (s *Local) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}

	return f, nil
}

// Remove deletes the given staged files. It keeps going when individual
// deletes fail, returning the first error encountered.
func (s *Local) Remove(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove staged file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// Publish is not supported by Local and returns ErrPublishNotConfigured.
func (s *Local) Publish(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrPublishNotConfigured
}
