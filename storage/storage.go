// Package storage provides a holding area for files produced by the media
// and logging helpers, plus an optional publish step that pushes artifacts
// to S3. The Store interface is the port; local disk and S3 are the
// implementations.
package storage

import (
	"context"
	"io"
)

// Store defines file staging and publishing.
// Implementations keep working files in a staging directory and optionally
// support publishing artifacts (processed media, rotated log segments) to
// remote storage.
type Store interface {
	// Stage writes data to a staging file and returns its path.
	// The name parameter is used as a hint for the filename.
	Stage(ctx context.Context, name string, data io.Reader) (path string, err error)

	// Open reads a staged file and returns a reader.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Remove deletes the given staged files.
	// It keeps going when individual deletes fail.
	Remove(ctx context.Context, paths []string) error

	// Publish uploads data under key and returns the public URL.
	// Returns ErrPublishNotConfigured when no remote backend is set up.
	Publish(ctx context.Context, key string, data io.Reader) (url string, err error)
}
