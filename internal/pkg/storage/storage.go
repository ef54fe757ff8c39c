package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrInvalidPath = errors.New("invalid file path")
)

// FileStorage keeps uploaded documents by key.
type FileStorage interface {
	// Upload stores a file and returns its normalized key
	Upload(ctx context.Context, file io.Reader, key string, contentType string) (string, error)

	// Download retrieves a file
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a file. Deleting a missing file is not an error
	Delete(ctx context.Context, key string) error

	// Exists checks if file exists
	Exists(ctx context.Context, key string) (bool, error)
}
