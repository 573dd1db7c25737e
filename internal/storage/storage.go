package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// ErrNotConfigured is returned by the disabled backend.
var ErrNotConfigured = errors.New("object storage is not configured")

// FileStorage defines the object storage operations used by history export.
type FileStorage interface {
	// PutObject uploads body under objectKey.
	PutObject(ctx context.Context, objectKey, contentType string, body io.Reader, size int64) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET
	// requests for the object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)
}

// disabled is used when no bucket is configured.
type disabled struct{}

// Disabled returns a FileStorage whose operations fail with ErrNotConfigured.
func Disabled() FileStorage {
	return disabled{}
}

func (disabled) PutObject(context.Context, string, string, io.Reader, int64) error {
	return ErrNotConfigured
}

func (disabled) GeneratePresignedDownloadURL(context.Context, string, time.Duration) (string, error) {
	return "", ErrNotConfigured
}
