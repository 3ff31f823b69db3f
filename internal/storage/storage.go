package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Package storage reads template artifacts from a local directory or an
// S3-compatible object store. Both backends are read-only.

// ErrObjectNotFound is returned when no artifact exists under the requested key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo contains basic information about a stored artifact.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// Source is a read-only artifact store.
type Source interface {
	// Get retrieves an artifact's content as a streaming reader alongside its info.
	// The caller must close the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
}
