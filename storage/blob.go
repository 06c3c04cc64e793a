// Package storage wraps the object store the dashboard reads its input files
// from. Objects are whole blobs addressed by bucket and key.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	// ErrNotFound means the bucket or key does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrAuth means the store rejected the credentials.
	ErrAuth = errors.New("storage authentication failed")
)

// Metadata describes the current generation of an object.
type Metadata struct {
	VersionTag   string
	Size         int64
	LastModified time.Time
}

// BlobStore is the minimal object store contract: a metadata lookup and a
// whole-object read. Implementations wrap ErrNotFound / ErrAuth.
type BlobStore interface {
	HeadObject(ctx context.Context, bucket, key string) (Metadata, error)
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// ObjectError carries the address of the failed call.
type ObjectError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *ObjectError) Error() string {
	return fmt.Sprintf("%s s3://%s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}
