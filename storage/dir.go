package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirStore serves objects from a local directory tree laid out as
// <root>/<bucket>/<key>. Version tags are quoted MD5 digests of the content,
// the same shape S3 uses for single-part uploads.
type DirStore struct {
	root string
}

func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

func (d *DirStore) path(bucket, key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if bucket == "" || strings.Contains(bucket, "/") || clean == "/" {
		return "", fmt.Errorf("%w: invalid address %q/%q", ErrNotFound, bucket, key)
	}
	return filepath.Join(d.root, bucket, filepath.FromSlash(clean)), nil
}

func (d *DirStore) HeadObject(ctx context.Context, bucket, key string) (Metadata, error) {
	p, err := d.path(bucket, key)
	if err != nil {
		return Metadata{}, &ObjectError{Op: "head", Bucket: bucket, Key: key, Err: err}
	}

	f, err := os.Open(p)
	if err != nil {
		return Metadata{}, &ObjectError{Op: "head", Bucket: bucket, Key: key, Err: classifyFS(err)}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Metadata{}, &ObjectError{Op: "head", Bucket: bucket, Key: key, Err: err}
	}
	if info.IsDir() {
		return Metadata{}, &ObjectError{Op: "head", Bucket: bucket, Key: key, Err: ErrNotFound}
	}

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return Metadata{}, &ObjectError{Op: "head", Bucket: bucket, Key: key, Err: err}
	}

	return Metadata{
		VersionTag:   `"` + hex.EncodeToString(h.Sum(nil)) + `"`,
		Size:         info.Size(),
		LastModified: info.ModTime(),
	}, nil
}

func (d *DirStore) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	p, err := d.path(bucket, key)
	if err != nil {
		return nil, &ObjectError{Op: "get", Bucket: bucket, Key: key, Err: err}
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, &ObjectError{Op: "get", Bucket: bucket, Key: key, Err: classifyFS(err)}
	}
	return f, nil
}

func classifyFS(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return err
}
