package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mmtips-service/logger"
	"mmtips-service/storage"
)

// FetchResult describes the outcome of one FetchIfChanged call.
type FetchResult struct {
	Bucket     string
	Key        string
	Path       string
	Tag        string
	Downloaded bool
}

// Fetcher materializes remote objects on local disk, downloading only when
// the object's version tag differs from the last one it downloaded.
type Fetcher struct {
	store    storage.BlobStore
	cache    VersionCache
	group    singleflight.Group
	locks    sync.Map // bucket/key -> *sync.Mutex
	onChange func(FetchResult)
	timeout  time.Duration
	log      logger.Logger
}

// DefaultFetchTimeout bounds one shared check-then-fetch.
const DefaultFetchTimeout = 2 * time.Minute

func NewFetcher(store storage.BlobStore, cache VersionCache) *Fetcher {
	if cache == nil {
		cache = NewMemoryVersionCache()
	}
	return &Fetcher{
		store: store,
		cache:   cache,
		timeout: DefaultFetchTimeout,
		log:     logger.New("Fetcher"),
	}
}

// OnChange registers a hook called after every real download.
func (f *Fetcher) OnChange(fn func(FetchResult)) {
	f.onChange = fn
}

// FetchIfChanged checks the object's current version tag and downloads the
// body to localPath only if the tag differs from the last downloaded one or
// the local copy is missing. Store errors are returned unchanged.
//
// Concurrent calls for the same object and path share one check-then-fetch;
// calls for the same object with different paths take turns on a per-object
// lock. The shared work is detached from the caller's cancellation (bounded
// by DefaultFetchTimeout instead), so a caller that gives up only abandons
// its own wait.
func (f *Fetcher) FetchIfChanged(ctx context.Context, bucket, key, localPath string) (FetchResult, error) {
	flight := bucket + "/" + key + "\x00" + localPath
	ch := f.group.DoChan(flight, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()
		return f.fetch(shared, bucket, key, localPath)
	})

	select {
	case <-ctx.Done():
		return FetchResult{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return FetchResult{}, r.Err
		}
		return r.Val.(FetchResult), nil
	}
}

// lockObject returns the lock serializing work on one bucket/key.
func (f *Fetcher) lockObject(cacheKey string) *sync.Mutex {
	mu, _ := f.locks.LoadOrStore(cacheKey, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (f *Fetcher) fetch(ctx context.Context, bucket, key, localPath string) (FetchResult, error) {
	res := FetchResult{Bucket: bucket, Key: key, Path: localPath}

	cacheKey := bucket + "/" + key
	mu := f.lockObject(cacheKey)
	mu.Lock()
	defer mu.Unlock()

	meta, err := f.store.HeadObject(ctx, bucket, key)
	if err != nil {
		return res, err
	}
	res.Tag = meta.VersionTag

	if last, ok := f.cache.Get(cacheKey); ok && last == meta.VersionTag {
		if exists(localPath) {
			f.log.Debug("%s unchanged (tag %s), reusing %s", key, meta.VersionTag, localPath)
			return res, nil
		}
		f.log.Warn("%s unchanged but %s is missing, downloading again", key, localPath)
	}

	f.log.Info("Downloading '%s' to '%s' (tag %s)", key, localPath, meta.VersionTag)

	body, err := f.store.GetObject(ctx, bucket, key)
	if err != nil {
		return res, err
	}
	defer body.Close()

	if err := writeFileAtomic(localPath, body); err != nil {
		return res, fmt.Errorf("failed to write %s: %w", localPath, err)
	}

	f.cache.Set(cacheKey, meta.VersionTag)
	res.Downloaded = true

	if f.onChange != nil {
		f.onChange(res)
	}
	return res, nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// writeFileAtomic writes r to a temp file next to path and renames it into
// place, so readers never see a partial body.
func writeFileAtomic(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
