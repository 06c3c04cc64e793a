package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mmtips-service/storage"
)

// fakeStore is an in-memory BlobStore that counts calls.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string]string
	tags    map[string]string
	heads   map[string]int
	gets    map[string]int
	headErr error
	getErr  error

	// headGate, when set, holds every HeadObject until it is closed.
	headGate    chan struct{}
	headEntered chan struct{}
	headDelay   time.Duration
	active      int32
	maxActive   int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects: make(map[string]string),
		tags:    make(map[string]string),
		heads:   make(map[string]int),
		gets:    make(map[string]int),
	}
}

func (s *fakeStore) put(bucket, key, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := md5.Sum([]byte(body))
	s.objects[bucket+"/"+key] = body
	s.tags[bucket+"/"+key] = `"` + hex.EncodeToString(sum[:]) + `"`
}

func (s *fakeStore) downloads(bucket, key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets[bucket+"/"+key]
}

func (s *fakeStore) HeadObject(ctx context.Context, bucket, key string) (storage.Metadata, error) {
	n := atomic.AddInt32(&s.active, 1)
	defer atomic.AddInt32(&s.active, -1)
	for {
		peak := atomic.LoadInt32(&s.maxActive)
		if n <= peak || atomic.CompareAndSwapInt32(&s.maxActive, peak, n) {
			break
		}
	}

	if s.headEntered != nil {
		s.headEntered <- struct{}{}
	}
	if s.headGate != nil {
		<-s.headGate
	}
	if s.headDelay > 0 {
		time.Sleep(s.headDelay)
	}
	if err := ctx.Err(); err != nil {
		return storage.Metadata{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.heads[bucket+"/"+key]++
	if s.headErr != nil {
		return storage.Metadata{}, s.headErr
	}
	tag, ok := s.tags[bucket+"/"+key]
	if !ok {
		return storage.Metadata{}, &storage.ObjectError{Op: "head", Bucket: bucket, Key: key, Err: storage.ErrNotFound}
	}
	return storage.Metadata{VersionTag: tag, Size: int64(len(s.objects[bucket+"/"+key]))}, nil
}

func (s *fakeStore) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gets[bucket+"/"+key]++
	if s.getErr != nil {
		return nil, s.getErr
	}
	body, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, &storage.ObjectError{Op: "get", Bucket: bucket, Key: key, Err: storage.ErrNotFound}
	}
	return io.NopCloser(strings.NewReader(body)), nil
}
