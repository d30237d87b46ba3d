package blobstore

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// CachingStore wraps a BlobStore with an LRU read cache. Concurrent
// Gets for the same cold blob are collapsed into one backend fetch.
type CachingStore struct {
	inner BlobStore
	cache *lru.Cache[string, []byte]
	group singleflight.Group
}

// NewCachingStore creates a CachingStore holding up to maxEntries
// blobs.
func NewCachingStore(inner BlobStore, maxEntries int) (*CachingStore, error) {
	if maxEntries <= 0 {
		maxEntries = 64
	}
	cache, err := lru.New[string, []byte](maxEntries)
	if err != nil {
		return nil, err
	}
	return &CachingStore{inner: inner, cache: cache}, nil
}

func (s *CachingStore) Get(ctx context.Context, name string) ([]byte, error) {
	if data, ok := s.cache.Get(name); ok {
		return data, nil
	}
	v, err, _ := s.group.Do(name, func() (any, error) {
		data, err := s.inner.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		s.cache.Add(name, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Remove(name)
	return s.inner.Put(ctx, name, data)
}

func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Remove(name)
	return s.inner.Delete(ctx, name)
}

func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

var _ BlobStore = (*CachingStore)(nil)
