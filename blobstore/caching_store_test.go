package blobstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore wraps a MemoryStore and counts backend reads.
type countingStore struct {
	*MemoryStore
	gets atomic.Int64
}

func (s *countingStore) Get(ctx context.Context, name string) ([]byte, error) {
	s.gets.Add(1)
	return s.MemoryStore.Get(ctx, name)
}

func TestCachingStore_CachesReads(t *testing.T) {
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	ctx := context.Background()

	require.NoError(t, inner.Put(ctx, "a", []byte("payload")))

	store, err := NewCachingStore(inner, 8)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		got, err := store.Get(ctx, "a")
		require.NoError(t, err)
		require.Equal(t, []byte("payload"), got)
	}

	// Only the first Get reaches the backend.
	assert.Equal(t, int64(1), inner.gets.Load())
}

func TestCachingStore_PutInvalidates(t *testing.T) {
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	ctx := context.Background()

	store, err := NewCachingStore(inner, 8)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "a", []byte("v1")))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), got)

	require.NoError(t, store.Put(ctx, "a", []byte("v2")))

	got, err = store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), got)
}

func TestCachingStore_DeleteInvalidates(t *testing.T) {
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	ctx := context.Background()

	store, err := NewCachingStore(inner, 8)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "a", []byte("v1")))

	_, err = store.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "a"))

	_, err = store.Get(ctx, "a")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCachingStore_CollapsesConcurrentMisses(t *testing.T) {
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	ctx := context.Background()

	require.NoError(t, inner.Put(ctx, "a", []byte("payload")))

	store, err := NewCachingStore(inner, 8)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := store.Get(ctx, "a")
			assert.NoError(t, err)
			assert.Equal(t, []byte("payload"), got)
		}()
	}
	wg.Wait()

	// Collapsed misses reach the backend far fewer than 16 times.
	assert.LessOrEqual(t, inner.gets.Load(), int64(4))
}
