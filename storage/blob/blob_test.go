package blob

import (
	"context"
	"testing"

	"github.com/hupe1980/activo/blobstore"
	"github.com/hupe1980/activo/model"
	"github.com/hupe1980/activo/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobBackend_RoundTrip(t *testing.T) {
	bs := blobstore.NewMemoryStore()

	factory, err := NewFactory(bs)
	require.NoError(t, err)

	records, err := factory.RecordStore()
	require.NoError(t, err)

	// 1. Fresh backend has nothing to restore.
	_, err = records.Restore()
	require.ErrorIs(t, err, storage.ErrNotFound)

	// 2. Flush rewrites the whole snapshot.
	err = records.Flush([]model.Update{
		{Slot: 0, UID: 100},
		{Slot: 2, UID: 300},
	})
	require.NoError(t, err)

	uids, err := records.Restore()
	require.NoError(t, err)
	require.Equal(t, []model.UID{100, model.DeletedUID, 300}, uids)

	// 3. A second factory over the same blob store sees the snapshot.
	factory2, err := NewFactory(bs)
	require.NoError(t, err)

	records2, err := factory2.RecordStore()
	require.NoError(t, err)

	uids, err = records2.Restore()
	require.NoError(t, err)
	require.Equal(t, []model.UID{100, model.DeletedUID, 300}, uids)

	// 4. The snapshot blob is compressed, not raw.
	raw, err := bs.Get(context.Background(), "records.snapshot")
	require.NoError(t, err)
	assert.NotEqual(t, 3*8, len(raw))
}

func TestBlobBackend_ConfigOptions(t *testing.T) {
	factory, err := NewFactory(blobstore.NewMemoryStore(), func(cfg *storage.Config) {
		cfg.FlushBufferSize = 7
	})
	require.NoError(t, err)

	assert.Equal(t, 7, factory.Config().FlushBufferSize)
	assert.Equal(t, storage.DefaultConfig.FlushInterval, factory.Config().FlushInterval)

	records, err := factory.RecordStore()
	require.NoError(t, err)
	require.NoError(t, records.Flush([]model.Update{{Slot: 0, UID: 1}}))

	// Close releases the codecs; a decode afterwards fails.
	require.NoError(t, records.Close())
	_, err = factory.dec.DecodeAll([]byte{0x28, 0xb5, 0x2f, 0xfd}, nil)
	require.Error(t, err)
}

func TestBlobBackend_Metadata(t *testing.T) {
	bs := blobstore.NewMemoryStore()

	factory, err := NewFactory(bs)
	require.NoError(t, err)

	meta, err := factory.Metadata()
	require.NoError(t, err)
	require.NoError(t, meta.Init())

	assert.Equal(t, "", meta.Version())
	assert.Equal(t, 0, meta.Count())

	require.NoError(t, meta.Update("17", 4))

	meta2, err := factory.Metadata()
	require.NoError(t, err)
	require.NoError(t, meta2.Init())
	assert.Equal(t, "17", meta2.Version())
	assert.Equal(t, 4, meta2.Count())
}

func TestBlobBackend_FieldPersister(t *testing.T) {
	bs := blobstore.NewMemoryStore()

	factory, err := NewFactory(bs)
	require.NoError(t, err)

	p := factory.FieldPersister()
	require.NoError(t, p.SaveInts("likes", []int32{1, 2, 3}))
	require.NoError(t, p.SaveLongs("ts", []int64{9}))
	require.NoError(t, p.SaveFloats("score", []float32{0.5}))

	names, err := bs.List(context.Background(), "fields/")
	require.NoError(t, err)
	assert.Len(t, names, 3)
	assert.Contains(t, names, "fields/likes.col")
}
