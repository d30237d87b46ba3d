package pebblestore

import (
	"testing"

	"github.com/hupe1980/activo/model"
	"github.com/hupe1980/activo/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPebbleBackend_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	factory, err := Open(dir)
	require.NoError(t, err)

	records, err := factory.RecordStore()
	require.NoError(t, err)

	// 1. Fresh database has nothing to restore.
	_, err = records.Restore()
	require.ErrorIs(t, err, storage.ErrNotFound)

	// 2. Records round-trip, with gaps filled as tombstones.
	err = records.Flush([]model.Update{
		{Slot: 0, UID: 100},
		{Slot: 3, UID: 400},
	})
	require.NoError(t, err)

	uids, err := records.Restore()
	require.NoError(t, err)
	require.Equal(t, []model.UID{100, model.DeletedUID, model.DeletedUID, 400}, uids)

	// 3. Metadata round-trips on the shared database.
	meta, err := factory.Metadata()
	require.NoError(t, err)
	require.NoError(t, meta.Init())
	assert.Equal(t, "", meta.Version())

	require.NoError(t, meta.Update("9", 2))

	meta2, err := factory.Metadata()
	require.NoError(t, err)
	require.NoError(t, meta2.Init())
	assert.Equal(t, "9", meta2.Version())
	assert.Equal(t, 2, meta2.Count())

	// 4. Field columns round-trip.
	p, ok := factory.FieldPersister().(*fieldPersister)
	require.True(t, ok)

	require.NoError(t, p.SaveInts("likes", []int32{1, 2}))
	ints, err := p.LoadInts("likes")
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, ints)

	require.NoError(t, p.SaveFloats("score", []float32{0.5}))
	floats, err := p.LoadFloats("score")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, floats)

	missing, err := p.LoadLongs("missing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, records.Close())
}

func TestPebbleBackend_Reopen(t *testing.T) {
	dir := t.TempDir()

	factory, err := Open(dir)
	require.NoError(t, err)

	records, err := factory.RecordStore()
	require.NoError(t, err)
	require.NoError(t, records.Flush([]model.Update{{Slot: 0, UID: 7}}))
	require.NoError(t, records.Close())

	factory, err = Open(dir)
	require.NoError(t, err)

	records, err = factory.RecordStore()
	require.NoError(t, err)
	defer records.Close()

	uids, err := records.Restore()
	require.NoError(t, err)
	require.Equal(t, []model.UID{7}, uids)
}
