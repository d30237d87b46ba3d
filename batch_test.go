package activo

import (
	"testing"
	"time"

	"github.com/hupe1980/activo/model"
	"github.com/stretchr/testify/assert"
)

func TestUpdateBatch_CountCeiling(t *testing.T) {
	b := newUpdateBatch(batchLimits{maxRecords: 3})

	assert.True(t, b.empty())
	assert.False(t, b.flushNeeded())

	assert.False(t, b.add(model.Update{Slot: 0, UID: 1}))
	assert.False(t, b.add(model.Update{Slot: 1, UID: 2}))
	assert.True(t, b.add(model.Update{Slot: 2, UID: 3}))

	assert.False(t, b.empty())
	assert.True(t, b.flushNeeded())
}

func TestUpdateBatch_AgeCeiling(t *testing.T) {
	b := newUpdateBatch(batchLimits{maxRecords: 1000, maxDelay: 10 * time.Millisecond})

	assert.False(t, b.add(model.Update{Slot: 0, UID: 1}))

	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.flushNeeded())
}

func TestUpdateBatch_EmptyNeverDue(t *testing.T) {
	b := newUpdateBatch(batchLimits{maxRecords: 1, maxDelay: time.Nanosecond})

	time.Sleep(time.Millisecond)
	assert.False(t, b.flushNeeded())
}
