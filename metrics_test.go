package activo

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicCollector(t *testing.T) {
	c := &BasicCollector{}

	c.RecordUpdate()
	c.RecordUpdate()
	c.RecordInsert()
	c.RecordDelete()
	c.RecordVersionRejection()
	c.RecordReclaim(3)
	c.RecordFlush(time.Millisecond, nil)
	c.RecordFlush(time.Millisecond, errors.New("boom"))
	c.SetLiveDocuments(7)
	c.SetReclaimedSlots(2)

	assert.Equal(t, int64(2), c.Updates.Load())
	assert.Equal(t, int64(1), c.Inserts.Load())
	assert.Equal(t, int64(1), c.Deletes.Load())
	assert.Equal(t, int64(1), c.VersionRejections.Load())
	assert.Equal(t, int64(3), c.Reclaimed.Load())
	assert.Equal(t, int64(2), c.Flushes.Load())
	assert.Equal(t, int64(1), c.FlushErrors.Load())
	assert.Equal(t, int64(7), c.LiveDocuments.Load())
	assert.Equal(t, int64(2), c.FreeSlots.Load())
}

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()

	c, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	c.RecordUpdate()
	c.RecordInsert()
	c.RecordVersionRejection()
	c.RecordReclaim(4)
	c.RecordFlush(time.Millisecond, nil)
	c.RecordFlush(time.Millisecond, errors.New("boom"))
	c.SetLiveDocuments(11)
	c.SetReclaimedSlots(4)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.updates))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.inserts))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.versionRejections))
	assert.Equal(t, float64(4), testutil.ToFloat64(c.reclaimed))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.flushes))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.flushErrors))
	assert.Equal(t, float64(11), testutil.ToFloat64(c.liveDocuments))
	assert.Equal(t, float64(4), testutil.ToFloat64(c.freeSlots))

	// Double registration on the same registry is refused.
	_, err = NewPrometheusCollector(reg)
	require.Error(t, err)
}
