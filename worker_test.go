package activo

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlushWorker_RunsTasksInOrder(t *testing.T) {
	w := newFlushWorker(4)

	var order []int
	done := make(chan struct{})

	for i := 0; i < 3; i++ {
		i := i
		require.NoError(t, w.submit(func() { order = append(order, i) }))
	}
	require.NoError(t, w.submit(func() { close(done) }))

	<-done
	require.NoError(t, w.close(time.Second))

	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestFlushWorker_DrainsOnClose(t *testing.T) {
	w := newFlushWorker(4)

	var ran atomic.Int64
	for i := 0; i < 4; i++ {
		require.NoError(t, w.submit(func() { ran.Add(1) }))
	}

	require.NoError(t, w.close(time.Second))
	assert.Equal(t, int64(4), ran.Load())
}

func TestFlushWorker_SubmitAfterClose(t *testing.T) {
	w := newFlushWorker(1)
	require.NoError(t, w.close(time.Second))

	err := w.submit(func() {})
	require.ErrorIs(t, err, ErrClosed)
}

func TestFlushWorker_CloseTimeout(t *testing.T) {
	w := newFlushWorker(1)

	release := make(chan struct{})
	require.NoError(t, w.submit(func() { <-release }))

	err := w.close(20 * time.Millisecond)
	require.ErrorIs(t, err, ErrCloseTimeout)

	close(release)
}

func TestFlushWorker_CloseIdempotent(t *testing.T) {
	w := newFlushWorker(1)
	require.NoError(t, w.close(time.Second))
	require.NoError(t, w.close(time.Second))
}
