package activo

import (
	"sync"
	"sync/atomic"
	"time"
)

// flushWorker runs persistence work on a single dedicated goroutine,
// so flushes are serialized relative to each other and never execute
// on a caller's goroutine. A new flush may be queued while one is in
// flight; queued work runs strictly after the prior flush completes.
type flushWorker struct {
	submitMu sync.RWMutex
	closed   atomic.Bool
	tasks    chan func()
	done     chan struct{}
}

func newFlushWorker(queueDepth int) *flushWorker {
	if queueDepth <= 0 {
		queueDepth = 4
	}
	w := &flushWorker{
		tasks: make(chan func(), queueDepth),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *flushWorker) run() {
	defer close(w.done)
	for task := range w.tasks {
		task()
	}
}

// submit enqueues a task, blocking for backpressure when the queue is
// full. Returns ErrClosed after close begins.
func (w *flushWorker) submit(task func()) error {
	w.submitMu.RLock()
	defer w.submitMu.RUnlock()
	if w.closed.Load() {
		return ErrClosed
	}
	w.tasks <- task
	return nil
}

// close stops intake and waits up to timeout for queued work to drain.
func (w *flushWorker) close(timeout time.Duration) error {
	if !w.closed.CompareAndSwap(false, true) {
		<-w.done
		return nil
	}

	w.submitMu.Lock()
	close(w.tasks)
	w.submitMu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-time.After(timeout):
		return ErrCloseTimeout
	}
}
