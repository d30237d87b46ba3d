package activo

import (
	"time"

	"github.com/hupe1980/activo/model"
)

// batchLimits is the flush-due policy of a pending batch: a record
// count ceiling and a maximum age of the oldest unflushed record.
type batchLimits struct {
	maxRecords int
	maxDelay   time.Duration
}

// updateBatch accumulates pending mutation records between flush
// cycles. It is guarded by the store's write lock; once a flush swaps
// it out, only the flush worker touches it.
type updateBatch struct {
	limits  batchLimits
	records []model.Update
	oldest  time.Time
}

func newUpdateBatch(limits batchLimits) *updateBatch {
	return &updateBatch{limits: limits}
}

// add appends a record and reports whether the batch is now flush-due.
func (b *updateBatch) add(r model.Update) bool {
	if len(b.records) == 0 {
		b.oldest = time.Now()
	}
	b.records = append(b.records, r)
	return b.flushNeeded()
}

func (b *updateBatch) flushNeeded() bool {
	if len(b.records) == 0 {
		return false
	}
	if b.limits.maxRecords > 0 && len(b.records) >= b.limits.maxRecords {
		return true
	}
	return b.limits.maxDelay > 0 && time.Since(b.oldest) >= b.limits.maxDelay
}

func (b *updateBatch) empty() bool {
	return len(b.records) == 0
}
