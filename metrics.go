package activo

import (
	"sync/atomic"
	"time"
)

// Collector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; a
// prometheus-backed implementation ships with the package.
//
// The collector replaces process-wide static counters: its lifecycle
// is tied to the store it is injected into.
type Collector interface {
	// RecordUpdate is called for every update that passed the version
	// check, whether or not it allocated a new slot.
	RecordUpdate()

	// RecordInsert is called when an update allocated a slot for a
	// previously unknown uid.
	RecordInsert()

	// RecordDelete is called for every delete of a known uid.
	RecordDelete()

	// RecordVersionRejection is called when a mutation is dropped
	// because its version precedes the last accepted one.
	RecordVersionRejection()

	// RecordReclaim is called after a flushed delete batch returned
	// count slots to the free pool.
	RecordReclaim(count int)

	// RecordFlush is called at the end of every flush cycle on the
	// flush worker. err is nil on success.
	RecordFlush(duration time.Duration, err error)

	// SetLiveDocuments reports the number of live slots after a flush.
	SetLiveDocuments(count int)

	// SetReclaimedSlots reports the free-pool size after a flush.
	SetReclaimedSlots(count int)
}

// NoopCollector is a no-op implementation of Collector.
type NoopCollector struct{}

func (NoopCollector) RecordUpdate()                      {}
func (NoopCollector) RecordInsert()                      {}
func (NoopCollector) RecordDelete()                      {}
func (NoopCollector) RecordVersionRejection()            {}
func (NoopCollector) RecordReclaim(int)                  {}
func (NoopCollector) RecordFlush(time.Duration, error)   {}
func (NoopCollector) SetLiveDocuments(int)               {}
func (NoopCollector) SetReclaimedSlots(int)              {}

// BasicCollector provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type BasicCollector struct {
	Updates           atomic.Int64
	Inserts           atomic.Int64
	Deletes           atomic.Int64
	VersionRejections atomic.Int64
	Reclaimed         atomic.Int64
	Flushes           atomic.Int64
	FlushErrors       atomic.Int64
	FlushTotalNanos   atomic.Int64
	LiveDocuments     atomic.Int64
	FreeSlots         atomic.Int64
}

func (b *BasicCollector) RecordUpdate()           { b.Updates.Add(1) }
func (b *BasicCollector) RecordInsert()           { b.Inserts.Add(1) }
func (b *BasicCollector) RecordDelete()           { b.Deletes.Add(1) }
func (b *BasicCollector) RecordVersionRejection() { b.VersionRejections.Add(1) }
func (b *BasicCollector) RecordReclaim(count int) { b.Reclaimed.Add(int64(count)) }

func (b *BasicCollector) RecordFlush(duration time.Duration, err error) {
	b.Flushes.Add(1)
	b.FlushTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FlushErrors.Add(1)
	}
}

func (b *BasicCollector) SetLiveDocuments(count int) { b.LiveDocuments.Store(int64(count)) }
func (b *BasicCollector) SetReclaimedSlots(count int) { b.FreeSlots.Store(int64(count)) }

var (
	_ Collector = NoopCollector{}
	_ Collector = (*BasicCollector)(nil)
)
