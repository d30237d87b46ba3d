package field

import "sync"

// numericField is the shared representation behind the three primitive
// kinds: a growable slot-indexed array guarded by its own lock, plus a
// counter of updates since the last flush.
type numericField[T int32 | int64 | float32] struct {
	name      string
	sentinel  T
	threshold int

	mu      sync.RWMutex
	values  []T
	pending int

	save func(values []T) error
}

func newNumericField[T int32 | int64 | float32](name string, sentinel T, capacity, threshold int, save func([]T) error) *numericField[T] {
	if capacity < 0 {
		capacity = 0
	}
	values := make([]T, capacity)
	for i := range values {
		values[i] = sentinel
	}
	return &numericField[T]{
		name:      name,
		sentinel:  sentinel,
		threshold: threshold,
		values:    values,
		save:      save,
	}
}

func (f *numericField[T]) restore(values []T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(values) > len(f.values) {
		f.values = values
	} else {
		copy(f.values, values)
	}
}

// ensure grows the array to cover slot. Called with f.mu held.
func (f *numericField[T]) ensure(slot int) {
	for slot >= len(f.values) {
		grown := len(f.values)*2 + 1
		if grown <= slot {
			grown = slot + 1
		}
		old := f.values
		f.values = make([]T, grown)
		copy(f.values, old)
		for i := len(old); i < grown; i++ {
			f.values[i] = f.sentinel
		}
	}
}

// apply mutates one slot. delta values accumulate; absolute values
// replace. A delta against the sentinel treats the slot as zero.
func (f *numericField[T]) apply(slot int, v T, delta bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensure(slot)
	if delta {
		if f.values[slot] == f.sentinel {
			f.values[slot] = v
		} else {
			f.values[slot] += v
		}
	} else {
		f.values[slot] = v
	}
	f.pending++
	return f.save != nil && f.pending >= f.threshold
}

func (f *numericField[T]) value(slot int) T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if slot < 0 || slot >= len(f.values) {
		return f.sentinel
	}
	return f.values[slot]
}

func (f *numericField[T]) reset(slot int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if slot < 0 {
		return
	}
	f.ensure(slot)
	f.values[slot] = f.sentinel
	f.pending++
}

func (f *numericField[T]) flushNeeded() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.save != nil && f.pending >= f.threshold
}

// prepareFlush snapshots the array and clears the pending counter. The
// returned action persists the snapshot on the flush worker.
func (f *numericField[T]) prepareFlush() func() error {
	f.mu.Lock()
	snapshot := make([]T, len(f.values))
	copy(snapshot, f.values)
	f.pending = 0
	f.mu.Unlock()

	if f.save == nil {
		return func() error { return nil }
	}
	return func() error { return f.save(snapshot) }
}

func (f *numericField[T]) len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.values)
}
