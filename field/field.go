// Package field implements the per-slot value containers of the
// activity store. Each tracked attribute owns one growable array
// indexed by slot, its own lock, and its own flush bookkeeping; the
// store core only talks to the narrow ValueField contract.
package field

import "fmt"

// ValueField is the contract between the store core and one tracked
// attribute. The core never inspects field contents.
type ValueField interface {
	// Name returns the field name as it appears in update documents.
	Name() string

	// Update applies a value to the given slot and reports whether the
	// field wants a flush. Values may be absolute numbers or signed
	// delta strings ("+3", "-1").
	Update(slot int, value any) bool

	// Delete resets the slot to the kind's unknown sentinel.
	Delete(slot int)

	// FlushNeeded reports whether enough updates accumulated since the
	// last flush to warrant persisting.
	FlushNeeded() bool

	// PrepareFlush captures a consistent snapshot of the field state
	// and returns the deferred action that persists it. The returned
	// action runs on the flush worker, off the write path.
	PrepareFlush() func() error

	// Close releases field resources after a final flush.
	Close() error
}

// Persister stores field snapshots durably. A nil Persister keeps the
// field purely in memory; FlushNeeded then never fires.
type Persister interface {
	SaveInts(field string, values []int32) error
	SaveLongs(field string, values []int64) error
	SaveFloats(field string, values []float32) error
}

// coerce helpers shared by the concrete kinds.

func toInt64(value any) (int64, bool, error) {
	switch v := value.(type) {
	case int:
		return int64(v), false, nil
	case int32:
		return int64(v), false, nil
	case int64:
		return v, false, nil
	case float32:
		return int64(v), false, nil
	case float64:
		return int64(v), false, nil
	case string:
		return parseDelta(v)
	default:
		return 0, false, fmt.Errorf("field: unsupported value type %T", value)
	}
}

func toFloat64(value any) (float64, bool, error) {
	switch v := value.(type) {
	case int:
		return float64(v), false, nil
	case int32:
		return float64(v), false, nil
	case int64:
		return float64(v), false, nil
	case float32:
		return float64(v), false, nil
	case float64:
		return v, false, nil
	case string:
		n, delta, err := parseDeltaFloat(v)
		return n, delta, err
	default:
		return 0, false, fmt.Errorf("field: unsupported value type %T", value)
	}
}
