package field

import "math"

// Unknown-value sentinels per kind, matching the typed getter contract
// of the store: a lookup against an unknown document returns the
// minimum representable value of the kind.
const (
	UnknownInt  = int32(math.MinInt32)
	UnknownLong = int64(math.MinInt64)
)

// UnknownFloat is the float sentinel. The most negative finite float32
// keeps the "minimum representable" convention without dragging NaN
// semantics into comparisons.
const UnknownFloat = float32(-math.MaxFloat32)

// DefaultFlushThreshold is the per-field update count after which a
// persistent field reports FlushNeeded.
const DefaultFlushThreshold = 65536

// IntField tracks 32-bit integer activity values.
type IntField struct {
	n *numericField[int32]
}

// NewInt creates an IntField sized for capacity slots. A nil persister
// keeps the field in memory only. Previously persisted values are
// restored.
func NewInt(name string, capacity, threshold int, p Persister) (*IntField, error) {
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	var save func([]int32) error
	if p != nil {
		save = func(values []int32) error { return p.SaveInts(name, values) }
	}
	f := &IntField{n: newNumericField(name, UnknownInt, capacity, threshold, save)}
	if loader, ok := p.(IntLoader); ok && p != nil {
		values, err := loader.LoadInts(name)
		if err != nil {
			return nil, err
		}
		if values != nil {
			f.n.restore(values)
		}
	}
	return f, nil
}

// IntLoader is an optional Persister extension for restoring values at
// construction. Absent fields load as nil with no error.
type IntLoader interface {
	LoadInts(field string) ([]int32, error)
}

// LongLoader mirrors IntLoader for 64-bit fields.
type LongLoader interface {
	LoadLongs(field string) ([]int64, error)
}

// FloatLoader mirrors IntLoader for float fields.
type FloatLoader interface {
	LoadFloats(field string) ([]float32, error)
}

func (f *IntField) Name() string { return f.n.name }

func (f *IntField) Update(slot int, value any) bool {
	v, delta, err := toInt64(value)
	if err != nil {
		return false
	}
	return f.n.apply(slot, int32(v), delta)
}

func (f *IntField) Delete(slot int) { f.n.reset(slot) }

// Value returns the slot's value, or UnknownInt for untracked slots.
func (f *IntField) Value(slot int) int32 { return f.n.value(slot) }

func (f *IntField) FlushNeeded() bool { return f.n.flushNeeded() }

func (f *IntField) PrepareFlush() func() error { return f.n.prepareFlush() }

func (f *IntField) Close() error { return nil }

// LongField tracks 64-bit integer activity values (e.g. timestamps).
type LongField struct {
	n *numericField[int64]
}

// NewLong creates a LongField sized for capacity slots.
func NewLong(name string, capacity, threshold int, p Persister) (*LongField, error) {
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	var save func([]int64) error
	if p != nil {
		save = func(values []int64) error { return p.SaveLongs(name, values) }
	}
	f := &LongField{n: newNumericField(name, UnknownLong, capacity, threshold, save)}
	if loader, ok := p.(LongLoader); ok && p != nil {
		values, err := loader.LoadLongs(name)
		if err != nil {
			return nil, err
		}
		if values != nil {
			f.n.restore(values)
		}
	}
	return f, nil
}

func (f *LongField) Name() string { return f.n.name }

func (f *LongField) Update(slot int, value any) bool {
	v, delta, err := toInt64(value)
	if err != nil {
		return false
	}
	return f.n.apply(slot, v, delta)
}

func (f *LongField) Delete(slot int) { f.n.reset(slot) }

// Value returns the slot's value, or UnknownLong for untracked slots.
func (f *LongField) Value(slot int) int64 { return f.n.value(slot) }

func (f *LongField) FlushNeeded() bool { return f.n.flushNeeded() }

func (f *LongField) PrepareFlush() func() error { return f.n.prepareFlush() }

func (f *LongField) Close() error { return nil }

// FloatField tracks 32-bit float activity values.
type FloatField struct {
	n *numericField[float32]
}

// NewFloat creates a FloatField sized for capacity slots.
func NewFloat(name string, capacity, threshold int, p Persister) (*FloatField, error) {
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	var save func([]float32) error
	if p != nil {
		save = func(values []float32) error { return p.SaveFloats(name, values) }
	}
	f := &FloatField{n: newNumericField(name, UnknownFloat, capacity, threshold, save)}
	if loader, ok := p.(FloatLoader); ok && p != nil {
		values, err := loader.LoadFloats(name)
		if err != nil {
			return nil, err
		}
		if values != nil {
			f.n.restore(values)
		}
	}
	return f, nil
}

func (f *FloatField) Name() string { return f.n.name }

func (f *FloatField) Update(slot int, value any) bool {
	v, delta, err := toFloat64(value)
	if err != nil {
		return false
	}
	return f.n.apply(slot, float32(v), delta)
}

func (f *FloatField) Delete(slot int) { f.n.reset(slot) }

// Value returns the slot's value, or UnknownFloat for untracked slots.
func (f *FloatField) Value(slot int) float32 { return f.n.value(slot) }

func (f *FloatField) FlushNeeded() bool { return f.n.flushNeeded() }

func (f *FloatField) PrepareFlush() func() error { return f.n.prepareFlush() }

func (f *FloatField) Close() error { return nil }

// Compile-time interface checks.
var (
	_ ValueField = (*IntField)(nil)
	_ ValueField = (*LongField)(nil)
	_ ValueField = (*FloatField)(nil)
)
