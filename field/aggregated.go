package field

import "fmt"

// TimeAggregatedField is a pre-aggregated composite: one cumulative
// counter plus one counter per trailing time window, all int-kind.
// Window counters are addressed as "name:window" (e.g. "views:5m").
// Actual window decay is driven by the feed, which re-sends bucketed
// values; the composite only stores them.
type TimeAggregatedField struct {
	name       string
	cumulative *IntField
	windows    map[string]*IntField
	order      []string
}

// NewTimeAggregated builds the composite for the given windows.
func NewTimeAggregated(name string, windows []string, capacity, threshold int, p Persister) (*TimeAggregatedField, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("field: aggregate %q has no windows", name)
	}
	cumulative, err := NewInt(name, capacity, threshold, p)
	if err != nil {
		return nil, err
	}
	f := &TimeAggregatedField{
		name:       name,
		cumulative: cumulative,
		windows:    make(map[string]*IntField, len(windows)),
		order:      append([]string(nil), windows...),
	}
	for _, w := range windows {
		wf, err := NewInt(name+":"+w, capacity, threshold, p)
		if err != nil {
			return nil, err
		}
		f.windows[w] = wf
	}
	return f, nil
}

func (f *TimeAggregatedField) Name() string { return f.name }

// Update fans the value out to the cumulative counter and every
// window counter.
func (f *TimeAggregatedField) Update(slot int, value any) bool {
	need := f.cumulative.Update(slot, value)
	for _, w := range f.order {
		need = f.windows[w].Update(slot, value) || need
	}
	return need
}

func (f *TimeAggregatedField) Delete(slot int) {
	f.cumulative.Delete(slot)
	for _, w := range f.order {
		f.windows[w].Delete(slot)
	}
}

// Default returns the cumulative counter.
func (f *TimeAggregatedField) Default() *IntField { return f.cumulative }

// Window returns the counter for one trailing window, or nil when the
// window is not tracked.
func (f *TimeAggregatedField) Window(window string) *IntField {
	return f.windows[window]
}

func (f *TimeAggregatedField) FlushNeeded() bool {
	if f.cumulative.FlushNeeded() {
		return true
	}
	for _, w := range f.order {
		if f.windows[w].FlushNeeded() {
			return true
		}
	}
	return false
}

func (f *TimeAggregatedField) PrepareFlush() func() error {
	actions := make([]func() error, 0, len(f.order)+1)
	actions = append(actions, f.cumulative.PrepareFlush())
	for _, w := range f.order {
		actions = append(actions, f.windows[w].PrepareFlush())
	}
	return func() error {
		for _, action := range actions {
			if err := action(); err != nil {
				return err
			}
		}
		return nil
	}
}

func (f *TimeAggregatedField) Close() error {
	if err := f.cumulative.Close(); err != nil {
		return err
	}
	for _, w := range f.order {
		if err := f.windows[w].Close(); err != nil {
			return err
		}
	}
	return nil
}

var _ ValueField = (*TimeAggregatedField)(nil)
