package field

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturePersister records the last saved snapshot per field.
type capturePersister struct {
	mu     sync.Mutex
	ints   map[string][]int32
	longs  map[string][]int64
	floats map[string][]float32
}

func newCapturePersister() *capturePersister {
	return &capturePersister{
		ints:   make(map[string][]int32),
		longs:  make(map[string][]int64),
		floats: make(map[string][]float32),
	}
}

func (p *capturePersister) SaveInts(field string, values []int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ints[field] = values
	return nil
}

func (p *capturePersister) SaveLongs(field string, values []int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.longs[field] = values
	return nil
}

func (p *capturePersister) SaveFloats(field string, values []float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.floats[field] = values
	return nil
}

func TestParseDelta(t *testing.T) {
	testCases := []struct {
		in      string
		want    int64
		delta   bool
		wantErr bool
	}{
		{in: "5", want: 5, delta: false},
		{in: "+1", want: 1, delta: true},
		{in: "-2", want: -2, delta: true},
		{in: "0", want: 0, delta: false},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			n, delta, err := parseDelta(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, n)
			assert.Equal(t, tc.delta, delta)
		})
	}
}

func TestIntField_DeltaSemantics(t *testing.T) {
	f, err := NewInt("likes", 4, 0, nil)
	require.NoError(t, err)

	// Delta against an untracked slot starts from zero.
	f.Update(0, "+3")
	assert.Equal(t, int32(3), f.Value(0))

	f.Update(0, "+2")
	assert.Equal(t, int32(5), f.Value(0))

	f.Update(0, "-1")
	assert.Equal(t, int32(4), f.Value(0))

	// Bare values replace.
	f.Update(0, "10")
	assert.Equal(t, int32(10), f.Value(0))

	f.Update(0, 7)
	assert.Equal(t, int32(7), f.Value(0))
}

func TestIntField_SentinelAndGrow(t *testing.T) {
	f, err := NewInt("likes", 2, 0, nil)
	require.NoError(t, err)

	// Unknown slots report the sentinel, including out of range.
	assert.Equal(t, UnknownInt, f.Value(0))
	assert.Equal(t, UnknownInt, f.Value(100))
	assert.Equal(t, UnknownInt, f.Value(-1))

	// Writing far past the capacity grows the array.
	f.Update(50, 9)
	assert.Equal(t, int32(9), f.Value(50))
	assert.Equal(t, UnknownInt, f.Value(49))

	f.Delete(50)
	assert.Equal(t, UnknownInt, f.Value(50))
}

func TestIntField_UnsupportedValueIgnored(t *testing.T) {
	f, err := NewInt("likes", 1, 0, nil)
	require.NoError(t, err)

	need := f.Update(0, []byte("nope"))
	assert.False(t, need)
	assert.Equal(t, UnknownInt, f.Value(0))
}

func TestLongField(t *testing.T) {
	f, err := NewLong("ts", 2, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, UnknownLong, f.Value(0))

	f.Update(0, int64(1700000000000))
	assert.Equal(t, int64(1700000000000), f.Value(0))

	f.Update(0, "+5")
	assert.Equal(t, int64(1700000000005), f.Value(0))
}

func TestFloatField(t *testing.T) {
	f, err := NewFloat("score", 2, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, UnknownFloat, f.Value(0))

	f.Update(0, 1.5)
	assert.InDelta(t, 1.5, f.Value(0), 1e-6)

	f.Update(0, "+0.25")
	assert.InDelta(t, 1.75, f.Value(0), 1e-6)
}

func TestIntField_FlushThreshold(t *testing.T) {
	p := newCapturePersister()

	f, err := NewInt("likes", 4, 3, p)
	require.NoError(t, err)

	assert.False(t, f.Update(0, 1))
	assert.False(t, f.Update(1, 1))
	assert.False(t, f.FlushNeeded())

	// Third update crosses the threshold.
	assert.True(t, f.Update(2, 1))
	assert.True(t, f.FlushNeeded())
}

func TestIntField_PrepareFlushSnapshot(t *testing.T) {
	p := newCapturePersister()

	f, err := NewInt("likes", 2, 1, p)
	require.NoError(t, err)

	f.Update(0, 5)
	require.True(t, f.FlushNeeded())

	action := f.PrepareFlush()

	// The counter resets at snapshot time, not at persist time.
	assert.False(t, f.FlushNeeded())

	// Mutations after the snapshot must not leak into it.
	f.Update(0, 99)

	require.NoError(t, action())
	require.Len(t, p.ints["likes"], 2)
	assert.Equal(t, int32(5), p.ints["likes"][0])
	assert.Equal(t, UnknownInt, p.ints["likes"][1])
}

func TestIntField_NilPersisterNeverFlushes(t *testing.T) {
	f, err := NewInt("likes", 1, 1, nil)
	require.NoError(t, err)

	assert.False(t, f.Update(0, 1))
	assert.False(t, f.FlushNeeded())
	require.NoError(t, f.PrepareFlush()())
}

type capturingLoader struct {
	*capturePersister
	restored []int32
}

func (l *capturingLoader) LoadInts(string) ([]int32, error) { return l.restored, nil }

func TestIntField_RestoreAtConstruction(t *testing.T) {
	loader := &capturingLoader{
		capturePersister: newCapturePersister(),
		restored:         []int32{7, UnknownInt, 9},
	}

	f, err := NewInt("likes", 1, 0, loader)
	require.NoError(t, err)

	assert.Equal(t, int32(7), f.Value(0))
	assert.Equal(t, UnknownInt, f.Value(1))
	assert.Equal(t, int32(9), f.Value(2))
}

func TestTimeAggregatedField(t *testing.T) {
	f, err := NewTimeAggregated("views", []string{"5m", "1h"}, 4, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, "views", f.Name())
	require.NotNil(t, f.Window("5m"))
	require.NotNil(t, f.Window("1h"))
	assert.Nil(t, f.Window("1d"))

	f.Update(0, "+2")

	assert.Equal(t, int32(2), f.Default().Value(0))
	assert.Equal(t, int32(2), f.Window("5m").Value(0))
	assert.Equal(t, int32(2), f.Window("1h").Value(0))

	f.Delete(0)
	assert.Equal(t, UnknownInt, f.Default().Value(0))
	assert.Equal(t, UnknownInt, f.Window("5m").Value(0))
}

func TestTimeAggregatedField_NoWindows(t *testing.T) {
	_, err := NewTimeAggregated("views", nil, 4, 0, nil)
	require.Error(t, err)
}

func TestTimeAggregatedField_PrepareFlush(t *testing.T) {
	p := newCapturePersister()

	f, err := NewTimeAggregated("views", []string{"5m"}, 2, 1, p)
	require.NoError(t, err)

	f.Update(0, 3)
	require.True(t, f.FlushNeeded())

	require.NoError(t, f.PrepareFlush()())

	assert.Contains(t, p.ints, "views")
	assert.Contains(t, p.ints, "views:5m")
}
