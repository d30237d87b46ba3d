// Package pebblestore persists activity records in an embedded pebble
// database: one key per slot plus a metadata key. Suited to stores
// whose record files outgrow simple positional I/O.
package pebblestore

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/hupe1980/activo/field"
	"github.com/hupe1980/activo/model"
	"github.com/hupe1980/activo/storage"
)

var (
	slotKeyPrefix = []byte("slot/")
	metadataKey   = []byte("meta")
	fieldPrefix   = []byte("field/")
)

// Factory is the pebble-backed storage.Factory. All collaborators
// share one database; the record store owns its lifecycle.
type Factory struct {
	db  *pebble.DB
	cfg storage.Config
}

// Open opens or creates a pebble database at path.
func Open(path string, optFns ...func(*storage.Config)) (*Factory, error) {
	cfg := storage.DefaultConfig
	for _, fn := range optFns {
		fn(&cfg)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebblestore: open: %w", err)
	}
	return &Factory{db: db, cfg: cfg}, nil
}

func (f *Factory) Config() storage.Config { return f.cfg }

func (f *Factory) RecordStore() (storage.RecordStore, error) {
	return &recordStore{db: f.db}, nil
}

func (f *Factory) Metadata() (storage.MetadataStore, error) {
	return &metadataStore{db: f.db}, nil
}

func (f *Factory) FieldPersister() field.Persister {
	return &fieldPersister{db: f.db}
}

var _ storage.Factory = (*Factory)(nil)

func slotKey(slot model.Slot) []byte {
	key := make([]byte, len(slotKeyPrefix)+4)
	copy(key, slotKeyPrefix)
	binary.BigEndian.PutUint32(key[len(slotKeyPrefix):], uint32(slot))
	return key
}

type recordStore struct {
	db *pebble.DB
}

func (s *recordStore) Flush(records []model.Update) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	var val [8]byte
	for _, r := range records {
		binary.LittleEndian.PutUint64(val[:], uint64(r.UID))
		if err := batch.Set(slotKey(r.Slot), val[:], nil); err != nil {
			return fmt.Errorf("pebblestore: batch set: %w", err)
		}
	}
	if err := s.db.Apply(batch, pebble.Sync); err != nil {
		return fmt.Errorf("pebblestore: apply: %w", err)
	}
	return nil
}

func (s *recordStore) Restore() ([]model.UID, error) {
	upper := append(append([]byte(nil), slotKeyPrefix...), 0xff)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: slotKeyPrefix,
		UpperBound: upper,
	})
	if err != nil {
		return nil, fmt.Errorf("pebblestore: iter: %w", err)
	}
	defer iter.Close()

	var uids []model.UID
	for iter.First(); iter.Valid(); iter.Next() {
		slot := binary.BigEndian.Uint32(iter.Key()[len(slotKeyPrefix):])
		for uint32(len(uids)) <= slot {
			uids = append(uids, model.DeletedUID)
		}
		uids[slot] = model.UID(binary.LittleEndian.Uint64(iter.Value()))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("pebblestore: scan: %w", err)
	}
	if len(uids) == 0 {
		return nil, storage.ErrNotFound
	}
	return uids, nil
}

func (s *recordStore) Close() error {
	return s.db.Close()
}

type metadataStore struct {
	mu      sync.Mutex
	db      *pebble.DB
	version string
	count   int
}

type metadataPayload struct {
	Version string `json:"version"`
	Count   int    `json:"count"`
}

func (m *metadataStore) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	val, closer, err := m.db.Get(metadataKey)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pebblestore: read metadata: %w", err)
	}
	defer closer.Close()

	var p metadataPayload
	if err := json.Unmarshal(val, &p); err != nil {
		return fmt.Errorf("pebblestore: decode metadata: %w", err)
	}
	m.version = p.Version
	m.count = p.Count
	return nil
}

func (m *metadataStore) Version() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

func (m *metadataStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

func (m *metadataStore) Update(version string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	payload, err := json.Marshal(metadataPayload{Version: version, Count: count})
	if err != nil {
		return fmt.Errorf("pebblestore: encode metadata: %w", err)
	}
	if err := m.db.Set(metadataKey, payload, pebble.Sync); err != nil {
		return fmt.Errorf("pebblestore: write metadata: %w", err)
	}
	m.version = version
	m.count = count
	return nil
}

var _ storage.MetadataStore = (*metadataStore)(nil)

// fieldPersister stores one key per field column.
type fieldPersister struct {
	db *pebble.DB
}

func fieldKey(name string) []byte {
	return append(append([]byte(nil), fieldPrefix...), name...)
}

func (p *fieldPersister) SaveInts(name string, values []int32) error {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	return p.save(name, buf)
}

func (p *fieldPersister) SaveLongs(name string, values []int64) error {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v))
	}
	return p.save(name, buf)
}

func (p *fieldPersister) SaveFloats(name string, values []float32) error {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return p.save(name, buf)
}

func (p *fieldPersister) LoadInts(name string) ([]int32, error) {
	buf, err := p.load(name)
	if buf == nil || err != nil {
		return nil, err
	}
	values := make([]int32, len(buf)/4)
	for i := range values {
		values[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return values, nil
}

func (p *fieldPersister) LoadLongs(name string) ([]int64, error) {
	buf, err := p.load(name)
	if buf == nil || err != nil {
		return nil, err
	}
	values := make([]int64, len(buf)/8)
	for i := range values {
		values[i] = int64(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return values, nil
}

func (p *fieldPersister) LoadFloats(name string) ([]float32, error) {
	buf, err := p.load(name)
	if buf == nil || err != nil {
		return nil, err
	}
	values := make([]float32, len(buf)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return values, nil
}

func (p *fieldPersister) save(name string, buf []byte) error {
	if err := p.db.Set(fieldKey(name), buf, pebble.Sync); err != nil {
		return fmt.Errorf("pebblestore: write column %s: %w", name, err)
	}
	return nil
}

func (p *fieldPersister) load(name string) ([]byte, error) {
	val, closer, err := p.db.Get(fieldKey(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pebblestore: read column %s: %w", name, err)
	}
	defer closer.Close()
	out := append([]byte(nil), val...)
	return out, nil
}
