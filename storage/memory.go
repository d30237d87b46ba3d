package storage

import (
	"sync"

	"github.com/hupe1980/activo/field"
	"github.com/hupe1980/activo/model"
)

// MemoryFactory is an in-memory backend for tests and ephemeral
// stores. It keeps the full persistence contract, including the
// slot→uid array and metadata, so flush/restore round-trips can be
// exercised without a filesystem.
type MemoryFactory struct {
	cfg       Config
	records   *MemoryRecordStore
	metadata  *memoryMetadata
	persister *memoryPersister
}

// NewMemoryFactory creates an in-memory backend.
func NewMemoryFactory(optFns ...func(*Config)) *MemoryFactory {
	cfg := DefaultConfig
	for _, fn := range optFns {
		fn(&cfg)
	}
	return &MemoryFactory{
		cfg:       cfg,
		records:   &MemoryRecordStore{},
		metadata:  &memoryMetadata{},
		persister: newMemoryPersister(),
	}
}

func (f *MemoryFactory) Config() Config { return f.cfg }

func (f *MemoryFactory) RecordStore() (RecordStore, error) { return f.records, nil }

func (f *MemoryFactory) Metadata() (MetadataStore, error) { return f.metadata, nil }

func (f *MemoryFactory) FieldPersister() field.Persister { return f.persister }

var _ Factory = (*MemoryFactory)(nil)

// MemoryRecordStore keeps the slot→uid array in memory.
type MemoryRecordStore struct {
	mu   sync.Mutex
	uids []model.UID

	// FlushErr, when set, fails the next Flush. Tests use it to drive
	// the failure path of the flush worker.
	FlushErr error

	flushes int
}

func (s *MemoryRecordStore) Flush(records []model.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FlushErr != nil {
		err := s.FlushErr
		s.FlushErr = nil
		return err
	}
	for _, r := range records {
		for int(r.Slot) >= len(s.uids) {
			s.uids = append(s.uids, model.DeletedUID)
		}
		s.uids[r.Slot] = r.UID
	}
	s.flushes++
	return nil
}

func (s *MemoryRecordStore) Restore() ([]model.UID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.uids) == 0 {
		return nil, ErrNotFound
	}
	out := make([]model.UID, len(s.uids))
	copy(out, s.uids)
	return out, nil
}

// Flushes returns how many Flush calls completed.
func (s *MemoryRecordStore) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

func (s *MemoryRecordStore) Close() error { return nil }

type memoryMetadata struct {
	mu      sync.Mutex
	version string
	count   int
}

func (m *memoryMetadata) Init() error { return nil }

func (m *memoryMetadata) Version() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

func (m *memoryMetadata) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

func (m *memoryMetadata) Update(version string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version = version
	m.count = count
	return nil
}

type memoryPersister struct {
	mu     sync.Mutex
	ints   map[string][]int32
	longs  map[string][]int64
	floats map[string][]float32
}

func newMemoryPersister() *memoryPersister {
	return &memoryPersister{
		ints:   make(map[string][]int32),
		longs:  make(map[string][]int64),
		floats: make(map[string][]float32),
	}
}

func (p *memoryPersister) SaveInts(field string, values []int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ints[field] = append([]int32(nil), values...)
	return nil
}

func (p *memoryPersister) SaveLongs(field string, values []int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.longs[field] = append([]int64(nil), values...)
	return nil
}

func (p *memoryPersister) SaveFloats(field string, values []float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.floats[field] = append([]float32(nil), values...)
	return nil
}

func (p *memoryPersister) LoadInts(field string) ([]int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.ints[field]; ok {
		return append([]int32(nil), v...), nil
	}
	return nil, nil
}

func (p *memoryPersister) LoadLongs(field string) ([]int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.longs[field]; ok {
		return append([]int64(nil), v...), nil
	}
	return nil, nil
}

func (p *memoryPersister) LoadFloats(field string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.floats[field]; ok {
		return append([]float32(nil), v...), nil
	}
	return nil, nil
}
