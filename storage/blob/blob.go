// Package blob implements a snapshot storage backend on top of a
// blobstore.BlobStore. Records live in one zstd-compressed snapshot
// object that each flush rewrites whole; this fits object stores,
// where positional patching is not available. Use it with the local,
// memory, s3 or minio blob stores, optionally behind a CachingStore.
package blob

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/hupe1980/activo/blobstore"
	"github.com/hupe1980/activo/field"
	"github.com/hupe1980/activo/model"
	"github.com/hupe1980/activo/storage"
	"github.com/klauspost/compress/zstd"
)

const (
	recordsBlob  = "records.snapshot"
	metadataBlob = "metadata.json"
	fieldPrefix  = "fields/"
)

// Factory assembles a blob-backed activity store backend.
type Factory struct {
	store blobstore.BlobStore
	cfg   storage.Config

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewFactory creates a factory over the given blob store.
func NewFactory(store blobstore.BlobStore, optFns ...func(*storage.Config)) (*Factory, error) {
	cfg := storage.DefaultConfig
	for _, fn := range optFns {
		fn(&cfg)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("blob: create encoder: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("blob: create decoder: %w", err)
	}

	return &Factory{store: store, cfg: cfg, enc: enc, dec: dec}, nil
}

func (f *Factory) RecordStore() (storage.RecordStore, error) {
	return &recordStore{factory: f}, nil
}

func (f *Factory) Metadata() (storage.MetadataStore, error) {
	return &metadata{factory: f}, nil
}

func (f *Factory) FieldPersister() field.Persister {
	return &persister{factory: f}
}

func (f *Factory) Config() storage.Config { return f.cfg }

// recordStore keeps the full slot→uid array in memory and rewrites
// the compressed snapshot on every flush. The array is only touched
// from the flush worker and from Restore before the store goes live,
// so a plain mutex suffices.
type recordStore struct {
	factory *Factory

	mu   sync.Mutex
	uids []model.UID
}

func (r *recordStore) Flush(records []model.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range records {
		slot := int(rec.Slot)
		for slot >= len(r.uids) {
			r.uids = append(r.uids, model.DeletedUID)
		}
		r.uids[slot] = rec.UID
	}

	raw := make([]byte, 8*len(r.uids))
	for i, uid := range r.uids {
		binary.LittleEndian.PutUint64(raw[i*8:], uint64(uid))
	}

	compressed := r.factory.enc.EncodeAll(raw, nil)

	return r.factory.store.Put(context.Background(), recordsBlob, compressed)
}

func (r *recordStore) Restore() ([]model.UID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.factory.store.Get(context.Background(), recordsBlob)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("blob: read records: %w", err)
	}

	raw, err := r.factory.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("blob: decompress records: %w", err)
	}
	if len(raw)%8 != 0 {
		return nil, fmt.Errorf("blob: records snapshot has odd length %d", len(raw))
	}

	r.uids = make([]model.UID, len(raw)/8)
	for i := range r.uids {
		r.uids[i] = model.UID(binary.LittleEndian.Uint64(raw[i*8:]))
	}

	out := make([]model.UID, len(r.uids))
	copy(out, r.uids)

	return out, nil
}

// Close releases the factory's codecs. The record store owns the
// backend lifecycle, mirroring the file and pebble backends.
func (r *recordStore) Close() error {
	r.factory.dec.Close()
	return r.factory.enc.Close()
}

type metadataRecord struct {
	Version string `json:"version"`
	Count   int    `json:"count"`
}

type metadata struct {
	factory *Factory

	mu  sync.Mutex
	rec metadataRecord
}

func (m *metadata) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := m.factory.store.Get(context.Background(), metadataBlob)
	if errors.Is(err, blobstore.ErrNotFound) {
		m.rec = metadataRecord{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("blob: read metadata: %w", err)
	}

	if err := json.Unmarshal(data, &m.rec); err != nil {
		return fmt.Errorf("blob: decode metadata: %w", err)
	}

	return nil
}

func (m *metadata) Version() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.rec.Version
}

func (m *metadata) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.rec.Count
}

func (m *metadata) Update(version string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := metadataRecord{Version: version, Count: count}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("blob: encode metadata: %w", err)
	}

	if err := m.factory.store.Put(context.Background(), metadataBlob, data); err != nil {
		return err
	}

	m.rec = rec

	return nil
}

// persister writes one compressed column blob per field.
type persister struct {
	factory *Factory
}

func (p *persister) SaveInts(name string, values []int32) error {
	raw := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], uint32(v))
	}
	return p.save(name, raw)
}

func (p *persister) SaveLongs(name string, values []int64) error {
	raw := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[i*8:], uint64(v))
	}
	return p.save(name, raw)
}

func (p *persister) SaveFloats(name string, values []float32) error {
	raw := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return p.save(name, raw)
}

func (p *persister) save(name string, raw []byte) error {
	compressed := p.factory.enc.EncodeAll(raw, nil)
	return p.factory.store.Put(context.Background(), fieldPrefix+name+".col", compressed)
}
