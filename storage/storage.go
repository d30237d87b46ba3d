// Package storage defines the persistence contracts of the activity
// store: the record store that durably appends update records, the
// metadata store that tracks the last fully-flushed version, and the
// factory that wires a concrete backend together.
package storage

import (
	"errors"
	"time"

	"github.com/hupe1980/activo/field"
	"github.com/hupe1980/activo/model"
)

// ErrNotFound is returned when a backend has no persisted state yet.
var ErrNotFound = errors.New("storage: not found")

// Config carries the flush tuning a backend hands to the store.
type Config struct {
	// FlushBufferSize is the record-count ceiling of a pending batch.
	FlushBufferSize int

	// FlushInterval is the maximum age of the oldest unflushed record
	// before the batch reports flush-due.
	FlushInterval time.Duration

	// FieldFlushThreshold is the per-field update count that makes a
	// field report flush-due.
	FieldFlushThreshold int

	// UndeletableBufferSize bounds the recently-added-uid buffer.
	UndeletableBufferSize int
}

// DefaultConfig is the tuning used when a factory has no opinion.
var DefaultConfig = Config{
	FlushBufferSize:       50000,
	FlushInterval:         5 * time.Minute,
	FieldFlushThreshold:   field.DefaultFlushThreshold,
	UndeletableBufferSize: 5000,
}

// RecordStore durably persists ordered (slot, uid) update records.
// Flush is only ever called from the store's flush worker, never on
// the synchronous write path.
type RecordStore interface {
	// Flush persists the records in the given order.
	Flush(records []model.Update) error

	// Restore returns the persisted slot→uid array, one entry per slot
	// in allocation order, with model.DeletedUID marking freed slots.
	// A backend with no persisted state returns ErrNotFound.
	Restore() ([]model.UID, error)

	Close() error
}

// MetadataStore is the durable record of the last fully-flushed
// version and live document count.
type MetadataStore interface {
	// Init loads persisted metadata. A fresh store initializes to the
	// zero version and count without error.
	Init() error

	Version() string
	Count() int

	// Update durably replaces version and count. It runs on the flush
	// worker after records and field snapshots have been persisted.
	Update(version string, count int) error
}

// Factory assembles one backend's collaborators.
type Factory interface {
	RecordStore() (RecordStore, error)
	Metadata() (MetadataStore, error)

	// FieldPersister returns the persister shared by all value fields,
	// or nil for memory-only fields.
	FieldPersister() field.Persister

	Config() Config
}
