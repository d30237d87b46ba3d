// Package activo is the activity-value store of a search engine: it
// tracks mutable per-document counters and attributes keyed by a
// stable 64-bit identifier, maps the sparse identifier space onto a
// dense, reusable slot space, and batches mutations for asynchronous
// persistence while serving reads and writes at low latency.
//
// The store enforces a global monotonic version ordering over
// mutations: stale updates are rejected and counted, and callers can
// block until a target version is visible in memory
// (SyncWithVersion) or durably flushed (SyncWithDurableVersion).
package activo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hupe1980/activo/field"
	"github.com/hupe1980/activo/model"
	"github.com/hupe1980/activo/schema"
	"github.com/hupe1980/activo/storage"
	"github.com/hupe1980/activo/version"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
)

// Store maintains the set of activity value fields. Its main
// responsibility is the uid→slot mapping and the persisted and
// in-memory version bookkeeping: when a document enters the system it
// finds or allocates the slot, applies the activity values found in
// the document, and queues the mutation for the next flush cycle.
type Store struct {
	opts options
	cmp  version.Comparator
	cfg  storage.Config

	records  storage.RecordStore
	metadata storage.MetadataStore

	fields    *xsync.MapOf[string, field.ValueField]
	fieldList []field.ValueField

	// mu guards uidToSlot, lastVersion, the pending batches and the
	// high-water mark. Readers (lookups, precomputation, version
	// reads) take the read side; updates, deletes and the flush swap
	// take the write side.
	mu             sync.RWMutex
	uidToSlot      map[model.UID]model.Slot
	lastVersion    string
	updateBatch    *updateBatch
	pendingDeletes *updateBatch
	highWater      model.Slot

	// free has its own lock: reclamation after an asynchronous flush
	// runs without the global write lock.
	freeMu sync.Mutex
	free   *roaring.Bitmap

	notifyMu sync.Mutex
	notify   chan struct{}

	recent *lru.Cache[model.UID, struct{}]

	worker  *flushWorker
	flushMu sync.Mutex

	housekeeperStop chan struct{}
	housekeeperDone chan struct{}

	closed     atomic.Bool
	logLimiter *rate.Limiter
}

// Open builds a store from a persistence factory, the field schema and
// a version comparator. Persisted metadata and records are restored
// before the store goes live: the uid→slot mapping, the free pool and
// the last flushed version all survive a restart.
func Open(factory storage.Factory, s *schema.Schema, cmp version.Comparator, optFns ...Option) (*Store, error) {
	if factory == nil {
		return nil, fmt.Errorf("activo: factory is nil")
	}
	if s == nil {
		return nil, fmt.Errorf("activo: schema is nil")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if cmp == nil {
		return nil, fmt.Errorf("activo: version comparator is nil")
	}

	opts := applyOptions(optFns)
	cfg := factory.Config()

	records, err := factory.RecordStore()
	if err != nil {
		return nil, fmt.Errorf("activo: record store: %w", err)
	}
	metadata, err := factory.Metadata()
	if err != nil {
		_ = records.Close()
		return nil, fmt.Errorf("activo: metadata store: %w", err)
	}
	if err := metadata.Init(); err != nil {
		_ = records.Close()
		return nil, fmt.Errorf("activo: metadata init: %w", err)
	}

	recent, err := lru.New[model.UID, struct{}](max(cfg.UndeletableBufferSize, 1))
	if err != nil {
		_ = records.Close()
		return nil, err
	}

	st := &Store{
		opts:            opts,
		cmp:             cmp,
		cfg:             cfg,
		records:         records,
		metadata:        metadata,
		fields:          xsync.NewMapOf[string, field.ValueField](),
		uidToSlot:       make(map[model.UID]model.Slot, opts.initialCapacity),
		lastVersion:     metadata.Version(),
		free:            roaring.New(),
		notify:          make(chan struct{}),
		recent:          recent,
		worker:          newFlushWorker(4),
		housekeeperStop: make(chan struct{}),
		housekeeperDone: make(chan struct{}),
		logLimiter:      rate.NewLimiter(rate.Every(10*time.Second), 1),
	}

	limits := batchLimits{maxRecords: cfg.FlushBufferSize, maxDelay: cfg.FlushInterval}
	st.updateBatch = newUpdateBatch(limits)
	st.pendingDeletes = newUpdateBatch(limits)

	count := metadata.Count()
	if err := st.restore(count); err != nil {
		_ = st.worker.close(opts.closeTimeout)
		_ = records.Close()
		return nil, err
	}

	if err := st.buildFields(factory, s); err != nil {
		_ = st.worker.close(opts.closeTimeout)
		_ = records.Close()
		return nil, err
	}

	go st.housekeeping()

	return st, nil
}

// restore rebuilds the uid→slot mapping and the free pool from the
// persisted slot→uid array. The metadata count is authoritative when
// the array runs past it (a crash between record and metadata flushes
// leaves trailing records that were never committed).
func (s *Store) restore(count int) error {
	uids, err := s.records.Restore()
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("activo: restore records: %w", err)
	}
	if count > len(uids) {
		count = len(uids)
	}
	for slot := 0; slot < count; slot++ {
		uid := uids[slot]
		if uid == model.DeletedUID {
			s.free.Add(uint32(slot))
		} else {
			s.uidToSlot[uid] = model.Slot(slot)
		}
	}
	s.highWater = model.Slot(count)
	s.opts.logger.LogRestore(len(s.uidToSlot), int(s.free.GetCardinality()), s.lastVersion)
	return nil
}

// buildFields instantiates the value fields, aggregates first so a
// field name claimed by an aggregate is not doubly tracked.
func (s *Store) buildFields(factory storage.Factory, sc *schema.Schema) error {
	persister := factory.FieldPersister()
	capacity := int(s.highWater)
	threshold := s.cfg.FieldFlushThreshold

	for _, agg := range sc.Aggregates {
		f, err := field.NewTimeAggregated(agg.FieldName, agg.Windows, capacity, threshold, persister)
		if err != nil {
			return err
		}
		s.addField(f)
	}
	for _, def := range sc.Fields {
		if !def.Activity {
			continue
		}
		if _, taken := s.fields.Load(def.Name); taken {
			continue
		}
		var (
			f   field.ValueField
			err error
		)
		switch def.Kind {
		case schema.KindInt:
			f, err = field.NewInt(def.Name, capacity, threshold, persister)
		case schema.KindLong:
			f, err = field.NewLong(def.Name, capacity, threshold, persister)
		case schema.KindFloat:
			f, err = field.NewFloat(def.Name, capacity, threshold, persister)
		default:
			err = fmt.Errorf("activo: field %q has unknown kind %q", def.Name, def.Kind)
		}
		if err != nil {
			return err
		}
		s.addField(f)
	}
	return nil
}

func (s *Store) addField(f field.ValueField) {
	s.fields.Store(f.Name(), f)
	s.fieldList = append(s.fieldList, f)
}

// Update applies one document's activity values under the given
// version. It returns the slot that received the update, or
// model.AbsentSlot when the mutation was rejected as stale, carried no
// tracked values, or named the reserved uid.
//
// An empty doc with a newer version still advances the in-memory
// version, so heartbeat updates unblock SyncWithVersion callers.
func (s *Store) Update(uid model.UID, ver string, doc map[string]any) model.Slot {
	if s.closed.Load() || len(s.fieldList) == 0 || uid == model.DeletedUID {
		return model.AbsentSlot
	}

	slot := model.AbsentSlot
	needFlush := false

	s.mu.Lock()
	if s.cmp.Compare(s.lastVersion, ver) > 0 {
		s.mu.Unlock()
		s.opts.collector.RecordVersionRejection()
		return model.AbsentSlot
	}
	if len(doc) == 0 {
		s.lastVersion = ver
		s.mu.Unlock()
		s.notifyWaiters()
		return model.AbsentSlot
	}

	s.opts.collector.RecordUpdate()

	var ok bool
	if slot, ok = s.uidToSlot[uid]; !ok {
		s.opts.collector.RecordInsert()
		slot = s.allocateSlot()
		s.uidToSlot[uid] = slot
		s.recent.Add(uid, struct{}{})
		needFlush = s.updateBatch.add(model.Update{Slot: slot, UID: uid})
	}
	for _, f := range s.fieldList {
		if v, present := doc[f.Name()]; present {
			needFlush = f.Update(int(slot), v) || needFlush
		}
	}
	s.lastVersion = ver
	s.mu.Unlock()

	s.notifyWaiters()
	if needFlush {
		s.Flush()
	}
	return slot
}

// allocateSlot pops a recycled slot if any, else extends the slot
// space. Called with the write lock held.
func (s *Store) allocateSlot() model.Slot {
	s.freeMu.Lock()
	defer s.freeMu.Unlock()
	if !s.free.IsEmpty() {
		slot := s.free.Minimum()
		s.free.Remove(slot)
		return model.Slot(slot)
	}
	slot := s.highWater
	s.highWater++
	return slot
}

// UpdateVersion advances the in-memory version without a document.
// Callers replaying event streams with gaps use it to keep waiters
// moving.
func (s *Store) UpdateVersion(ver string) {
	s.mu.Lock()
	if s.cmp.Compare(s.lastVersion, ver) < 0 {
		s.lastVersion = ver
		s.mu.Unlock()
		s.notifyWaiters()
		return
	}
	s.mu.Unlock()
}

// Delete removes documents from the store under the given version.
// Unknown uids and the reserved uid are skipped silently; a version
// older than the last accepted one rejects the whole call.
//
// Freed slots are not reusable until the delete batch has been
// durably flushed: Delete only queues the tombstones.
func (s *Store) Delete(ver string, uids ...model.UID) {
	if s.closed.Load() || len(uids) == 0 {
		return
	}

	s.mu.Lock()
	if s.cmp.Compare(s.lastVersion, ver) > 0 {
		s.mu.Unlock()
		s.opts.collector.RecordVersionRejection()
		return
	}
	needFlush := false
	for _, uid := range uids {
		if uid == model.DeletedUID {
			continue
		}
		slot, ok := s.uidToSlot[uid]
		if !ok {
			continue
		}
		s.opts.collector.RecordDelete()
		delete(s.uidToSlot, uid)
		for _, f := range s.fieldList {
			f.Delete(int(slot))
		}
		needFlush = s.pendingDeletes.add(model.Update{Slot: slot, UID: model.DeletedUID}) || needFlush
	}
	s.lastVersion = ver
	s.mu.Unlock()

	s.notifyWaiters()
	if needFlush {
		s.Flush()
	}
}

// Lookup returns the slot currently mapped to uid.
func (s *Store) Lookup(uid model.UID) (model.Slot, bool) {
	if uid == model.DeletedUID {
		return model.AbsentSlot, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.uidToSlot[uid]
	if !ok {
		return model.AbsentSlot, false
	}
	return slot, true
}

// PrecomputeSlots resolves a batch of uids to slots for query-time
// use. Unknown uids and the reserved uid map to model.AbsentSlot.
// The read lock is taken per element so a long batch cannot starve
// writers.
func (s *Store) PrecomputeSlots(uids []model.UID) []model.Slot {
	out := make([]model.Slot, len(uids))
	for i, uid := range uids {
		if uid == model.DeletedUID {
			out[i] = model.AbsentSlot
			continue
		}
		s.mu.RLock()
		slot, ok := s.uidToSlot[uid]
		s.mu.RUnlock()
		if !ok {
			slot = model.AbsentSlot
		}
		out[i] = slot
	}
	return out
}

// Field returns a tracked field by name. Window counters of an
// aggregate are addressed as "name:window"; the bare aggregate name
// resolves to its cumulative counter.
func (s *Store) Field(name string) (field.ValueField, bool) {
	if f, ok := s.fields.Load(name); ok {
		if agg, isAgg := f.(*field.TimeAggregatedField); isAgg {
			return agg.Default(), true
		}
		return f, true
	}
	if i := strings.IndexByte(name, ':'); i >= 0 {
		f, ok := s.fields.Load(name[:i])
		if !ok {
			return nil, false
		}
		agg, isAgg := f.(*field.TimeAggregatedField)
		if !isAgg {
			return nil, false
		}
		if w := agg.Window(name[i+1:]); w != nil {
			return w, true
		}
	}
	return nil, false
}

// IntValue returns the int value of field for uid, or
// field.UnknownInt when the uid or field is unknown.
func (s *Store) IntValue(uid model.UID, name string) int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.uidToSlot[uid]
	if !ok {
		return field.UnknownInt
	}
	f, ok := s.Field(name)
	if !ok {
		return field.UnknownInt
	}
	intField, ok := f.(*field.IntField)
	if !ok {
		return field.UnknownInt
	}
	return intField.Value(int(slot))
}

// LongValue returns the long value of field for uid, or
// field.UnknownLong when the uid or field is unknown.
func (s *Store) LongValue(uid model.UID, name string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.uidToSlot[uid]
	if !ok {
		return field.UnknownLong
	}
	f, ok := s.Field(name)
	if !ok {
		return field.UnknownLong
	}
	longField, ok := f.(*field.LongField)
	if !ok {
		return field.UnknownLong
	}
	return longField.Value(int(slot))
}

// FloatValue returns the float value of field for uid, or
// field.UnknownFloat when the uid or field is unknown.
func (s *Store) FloatValue(uid model.UID, name string) float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.uidToSlot[uid]
	if !ok {
		return field.UnknownFloat
	}
	f, ok := s.Field(name)
	if !ok {
		return field.UnknownFloat
	}
	floatField, ok := f.(*field.FloatField)
	if !ok {
		return field.UnknownFloat
	}
	return floatField.Value(int(slot))
}

// Version returns the last accepted in-memory version.
func (s *Store) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastVersion
}

// DurableVersion returns the last version confirmed flushed to the
// metadata store.
func (s *Store) DurableVersion() string {
	return s.metadata.Version()
}

// LiveCount returns the number of currently mapped documents.
func (s *Store) LiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.uidToSlot)
}

// FreeCount returns the size of the free slot pool.
func (s *Store) FreeCount() int {
	s.freeMu.Lock()
	defer s.freeMu.Unlock()
	return int(s.free.GetCardinality())
}

// WasRecentlyAdded reports whether uid is in the bounded buffer of
// recently allocated uids. Callers use it to suppress purges of
// documents that raced an index rebuild.
func (s *Store) WasRecentlyAdded(uid model.UID) bool {
	return s.recent.Contains(uid)
}

// SyncWithVersion blocks until the in-memory version reaches target.
// It wakes on every accepted mutation and re-checks on a bounded poll
// interval regardless; ctx cancellation aborts the wait.
func (s *Store) SyncWithVersion(ctx context.Context, target string) error {
	return s.await(ctx, target, s.Version)
}

// SyncWithDurableVersion blocks until the durably flushed version
// reaches target.
func (s *Store) SyncWithDurableVersion(ctx context.Context, target string) error {
	return s.await(ctx, target, s.metadata.Version)
}

func (s *Store) await(ctx context.Context, target string, current func() string) error {
	timer := time.NewTimer(s.opts.syncPollInterval)
	defer timer.Stop()
	for {
		ch := s.waitCh()
		if s.cmp.Compare(current(), target) >= 0 {
			return nil
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.opts.syncPollInterval)
		select {
		case <-ch:
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Store) waitCh() <-chan struct{} {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	return s.notify
}

func (s *Store) notifyWaiters() {
	s.notifyMu.Lock()
	close(s.notify)
	s.notify = make(chan struct{})
	s.notifyMu.Unlock()
}

// Flush swaps the pending batches for fresh ones under the write lock
// and hands persistence to the flush worker. Only the swap holds the
// lock; durable I/O never blocks writers.
//
// Records of a failed flush are not requeued: the metadata version
// stays put, durable waiters stay blocked, and the upstream feed is
// expected to replay from the durable version on recovery.
func (s *Store) Flush() {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	var updates, deletes []model.Update
	if !s.updateBatch.empty() {
		updates = s.updateBatch.records
		s.updateBatch = newUpdateBatch(s.updateBatch.limits)
	}
	if !s.pendingDeletes.empty() {
		deletes = s.pendingDeletes.records
		s.pendingDeletes = newUpdateBatch(s.pendingDeletes.limits)
	}
	ver := s.lastVersion
	s.mu.Unlock()

	actions := make([]func() error, 0, len(s.fieldList))
	for _, f := range s.fieldList {
		actions = append(actions, f.PrepareFlush())
	}

	if err := s.worker.submit(func() { s.runFlush(ver, updates, deletes, actions) }); err != nil {
		s.opts.logger.Warn("flush skipped", "error", err)
	}
}

// runFlush is the asynchronous half of a flush cycle: persist the
// update records, persist the delete records in reverse insertion
// order, reclaim the deleted slots, commit the field snapshots, then
// advance the durable metadata.
func (s *Store) runFlush(ver string, updates, deletes []model.Update, actions []func() error) {
	start := time.Now()

	fail := func(err error) {
		s.opts.collector.RecordFlush(time.Since(start), err)
		if s.logLimiter.Allow() {
			s.opts.logger.LogFlush(len(updates), len(deletes), ver, time.Since(start), err)
		}
	}

	if len(updates) > 0 {
		if err := s.records.Flush(updates); err != nil {
			fail(err)
			return
		}
	}
	if len(deletes) > 0 {
		// Reversal guarantees that when a slot was deleted and reused
		// within one flush window, the tombstone cannot shadow the
		// later allocation's record.
		for i, j := 0, len(deletes)-1; i < j; i, j = i+1, j-1 {
			deletes[i], deletes[j] = deletes[j], deletes[i]
		}
		if err := s.records.Flush(deletes); err != nil {
			fail(err)
			return
		}
		s.freeMu.Lock()
		for _, r := range deletes {
			s.free.Add(uint32(r.Slot))
		}
		s.freeMu.Unlock()
		s.opts.collector.RecordReclaim(len(deletes))
	}

	s.mu.RLock()
	live := len(s.uidToSlot)
	s.mu.RUnlock()
	s.freeMu.Lock()
	freeCount := int(s.free.GetCardinality())
	s.freeMu.Unlock()
	count := live + freeCount
	s.opts.collector.SetLiveDocuments(live)
	s.opts.collector.SetReclaimedSlots(freeCount)
	s.opts.logger.LogCounts(live, freeCount)

	for _, action := range actions {
		if err := action(); err != nil {
			fail(err)
			return
		}
	}
	if err := s.metadata.Update(ver, count); err != nil {
		fail(err)
		return
	}

	s.opts.collector.RecordFlush(time.Since(start), nil)
	s.opts.logger.LogFlush(len(updates), len(deletes), ver, time.Since(start), nil)
	s.notifyWaiters()
}

// housekeeping polls for flush-due state on a fixed interval and
// triggers a flush even when no new writes arrive, bounding staleness.
func (s *Store) housekeeping() {
	defer close(s.housekeeperDone)

	ticker := time.NewTicker(s.opts.housekeepingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.housekeeperStop:
			return
		case <-ticker.C:
		}

		s.mu.RLock()
		need := s.pendingDeletes.flushNeeded() || s.updateBatch.flushNeeded()
		if !need {
			for _, f := range s.fieldList {
				if f.FlushNeeded() {
					need = true
					break
				}
			}
		}
		s.mu.RUnlock()

		if need {
			s.Flush()
			s.opts.logger.LogHousekeeping()
		}
	}
}

// Close stops the housekeeper, performs a final flush, drains the
// flush worker with a bounded wait, then releases the storage backend
// and every field. It is safe to call more than once; writes arriving
// after Close begins are dropped.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(s.housekeeperStop)
	<-s.housekeeperDone

	s.Flush()

	var errs []error
	if err := s.worker.close(s.opts.closeTimeout); err != nil {
		errs = append(errs, err)
	}
	if err := s.records.Close(); err != nil {
		errs = append(errs, err)
	}
	for _, f := range s.fieldList {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
