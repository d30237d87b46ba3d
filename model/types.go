// Package model contains the shared types of the activity store.
package model

import "math"

// UID is the externally assigned 64-bit document identifier.
type UID int64

// DeletedUID is the reserved "no document" identifier. It is never
// allocated a slot; update/delete calls carrying it are no-ops, and it
// doubles as the tombstone marker in persisted delete records.
const DeletedUID = UID(math.MinInt64)

// Slot is a dense array position backing one document's values across
// all tracked fields. Slots are reused after their delete has been
// durably flushed.
type Slot int32

// AbsentSlot marks a uid that has no slot (unknown or deleted).
const AbsentSlot = Slot(-1)

// Update is a single persisted mutation record: a slot paired with the
// uid now occupying it, or with DeletedUID as a tombstone.
type Update struct {
	Slot Slot
	UID  UID
}

// Tombstone reports whether the record marks a deletion.
func (u Update) Tombstone() bool {
	return u.UID == DeletedUID
}
