package domain

import "time"

// EventHash is one row per event ever indexed, keyed by the canonical
// content hash. The unique index on Hash is the dedup invariant: the
// storage layer enforces at-most-one row per hash, which is what makes
// the claim operation atomic under concurrent pipeline runs.
//
// Rows accumulate monotonically and carry no TTL.
type EventHash struct {
	ID         string    `gorm:"type:text;primaryKey" json:"id"`
	Hash       string    `gorm:"type:text;not null;uniqueIndex:idx_event_hashes_hash" json:"hash"`
	DocumentID string    `gorm:"type:text;index:idx_event_hashes_document" json:"document_id"`
	InsertedAt time.Time `json:"inserted_at"`
}

// TableName returns the database table name for EventHash.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (EventHash) TableName() string {
	return "event_hashes"
}
