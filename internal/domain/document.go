package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// DocumentStatus represents the terminal pipeline outcome of a document.
// Values include DocumentStatusReceived, DocumentStatusRouted, and DocumentStatusFailed.
type DocumentStatus string

const (
	DocumentStatusReceived DocumentStatus = "received"
	DocumentStatusRouted   DocumentStatus = "routed"
	DocumentStatusFailed   DocumentStatus = "failed"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// DocumentMetadata holds the envelope facts derived once at ingestion.
// The pipeline reads these in every stage but never recomputes or
// mutates them after the first stage.
type DocumentMetadata struct {
	Source            string      `gorm:"type:text;not null;index:idx_documents_route" json:"source"`
	Destination       string      `gorm:"type:text;not null;index:idx_documents_route" json:"destination"`
	PrimaryProduct    string      `gorm:"type:text" json:"primary_product"`
	ObjectEvents      int         `json:"object_events"`
	AggregationEvents int         `json:"aggregation_events"`
	Products          StringArray `gorm:"type:text" json:"products"`
}

// Document represents one ingested batch of traceability events plus its
// envelope metadata. Raw content is immutable once ingested.
type Document struct {
	ID         string         `gorm:"type:text;primaryKey" json:"id"`
	Name       string         `gorm:"type:text;not null" json:"name"`
	StorageKey string         `gorm:"type:text" json:"storage_key,omitempty"`
	RawContent string         `gorm:"type:text" json:"-"`
	Metadata   DocumentMetadata `gorm:"embedded" json:"metadata"`
	Status     DocumentStatus `gorm:"type:text;index:idx_documents_status;default:received" json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// TableName returns the database table name for Document.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Document) TableName() string {
	return "documents"
}

// EventCount returns the total number of events the envelope declared.
func (m DocumentMetadata) EventCount() int {
	return m.ObjectEvents + m.AggregationEvents
}
