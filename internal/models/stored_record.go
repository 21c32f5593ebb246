package models

import (
	"time"
)

// StoredRecord is a finalized record persisted by the sqlite target.
// Stream and RecordKey together identify it, so a re-run upserts instead of duplicating.
type StoredRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Stream      string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_stream_record_key" json:"stream"`
	RecordKey   string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_stream_record_key" json:"record_key"`
	Payload     string    `gorm:"type:text;not null" json:"payload"`
	// SyncRun marks the extraction that last wrote the row; older rows are swept.
	SyncRun     string    `gorm:"type:varchar(36);index" json:"sync_run"`
	ExtractedAt time.Time `gorm:"index" json:"extracted_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (StoredRecord) TableName() string {
	return "records"
}

// SyncBookmark is one persisted state entry.
type SyncBookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:bookmark_key;type:varchar(128);uniqueIndex;not null" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SyncBookmark) TableName() string {
	return "sync_bookmarks"
}
