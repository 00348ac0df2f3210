package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Preference stores one persisted client preference, such as the data mode flag.
type Preference struct {
	Key       string    `gorm:"column:key;primaryKey;size:128"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName returns the table name for preferences.
func (Preference) TableName() string {
	return "preferences"
}

// ActivityEntry is one journaled marketplace operation.
type ActivityEntry struct {
	EntryID   string         `gorm:"column:entry_id;type:uuid;primaryKey"`
	Operation string         `gorm:"column:operation;not null;index"`
	Mode      string         `gorm:"column:mode;not null"`
	NFTID     string         `gorm:"column:nft_id;index"`
	Address   string         `gorm:"column:address;index:idx_activity_address_created,priority:1"`
	Status    string         `gorm:"column:status;not null"`
	ErrorKind string         `gorm:"column:error_kind"`
	TxHash    string         `gorm:"column:tx_hash"`
	Details   datatypes.JSON `gorm:"column:details;type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;not null;index:idx_activity_address_created,priority:2"`
}

// TableName returns the table name for activity entries.
func (ActivityEntry) TableName() string {
	return "activity_entries"
}

// BeforeCreate ensures an entry id is present.
func (entry *ActivityEntry) BeforeCreate(_ *gorm.DB) error {
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}
	return nil
}

// Models lists every model the store persists, in migration order.
func Models() []any {
	return []any{&Preference{}, &ActivityEntry{}}
}
