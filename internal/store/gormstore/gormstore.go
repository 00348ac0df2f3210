package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/celestium/internal/activity"
	"github.com/MarkoPoloResearchLab/celestium/pkg/marketplace"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	constraintActivityPrimary = "activity_entries_pkey"
	defaultDetailsJSON        = "{}"
	defaultActivityLimit      = 50
	maxActivityLimit          = 500
	pgUniqueViolationCode     = "23505"
	sqliteConstraintCode      = 19
	errorOperationStore       = "store"
	errorSubjectPreference    = "preference"
	errorSubjectActivity      = "activity"
	errorSubjectSchema        = "schema"
	errorCodeDuplicate        = "duplicate"
	errorCodeGet              = "get"
	errorCodeInsert           = "insert"
	errorCodeList             = "list"
	errorCodeMigrate          = "migrate"
	errorCodeUpsert           = "upsert"
)

// Store persists preferences and the activity journal using GORM.
type Store struct {
	db    *gorm.DB
	clock func() time.Time
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db, clock: func() time.Time { return time.Now().UTC() }}
}

// Migrate creates or updates the store tables.
func (store *Store) Migrate(ctx context.Context) error {
	if err := store.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return wrapStoreError(errorSubjectSchema, errorCodeMigrate, err)
	}
	return nil
}

// LoadPreference returns the stored value for key. A missing key is not an error.
func (store *Store) LoadPreference(ctx context.Context, key string) (string, bool, error) {
	var preference Preference
	err := store.db.WithContext(ctx).Where("key = ?", key).Take(&preference).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapStoreError(errorSubjectPreference, errorCodeGet, err)
	}
	return preference.Value, true, nil
}

// SavePreference upserts key with value.
func (store *Store) SavePreference(ctx context.Context, key string, value string) error {
	preference := Preference{Key: key, Value: value, UpdatedAt: store.clock()}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&preference).Error
	if err != nil {
		return wrapStoreError(errorSubjectPreference, errorCodeUpsert, err)
	}
	return nil
}

// AppendActivity inserts one journal entry.
func (store *Store) AppendActivity(ctx context.Context, record activity.Record) error {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = store.clock()
	}
	details := string(record.Details)
	if details == "" {
		details = defaultDetailsJSON
	}
	entry := ActivityEntry{
		EntryID:   record.EntryID,
		Operation: record.Operation,
		Mode:      record.Mode,
		NFTID:     record.NFTID,
		Address:   record.Address,
		Status:    record.Status,
		ErrorKind: record.ErrorKind,
		TxHash:    record.TxHash,
		Details:   datatypes.JSON([]byte(details)),
		CreatedAt: createdAt.UTC(),
	}
	err := store.db.WithContext(ctx).Create(&entry).Error
	if isActivityConflict(err) {
		return wrapStoreError(errorSubjectActivity, errorCodeDuplicate, fmt.Errorf("%w: %s", activity.ErrDuplicateEntry, record.EntryID))
	}
	if err != nil {
		return wrapStoreError(errorSubjectActivity, errorCodeInsert, err)
	}
	return nil
}

// ListActivity returns journal entries newest first, filtered by address when it is set.
func (store *Store) ListActivity(ctx context.Context, address string, limit int) ([]activity.Record, error) {
	query := store.db.WithContext(ctx).Model(&ActivityEntry{})
	if address != "" {
		query = query.Where("address = ?", address)
	}
	var rows []ActivityEntry
	err := query.Order("created_at DESC").Order("entry_id").Limit(normalizeLimit(limit)).Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectActivity, errorCodeList, err)
	}
	records := make([]activity.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, mapActivityEntry(row))
	}
	return records, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return marketplace.WrapError(errorOperationStore, subject, code, err)
}

func mapActivityEntry(row ActivityEntry) activity.Record {
	return activity.Record{
		EntryID:   row.EntryID,
		Operation: row.Operation,
		Mode:      row.Mode,
		NFTID:     row.NFTID,
		Address:   row.Address,
		Status:    row.Status,
		ErrorKind: row.ErrorKind,
		TxHash:    row.TxHash,
		Details:   []byte(row.Details),
		CreatedAt: row.CreatedAt.UTC(),
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultActivityLimit
	}
	if limit > maxActivityLimit {
		return maxActivityLimit
	}
	return limit
}

func isActivityConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintActivityPrimary
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
