package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/celestium/internal/activity"
	"github.com/MarkoPoloResearchLab/celestium/pkg/marketplace"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	constraintActivityPrimary = "activity_entries_pkey"
	pgUniqueViolationCode     = "23505"
	defaultDetailsJSON        = "{}"
	defaultActivityLimit      = 50
	maxActivityLimit          = 500
	errorOperationStore       = "store"
	errorSubjectPreference    = "preference"
	errorSubjectActivity      = "activity"
	errorSubjectSchema        = "schema"
	errorCodeDuplicate        = "duplicate"
	errorCodeEnsure           = "ensure"
	errorCodeGet              = "get"
	errorCodeInsert           = "insert"
	errorCodeInvalid          = "invalid"
	errorCodeList             = "list"
	errorCodeUpsert           = "upsert"

	sqlCreatePreferences = `
		create table if not exists preferences(
			key varchar(128) primary key,
			value text not null,
			updated_at timestamptz not null
		)
	`

	sqlCreateActivity = `
		create table if not exists activity_entries(
			entry_id uuid primary key,
			operation text not null,
			mode text not null,
			nft_id text not null default '',
			address text not null default '',
			status text not null,
			error_kind text not null default '',
			tx_hash text not null default '',
			details jsonb not null default '{}'::jsonb,
			created_at timestamptz not null
		)
	`

	sqlCreateActivityIndex = `
		create index if not exists idx_activity_address_created on activity_entries(address, created_at desc)
	`

	sqlSelectPreference = `select value from preferences where key = $1`

	sqlUpsertPreference = `
		insert into preferences(key, value, updated_at) values($1, $2, $3)
		on conflict (key) do update set value = excluded.value, updated_at = excluded.updated_at
	`

	sqlInsertActivity = `
		insert into activity_entries(
			entry_id, operation, mode, nft_id, address, status, error_kind, tx_hash, details, created_at
		)
		values(
			coalesce(nullif($1,'')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8,
			coalesce(nullif($9,''),'{}')::jsonb,
			$10
		)
	`

	sqlListActivity = `
		select entry_id::text, operation, mode, nft_id, address, status, error_kind, tx_hash, details::text, created_at
		from activity_entries
		where ($1 = '' or address = $1)
		order by created_at desc, entry_id
		limit $2
	`
)

// Store persists preferences and the activity journal on a pgx pool.
type Store struct {
	pool  *pgxpool.Pool
	clock func() time.Time
}

// New returns a Store backed by pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, clock: func() time.Time { return time.Now().UTC() }}
}

// EnsureSchema creates the store tables when they are missing.
func (store *Store) EnsureSchema(ctx context.Context) error {
	for _, statement := range []string{sqlCreatePreferences, sqlCreateActivity, sqlCreateActivityIndex} {
		if _, err := store.pool.Exec(ctx, statement); err != nil {
			return wrapStoreError(errorSubjectSchema, errorCodeEnsure, err)
		}
	}
	return nil
}

// LoadPreference returns the stored value for key. A missing key is not an error.
func (store *Store) LoadPreference(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := store.pool.QueryRow(ctx, sqlSelectPreference, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapStoreError(errorSubjectPreference, errorCodeGet, err)
	}
	return value, true, nil
}

// SavePreference upserts key with value.
func (store *Store) SavePreference(ctx context.Context, key string, value string) error {
	if _, err := store.pool.Exec(ctx, sqlUpsertPreference, key, value, store.clock()); err != nil {
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
	_, err := store.pool.Exec(ctx, sqlInsertActivity,
		record.EntryID,
		record.Operation,
		record.Mode,
		record.NFTID,
		record.Address,
		record.Status,
		record.ErrorKind,
		record.TxHash,
		string(record.Details),
		createdAt.UTC(),
	)
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
	rows, err := store.pool.Query(ctx, sqlListActivity, address, normalizeLimit(limit))
	if err != nil {
		return nil, wrapStoreError(errorSubjectActivity, errorCodeList, err)
	}
	defer rows.Close()
	records, err := scanActivity(rows)
	if err != nil {
		return nil, wrapStoreError(errorSubjectActivity, errorCodeInvalid, err)
	}
	return records, nil
}

func scanActivity(rows pgx.Rows) ([]activity.Record, error) {
	records := make([]activity.Record, 0, 32)
	for rows.Next() {
		var (
			record       activity.Record
			detailsValue string
			createdAt    time.Time
		)
		if err := rows.Scan(
			&record.EntryID,
			&record.Operation,
			&record.Mode,
			&record.NFTID,
			&record.Address,
			&record.Status,
			&record.ErrorKind,
			&record.TxHash,
			&detailsValue,
			&createdAt,
		); err != nil {
			return nil, err
		}
		if detailsValue == "" {
			detailsValue = defaultDetailsJSON
		}
		record.Details = []byte(detailsValue)
		record.CreatedAt = createdAt.UTC()
		records = append(records, record)
	}
	return records, rows.Err()
}

func wrapStoreError(subject string, code string, err error) error {
	return marketplace.WrapError(errorOperationStore, subject, code, err)
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
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintActivityPrimary
	}
	return false
}
