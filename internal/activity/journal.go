package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/celestium/pkg/marketplace"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	detailCounterparty = "counterparty"
	detailAmount       = "amount"
	detailCount        = "count"
	detailError        = "error"
)

var (
	// ErrDuplicateEntry is returned by recorders when an entry id already exists.
	ErrDuplicateEntry = errors.New("duplicate activity entry")
	// ErrInvalidRecorder is returned when the journal is built without a recorder.
	ErrInvalidRecorder = errors.New("invalid activity recorder")
)

// Record is one persisted façade operation.
type Record struct {
	EntryID   string          `json:"entryId"`
	Operation string          `json:"operation"`
	Mode      string          `json:"mode"`
	NFTID     string          `json:"nftId,omitempty"`
	Address   string          `json:"address,omitempty"`
	Status    string          `json:"status"`
	ErrorKind string          `json:"errorKind,omitempty"`
	TxHash    string          `json:"txHash,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Recorder persists activity records.
type Recorder interface {
	AppendActivity(ctx context.Context, record Record) error
}

// Reader lists persisted activity, newest first. An empty address lists every entry.
type Reader interface {
	ListActivity(ctx context.Context, address string, limit int) ([]Record, error)
}

// Option configures a Journal.
type Option func(*Journal)

// WithLogger sets the zap logger used for operation lines and recorder failures.
func WithLogger(logger *zap.Logger) Option {
	return func(journal *Journal) {
		if logger != nil {
			journal.logger = logger
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(journal *Journal) {
		if clock != nil {
			journal.clock = clock
		}
	}
}

// Journal logs every façade operation and appends it to a Recorder.
// Recorder failures are logged and never reach the caller.
type Journal struct {
	recorder Recorder
	logger   *zap.Logger
	clock    func() time.Time
}

// NewJournal builds a Journal over recorder.
func NewJournal(recorder Recorder, options ...Option) (*Journal, error) {
	if recorder == nil {
		return nil, fmt.Errorf("%w: recorder is nil", ErrInvalidRecorder)
	}
	journal := &Journal{
		recorder: recorder,
		logger:   zap.NewNop(),
		clock:    func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		if option != nil {
			option(journal)
		}
	}
	return journal, nil
}

// LogOperation implements marketplace.OperationLogger.
func (journal *Journal) LogOperation(ctx context.Context, entry marketplace.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("mode", entry.Mode.String()),
		zap.String("status", entry.Status),
	}
	if entry.NFTID != "" {
		fields = append(fields, zap.String("nft_id", entry.NFTID))
	}
	if entry.Address != "" {
		fields = append(fields, zap.String("address", entry.Address))
	}
	if entry.TxHash != "" {
		fields = append(fields, zap.String("tx_hash", entry.TxHash))
	}
	if entry.Error != nil {
		fields = append(fields, zap.String("error_kind", marketplace.ErrorKind(entry.Error)), zap.Error(entry.Error))
		journal.logger.Warn("marketplace operation failed", fields...)
	} else {
		journal.logger.Info("marketplace operation", fields...)
	}

	record := journal.newRecord(entry)
	if err := journal.recorder.AppendActivity(ctx, record); err != nil {
		journal.logger.Warn("activity append failed",
			zap.String("operation", entry.Operation),
			zap.String("entry_id", record.EntryID),
			zap.Error(err),
		)
	}
}

func (journal *Journal) newRecord(entry marketplace.OperationLog) Record {
	details := map[string]any{}
	if entry.Counterparty != "" {
		details[detailCounterparty] = entry.Counterparty
	}
	if !entry.Amount.IsZero() {
		details[detailAmount] = entry.Amount.String()
	}
	if entry.Count > 0 {
		details[detailCount] = entry.Count
	}
	if entry.Error != nil {
		details[detailError] = entry.Error.Error()
	}
	encoded, err := json.Marshal(details)
	if err != nil {
		encoded = []byte("{}")
	}
	return Record{
		EntryID:   uuid.NewString(),
		Operation: entry.Operation,
		Mode:      entry.Mode.String(),
		NFTID:     entry.NFTID,
		Address:   entry.Address,
		Status:    entry.Status,
		ErrorKind: marketplace.ErrorKind(entry.Error),
		TxHash:    entry.TxHash,
		Details:   encoded,
		CreatedAt: journal.clock(),
	}
}
