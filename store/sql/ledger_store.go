package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-shipnotify/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LedgerStore persists notification outcomes in customer_message_tracking.
// The unique (order_id, account_code, message_status) index is the only
// coordination: two concurrent check-then-insert sequences can both pass the
// check, and the second insert then collapses into the existing row.
type LedgerStore struct {
	db       *bun.DB
	repo     repository.Repository[*messageTrackingRecord]
	observer core.Observer
}

type LedgerOption func(*LedgerStore)

func WithLedgerObserver(observer core.Observer) LedgerOption {
	return func(s *LedgerStore) {
		s.observer = observer
	}
}

func NewLedgerStore(db *bun.DB, opts ...LedgerOption) (*LedgerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*messageTrackingRecord](db, messageTrackingHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid message tracking repository wiring: %w", err)
		}
	}
	store := &LedgerStore{db: db, repo: repo}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// NewLedgerStoreFromPersistence accepts a *bun.DB or anything exposing DB(),
// such as *persistence.Client.
func NewLedgerStoreFromPersistence(client any, opts ...LedgerOption) (*LedgerStore, error) {
	db, err := resolveBunDB(client)
	if err != nil {
		return nil, err
	}
	return NewLedgerStore(db, opts...)
}

func (s *LedgerStore) HasAnyStatus(ctx context.Context, orderID string, accountCode string, tags []string) bool {
	if s == nil {
		return false
	}
	found, err := s.hasAnyStatus(ctx, orderID, accountCode, tags)
	if err != nil {
		s.observer.Error(ctx, "ledger lookup failed", map[string]any{
			"order_id":     orderID,
			"account_code": accountCode,
			"tags":         tags,
			"error":        err.Error(),
		})
		return false
	}
	return found
}

func (s *LedgerStore) hasAnyStatus(ctx context.Context, orderID string, accountCode string, tags []string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: ledger store is not configured")
	}
	orderID = strings.TrimSpace(orderID)
	accountCode = core.NormalizeAccountCode(accountCode)
	tags = cleanTags(tags)
	if orderID == "" || accountCode == "" || len(tags) == 0 {
		return false, nil
	}
	return s.db.NewSelect().
		Model((*messageTrackingRecord)(nil)).
		Where("order_id = ?", orderID).
		Where("account_code = ?", accountCode).
		Where("message_status IN (?)", bun.In(tags)).
		Exists(ctx)
}

func (s *LedgerStore) AddStatus(ctx context.Context, orderID string, accountCode string, tag string) bool {
	startedAt := time.Now()
	err := s.addStatus(ctx, orderID, accountCode, tag)
	fields := map[string]any{"order_id": orderID, "account_code": accountCode, "message_status": tag}
	if s == nil {
		return false
	}
	s.observer.Observe(ctx, startedAt, "ledger_add_status", err, fields)
	return err == nil
}

func (s *LedgerStore) addStatus(ctx context.Context, orderID string, accountCode string, tag string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: ledger store is not configured")
	}
	record := &messageTrackingRecord{
		ID:            uuid.NewString(),
		OrderID:       strings.TrimSpace(orderID),
		AccountCode:   core.NormalizeAccountCode(accountCode),
		MessageStatus: strings.TrimSpace(tag),
		CreatedAt:     time.Now().UTC(),
	}
	if record.OrderID == "" || record.AccountCode == "" || record.MessageStatus == "" {
		return fmt.Errorf("sqlstore: order id, account code and message status are required")
	}
	_, err := s.repo.Create(ctx, record)
	if err != nil && isUniqueConstraintError(err) {
		return nil
	}
	return err
}

// Entries lists the ledger rows for one order, oldest first.
func (s *LedgerStore) Entries(ctx context.Context, orderID string, accountCode string) ([]core.LedgerEntry, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: ledger store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("order_id", "=", strings.TrimSpace(orderID)),
		repository.SelectBy("account_code", "=", core.NormalizeAccountCode(accountCode)),
		repository.OrderBy("created_at ASC"),
		repository.SelectPaginate(100, 0),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.LedgerEntry, 0, len(records))
	for _, record := range records {
		out = append(out, core.LedgerEntry{
			OrderID:       record.OrderID,
			AccountCode:   record.AccountCode,
			MessageStatus: record.MessageStatus,
		})
	}
	return out, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "unique") || strings.Contains(text, "duplicate")
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}

var _ core.Ledger = (*LedgerStore)(nil)
