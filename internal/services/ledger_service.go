package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"bearbudget/internal/amqp"
	"bearbudget/internal/cache"
	"bearbudget/internal/core"
	"bearbudget/internal/ledger"

	"github.com/shopspring/decimal"
)

// EventPublisher sends ledger change events to the broker.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerService wraps a Store: every committed write publishes a
// LedgerEvent and drops the cached summaries.
type LedgerService struct {
	store     ledger.Store
	publisher EventPublisher
	summaries cache.Cache[[]core.SummaryItem]
}

var _ ledger.Store = (*LedgerService)(nil)

// NewLedgerService builds the decorator. publisher and summaries may be nil.
func NewLedgerService(store ledger.Store, publisher EventPublisher, summaries cache.Cache[[]core.SummaryItem]) *LedgerService {
	return &LedgerService{store: store, publisher: publisher, summaries: summaries}
}

func (s *LedgerService) ListBanks(ctx context.Context) ([]core.Account, error) {
	return s.store.ListBanks(ctx)
}

func (s *LedgerService) ListDebts(ctx context.Context) ([]core.Account, error) {
	return s.store.ListDebts(ctx)
}

func (s *LedgerService) ListCards(ctx context.Context) ([]ledger.Card, error) {
	return s.store.ListCards(ctx)
}

func (s *LedgerService) CreateBank(ctx context.Context, name string, balance decimal.Decimal) error {
	if err := s.store.CreateBank(ctx, name, balance); err != nil {
		return fmt.Errorf("create bank: %w", err)
	}
	s.committed(ctx, amqp.NewLedgerEvent(amqp.EventAccountCreated, 0, name, ""))
	return nil
}

func (s *LedgerService) CreateDebt(ctx context.Context, name string, balance decimal.Decimal) error {
	if err := s.store.CreateDebt(ctx, name, balance); err != nil {
		return fmt.Errorf("create debt: %w", err)
	}
	s.committed(ctx, amqp.NewLedgerEvent(amqp.EventAccountCreated, 0, name, ""))
	return nil
}

func (s *LedgerService) DeleteBank(ctx context.Context, name string) error {
	return s.deleteAccount(ctx, name, s.store.DeleteBank)
}

func (s *LedgerService) DeleteDebt(ctx context.Context, name string) error {
	return s.deleteAccount(ctx, name, s.store.DeleteDebt)
}

func (s *LedgerService) DeleteCard(ctx context.Context, name string) error {
	return s.deleteAccount(ctx, name, s.store.DeleteCard)
}

func (s *LedgerService) deleteAccount(ctx context.Context, name string, del func(context.Context, string) error) error {
	if err := del(ctx, name); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.committed(ctx, amqp.NewLedgerEvent(amqp.EventAccountDeleted, 0, name, ""))
	return nil
}

func (s *LedgerService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx)
}

func (s *LedgerService) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *LedgerService) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	saved, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.committed(ctx, rowEvent(amqp.EventTransactionCreated, saved))
	return saved, nil
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, id int64, tx core.Transaction) (core.Transaction, error) {
	saved, err := s.store.UpdateTransaction(ctx, id, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.committed(ctx, rowEvent(amqp.EventTransactionUpdated, saved))
	return saved, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	removed, err := s.store.DeleteTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("delete transaction: %w", err)
	}
	s.committed(ctx, rowEvent(amqp.EventTransactionDeleted, removed))
	return removed, nil
}

func (s *LedgerService) ListCategories(ctx context.Context) ([]string, error) {
	return s.store.ListCategories(ctx)
}

// Summary serves from the cache when it can. Cached slices are copied so
// callers cannot mutate them.
func (s *LedgerService) Summary(ctx context.Context, month core.Month) ([]core.SummaryItem, error) {
	key := month.String()
	if s.summaries != nil {
		if items, ok := s.summaries.Get(key); ok {
			return append([]core.SummaryItem(nil), items...), nil
		}
	}
	items, err := s.store.Summary(ctx, month)
	if err != nil {
		return nil, err
	}
	if s.summaries != nil {
		s.summaries.Set(key, append([]core.SummaryItem(nil), items...))
	}
	return items, nil
}

func (s *LedgerService) Adjust(ctx context.Context, account string, req core.AdjustmentRequest) (core.Transaction, error) {
	row, err := s.store.Adjust(ctx, account, req)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("adjust %s: %w", account, err)
	}
	s.committed(ctx, rowEvent(amqp.EventFundsAdjusted, row))
	return row, nil
}

func (s *LedgerService) Transfer(ctx context.Context, req core.TransferRequest) (core.Transaction, error) {
	row, err := s.store.Transfer(ctx, req)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transfer: %w", err)
	}
	s.committed(ctx, rowEvent(amqp.EventFundsTransferred, row))
	return row, nil
}

func rowEvent(kind amqp.EventKind, tx core.Transaction) *amqp.LedgerEvent {
	return amqp.NewLedgerEvent(kind, tx.IDValue(), tx.Card, tx.Month().String())
}

// committed runs the post-write side effects. The write already happened,
// so a publish failure is only logged.
func (s *LedgerService) committed(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.summaries != nil {
		s.summaries.Clear()
	}
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping ledger event", "kind", ev.Kind)
		return
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", ev.Kind,
			"transaction_id", ev.TransactionID,
			"error", err)
	}
}

// Close closes the store and the publisher when they hold resources.
func (s *LedgerService) Close() error {
	var errs []error
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
