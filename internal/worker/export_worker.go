package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"bearbudget/internal/amqp"
	"bearbudget/internal/core"
	"bearbudget/internal/ledger"
	"bearbudget/internal/log"
	"bearbudget/internal/sheets"
)

// TransactionSource reads committed rows back from the ledger store.
type TransactionSource interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
}

// ExportWorker appends every created, updated, adjusted or transferred row
// to the export sheet. The sheet is an append-only log: an update appends
// the row again under the same id.
type ExportWorker struct {
	source TransactionSource
	sheets sheets.TransactionWriter
	logger *log.Logger

	exported atomic.Int64
	skipped  atomic.Int64
}

func NewExportWorker(source TransactionSource, sheets sheets.TransactionWriter) *ExportWorker {
	return &ExportWorker{
		source: source,
		sheets: sheets,
		logger: log.ForComponent(log.ComponentWorker).With(log.FieldOperation, log.OpExport),
	}
}

// HandleEvent processes one ledger event from AMQP. A returned error
// requeues the event.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if !ev.HasTransaction() {
		w.skipped.Add(1)
		w.logger.DebugContext(ctx, "Skipping event without a stored row",
			"kind", ev.Kind,
			log.FieldAccount, ev.Account)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing ledger event",
		"kind", ev.Kind,
		log.FieldTransactionID, ev.TransactionID)

	tx, err := w.source.GetTransaction(ctx, ev.TransactionID)
	if errors.Is(err, ledger.ErrNotFound) {
		// deleted before we got to it
		w.skipped.Add(1)
		w.logger.WarnContext(ctx, "Transaction gone before export",
			log.FieldTransactionID, ev.TransactionID,
			log.FieldErrorType, log.ErrorTypeNotFound)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	ref, err := w.sheets.AppendTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("append transaction to sheet: %w", err)
	}
	w.exported.Add(1)

	w.logger.InfoContext(ctx, "Exported transaction",
		log.FieldTransactionID, ev.TransactionID,
		"kind", ev.Kind,
		"ref", ref)
	return nil
}

// Stats returns how many events were exported and skipped.
func (w *ExportWorker) Stats() (exported, skipped int64) {
	return w.exported.Load(), w.skipped.Load()
}
