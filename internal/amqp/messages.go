package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind names the ledger write an event reports.
type EventKind string

const (
	EventTransactionCreated EventKind = "transaction.created"
	EventTransactionUpdated EventKind = "transaction.updated"
	EventTransactionDeleted EventKind = "transaction.deleted"
	EventAccountCreated     EventKind = "account.created"
	EventAccountDeleted     EventKind = "account.deleted"
	EventFundsAdjusted      EventKind = "funds.adjusted"
	EventFundsTransferred   EventKind = "funds.transferred"
)

// LedgerEvent is published after each committed write. It carries ids and
// names only; consumers read the row back from storage.
type LedgerEvent struct {
	Kind          EventKind `json:"kind"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	Account       string    `json:"account,omitempty"`
	Month         string    `json:"month,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEvent(kind EventKind, transactionID int64, account, month string) *LedgerEvent {
	return &LedgerEvent{
		Kind:          kind,
		TransactionID: transactionID,
		Account:       account,
		Month:         month,
		Timestamp:     time.Now(),
	}
}

// HasTransaction reports whether the event points at a stored row.
func (e *LedgerEvent) HasTransaction() bool {
	return e.TransactionID > 0 && e.Kind != EventTransactionDeleted
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.Kind == "" {
		return nil, fmt.Errorf("event without kind")
	}
	return &ev, nil
}
