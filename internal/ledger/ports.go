package ledger

import (
	"context"

	"bearbudget/internal/core"

	"github.com/shopspring/decimal"
)

// Card is one entry of the card picker list.
type Card struct {
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// Ports of the ledger service as seen by the client.
type (
	AccountsReader interface {
		// Accounts returns the raw banks/debts composite. Entries are left
		// undecoded so a malformed record can be dropped on its own.
		Accounts(ctx context.Context) (AccountsPayload, error)
		Cards(ctx context.Context) ([]Card, error)
	}

	AccountWriter interface {
		AddBank(ctx context.Context, name string, balance decimal.Decimal) error
		AddDebt(ctx context.Context, name string, balance decimal.Decimal) error
		DeleteBank(ctx context.Context, name string) error
		DeleteDebt(ctx context.Context, name string) error
		DeleteCard(ctx context.Context, name string) error
	}

	TransactionReader interface {
		Transactions(ctx context.Context) (Feed, error)
	}

	TransactionWriter interface {
		AddTransaction(ctx context.Context, tx core.Transaction) error
		UpdateTransaction(ctx context.Context, id int64, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, id int64) error
	}

	CategoryReader interface {
		Categories(ctx context.Context) ([]string, error)
	}

	SummaryReader interface {
		// Summary returns the budget summary; an empty month means the
		// service's current month.
		Summary(ctx context.Context, month core.Month) ([]core.SummaryItem, error)
	}

	FundsMover interface {
		Adjust(ctx context.Context, account string, req core.AdjustmentRequest) error
		Transfer(ctx context.Context, req core.TransferRequest) error
	}

	// Service is the full ledger contract.
	Service interface {
		AccountsReader
		AccountWriter
		TransactionReader
		TransactionWriter
		CategoryReader
		SummaryReader
		FundsMover
	}
)

// Store is the typed system of record behind a ledger service. The
// reference server and the in-process backends are built on it.
type Store interface {
	ListBanks(ctx context.Context) ([]core.Account, error)
	ListDebts(ctx context.Context) ([]core.Account, error)
	ListCards(ctx context.Context) ([]Card, error)
	CreateBank(ctx context.Context, name string, balance decimal.Decimal) error
	CreateDebt(ctx context.Context, name string, balance decimal.Decimal) error
	DeleteBank(ctx context.Context, name string) error
	DeleteDebt(ctx context.Context, name string) error
	// DeleteCard removes the account with that name whatever its kind.
	DeleteCard(ctx context.Context, name string) error

	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, tx core.Transaction) (core.Transaction, error)
	// DeleteTransaction returns the removed row.
	DeleteTransaction(ctx context.Context, id int64) (core.Transaction, error)

	ListCategories(ctx context.Context) ([]string, error)
	Summary(ctx context.Context, month core.Month) ([]core.SummaryItem, error)

	// Adjust and Transfer return the row they recorded.
	Adjust(ctx context.Context, account string, req core.AdjustmentRequest) (core.Transaction, error)
	Transfer(ctx context.Context, req core.TransferRequest) (core.Transaction, error)
}
