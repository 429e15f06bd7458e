package ledger

import (
	"context"
	"fmt"

	"bearbudget/internal/core"

	"github.com/shopspring/decimal"
)

// Local serves the client contract straight from a Store in the same
// process. Results go through the same raw JSON shapes the HTTP client
// produces so callers cannot tell the two apart.
type Local struct {
	store Store
}

var _ Service = (*Local)(nil)

func NewLocal(store Store) *Local {
	return &Local{store: store}
}

func (l *Local) Accounts(ctx context.Context) (AccountsPayload, error) {
	banks, err := l.store.ListBanks(ctx)
	if err != nil {
		return AccountsPayload{}, fmt.Errorf("list banks: %w", err)
	}
	debts, err := l.store.ListDebts(ctx)
	if err != nil {
		return AccountsPayload{}, fmt.Errorf("list debts: %w", err)
	}
	rawBanks, err := Raw(AccountEntries(banks))
	if err != nil {
		return AccountsPayload{}, err
	}
	rawDebts, err := Raw(AccountEntries(debts))
	if err != nil {
		return AccountsPayload{}, err
	}
	return AccountsPayload{Banks: rawBanks, Debts: rawDebts}, nil
}

// AccountEntries projects accounts onto the {name, balance} wire entry.
func AccountEntries(accounts []core.Account) []Card {
	out := make([]Card, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, Card{Name: a.Name, Balance: a.Balance})
	}
	return out
}

func (l *Local) Cards(ctx context.Context) ([]Card, error) {
	return l.store.ListCards(ctx)
}

func (l *Local) AddBank(ctx context.Context, name string, balance decimal.Decimal) error {
	return l.store.CreateBank(ctx, name, balance)
}

func (l *Local) AddDebt(ctx context.Context, name string, balance decimal.Decimal) error {
	return l.store.CreateDebt(ctx, name, balance)
}

func (l *Local) DeleteBank(ctx context.Context, name string) error {
	return l.store.DeleteBank(ctx, name)
}

func (l *Local) DeleteDebt(ctx context.Context, name string) error {
	return l.store.DeleteDebt(ctx, name)
}

func (l *Local) DeleteCard(ctx context.Context, name string) error {
	return l.store.DeleteCard(ctx, name)
}

func (l *Local) Transactions(ctx context.Context) (Feed, error) {
	txs, err := l.store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	raw, err := Raw(txs)
	if err != nil {
		return nil, err
	}
	return Feed(raw), nil
}

func (l *Local) AddTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := l.store.CreateTransaction(ctx, tx)
	return err
}

func (l *Local) UpdateTransaction(ctx context.Context, id int64, tx core.Transaction) error {
	_, err := l.store.UpdateTransaction(ctx, id, tx)
	return err
}

func (l *Local) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := l.store.DeleteTransaction(ctx, id)
	return err
}

func (l *Local) Categories(ctx context.Context) ([]string, error) {
	return l.store.ListCategories(ctx)
}

func (l *Local) Summary(ctx context.Context, month core.Month) ([]core.SummaryItem, error) {
	return l.store.Summary(ctx, month)
}

func (l *Local) Adjust(ctx context.Context, account string, req core.AdjustmentRequest) error {
	_, err := l.store.Adjust(ctx, account, req)
	return err
}

func (l *Local) Transfer(ctx context.Context, req core.TransferRequest) error {
	_, err := l.store.Transfer(ctx, req)
	return err
}
