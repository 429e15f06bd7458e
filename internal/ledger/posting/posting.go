// Package posting holds the bookkeeping shared by the ledger stores: which
// row an adjustment or transfer records and how a row moves the stored
// balances.
package posting

import (
	"fmt"
	"strings"

	"bearbudget/internal/core"
	"bearbudget/internal/reconcile"

	"github.com/shopspring/decimal"
)

const (
	DescBalanceUpdate  = "Balance update"
	CategoryAdjustment = "Adjustment"
	CategoryPayment    = "Payment"
)

// Effect is a change to one account's stored balance.
type Effect struct {
	Account string
	Delta   decimal.Decimal
}

// KindLookup resolves an account name; ok is false for unknown names.
type KindLookup func(name string) (kind core.AccountKind, ok bool)

// Effects lists the balance changes of posting tx. The card gets the row's
// stored delta; a related account gets the delta of the implied
// counterpart. Names that are not accounts are skipped.
func Effects(tx core.Transaction, lookup KindLookup) []Effect {
	var out []Effect
	if kind, ok := lookup(tx.Card); ok && tx.Card != "" {
		out = append(out, Effect{Account: tx.Card, Delta: reconcile.StoredDelta(kind, tx)})
	}
	if tx.RelatedAccount != "" && tx.RelatedAccount != tx.Card {
		if kind, ok := lookup(tx.RelatedAccount); ok {
			out = append(out, Effect{Account: tx.RelatedAccount, Delta: reconcile.StoredDelta(kind, reconcile.Counterpart(tx, kind))})
		}
	}
	return out
}

// Reversed negates every effect, for deletes and the old side of updates.
func Reversed(effects []Effect) []Effect {
	out := make([]Effect, 0, len(effects))
	for _, e := range effects {
		out = append(out, Effect{Account: e.Account, Delta: e.Delta.Neg()})
	}
	return out
}

// Adjustment builds the row recording req on account, whose stored balance
// is current. The row carries a description so it never reads as a
// transfer.
func Adjustment(account string, kind core.AccountKind, current decimal.Decimal, req core.AdjustmentRequest, date string) (core.Transaction, error) {
	if err := req.Validate(); err != nil {
		return core.Transaction{}, err
	}
	x := req.Amount
	tx := core.Transaction{
		Date:        date,
		Card:        account,
		Description: strings.TrimSpace(req.Description),
	}

	switch req.Action {
	case core.ActionDeposit:
		tx.TransactionType = core.Income
		tx.Category = core.LabelDeposit
		tx.Amount = x
		if kind == core.KindDebt {
			tx.Amount = x.Neg()
		}
	case core.ActionWithdraw:
		tx.TransactionType = core.Expense
		tx.Category = core.LabelWithdrawal
		tx.Amount = x
	case core.ActionPayment:
		tx.TransactionType = core.Income
		tx.Category = CategoryPayment
		tx.Amount = x.Neg()
	case core.ActionUpdateBalance:
		target := x
		if kind == core.KindDebt {
			target = reconcile.DebtBalance(x)
		}
		delta := target.Sub(current)
		tx.TransactionType = core.Income
		tx.Category = CategoryAdjustment
		tx.Amount = delta
		if kind == core.KindDebt {
			tx.Amount = delta.Neg()
		}
		if tx.Description == "" {
			tx.Description = DescBalanceUpdate
		}
	default:
		return core.Transaction{}, fmt.Errorf("%w: %s", core.ErrInvalidAction, req.Action)
	}

	if tx.Description == "" {
		tx.Description = actionLabel(req.Action)
	}
	return tx, nil
}

// TransferRow is the single row a transfer is recorded as: an expense on
// the source naming the destination in related_account.
func TransferRow(req core.TransferRequest) core.Transaction {
	return core.Transaction{
		Date:            req.Date,
		Amount:          req.Amount,
		Description:     strings.TrimSpace(req.Description),
		Card:            req.FromAccount,
		Notes:           req.Notes,
		TransactionType: core.Expense,
		RelatedAccount:  req.ToAccount,
	}
}

func actionLabel(a core.AdjustAction) string {
	s := strings.ReplaceAll(string(a), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
