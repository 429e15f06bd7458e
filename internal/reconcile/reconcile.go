package reconcile

import (
	"encoding/json"
	"strings"

	"bearbudget/internal/core"
	"bearbudget/internal/ledger"
)

// DecodeFeed decodes the transaction feed entry by entry. A record without
// a valid date or a numeric amount is dropped and reported.
func DecodeFeed(raw ledger.Feed) ([]core.Transaction, []ledger.DataShapeError) {
	out := make([]core.Transaction, 0, len(raw))
	var dropped []ledger.DataShapeError
	for i, entry := range raw {
		tx, reason := decodeTransaction(entry)
		if reason != "" {
			dropped = append(dropped, ledger.DataShapeError{Collection: "transactions", Index: i, Reason: reason})
			continue
		}
		out = append(out, tx)
	}
	return out, dropped
}

func decodeTransaction(entry json.RawMessage) (core.Transaction, string) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil || fields == nil {
		return core.Transaction{}, "not an object"
	}
	amount, ok := jsonNumber(fields["amount"])
	if !ok {
		return core.Transaction{}, "missing or non-numeric amount"
	}
	var tx core.Transaction
	if err := json.Unmarshal(entry, &tx); err != nil {
		return core.Transaction{}, "malformed field: " + err.Error()
	}
	if _, err := core.ParseDate(tx.Date); err != nil {
		return core.Transaction{}, "missing or invalid date"
	}
	tx.Amount = amount
	return tx, ""
}

// Reconcile derives the rows shown for one account and month.
//
// Rows posted against the account in the month are kept with their display
// description and category filled in. When there are none, every transfer
// row of the month posted against another account is mirrored onto this
// one as an incoming Transfer. A transfer that names a different
// destination in related_account is left alone.
func Reconcile(feed []core.Transaction, month core.Month, account string) []core.Transaction {
	out := make([]core.Transaction, 0)
	if account == "" {
		return out
	}
	for _, tx := range feed {
		if tx.Card != account || !month.Contains(tx.Date) {
			continue
		}
		out = append(out, DeriveDisplay(tx, account))
	}
	if len(out) > 0 {
		return out
	}

	for _, tx := range feed {
		if tx.Card == "" || tx.Card == account || !month.Contains(tx.Date) || !tx.IsTransfer() {
			continue
		}
		if tx.RelatedAccount != "" && tx.RelatedAccount != account {
			continue
		}
		out = append(out, Mirror(tx, account))
	}
	return out
}

// DeriveDisplay fills in the display description and category of a row seen
// from account.
func DeriveDisplay(tx core.Transaction, account string) core.Transaction {
	if tx.IsTransfer() {
		tx.Description = core.LabelTransfer
		if tx.Card == account {
			tx.Category = core.LabelWithdrawal
		} else {
			tx.Category = core.LabelDeposit
		}
		return tx
	}
	if strings.TrimSpace(tx.Category) == "" {
		if tx.Amount.IsNegative() {
			tx.Category = core.LabelWithdrawal
		} else {
			tx.Category = core.LabelDeposit
		}
	}
	return tx
}

// Mirror synthesizes the receiving side of a one-sided transfer row.
func Mirror(tx core.Transaction, account string) core.Transaction {
	return core.Transaction{
		Date:            tx.Date,
		Amount:          tx.Amount,
		Description:     core.LabelTransfer,
		Card:            account,
		Category:        core.LabelDeposit,
		Notes:           tx.Notes,
		TransactionType: core.Income,
		RelatedAccount:  tx.Card,
	}
}
