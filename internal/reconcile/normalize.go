// Package reconcile turns raw ledger answers into the account and
// transaction lists a view displays. Everything here is pure.
package reconcile

import (
	"bytes"
	"encoding/json"
	"strings"

	"bearbudget/internal/core"
	"bearbudget/internal/ledger"

	"github.com/shopspring/decimal"
)

// Normalize decodes the composite accounts answer into one signed-balance
// list, banks first. Malformed entries are dropped.
func Normalize(raw ledger.AccountsPayload) []core.Account {
	accounts, _ := NormalizeWithReport(raw)
	return accounts
}

// NormalizeWithReport is Normalize plus the list of dropped entries.
func NormalizeWithReport(raw ledger.AccountsPayload) ([]core.Account, []ledger.DataShapeError) {
	accounts := make([]core.Account, 0, len(raw.Banks)+len(raw.Debts))
	var dropped []ledger.DataShapeError

	for i, entry := range raw.Banks {
		a, reason := decodeAccount(entry, core.KindBank)
		if reason != "" {
			dropped = append(dropped, ledger.DataShapeError{Collection: "banks", Index: i, Reason: reason})
			continue
		}
		accounts = append(accounts, a)
	}
	for i, entry := range raw.Debts {
		a, reason := decodeAccount(entry, core.KindDebt)
		if reason != "" {
			dropped = append(dropped, ledger.DataShapeError{Collection: "debts", Index: i, Reason: reason})
			continue
		}
		accounts = append(accounts, a)
	}
	return accounts, dropped
}

// NormalizeAccounts re-applies the sign rule to already typed accounts and
// puts banks before debts. Applying it twice changes nothing.
func NormalizeAccounts(accounts []core.Account) []core.Account {
	out := make([]core.Account, 0, len(accounts))
	for _, a := range accounts {
		if a.Kind != core.KindDebt {
			a.Kind = core.KindBank
			out = append(out, a)
		}
	}
	for _, a := range accounts {
		if a.Kind == core.KindDebt {
			a.Balance = DebtBalance(a.Balance)
			out = append(out, a)
		}
	}
	return out
}

// DebtBalance forces a debt balance to -|x|.
func DebtBalance(x decimal.Decimal) decimal.Decimal {
	return x.Abs().Neg()
}

func decodeAccount(entry json.RawMessage, kind core.AccountKind) (core.Account, string) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil || fields == nil {
		return core.Account{}, "not an object"
	}

	var name string
	rawName, ok := fields["name"]
	if !ok || json.Unmarshal(rawName, &name) != nil || strings.TrimSpace(name) == "" {
		return core.Account{}, "missing name"
	}

	balance, ok := jsonNumber(fields["balance"])
	if !ok {
		return core.Account{}, "missing or non-numeric balance"
	}
	if kind == core.KindDebt {
		balance = DebtBalance(balance)
	}
	return core.Account{Name: name, Balance: balance, Kind: kind}, ""
}

// jsonNumber accepts only a bare JSON number.
func jsonNumber(raw json.RawMessage) (decimal.Decimal, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return decimal.Zero, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
