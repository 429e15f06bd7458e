package reconcile

import (
	"bearbudget/internal/core"

	"github.com/shopspring/decimal"
)

// SignRule decides how a transaction moves a derived balance.
type SignRule int

const (
	// SubtractExpense adds income and subtracts expenses.
	SubtractExpense SignRule = iota
	// AddAmount adds the amount whatever the tag; a debt grows with
	// positive amounts.
	AddAmount
)

func (r SignRule) String() string {
	if r == AddAmount {
		return "add_amount"
	}
	return "subtract_expense"
}

// BalanceRules selects the sign rule per account type.
type BalanceRules map[core.AccountType]SignRule

func DefaultBalanceRules() BalanceRules {
	return BalanceRules{
		core.TypeBank:       SubtractExpense,
		core.TypeChecking:   SubtractExpense,
		core.TypeSavings:    SubtractExpense,
		core.TypeDebit:      SubtractExpense,
		core.TypeCreditCard: AddAmount,
		core.TypeLoan:       AddAmount,
		core.TypeDebt:       AddAmount,
	}
}

// For returns the rule for a type. Types missing from the map fall back on
// their kind.
func (r BalanceRules) For(t core.AccountType) SignRule {
	if rule, ok := r[t]; ok {
		return rule
	}
	if t.IsDebt() {
		return AddAmount
	}
	return SubtractExpense
}

func (r BalanceRules) ForKind(kind core.AccountKind) SignRule {
	return r.For(core.TypeOf(kind))
}

// SignedAmount is the contribution of one transaction under rule.
func SignedAmount(tx core.Transaction, rule SignRule) decimal.Decimal {
	if rule == AddAmount {
		return tx.Amount
	}
	switch tx.Type() {
	case core.Income:
		return tx.Amount
	case core.Expense:
		return tx.Amount.Neg()
	default:
		return decimal.Zero
	}
}

// Derive folds a transaction history onto a starting balance.
func Derive(start decimal.Decimal, txs []core.Transaction, rule SignRule) decimal.Decimal {
	total := start
	for _, tx := range txs {
		total = total.Add(SignedAmount(tx, rule))
	}
	return total
}

// DisplayBalance presents a derived balance: a debt's magnitude is shown
// as -|x|, a bank balance as is. An overpaid debt (negative magnitude)
// still shows as -|x|, the same value Normalize gives a positive balance
// reported by the server, so derived and reported debts never disagree
// in sign.
func DisplayBalance(kind core.AccountKind, derived decimal.Decimal) decimal.Decimal {
	if kind == core.KindDebt {
		return DebtBalance(derived)
	}
	return derived
}

// StoredDelta is how posting tx changes the stored balance of an account of
// the given kind. Debts are stored as -magnitude, so their delta is the
// negated AddAmount contribution.
func StoredDelta(kind core.AccountKind, tx core.Transaction) decimal.Decimal {
	if kind == core.KindDebt {
		return SignedAmount(tx, AddAmount).Neg()
	}
	return SignedAmount(tx, SubtractExpense)
}

// Counterpart is the row a transfer implies on its destination. Money
// arriving on a debt pays it down, so the amount is negated there.
func Counterpart(tx core.Transaction, kind core.AccountKind) core.Transaction {
	amount := tx.Amount
	if kind == core.KindDebt {
		amount = amount.Neg()
	}
	return core.Transaction{
		Date:            tx.Date,
		Amount:          amount,
		Description:     core.LabelTransfer,
		Card:            tx.RelatedAccount,
		Category:        core.LabelDeposit,
		Notes:           tx.Notes,
		TransactionType: core.Income,
		RelatedAccount:  tx.Card,
	}
}

// History collects the rows that moved account: those posted against it
// and the counterparts of transfers that name it as destination.
func History(feed []core.Transaction, account string, kind core.AccountKind) []core.Transaction {
	out := make([]core.Transaction, 0)
	if account == "" {
		return out
	}
	for _, tx := range feed {
		switch {
		case tx.Card == account:
			out = append(out, tx)
		case tx.RelatedAccount == account && tx.Card != "":
			out = append(out, Counterpart(tx, kind))
		}
	}
	return out
}
