package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindBank AccountKind = "Bank"
	KindDebt AccountKind = "Debt"
)

const (
	TypeBank       AccountType = "Bank"
	TypeChecking   AccountType = "Checking"
	TypeSavings    AccountType = "Savings"
	TypeDebit      AccountType = "Debit"
	TypeCreditCard AccountType = "Credit Card"
	TypeLoan       AccountType = "Loan"
	TypeDebt       AccountType = "Debt"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

const (
	ActionDeposit       AdjustAction = "deposit"
	ActionWithdraw      AdjustAction = "withdraw"
	ActionPayment       AdjustAction = "payment"
	ActionUpdateBalance AdjustAction = "update_balance"
)

// Display labels derived for transactions.
const (
	LabelTransfer   = "Transfer"
	LabelDeposit    = "Deposit"
	LabelWithdrawal = "Withdrawal"

	// NoDescription is the literal the ledger service writes for the
	// auto-generated half of a transfer.
	NoDescription = "no description"
)

type (
	// AccountKind is the balance model of an account: banks carry their
	// reported balance, debts are kept non-positive.
	AccountKind string

	// AccountType is the user-facing type picked when an account is created.
	AccountType string

	TransactionType string

	AdjustAction string

	Account struct {
		Name    string          `json:"name"`
		Balance decimal.Decimal `json:"balance"`
		Kind    AccountKind     `json:"kind"`
	}

	// NewAccount is the input of the add account operation.
	NewAccount struct {
		Name    string          `json:"name" validate:"notblank,max=100"`
		Type    AccountType     `json:"type" validate:"accounttype"`
		Balance decimal.Decimal `json:"balance"`
	}

	Transaction struct {
		ID              *int64          `json:"id,omitempty"`
		Date            string          `json:"date" validate:"isodate"`
		Amount          decimal.Decimal `json:"amount"`
		Description     string          `json:"description"`
		Card            string          `json:"card"`
		Category        string          `json:"category"`
		Notes           string          `json:"notes"`
		TransactionType TransactionType `json:"transaction_type" validate:"omitempty,oneof=expense income"`
		RelatedAccount  string          `json:"related_account,omitempty"`
	}

	TransferRequest struct {
		Date        string          `json:"date" validate:"isodate"`
		FromAccount string          `json:"from_account" validate:"notblank"`
		ToAccount   string          `json:"to_account" validate:"notblank,nefield=FromAccount"`
		Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
		Description string          `json:"description"`
		Notes       string          `json:"notes"`
	}

	AdjustmentRequest struct {
		Action      AdjustAction    `json:"action" validate:"oneof=deposit withdraw payment update_balance"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description,omitempty"`
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrInvalidAction      = errors.New("invalid adjustment action")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrSameAccount        = errors.New("source and destination account are the same")
)

// Kind maps an account type to its balance model.
func (t AccountType) Kind() AccountKind {
	if t.IsDebt() {
		return KindDebt
	}
	return KindBank
}

// IsDebt reports whether the type is a credit-like account.
func (t AccountType) IsDebt() bool {
	switch t {
	case TypeCreditCard, TypeLoan, TypeDebt:
		return true
	}
	return false
}

func (t AccountType) String() string { return string(t) }

// TypeOf returns the canonical account type standing for a kind.
func TypeOf(kind AccountKind) AccountType {
	if kind == KindDebt {
		return TypeDebt
	}
	return TypeBank
}

// ParseAccountType accepts the display names ("Credit Card") as well as
// compact spellings ("credit_card", "creditcard").
func ParseAccountType(s string) (AccountType, error) {
	key := compactKey(s)
	for _, t := range []AccountType{TypeBank, TypeChecking, TypeSavings, TypeDebit, TypeCreditCard, TypeLoan, TypeDebt} {
		if compactKey(string(t)) == key {
			return t, nil
		}
	}
	return "", ErrInvalidAccountType
}

func compactKey(s string) string {
	r := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(s)))
}

// Type returns the transaction tag, defaulting to expense.
func (t Transaction) Type() TransactionType {
	if strings.TrimSpace(string(t.TransactionType)) == "" {
		return Expense
	}
	return TransactionType(strings.ToLower(strings.TrimSpace(string(t.TransactionType))))
}

// IsTransfer reports whether the row is the auto-generated half of a
// transfer rather than a user-entered expense or income.
func (t Transaction) IsTransfer() bool {
	desc := strings.TrimSpace(t.Description)
	return desc == "" || strings.EqualFold(desc, NoDescription)
}

// HasID reports whether the ledger service assigned an id to the row.
func (t Transaction) HasID() bool {
	return t.ID != nil
}

// Month returns the YYYY-MM prefix of the transaction date.
func (t Transaction) Month() Month {
	if len(t.Date) < 7 {
		return ""
	}
	return Month(t.Date[:7])
}

// IDValue returns the id or zero when unassigned.
func (t Transaction) IDValue() int64 {
	if t.ID == nil {
		return 0
	}
	return *t.ID
}

// WithID returns a copy carrying the given id.
func (t Transaction) WithID(id int64) Transaction {
	t.ID = &id
	return t
}

// FormatDate renders a time as an ISO-8601 calendar date.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// ParseDate validates an ISO-8601 calendar date string.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// Today returns the calendar date of now in the local time zone.
func Today(now time.Time) string {
	return FormatDate(now)
}
