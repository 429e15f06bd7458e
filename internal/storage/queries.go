package storage

import (
	"context"
	"database/sql"

	"bearbudget/internal/core"

	"github.com/shopspring/decimal"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const listAccounts = `
SELECT name, kind, balance FROM accounts
WHERE kind = ?
ORDER BY rowid`

func (q *Queries) ListAccounts(ctx context.Context, kind core.AccountKind) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const allAccounts = `
SELECT name, kind, balance FROM accounts
ORDER BY rowid`

// AllAccounts lists banks and debts together, in creation order.
func (q *Queries) AllAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx, allAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const getAccount = `SELECT name, kind, balance FROM accounts WHERE name = ?`

func (q *Queries) GetAccount(ctx context.Context, name string) (core.Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccount, name))
}

const createAccount = `INSERT INTO accounts (name, kind, balance) VALUES (?, ?, ?)`

func (q *Queries) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := q.db.ExecContext(ctx, createAccount, a.Name, string(a.Kind), a.Balance.String())
	return err
}

const deleteAccount = `DELETE FROM accounts WHERE name = ? AND (? = '' OR kind = ?)`

// DeleteAccount removes name; an empty kind matches either kind.
func (q *Queries) DeleteAccount(ctx context.Context, name string, kind core.AccountKind) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteAccount, name, string(kind), string(kind))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const setBalance = `UPDATE accounts SET balance = ? WHERE name = ?`

func (q *Queries) SetBalance(ctx context.Context, name string, balance decimal.Decimal) error {
	_, err := q.db.ExecContext(ctx, setBalance, balance.String(), name)
	return err
}

const transactionColumns = `id, date, amount, description, card, category, notes, transaction_type, related_account`

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions ORDER BY id`

func (q *Queries) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return q.queryTransactions(ctx, listTransactions)
}

const listTransactionsByMonth = `SELECT ` + transactionColumns + ` FROM transactions WHERE date LIKE ? || '-%' ORDER BY id`

func (q *Queries) ListTransactionsByMonth(ctx context.Context, month core.Month) ([]core.Transaction, error) {
	return q.queryTransactions(ctx, listTransactionsByMonth, month.String())
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const createTransaction = `
INSERT INTO transactions (date, amount, description, card, category, notes, transaction_type, related_account)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, createTransaction,
		tx.Date, tx.Amount.String(), tx.Description, tx.Card, tx.Category, tx.Notes, string(tx.Type()), tx.RelatedAccount)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const updateTransaction = `
UPDATE transactions
SET date = ?, amount = ?, description = ?, card = ?, category = ?, notes = ?, transaction_type = ?, related_account = ?
WHERE id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, id int64, tx core.Transaction) error {
	_, err := q.db.ExecContext(ctx, updateTransaction,
		tx.Date, tx.Amount.String(), tx.Description, tx.Card, tx.Category, tx.Notes, string(tx.Type()), tx.RelatedAccount, id)
	return err
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteTransaction, id)
	return err
}

const listCategories = `SELECT name, budget, rollover FROM categories ORDER BY position, name`

func (q *Queries) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.Name, &c.Budget, &c.Rollover); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const upsertCategory = `
INSERT INTO categories (name, budget, rollover, position)
VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM categories))
ON CONFLICT(name) DO UPDATE SET budget = excluded.budget, rollover = excluded.rollover`

func (q *Queries) UpsertCategory(ctx context.Context, c core.Category) error {
	_, err := q.db.ExecContext(ctx, upsertCategory, c.Name, c.Budget.String(), c.Rollover.String())
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (core.Account, error) {
	var a core.Account
	var kind string
	if err := row.Scan(&a.Name, &kind, &a.Balance); err != nil {
		return core.Account{}, err
	}
	a.Kind = core.AccountKind(kind)
	return a, nil
}

func (q *Queries) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, tx)
	}
	return items, rows.Err()
}

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		tx     core.Transaction
		id     int64
		txType string
	)
	err := row.Scan(&id, &tx.Date, &tx.Amount, &tx.Description, &tx.Card, &tx.Category, &tx.Notes, &txType, &tx.RelatedAccount)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.TransactionType = core.TransactionType(txType)
	return tx.WithID(id), nil
}
