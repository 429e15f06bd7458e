package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bearbudget/internal/core"
	"bearbudget/internal/ledger"
	"bearbudget/internal/ledger/posting"
	"bearbudget/internal/reconcile"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLiteRepository is the sqlite-backed ledger store. Every write runs in
// one SQL transaction together with the balance changes it causes.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

// SetClock replaces the clock used for adjustment dates and the default
// summary month.
func (r *SQLiteRepository) SetClock(now func() time.Time) {
	r.now = now
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) ListBanks(ctx context.Context) ([]core.Account, error) {
	banks, err := r.queries.ListAccounts(ctx, core.KindBank)
	if err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	return banks, nil
}

func (r *SQLiteRepository) ListDebts(ctx context.Context) ([]core.Account, error) {
	debts, err := r.queries.ListAccounts(ctx, core.KindDebt)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	return debts, nil
}

// ListCards returns banks first, then debts.
func (r *SQLiteRepository) ListCards(ctx context.Context) ([]ledger.Card, error) {
	banks, err := r.ListBanks(ctx)
	if err != nil {
		return nil, err
	}
	debts, err := r.ListDebts(ctx)
	if err != nil {
		return nil, err
	}
	return append(ledger.AccountEntries(banks), ledger.AccountEntries(debts)...), nil
}

func (r *SQLiteRepository) CreateBank(ctx context.Context, name string, balance decimal.Decimal) error {
	return r.createAccount(ctx, core.Account{Name: name, Balance: balance, Kind: core.KindBank})
}

func (r *SQLiteRepository) CreateDebt(ctx context.Context, name string, balance decimal.Decimal) error {
	return r.createAccount(ctx, core.Account{Name: name, Balance: reconcile.DebtBalance(balance), Kind: core.KindDebt})
}

func (r *SQLiteRepository) createAccount(ctx context.Context, a core.Account) error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return core.ErrInvalidAccount
	}
	return r.inTx(ctx, func(q *Queries) error {
		if _, err := q.GetAccount(ctx, a.Name); err == nil {
			return fmt.Errorf("account %q: %w", a.Name, ledger.ErrConflict)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("get account: %w", err)
		}
		if err := q.CreateAccount(ctx, a); err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		slog.InfoContext(ctx, "Account saved to SQLite",
			"account", a.Name,
			"kind", a.Kind,
			"balance", a.Balance.String())
		return nil
	})
}

func (r *SQLiteRepository) DeleteBank(ctx context.Context, name string) error {
	return r.deleteAccount(ctx, name, core.KindBank)
}

func (r *SQLiteRepository) DeleteDebt(ctx context.Context, name string) error {
	return r.deleteAccount(ctx, name, core.KindDebt)
}

func (r *SQLiteRepository) DeleteCard(ctx context.Context, name string) error {
	return r.deleteAccount(ctx, name, "")
}

func (r *SQLiteRepository) deleteAccount(ctx context.Context, name string, kind core.AccountKind) error {
	n, err := r.queries.DeleteAccount(ctx, name, kind)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %q: %w", name, ledger.ErrNotFound)
	}
	slog.InfoContext(ctx, "Account deleted from SQLite", "account", name)
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	txs, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return loadTransaction(ctx, r.queries, id)
}

func loadTransaction(ctx context.Context, q *Queries, id int64) (core.Transaction, error) {
	tx, err := q.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	var saved core.Transaction
	err := r.inTx(ctx, func(q *Queries) error {
		var err error
		saved, err = post(ctx, q, tx)
		return err
	})
	return saved, err
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id int64, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	var saved core.Transaction
	err := r.inTx(ctx, func(q *Queries) error {
		old, err := loadTransaction(ctx, q, id)
		if err != nil {
			return err
		}
		lookup, err := kindLookup(ctx, q)
		if err != nil {
			return err
		}
		if err := applyEffects(ctx, q, posting.Reversed(posting.Effects(old, lookup))); err != nil {
			return err
		}
		if err := q.UpdateTransaction(ctx, id, tx); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		if saved, err = loadTransaction(ctx, q, id); err != nil {
			return err
		}
		return applyEffects(ctx, q, posting.Effects(saved, lookup))
	})
	return saved, err
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	var old core.Transaction
	err := r.inTx(ctx, func(q *Queries) error {
		var err error
		if old, err = loadTransaction(ctx, q, id); err != nil {
			return err
		}
		lookup, err := kindLookup(ctx, q)
		if err != nil {
			return err
		}
		if err := q.DeleteTransaction(ctx, id); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		return applyEffects(ctx, q, posting.Reversed(posting.Effects(old, lookup)))
	})
	if err != nil {
		return core.Transaction{}, err
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "transaction_id", id)
	return old, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]string, error) {
	cats, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names, nil
}

// SaveCategory inserts a category or updates its budget and rollover.
func (r *SQLiteRepository) SaveCategory(ctx context.Context, c core.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("save category: empty name")
	}
	if err := r.queries.UpsertCategory(ctx, c); err != nil {
		return fmt.Errorf("save category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Summary(ctx context.Context, month core.Month) ([]core.SummaryItem, error) {
	if month == "" {
		month = core.CurrentMonth(r.now())
	}
	cats, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	txs, err := r.queries.ListTransactionsByMonth(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", month, err)
	}
	return posting.Summarize(cats, txs, month), nil
}

func (r *SQLiteRepository) Adjust(ctx context.Context, account string, req core.AdjustmentRequest) (core.Transaction, error) {
	var row core.Transaction
	err := r.inTx(ctx, func(q *Queries) error {
		a, err := q.GetAccount(ctx, account)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("account %q: %w", account, ledger.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get account: %w", err)
		}
		adj, err := posting.Adjustment(a.Name, a.Kind, a.Balance, req, core.Today(r.now()))
		if err != nil {
			return err
		}
		row, err = post(ctx, q, adj)
		return err
	})
	return row, err
}

func (r *SQLiteRepository) Transfer(ctx context.Context, req core.TransferRequest) (core.Transaction, error) {
	if err := req.Validate(); err != nil {
		return core.Transaction{}, err
	}
	var row core.Transaction
	err := r.inTx(ctx, func(q *Queries) error {
		for _, name := range []string{req.FromAccount, req.ToAccount} {
			if _, err := q.GetAccount(ctx, name); errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("account %q: %w", name, ledger.ErrNotFound)
			} else if err != nil {
				return fmt.Errorf("get account: %w", err)
			}
		}
		var err error
		row, err = post(ctx, q, posting.TransferRow(req))
		return err
	})
	return row, err
}

// post inserts tx and applies its balance effects.
func post(ctx context.Context, q *Queries, tx core.Transaction) (core.Transaction, error) {
	id, err := q.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	saved, err := loadTransaction(ctx, q, id)
	if err != nil {
		return core.Transaction{}, err
	}
	lookup, err := kindLookup(ctx, q)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := applyEffects(ctx, q, posting.Effects(saved, lookup)); err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"transaction_id", id,
		"account", saved.Card,
		"amount", saved.Amount.String(),
		"date", saved.Date)
	return saved, nil
}

func kindLookup(ctx context.Context, q *Queries) (posting.KindLookup, error) {
	accounts, err := q.AllAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	kinds := make(map[string]core.AccountKind, len(accounts))
	for _, a := range accounts {
		kinds[a.Name] = a.Kind
	}
	return func(name string) (core.AccountKind, bool) {
		k, ok := kinds[name]
		return k, ok
	}, nil
}

func applyEffects(ctx context.Context, q *Queries, effects []posting.Effect) error {
	for _, e := range effects {
		a, err := q.GetAccount(ctx, e.Account)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("get account: %w", err)
		}
		if err := q.SetBalance(ctx, e.Account, a.Balance.Add(e.Delta)); err != nil {
			return fmt.Errorf("set balance of %s: %w", e.Account, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
