package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bearbudget/internal/core"
	"bearbudget/internal/ledger"
	"bearbudget/internal/log"
	"bearbudget/internal/reconcile"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	// ErrStaleView is returned when a write went through but the refresh
	// that follows it failed. The view keeps its previous snapshot.
	ErrStaleView = errors.New("view not refreshed")
)

// Coordinator runs every ledger mutation as write then refresh. A failed
// write refreshes nothing; a refresh is committed to the view only when
// all of its fetches succeed.
type Coordinator struct {
	ledger ledger.Service
	rules  reconcile.BalanceRules
	now    func() time.Time
	logger *log.Logger
}

type Option func(*Coordinator)

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithBalanceRules(rules reconcile.BalanceRules) Option {
	return func(c *Coordinator) { c.rules = rules }
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

func NewCoordinator(svc ledger.Service, opts ...Option) *Coordinator {
	c := &Coordinator{
		ledger: svc,
		rules:  reconcile.DefaultBalanceRules(),
		now:    time.Now,
		logger: log.ForComponent(log.ComponentCoordinator),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// refreshPlan names what a mutation re-reads.
type refreshPlan struct {
	accounts     bool
	cards        bool
	transactions bool
	month        core.Month
	account      string
}

// Reads

func (c *Coordinator) FetchAccounts(ctx context.Context, v *View) ([]core.Account, error) {
	accounts, err := c.loadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	v.commit(func(s *Snapshot) { s.Accounts = accounts })
	return accounts, nil
}

// FetchTransactions reconciles the feed for month and account and moves
// the view's focus there.
func (c *Coordinator) FetchTransactions(ctx context.Context, v *View, month core.Month, account string) ([]core.Transaction, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}
	feed, err := c.loadFeed(ctx)
	if err != nil {
		return nil, err
	}
	txs := reconcile.Reconcile(feed, month, account)
	v.commit(func(s *Snapshot) {
		s.Feed, s.Month, s.Account, s.Transactions = feed, month, account, txs
	})
	return txs, nil
}

func (c *Coordinator) FetchCards(ctx context.Context, v *View) ([]ledger.Card, error) {
	cards, err := c.ledger.Cards(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch cards: %w", err)
	}
	v.commit(func(s *Snapshot) { s.Cards = cards })
	return cards, nil
}

func (c *Coordinator) FetchCategories(ctx context.Context, v *View) ([]string, error) {
	cats, err := c.ledger.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	v.commit(func(s *Snapshot) { s.Categories = cats })
	return cats, nil
}

// FetchSummary loads the budget summary; an empty month is the ledger's
// current month.
func (c *Coordinator) FetchSummary(ctx context.Context, v *View, month core.Month) ([]core.SummaryItem, error) {
	if month != "" {
		if err := month.Validate(); err != nil {
			return nil, err
		}
	}
	items, err := c.ledger.Summary(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("fetch summary: %w", err)
	}
	v.commit(func(s *Snapshot) { s.Summary = items })
	return items, nil
}

// DerivedBalance folds the view's feed for account onto start using the
// sign rule of the account's kind.
func (c *Coordinator) DerivedBalance(v *View, account string, start decimal.Decimal) (decimal.Decimal, error) {
	snap := v.Snapshot()
	a, ok := snap.FindAccount(account)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrAccountNotFound, account)
	}
	history := reconcile.History(snap.Feed, a.Name, a.Kind)
	return reconcile.DisplayBalance(a.Kind, reconcile.Derive(start, history, c.rules.ForKind(a.Kind))), nil
}

// Transaction mutations refresh the transaction list and the card picker.

func (c *Coordinator) AddTransaction(ctx context.Context, v *View, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	err := c.write(ctx, "add transaction", func(ctx context.Context) error {
		return c.ledger.AddTransaction(ctx, tx)
	})
	if err != nil {
		return err
	}
	return c.refresh(ctx, v, c.transactionPlan(v, tx))
}

func (c *Coordinator) UpdateTransaction(ctx context.Context, v *View, id int64, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	err := c.write(ctx, "update transaction", func(ctx context.Context) error {
		return c.ledger.UpdateTransaction(ctx, id, tx)
	})
	if err != nil {
		return err
	}
	return c.refresh(ctx, v, c.transactionPlan(v, tx))
}

func (c *Coordinator) DeleteTransaction(ctx context.Context, v *View, id int64) error {
	err := c.write(ctx, "delete transaction", func(ctx context.Context) error {
		return c.ledger.DeleteTransaction(ctx, id)
	})
	if err != nil {
		return err
	}
	return c.refresh(ctx, v, c.transactionPlan(v, core.Transaction{}))
}

// transactionPlan keeps the view's focus, falling back on the row's own
// month and card when the view has none.
func (c *Coordinator) transactionPlan(v *View, tx core.Transaction) refreshPlan {
	month, account := v.Focus()
	if month == "" {
		month = tx.Month()
	}
	if account == "" {
		account = tx.Card
	}
	if month == "" {
		month = core.CurrentMonth(c.now())
	}
	return refreshPlan{cards: true, transactions: true, month: month, account: account}
}

// Account and funds mutations refresh accounts and transactions.

// AddAccount creates a bank for bank-like types and a debt otherwise. Debts
// are created with -|balance|.
func (c *Coordinator) AddAccount(ctx context.Context, v *View, name string, typ core.AccountType, balance decimal.Decimal) error {
	req := core.NewAccount{Name: strings.TrimSpace(name), Type: typ, Balance: balance}
	if err := req.Validate(); err != nil {
		return err
	}
	err := c.write(ctx, "add account", func(ctx context.Context) error {
		if req.Type.IsDebt() {
			return c.ledger.AddDebt(ctx, req.Name, reconcile.DebtBalance(req.Balance))
		}
		return c.ledger.AddBank(ctx, req.Name, req.Balance)
	})
	if err != nil {
		return err
	}
	return c.refresh(ctx, v, c.accountPlan(v, ""))
}

// DeleteAccount routes on the kind the view currently shows for name.
func (c *Coordinator) DeleteAccount(ctx context.Context, v *View, name string) error {
	a, ok := v.Snapshot().FindAccount(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrAccountNotFound, name)
	}
	err := c.write(ctx, "delete account", func(ctx context.Context) error {
		if a.Kind == core.KindDebt {
			return c.ledger.DeleteDebt(ctx, a.Name)
		}
		return c.ledger.DeleteBank(ctx, a.Name)
	})
	if err != nil {
		return err
	}
	return c.refresh(ctx, v, c.accountPlan(v, ""))
}

// DeleteCard removes name from the card picker whatever its kind, then
// refreshes the picker along with accounts and transactions.
func (c *Coordinator) DeleteCard(ctx context.Context, v *View, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrInvalidAccount
	}
	if err := c.write(ctx, "delete card", func(ctx context.Context) error {
		return c.ledger.DeleteCard(ctx, name)
	}); err != nil {
		return err
	}
	plan := c.accountPlan(v, "")
	plan.cards = true
	return c.refresh(ctx, v, plan)
}

func (c *Coordinator) AdjustFunds(ctx context.Context, v *View, account string, action core.AdjustAction, amount decimal.Decimal) error {
	req := core.AdjustmentRequest{Action: action, Amount: amount}
	if strings.TrimSpace(account) == "" {
		return core.ErrInvalidAccount
	}
	if err := req.Validate(); err != nil {
		return err
	}
	err := c.write(ctx, "adjust funds", func(ctx context.Context) error {
		return c.ledger.Adjust(ctx, account, req)
	})
	if err != nil {
		return err
	}
	return c.refresh(ctx, v, c.accountPlan(v, account))
}

// TransferFunds moves amount dated today, then refreshes the accounts and
// the destination's transactions for the current month.
func (c *Coordinator) TransferFunds(ctx context.Context, v *View, from, to string, amount decimal.Decimal) error {
	now := c.now()
	req := core.TransferRequest{
		Date:        core.Today(now),
		FromAccount: from,
		ToAccount:   to,
		Amount:      amount,
	}
	if err := req.Validate(); err != nil {
		return err
	}
	err := c.write(ctx, "transfer funds", func(ctx context.Context) error {
		return c.ledger.Transfer(ctx, req)
	})
	if err != nil {
		return err
	}
	return c.refresh(ctx, v, refreshPlan{accounts: true, transactions: true, month: core.CurrentMonth(now), account: to})
}

// MakePayment pays down a debt from source, or records a payment on the
// debt alone when no source is given.
func (c *Coordinator) MakePayment(ctx context.Context, v *View, debt, source string, amount decimal.Decimal) error {
	if strings.TrimSpace(source) == "" {
		return c.AdjustFunds(ctx, v, debt, core.ActionPayment, amount)
	}
	return c.TransferFunds(ctx, v, source, debt, amount)
}

// accountPlan refreshes accounts plus transactions for account (or the
// view's focused account) in the focused month, defaulting to this month.
func (c *Coordinator) accountPlan(v *View, account string) refreshPlan {
	month, focused := v.Focus()
	if account == "" {
		account = focused
	}
	if month == "" {
		month = core.CurrentMonth(c.now())
	}
	return refreshPlan{accounts: true, transactions: account != "", month: month, account: account}
}

// write issues one ledger write. It runs detached from ctx cancellation so
// a write already sent is allowed to finish.
func (c *Coordinator) write(ctx context.Context, op string, fn func(context.Context) error) error {
	if err := fn(context.WithoutCancel(ctx)); err != nil {
		c.logger.WarnContext(ctx, "Ledger write failed", log.NewFields().
			WithOperation(op).
			WithErrorType(errorType(err)).
			WithError(err).ToSlice()...)
		return fmt.Errorf("%s: %w", op, err)
	}
	c.logger.DebugContext(ctx, "Ledger write done", log.FieldOperation, op)
	return nil
}

// refresh fetches everything the plan names concurrently and commits it
// in one step.
func (c *Coordinator) refresh(ctx context.Context, v *View, plan refreshPlan) error {
	var (
		accounts []core.Account
		cards    []ledger.Card
		feed     []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	if plan.accounts {
		g.Go(func() error {
			var err error
			accounts, err = c.loadAccounts(gctx)
			return err
		})
	}
	if plan.cards {
		g.Go(func() error {
			var err error
			cards, err = c.ledger.Cards(gctx)
			if err != nil {
				return fmt.Errorf("fetch cards: %w", err)
			}
			return nil
		})
	}
	if plan.transactions {
		g.Go(func() error {
			var err error
			feed, err = c.loadFeed(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.WarnContext(ctx, "Refresh failed, keeping previous snapshot", log.NewFields().
			WithOperation(log.OpRefresh).
			WithErrorType(errorType(err)).
			WithError(err).ToSlice()...)
		return fmt.Errorf("%w: %w", ErrStaleView, err)
	}

	var txs []core.Transaction
	if plan.transactions {
		txs = reconcile.Reconcile(feed, plan.month, plan.account)
	}
	committed := v.commit(func(s *Snapshot) {
		if plan.accounts {
			s.Accounts = accounts
		}
		if plan.cards {
			s.Cards = cards
		}
		if plan.transactions {
			s.Feed, s.Month, s.Account, s.Transactions = feed, plan.month, plan.account, txs
		}
	})
	if !committed {
		c.logger.DebugContext(ctx, "View closed, refresh discarded", log.FieldOperation, log.OpRefresh)
	}
	return nil
}

func (c *Coordinator) loadAccounts(ctx context.Context) ([]core.Account, error) {
	raw, err := c.ledger.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch accounts: %w", err)
	}
	accounts, dropped := reconcile.NormalizeWithReport(raw)
	c.reportDropped(ctx, "Dropped malformed accounts", dropped)
	return accounts, nil
}

func (c *Coordinator) loadFeed(ctx context.Context) ([]core.Transaction, error) {
	raw, err := c.ledger.Transactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}
	feed, dropped := reconcile.DecodeFeed(raw)
	c.reportDropped(ctx, "Dropped malformed transactions", dropped)
	return feed, nil
}

func (c *Coordinator) reportDropped(ctx context.Context, msg string, dropped []ledger.DataShapeError) {
	if len(dropped) == 0 {
		return
	}
	c.logger.WarnContext(ctx, msg, log.NewFields().
		WithOperation(log.OpRefresh).
		WithErrorType(log.ErrorTypeDataShape).
		WithDropped(len(dropped)).ToSlice()...)
	for _, d := range dropped {
		c.logger.DebugContext(ctx, "Malformed record", log.FieldError, d.Error())
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ledger.ErrTransport):
		return log.ErrorTypeTransport
	case errors.Is(err, ledger.ErrDataShape):
		return log.ErrorTypeDataShape
	case errors.Is(err, ledger.ErrNotFound):
		return log.ErrorTypeNotFound
	case errors.Is(err, ledger.ErrConflict):
		return log.ErrorTypeConflict
	default:
		return log.ErrorTypeInternal
	}
}
