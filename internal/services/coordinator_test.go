package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"bearbudget/internal/core"
	"bearbudget/internal/ledger"
	"bearbudget/internal/ledger/memory"
	"bearbudget/internal/log"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

var decimalEq = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var fixedNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

// fakeLedger records every call and lets tests fail writes or reads.
type fakeLedger struct {
	mu        sync.Mutex
	calls     map[string]int
	transfers []core.TransferRequest
	debts     []ledger.Card
	adjusts   []core.AdjustmentRequest
	accounts  ledger.AccountsPayload
	feed      ledger.Feed
	writeErr  error
	readErr   error
}

func newFake() *fakeLedger {
	return &fakeLedger{calls: map[string]int{}}
}

func (f *fakeLedger) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeLedger) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeLedger) Accounts(context.Context) (ledger.AccountsPayload, error) {
	f.hit("accounts")
	if f.readErr != nil {
		return ledger.AccountsPayload{}, f.readErr
	}
	return f.accounts, nil
}

func (f *fakeLedger) Cards(context.Context) ([]ledger.Card, error) {
	f.hit("cards")
	if f.readErr != nil {
		return nil, f.readErr
	}
	return []ledger.Card{{Name: "Checking"}}, nil
}

func (f *fakeLedger) AddBank(context.Context, string, decimal.Decimal) error {
	f.hit("add bank")
	return f.writeErr
}

func (f *fakeLedger) AddDebt(_ context.Context, name string, balance decimal.Decimal) error {
	f.hit("add debt")
	f.mu.Lock()
	f.debts = append(f.debts, ledger.Card{Name: name, Balance: balance})
	f.mu.Unlock()
	return f.writeErr
}

func (f *fakeLedger) DeleteBank(context.Context, string) error {
	f.hit("delete bank")
	return f.writeErr
}

func (f *fakeLedger) DeleteDebt(context.Context, string) error {
	f.hit("delete debt")
	return f.writeErr
}

func (f *fakeLedger) DeleteCard(context.Context, string) error {
	f.hit("delete card")
	return f.writeErr
}

func (f *fakeLedger) Transactions(context.Context) (ledger.Feed, error) {
	f.hit("transactions")
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.feed, nil
}

func (f *fakeLedger) AddTransaction(context.Context, core.Transaction) error {
	f.hit("add transaction")
	return f.writeErr
}

func (f *fakeLedger) UpdateTransaction(context.Context, int64, core.Transaction) error {
	f.hit("update transaction")
	return f.writeErr
}

func (f *fakeLedger) DeleteTransaction(context.Context, int64) error {
	f.hit("delete transaction")
	return f.writeErr
}

func (f *fakeLedger) Categories(context.Context) ([]string, error) {
	f.hit("categories")
	return []string{"Food"}, f.readErr
}

func (f *fakeLedger) Summary(context.Context, core.Month) ([]core.SummaryItem, error) {
	f.hit("summary")
	return []core.SummaryItem{{Category: "Food", Budget: dec("100"), Remaining: dec("40")}}, f.readErr
}

func (f *fakeLedger) Adjust(ctx context.Context, _ string, req core.AdjustmentRequest) error {
	f.hit("adjust")
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.mu.Lock()
	f.adjusts = append(f.adjusts, req)
	f.mu.Unlock()
	return f.writeErr
}

func (f *fakeLedger) Transfer(_ context.Context, req core.TransferRequest) error {
	f.hit("transfer")
	f.mu.Lock()
	f.transfers = append(f.transfers, req)
	f.mu.Unlock()
	return f.writeErr
}

func rawJSON(t *testing.T, entries ...any) []json.RawMessage {
	t.Helper()
	out, err := ledger.Raw(entries)
	if err != nil {
		t.Fatalf("raw: %v", err)
	}
	return out
}

func seededFake(t *testing.T) *fakeLedger {
	f := newFake()
	f.accounts = ledger.AccountsPayload{
		Banks: rawJSON(t, ledger.Card{Name: "Checking", Balance: dec("500")}, ledger.Card{Name: "Savings", Balance: dec("50")}),
		Debts: rawJSON(t, ledger.Card{Name: "Visa", Balance: dec("200")}),
	}
	f.feed = ledger.Feed(rawJSON(t,
		core.Transaction{ID: ptr(1), Date: "2025-03-02", Amount: dec("75"), Card: "Checking"},
		core.Transaction{ID: ptr(2), Date: "2025-03-03", Amount: dec("12"), Description: "Lunch", Card: "Checking"},
	))
	return f
}

func ptr(n int64) *int64 { return &n }

func newCoordinator(svc ledger.Service) *Coordinator {
	return NewCoordinator(svc, WithClock(func() time.Time { return fixedNow }))
}

func TestFetchAccountsNormalizes(t *testing.T) {
	f := seededFake(t)
	c := newCoordinator(f)
	v := NewView("", "")

	got, err := c.FetchAccounts(context.Background(), v)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	want := []core.Account{
		{Name: "Checking", Balance: dec("500"), Kind: core.KindBank},
		{Name: "Savings", Balance: dec("50"), Kind: core.KindBank},
		{Name: "Visa", Balance: dec("-200"), Kind: core.KindDebt},
	}
	if diff := cmp.Diff(want, got, decimalEq); diff != "" {
		t.Fatalf("unexpected accounts (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, v.Snapshot().Accounts, decimalEq); diff != "" {
		t.Fatalf("view not updated (-want +got):\n%s", diff)
	}
	nw := v.Snapshot().NetWorth()
	if !nw.Net.Equal(dec("350")) {
		t.Fatalf("unexpected net worth %+v", nw)
	}
}

func TestFetchTransactionsMirrorsForDestination(t *testing.T) {
	f := seededFake(t)
	c := newCoordinator(f)
	v := NewView("2025-03", "Savings")

	txs, err := c.FetchTransactions(context.Background(), v, "2025-03", "Savings")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(txs) != 1 || txs[0].Card != "Savings" || txs[0].Category != "Deposit" || !txs[0].Amount.Equal(dec("75")) {
		t.Fatalf("expected one mirrored deposit, got %+v", txs)
	}
	if _, err := c.FetchTransactions(context.Background(), v, "March", "Savings"); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestAddAccountCreditCardCreatesNegativeDebt(t *testing.T) {
	store := memory.New(nil)
	svc := ledger.NewLocal(store)
	c := newCoordinator(svc)
	v := NewView("", "")

	if err := c.AddAccount(context.Background(), v, "Visa", core.TypeCreditCard, dec("200")); err != nil {
		t.Fatalf("add account: %v", err)
	}
	debts, _ := store.ListDebts(context.Background())
	if len(debts) != 1 || !debts[0].Balance.Equal(dec("-200")) {
		t.Fatalf("debt should be created with -200, got %+v", debts)
	}

	accounts, err := c.FetchAccounts(context.Background(), v)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	want := []core.Account{{Name: "Visa", Balance: dec("-200"), Kind: core.KindDebt}}
	if diff := cmp.Diff(want, accounts, decimalEq); diff != "" {
		t.Fatalf("unexpected accounts (-want +got):\n%s", diff)
	}
}

func TestAddAccountRoutesByType(t *testing.T) {
	cases := []struct {
		typ  core.AccountType
		call string
	}{
		{core.TypeChecking, "add bank"},
		{core.TypeSavings, "add bank"},
		{core.TypeDebit, "add bank"},
		{core.TypeCreditCard, "add debt"},
		{core.TypeLoan, "add debt"},
	}
	for _, tc := range cases {
		f := seededFake(t)
		c := newCoordinator(f)
		if err := c.AddAccount(context.Background(), NewView("", ""), "New", tc.typ, dec("10")); err != nil {
			t.Fatalf("%s: %v", tc.typ, err)
		}
		if f.count(tc.call) != 1 {
			t.Fatalf("%s: expected one %q call, got %v", tc.typ, tc.call, f.calls)
		}
		if f.count("accounts") != 1 {
			t.Fatalf("%s: expected one account refresh, got %d", tc.typ, f.count("accounts"))
		}
	}
	f := seededFake(t)
	c := newCoordinator(f)
	if err := c.AddAccount(context.Background(), NewView("", ""), "Bad", "Crypto", dec("1")); !errors.Is(err, core.ErrInvalidAccountType) {
		t.Fatalf("expected ErrInvalidAccountType, got %v", err)
	}
	if f.count("add bank")+f.count("add debt") != 0 {
		t.Fatalf("invalid request must not reach the ledger")
	}
}

func TestTransferFundsRefreshesDestination(t *testing.T) {
	f := seededFake(t)
	c := newCoordinator(f)
	v := NewView("2025-03", "Checking")

	if err := c.TransferFunds(context.Background(), v, "Checking", "Savings", dec("75")); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if len(f.transfers) != 1 {
		t.Fatalf("expected exactly one transfer request, got %d", len(f.transfers))
	}
	req := f.transfers[0]
	if !req.Amount.Equal(dec("75")) || req.FromAccount != "Checking" || req.ToAccount != "Savings" || req.Date != "2025-03-14" {
		t.Fatalf("unexpected transfer request %+v", req)
	}
	if f.count("accounts") != 1 || f.count("transactions") != 1 {
		t.Fatalf("expected one account and one transaction refresh, got %v", f.calls)
	}
	snap := v.Snapshot()
	if snap.Account != "Savings" || snap.Month != "2025-03" {
		t.Fatalf("transactions should be scoped to Savings this month, got %q %q", snap.Account, snap.Month)
	}
	if len(snap.Accounts) != 3 {
		t.Fatalf("accounts not refreshed: %+v", snap.Accounts)
	}
}

func TestFailedWriteLeavesViewUnchanged(t *testing.T) {
	f := seededFake(t)
	c := newCoordinator(f)
	v := NewView("2025-03", "Checking")
	ctx := context.Background()
	if _, err := c.FetchAccounts(ctx, v); err != nil {
		t.Fatalf("fetch accounts: %v", err)
	}
	if _, err := c.FetchTransactions(ctx, v, "2025-03", "Checking"); err != nil {
		t.Fatalf("fetch transactions: %v", err)
	}
	before := v.Snapshot()
	reads := f.count("accounts") + f.count("transactions")

	f.writeErr = &ledger.TransportError{Op: "transfer", Err: errors.New("connection refused")}
	f.accounts = ledger.AccountsPayload{}

	err := c.TransferFunds(ctx, v, "Checking", "Savings", dec("10"))
	if !errors.Is(err, ledger.ErrTransport) {
		t.Fatalf("expected transport failure, got %v", err)
	}
	if err := c.AdjustFunds(ctx, v, "Checking", core.ActionDeposit, dec("5")); !errors.Is(err, ledger.ErrTransport) {
		t.Fatalf("expected transport failure, got %v", err)
	}
	if got := f.count("accounts") + f.count("transactions"); got != reads {
		t.Fatalf("failed writes must not refresh, reads went from %d to %d", reads, got)
	}
	if diff := cmp.Diff(before, v.Snapshot(), decimalEq); diff != "" {
		t.Fatalf("view changed after failed write (-before +after):\n%s", diff)
	}
}

func TestFailedRefreshCommitsNothing(t *testing.T) {
	f := seededFake(t)
	c := newCoordinator(f)
	v := NewView("2025-03", "Checking")
	ctx := context.Background()
	if _, err := c.FetchAccounts(ctx, v); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	before := v.Snapshot()

	f.readErr = &ledger.TransportError{Op: "transactions", Err: errors.New("timeout")}
	err := c.AdjustFunds(ctx, v, "Checking", core.ActionWithdraw, dec("5"))
	if !errors.Is(err, ErrStaleView) || !errors.Is(err, ledger.ErrTransport) {
		t.Fatalf("expected stale view error, got %v", err)
	}
	if f.count("adjust") != 1 {
		t.Fatalf("the write itself should have been issued")
	}
	if diff := cmp.Diff(before, v.Snapshot(), decimalEq); diff != "" {
		t.Fatalf("partial refresh committed (-before +after):\n%s", diff)
	}
}

func TestClosedViewIgnoresRefresh(t *testing.T) {
	f := seededFake(t)
	c := newCoordinator(f)
	v := NewView("2025-03", "Checking")
	v.Close()

	if err := c.AdjustFunds(context.Background(), v, "Checking", core.ActionDeposit, dec("5")); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if snap := v.Snapshot(); len(snap.Accounts) != 0 || len(snap.Transactions) != 0 {
		t.Fatalf("closed view must not be updated: %+v", snap)
	}
}

func TestWriteSurvivesCancelledContext(t *testing.T) {
	f := seededFake(t)
	c := newCoordinator(f)
	v := NewView("2025-03", "Checking")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.AdjustFunds(ctx, v, "Checking", core.ActionDeposit, dec("5"))
	if len(f.adjusts) != 1 {
		t.Fatalf("write should complete despite cancellation, got %d adjusts", len(f.adjusts))
	}
	if !errors.Is(err, ErrStaleView) && err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDeleteAccountRoutesByViewKind(t *testing.T) {
	f := seededFake(t)
	c := newCoordinator(f)
	v := NewView("", "")
	ctx := context.Background()

	if err := c.DeleteAccount(ctx, v, "Visa"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("unknown account should fail before writing, got %v", err)
	}
	if _, err := c.FetchAccounts(ctx, v); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if err := c.DeleteAccount(ctx, v, "Visa"); err != nil {
		t.Fatalf("delete debt: %v", err)
	}
	if err := c.DeleteAccount(ctx, v, "Savings"); err != nil {
		t.Fatalf("delete bank: %v", err)
	}
	if f.count("delete debt") != 1 || f.count("delete bank") != 1 {
		t.Fatalf("unexpected routing %v", f.calls)
	}
}

func TestDeleteCardRefreshesPicker(t *testing.T) {
	f := seededFake(t)
	c := newCoordinator(f)
	v := NewView("2025-03", "Checking")
	ctx := context.Background()

	if err := c.DeleteCard(ctx, v, "  "); !errors.Is(err, core.ErrInvalidAccount) {
		t.Fatalf("blank name should fail before writing, got %v", err)
	}
	if f.count("delete card") != 0 {
		t.Fatal("blank name must not reach the ledger")
	}
	if err := c.DeleteCard(ctx, v, "Visa"); err != nil {
		t.Fatalf("delete card: %v", err)
	}
	if f.count("delete card") != 1 || f.count("cards") != 1 || f.count("accounts") != 1 || f.count("transactions") != 1 {
		t.Fatalf("unexpected calls %v", f.calls)
	}
	if len(v.Snapshot().Accounts) != 3 {
		t.Fatalf("accounts should be refreshed, got %+v", v.Snapshot().Accounts)
	}
}

func TestTransactionMutationsRefreshCardsAndTransactions(t *testing.T) {
	f := seededFake(t)
	c := newCoordinator(f)
	v := NewView("2025-03", "Checking")
	ctx := context.Background()
	tx := core.Transaction{Date: "2025-03-05", Amount: dec("9"), Description: "Books", Card: "Checking"}

	if err := c.AddTransaction(ctx, v, tx); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.UpdateTransaction(ctx, v, 2, tx); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := c.DeleteTransaction(ctx, v, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if f.count("cards") != 3 || f.count("transactions") != 3 || f.count("accounts") != 0 {
		t.Fatalf("unexpected refreshes %v", f.calls)
	}
	if len(v.Snapshot().Cards) != 1 {
		t.Fatalf("card picker not refreshed")
	}
	if err := c.AddTransaction(ctx, v, core.Transaction{Date: "bad", Amount: dec("1")}); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if f.count("add transaction") != 1 {
		t.Fatalf("invalid transaction must not be written")
	}
}

func TestMakePayment(t *testing.T) {
	f := seededFake(t)
	c := newCoordinator(f)
	v := NewView("2025-03", "Visa")
	ctx := context.Background()

	if err := c.MakePayment(ctx, v, "Visa", "Checking", dec("50")); err != nil {
		t.Fatalf("pay from source: %v", err)
	}
	if len(f.transfers) != 1 || f.transfers[0].ToAccount != "Visa" || f.transfers[0].FromAccount != "Checking" {
		t.Fatalf("expected transfer into the debt, got %+v", f.transfers)
	}
	if err := c.MakePayment(ctx, v, "Visa", "", dec("20")); err != nil {
		t.Fatalf("pay without source: %v", err)
	}
	if len(f.adjusts) != 1 || f.adjusts[0].Action != core.ActionPayment {
		t.Fatalf("expected a payment adjustment, got %+v", f.adjusts)
	}
}

func TestReadsAndDerivedBalance(t *testing.T) {
	f := seededFake(t)
	c := newCoordinator(f)
	v := NewView("2025-03", "Checking")
	ctx := context.Background()

	if _, err := c.FetchCategories(ctx, v); err != nil {
		t.Fatalf("categories: %v", err)
	}
	if _, err := c.FetchSummary(ctx, v, ""); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if _, err := c.FetchSummary(ctx, v, "2025-3"); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
	if _, err := c.FetchCards(ctx, v); err != nil {
		t.Fatalf("cards: %v", err)
	}
	snap := v.Snapshot()
	if len(snap.Categories) != 1 || !snap.SummaryTotals().Remaining.Equal(dec("40")) || len(snap.Cards) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if _, err := c.FetchAccounts(ctx, v); err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if _, err := c.FetchTransactions(ctx, v, "2025-03", "Checking"); err != nil {
		t.Fatalf("transactions: %v", err)
	}
	got, err := c.DerivedBalance(v, "Checking", dec("100"))
	if err != nil {
		t.Fatalf("derived: %v", err)
	}
	if !got.Equal(dec("13")) {
		t.Fatalf("expected 100-75-12=13, got %s", got)
	}
	if _, err := c.DerivedBalance(v, "Ghost", decimal.Zero); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestCoordinatorLogsDroppedRecordsAndFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithWriter(log.Config{Level: slog.LevelDebug, Component: log.ComponentCoordinator}, &buf)

	f := seededFake(t)
	f.feed = append(f.feed, rawJSON(t, "junk", map[string]any{"id": 9, "card": "Checking"})...)
	c := NewCoordinator(f, WithClock(func() time.Time { return fixedNow }), WithLogger(logger))
	v := NewView("2025-03", "Checking")
	ctx := context.Background()

	txs, err := c.FetchTransactions(ctx, v, "2025-03", "Checking")
	if err != nil {
		t.Fatalf("fetch transactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("malformed rows should be dropped, got %d rows", len(txs))
	}

	f.writeErr = &ledger.TransportError{Op: "transfer", Err: errors.New("connection refused")}
	if err := c.TransferFunds(ctx, v, "Checking", "Savings", dec("10")); !errors.Is(err, ledger.ErrTransport) {
		t.Fatalf("expected transport failure, got %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"component=coordinator",
		"dropped=2",
		"error_type=data_shape_error",
		"operation=refresh",
		`operation="transfer funds"`,
		"error_type=transport_error",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
