package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bearbudget/internal/core"
	"bearbudget/internal/ledger"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func balanceOf(t *testing.T, s *Store, name string) decimal.Decimal {
	t.Helper()
	cards, err := s.ListCards(context.Background())
	if err != nil {
		t.Fatalf("list cards: %v", err)
	}
	for _, c := range cards {
		if c.Name == name {
			return c.Balance
		}
	}
	t.Fatalf("account %q not found", name)
	return decimal.Zero
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s := New([]core.Category{{Name: "Food", Budget: dec("300"), Rollover: dec("20")}, {Name: "Rent", Budget: dec("1000")}})
	s.SetClock(func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) })
	ctx := context.Background()
	if err := s.CreateBank(ctx, "Checking", dec("500")); err != nil {
		t.Fatalf("create bank: %v", err)
	}
	if err := s.CreateBank(ctx, "Savings", dec("50")); err != nil {
		t.Fatalf("create bank: %v", err)
	}
	if err := s.CreateDebt(ctx, "Visa", dec("200")); err != nil {
		t.Fatalf("create debt: %v", err)
	}
	return s
}

func TestAccountsLifecycle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	debts, _ := s.ListDebts(ctx)
	if len(debts) != 1 || !debts[0].Balance.Equal(dec("-200")) || debts[0].Kind != core.KindDebt {
		t.Fatalf("debt should be stored negative: %+v", debts)
	}
	if err := s.CreateBank(ctx, "Visa", dec("1")); !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate name, got %v", err)
	}
	if err := s.CreateBank(ctx, "  ", dec("1")); !errors.Is(err, core.ErrInvalidAccount) {
		t.Fatalf("expected ErrInvalidAccount, got %v", err)
	}
	if err := s.DeleteBank(ctx, "Visa"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("deleting a debt as a bank should fail, got %v", err)
	}
	if err := s.DeleteCard(ctx, "Visa"); err != nil {
		t.Fatalf("delete card: %v", err)
	}
	if err := s.DeleteDebt(ctx, "Visa"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	cards, _ := s.ListCards(ctx)
	if len(cards) != 2 || cards[0].Name != "Checking" || cards[1].Name != "Savings" {
		t.Fatalf("unexpected cards %+v", cards)
	}
}

func TestTransactionsMoveBalances(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	tx, err := s.CreateTransaction(ctx, core.Transaction{Date: "2025-03-02", Amount: dec("40"), Description: "Dinner", Card: "Visa", Category: "Food"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !tx.HasID() {
		t.Fatalf("expected assigned id")
	}
	if got := balanceOf(t, s, "Visa"); !got.Equal(dec("-240")) {
		t.Fatalf("visa: expected -240, got %s", got)
	}

	if _, err := s.UpdateTransaction(ctx, tx.IDValue(), core.Transaction{Date: "2025-03-02", Amount: dec("25"), Description: "Dinner", Card: "Checking", Category: "Food"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := balanceOf(t, s, "Visa"); !got.Equal(dec("-200")) {
		t.Fatalf("visa should be restored, got %s", got)
	}
	if got := balanceOf(t, s, "Checking"); !got.Equal(dec("475")) {
		t.Fatalf("checking: expected 475, got %s", got)
	}

	removed, err := s.DeleteTransaction(ctx, tx.IDValue())
	if err != nil || removed.Card != "Checking" {
		t.Fatalf("delete: %+v %v", removed, err)
	}
	if got := balanceOf(t, s, "Checking"); !got.Equal(dec("500")) {
		t.Fatalf("checking should be restored, got %s", got)
	}
	if _, err := s.GetTransaction(ctx, tx.IDValue()); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.CreateTransaction(ctx, core.Transaction{Date: "03/02/2025", Amount: dec("1")}); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestTransferAndAdjust(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	row, err := s.Transfer(ctx, core.TransferRequest{Date: "2025-03-03", FromAccount: "Checking", ToAccount: "Savings", Amount: dec("75")})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if row.Card != "Checking" || row.RelatedAccount != "Savings" || !row.IsTransfer() {
		t.Fatalf("unexpected transfer row %+v", row)
	}
	if got := balanceOf(t, s, "Checking"); !got.Equal(dec("425")) {
		t.Fatalf("checking: expected 425, got %s", got)
	}
	if got := balanceOf(t, s, "Savings"); !got.Equal(dec("125")) {
		t.Fatalf("savings: expected 125, got %s", got)
	}
	if _, err := s.Transfer(ctx, core.TransferRequest{Date: "2025-03-03", FromAccount: "Checking", ToAccount: "Nope", Amount: dec("1")}); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	adj, err := s.Adjust(ctx, "Visa", core.AdjustmentRequest{Action: core.ActionPayment, Amount: dec("50")})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if adj.Date != "2025-03-14" || adj.IsTransfer() {
		t.Fatalf("unexpected adjustment row %+v", adj)
	}
	if got := balanceOf(t, s, "Visa"); !got.Equal(dec("-150")) {
		t.Fatalf("visa: expected -150, got %s", got)
	}
	if _, err := s.Adjust(ctx, "Savings", core.AdjustmentRequest{Action: core.ActionUpdateBalance, Amount: dec("1000")}); err != nil {
		t.Fatalf("update balance: %v", err)
	}
	if got := balanceOf(t, s, "Savings"); !got.Equal(dec("1000")) {
		t.Fatalf("savings: expected 1000, got %s", got)
	}
	if _, err := s.Adjust(ctx, "Ghost", core.AdjustmentRequest{Action: core.ActionDeposit, Amount: dec("1")}); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSummary(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for _, tx := range []core.Transaction{
		{Date: "2025-03-01", Amount: dec("30"), Description: "Market", Card: "Checking", Category: "Food"},
		{Date: "2025-03-05", Amount: dec("12.5"), Description: "Bakery", Card: "Visa", Category: "Food"},
		{Date: "2025-02-28", Amount: dec("99"), Description: "Old", Card: "Checking", Category: "Food"},
		{Date: "2025-03-06", Amount: dec("1000"), Description: "Refund", Card: "Checking", Category: "Food", TransactionType: core.Income},
	} {
		if _, err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	items, err := s.Summary(ctx, "")
	if err != nil || len(items) != 2 {
		t.Fatalf("summary: %+v %v", items, err)
	}
	food := items[0]
	if food.Category != "Food" || !food.AmountUsed.Equal(dec("42.5")) || !food.Remaining.Equal(dec("277.5")) {
		t.Fatalf("unexpected food summary %+v", food)
	}
	if !items[1].Remaining.Equal(dec("1000")) {
		t.Fatalf("unexpected rent summary %+v", items[1])
	}
	feb, _ := s.Summary(ctx, "2025-02")
	if !feb[0].AmountUsed.Equal(dec("99")) {
		t.Fatalf("unexpected february summary %+v", feb[0])
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir)
	cats, _ := s.ListCategories(context.Background())
	if len(cats) == 0 {
		t.Fatalf("expected default categories when file is missing")
	}

	content := "# name,budget,rollover\nFood,300,15\nFood,1\n\nTravel\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s = NewFromFiles(dir)
	cats, _ = s.ListCategories(context.Background())
	if len(cats) != 2 || cats[0] != "Food" || cats[1] != "Travel" {
		t.Fatalf("unexpected categories %v", cats)
	}
	items, _ := s.Summary(context.Background(), "2025-01")
	if !items[0].Budget.Equal(dec("300")) || !items[0].Rollover.Equal(dec("15")) || !items[0].Remaining.Equal(dec("315")) {
		t.Fatalf("unexpected seeded budget %+v", items[0])
	}
}
