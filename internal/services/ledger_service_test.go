package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bearbudget/internal/amqp"
	"bearbudget/internal/cache"
	"bearbudget/internal/core"
	"bearbudget/internal/ledger"
	"bearbudget/internal/ledger/memory"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *fakePublisher) PublishEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *fakePublisher) kinds() []amqp.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []amqp.EventKind
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}

// countingStore counts Summary calls on top of the memory store.
type countingStore struct {
	*memory.Store
	summaries int
}

func (c *countingStore) Summary(ctx context.Context, month core.Month) ([]core.SummaryItem, error) {
	c.summaries++
	return c.Store.Summary(ctx, month)
}

func newLedgerService(t *testing.T, pub EventPublisher) (*LedgerService, *countingStore) {
	t.Helper()
	store := memory.New([]core.Category{{Name: "Groceries", Budget: dec("300")}})
	store.SetClock(func() time.Time { return fixedNow })
	cs := &countingStore{Store: store}
	return NewLedgerService(cs, pub, cache.NewLRU[[]core.SummaryItem](12, time.Minute)), cs
}

func TestLedgerService_PublishesAfterEachWrite(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc, _ := newLedgerService(t, pub)

	if err := svc.CreateBank(ctx, "Checking", dec("100")); err != nil {
		t.Fatal(err)
	}
	if err := svc.CreateBank(ctx, "Savings", dec("0")); err != nil {
		t.Fatal(err)
	}
	tx, err := svc.CreateTransaction(ctx, core.Transaction{Date: "2025-03-02", Amount: dec("12"), Card: "Checking", Category: "Groceries", Description: "milk"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Transfer(ctx, core.TransferRequest{Date: "2025-03-03", FromAccount: "Checking", ToAccount: "Savings", Amount: dec("10")}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Adjust(ctx, "Savings", core.AdjustmentRequest{Action: core.ActionDeposit, Amount: dec("5")}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.DeleteTransaction(ctx, tx.IDValue()); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteBank(ctx, "Savings"); err != nil {
		t.Fatal(err)
	}

	want := []amqp.EventKind{
		amqp.EventAccountCreated,
		amqp.EventAccountCreated,
		amqp.EventTransactionCreated,
		amqp.EventFundsTransferred,
		amqp.EventFundsAdjusted,
		amqp.EventTransactionDeleted,
		amqp.EventAccountDeleted,
	}
	got := pub.kinds()
	if len(got) != len(want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
	if ev := pub.events[2]; ev.TransactionID != tx.IDValue() || ev.Month != "2025-03" || ev.Account != "Checking" {
		t.Errorf("unexpected created event %+v", ev)
	}
}

func TestLedgerService_FailedWriteDoesNotPublish(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc, _ := newLedgerService(t, pub)

	if err := svc.DeleteBank(ctx, "Nope"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(pub.kinds()) != 0 {
		t.Errorf("published %v after a failed write", pub.kinds())
	}
}

func TestLedgerService_PublishErrorKeepsWrite(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{err: amqp.ErrCircuitOpen}
	svc, _ := newLedgerService(t, pub)

	if err := svc.CreateBank(ctx, "Checking", dec("1")); err != nil {
		t.Fatalf("publish failure leaked into write: %v", err)
	}
	banks, _ := svc.ListBanks(ctx)
	if len(banks) != 1 {
		t.Errorf("banks = %v", banks)
	}
}

func TestLedgerService_NilPublisher(t *testing.T) {
	svc, _ := newLedgerService(t, nil)
	if err := svc.CreateDebt(context.Background(), "Visa", dec("-50")); err != nil {
		t.Fatal(err)
	}
}

func TestLedgerService_SummaryCache(t *testing.T) {
	ctx := context.Background()
	svc, cs := newLedgerService(t, &fakePublisher{})
	_ = svc.CreateBank(ctx, "Checking", dec("100"))

	for i := 0; i < 3; i++ {
		if _, err := svc.Summary(ctx, "2025-03"); err != nil {
			t.Fatal(err)
		}
	}
	if cs.summaries != 1 {
		t.Fatalf("store summaries = %d, want 1", cs.summaries)
	}

	if _, err := svc.CreateTransaction(ctx, core.Transaction{Date: "2025-03-05", Amount: dec("40"), Card: "Checking", Category: "Groceries"}); err != nil {
		t.Fatal(err)
	}
	items, err := svc.Summary(ctx, "2025-03")
	if err != nil {
		t.Fatal(err)
	}
	if cs.summaries != 2 {
		t.Errorf("write did not invalidate the cache: %d store calls", cs.summaries)
	}
	if len(items) != 1 || !items[0].AmountUsed.Equal(dec("40")) || !items[0].Remaining.Equal(dec("260")) {
		t.Errorf("summary = %+v", items)
	}

	items[0].Category = "mutated"
	again, _ := svc.Summary(ctx, "2025-03")
	if again[0].Category != "Groceries" {
		t.Errorf("cached summary was mutated through a returned slice")
	}
}
