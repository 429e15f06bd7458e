package services

import (
	"sync"

	"bearbudget/internal/core"
	"bearbudget/internal/ledger"
)

// Snapshot is everything a screen displays. It is replaced wholesale by
// each refresh.
type Snapshot struct {
	Accounts   []core.Account
	Cards      []ledger.Card
	Categories []string
	Summary    []core.SummaryItem

	// Feed is the decoded transaction list; Transactions is the part of
	// it reconciled for Month and Account.
	Feed         []core.Transaction
	Month        core.Month
	Account      string
	Transactions []core.Transaction
}

func (s Snapshot) clone() Snapshot {
	s.Accounts = append([]core.Account(nil), s.Accounts...)
	s.Cards = append([]ledger.Card(nil), s.Cards...)
	s.Categories = append([]string(nil), s.Categories...)
	s.Summary = append([]core.SummaryItem(nil), s.Summary...)
	s.Feed = append([]core.Transaction(nil), s.Feed...)
	s.Transactions = append([]core.Transaction(nil), s.Transactions...)
	return s
}

// FindAccount looks an account up by name in the displayed list.
func (s Snapshot) FindAccount(name string) (core.Account, bool) {
	for _, a := range s.Accounts {
		if a.Name == name {
			return a, true
		}
	}
	return core.Account{}, false
}

// NetWorth summarizes the displayed accounts.
func (s Snapshot) NetWorth() core.NetWorth {
	return core.ComputeNetWorth(s.Accounts)
}

// SummaryTotals sums the displayed budget summary.
func (s Snapshot) SummaryTotals() core.SummaryTotals {
	return core.Totals(s.Summary)
}

// View owns the state of one screen. Once closed it ignores every
// refresh still in flight.
type View struct {
	mu     sync.Mutex
	snap   Snapshot
	closed bool
}

// NewView starts a view focused on one account and month. Either may be
// empty for screens that show no transaction list.
func NewView(month core.Month, account string) *View {
	return &View{snap: Snapshot{Month: month, Account: account}}
}

func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap.clone()
}

func (v *View) Focus() (core.Month, string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap.Month, v.snap.Account
}

func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
}

func (v *View) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// commit applies fn to the snapshot unless the view is closed.
func (v *View) commit(fn func(*Snapshot)) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return false
	}
	fn(&v.snap)
	return true
}
