// Package memory is an in-process ledger store for development and tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"bearbudget/internal/core"
	"bearbudget/internal/ledger"
	"bearbudget/internal/ledger/posting"
	"bearbudget/internal/reconcile"

	"github.com/shopspring/decimal"
)

type Store struct {
	mu     sync.Mutex
	now    func() time.Time
	banks  []core.Account
	debts  []core.Account
	txs    []core.Transaction
	nextID int64
	cats   []core.Category
}

var _ ledger.Store = (*Store)(nil)

func New(cats []core.Category) *Store {
	return &Store{now: time.Now, nextID: 1, cats: dedupeCategories(cats)}
}

// NewFromFiles seeds categories from seed_categories.txt under base. Each
// line is "name[,budget[,rollover]]"; blank lines and # comments are skipped.
func NewFromFiles(base string) *Store {
	cats := readCategories(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = []core.Category{
			{Name: "Groceries", Budget: decimal.NewFromInt(400)},
			{Name: "Dining", Budget: decimal.NewFromInt(150)},
			{Name: "Transport", Budget: decimal.NewFromInt(100)},
			{Name: "Utilities", Budget: decimal.NewFromInt(200)},
		}
	}
	return New(cats)
}

// SetClock replaces the clock used for adjustment dates and the default
// summary month.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) ListBanks(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Account{}, s.banks...), nil
}

func (s *Store) ListDebts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Account{}, s.debts...), nil
}

func (s *Store) ListCards(_ context.Context) ([]ledger.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cards := ledger.AccountEntries(s.banks)
	return append(cards, ledger.AccountEntries(s.debts)...), nil
}

func (s *Store) CreateBank(_ context.Context, name string, balance decimal.Decimal) error {
	return s.create(name, balance, core.KindBank)
}

func (s *Store) CreateDebt(_ context.Context, name string, balance decimal.Decimal) error {
	return s.create(name, reconcile.DebtBalance(balance), core.KindDebt)
}

func (s *Store) create(name string, balance decimal.Decimal, kind core.AccountKind) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrInvalidAccount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, ok := s.find(name); ok {
		return fmt.Errorf("account %q: %w", name, ledger.ErrConflict)
	}
	a := core.Account{Name: name, Balance: balance, Kind: kind}
	if kind == core.KindDebt {
		s.debts = append(s.debts, a)
	} else {
		s.banks = append(s.banks, a)
	}
	return nil
}

func (s *Store) DeleteBank(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(&s.banks, name)
}

func (s *Store) DeleteDebt(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(&s.debts, name)
}

func (s *Store) DeleteCard(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.remove(&s.banks, name); err == nil {
		return nil
	}
	return s.remove(&s.debts, name)
}

func (s *Store) remove(list *[]core.Account, name string) error {
	for i, a := range *list {
		if a.Name == name {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("account %q: %w", name, ledger.ErrNotFound)
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction{}, s.txs...), nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.indexOf(id)
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, ledger.ErrNotFound)
	}
	return s.txs[i], nil
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.post(tx), nil
}

func (s *Store) UpdateTransaction(_ context.Context, id int64, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.indexOf(id)
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, ledger.ErrNotFound)
	}
	s.applyEffects(posting.Reversed(posting.Effects(s.txs[i], s.kindOf)))
	tx = tx.WithID(id)
	s.txs[i] = tx
	s.applyEffects(posting.Effects(tx, s.kindOf))
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.indexOf(id)
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, ledger.ErrNotFound)
	}
	old := s.txs[i]
	s.applyEffects(posting.Reversed(posting.Effects(old, s.kindOf)))
	s.txs = append(s.txs[:i], s.txs[i+1:]...)
	return old, nil
}

func (s *Store) ListCategories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.cats))
	for _, c := range s.cats {
		out = append(out, c.Name)
	}
	return out, nil
}

func (s *Store) Summary(_ context.Context, month core.Month) ([]core.SummaryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if month == "" {
		month = core.CurrentMonth(s.now())
	}
	return posting.Summarize(s.cats, s.txs, month), nil
}

func (s *Store) Adjust(_ context.Context, account string, req core.AdjustmentRequest) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, i, ok := s.find(account)
	if !ok {
		return core.Transaction{}, fmt.Errorf("account %q: %w", account, ledger.ErrNotFound)
	}
	a := (*list)[i]
	row, err := posting.Adjustment(a.Name, a.Kind, a.Balance, req, core.Today(s.now()))
	if err != nil {
		return core.Transaction{}, err
	}
	return s.post(row), nil
}

func (s *Store) Transfer(_ context.Context, req core.TransferRequest) (core.Transaction, error) {
	if err := req.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range []string{req.FromAccount, req.ToAccount} {
		if _, _, ok := s.find(name); !ok {
			return core.Transaction{}, fmt.Errorf("account %q: %w", name, ledger.ErrNotFound)
		}
	}
	return s.post(posting.TransferRow(req)), nil
}

// post assigns an id, stores the row and applies its balance effects.
// Callers hold the lock.
func (s *Store) post(tx core.Transaction) core.Transaction {
	tx = tx.WithID(s.nextID)
	s.nextID++
	s.txs = append(s.txs, tx)
	s.applyEffects(posting.Effects(tx, s.kindOf))
	return tx
}

func (s *Store) applyEffects(effects []posting.Effect) {
	for _, e := range effects {
		if list, i, ok := s.find(e.Account); ok {
			(*list)[i].Balance = (*list)[i].Balance.Add(e.Delta)
		}
	}
}

func (s *Store) kindOf(name string) (core.AccountKind, bool) {
	list, i, ok := s.find(name)
	if !ok {
		return "", false
	}
	return (*list)[i].Kind, true
}

func (s *Store) find(name string) (*[]core.Account, int, bool) {
	for i, a := range s.banks {
		if a.Name == name {
			return &s.banks, i, true
		}
	}
	for i, a := range s.debts {
		if a.Name == name {
			return &s.debts, i, true
		}
	}
	return nil, 0, false
}

func (s *Store) indexOf(id int64) (int, bool) {
	for i, tx := range s.txs {
		if tx.IDValue() == id {
			return i, true
		}
	}
	return 0, false
}

func readCategories(path string) []core.Category {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.Category
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		c := core.Category{Name: strings.TrimSpace(parts[0])}
		if len(parts) > 1 {
			c.Budget, _ = core.ParseAmount(parts[1])
		}
		if len(parts) > 2 {
			c.Rollover, _ = core.ParseAmount(parts[2])
		}
		out = append(out, c)
	}
	return dedupeCategories(out)
}

func dedupeCategories(in []core.Category) []core.Category {
	seen := map[string]struct{}{}
	out := make([]core.Category, 0, len(in))
	for _, c := range in {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out
}
