package memory

import (
	"context"
	"fmt"
	"sync"

	"bearbudget/internal/core"
	ports "bearbudget/internal/sheets"
)

// Store is an in-memory export sheet. The worker uses it when no
// spreadsheet is configured.
type Store struct {
	mu   sync.Mutex
	rows [][]any
}

var _ ports.TransactionWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// AppendTransaction stores the rendered row and returns a synthetic row
// reference.
func (s *Store) AppendTransaction(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, ports.Row(tx))
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]any(nil), s.rows...)
}
